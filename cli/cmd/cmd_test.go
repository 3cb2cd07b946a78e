package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/flume/settings"
	"github.com/justapithecus/flume/types"
)

func TestMain(m *testing.M) {
	// cli.HandleExitCoder would os.Exit the test binary on ExitCoder errors;
	// neutralize it so app.Run returns the error for assertion.
	cli.OsExiter = func(int) {}
	os.Exit(m.Run())
}

func testApp() *cli.App {
	return &cli.App{
		Name:   "flume",
		Writer: io.Discard,
		Commands: []*cli.Command{
			ServeCommand(),
			SendCommand(),
			FetchCommand(),
			SettingsCommand(),
			StatsCommand(),
			VersionCommand("test"),
		},
	}
}

func TestCommands_Registered(t *testing.T) {
	app := testApp()
	want := []string{"serve", "send", "fetch", "settings", "stats", "version"}
	for _, name := range want {
		if app.Command(name) == nil {
			t.Errorf("command %q not registered", name)
		}
	}

	settingsCmd := app.Command("settings")
	for _, sub := range []string{"get", "set"} {
		found := false
		for _, s := range settingsCmd.Subcommands {
			if s.Name == sub {
				found = true
			}
		}
		if !found {
			t.Errorf("settings subcommand %q not registered", sub)
		}
	}
}

func TestSettingsSet_PersistsFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	app := testApp()

	err := app.Run([]string{
		"flume", "settings", "set",
		"--settings-path", path,
		"--format", "json",
		"--host", "sink.internal",
		"--port", "9444",
		"--enabled=false",
	})
	if err != nil {
		t.Fatalf("settings set failed: %v", err)
	}

	got := settings.NewStore(path).Get()
	if got.Host != "sink.internal" || got.Port != 9444 {
		t.Errorf("persisted settings = %+v", got)
	}
	if got.Enabled {
		t.Error("enabled should be false")
	}
	if !got.FilterInScope {
		t.Error("untouched field filterInScope should keep its default")
	}
}

func TestSettingsSet_RequiresAField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	app := testApp()

	err := app.Run([]string{"flume", "settings", "set", "--settings-path", path})
	if err == nil {
		t.Fatal("expected error when no field flags are given")
	}
	var coder cli.ExitCoder
	if !errors.As(err, &coder) || coder.ExitCode() != exitUsage {
		t.Errorf("expected usage exit code, got %v", err)
	}
}

func TestSettingsGet_DefaultsWhenAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	app := testApp()

	err := app.Run([]string{
		"flume", "settings", "get",
		"--settings-path", path,
		"--format", "json",
	})
	if err != nil {
		t.Fatalf("settings get failed: %v", err)
	}
}

func TestSendLocal_DeliversToSink(t *testing.T) {
	var mu sync.Mutex
	var payloads []map[string]string
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p map[string]string
		if err := json.Unmarshal(body, &p); err != nil {
			t.Errorf("sink received invalid JSON: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>hello</body></html>")
	}))
	defer site.Close()

	host, port := splitHostPort(t, sink.URL)
	path := filepath.Join(t.TempDir(), "settings.json")
	app := testApp()

	err := app.Run([]string{
		"flume", "send", "--local",
		"--settings-path", path,
		"--sink-host", host,
		"--sink-port", port,
		"--format", "json",
		site.URL + "/page",
	})
	if err != nil {
		t.Fatalf("send --local failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("sink received %d payloads, want 1", len(payloads))
	}
	if payloads[0]["requestUrl"] != site.URL+"/page" {
		t.Errorf("requestUrl = %q", payloads[0]["requestUrl"])
	}
	if payloads[0]["request"] == "" || payloads[0]["response"] == "" {
		t.Errorf("payload missing raw capture: %+v", payloads[0])
	}
}

func TestSend_RequiresURL(t *testing.T) {
	app := testApp()
	if err := app.Run([]string{"flume", "send", "--local"}); err == nil {
		t.Fatal("expected error without a URL argument")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := VersionCommand("abc123")
	if cmd.Name != "version" {
		t.Errorf("name = %q", cmd.Name)
	}
	if types.Version == "" {
		t.Error("version constant is empty")
	}
}

func splitHostPort(t *testing.T, rawURL string) (string, string) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse %q: %v", rawURL, err)
	}
	return u.Hostname(), u.Port()
}
