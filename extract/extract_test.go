package extract

import "testing"

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <link rel="stylesheet" href="/css/site.css">
  <link rel="icon" href="/favicon.ico">
  <link rel="preload stylesheet" href="theme.css">
  <script src="app.js"></script>
  <script src="https://cdn.example.net/lib.js"></script>
  <script>inlineOnly();</script>
</head>
<body>
  <script src="/js/extra.js"></script>
  <script src="app.js"></script>
  <script src="ftp://example.com/nope.js"></script>
</body>
</html>`

func TestReferences(t *testing.T) {
	refs, err := References("https://example.com/docs/index.html", []byte(samplePage))
	if err != nil {
		t.Fatalf("References: %v", err)
	}

	want := map[string]Kind{
		"https://example.com/css/site.css":   KindStylesheet,
		"https://example.com/docs/theme.css": KindStylesheet,
		"https://example.com/docs/app.js":    KindScript,
		"https://cdn.example.net/lib.js":     KindScript,
		"https://example.com/js/extra.js":    KindScript,
	}
	if len(refs) != len(want) {
		t.Fatalf("got %d references, want %d: %+v", len(refs), len(want), refs)
	}
	for _, ref := range refs {
		kind, ok := want[ref.URL]
		if !ok {
			t.Errorf("unexpected reference %q", ref.URL)
			continue
		}
		if ref.Kind != kind {
			t.Errorf("reference %q: got kind %q, want %q", ref.URL, ref.Kind, kind)
		}
	}
}

func TestReferences_MalformedMarkup(t *testing.T) {
	refs, err := References("https://example.com/", []byte(`<script src="a.js"<link rel=stylesheet`))
	if err != nil {
		t.Fatalf("References: %v", err)
	}
	for _, ref := range refs {
		if ref.URL == "" {
			t.Errorf("empty URL in %+v", ref)
		}
	}
}

func TestReferences_InvalidPageURL(t *testing.T) {
	if _, err := References("://bad", []byte("<html></html>")); err == nil {
		t.Fatal("expected error for invalid page URL")
	}
}

func TestResolveRef(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative", "https://example.com/a/b.html", "c.js", "https://example.com/a/c.js"},
		{"rooted", "https://example.com/a/b.html", "/js/app.js", "https://example.com/js/app.js"},
		{"absolute", "https://example.com/", "https://cdn.example.net/x.css", "https://cdn.example.net/x.css"},
		{"protocol-relative", "https://example.com/page", "//cdn.example.net/y.js", "https://cdn.example.net/y.js"},
		{"fragment stripped", "https://example.com/", "style.css#media", "https://example.com/style.css"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveRef(tt.base, tt.ref)
			if err != nil {
				t.Fatalf("ResolveRef(%q, %q): %v", tt.base, tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("ResolveRef(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolveRef_NonHTTP(t *testing.T) {
	if _, err := ResolveRef("https://example.com/", "mailto:x@example.com"); err == nil {
		t.Fatal("expected error for non-HTTP reference")
	}
}

func TestInScope(t *testing.T) {
	tests := []struct {
		base string
		ref  string
		want bool
	}{
		{"https://example.com/page", "https://example.com/app.js", true},
		{"https://example.com/page", "https://EXAMPLE.com/app.js", true},
		{"https://example.com:8443/page", "https://example.com/app.js", true},
		{"https://example.com/page", "https://cdn.example.net/lib.js", false},
		{"https://example.com/page", "https://sub.example.com/lib.js", false},
		{"://bad", "https://example.com/", false},
	}
	for _, tt := range tests {
		if got := InScope(tt.base, tt.ref); got != tt.want {
			t.Errorf("InScope(%q, %q) = %v, want %v", tt.base, tt.ref, got, tt.want)
		}
	}
}
