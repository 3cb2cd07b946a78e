// Package extract discovers resource references in captured markup and
// resolves them against the page location. Pure utilities: no state, no I/O.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Kind labels the kind of discovered reference.
type Kind string

const (
	// KindScript is a script reference (script src).
	KindScript Kind = "script"
	// KindStylesheet is a stylesheet reference (link rel=stylesheet href).
	KindStylesheet Kind = "stylesheet"
)

// Reference is a resource reference discovered in markup, resolved to an
// absolute URL.
type Reference struct {
	// URL is the absolute resource URL.
	URL string
	// Kind labels how the resource was referenced.
	Kind Kind
}

// References scans markup for script and stylesheet references and
// resolves each against the page URL. Unresolvable and non-HTTP references
// are skipped, not errors: captured markup is frequently malformed.
func References(pageURL string, markup []byte) ([]Reference, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid page URL %q: %w", pageURL, err)
	}

	// html.Parse is tolerant: it builds a tree for any input and only
	// fails on reader errors, which cannot happen for a byte slice.
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("extract: parse markup: %w", err)
	}

	var refs []Reference
	seen := make(map[string]bool)

	for node := range root.Descendants() {
		if node.Type != html.ElementNode {
			continue
		}

		var raw string
		var kind Kind
		switch node.Data {
		case "script":
			raw = attr(node, "src")
			kind = KindScript
		case "link":
			if !relContains(attr(node, "rel"), "stylesheet") {
				continue
			}
			raw = attr(node, "href")
			kind = KindStylesheet
		default:
			continue
		}
		if raw == "" {
			continue
		}

		resolved, ok := resolve(base, raw)
		if !ok || seen[resolved] {
			continue
		}
		seen[resolved] = true
		refs = append(refs, Reference{URL: resolved, Kind: kind})
	}
	return refs, nil
}

// ResolveRef resolves a possibly-relative reference against a base URL.
func ResolveRef(baseURL, ref string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("extract: invalid base URL %q: %w", baseURL, err)
	}
	resolved, ok := resolve(base, ref)
	if !ok {
		return "", fmt.Errorf("extract: cannot resolve %q against %q", ref, baseURL)
	}
	return resolved, nil
}

// InScope reports whether ref shares the base URL's host. The port is
// deliberately ignored: a site serving assets from :8443 alongside :443 is
// still one scope.
func InScope(baseURL, ref string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	target, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return base.Hostname() != "" && strings.EqualFold(base.Hostname(), target.Hostname())
}

// resolve resolves ref against base and filters to http(s) targets.
func resolve(base *url.URL, ref string) (string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}

// attr returns the value of the named attribute, or "".
func attr(node *html.Node, name string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

// relContains reports whether a space-separated rel attribute contains the
// given token.
func relContains(rel, token string) bool {
	for _, part := range strings.Fields(rel) {
		if strings.EqualFold(part, token) {
			return true
		}
	}
	return false
}
