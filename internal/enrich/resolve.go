package enrich

import (
	"net/url"
	"strings"
)

// ResolveURL resolves ref against base. When general resolution fails,
// scheme-relative ("//host/x") and root-relative ("/x") references are
// handled by hand.
func ResolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return "", false
	}

	if r, err := url.Parse(ref); err == nil {
		resolved := b.ResolveReference(r)
		if resolved.Scheme == "http" || resolved.Scheme == "https" {
			return resolved.String(), true
		}
		return "", false
	}

	switch {
	case strings.HasPrefix(ref, "//"):
		return b.Scheme + ":" + ref, true
	case strings.HasPrefix(ref, "/"):
		return b.Scheme + "://" + b.Host + ref, true
	}
	return "", false
}

// origin returns "scheme://host" of rawURL.
func origin(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
