package scrape

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// NormalizeURL produces a canonical form for de-duplication: lowercase
// scheme and host, no fragment, query keys sorted, empty path mapped
// to "/".
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	if u.RawQuery != "" {
		parts := strings.Split(u.RawQuery, "&")
		filtered := parts[:0]
		for _, p := range parts {
			if p != "" {
				filtered = append(filtered, p)
			}
		}
		sort.Strings(filtered)
		u.RawQuery = strings.Join(filtered, "&")
	}
	return u.String(), nil
}

// ResolveURL resolves a possibly relative href against the page it was
// found on and normalizes the result.
func ResolveURL(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return NormalizeURL(base.ResolveReference(ref).String())
}

// SameSite reports whether candidate belongs to the same site as seed:
// the same host, or a subdomain of it, with www. treated as the bare
// host.
func SameSite(seedURL, candidateURL string) bool {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return false
	}
	candidate, err := url.Parse(candidateURL)
	if err != nil {
		return false
	}
	if candidate.Scheme != "http" && candidate.Scheme != "https" {
		return false
	}

	seedHost := strings.TrimPrefix(strings.ToLower(seed.Hostname()), "www.")
	candHost := strings.TrimPrefix(strings.ToLower(candidate.Hostname()), "www.")
	if seedHost == "" || candHost == "" {
		return false
	}
	return candHost == seedHost || strings.HasSuffix(candHost, "."+seedHost)
}
