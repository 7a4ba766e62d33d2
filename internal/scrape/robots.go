package scrape

import (
	"net/url"
	"strings"
)

// Robots is a minimal robots.txt policy: Disallow prefixes from the
// wildcard group and any group naming our user agent, plus declared
// sitemap URLs. An unreachable or empty robots.txt allows everything.
type Robots struct {
	disallow []string
	Sitemaps []string
}

// ParseRobots reads the rules that apply to the given user agent.
func ParseRobots(body, userAgent string) *Robots {
	r := &Robots{}
	agentToken := strings.ToLower(userAgent)
	if i := strings.IndexAny(agentToken, "/ "); i > 0 {
		agentToken = agentToken[:i]
	}

	applies := false
	for _, line := range strings.Split(body, "\n") {
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			agent := strings.ToLower(value)
			applies = agent == "*" || strings.Contains(agentToken, agent)
		case "disallow":
			if applies && value != "" {
				r.disallow = append(r.disallow, value)
			}
		case "sitemap":
			if value != "" {
				r.Sitemaps = append(r.Sitemaps, value)
			}
		}
	}
	return r
}

// Allowed reports whether the URL's path may be fetched.
func (r *Robots) Allowed(rawURL string) bool {
	if r == nil || len(r.disallow) == 0 {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, prefix := range r.disallow {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}
