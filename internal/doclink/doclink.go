// Package doclink recognises URLs that reference a document of the supported
// kind by id and builds the internal paths those links are rewritten to.
//
// The accepted grammar is
//
//	http(s)://<host>/document/[u/<digits>/]d/<id>[/...][?query][#fragment]
//
// where <id> is a non-empty token of [A-Za-z0-9_-]. Only the leading token of
// the segment after "d/" is taken as the id.
package doclink

import (
	"net/url"
	"strings"
)

// PathPrefix is the namespace generated pages live under.
const PathPrefix = "/p/"

// Matcher matches document links. A zero Matcher accepts any host.
type Matcher struct {
	hosts map[string]struct{}
}

// NewMatcher returns a Matcher restricted to the given hosts (case-insensitive).
// With no hosts every host is accepted and only the path grammar applies.
func NewMatcher(hosts ...string) Matcher {
	m := Matcher{}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if m.hosts == nil {
			m.hosts = make(map[string]struct{}, len(hosts))
		}
		m.hosts[h] = struct{}{}
	}
	return m
}

// Match extracts the document id from raw. ok is false when raw is not a
// document link or the id token is empty.
func (m Matcher) Match(raw string) (id string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" || !m.hostAllowed(u.Hostname()) {
		return "", false
	}
	return matchPath(u.Path)
}

func (m Matcher) hostAllowed(host string) bool {
	if len(m.hosts) == 0 {
		return true
	}
	_, ok := m.hosts[strings.ToLower(host)]
	return ok
}

func matchPath(p string) (string, bool) {
	rest, ok := cutPrefixFold(p, "/document/")
	if !ok {
		return "", false
	}
	if tail, ok := cutPrefixFold(rest, "u/"); ok {
		n := 0
		for n < len(tail) && tail[n] >= '0' && tail[n] <= '9' {
			n++
		}
		if n == 0 || n >= len(tail) || tail[n] != '/' {
			return "", false
		}
		rest = tail[n+1:]
	}
	rest, ok = cutPrefixFold(rest, "d/")
	if !ok {
		return "", false
	}
	n := 0
	for n < len(rest) && isIDByte(rest[n]) {
		n++
	}
	if n == 0 {
		return "", false
	}
	return rest[:n], true
}

func isIDByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// Href returns the internal path for a page with the given slug.
func Href(slug string) string {
	return PathPrefix + slug + "/"
}
