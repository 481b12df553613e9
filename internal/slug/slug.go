// Package slug derives URL-safe path segments from text and hands them out
// without collisions for the lifetime of a crawl.
package slug

import (
	"strconv"
	"strings"
)

// Slugify lowercases text and collapses every run of characters outside
// [a-z0-9] into a single dash. Leading and trailing dashes are trimmed, so the
// result may be empty.
func Slugify(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	var b strings.Builder
	b.Grow(len(text))
	lastDash := false
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// Registry maps document IDs to their assigned slugs. The first assignment for
// an ID is final and every assigned slug is unique within the registry.
//
// Registry is not safe for concurrent use; the crawler owns it for one run.
type Registry struct {
	byID map[string]string
	used map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]string),
		used: make(map[string]struct{}),
	}
}

// Reserve returns the slug assigned to id, assigning one first when needed.
// New assignments probe base, base-2, base-3, ... until an unused slug is found.
// An empty base falls back to the id itself.
func (r *Registry) Reserve(id, base string) string {
	if s, ok := r.byID[id]; ok {
		return s
	}
	if base == "" {
		base = id
	}
	candidate := base
	for i := 2; ; i++ {
		if _, taken := r.used[candidate]; !taken {
			break
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
	r.used[candidate] = struct{}{}
	r.byID[id] = candidate
	return candidate
}

// Lookup reports the slug assigned to id, if any.
func (r *Registry) Lookup(id string) (string, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Len returns the number of documents with an assigned slug.
func (r *Registry) Len() int {
	return len(r.byID)
}
