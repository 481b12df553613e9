// Package fixtures serves documents from JSON files on disk, one file per
// document named <id>.json, for offline builds and tests.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/JakeFAU/docsite/internal/document"
)

// ErrDocumentNotFound is returned when no fixture exists for an id.
var ErrDocumentNotFound = errors.New("fixture document not found")

// file is the on-disk shape: a Docs API document plus optional Drive metadata.
type file struct {
	document.Document
	CreatedTime string `json:"createdTime,omitempty"`
}

// Source reads fixtures from a directory.
type Source struct {
	dir string
}

// New returns a Source rooted at dir.
func New(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat fixtures dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fixtures path %s is not a directory", dir)
	}
	return &Source{dir: dir}, nil
}

// FetchDocument loads <dir>/<id>.json.
func (s *Source) FetchDocument(_ context.Context, id string) (*document.Document, error) {
	f, err := s.load(id)
	if err != nil {
		return nil, err
	}
	doc := f.Document
	if doc.DocumentID == "" {
		doc.DocumentID = id
	}
	return &doc, nil
}

// CreatedTime reports the fixture's createdTime field, if any.
func (s *Source) CreatedTime(_ context.Context, id string) (time.Time, bool, error) {
	f, err := s.load(id)
	if err != nil {
		return time.Time{}, false, err
	}
	if f.CreatedTime == "" {
		return time.Time{}, false, nil
	}
	created, err := time.Parse(time.RFC3339, f.CreatedTime)
	if err != nil {
		return time.Time{}, false, nil
	}
	return created, true, nil
}

func (s *Source) load(id string) (file, error) {
	if !validID(id) {
		return file{}, fmt.Errorf("fixture %q: %w", id, ErrDocumentNotFound)
	}
	// #nosec G304 -- id is restricted to [A-Za-z0-9_-].
	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return file{}, fmt.Errorf("fixture %q: %w", id, ErrDocumentNotFound)
	}
	if err != nil {
		return file{}, fmt.Errorf("read fixture %q: %w", id, err)
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return file{}, fmt.Errorf("decode fixture %q: %w", id, err)
	}
	return f, nil
}

func validID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
