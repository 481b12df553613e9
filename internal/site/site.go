// Package site renders pages into the HTML shell and copies static files
// into the output tree.
package site

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"
)

// DateLayout formats created and last-updated dates.
const DateLayout = "January 2, 2006"

//go:embed templates/page.html
var templates embed.FS

// Nav is the top bar shown on every page except the root.
type Nav struct {
	// Created is the formatted creation date; empty hides it.
	Created string
}

// Page is the data passed to the page template.
type Page struct {
	Title       string
	Content     template.HTML
	Nav         *Nav
	LastUpdated string
}

// NewPage assembles a Page. contentHTML must already be trusted HTML.
func NewPage(title, contentHTML string, nav *Nav, updated time.Time) Page {
	return Page{
		Title: title,
		// #nosec G203 -- content is rendered from the source document by the converter.
		Content:     template.HTML(contentHTML),
		Nav:         nav,
		LastUpdated: updated.Format(DateLayout),
	}
}

// NewNav builds the navigation bar. A zero created time hides the date.
func NewNav(created time.Time, ok bool) *Nav {
	nav := &Nav{}
	if ok && !created.IsZero() {
		nav.Created = created.Format(DateLayout)
	}
	return nav
}

// Renderer executes the page template.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded page template, or the file at
// overridePath when it is non-empty.
func NewRenderer(overridePath string) (*Renderer, error) {
	var (
		tmpl *template.Template
		err  error
	)
	if overridePath != "" {
		tmpl, err = template.ParseFiles(overridePath)
	} else {
		tmpl, err = template.ParseFS(templates, "templates/page.html")
	}
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderPage writes the full HTML document for p.
func (r *Renderer) RenderPage(w io.Writer, p Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, p); err != nil {
		return fmt.Errorf("execute page template: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

// Putter stores one object.
type Putter interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// CopyDir uploads every regular file under src to dst below prefix and
// returns the number of files copied. A missing src is not an error.
func CopyDir(ctx context.Context, src string, dst Putter, prefix string) (int, error) {
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat static dir: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("static path %s is not a directory", src)
	}

	copied := 0
	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		// #nosec G304 -- p comes from walking the configured static dir.
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		defer f.Close() //nolint:errcheck // read-only file

		target := path.Join(prefix, filepath.ToSlash(rel))
		if _, err := dst.PutObject(ctx, target, contentType(p), f); err != nil {
			return fmt.Errorf("copy %s: %w", target, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("copy static dir: %w", err)
	}
	return copied, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
