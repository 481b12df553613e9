package crawler

import (
	"context"
	"io"
	"time"

	"github.com/JakeFAU/docsite/internal/assets"
	"github.com/JakeFAU/docsite/internal/convert"
	"github.com/JakeFAU/docsite/internal/document"
	"github.com/JakeFAU/docsite/internal/site"
)

// DocumentSource fetches documents and their file metadata by id.
type DocumentSource interface {
	FetchDocument(ctx context.Context, id string) (*document.Document, error)
	// CreatedTime reports when the document was created. ok is false when
	// the metadata is unavailable.
	CreatedTime(ctx context.Context, id string) (created time.Time, ok bool, err error)
}

// Converter turns a document into markup while reporting its links.
type Converter interface {
	Convert(doc *document.Document, resolver convert.LinkResolver) (convert.Result, error)
}

// ImageSession rewrites image sources within one run.
type ImageSession interface {
	Localize(ctx context.Context, fragment string) (string, error)
	Stats() assets.Stats
}

// ImageLocalizer starts an ImageSession per run.
type ImageLocalizer interface {
	NewSession() ImageSession
}

// LocalizerFunc adapts a session constructor to ImageLocalizer.
type LocalizerFunc func() ImageSession

// NewSession calls f.
func (f LocalizerFunc) NewSession() ImageSession {
	return f()
}

// PageRenderer wraps converted content in the site template.
type PageRenderer interface {
	RenderPage(w io.Writer, p site.Page) error
}

// BlobStore writes pages and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// ManifestStore persists metadata for each written page.
type ManifestStore interface {
	RecordPage(ctx context.Context, page PageRecord) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
