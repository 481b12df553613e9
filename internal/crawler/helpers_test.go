package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/assets"
	"github.com/JakeFAU/docsite/internal/convert"
	"github.com/JakeFAU/docsite/internal/doclink"
	"github.com/JakeFAU/docsite/internal/document"
	hashsha "github.com/JakeFAU/docsite/internal/hash/sha256"
	"github.com/JakeFAU/docsite/internal/site"
	"github.com/JakeFAU/docsite/internal/storage/memory"
)

var errNoDocument = errors.New("no such document")

type fakeSource struct {
	mu      sync.Mutex
	docs    map[string]*document.Document
	created map[string]time.Time
	fetches map[string]int
	fail    map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		docs:    make(map[string]*document.Document),
		created: make(map[string]time.Time),
		fetches: make(map[string]int),
		fail:    make(map[string]error),
	}
}

func (s *fakeSource) add(id, title string, content ...document.StructuralElement) *document.Document {
	d := &document.Document{DocumentID: id, Title: title, Body: &document.Body{Content: content}}
	s.docs[id] = d
	return d
}

func (s *fakeSource) FetchDocument(_ context.Context, id string) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[id]++
	if err, ok := s.fail[id]; ok {
		return nil, err
	}
	d, ok := s.docs[id]
	if !ok {
		return nil, errNoDocument
	}
	return d, nil
}

func (s *fakeSource) CreatedTime(_ context.Context, id string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.created[id]
	return t, ok, nil
}

func (s *fakeSource) fetchCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[id]
}

func para(elems ...document.ParagraphElement) document.StructuralElement {
	return document.StructuralElement{Paragraph: &document.Paragraph{Elements: elems}}
}

func text(s string) document.ParagraphElement {
	return document.ParagraphElement{TextRun: &document.TextRun{Content: s}}
}

func docLink(anchor, id string) document.ParagraphElement {
	return document.ParagraphElement{TextRun: &document.TextRun{
		Content: anchor,
		TextStyle: &document.TextStyle{Link: &document.Link{
			URL: fmt.Sprintf("https://docs.google.com/document/d/%s/edit", id),
		}},
	}}
}

func imageRef(d *document.Document, objectID, uri string) document.ParagraphElement {
	if d.InlineObjects == nil {
		d.InlineObjects = make(map[string]document.InlineObject)
	}
	d.InlineObjects[objectID] = document.InlineObject{InlineObjectProperties: &document.InlineObjectProperties{
		EmbeddedObject: &document.EmbeddedObject{
			ImageProperties: &document.ImageProperties{ContentURI: uri},
		},
	}}
	return document.ParagraphElement{InlineObjectElement: &document.InlineObjectElement{InlineObjectID: objectID}}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sequenceIDs struct{ n int }

func (s *sequenceIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("run-%d", s.n), nil
}

type imageFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  int
}

func (f *imageFetcher) Fetch(_ context.Context, url string) (assets.FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	body, ok := f.bodies[url]
	if !ok {
		return assets.FetchResponse{URL: url, StatusCode: http.StatusNotFound}, nil
	}
	return assets.FetchResponse{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {"image/png"}},
		Body:       body,
	}, nil
}

type recordingManifest struct {
	records []PageRecord
	err     error
}

func (m *recordingManifest) RecordPage(_ context.Context, rec PageRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

type harness struct {
	source  *fakeSource
	store   *memory.BlobStore
	fetcher *imageFetcher
	deps    Deps
}

var buildTime = time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)

func newHarness(t *testing.T) *harness {
	t.Helper()

	renderer, err := site.NewRenderer("")
	require.NoError(t, err)

	store := memory.NewBlobStore()
	fetcher := &imageFetcher{bodies: make(map[string][]byte)}
	loc, err := assets.New(assets.Config{Dir: "static/images"}, fetcher, store, hashsha.New(16), zap.NewNop())
	require.NoError(t, err)

	source := newFakeSource()
	return &harness{
		source:  source,
		store:   store,
		fetcher: fetcher,
		deps: Deps{
			Source:    source,
			Converter: convert.New(doclink.NewMatcher("docs.google.com"), nil),
			Renderer:  renderer,
			Store:     store,
			Images:    LocalizerFunc(func() ImageSession { return loc.NewSession() }),
			Hasher:    hashsha.New(0),
			Clock:     fixedClock{t: buildTime},
			IDs:       &sequenceIDs{},
		},
	}
}

func (h *harness) engine(t *testing.T, root string) *Engine {
	t.Helper()
	e, err := New(h.deps, Config{RootID: root, Topic: "builds"}, zap.NewNop())
	require.NoError(t, err)
	return e
}

func (h *harness) page(t *testing.T, path string) string {
	t.Helper()
	obj, ok := h.store.Get(path)
	require.Truef(t, ok, "page %s not written; have %v", path, h.store.Paths())
	return string(obj.Data)
}
