package assets

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hashsha "github.com/JakeFAU/docsite/internal/hash/sha256"
	"github.com/JakeFAU/docsite/internal/storage/memory"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-bytes")

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]FetchResponse
	errs      map[string]error
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]FetchResponse),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) serve(url, contentType string, body []byte) {
	f.responses[url] = FetchResponse{
		URL:        url,
		StatusCode: http.StatusOK,
		Headers:    http.Header{"Content-Type": {contentType}},
		Body:       body,
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return FetchResponse{}, err
	}
	if resp, ok := f.responses[url]; ok {
		return resp, nil
	}
	return FetchResponse{URL: url, StatusCode: http.StatusNotFound}, nil
}

func digest16(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func newTestLocalizer(t *testing.T, fetcher Fetcher) (*Localizer, *memory.BlobStore) {
	t.Helper()
	store := memory.NewBlobStore()
	l, err := New(Config{Dir: "static/images"}, fetcher, store, hashsha.New(16), nil)
	require.NoError(t, err)
	return l, store
}

func TestNewValidatesDependencies(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	_, err := New(Config{}, nil, store, hashsha.New(16), nil)
	assert.Error(t, err)
	_, err = New(Config{}, newFakeFetcher(), nil, hashsha.New(16), nil)
	assert.Error(t, err)
	_, err = New(Config{}, newFakeFetcher(), store, nil, nil)
	assert.Error(t, err)

	l, err := New(Config{}, newFakeFetcher(), store, hashsha.New(16), nil)
	require.NoError(t, err)
	assert.Equal(t, "static/images", l.cfg.Dir)
	assert.Equal(t, "/static/images/", l.cfg.URLPrefix)
	assert.Equal(t, "/static/", l.cfg.StaticPrefix)
}

func TestLocalizeInlineDataReusesPath(t *testing.T) {
	t.Parallel()

	l, store := newTestLocalizer(t, newFakeFetcher())
	s := l.NewSession()
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	want := "/static/images/" + digest16(pngBytes) + ".png"

	out, err := s.Localize(context.Background(), `<p><img src="`+src+`" alt="image"></p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p><img src="`+want+`" alt="image"></p>`, out)

	again, err := s.Localize(context.Background(), `<img src="`+src+`" alt="image">`)
	require.NoError(t, err)
	assert.Contains(t, again, `src="`+want+`"`)

	assert.Equal(t, 1, store.Writes())
	obj, ok := store.Get("static/images/" + digest16(pngBytes) + ".png")
	require.True(t, ok)
	assert.Equal(t, pngBytes, obj.Data)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, Stats{Stored: 1, Reused: 1}, s.Stats())
}

func TestLocalizeRemoteAndInlineShareContent(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://lh3.example.com/a", "image/png", pngBytes)
	l, store := newTestLocalizer(t, fetcher)
	s := l.NewSession()

	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	out, err := s.Localize(context.Background(),
		`<img src="https://lh3.example.com/a" alt="image"><img src="`+inline+`" alt="image">`)
	require.NoError(t, err)

	want := "/static/images/" + digest16(pngBytes) + ".png"
	assert.Equal(t, `<img src="`+want+`" alt="image"><img src="`+want+`" alt="image">`, out)
	assert.Equal(t, 1, store.Writes())
}

func TestLocalizeRemoteFetchedOncePerSession(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://lh3.example.com/a?sz=1&x=2", "image/jpeg; charset=binary", []byte("jpeg"))
	l, _ := newTestLocalizer(t, fetcher)
	s := l.NewSession()

	fragment := `<img src="https://lh3.example.com/a?sz=1&amp;x=2" alt="image">`
	for i := 0; i < 3; i++ {
		out, err := s.Localize(context.Background(), fragment)
		require.NoError(t, err)
		assert.Contains(t, out, "/static/images/"+digest16([]byte("jpeg"))+".jpg")
	}
	assert.Equal(t, 1, fetcher.calls["https://lh3.example.com/a?sz=1&x=2"])

	// A fresh session starts with an empty cache.
	_, err := l.NewSession().Localize(context.Background(), fragment)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls["https://lh3.example.com/a?sz=1&x=2"])
}

func TestLocalizeFailuresKeepOriginal(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["https://lh3.example.com/broken"] = errors.New("connection reset")
	l, store := newTestLocalizer(t, fetcher)
	s := l.NewSession()

	fragment := `<img src="https://lh3.example.com/broken" alt="image">` +
		`<img src="https://lh3.example.com/404" alt="image">` +
		`<img src="data:image/png;base64,%%%" alt="image">`
	out, err := s.Localize(context.Background(), fragment)
	require.NoError(t, err)
	assert.Equal(t, fragment, out)
	assert.Equal(t, 0, store.Writes())
	assert.Equal(t, 3, s.Stats().Failed)

	_, err = s.Localize(context.Background(), fragment)
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls["https://lh3.example.com/broken"], "failures are cached for the session")
}

func TestLocalizeLeavesOtherMarkupAlone(t *testing.T) {
	t.Parallel()

	l, store := newTestLocalizer(t, newFakeFetcher())
	fragment := "<h1 class=Title>Intro &amp; more</h1>\n" +
		`<p><a HREF="/p/x/">x</a> <IMG SRC="/static/images/abc.png"> <img src="pics/local.png"> <img alt="none"></p>` +
		"\n<!-- note -->"
	out, err := l.NewSession().Localize(context.Background(), fragment)
	require.NoError(t, err)
	assert.Equal(t, fragment, out)
	assert.Equal(t, 0, store.Writes())

	plain := "<p>No images here</p>"
	out, err = l.NewSession().Localize(context.Background(), plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestLocalizeSkipsWriteWhenObjectExists(t *testing.T) {
	t.Parallel()

	l, store := newTestLocalizer(t, newFakeFetcher())
	name := "static/images/" + digest16(pngBytes) + ".png"
	_, err := store.PutObject(context.Background(), name, "image/png", bytesReader(pngBytes))
	require.NoError(t, err)

	s := l.NewSession()
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	out, err := s.Localize(context.Background(), `<img src="`+src+`">`)
	require.NoError(t, err)
	assert.Contains(t, out, "/"+name)
	assert.Equal(t, 1, store.Writes())
	assert.Equal(t, Stats{Reused: 1}, s.Stats())
}

func TestLocalizeExtensionFallbacks(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.serve("https://cdn.example.com/pic.GIF", "", []byte("gif"))
	fetcher.serve("https://cdn.example.com/blob", "application/octet-stream", []byte("blob"))
	l, store := newTestLocalizer(t, fetcher)

	out, err := l.NewSession().Localize(context.Background(),
		`<img src="https://cdn.example.com/pic.GIF"><img src="https://cdn.example.com/blob">`)
	require.NoError(t, err)
	assert.Contains(t, out, digest16([]byte("gif"))+".gif")
	assert.Contains(t, out, digest16([]byte("blob"))+".bin")

	obj, ok := store.Get("static/images/" + digest16([]byte("blob")) + ".bin")
	require.True(t, ok)
	assert.Equal(t, "application/octet-stream", obj.ContentType)
}

func TestLocalizeStorageErrorIsFatal(t *testing.T) {
	t.Parallel()

	l, err := New(Config{}, newFakeFetcher(), failingStore{}, hashsha.New(16), nil)
	require.NoError(t, err)
	src := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	_, err = l.NewSession().Localize(context.Background(), `<img src="`+src+`">`)
	assert.ErrorContains(t, err, "disk full")
}
