package crawler

import (
	"errors"
	"time"
)

// ErrEmptyRootID is returned when a run is started without a root document.
var ErrEmptyRootID = errors.New("root document id is empty")

// PageState is the lifecycle of one document within a run.
type PageState string

// Page states, in order. Written is terminal.
const (
	PageStatePending PageState = "pending"
	PageStateFetched PageState = "fetched"
	PageStateWritten PageState = "written"
)

// Page is one rendered output file.
type Page struct {
	Path string
	Body []byte
}

// PageRecord is persisted for each written page.
type PageRecord struct {
	RunID       string    `json:"run_id"`
	DocumentID  string    `json:"document_id"`
	Slug        string    `json:"slug"`
	Path        string    `json:"path"`
	URI         string    `json:"uri"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash"`
	WrittenAt   time.Time `json:"written_at"`
}

// Summary describes a finished run. It is the payload of the build
// notification.
type Summary struct {
	RunID        string        `json:"run_id"`
	RootID       string        `json:"root_id"`
	Pages        int           `json:"pages"`
	Links        int           `json:"links"`
	Images       int           `json:"images"`
	ImagesReused int           `json:"images_reused"`
	ImagesFailed int           `json:"images_failed"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Duration     time.Duration `json:"duration_ns"`
}
