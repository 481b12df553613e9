// Package google reads documents from the Google Docs API and file metadata
// from the Google Drive API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/docsite/internal/document"
)

// ErrNotFound is returned when the Docs API reports an unknown document.
var ErrNotFound = errors.New("document not found")

// Scopes requested for the service account.
var Scopes = []string{
	docs.DocumentsReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// Source fetches documents and their creation times.
type Source struct {
	docs   *docs.Service
	drive  *drive.Service
	logger *zap.Logger
}

// NewFromServiceAccount authenticates with a service account key and builds a Source.
func NewFromServiceAccount(ctx context.Context, key []byte, userAgent string, logger *zap.Logger) (*Source, error) {
	jwt, err := google.JWTConfigFromJSON(key, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	opts := []option.ClientOption{option.WithTokenSource(jwt.TokenSource(ctx))}
	if userAgent != "" {
		opts = append(opts, option.WithUserAgent(userAgent))
	}
	return New(ctx, logger, opts...)
}

// New builds a Source from explicit client options.
func New(ctx context.Context, logger *zap.Logger, opts ...option.ClientOption) (*Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	docsSvc, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create docs service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Source{docs: docsSvc, drive: driveSvc, logger: logger}, nil
}

// FetchDocument returns the structured content of document id.
func (s *Source) FetchDocument(ctx context.Context, id string) (*document.Document, error) {
	raw, err := s.docs.Documents.Get(id).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("fetch document %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch document %s: %w", id, err)
	}
	doc, err := fromAPI(raw)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}

// CreatedTime returns the Drive creation time of file id. ok is false when
// Drive answers with an error status or the timestamp is missing or
// malformed; transport failures are returned as errors.
func (s *Source) CreatedTime(ctx context.Context, id string) (time.Time, bool, error) {
	file, err := s.drive.Files.Get(id).
		Fields("createdTime").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			s.logger.Debug("drive metadata unavailable",
				zap.String("document_id", id),
				zap.Int("status", apiErr.Code))
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("fetch metadata %s: %w", id, err)
	}
	if file.CreatedTime == "" {
		return time.Time{}, false, nil
	}
	created, err := time.Parse(time.RFC3339, file.CreatedTime)
	if err != nil {
		s.logger.Debug("unparseable createdTime",
			zap.String("document_id", id),
			zap.String("created_time", file.CreatedTime))
		return time.Time{}, false, nil
	}
	return created, true, nil
}

// fromAPI re-decodes the generated API type into the narrower document
// model; both follow the Docs API wire names.
func fromAPI(raw *docs.Document) (*document.Document, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal api document: %w", err)
	}
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}
