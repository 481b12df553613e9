package assets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// ErrNotDataURI is returned when a source does not use the data: scheme.
var ErrNotDataURI = errors.New("not a data URI")

// DataURI is a decoded data: URI.
type DataURI struct {
	MediaType string
	Data      []byte
}

// IsDataURI reports whether src uses the data: scheme.
func IsDataURI(src string) bool {
	return len(src) >= 5 && strings.EqualFold(src[:5], "data:")
}

// ParseDataURI decodes data:[<mediatype>][;base64],<payload>. The scheme,
// media type and encoding are matched case-insensitively, and whitespace in a
// base64 payload is ignored.
func ParseDataURI(src string) (DataURI, error) {
	if !IsDataURI(src) {
		return DataURI{}, ErrNotDataURI
	}
	du, err := dataurl.DecodeString(normalizeDataURI(src))
	if err != nil {
		return DataURI{}, fmt.Errorf("decode data URI: %w", err)
	}
	return DataURI{
		MediaType: strings.ToLower(du.MediaType.ContentType()),
		Data:      du.Data,
	}, nil
}

// normalizeDataURI lowercases the header, which dataurl matches
// case-sensitively, and drops whitespace that HTML attributes may carry
// inside a base64 payload.
func normalizeDataURI(src string) string {
	header, payload, ok := strings.Cut(src, ",")
	if !ok {
		return src
	}
	header = strings.ToLower(header)
	if strings.HasSuffix(header, ";base64") {
		payload = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\n', '\r', '\f':
				return -1
			}
			return r
		}, payload)
	}
	return header + "," + payload
}
