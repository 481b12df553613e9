package assets

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// fallbackExt is used when neither the media type nor the URL names a known type.
const fallbackExt = ".bin"

var extByMediaType = map[string]string{
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/jpg":                ".jpg",
	"image/pjpeg":              ".jpg",
	"image/gif":                ".gif",
	"image/webp":               ".webp",
	"image/svg+xml":            ".svg",
	"image/avif":               ".avif",
	"image/bmp":                ".bmp",
	"image/tiff":               ".tiff",
	"image/x-icon":             ".ico",
	"image/vnd.microsoft.icon": ".ico",
}

var mediaTypeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".avif": "image/avif",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".ico":  "image/x-icon",
}

// extForMediaType maps a media type (parameters allowed) to a file extension.
// It returns "" for unknown types.
func extForMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return extByMediaType[strings.ToLower(mt)]
}

// extForURL returns the known image extension of the URL path, or "".
func extForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == ".jpeg" {
		return ".jpg"
	}
	if ext == ".tif" {
		return ".tiff"
	}
	if _, ok := mediaTypeByExt[ext]; ok {
		return ext
	}
	return ""
}

// contentTypeForExt is the inverse used when storing objects.
func contentTypeForExt(ext string) string {
	if mt, ok := mediaTypeByExt[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}
