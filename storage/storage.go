// Package storage keeps generated audio and images in a blob store and hands
// out public URLs for them.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// BlobStore uploads and releases binary objects. A ref is the store-specific
// key returned by Upload and later passed back to URL and Delete.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, objectPath, contentType string) (string, error)
	URL(ref string) string
	Delete(ctx context.Context, ref string) error
}

// ObjectPath builds "<folder>/<slug>-<uuid><ext>" so names stay readable and
// never collide.
func ObjectPath(folder, title, ext string) string {
	name := slug.Make(title)
	if name == "" {
		name = "file"
	}
	if len(name) > 60 {
		name = strings.Trim(name[:60], "-")
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s-%s%s", folder, name, uuid.New().String(), ext)
}

// ContentTypeFor guesses the MIME type from a file extension.
func ContentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
