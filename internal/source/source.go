// Package source lists and reads transcript documents from a local
// directory, a MinIO/S3 bucket or a Google Drive folder.
package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrUnsupported is returned when a document's format cannot be read.
var ErrUnsupported = errors.New("unsupported document type")

// Document is one transcript file in a source.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type,omitempty"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size,omitempty"`
}

// SessionDate is the document's modification day, YYYY-MM-DD.
func (d Document) SessionDate() string {
	if d.ModifiedAt.IsZero() {
		return ""
	}
	return d.ModifiedAt.UTC().Format("2006-01-02")
}

type Source interface {
	Name() string
	List(ctx context.Context) ([]Document, error)
	Read(ctx context.Context, doc Document) (string, error)
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".docx": true,
}

// Supported reports whether a file name has a readable extension.
func Supported(name string) bool {
	return textExtensions[strings.ToLower(path.Ext(name))]
}

// decode turns raw file bytes into transcript text based on the name.
func decode(name string, data []byte) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".txt", ".md":
		return string(data), nil
	case ".docx":
		return DocxText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}
