// Package storage is the file boundary used for form uploads.
package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("file not found")

// FileInfo is what the store knows about an uploaded file.
type FileInfo struct {
	ID       string
	Name     string
	Size     int64
	MimeType string
}

// FileStore resolves upload references and controls their visibility.
type FileStore interface {
	Stat(ctx context.Context, ref string) (FileInfo, error)
	SetPublic(ctx context.Context, id string) error
}
