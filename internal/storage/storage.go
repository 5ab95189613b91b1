package storage

import (
	"context"
	"io"
)

// Storage writes uploaded files and hands back a public URL.
type Storage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
}
