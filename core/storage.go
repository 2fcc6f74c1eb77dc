package core

import (
	"context"
	"io"
)

// FileStorage stores uploaded files and returns the URL they are served from.
type FileStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, url string) error
}
