package ports

import (
	"context"
	"io"
)

// Meta describes where an opened file came from. Bucket and Key are set for
// s3 sources; Key holds the resolved path for local files.
type Meta struct {
	Source      string
	ContentType string
	Size        int64
	Bucket      string
	Key         string
}

// FileOpener resolves a path or URL to a readable stream. Callers close it.
type FileOpener interface {
	Open(ctx context.Context, filePath string) (io.ReadCloser, Meta, error)
}

type FileOpenerFunc func(ctx context.Context, filePath string) (io.ReadCloser, Meta, error)

func (f FileOpenerFunc) Open(ctx context.Context, filePath string) (io.ReadCloser, Meta, error) {
	return f(ctx, filePath)
}
