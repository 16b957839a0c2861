package opener

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gold_debts/internal/ports"
)

// FileOpener reads from the local filesystem. When Root is set, paths are
// resolved inside it and may not escape it.
type FileOpener struct {
	Root string
}

func NewFileOpener(root string) *FileOpener { return &FileOpener{Root: root} }

func (f *FileOpener) Open(ctx context.Context, name string) (io.ReadCloser, ports.Meta, error) {
	if err := ctx.Err(); err != nil {
		return nil, ports.Meta{}, err
	}
	p, err := f.resolve(name)
	if err != nil {
		return nil, ports.Meta{}, err
	}
	fh, err := os.Open(p)
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("open local file: %w", err)
	}
	st, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, ports.Meta{}, fmt.Errorf("stat local file: %w", err)
	}
	if st.IsDir() {
		fh.Close()
		return nil, ports.Meta{}, fmt.Errorf("%s is a directory", name)
	}
	return fh, ports.Meta{
		Source:      "file",
		ContentType: mime.TypeByExtension(filepath.Ext(p)),
		Size:        st.Size(),
		Key:         p,
	}, nil
}

func (f *FileOpener) resolve(name string) (string, error) {
	if f.Root == "" {
		return filepath.Clean(name), nil
	}
	p := filepath.Join(f.Root, filepath.Clean("/"+name))
	rel, err := filepath.Rel(f.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", name, f.Root)
	}
	return p, nil
}
