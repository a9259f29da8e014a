package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
)

// Source opens a named transaction file.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileSource reads files from a directory. A missing name.csv falls back to
// a zstd-compressed name.csv.zst next to it.
type FileSource struct {
	Dir string
}

// Open implements Source.
func (s FileSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path := filepath.Join(s.Dir, name)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) && !strings.HasSuffix(path, ".zst") {
		path += ".zst"
		f, err = os.Open(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, filepath.Join(s.Dir, name))
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".zst") {
		return NewZstdReadCloser(f)
	}
	return f, nil
}

// NewZstdReadCloser decompresses rc; closing the result closes rc as well.
func NewZstdReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return &zstdReadCloser{dec: dec, under: rc}, nil
}

type zstdReadCloser struct {
	dec   *zstd.Decoder
	under io.Closer
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.under.Close()
}

// Load opens name from src and parses it.
func Load(ctx context.Context, src Source, name string, opts ReadOptions) (*Table, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	t, err := Read(rc, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}
