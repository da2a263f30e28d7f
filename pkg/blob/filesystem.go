package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sonarhq/sonar/pkg/sonar"
)

// Filesystem stores blobs as files under a root directory, one file
// per key at root/<key> with parent directories created on write.
type Filesystem struct {
	root string
}

// NewFilesystem returns a Filesystem rooted at root. The directory is
// created if needed.
func NewFilesystem(root string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %q: %w", root, err)
	}
	return &Filesystem{root: root}, nil
}

func (f *Filesystem) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}

func (f *Filesystem) Get(ctx context.Context, key string, rng sonar.ByteRange) ([]byte, error) {
	rc, err := f.Read(ctx, key, rng)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (f *Filesystem) Read(_ context.Context, key string, rng sonar.ByteRange) (io.ReadCloser, error) {
	file, err := os.Open(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errKeyNotFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("open blob %q: %w", key, err)
	}
	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat blob %q: %w", key, err)
	}
	offset, length := rng.Clamp(fi.Size())
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek blob %q: %w", key, err)
	}
	return &limitedReadCloser{r: io.LimitReader(file, length), c: file}, nil
}

func (f *Filesystem) Put(ctx context.Context, key string, data []byte) error {
	return f.write(key, func(dst *os.File) error {
		_, err := dst.Write(data)
		return err
	})
}

func (f *Filesystem) Write(_ context.Context, key string, r io.Reader) error {
	return f.write(key, func(dst *os.File) error {
		// Streaming copy — multi-GB audio must not buffer.
		_, err := io.Copy(dst, r)
		return err
	})
}

func (f *Filesystem) write(key string, fill func(*os.File) error) error {
	dest := f.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir for blob %q: %w", key, err)
	}
	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create blob %q: %w", key, err)
	}
	if err := fill(file); err != nil {
		file.Close()
		os.Remove(dest)
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	return file.Close()
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }
