package store

import (
	"context"
	errs "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps each document as a file in one directory. Writes go through a
// temp file and a rename so readers never see a partial document.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(doc Doc) string { return filepath.Join(s.dir, doc.Filename()) }

func (s *FileStore) Read(ctx context.Context, doc Doc) ([]byte, error) {
	b, err := os.ReadFile(s.path(doc))
	if errs.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, wrap(err, "read "+doc.Filename())
}

func (s *FileStore) Write(ctx context.Context, doc Doc, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc, body)
}

func (s *FileStore) Update(ctx context.Context, doc Doc, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.Read(ctx, doc)
	if err != nil && !errs.Is(err, ErrNotFound) {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	return s.write(doc, next)
}

func (s *FileStore) write(doc Doc, body []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return wrap(err, "create data dir")
	}
	tmp, err := os.CreateTemp(s.dir, "."+doc.Filename()+".*")
	if err != nil {
		return wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return wrap(err, "write "+doc.Filename())
	}
	if err := tmp.Close(); err != nil {
		return wrap(err, "close "+doc.Filename())
	}
	return wrap(os.Rename(tmp.Name(), s.path(doc)), "replace "+doc.Filename())
}

func (s *FileStore) Close() error { return nil }
