package store

import (
	"context"
	errs "errors"
	"fmt"

	"github.com/DaanHessen/agency-gm/internal/util"
	"github.com/pkg/errors"
)

var (
	ErrNoChange    = errs.New("no change")
	ErrNotFound    = errs.New("not found")
	ErrInvalidName = errs.New("invalid name")
	ErrForbidden   = errs.New("forbidden")
)

// Doc names one JSON document. Each is read and written wholesale.
type Doc string

const (
	DocStatuses     Doc = "statuses"
	DocArcReference Doc = "arc-reference"
	DocItems        Doc = "items"
	DocMissions     Doc = "missions"
	DocInMail       Doc = "in-mail"
)

var Docs = []Doc{DocStatuses, DocArcReference, DocItems, DocMissions, DocInMail}

var docFiles = map[Doc]string{
	DocStatuses:     "statuses.json",
	DocArcReference: "arc-reference.json",
	DocItems:        "items.json",
	DocMissions:     "mission.json",
	DocInMail:       "inMail.json",
}

// Filename is the file the document lives in under the data directory.
func (d Doc) Filename() string { return docFiles[d] }

// DocForFile maps a data-directory file name back to its document.
func DocForFile(name string) (Doc, bool) {
	for d, f := range docFiles {
		if f == name {
			return d, true
		}
	}
	return "", false
}

// UpdateFunc receives the current body (nil when the document is absent) and returns
// the body to store.
type UpdateFunc func(current []byte) ([]byte, error)

// Backend persists documents. Read returns ErrNotFound for absent documents.
// Update runs a read-modify-write that no other Update or Write interleaves with.
type Backend interface {
	Read(ctx context.Context, doc Doc) ([]byte, error)
	Write(ctx context.Context, doc Doc, body []byte) error
	Update(ctx context.Context, doc Doc, fn UpdateFunc) error
	Close() error
}

// Open returns the backend the configuration selects.
func Open(ctx context.Context, cfg util.Config) (Backend, error) {
	switch cfg.Backend {
	case util.BackendFile, "":
		return NewFileStore(cfg.DataDir), nil
	case util.BackendPostgres:
		db, err := OpenDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewPGStore(db), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}
