package store

import (
	"context"
	"database/sql"
	errs "errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps gorm.DB for the Postgres backend and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error   { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// OpenDB connects to Postgres.
func OpenDB(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// PGStore keeps documents as rows of the documents table. Bodies are stored as text,
// byte for byte.
type PGStore struct {
	db *DB
}

func NewPGStore(db *DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) Read(ctx context.Context, doc Doc) ([]byte, error) {
	return readBody(s.db.gorm.WithContext(ctx), doc, false)
}

func (s *PGStore) Write(ctx context.Context, doc Doc, body []byte) error {
	return upsert(s.db.gorm.WithContext(ctx), doc, body)
}

// Update locks the row for the duration of fn.
func (s *PGStore) Update(ctx context.Context, doc Doc, fn UpdateFunc) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		cur, err := readBody(tx, doc, true)
		if err != nil && !errs.Is(err, ErrNotFound) {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		return upsert(tx, doc, next)
	})
}

func (s *PGStore) Close() error { return s.db.Close() }

func readBody(tx *gorm.DB, doc Doc, lock bool) ([]byte, error) {
	q := `SELECT body FROM documents WHERE name = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	var body string
	err := tx.Raw(q, string(doc)).Row().Scan(&body)
	if errs.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap(err, "select "+string(doc))
	}
	return []byte(body), nil
}

func upsert(tx *gorm.DB, doc Doc, body []byte) error {
	err := tx.Exec(`INSERT INTO documents(name, body, updated_at) VALUES (?, ?, now())
	ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`, string(doc), string(body)).Error
	return wrap(err, "upsert "+string(doc))
}
