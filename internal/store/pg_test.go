package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when GM_TEST_DSN is set.
func TestPGStore(t *testing.T) {
	dsn := os.Getenv("GM_TEST_DSN")
	if dsn == "" {
		t.Skip("GM_TEST_DSN not set")
	}
	ctx := context.Background()

	mig, err := NewMigrator(dsn)
	require.NoError(t, err)
	if err := mig.Up(ctx); err != nil && err != ErrNoChange {
		t.Fatalf("migrate up: %v", err)
	}

	db, err := OpenDB(ctx, dsn)
	require.NoError(t, err)
	s := NewPGStore(db)
	defer s.Close()
	require.NoError(t, db.Gorm().Exec(`DELETE FROM documents`).Error)

	_, err = s.Read(ctx, DocStatuses)
	assert.ErrorIs(t, err, ErrNotFound)

	body := []byte("{\n  \"agents\": []\n}")
	require.NoError(t, s.Write(ctx, DocStatuses, body))
	got, err := s.Read(ctx, DocStatuses)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	require.NoError(t, s.Write(ctx, DocItems, []byte("0")))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Update(ctx, DocItems, func(cur []byte) ([]byte, error) {
				return append(cur, '+'), nil
			}))
		}()
	}
	wg.Wait()
	got, err = s.Read(ctx, DocItems)
	require.NoError(t, err)
	assert.Equal(t, "0++++++++++", string(got))
}

func TestNewMigratorRequiresDSN(t *testing.T) {
	_, err := NewMigrator("")
	assert.Error(t, err)
	_, err = OpenDB(context.Background(), "")
	assert.Error(t, err)
}
