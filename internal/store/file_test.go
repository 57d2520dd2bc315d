package store

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreReadWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s := NewFileStore(dir)

	_, err := s.Read(ctx, DocStatuses)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Write(ctx, DocMissions, []byte(`{"missions": []}`)))
	b, err := os.ReadFile(filepath.Join(dir, "mission.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"missions": []}`, string(b))

	got, err := s.Read(ctx, DocMissions)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStoreUpdateSerializes(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Write(ctx, DocItems, []byte("0")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(ctx, DocItems, func(cur []byte) ([]byte, error) {
				n, err := strconv.Atoi(string(cur))
				if err != nil {
					return nil, err
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := s.Read(ctx, DocItems)
	require.NoError(t, err)
	assert.Equal(t, "20", string(b))
}

func TestFileStoreUpdateAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	var seen []byte = []byte("sentinel")
	require.NoError(t, s.Update(ctx, DocInMail, func(cur []byte) ([]byte, error) {
		seen = cur
		return []byte(`{"email": null}`), nil
	}))
	assert.Nil(t, seen)
}

func TestDocFiles(t *testing.T) {
	for _, d := range Docs {
		got, ok := DocForFile(d.Filename())
		require.True(t, ok, d)
		assert.Equal(t, d, got)
	}
	_, ok := DocForFile("other.json")
	assert.False(t, ok)
	assert.Equal(t, "inMail.json", DocInMail.Filename())
}
