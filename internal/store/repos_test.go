package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusesPutRawPrettyPrints(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewStatusesRepo(NewFileStore(dir))

	require.NoError(t, repo.PutRaw(ctx, []byte(`{"b":1,"a":{"x":[1,2]},"agents":[]}`)))
	b, err := os.ReadFile(filepath.Join(dir, "statuses.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": {\n    \"x\": [\n      1,\n      2\n    ]\n  },\n  \"agents\": []\n}", string(b))

	assert.Error(t, repo.PutRaw(ctx, []byte(`{broken`)))
}

func TestStatusesLoadSave(t *testing.T) {
	ctx := context.Background()
	repo := NewStatusesRepo(NewFileStore(t.TempDir()))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	c := engine.DefaultCampaign()
	c.Agency.Chaos = 4
	written, err := repo.Save(ctx, c)
	require.NoError(t, err)

	raw, err := repo.Raw(ctx)
	require.NoError(t, err)
	assert.Equal(t, written, raw)
	assert.Contains(t, string(raw), "\n  \"agency\": {\n    \"混沌值\": 4,")

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Int(4), got.Agency.Chaos)
}

func TestItemsAppend(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	repo := NewItemsRepo(s)

	cat, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, cat.Items)

	require.NoError(t, s.Write(ctx, DocItems, []byte(`{"items": [{"name": "Old", "custom": true}], "version": 2}`)))
	price := engine.Int(3)
	require.NoError(t, repo.Append(ctx, engine.CatalogItem{ID: "Lamp", Name: "Lamp", Price: &price, Description: "<bright>"}))

	raw, err := repo.Raw(ctx)
	require.NoError(t, err)
	var doc struct {
		Items   []map[string]any `json:"items"`
		Version int              `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Items, 2)
	assert.Equal(t, true, doc.Items[0]["custom"])
	assert.Equal(t, "Lamp", doc.Items[1]["id"])
	assert.EqualValues(t, 3, doc.Items[1]["price"])
	assert.Equal(t, 2, doc.Version)
	assert.Contains(t, string(raw), "<bright>")
}

func TestItemsAppendResetsUnreadableDocument(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir())
	require.NoError(t, s.Write(ctx, DocItems, []byte(`not json`)))
	repo := NewItemsRepo(s)
	require.NoError(t, repo.Append(ctx, engine.CatalogItem{ID: "A", Name: "A"}))

	cat, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cat.Items, 1)
	assert.Equal(t, "A", cat.Items[0].Name)
}

func TestMissionsCreatePrepends(t *testing.T) {
	ctx := context.Background()
	repo := NewMissionsRepo(NewFileStore(t.TempDir()))
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	first, err := repo.Create(ctx, engine.MissionDraft{Codename: "一"})
	require.NoError(t, err)
	clock = clock.Add(time.Second)
	second, err := repo.Create(ctx, engine.MissionDraft{Codename: "二"})
	require.NoError(t, err)

	assert.Regexp(t, `^mission-\d+$`, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "2026-05-01", second.Date)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, engine.Text("二"), list[0].Codename)
	assert.Equal(t, engine.Text("一"), list[1].Codename)
}

func TestMissionsReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := NewMissionsRepo(NewFileStore(t.TempDir()))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.ReplaceAll(ctx, []json.RawMessage{json.RawMessage(`{"id":"m1","代号":"x","extra":1}`)}))
	raw, err := repo.Raw(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"extra": 1`)

	require.NoError(t, repo.ReplaceAll(ctx, nil))
	raw, err = repo.Raw(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"missions": []}`, string(raw))
}

func TestMailPut(t *testing.T) {
	ctx := context.Background()
	repo := NewMailRepo(NewFileStore(t.TempDir()))

	m, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, m.Email)

	require.NoError(t, repo.Put(ctx, json.RawMessage(`{"title":"T","content":"C"}`)))
	m, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, m.Email)
	assert.Equal(t, "T", m.Email.Title)

	require.NoError(t, repo.Put(ctx, nil))
	raw, err := repo.Raw(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email": null}`, string(raw))
}

func TestMailSendTrims(t *testing.T) {
	ctx := context.Background()
	repo := NewMailRepo(NewFileStore(t.TempDir()))

	require.NoError(t, repo.Send(ctx, &engine.Email{Title: "  紧急 ", Content: "\n速归\n"}))
	raw, err := repo.Raw(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email": {"title": "紧急", "content": "速归"}}`, string(raw))

	require.NoError(t, repo.Send(ctx, nil))
	m, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, m.Email)
}

func TestReferenceLoadAbsent(t *testing.T) {
	ref, err := NewReferenceRepo(NewFileStore(t.TempDir())).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ref.Anomalies)
}
