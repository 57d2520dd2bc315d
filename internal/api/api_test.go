package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	srv      *Server
	h        http.Handler
	data     *store.FileStore
	notesDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	data := store.NewFileStore(t.TempDir())
	notesDir := filepath.Join(t.TempDir(), "missionNotes")
	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "index.html"), []byte("<h1>gm</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "app.js"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(public, "font.woff"), []byte("x"), 0o644))

	srv := New(data, store.NewNotes(notesDir), public, zap.NewNop())
	return &fixture{srv: srv, h: srv.Routes(), data: data, notesDir: notesDir}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) file(t *testing.T, doc store.Doc) string {
	t.Helper()
	b, err := f.data.Read(context.Background(), doc)
	require.NoError(t, err)
	return string(b)
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestStatusesRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/statuses", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/statuses", `{"agency":{"chaos":3},"agents":[],"x":"<b>"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "{\n  \"agency\": {\n    \"chaos\": 3\n  },\n  \"agents\": [],\n  \"x\": \"<b>\"\n}",
		f.file(t, store.DocStatuses))

	rec = f.do(t, http.MethodGet, "/api/statuses/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"agency":{"chaos":3},"agents":[],"x":"<b>"}`, rec.Body.String())
}

func TestPutStatusesRejects(t *testing.T) {
	f := newFixture(t)
	for body, want := range map[string]string{
		"":        msgBodyRequired,
		"   ":     msgBodyRequired,
		"[1,2]":   "Invalid JSON structure",
		`"text"`:  "Invalid JSON structure",
		"{broken": msgInvalidJSON,
	} {
		rec := f.do(t, http.MethodPut, "/api/statuses", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, want, errorOf(t, rec), body)
	}
	_, err := f.data.Read(context.Background(), store.DocStatuses)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReadOnlyDefaults(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"/api/arc-reference": `{"异常":[],"现实":[],"职能":[]}`,
		"/api/items":         `{"items":[]}`,
		"/api/missions":      `{"missions":[]}`,
		"/api/in-mail":       `{"email":null}`,
		"/api/mission-notes": `{"notes":[]}`,
	}
	for path, want := range cases {
		rec := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, want, rec.Body.String(), path)
	}
}

func TestPostItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.data.Write(context.Background(), store.DocItems,
		[]byte(`{"version":2,"items":[{"name":"旧物","extra":true}]}`)))

	rec := f.do(t, http.MethodPost, "/api/items", `{"name":"  雨伞 ","price":"12元","description":" 黑色 "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"item":{"id":"雨伞","name":"雨伞","price":12,"description":"黑色"}}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/items", `{"name":"钢笔","price":7.9}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Version int               `json:"version"`
		Items   []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.file(t, store.DocItems)), &doc))
	assert.Equal(t, 2, doc.Version)
	require.Len(t, doc.Items, 3)
	assert.JSONEq(t, `{"name":"旧物","extra":true}`, string(doc.Items[0]))
	assert.JSONEq(t, `{"id":"钢笔","name":"钢笔","price":7,"description":""}`, string(doc.Items[2]))
}

func TestPostItemRejects(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/items", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgBodyRequired, errorOf(t, rec))

	rec = f.do(t, http.MethodPost, "/api/items", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required", errorOf(t, rec))
}

func TestPostItemResetsUnreadableCatalog(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.data.Write(context.Background(), store.DocItems, []byte(`not json`)))

	rec := f.do(t, http.MethodPost, "/api/items", `{"name":"pen"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":"pen","name":"pen","price":0,"description":""}]}`, f.file(t, store.DocItems))
}

func TestMissions(t *testing.T) {
	f := newFixture(t)
	f.srv.Missions = store.NewMissionsRepoAt(f.data, func() time.Time {
		return time.Date(2026, 3, 5, 4, 30, 0, 0, time.UTC)
	})

	rec := f.do(t, http.MethodPost, "/api/missions", `{"代号":"灰烬","参与者":2,"MVP":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var created missionCreated
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.OK)
	assert.True(t, strings.HasPrefix(created.Mission.ID, "mission-"))
	assert.Equal(t, "2026-03-05", created.Mission.Date)
	assert.EqualValues(t, "灰烬", created.Mission.Codename)
	assert.EqualValues(t, "2", created.Mission.Participants)
	assert.EqualValues(t, "", created.Mission.MVP)

	rec = f.do(t, http.MethodPost, "/api/missions", `{"代号":"第二"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/missions", "")
	var list struct {
		Missions []struct {
			Codename string `json:"代号"`
		} `json:"missions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Missions, 2)
	assert.Equal(t, "第二", list.Missions[0].Codename)

	rec = f.do(t, http.MethodPost, "/api/missions", "[]")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/missions", "")
	assert.Equal(t, msgBodyRequired, errorOf(t, rec))
}

func TestPutMissions(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/missions", `{"missions":[{"id":"m1","free":"form"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"missions":[{"id":"m1","free":"form"}]}`, f.file(t, store.DocMissions))

	for _, body := range []string{`{"missions":{}}`, `[]`, `{"other":[]}`} {
		rec = f.do(t, http.MethodPut, "/api/missions", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Body must be { missions: array }", errorOf(t, rec), body)
	}

	rec = f.do(t, http.MethodPut, "/api/missions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"missions":[]}`, f.file(t, store.DocMissions))
}

func TestInMail(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/in-mail", `{"email":{"title":"召回","content":"速归"},"junk":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":{"title":"召回","content":"速归"}}`, f.file(t, store.DocInMail))

	rec = f.do(t, http.MethodPut, "/api/in-mail", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":null}`, f.file(t, store.DocInMail))

	rec = f.do(t, http.MethodPut, "/api/in-mail", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":null}`, f.file(t, store.DocInMail))

	rec = f.do(t, http.MethodPut, "/api/in-mail", `"hi"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidJSON, errorOf(t, rec))
}

func TestMissionNotes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.notesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.notesDir, "第一 夜.md"), []byte("# 开场"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.notesDir, "skip.txt"), []byte("x"), 0o644))

	rec := f.do(t, http.MethodGet, "/api/mission-notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Notes []store.Note `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Notes, 1)
	assert.Equal(t, "第一 夜", list.Notes[0].Name)

	rec = f.do(t, http.MethodGet, "/api/mission-notes/"+list.Notes[0].Slug, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "# 开场", rec.Body.String())

	cases := map[string]struct {
		code int
		msg  string
	}{
		"/api/mission-notes/%2E%2E":             {http.StatusBadRequest, "Invalid filename"},
		"/api/mission-notes/a%2Fb":              {http.StatusBadRequest, "Invalid filename"},
		"/api/mission-notes/..%5Csecret":        {http.StatusBadRequest, "Invalid filename"},
		"/api/mission-notes/%E4%B8%8D%E5%9C%A8": {http.StatusNotFound, "Mission note not found"},
	}
	for target, want := range cases {
		rec := f.do(t, http.MethodGet, target, "")
		assert.Equal(t, want.code, rec.Code, target)
		assert.Equal(t, want.msg, errorOf(t, rec), target)
	}
}

func TestAPIEnvelope(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, "/api/statuses", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	rec = f.do(t, http.MethodGet, "/api/nope/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "API not found: /api/nope", errorOf(t, rec))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(t, http.MethodDelete, "/api/statuses", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "API not found: /api/statuses", errorOf(t, rec))

	rec = f.do(t, http.MethodGet, "/api/items", "")
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStatic(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<h1>gm</h1>", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, "application/javascript", rec.Header().Get("Content-Type"))

	rec = f.do(t, http.MethodGet, "/font.woff", "")
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))

	rec = f.do(t, http.MethodGet, "/missing.css", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Forbidden", rec.Body.String())
}
