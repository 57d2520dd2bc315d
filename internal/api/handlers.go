package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/DaanHessen/agency-gm/internal/store"
)

const (
	msgBodyRequired = "Request body is required"
	msgInvalidJSON  = "Invalid JSON"
)

type okBody struct {
	OK bool `json:"ok"`
}

func (s *Server) getStatuses(w http.ResponseWriter, r *http.Request) {
	b, err := s.Statuses.Raw(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (s *Server) putStatuses(w http.ResponseWriter, r *http.Request) {
	b, blank, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if blank {
		writeError(w, http.StatusBadRequest, msgBodyRequired)
		return
	}
	v, err := decodeAny(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if !conforms(objectSchema, v) {
		writeError(w, http.StatusBadRequest, "Invalid JSON structure")
		return
	}
	if err := s.Statuses.PutRaw(r.Context(), b); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Hub.Announce(store.DocStatuses)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) getReference(w http.ResponseWriter, r *http.Request) {
	b, err := s.Reference.Raw(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, engine.ArcReference{
			Anomalies:    []engine.AnomalyRef{},
			Realities:    []engine.RealityRef{},
			Competencies: []engine.CompetencyRef{},
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (s *Server) getItems(w http.ResponseWriter, r *http.Request) {
	b, err := s.Items.Raw(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, engine.ItemCatalog{Items: []engine.CatalogItem{}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

type itemCreated struct {
	OK   bool               `json:"ok"`
	Item engine.CatalogItem `json:"item"`
}

func (s *Server) postItem(w http.ResponseWriter, r *http.Request) {
	b, blank, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if blank {
		writeError(w, http.StatusBadRequest, msgBodyRequired)
		return
	}
	v, err := decodeAny(b)
	if err != nil || !conforms(itemSchema, v) {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	fields := v.(map[string]any)
	name, _ := fields["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	desc, _ := fields["description"].(string)
	price := engine.Int(itemPrice(fields["price"]))
	it := engine.CatalogItem{
		ID:          name,
		Name:        name,
		Price:       &price,
		Description: strings.TrimSpace(desc),
	}
	if err := s.Items.Append(r.Context(), it); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Hub.Announce(store.DocItems)
	writeJSON(w, http.StatusOK, itemCreated{OK: true, Item: it})
}

// itemPrice takes numbers as they are (truncated) and strings by their leading integer.
func itemPrice(v any) int {
	switch p := v.(type) {
	case json.Number:
		if n, err := p.Int64(); err == nil {
			return int(n)
		}
		if f, err := p.Float64(); err == nil {
			return int(f)
		}
	case string:
		return engine.ParseInt(p)
	}
	return 0
}

func (s *Server) getMissions(w http.ResponseWriter, r *http.Request) {
	b, err := s.Missions.Raw(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, struct {
			Missions []engine.Mission `json:"missions"`
		}{[]engine.Mission{}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

type missionCreated struct {
	OK      bool           `json:"ok"`
	Mission engine.Mission `json:"mission"`
}

func (s *Server) postMission(w http.ResponseWriter, r *http.Request) {
	b, blank, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if blank {
		writeError(w, http.StatusBadRequest, msgBodyRequired)
		return
	}
	v, err := decodeAny(b)
	if err != nil || !conforms(objectSchema, v) {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	var d engine.MissionDraft
	if err := json.Unmarshal(b, &d); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	m, err := s.Missions.Create(r.Context(), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Hub.Announce(store.DocMissions)
	writeJSON(w, http.StatusOK, missionCreated{OK: true, Mission: m})
}

func (s *Server) putMissions(w http.ResponseWriter, r *http.Request) {
	b, blank, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var doc struct {
		Missions []json.RawMessage `json:"missions"`
	}
	if !blank {
		v, err := decodeAny(b)
		if err != nil || !conforms(missionsSchema, v) {
			writeError(w, http.StatusBadRequest, "Body must be { missions: array }")
			return
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidJSON)
			return
		}
	}
	if err := s.Missions.ReplaceAll(r.Context(), doc.Missions); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Hub.Announce(store.DocMissions)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) getMail(w http.ResponseWriter, r *http.Request) {
	b, err := s.Mail.Raw(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, engine.InMail{})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, b)
}

func (s *Server) putMail(w http.ResponseWriter, r *http.Request) {
	b, blank, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var email json.RawMessage
	if !blank {
		v, err := decodeAny(b)
		if err != nil || !conforms(objectSchema, v) {
			writeError(w, http.StatusBadRequest, msgInvalidJSON)
			return
		}
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(b, &doc); err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidJSON)
			return
		}
		email = doc["email"]
	}
	if err := s.Mail.Put(r.Context(), email); err != nil {
		s.fail(w, r, err)
		return
	}
	s.Hub.Announce(store.DocInMail)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.Notes.List()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Notes []store.Note `json:"notes"`
	}{notes})
}

const notesPrefix = "/api/mission-notes/"

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	// The escaped path keeps %2F and %25 intact for the notes store to decode once.
	slug := strings.TrimSuffix(strings.TrimPrefix(r.URL.EscapedPath(), notesPrefix), "/")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "Missing filename")
		return
	}
	body, err := s.Notes.Read(slug)
	switch {
	case errors.Is(err, store.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Mission note not found")
		return
	case err != nil:
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
