package store

import (
	"bytes"
	"context"
	"encoding/json"
	errs "errors"
	"strings"
	"time"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/pkg/errors"
)

// encode renders v the way documents are stored: 2-space indent, no HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func raw(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Pretty re-indents a JSON body with 2 spaces, keeping member order.
func Pretty(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusesRepo reads and writes the campaign document.
type StatusesRepo struct{ b Backend }

func NewStatusesRepo(b Backend) *StatusesRepo { return &StatusesRepo{b: b} }

func (r *StatusesRepo) Raw(ctx context.Context) ([]byte, error) {
	return r.b.Read(ctx, DocStatuses)
}

// PutRaw stores a client-supplied body pretty-printed.
func (r *StatusesRepo) PutRaw(ctx context.Context, body []byte) error {
	out, err := Pretty(body)
	if err != nil {
		return errors.Wrap(err, "indent statuses")
	}
	return r.b.Write(ctx, DocStatuses, out)
}

func (r *StatusesRepo) Load(ctx context.Context) (engine.Campaign, error) {
	b, err := r.Raw(ctx)
	if err != nil {
		return engine.Campaign{}, err
	}
	var c engine.Campaign
	if err := json.Unmarshal(b, &c); err != nil {
		return engine.Campaign{}, errors.Wrap(err, "decode statuses")
	}
	return c, nil
}

// Save writes the campaign and returns the stored body.
func (r *StatusesRepo) Save(ctx context.Context, c engine.Campaign) ([]byte, error) {
	b, err := encode(c)
	if err != nil {
		return nil, errors.Wrap(err, "encode statuses")
	}
	if err := r.b.Write(ctx, DocStatuses, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReferenceRepo reads the arc catalog.
type ReferenceRepo struct{ b Backend }

func NewReferenceRepo(b Backend) *ReferenceRepo { return &ReferenceRepo{b: b} }

func (r *ReferenceRepo) Raw(ctx context.Context) ([]byte, error) {
	return r.b.Read(ctx, DocArcReference)
}

// Load returns an empty catalog when the document is absent.
func (r *ReferenceRepo) Load(ctx context.Context) (engine.ArcReference, error) {
	b, err := r.Raw(ctx)
	if errs.Is(err, ErrNotFound) {
		return engine.ArcReference{}, nil
	}
	if err != nil {
		return engine.ArcReference{}, err
	}
	var ref engine.ArcReference
	if err := json.Unmarshal(b, &ref); err != nil {
		return engine.ArcReference{}, errors.Wrap(err, "decode arc reference")
	}
	return ref, nil
}

// ItemsRepo reads and extends the item catalog.
type ItemsRepo struct{ b Backend }

func NewItemsRepo(b Backend) *ItemsRepo { return &ItemsRepo{b: b} }

func (r *ItemsRepo) Raw(ctx context.Context) ([]byte, error) {
	return r.b.Read(ctx, DocItems)
}

func (r *ItemsRepo) Load(ctx context.Context) (engine.ItemCatalog, error) {
	b, err := r.Raw(ctx)
	if errs.Is(err, ErrNotFound) {
		return engine.ItemCatalog{Items: []engine.CatalogItem{}}, nil
	}
	if err != nil {
		return engine.ItemCatalog{}, err
	}
	var cat engine.ItemCatalog
	if err := json.Unmarshal(b, &cat); err != nil {
		return engine.ItemCatalog{}, errors.Wrap(err, "decode items")
	}
	return cat, nil
}

// Append adds it to the end of the catalog. Existing entries and other top-level members
// are kept as they are; an unreadable document starts over as an empty catalog.
func (r *ItemsRepo) Append(ctx context.Context, it engine.CatalogItem) error {
	return r.b.Update(ctx, DocItems, func(cur []byte) ([]byte, error) {
		doc, list := listDocument(cur, "items")
		entry, err := raw(it)
		if err != nil {
			return nil, err
		}
		list = append(list, entry)
		return encodeListDocument(doc, "items", list)
	})
}

// listDocument splits a {key: [...]} document into its members and the array under key.
// Bodies that don't parse, or whose key isn't an array, yield an empty document.
func listDocument(body []byte, key string) (map[string]json.RawMessage, []json.RawMessage) {
	doc := map[string]json.RawMessage{}
	if body == nil {
		return doc, []json.RawMessage{}
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return map[string]json.RawMessage{}, []json.RawMessage{}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(doc[key], &list); err != nil || list == nil {
		list = []json.RawMessage{}
	}
	return doc, list
}

func encodeListDocument(doc map[string]json.RawMessage, key string, list []json.RawMessage) ([]byte, error) {
	b, err := raw(list)
	if err != nil {
		return nil, err
	}
	doc[key] = b
	return encode(doc)
}

// MissionsRepo reads and writes the mission report log.
type MissionsRepo struct {
	b   Backend
	now func() time.Time
}

func NewMissionsRepo(b Backend) *MissionsRepo { return NewMissionsRepoAt(b, time.Now) }

// NewMissionsRepoAt stamps new missions with the time now returns.
func NewMissionsRepoAt(b Backend, now func() time.Time) *MissionsRepo {
	return &MissionsRepo{b: b, now: now}
}

func (r *MissionsRepo) Raw(ctx context.Context) ([]byte, error) {
	return r.b.Read(ctx, DocMissions)
}

func (r *MissionsRepo) List(ctx context.Context) ([]engine.Mission, error) {
	b, err := r.Raw(ctx)
	if errs.Is(err, ErrNotFound) {
		return []engine.Mission{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc struct {
		Missions []engine.Mission `json:"missions"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "decode missions")
	}
	return doc.Missions, nil
}

// Create stamps the draft and puts it first in the log.
func (r *MissionsRepo) Create(ctx context.Context, d engine.MissionDraft) (engine.Mission, error) {
	m := engine.NewMission(d, r.now())
	err := r.b.Update(ctx, DocMissions, func(cur []byte) ([]byte, error) {
		doc, list := listDocument(cur, "missions")
		entry, err := raw(m)
		if err != nil {
			return nil, err
		}
		list = append([]json.RawMessage{entry}, list...)
		return encodeListDocument(doc, "missions", list)
	})
	if err != nil {
		return engine.Mission{}, err
	}
	return m, nil
}

// ReplaceAll overwrites the log with the given entries, stored as received.
func (r *MissionsRepo) ReplaceAll(ctx context.Context, missions []json.RawMessage) error {
	if missions == nil {
		missions = []json.RawMessage{}
	}
	b, err := encode(struct {
		Missions []json.RawMessage `json:"missions"`
	}{missions})
	if err != nil {
		return errors.Wrap(err, "encode missions")
	}
	return r.b.Write(ctx, DocMissions, b)
}

// MailRepo holds the single pending in-game email.
type MailRepo struct{ b Backend }

func NewMailRepo(b Backend) *MailRepo { return &MailRepo{b: b} }

func (r *MailRepo) Raw(ctx context.Context) ([]byte, error) {
	return r.b.Read(ctx, DocInMail)
}

// Put stores {email: ...}. A nil or empty email stores null.
func (r *MailRepo) Put(ctx context.Context, email json.RawMessage) error {
	if len(bytes.TrimSpace(email)) == 0 {
		email = json.RawMessage("null")
	}
	b, err := encode(struct {
		Email json.RawMessage `json:"email"`
	}{email})
	if err != nil {
		return errors.Wrap(err, "encode in-mail")
	}
	return r.b.Write(ctx, DocInMail, b)
}

// Send stores e with its title and content trimmed; nil clears the mail.
func (r *MailRepo) Send(ctx context.Context, e *engine.Email) error {
	if e == nil {
		return r.Put(ctx, nil)
	}
	b, err := raw(engine.Email{Title: strings.TrimSpace(e.Title), Content: strings.TrimSpace(e.Content)})
	if err != nil {
		return errors.Wrap(err, "encode email")
	}
	return r.Put(ctx, b)
}

func (r *MailRepo) Load(ctx context.Context) (engine.InMail, error) {
	b, err := r.Raw(ctx)
	if errs.Is(err, ErrNotFound) {
		return engine.InMail{}, nil
	}
	if err != nil {
		return engine.InMail{}, err
	}
	var m engine.InMail
	if err := json.Unmarshal(b, &m); err != nil {
		return engine.InMail{}, errors.Wrap(err, "decode in-mail")
	}
	return m, nil
}
