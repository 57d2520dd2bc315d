package ui

import (
	"bytes"
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/DaanHessen/agency-gm/internal/text"
)

// Repos are the documents the editor reads and writes.
type Repos struct {
	Statuses  *store.StatusesRepo
	Reference *store.ReferenceRepo
	Items     *store.ItemsRepo
	Missions  *store.MissionsRepo
	Mail      *store.MailRepo
	Notes     *store.Notes
}

// NewRepos binds the repositories to one backend.
func NewRepos(b store.Backend, notes *store.Notes) Repos {
	return Repos{
		Statuses:  store.NewStatusesRepo(b),
		Reference: store.NewReferenceRepo(b),
		Items:     store.NewItemsRepo(b),
		Missions:  store.NewMissionsRepo(b),
		Mail:      store.NewMailRepo(b),
		Notes:     notes,
	}
}

type loadedMsg struct {
	campaign  engine.Campaign
	missing   bool // statuses document absent; editing starts from the default campaign
	reference engine.ArcReference
	items     engine.ItemCatalog
	err       error
}

type catalogMsg struct {
	reference engine.ArcReference
	items     engine.ItemCatalog
	err       error
}

type savedMsg struct {
	at   time.Time
	body []byte // statuses document as written
	note string // status line shown instead of the default
	err  error
}

type mailMsg struct {
	mail engine.InMail
	err  error
}

type mailSentMsg struct {
	cleared bool
	err     error
}

type missionMsg struct {
	mission engine.Mission
	err     error
}

type notesMsg struct {
	notes []store.Note
	err   error
}

type noteMsg struct {
	note     store.Note
	rendered string
	err      error
}

type changedMsg struct{ doc store.Doc }

func loadCmd(ctx context.Context, r Repos) tea.Cmd {
	return func() tea.Msg {
		var msg loadedMsg
		c, err := r.Statuses.Load(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			msg.campaign, msg.missing = engine.DefaultCampaign(), true
		case err != nil:
			return loadedMsg{err: err}
		default:
			msg.campaign = c
		}
		cat := loadCatalog(ctx, r)
		if cat.err != nil {
			return loadedMsg{err: cat.err}
		}
		msg.reference, msg.items = cat.reference, cat.items
		return msg
	}
}

func loadCatalog(ctx context.Context, r Repos) catalogMsg {
	ref, err := r.Reference.Load(ctx)
	if err != nil {
		return catalogMsg{err: err}
	}
	items, err := r.Items.Load(ctx)
	if err != nil {
		return catalogMsg{err: err}
	}
	return catalogMsg{reference: ref, items: items}
}

func catalogCmd(ctx context.Context, r Repos) tea.Cmd {
	return func() tea.Msg { return loadCatalog(ctx, r) }
}

func saveCmd(ctx context.Context, r Repos, c engine.Campaign, now func() time.Time, note string) tea.Cmd {
	return func() tea.Msg {
		body, err := r.Statuses.Save(ctx, c)
		if err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{at: now(), body: body, note: note}
	}
}

// resetCmd writes the default campaign and empties the mission log.
func resetCmd(ctx context.Context, r Repos, c engine.Campaign, now func() time.Time) tea.Cmd {
	return func() tea.Msg {
		body, err := r.Statuses.Save(ctx, c)
		if err != nil {
			return savedMsg{err: err}
		}
		if err := r.Missions.ReplaceAll(ctx, nil); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{at: now(), body: body, note: "已初始化 statuses.json 与 mission.json"}
	}
}

// statusesChangedCmd reloads the campaign unless the document on disk is the one
// this editor last wrote.
func statusesChangedCmd(ctx context.Context, r Repos, written []byte) tea.Cmd {
	return func() tea.Msg {
		if written != nil {
			if cur, err := r.Statuses.Raw(ctx); err == nil && bytes.Equal(cur, written) {
				return nil
			}
		}
		return loadCmd(ctx, r)()
	}
}

func loadMailCmd(ctx context.Context, r Repos) tea.Cmd {
	return func() tea.Msg {
		m, err := r.Mail.Load(ctx)
		return mailMsg{mail: m, err: err}
	}
}

func sendMailCmd(ctx context.Context, r Repos, e *engine.Email) tea.Cmd {
	return func() tea.Msg {
		return mailSentMsg{cleared: e == nil, err: r.Mail.Send(ctx, e)}
	}
}

func createMissionCmd(ctx context.Context, r Repos, d engine.MissionDraft) tea.Cmd {
	return func() tea.Msg {
		m, err := r.Missions.Create(ctx, d)
		return missionMsg{mission: m, err: err}
	}
}

func listNotesCmd(n *store.Notes) tea.Cmd {
	return func() tea.Msg {
		notes, err := n.List()
		return notesMsg{notes: notes, err: err}
	}
}

func readNoteCmd(n *store.Notes, r text.Renderer, note store.Note, width int) tea.Cmd {
	return func() tea.Msg {
		body, err := n.Read(note.Slug)
		if err != nil {
			return noteMsg{note: note, err: err}
		}
		out, err := r.Render(string(body), width)
		return noteMsg{note: note, rendered: out, err: err}
	}
}

// waitForChange delivers the next document change from the watcher.
func waitForChange(ch <-chan store.Doc) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		doc, ok := <-ch
		if !ok {
			return nil
		}
		return changedMsg{doc: doc}
	}
}
