package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/DaanHessen/agency-gm/internal/text"
)

const (
	viewAgency = "agency"
	viewCards  = "cards"
	viewNotes  = "notes"
	viewNote   = "note"
	viewHelp   = "help"
)

type model struct {
	ctx      context.Context
	repos    Repos
	renderer text.Renderer
	rules    engine.Rules
	changes  <-chan store.Doc
	log      *zap.Logger
	now      func() time.Time

	campaign engine.Campaign
	catalog  engine.Catalog
	session  *engine.Session
	cards    []engine.CardView
	form     *form
	loaded   bool
	dirty    bool
	saving   bool
	savedAt  time.Time
	written  []byte // statuses body of the last save

	view        string
	prevView    string
	agentCursor int
	cardCursor  int
	fieldCursor int
	scroll      int

	notes      []store.Note
	noteCursor int
	noteName   string
	pager      viewport.Model

	prompt    *prompt
	status    string
	statusErr bool

	theme  string
	st     styles
	width  int
	height int
}

// Options configure the editor.
type Options struct {
	Repos    Repos
	Rules    engine.Rules
	Renderer text.Renderer
	Changes  <-chan store.Doc // optional document change feed
	Theme    string
	Log      *zap.Logger
}

func initialModel(ctx context.Context, opts Options) model {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = text.WithFallback(text.NewGlamour(""), text.NewPlain())
	}
	theme := opts.Theme
	if _, ok := palettes[theme]; !ok {
		theme = defaultTheme
	}
	m := model{
		ctx:      ctx,
		repos:    opts.Repos,
		renderer: renderer,
		rules:    opts.Rules,
		changes:  opts.Changes,
		log:      log,
		now:      time.Now,
		campaign: engine.DefaultCampaign(),
		session:  engine.NewSession(),
		view:     viewAgency,
		theme:    theme,
		st:       newStyles(paletteFor(theme)),
		pager:    viewport.New(80, 20),
	}
	m.catalog = engine.Catalog{Items: engine.ItemCatalog{}, Rules: opts.Rules}
	m.rebuild()
	m.status = "加载中…"
	return m
}

// tea.Model implementation ---------------------------------------------------
func (m model) Init() tea.Cmd {
	return tea.Batch(loadCmd(m.ctx, m.repos), listNotesCmd(m.repos.Notes), waitForChange(m.changes))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.pager.Width = msg.Width
		m.pager.Height = max(3, msg.Height-4)
		return m, nil
	case loadedMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.campaign = msg.campaign
		m.session.Reset()
		m.catalog.Reference = msg.reference
		m.catalog.Items = msg.items
		m.loaded, m.dirty = true, false
		m.rebuild()
		m.agentCursor = clampIndex(m.agentCursor, len(m.campaign.Agents))
		if msg.missing {
			m.info("statuses.json 不存在，保存时将创建")
		} else {
			m.info(fmt.Sprintf("已加载 %d 名特工", len(m.campaign.Agents)))
		}
		return m, nil
	case catalogMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.sync()
		m.catalog.Reference = msg.reference
		m.catalog.Items = msg.items
		m.rebuild()
		m.info("参考资料已更新")
		return m, nil
	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.dirty = true
			m.fail(msg.err)
			return m, nil
		}
		m.savedAt, m.written = msg.at, msg.body
		if msg.note != "" {
			m.info(msg.note)
		} else {
			m.info("已保存")
		}
		return m, nil
	case mailMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		var e engine.Email
		if msg.mail.Email != nil {
			e = *msg.mail.Email
		}
		m.open(newPrompt(promptMail, step{label: "标题", value: e.Title}, step{label: "内容", value: e.Content}))
		return m, nil
	case mailSentMsg:
		switch {
		case msg.err != nil:
			m.fail(msg.err)
		case msg.cleared:
			m.info("已清除邮件")
		default:
			m.info("邮件已发送")
		}
		return m, nil
	case missionMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.info("已创建任务报告 " + msg.mission.ID)
		return m, nil
	case notesMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.notes = msg.notes
		m.noteCursor = clampIndex(m.noteCursor, len(m.notes))
		return m, nil
	case noteMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.noteName = msg.note.Name
		m.pager.SetContent(msg.rendered)
		m.pager.GotoTop()
		m.view = viewNote
		return m, nil
	case changedMsg:
		cmd := m.onChange(msg.doc)
		return m, tea.Batch(cmd, waitForChange(m.changes))
	case tea.KeyMsg:
		return m.onKey(msg)
	}
	if m.prompt != nil {
		return m, m.prompt.update(msg)
	}
	return m, nil
}

func (m *model) onChange(doc store.Doc) tea.Cmd {
	m.log.Debug("document changed", zap.String("doc", string(doc)))
	switch doc {
	case store.DocStatuses:
		if m.dirty || m.saving {
			m.info("statuses.json 已在外部修改；按 r 重新加载将丢弃未保存的修改")
			return nil
		}
		return statusesChangedCmd(m.ctx, m.repos, m.written)
	case store.DocArcReference, store.DocItems:
		return catalogCmd(m.ctx, m.repos)
	case store.DocNotes:
		return listNotesCmd(m.repos.Notes)
	}
	return nil
}

func (m model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}
	if m.prompt != nil {
		return m.onPromptKey(msg)
	}
	switch k {
	case "ctrl+s":
		cmd := m.save()
		return m, cmd
	case "?":
		if m.view != viewHelp {
			m.prevView, m.view = m.view, viewHelp
		}
		return m, nil
	case "T":
		m.theme = nextThemeName(m.theme, 1)
		m.st = newStyles(paletteFor(m.theme))
		m.info("主题：" + m.theme)
		return m, nil
	}
	switch m.view {
	case viewAgency:
		return m.agencyKey(k)
	case viewCards:
		return m.cardsKey(k)
	case viewNotes:
		return m.notesKey(k)
	case viewNote:
		switch k {
		case "esc", "q":
			m.view = viewNotes
			return m, nil
		}
		var cmd tea.Cmd
		m.pager, cmd = m.pager.Update(msg)
		return m, cmd
	case viewHelp:
		m.view = m.prevView
		if m.view == "" || m.view == viewHelp {
			m.view = viewAgency
		}
	}
	return m, nil
}

func (m model) agencyKey(k string) (tea.Model, tea.Cmd) {
	n := len(m.campaign.Agents)
	switch k {
	case "q":
		return m, tea.Quit
	case "up", "k":
		m.agentCursor = clampIndex(m.agentCursor-1, n)
	case "down", "j":
		m.agentCursor = clampIndex(m.agentCursor+1, n)
	case " ", "x":
		if n == 0 {
			return m, nil
		}
		m.sync()
		m.session.Toggle(m.agentCursor)
		m.rebuild()
	case "enter":
		if n == 0 {
			return m, nil
		}
		if !m.session.IsSelected(m.agentCursor) {
			m.sync()
			m.session.Select(m.agentCursor)
			m.rebuild()
		}
		m.openCards(m.agentCursor)
	case "c":
		if len(m.cards) > 0 {
			m.openCards(-1)
		}
	case "+", "=":
		m.form.chaos = bump(m.form.chaos, 1, 0, -1)
		m.dirty = true
	case "-":
		m.form.chaos = bump(m.form.chaos, -1, 0, -1)
		m.dirty = true
	case "]":
		m.form.looseEnds = bump(m.form.looseEnds, 1, 0, -1)
		m.dirty = true
	case "[":
		m.form.looseEnds = bump(m.form.looseEnds, -1, 0, -1)
		m.dirty = true
	case "n":
		ref := m.catalog.Reference
		m.open(newPrompt(promptNewAgent,
			step{label: "姓名"},
			step{label: "代号"},
			step{label: "异常", suggestions: anomalyIDs(ref)},
			step{label: "现实", suggestions: realityIDs(ref)},
			step{label: "职能", suggestions: competencyIDs(ref)},
		))
	case "w":
		m.open(newPrompt(promptNews, step{label: "内容"}))
	case "d":
		if len(m.campaign.Agency.News) > 0 {
			m.open(newPrompt(promptRemoveNews, step{label: "序号", value: "1"}))
		}
	case "s":
		m.open(newPrompt(promptSpendChaos,
			step{label: "效果", value: firstEffect(m.catalog.Rules), suggestions: effectNames(m.catalog.Rules)},
			step{label: "次数", value: "1"}))
	case "g":
		var gm engine.GMProfile
		if m.campaign.GM != nil {
			gm = *m.campaign.GM
		}
		m.open(newPrompt(promptGM,
			step{label: "名称", value: gm.Name},
			step{label: "代号", value: gm.Aka},
			step{label: "背景", value: gm.Lore}))
	case "m":
		m.view = viewNotes
		return m, listNotesCmd(m.repos.Notes)
	case "r":
		return m, loadCmd(m.ctx, m.repos)
	case "I":
		m.open(newPrompt(promptReset, step{label: "清空所有特工、新闻与任务报告并立即保存？(y/n)", value: "n"}))
	case "e":
		return m, loadMailCmd(m.ctx, m.repos)
	case "o":
		m.open(newPrompt(promptMission,
			step{label: "异常状态"},
			step{label: "代号"},
			step{label: "行为"},
			step{label: "焦点"},
			step{label: "领域"},
			step{label: "参与者"},
			step{label: "察看期"},
			step{label: "MVP"},
			step{label: "最终评级"}))
	}
	return m, nil
}

func (m *model) openCards(agent int) {
	m.view = viewCards
	m.fieldCursor, m.scroll = 0, 0
	for i, cv := range m.cards {
		if cv.Index == agent {
			m.cardCursor = i
			return
		}
	}
	m.cardCursor = clampIndex(m.cardCursor, len(m.cards))
}

func (m model) cardsKey(k string) (tea.Model, tea.Cmd) {
	cv, ok := m.focusedCard()
	if !ok {
		m.view = viewAgency
		return m, nil
	}
	fields := cardFields(cv)
	switch k {
	case "esc", "q":
		m.view = viewAgency
	case "tab":
		m.cardCursor = (m.cardCursor + 1) % len(m.cards)
		m.fieldCursor, m.scroll = 0, 0
	case "shift+tab":
		m.cardCursor = (m.cardCursor - 1 + len(m.cards)) % len(m.cards)
		m.fieldCursor, m.scroll = 0, 0
	case "up", "k":
		m.fieldCursor = clampIndex(m.fieldCursor-1, len(fields))
	case "down", "j":
		m.fieldCursor = clampIndex(m.fieldCursor+1, len(fields))
	case "pgup":
		m.scroll = max(0, m.scroll-10)
	case "pgdown":
		m.scroll = min(m.maxScroll(), m.scroll+10)
	case "right", "l", "+", "=", " ", "enter":
		m.adjust(cv, fields, 1)
	case "left", "h", "-":
		m.adjust(cv, fields, -1)
	case "f":
		m.sync()
		m.session.SetFlipped(cv.Index, !cv.Flipped)
		m.rebuild()
		m.fieldCursor = 0
	case "D":
		m.sync()
		m.session.Deselect(cv.Index)
		m.rebuild()
		if len(m.cards) == 0 {
			m.view = viewAgency
		}
		m.cardCursor = clampIndex(m.cardCursor, len(m.cards))
	case "e":
		m.editField(cv, fields)
	case "a":
		m.openAt(cv.Index, -1, newPrompt(promptAddAbility,
			step{label: "名称"}, step{label: "描述"}, step{label: "可练习 (y/n)", value: "y"}))
	case "i":
		m.openAt(cv.Index, -1, newPrompt(promptClaim, step{label: "物品", suggestions: itemKeys(m.catalog.Items)}))
	case "R":
		m.openAt(cv.Index, -1, relationshipPrompt(nil))
	case "v":
		m.openAt(cv.Index, -1, newPrompt(promptReality,
			step{label: "现实", value: cv.Reality.Choice, suggestions: realityIDs(m.catalog.Reference)}))
	case "delete", "backspace", "X":
		m.removeFocused(cv, fields)
	}
	return m, nil
}

func (m *model) adjust(cv engine.CardView, fields []field, delta int) {
	if len(fields) == 0 {
		return
	}
	f := fields[clampIndex(m.fieldCursor, len(fields))]
	if !f.structural() {
		if af := m.form.agents[cv.Index]; af != nil && af.adjust(f, delta) {
			m.dirty = true
		}
		return
	}
	switch f.kind {
	case fieldTrackMarked, fieldTrackStruck:
		tf := engine.TrackMarked
		if f.kind == fieldTrackStruck {
			tf = engine.TrackStruck
		}
		m.mutateAgent(cv.Index, func(a *engine.Agent) error {
			return engine.AdjustTrack(a, f.key, tf, delta)
		})
	case fieldRelationship:
		rel := cv.Reality.Relationships[f.index]
		d := draftOf(rel)
		d.Closeness = itoa(min(engine.MaxCloseness, max(engine.MinCloseness, rel.Closeness+delta)))
		i := f.index
		m.mutateAgent(cv.Index, func(a *engine.Agent) error {
			return engine.SaveRelationship(a, &i, d)
		})
	}
}

func (m *model) editField(cv engine.CardView, fields []field) {
	if len(fields) == 0 {
		return
	}
	f := fields[clampIndex(m.fieldCursor, len(fields))]
	af := m.form.agents[cv.Index]
	switch f.kind {
	case fieldScore:
		m.openField(cv.Index, f, scoreNames[f.key], af.scores[f.key])
	case fieldQAMax:
		m.openField(cv.Index, f, f.key+" 上限", af.qaMax[f.key])
	case fieldQACurrent:
		m.openField(cv.Index, f, f.key+" 当前", af.qaCurrent[f.key])
	case fieldSplit:
		m.openField(cv.Index, f, "割裂进度", af.split)
	case fieldAbility, fieldPracticed, fieldWellKnownA, fieldWellKnownB:
		ab := cv.Anomaly.Abilities[f.index]
		m.openAt(cv.Index, f.index, newPrompt(promptChangeAbility,
			step{label: "名称", value: ab.Name}, step{label: "描述", value: ab.Description}))
	case fieldRelationship:
		rel := cv.Reality.Relationships[f.index]
		m.openAt(cv.Index, f.index, relationshipPrompt(&rel))
	}
}

func (m *model) removeFocused(cv engine.CardView, fields []field) {
	if len(fields) == 0 {
		return
	}
	f := fields[clampIndex(m.fieldCursor, len(fields))]
	ref := &m.catalog.Reference
	switch f.kind {
	case fieldItem:
		m.mutateAgent(cv.Index, func(a *engine.Agent) error { return engine.RemoveItem(a, f.index) })
	case fieldRelationship:
		m.mutateAgent(cv.Index, func(a *engine.Agent) error { return engine.RemoveRelationship(a, f.index) })
	case fieldAbility, fieldPracticed, fieldWellKnownA, fieldWellKnownB:
		m.mutateAgent(cv.Index, func(a *engine.Agent) error { return engine.RemoveAbility(a, ref, f.index) })
	default:
		return
	}
	m.fieldCursor = clampIndex(m.fieldCursor, len(cardFields(m.cardAt(cv.Index))))
}

func (m model) notesKey(k string) (tea.Model, tea.Cmd) {
	switch k {
	case "esc", "q":
		m.view = viewAgency
	case "up", "k":
		m.noteCursor = clampIndex(m.noteCursor-1, len(m.notes))
	case "down", "j":
		m.noteCursor = clampIndex(m.noteCursor+1, len(m.notes))
	case "r":
		return m, listNotesCmd(m.repos.Notes)
	case "enter":
		if len(m.notes) == 0 {
			return m, nil
		}
		return m, readNoteCmd(m.repos.Notes, m.renderer, m.notes[m.noteCursor], m.width)
	}
	return m, nil
}

// Prompts --------------------------------------------------------------------

func (m *model) open(p *prompt) {
	m.prompt = p
}

func (m *model) openAt(agent, index int, p *prompt) {
	p.agent, p.index = agent, index
	m.prompt = p
}

func (m *model) openField(agent int, f field, label, value string) {
	p := newPrompt(promptValue, step{label: label, value: value})
	p.agent, p.field = agent, f
	m.prompt = p
}

func relationshipPrompt(rel *engine.RelationshipView) *prompt {
	var d engine.RelationshipDraft
	d.Closeness = itoa(engine.MinCloseness)
	if rel != nil {
		d = draftOf(*rel)
	}
	active := "n"
	if d.BenefitActive {
		active = "y"
	}
	return newPrompt(promptRelationship,
		step{label: "名称", value: d.Name},
		step{label: "扮演者", value: d.Actor},
		step{label: "描述", value: d.Description},
		step{label: "益处", value: d.Benefit},
		step{label: "益处说明", value: d.BenefitDescription},
		step{label: "益处生效 (y/n)", value: active},
		step{label: "连结 (1-9)", value: d.Closeness},
	)
}

func draftOf(rel engine.RelationshipView) engine.RelationshipDraft {
	return engine.RelationshipDraft{
		Name:               rel.Name,
		Actor:              rel.Actor,
		Description:        rel.Description,
		Benefit:            rel.Benefit,
		BenefitDescription: rel.BenefitDescription,
		BenefitActive:      rel.Active,
		Closeness:          itoa(rel.Closeness),
	}
}

func (m model) onPromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if !m.prompt.back() {
			m.prompt = nil
		}
		return m, nil
	case "enter":
		if !m.prompt.advance() {
			return m, nil
		}
		p := m.prompt
		m.prompt = nil
		cmd := m.finish(p)
		return m, cmd
	}
	return m, m.prompt.update(msg)
}

func (m *model) finish(p *prompt) tea.Cmd {
	ref := &m.catalog.Reference
	switch p.kind {
	case promptNews:
		today := m.now().Format(time.DateOnly)
		m.mutate(func(c *engine.Campaign) error {
			engine.AddNews(c, p.answer(0), today)
			return nil
		})
	case promptRemoveNews:
		i := engine.ParseInt(p.answer(0)) - 1
		m.mutate(func(c *engine.Campaign) error { return engine.RemoveNews(c, i) })
	case promptSpendChaos:
		effect, ok := m.catalog.Rules.Effect(p.answer(0))
		if !ok {
			m.fail(&engine.ValidationError{Message: "未知的混沌效果：" + p.answer(0)})
			return nil
		}
		count := max(1, engine.ParseInt(p.answer(1)))
		var total int
		ok = m.mutate(func(c *engine.Campaign) error {
			var err error
			total, err = engine.SpendChaos(c, effect.Cost, count)
			return err
		})
		if !ok {
			return nil
		}
		return m.saveWith(fmt.Sprintf("已创建 %d 次「%s」，消耗 %d 混沌值", count, effect.Name, total))
	case promptGM:
		m.mutate(func(c *engine.Campaign) error {
			engine.SetGMProfile(c, engine.GMProfile{Name: p.answer(0), Aka: p.answer(1), Lore: p.answer(2)})
			return nil
		})
	case promptNewAgent:
		idx := -1
		ok := m.mutate(func(c *engine.Campaign) error {
			var err error
			idx, err = engine.NewAgent(c, ref, engine.AgentDraft{
				Name:       p.answer(0),
				Aka:        p.answer(1),
				Anomaly:    p.answer(2),
				Reality:    p.answer(3),
				Competency: p.answer(4),
			})
			return err
		})
		if ok {
			m.session.Select(idx)
			m.rebuild()
			m.agentCursor = idx
			m.info("已创建 " + m.campaign.Agents[idx].ID)
		}
	case promptClaim:
		key := p.answer(0)
		if _, ok := m.catalog.Items.Find(key); !ok {
			if hits := engine.SearchCatalog(m.catalog.Items, key); len(hits) == 1 {
				key = hits[0].Key()
			}
		}
		m.mutateAgent(p.agent, func(a *engine.Agent) error { return engine.ClaimItem(a, m.catalog.Items, key) })
	case promptAddAbility:
		d := engine.AbilityDraft{Name: p.answer(0), Description: p.answer(1), Practicable: yes(p.answer(2))}
		m.mutateAgent(p.agent, func(a *engine.Agent) error { return engine.AddAbility(a, ref, d) })
	case promptChangeAbility:
		d := engine.AbilityDraft{Name: p.answer(0), Description: p.answer(1)}
		m.mutateAgent(p.agent, func(a *engine.Agent) error { return engine.ChangeAbility(a, ref, p.index, d) })
	case promptRelationship:
		d := engine.RelationshipDraft{
			Name:               p.answer(0),
			Actor:              p.answer(1),
			Description:        p.answer(2),
			Benefit:            p.answer(3),
			BenefitDescription: p.answer(4),
			BenefitActive:      yes(p.answer(5)),
			Closeness:          p.answer(6),
		}
		var at *int
		if p.index >= 0 {
			i := p.index
			at = &i
		}
		m.mutateAgent(p.agent, func(a *engine.Agent) error { return engine.SaveRelationship(a, at, d) })
	case promptReality:
		m.mutateAgent(p.agent, func(a *engine.Agent) error { return engine.SwitchReality(a, ref, p.answer(0)) })
	case promptReset:
		if !yes(p.answer(0)) {
			return nil
		}
		if m.saving {
			m.info("保存进行中，请稍后再初始化")
			return nil
		}
		m.campaign = engine.DefaultCampaign()
		m.session = engine.NewSession()
		m.rebuild()
		m.agentCursor, m.cardCursor = 0, 0
		m.loaded, m.dirty, m.saving = true, false, true
		m.info("初始化中…")
		return resetCmd(m.ctx, m.repos, m.campaign.Clone(), m.now)
	case promptMail:
		var e *engine.Email
		if p.answer(0) != "" || p.answer(1) != "" {
			e = &engine.Email{Title: p.answer(0), Content: p.answer(1)}
		}
		return sendMailCmd(m.ctx, m.repos, e)
	case promptMission:
		return createMissionCmd(m.ctx, m.repos, engine.MissionDraft{
			AnomalyStatus: engine.Text(p.answer(0)),
			Codename:      engine.Text(p.answer(1)),
			Behavior:      engine.Text(p.answer(2)),
			Focus:         engine.Text(p.answer(3)),
			Domain:        engine.Text(p.answer(4)),
			Participants:  engine.Text(p.answer(5)),
			Probation:     engine.Text(p.answer(6)),
			MVP:           engine.Text(p.answer(7)),
			Rating:        engine.Text(p.answer(8)),
		})
	case promptValue:
		af := m.form.agents[p.agent]
		if af == nil {
			m.fail(engine.ErrUnknownAgent)
			return nil
		}
		v := p.answer(0)
		switch p.field.kind {
		case fieldScore:
			af.scores[p.field.key] = v
		case fieldQAMax:
			af.qaMax[p.field.key] = v
		case fieldQACurrent:
			af.qaCurrent[p.field.key] = v
		case fieldSplit:
			af.split = v
		}
		m.dirty = true
	}
	return nil
}

// Model plumbing -------------------------------------------------------------

// sync folds the form into the campaign.
func (m *model) sync() {
	next, overlay := engine.Reconcile(m.campaign, m.form.snapshot(), &m.catalog)
	m.campaign = next
	m.session.ApplyOverlay(overlay)
}

// rebuild re-renders the cards and resets the form from the campaign.
func (m *model) rebuild() {
	m.cards = engine.BuildCards(&m.campaign, &m.catalog, m.session)
	m.form = newForm(&m.campaign, m.cards)
	m.cardCursor = clampIndex(m.cardCursor, len(m.cards))
}

// mutate applies a structural edit on top of the current form. On error the campaign
// keeps the folded form but not the edit.
func (m *model) mutate(fn func(c *engine.Campaign) error) bool {
	m.sync()
	next := m.campaign.Clone()
	if err := fn(&next); err != nil {
		m.fail(err)
		m.rebuild()
		return false
	}
	m.campaign = next
	m.dirty = true
	m.rebuild()
	return true
}

func (m *model) mutateAgent(index int, fn func(a *engine.Agent) error) bool {
	return m.mutate(func(c *engine.Campaign) error {
		a := c.Agent(index)
		if a == nil {
			return engine.ErrUnknownAgent
		}
		return fn(a)
	})
}

func (m *model) save() tea.Cmd { return m.saveWith("") }

// saveWith writes the campaign and reports note once the write lands. An edit made
// while a save is in flight stays dirty for the next one.
func (m *model) saveWith(note string) tea.Cmd {
	if !m.loaded || m.saving {
		if note != "" {
			m.info(note + "；按 ctrl+s 保存")
		}
		return nil
	}
	m.sync()
	m.rebuild()
	m.saving, m.dirty = true, false
	m.info("保存中…")
	return saveCmd(m.ctx, m.repos, m.campaign.Clone(), m.now, note)
}

func (m *model) focusedCard() (engine.CardView, bool) {
	if len(m.cards) == 0 {
		return engine.CardView{}, false
	}
	return m.cards[clampIndex(m.cardCursor, len(m.cards))], true
}

func (m *model) cardAt(index int) engine.CardView {
	for _, cv := range m.cards {
		if cv.Index == index {
			return cv
		}
	}
	return engine.CardView{}
}

func (m *model) info(s string) {
	m.status, m.statusErr = s, false
}

func (m *model) fail(err error) {
	var verr *engine.ValidationError
	if !errors.As(err, &verr) {
		m.log.Warn("editor error", zap.Error(err))
	}
	m.status, m.statusErr = err.Error(), true
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func anomalyIDs(ref engine.ArcReference) []string {
	var out []string
	for _, a := range ref.Anomalies {
		out = append(out, a.ID)
	}
	return out
}

func realityIDs(ref engine.ArcReference) []string {
	var out []string
	for _, r := range ref.Realities {
		out = append(out, r.ID)
	}
	return out
}

func competencyIDs(ref engine.ArcReference) []string {
	var out []string
	for _, c := range ref.Competencies {
		out = append(out, c.ID)
	}
	return out
}

func effectNames(r engine.Rules) []string {
	out := make([]string, 0, len(r.ChaosEffects))
	for _, e := range r.ChaosEffects {
		out = append(out, e.Name)
	}
	return out
}

func firstEffect(r engine.Rules) string {
	if len(r.ChaosEffects) == 0 {
		return ""
	}
	return r.ChaosEffects[0].Name
}

func itemKeys(items engine.ItemCatalog) []string {
	out := make([]string, 0, len(items.Items))
	for _, it := range items.Items {
		out = append(out, it.Key())
	}
	return out
}

// Layout rendering -----------------------------------------------------------

func (m model) View() string {
	var body string
	switch m.view {
	case viewCards:
		body = m.renderCards()
	case viewNotes:
		body = m.renderNotes()
	case viewNote:
		body = m.st.title.Render(m.noteName) + "\n" + m.pager.View()
	case viewHelp:
		body = m.renderHelp()
	default:
		body = m.renderAgency()
	}
	if m.prompt != nil {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.prompt.view(m.st))
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTopBar(), body, m.renderBottomBar())
}

func (m model) renderTopBar() string {
	left := "AGENCY GM"
	if m.campaign.GM != nil && m.campaign.GM.Name != "" {
		left += " • " + m.campaign.GM.Name
	}
	left += fmt.Sprintf(" • 混沌值 %s • 散逸端 %s", m.form.chaos, m.form.looseEnds)
	right := fmt.Sprintf("特工 %d", len(m.campaign.Agents))
	if m.dirty {
		right = "● 未保存  " + right
	}
	w := m.width
	if w <= 0 {
		w = 100
	}
	gap := max(1, w-lipgloss.Width(left)-lipgloss.Width(right))
	return m.st.title.Render(left + strings.Repeat(" ", gap) + right)
}

func (m model) renderBottomBar() string {
	var keys string
	switch m.view {
	case viewCards:
		keys = "[↑↓] 字段  [←→] 调整  [e] 编辑  [f] 翻面  [a] 能力  [i] 申领  [R] 关系  [v] 现实  [X] 删除  [Tab] 下一张  [D] 收起  [Esc] 返回"
	case viewNotes, viewNote:
		keys = "[↑↓] 选择  [Enter] 打开  [r] 刷新  [Esc] 返回"
	default:
		keys = "[↑↓] 特工  [空格] 选中  [Enter] 卡片  [n] 新特工  [+-] 混沌  [[]] 散逸端  [s] 消耗  [w] 新闻  [e] 邮件  [o] 任务报告  [m] 笔记  [I] 初始化  [?] 帮助  [q] 退出"
	}
	status := m.status
	if !m.savedAt.IsZero() {
		status += "  · 上次保存 " + humanize.Time(m.savedAt)
	}
	line := m.st.status.Render(status)
	if m.statusErr {
		line = m.st.danger.Render(m.status)
	}
	return m.st.muted.Render(keys+"  [ctrl+s] 保存") + "\n" + line
}

func (m model) renderAgency() string {
	w := m.width
	if w <= 0 {
		w = 100
	}
	sideWidth := min(48, max(30, w/3))

	var list strings.Builder
	list.WriteString(m.st.title.Render("特工") + "\n")
	if len(m.campaign.Agents) == 0 {
		list.WriteString(m.st.muted.Render("（暂无特工，按 n 新建）") + "\n")
	}
	for i := range m.campaign.Agents {
		a := &m.campaign.Agents[i]
		cursor := "  "
		if i == m.agentCursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%s %s", cursor, check(m.session.IsSelected(i)), engine.AgentLabel(a, " / "))
		title := m.catalog.Rules.AgencyTitle(a)
		if title != "" {
			line += "  " + m.st.muted.Render(title)
		}
		if i == m.agentCursor {
			line = m.st.selected.Render(line)
		}
		list.WriteString(line + "\n")
	}

	var side strings.Builder
	limits := m.catalog.Rules.Evaluate(engine.ParseInt(m.form.looseEnds))
	side.WriteString(m.st.title.Render("机构") + "\n")
	side.WriteString(fmt.Sprintf("混沌值 %s   散逸端 %s\n", m.form.chaos, m.form.looseEnds))
	side.WriteString(fmt.Sprintf("初始混沌 %s   天气事件 %s\n", limits.StartingChaosLabel(), limits.WeatherEventsLabel()))
	if len(limits.Restrictions) > 0 {
		side.WriteString("\n" + m.st.warning.Render("限制") + "\n")
		for _, r := range limits.Restrictions {
			side.WriteString(text.Wrap("• "+r, sideWidth-4) + "\n")
		}
	}
	side.WriteString("\n" + m.st.title.Render("新闻") + "\n")
	if len(m.campaign.Agency.News) == 0 {
		side.WriteString(m.st.muted.Render("（无）") + "\n")
	}
	for i, n := range m.campaign.Agency.News {
		side.WriteString(m.st.muted.Render(fmt.Sprintf("%d. %s", i+1, n.Date)) + "\n")
		side.WriteString(text.Wrap(n.Text, sideWidth-4) + "\n")
	}

	main := lipgloss.NewStyle().Width(max(20, w-sideWidth-2)).Render(list.String())
	panel := m.st.panel.Width(sideWidth).Render(strings.TrimRight(side.String(), "\n"))
	return lipgloss.JoinHorizontal(lipgloss.Top, main, panel)
}

// cardsContent renders every open card, unscrolled.
func (m model) cardsContent() string {
	w := m.width
	if w <= 0 {
		w = 100
	}
	cardWidth := w
	if w >= 170 {
		cardWidth = w / 2
	}
	focused := clampIndex(m.cardCursor, len(m.cards))
	var rendered []string
	for i, cv := range m.cards {
		r := cardRenderer{st: m.st, cv: cv, af: m.form.agents[cv.Index], width: cardWidth}
		if r.af == nil {
			continue
		}
		if i == focused {
			fields := cardFields(cv)
			if len(fields) > 0 {
				f := fields[clampIndex(m.fieldCursor, len(fields))]
				r.focus = &f
			}
		}
		rendered = append(rendered, r.render())
	}
	return renderCards(rendered, w)
}

func (m model) bodyHeight() int { return m.height - 4 }

func (m model) maxScroll() int {
	avail := m.bodyHeight()
	if avail <= 5 {
		return 0
	}
	return max(0, strings.Count(m.cardsContent(), "\n")+1-avail)
}

func (m model) renderCards() string {
	if len(m.cards) == 0 {
		return m.st.muted.Render("（未选择特工）")
	}
	all := m.cardsContent()
	lines := strings.Split(all, "\n")
	avail := m.bodyHeight()
	if avail <= 5 || len(lines) <= avail {
		return all
	}
	start := min(m.scroll, len(lines)-avail)
	return strings.Join(lines[start:start+avail], "\n")
}

func (m model) renderNotes() string {
	var b strings.Builder
	b.WriteString(m.st.title.Render("任务笔记") + "  " + m.st.muted.Render(m.repos.Notes.Dir()) + "\n")
	if len(m.notes) == 0 {
		b.WriteString(m.st.muted.Render("（没有笔记）"))
		return b.String()
	}
	for i, n := range m.notes {
		line := "  " + n.Name
		if i == m.noteCursor {
			line = m.st.selected.Render("> " + n.Name)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m model) renderHelp() string {
	help := strings.Join([]string{
		"机构视图：选择特工并打开卡片，调整混沌值与散逸端，管理新闻。",
		"s 按效果表消耗混沌值并立即保存；e 编辑待发邮件，标题与内容皆空时清除；o 追加任务报告。",
		"I 初始化会立即写入默认 statuses.json 并清空 mission.json。",
		"卡片视图：方向键选择字段，左右键调整，e 直接输入。正面是分数、资质保证、异常能力和申领物；",
		"背面是现实、关系、职能和工作/生活平衡记录条。",
		"修改在 ctrl+s 保存前只存在于本地；r 重新加载会丢弃它们。",
		"T 切换主题。任意键返回。",
	}, "\n")
	return m.st.modal.Render(help)
}
