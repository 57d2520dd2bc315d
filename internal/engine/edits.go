package engine

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ValidationError is a rejected edit whose message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(msg string) error { return &ValidationError{Message: msg} }

var (
	ErrInitialItem       = errors.New("初始申领物不可删除")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInsufficientChaos = errors.New("混沌值不足")
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrUnknownTrack      = errors.New("unknown track")
)

// AbilityDraft is the content of the add/change ability form.
type AbilityDraft struct {
	Name        string
	Description string
	Practicable bool
}

// materializeAbilities copies the template into the agent when it has no abilities of its own
// and returns the agent's list.
func materializeAbilities(a *Agent, ref *ArcReference) []Ability {
	abilities, fromTemplate := displayedAbilities(a, ref)
	if fromTemplate {
		a.ensureAnomaly().Abilities = abilities
	}
	if an := a.anomaly(); an != nil {
		return an.Abilities
	}
	return nil
}

func AddAbility(a *Agent, ref *ArcReference, d AbilityDraft) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return invalid("请输入能力名称")
	}
	materializeAbilities(a, ref)
	ab := Ability{Name: name, Description: strings.TrimSpace(d.Description)}
	if d.Practicable {
		practiced := false
		ab.Practiced = &practiced
		ab.WellKnown = &WellKnown{}
	}
	an := a.ensureAnomaly()
	an.Abilities = append(an.Abilities, ab)
	return nil
}

// ChangeAbility replaces the text of ability i. The result is always practicable; existing
// progress is kept.
func ChangeAbility(a *Agent, ref *ArcReference, i int, d AbilityDraft) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return invalid("请输入能力名称")
	}
	abilities, _ := displayedAbilities(a, ref)
	if i < 0 || i >= len(abilities) {
		return ErrIndexOutOfRange
	}
	list := materializeAbilities(a, ref)
	prev := list[i]
	next := Ability{Name: name, Description: strings.TrimSpace(d.Description), Practiced: prev.Practiced, WellKnown: prev.WellKnown}
	if next.Practiced == nil {
		practiced := false
		next.Practiced = &practiced
	}
	if next.WellKnown == nil {
		next.WellKnown = &WellKnown{}
	}
	list[i] = next
	return nil
}

func RemoveAbility(a *Agent, ref *ArcReference, i int) error {
	abilities, _ := displayedAbilities(a, ref)
	if i < 0 || i >= len(abilities) {
		return ErrIndexOutOfRange
	}
	list := materializeAbilities(a, ref)
	a.Arc.Anomaly.Abilities = append(list[:i:i], list[i+1:]...)
	return nil
}

// RelationshipDraft is the relationship form. Closeness is the raw input.
type RelationshipDraft struct {
	Name               string
	Actor              string
	Description        string
	Benefit            string
	BenefitDescription string
	BenefitActive      bool
	Closeness          string
}

// SaveRelationship appends the relationship, or replaces entry *i when i is non-nil.
func SaveRelationship(a *Agent, i *int, d RelationshipDraft) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return invalid("请输入关系人名称")
	}
	closeness := ParseInt(d.Closeness)
	if closeness == 0 {
		closeness = MinCloseness
	}
	rel := Relationship{
		Name:               name,
		Actor:              strings.TrimSpace(d.Actor),
		Description:        strings.TrimSpace(d.Description),
		Benefit:            strings.TrimSpace(d.Benefit),
		BenefitDescription: strings.TrimSpace(d.BenefitDescription),
		BenefitActive:      d.BenefitActive,
		Closeness:          Int(clamp(closeness, MinCloseness, MaxCloseness)),
	}
	if i != nil {
		r := a.reality()
		if r == nil || *i < 0 || *i >= len(r.Relationships) {
			return ErrIndexOutOfRange
		}
		r.Relationships[*i] = rel
		return nil
	}
	r := a.ensureReality()
	r.Relationships = append(r.Relationships, rel)
	return nil
}

func RemoveRelationship(a *Agent, i int) error {
	r := a.reality()
	if r == nil || i < 0 || i >= len(r.Relationships) {
		return ErrIndexOutOfRange
	}
	r.Relationships = append(r.Relationships[:i:i], r.Relationships[i+1:]...)
	return nil
}

// SwitchReality replaces the reality arc with catalog entry id, keeping relationships and split.
func SwitchReality(a *Agent, ref *ArcReference, id string) error {
	rr, ok := ref.Reality(id)
	if !ok {
		return invalid("未知现实：" + id)
	}
	next := &RealityArc{Choice: rr.ID, Trigger: rr.Trigger.clone(), Release: rr.Release.clone()}
	if prev := a.reality(); prev != nil {
		next.Split = prev.Split
		next.Relationships = append([]Relationship(nil), prev.Relationships...)
	}
	a.ensureArc().Reality = next
	return nil
}

// ClaimItem appends a copy of the catalog entry with the given key.
func ClaimItem(a *Agent, items ItemCatalog, key string) error {
	it, ok := items.Find(key)
	if !ok {
		return invalid("未找到申领物：" + key)
	}
	claimed := ClaimedItem{Name: it.Name, Description: it.Description}
	if it.Price != nil {
		p := *it.Price
		claimed.Price = &p
	}
	a.Items = append(a.Items, claimed)
	return nil
}

// RemoveItem drops claimed item i. The first item is the competency's initial item and stays.
func RemoveItem(a *Agent, i int) error {
	if i == 0 {
		return ErrInitialItem
	}
	if i < 0 || i >= len(a.Items) {
		return ErrIndexOutOfRange
	}
	a.Items = append(a.Items[:i:i], a.Items[i+1:]...)
	return nil
}

// TrackField selects the counter AdjustTrack changes.
type TrackField int

const (
	TrackMarked TrackField = iota
	TrackStruck
)

// AdjustTrack adds delta to a track counter, clamped to [0, TrackBoxes].
func AdjustTrack(a *Agent, track string, field TrackField, delta int) error {
	t := a.ensureWallTracks().Get(track)
	if t == nil {
		return ErrUnknownTrack
	}
	switch field {
	case TrackMarked:
		t.Marked = Int(clamp(t.Marked.Value()+delta, 0, TrackBoxes))
	case TrackStruck:
		t.Struck = Int(clamp(t.Struck.Value()+delta, 0, TrackBoxes))
	}
	return nil
}

func SetRealitySplit(a *Agent, v int) {
	a.ensureReality().Split = Int(clamp(v, 0, MaxSplit))
}

// AgentDraft is the new-agent form.
type AgentDraft struct {
	Name       string
	Aka        string
	Anomaly    string
	Reality    string
	Competency string
}

var agentIDPattern = regexp.MustCompile(`^agent-(\d+)$`)

// NextAgentID returns agent-<n+1> where n is the largest numeric suffix in use.
func NextAgentID(c *Campaign) string {
	n := 0
	for _, a := range c.Agents {
		m := agentIDPattern.FindStringSubmatch(a.ID)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > n {
			n = v
		}
	}
	return "agent-" + strconv.Itoa(n+1)
}

// NewAgent appends a fresh agent built from the catalog templates and returns its index.
func NewAgent(c *Campaign, ref *ArcReference, d AgentDraft) (int, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return -1, invalid("请输入姓名")
	}
	if d.Anomaly == "" || d.Reality == "" || d.Competency == "" {
		return -1, invalid("请选择异常、现实和职能")
	}
	a := Agent{
		ID:         NextAgentID(c),
		Name:       name,
		Aka:        strings.TrimSpace(d.Aka),
		WallTracks: &WallTracks{},
		QA:         make(map[string]Int, len(QAQualities)),
		Items:      []ClaimedItem{},
		Arc: &Arc{
			Anomaly: &AnomalyArc{Choice: d.Anomaly, Abilities: ref.templateAbilities(d.Anomaly)},
			Reality: &RealityArc{Choice: d.Reality, Relationships: []Relationship{}},
		},
	}
	if a.Arc.Anomaly.Abilities == nil {
		a.Arc.Anomaly.Abilities = []Ability{}
	}
	for _, q := range QAQualities {
		a.QA[q] = 0
	}
	if rr, ok := ref.Reality(d.Reality); ok {
		a.Arc.Reality.Trigger = rr.Trigger.clone()
		a.Arc.Reality.Release = rr.Release.clone()
	}
	comp := &CompetencyArc{Choice: d.Competency}
	if cr, ok := ref.Competency(d.Competency); ok {
		comp.Directive = cr.Directive.clone()
		if cr.Permissions != nil {
			comp.Permissions = append([]string(nil), cr.Permissions...)
		}
		if cr.InitialItem != nil {
			a.Items = append(a.Items, ClaimedItem{Name: cr.InitialItem.Name, Description: cr.InitialItem.Description})
		}
	}
	a.Arc.Competency = comp
	c.Agents = append(c.Agents, a)
	return len(c.Agents) - 1, nil
}

// AddNews prepends an entry dated today (YYYY-MM-DD). Blank text is ignored.
func AddNews(c *Campaign, text, today string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c.Agency.News = append([]NewsItem{{Date: today, Text: text}}, c.Agency.News...)
	return true
}

func RemoveNews(c *Campaign, i int) error {
	if i < 0 || i >= len(c.Agency.News) {
		return ErrIndexOutOfRange
	}
	c.Agency.News = append(c.Agency.News[:i:i], c.Agency.News[i+1:]...)
	return nil
}

// SpendChaos deducts cost×count from the agency's chaos and returns the total spent.
// count below 1 counts as 1; cost must be positive.
func SpendChaos(c *Campaign, cost, count int) (int, error) {
	if cost < 1 {
		return 0, invalid("代价必须为正数")
	}
	count = max(1, count)
	total := cost * count
	if total > c.Agency.Chaos.Value() {
		return 0, ErrInsufficientChaos
	}
	c.Agency.Chaos -= Int(total)
	return total, nil
}

func SetGMProfile(c *Campaign, p GMProfile) {
	c.GM = &p
}

// SearchCatalog filters the item catalog by name.
func SearchCatalog(items ItemCatalog, term string) []CatalogItem {
	return items.Search(term)
}
