package engine

import "strings"

// CardView is the render description of one agent card. Building it never touches the model.
type CardView struct {
	Index   int
	ID      string
	Header  string
	Title   string
	Flipped bool

	Scores []ScoreView
	Flag   bool
	Socks  bool
	QA     []QAView

	Anomaly    AnomalyView
	Reality    RealityView
	Competency CompetencyView
	Items      []ItemView

	Tracks []TrackView
}

type ScoreView struct {
	Key   string
	Icon  string
	Value int
}

type QAView struct {
	Quality string
	Max     int
	Current int
}

type AnomalyView struct {
	Choice       string
	Abilities    []AbilityView
	FromTemplate bool // abilities come from the catalog, not the agent
}

type AbilityView struct {
	Index       int
	Name        string
	Description string
	Practicable bool
	Practiced   bool
	WellKnownA  []bool
	WellKnownB  []bool
}

type RealityView struct {
	Choice        string
	Known         bool // the choice exists in the catalog
	Split         int
	SplitWarning  bool
	SplitFailed   bool
	Trigger       *Feature
	Release       *Feature
	Relationships []RelationshipView
}

type RelationshipView struct {
	Index              int
	Name               string
	Actor              string
	Description        string
	Benefit            string
	BenefitDescription string
	Active             bool
	Closeness          int
}

type CompetencyView struct {
	Choice      string
	Known       bool
	Directive   *Feature
	Permissions []string
}

type ItemView struct {
	Index       int
	Name        string
	Description string
	Price       *int
	Removable   bool
}

type TrackView struct {
	Name   string
	Help   string
	Marked int
	Struck int
	Boxes  []BoxView
}

type BoxView struct {
	Filled bool
	Struck bool
	Ref    string
}

const (
	MaxSplit     = 4
	splitWarning = 3
	MinCloseness = 1
	MaxCloseness = 9
)

var scoreIcons = map[string]string{
	ScoreCommendations: "★",
	ScoreReprimands:    "✗",
	ScoreProbation:     "▣",
	ScoreMVP:           "◆",
}

// TrackRefs labels boxes with their playwall reference, keyed by 0-based box index.
var TrackRefs = map[string]map[int]string{
	TrackCompetency: {2: "A3", 5: "D4", 8: "G3", 11: "J3", 14: "N3", 17: "Q3", 20: "T3", 23: "W8", 26: "Y2"},
	TrackReality:    {0: "C4", 3: "L11", 7: "E2", 9: "O4", 13: "T6", 16: "V2", 18: "X3", 20: "H5", 23: "E3"},
	TrackAnomaly:    {0: "H4", 1: "H3", 4: "U2", 6: "X2", 10: "N1", 12: "Q2", 16: "L10", 18: "G8", 22: "A7"},
}

const TracksHelp = "每当你标记一格时，你必须从所有其他记录条的末尾划掉一格。"

var TrackHelp = map[string]string{
	TrackCompetency: "每当你在职能记录条上标记一格时，将任意一项资质的「资质保证上限」提升1点，最高不超过9点。\n当你获得任务MVP时，在你的职能记录条上标记1格，且无需从其他记录条上移除一格。",
	TrackReality:    "每当你在现实记录条上标记一格时，将你与任意一段「关系」的「连结」提升1点。\n当你既未获得任务MVP也未进入察看期时，你可以将你与任意一段关系的连结提升1点。",
	TrackAnomaly:    "每当你在异常记录条上标记一格时，选择一项：练习或为人所知。\n• 练习：在任意一项异常能力上标记「已练习」。\n• 为人所知：从一项异常能力中移除「已练习」标记，并向你的团队提出该能力的问题。在获得最多票数的答案轨道上做标记，然后获得所有已解锁的能力。\n当你进入察看期时，在你的异常记录条上标记1格，且无需从其他记录条上移除一格。",
}

// BuildCards renders every selected agent in index order. Stale selections are skipped.
func BuildCards(c *Campaign, cat *Catalog, s *Session) []CardView {
	var out []CardView
	for _, idx := range s.Selected() {
		if v, ok := BuildCard(c, cat, s, idx); ok {
			out = append(out, v)
		}
	}
	return out
}

func BuildCard(c *Campaign, cat *Catalog, s *Session, index int) (CardView, bool) {
	a := c.Agent(index)
	if a == nil {
		return CardView{}, false
	}
	v := CardView{
		Index:   index,
		ID:      a.ID,
		Header:  AgentLabel(a, " — "),
		Title:   cat.Rules.AgencyTitle(a),
		Flipped: s.IsFlipped(index),
		Flag:    a.Flag,
		Socks:   a.Socks,
	}
	for _, key := range ScoreKeys {
		v.Scores = append(v.Scores, ScoreView{Key: key, Icon: scoreIcons[key], Value: a.Score(key)})
	}
	for _, q := range QAQualities {
		hi := a.QAMax(q)
		v.QA = append(v.QA, QAView{Quality: q, Max: hi, Current: s.QACurrent(index, q, hi)})
	}
	v.Anomaly = anomalyView(a, &cat.Reference)
	v.Reality = realityView(a, &cat.Reference)
	v.Competency = competencyView(a, &cat.Reference)
	for i, it := range a.Items {
		iv := ItemView{Index: i, Name: it.Name, Description: it.Description, Removable: i > 0}
		if it.Price != nil {
			p := it.Price.Value()
			iv.Price = &p
		}
		v.Items = append(v.Items, iv)
	}
	for _, name := range TrackNames {
		v.Tracks = append(v.Tracks, trackView(a, name))
	}
	return v, true
}

// AgentLabel is "name<sep>aka", with a placeholder for unnamed agents.
func AgentLabel(a *Agent, sep string) string {
	name := a.Name
	if strings.TrimSpace(name) == "" {
		name = "未命名"
	}
	if a.Aka == "" {
		return name
	}
	return name + sep + a.Aka
}

// displayedAbilities returns the abilities a card shows: the agent's own, or the catalog
// template for its anomaly when it has none yet.
func displayedAbilities(a *Agent, ref *ArcReference) ([]Ability, bool) {
	an := a.anomaly()
	if an != nil && len(an.Abilities) > 0 {
		return an.Abilities, false
	}
	return ref.templateAbilities(a.Choice(TrackAnomaly)), true
}

func anomalyView(a *Agent, ref *ArcReference) AnomalyView {
	abilities, fromTemplate := displayedAbilities(a, ref)
	v := AnomalyView{Choice: a.Choice(TrackAnomaly), FromTemplate: fromTemplate && len(abilities) > 0}
	for i, ab := range abilities {
		av := AbilityView{
			Index:       i,
			Name:        ab.Name,
			Description: ab.Description,
			Practicable: ab.Practicable(),
		}
		if ab.Practiced != nil {
			av.Practiced = *ab.Practiced
		}
		if av.Practicable {
			wk := WellKnown{}
			if ab.WellKnown != nil {
				wk = *ab.WellKnown
			}
			av.WellKnownA = WellKnownRow(wk.A.Value())
			av.WellKnownB = WellKnownRow(wk.B.Value())
		}
		v.Abilities = append(v.Abilities, av)
	}
	return v
}

func realityView(a *Agent, ref *ArcReference) RealityView {
	v := RealityView{Choice: a.Choice(TrackReality)}
	r := a.reality()
	if r != nil {
		v.Split = clamp(r.Split.Value(), 0, MaxSplit)
		for i, rel := range r.Relationships {
			v.Relationships = append(v.Relationships, RelationshipView{
				Index:              i,
				Name:               rel.Name,
				Actor:              rel.Actor,
				Description:        rel.Description,
				Benefit:            rel.Benefit,
				BenefitDescription: rel.BenefitDescription,
				Active:             rel.BenefitActive,
				Closeness:          clamp(rel.Closeness.Value(), MinCloseness, MaxCloseness),
			})
		}
	}
	v.SplitWarning = v.Split >= splitWarning
	v.SplitFailed = v.Split >= MaxSplit
	if rr, ok := ref.Reality(v.Choice); ok {
		v.Known = true
		v.Trigger = rr.Trigger
		v.Release = rr.Release
	}
	return v
}

func competencyView(a *Agent, ref *ArcReference) CompetencyView {
	v := CompetencyView{Choice: a.Choice(TrackCompetency)}
	if cr, ok := ref.Competency(v.Choice); ok {
		v.Known = true
		v.Directive = cr.Directive
		v.Permissions = cr.Permissions
	}
	return v
}

func trackView(a *Agent, name string) TrackView {
	marked, struck := a.TrackValues(name)
	tv := TrackView{Name: name, Help: TrackHelp[name], Marked: marked, Struck: struck}
	refs := TrackRefs[name]
	tv.Boxes = make([]BoxView, TrackBoxes)
	for i := range tv.Boxes {
		tv.Boxes[i] = BoxView{
			Filled: i < marked,
			Struck: i >= TrackBoxes-struck,
			Ref:    refs[i],
		}
	}
	return tv
}
