package engine

// Campaign is the statuses document: agency counters, GM profile and every agent sheet.
type Campaign struct {
	Agency Agency     `json:"agency"`
	GM     *GMProfile `json:"gm,omitempty"`
	Agents []Agent    `json:"agents"`

	extra extras
}

// Agency holds campaign-wide counters and the news feed (newest first).
type Agency struct {
	Chaos     Int        `json:"混沌值"`
	LooseEnds Int        `json:"散逸端"`
	News      []NewsItem `json:"news"`

	extra extras
}

type NewsItem struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

type GMProfile struct {
	Name string `json:"name"`
	Aka  string `json:"aka"`
	Lore string `json:"lore"`
}

// Agent is one character sheet.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Aka   string `json:"aka,omitempty"`
	Title string `json:"机构头衔,omitempty"` // derived from the competency track on save

	Commendations Int  `json:"嘉奖"`
	Reprimands    Int  `json:"申诫"`
	Probation     Int  `json:"察看期"`
	MVP           Int  `json:"mvp"`
	Flag          bool `json:"flag"`
	Socks         bool `json:"socks"`

	QA         map[string]Int `json:"qa,omitempty"`
	WallTracks *WallTracks    `json:"wallTracks,omitempty"`
	Arc        *Arc           `json:"arc,omitempty"`
	Items      []ClaimedItem  `json:"申领物,omitempty"`

	extra extras
}

// Quality names of the QA block, in display order.
var QAQualities = []string{"专注", "共情", "气场", "欺瞒", "主动", "专业", "活力", "坚毅", "诡秘"}

// Score keys of the four disciplinary counters, in display order.
const (
	ScoreCommendations = "嘉奖"
	ScoreReprimands    = "申诫"
	ScoreProbation     = "察看期"
	ScoreMVP           = "mvp"
)

var ScoreKeys = []string{ScoreCommendations, ScoreReprimands, ScoreProbation, ScoreMVP}

// Score returns the counter stored under key, or 0 for unknown keys.
func (a *Agent) Score(key string) int {
	switch key {
	case ScoreCommendations:
		return a.Commendations.Value()
	case ScoreReprimands:
		return a.Reprimands.Value()
	case ScoreProbation:
		return a.Probation.Value()
	case ScoreMVP:
		return a.MVP.Value()
	}
	return 0
}

func (a *Agent) setScore(key string, v int) {
	switch key {
	case ScoreCommendations:
		a.Commendations = Int(v)
	case ScoreReprimands:
		a.Reprimands = Int(v)
	case ScoreProbation:
		a.Probation = Int(v)
	case ScoreMVP:
		a.MVP = Int(v)
	}
}

// QAMax returns the persisted maximum for quality, 0 when absent.
func (a *Agent) QAMax(quality string) int {
	if a.QA == nil {
		return 0
	}
	return a.QA[quality].Value()
}

// Track names. Each is also the key of the matching arc.
const (
	TrackCompetency = "职能"
	TrackReality    = "现实"
	TrackAnomaly    = "异常"
)

// TrackNames is the display order of the three tracks.
var TrackNames = []string{TrackCompetency, TrackReality, TrackAnomaly}

const TrackBoxes = 30

type Track struct {
	Marked Int `json:"marked"`
	Struck Int `json:"struck"`
}

type WallTracks struct {
	Competency Track `json:"职能"`
	Reality    Track `json:"现实"`
	Anomaly    Track `json:"异常"`
}

// Get returns the named track, or nil for an unknown name.
func (w *WallTracks) Get(name string) *Track {
	if w == nil {
		return nil
	}
	switch name {
	case TrackCompetency:
		return &w.Competency
	case TrackReality:
		return &w.Reality
	case TrackAnomaly:
		return &w.Anomaly
	}
	return nil
}

// TrackValues returns the clamped marked/struck counts of the named track, zero when absent.
func (a *Agent) TrackValues(name string) (marked, struck int) {
	t := a.WallTracks.Get(name)
	if t == nil {
		return 0, 0
	}
	return clamp(t.Marked.Value(), 0, TrackBoxes), clamp(t.Struck.Value(), 0, TrackBoxes)
}

type Arc struct {
	Anomaly    *AnomalyArc    `json:"异常,omitempty"`
	Reality    *RealityArc    `json:"现实,omitempty"`
	Competency *CompetencyArc `json:"职能,omitempty"`
}

type AnomalyArc struct {
	Choice    string    `json:"choice"`
	Abilities []Ability `json:"abilities,omitempty"`
}

type RealityArc struct {
	Choice        string         `json:"choice"`
	Split         Int            `json:"割裂进度"`
	Relationships []Relationship `json:"关系,omitempty"`
	Trigger       *Feature       `json:"现实触发器,omitempty"`
	Release       *Feature       `json:"过载解除,omitempty"`
}

type CompetencyArc struct {
	Choice      string   `json:"choice"`
	Directive   *Feature `json:"首要指令,omitempty"`
	Permissions []string `json:"许可行为,omitempty"`
}

// Feature is a named rules text copied from the reference catalog.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Ability is an anomaly ability. It is practicable when either Practiced or WellKnown is present.
type Ability struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Practiced   *bool      `json:"已练习,omitempty"`
	WellKnown   *WellKnown `json:"wellKnown,omitempty"`
}

func (ab Ability) Practicable() bool { return ab.Practiced != nil || ab.WellKnown != nil }

type WellKnown struct {
	A Int `json:"a"`
	B Int `json:"b"`
}

type Relationship struct {
	Name               string `json:"name"`
	Actor              string `json:"actor"`
	Description        string `json:"description"`
	Benefit            string `json:"benefit"`
	BenefitDescription string `json:"benefitDescription"`
	BenefitActive      bool   `json:"benefitActive"`
	Closeness          Int    `json:"closeness"`
}

type ClaimedItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       *Int   `json:"price,omitempty"`
}

// anomaly, reality and competency return the arc entries without materializing them.
func (a *Agent) anomaly() *AnomalyArc {
	if a.Arc == nil {
		return nil
	}
	return a.Arc.Anomaly
}

func (a *Agent) reality() *RealityArc {
	if a.Arc == nil {
		return nil
	}
	return a.Arc.Reality
}

func (a *Agent) competency() *CompetencyArc {
	if a.Arc == nil {
		return nil
	}
	return a.Arc.Competency
}

// Choice returns the catalog id chosen for the named arc, "" when unset.
func (a *Agent) Choice(arc string) string {
	switch arc {
	case TrackAnomaly:
		if an := a.anomaly(); an != nil {
			return an.Choice
		}
	case TrackReality:
		if r := a.reality(); r != nil {
			return r.Choice
		}
	case TrackCompetency:
		if c := a.competency(); c != nil {
			return c.Choice
		}
	}
	return ""
}

// The ensure helpers materialize optional sub-documents. Only write paths call them.

func (a *Agent) ensureArc() *Arc {
	if a.Arc == nil {
		a.Arc = &Arc{}
	}
	return a.Arc
}

func (a *Agent) ensureAnomaly() *AnomalyArc {
	arc := a.ensureArc()
	if arc.Anomaly == nil {
		arc.Anomaly = &AnomalyArc{}
	}
	return arc.Anomaly
}

func (a *Agent) ensureReality() *RealityArc {
	arc := a.ensureArc()
	if arc.Reality == nil {
		arc.Reality = &RealityArc{}
	}
	return arc.Reality
}

func (a *Agent) ensureWallTracks() *WallTracks {
	if a.WallTracks == nil {
		a.WallTracks = &WallTracks{}
	}
	return a.WallTracks
}

func (a *Agent) ensureQA() map[string]Int {
	if a.QA == nil {
		a.QA = make(map[string]Int, len(QAQualities))
	}
	return a.QA
}

// Agent returns a pointer to the agent at index, or nil when out of range.
func (c *Campaign) Agent(index int) *Agent {
	if c == nil || index < 0 || index >= len(c.Agents) {
		return nil
	}
	return &c.Agents[index]
}

// DefaultCampaign is the reset state: zeroed agency, empty feed, empty GM profile, no agents.
func DefaultCampaign() Campaign {
	return Campaign{
		Agency: Agency{News: []NewsItem{}},
		GM:     &GMProfile{},
		Agents: []Agent{},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
