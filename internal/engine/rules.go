package engine

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules are the game's lookup tables: rank names, agency limit thresholds and the
// effects chaos can buy.
type Rules struct {
	Titles       []string      `yaml:"titles"`
	Limits       []LimitRow    `yaml:"limits"`
	ChaosEffects []ChaosEffect `yaml:"chaos_effects"`
}

// ChaosEffect is one purchasable GM effect and its unit cost in chaos.
type ChaosEffect struct {
	Name string `yaml:"name"`
	Cost int    `yaml:"cost"`
}

// LimitRow is one threshold of the agency limits table. A nil StartingChaos or
// WeatherEvents means the row has none.
type LimitRow struct {
	Threshold     int    `yaml:"threshold"`
	StartingChaos *int   `yaml:"starting_chaos"`
	WeatherEvents *int   `yaml:"weather_events"`
	Restriction   string `yaml:"restriction"`
}

var defaultTitles = []string{"见习生", "专员", "高级专员", "助理总监", "总监", "地区总监", "副总裁", "高级副总裁", "执行副总裁", "主席"}

func intp(v int) *int { return &v }

var defaultLimits = []LimitRow{
	{Threshold: 11, StartingChaos: intp(5), WeatherEvents: intp(1), Restriction: "在看似正常的对话中，特工们的人际关系会自发地提醒他们机构的职责以及减少散逸端的重要性。"},
	{Threshold: 22, StartingChaos: intp(10), WeatherEvents: intp(2), Restriction: "要获得三重升华的效果，特工必须发表一段简短的演说，重申他们致力于清除散逸端和稳定现实的决心。"},
	{Threshold: 33, StartingChaos: intp(15), WeatherEvents: intp(3), Restriction: "在进行任何掷骰前，特工都必须（大声或以等效方式）数到3。"},
	{Threshold: 44, StartingChaos: intp(20), WeatherEvents: intp(4), Restriction: "在散逸端数量降至44以下前，特工不再有资格获得MVP。"},
	{Threshold: 55, StartingChaos: intp(25), WeatherEvents: intp(5), Restriction: "向特工们宣读以下内容：\"若散逸端数量达到66，所有特工的合同都将被终止。如果你们无法通过任务减少此数量，就必须额外加班：从所有工作/生活平衡条的末尾划掉一个格子，以自行清除6个散逸端。\""},
	{Threshold: 66, Restriction: "当前任务结束时，在役的外勤小队将被强制退休。他们必须从可用的退休选项中选择一个。如果没有，他们将被送往收容库。该管辖区的散逸端数量将减少11个，每有一名特工使用其职能提供的退休选项，便额外减少11个。"},
	{Threshold: 77, Restriction: "崩解即将开始。为避免此事，该分部的管辖区将被从存在中抹除。"},
}

var defaultChaosEffects = []ChaosEffect{
	{Name: "制造巧合", Cost: 1},
	{Name: "加剧异常现象", Cost: 2},
	{Name: "派出敌对单位", Cost: 3},
	{Name: "改写现场", Cost: 5},
	{Name: "天气事件", Cost: 10},
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		Titles:       append([]string(nil), defaultTitles...),
		Limits:       append([]LimitRow(nil), defaultLimits...),
		ChaosEffects: append([]ChaosEffect(nil), defaultChaosEffects...),
	}
}

// Effect looks a chaos effect up by name or by its 1-based position in the table.
func (r Rules) Effect(key string) (ChaosEffect, bool) {
	key = strings.TrimSpace(key)
	for _, e := range r.ChaosEffects {
		if e.Name == key {
			return e, true
		}
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 1 && i <= len(r.ChaosEffects) {
		return r.ChaosEffects[i-1], true
	}
	return ChaosEffect{}, false
}

// LoadRules reads a YAML override. Sections left out of the file keep their defaults;
// limit rows are sorted by threshold.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	var override Rules
	if err := yaml.Unmarshal(b, &override); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if len(override.Titles) > 0 {
		rules.Titles = override.Titles
	}
	if len(override.Limits) > 0 {
		rules.Limits = override.Limits
	}
	if len(override.ChaosEffects) > 0 {
		rules.ChaosEffects = override.ChaosEffects
	}
	sort.SliceStable(rules.Limits, func(i, j int) bool { return rules.Limits[i].Threshold < rules.Limits[j].Threshold })
	return rules, nil
}

// TitleTier maps the competency track's marked count to a rank index:
// 0–1 is the first rank, then every three boxes promote once, capped at the last rank.
func (r Rules) TitleTier(marked int) int {
	if marked <= 1 || len(r.Titles) == 0 {
		return 0
	}
	return min(1+(marked-2)/3, len(r.Titles)-1)
}

func (r Rules) Title(marked int) string {
	if len(r.Titles) == 0 {
		return ""
	}
	return r.Titles[r.TitleTier(marked)]
}

// AgencyTitle derives the agent's rank from its competency track alone.
func (r Rules) AgencyTitle(a *Agent) string {
	marked := 0
	if t := a.WallTracks.Get(TrackCompetency); t != nil {
		marked = max(0, t.Marked.Value())
	}
	return r.Title(marked)
}

// Limits is the evaluated limits table for a loose-ends count.
type Limits struct {
	Active       *LimitRow // highest threshold not above the count; nil below the first
	Restrictions []string  // every reached threshold's restriction, lowest first
}

// Evaluate reads the limits table for a loose-ends count.
func (r Rules) Evaluate(looseEnds int) Limits {
	var out Limits
	for i := range r.Limits {
		row := r.Limits[i]
		if looseEnds < row.Threshold {
			continue
		}
		out.Active = &row
		out.Restrictions = append(out.Restrictions, row.Restriction)
	}
	return out
}

const (
	limitNone    = "无"
	limitNoLimit = "—"
)

// StartingChaosLabel is the display value of the active row's starting chaos.
func (l Limits) StartingChaosLabel() string {
	if l.Active == nil {
		return limitNoLimit
	}
	return optionalLabel(l.Active.StartingChaos)
}

func (l Limits) WeatherEventsLabel() string {
	if l.Active == nil {
		return limitNoLimit
	}
	return optionalLabel(l.Active.WeatherEvents)
}

func optionalLabel(v *int) string {
	if v == nil {
		return limitNone
	}
	return fmt.Sprint(*v)
}
