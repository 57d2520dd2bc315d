package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAbilityMaterializesTemplate(t *testing.T) {
	cat := testCatalog(t)
	a := &Agent{Arc: &Arc{Anomaly: &AnomalyArc{Choice: "低语"}}}

	err := AddAbility(a, &cat.Reference, AbilityDraft{Name: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "请输入能力名称", verr.Message)
	assert.Empty(t, a.Arc.Anomaly.Abilities)

	require.NoError(t, AddAbility(a, &cat.Reference, AbilityDraft{Name: " 新能力 ", Description: "d", Practicable: true}))
	abs := a.Arc.Anomaly.Abilities
	require.Len(t, abs, 3)
	assert.Equal(t, "回声", abs[0].Name)
	assert.Equal(t, "新能力", abs[2].Name)
	assert.False(t, *abs[2].Practiced)
	assert.Equal(t, WellKnown{}, *abs[2].WellKnown)

	require.NoError(t, AddAbility(a, &cat.Reference, AbilityDraft{Name: "plain"}))
	assert.False(t, a.Arc.Anomaly.Abilities[3].Practicable())
}

func TestChangeAndRemoveAbility(t *testing.T) {
	cat := testCatalog(t)
	practiced := true
	a := &Agent{Arc: &Arc{Anomaly: &AnomalyArc{Choice: "低语", Abilities: []Ability{
		{Name: "old", Practiced: &practiced, WellKnown: &WellKnown{A: 2}},
		{Name: "plain"},
	}}}}

	require.NoError(t, ChangeAbility(a, &cat.Reference, 0, AbilityDraft{Name: "new", Description: "x"}))
	ab := a.Arc.Anomaly.Abilities[0]
	assert.Equal(t, "new", ab.Name)
	assert.True(t, *ab.Practiced)
	assert.Equal(t, Int(2), ab.WellKnown.A)

	require.NoError(t, ChangeAbility(a, &cat.Reference, 1, AbilityDraft{Name: "plain2"}))
	assert.True(t, a.Arc.Anomaly.Abilities[1].Practicable())

	assert.ErrorIs(t, ChangeAbility(a, &cat.Reference, 5, AbilityDraft{Name: "n"}), ErrIndexOutOfRange)

	require.NoError(t, RemoveAbility(a, &cat.Reference, 0))
	require.Len(t, a.Arc.Anomaly.Abilities, 1)
	assert.Equal(t, "plain2", a.Arc.Anomaly.Abilities[0].Name)
}

func TestRemoveTemplateAbility(t *testing.T) {
	cat := testCatalog(t)
	a := &Agent{Arc: &Arc{Anomaly: &AnomalyArc{Choice: "低语"}}}
	require.NoError(t, RemoveAbility(a, &cat.Reference, 0))
	require.Len(t, a.Arc.Anomaly.Abilities, 1)
	assert.Equal(t, "静默", a.Arc.Anomaly.Abilities[0].Name)
}

func TestRelationships(t *testing.T) {
	a := &Agent{}
	err := SaveRelationship(a, nil, RelationshipDraft{Name: ""})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "请输入关系人名称", verr.Message)
	assert.Nil(t, a.Arc)

	require.NoError(t, SaveRelationship(a, nil, RelationshipDraft{Name: "Mom", Closeness: "15"}))
	require.NoError(t, SaveRelationship(a, nil, RelationshipDraft{Name: "Dad", Closeness: ""}))
	rels := a.Arc.Reality.Relationships
	require.Len(t, rels, 2)
	assert.Equal(t, Int(9), rels[0].Closeness)
	assert.Equal(t, Int(1), rels[1].Closeness)

	i := 1
	require.NoError(t, SaveRelationship(a, &i, RelationshipDraft{Name: "Father", Closeness: "4", BenefitActive: true}))
	assert.Equal(t, "Father", a.Arc.Reality.Relationships[1].Name)
	assert.True(t, a.Arc.Reality.Relationships[1].BenefitActive)

	bad := 3
	assert.ErrorIs(t, SaveRelationship(a, &bad, RelationshipDraft{Name: "x"}), ErrIndexOutOfRange)

	require.NoError(t, RemoveRelationship(a, 0))
	assert.Equal(t, "Father", a.Arc.Reality.Relationships[0].Name)
}

func TestSwitchRealityKeepsRelationshipsAndSplit(t *testing.T) {
	cat := testCatalog(t)
	a := &Agent{Arc: &Arc{Reality: &RealityArc{
		Choice:        "看护者",
		Split:         3,
		Relationships: []Relationship{{Name: "a"}, {Name: "b"}},
		Release:       &Feature{Name: "放手"},
	}}}

	require.NoError(t, SwitchReality(a, &cat.Reference, "追星族"))
	r := a.Arc.Reality
	assert.Equal(t, "追星族", r.Choice)
	assert.Equal(t, Int(3), r.Split)
	assert.Len(t, r.Relationships, 2)
	require.NotNil(t, r.Trigger)
	assert.Equal(t, "签名", r.Trigger.Name)
	assert.Nil(t, r.Release)

	var verr *ValidationError
	assert.ErrorAs(t, SwitchReality(a, &cat.Reference, "nope"), &verr)
	assert.Equal(t, "追星族", a.Arc.Reality.Choice)
}

func TestItems(t *testing.T) {
	cat := testCatalog(t)
	a := &Agent{Items: []ClaimedItem{{Name: "工牌"}}}

	require.NoError(t, ClaimItem(a, cat.Items, "pen"))
	require.NoError(t, ClaimItem(a, cat.Items, "Umbrella"))
	require.Len(t, a.Items, 3)
	assert.Equal(t, Int(3), *a.Items[2].Price)

	assert.ErrorIs(t, RemoveItem(a, 0), ErrInitialItem)
	assert.Len(t, a.Items, 3)
	assert.ErrorIs(t, RemoveItem(a, 9), ErrIndexOutOfRange)
	require.NoError(t, RemoveItem(a, 1))
	assert.Equal(t, "Umbrella", a.Items[1].Name)

	assert.Len(t, SearchCatalog(cat.Items, "MAP"), 1)
	assert.Len(t, SearchCatalog(cat.Items, ""), 3)
	assert.Empty(t, SearchCatalog(cat.Items, "zzz"))
}

func TestAdjustTrack(t *testing.T) {
	a := &Agent{}
	require.NoError(t, AdjustTrack(a, TrackReality, TrackMarked, 3))
	require.NoError(t, AdjustTrack(a, TrackReality, TrackStruck, -2))
	require.NoError(t, AdjustTrack(a, TrackAnomaly, TrackMarked, 50))
	assert.Equal(t, Int(3), a.WallTracks.Reality.Marked)
	assert.Equal(t, Int(0), a.WallTracks.Reality.Struck)
	assert.Equal(t, Int(TrackBoxes), a.WallTracks.Anomaly.Marked)
	assert.ErrorIs(t, AdjustTrack(a, "other", TrackMarked, 1), ErrUnknownTrack)

	SetRealitySplit(a, -1)
	assert.Equal(t, Int(0), a.Arc.Reality.Split)
}

func TestNewAgent(t *testing.T) {
	cat := testCatalog(t)
	c := decodeCampaign(t, `{"agency": {}, "agents": [{"id": "agent-4"}, {"id": "custom"}, {"id": "agent-2"}]}`)

	_, err := NewAgent(&c, &cat.Reference, AgentDraft{Anomaly: "低语", Reality: "看护者", Competency: "公关"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "请输入姓名", verr.Message)

	_, err = NewAgent(&c, &cat.Reference, AgentDraft{Name: "Ada", Anomaly: "低语"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "请选择异常、现实和职能", verr.Message)
	assert.Len(t, c.Agents, 3)

	idx, err := NewAgent(&c, &cat.Reference, AgentDraft{Name: "Ada", Aka: "A", Anomaly: "低语", Reality: "看护者", Competency: "公关"})
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
	a := c.Agents[idx]
	assert.Equal(t, "agent-5", a.ID)
	assert.Len(t, a.Arc.Anomaly.Abilities, 2)
	assert.Equal(t, "照料", a.Arc.Reality.Trigger.Name)
	assert.Equal(t, "微笑", a.Arc.Competency.Directive.Name)
	require.Len(t, a.Items, 1)
	assert.Equal(t, "工牌", a.Items[0].Name)
	assert.Len(t, a.QA, len(QAQualities))
	assert.Equal(t, Int(0), a.WallTracks.Competency.Marked)
}

func TestNewsAndChaos(t *testing.T) {
	c := DefaultCampaign()
	assert.False(t, AddNews(&c, "   ", "2026-01-01"))
	assert.True(t, AddNews(&c, "first", "2026-01-01"))
	assert.True(t, AddNews(&c, "second", "2026-01-02"))
	assert.Equal(t, "second", c.Agency.News[0].Text)
	require.NoError(t, RemoveNews(&c, 0))
	assert.Equal(t, "first", c.Agency.News[0].Text)
	assert.ErrorIs(t, RemoveNews(&c, 4), ErrIndexOutOfRange)

	c.Agency.Chaos = 10
	total, err := SpendChaos(&c, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	_, err = SpendChaos(&c, 4, 2)
	assert.True(t, errors.Is(err, ErrInsufficientChaos))
	assert.Equal(t, Int(7), c.Agency.Chaos)
	_, err = SpendChaos(&c, -2, 3)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr), "negative cost must not add chaos")
	assert.Equal(t, Int(7), c.Agency.Chaos)

	SetGMProfile(&c, GMProfile{Name: "GM"})
	assert.Equal(t, "GM", c.GM.Name)
}

func TestNewMission(t *testing.T) {
	now := time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("x", -5*3600))
	m := NewMission(MissionDraft{Codename: "夜莺"}, now)
	assert.Equal(t, "mission-1772685000000", m.ID)
	assert.Equal(t, "2026-03-05", m.Date)
	assert.Equal(t, Text("夜莺"), m.Codename)
	assert.Equal(t, Text(""), m.Rating)
}
