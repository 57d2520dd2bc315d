package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoAgents = `{
  "agency": {"混沌值": 3, "散逸端": 0, "news": []},
  "agents": [
    {"id": "agent-1", "name": "Ada", "aka": "Ghost", "嘉奖": 2, "申诫": "1", "察看期": 0, "mvp": 1, "flag": true, "socks": false,
     "qa": {"专注": 3, "共情": 1},
     "wallTracks": {"职能": {"marked": 5, "struck": 2}, "现实": {"marked": 40, "struck": -1}},
     "arc": {
       "异常": {"choice": "低语", "abilities": []},
       "现实": {"choice": "不存在", "割裂进度": 3, "关系": [{"name": "Mom", "closeness": 12}, {"name": "Dad", "closeness": 0}]},
       "职能": {"choice": "公关"}
     },
     "申领物": [{"name": "工牌", "description": "证明你的身份。"}, {"name": "Red Pen", "description": "Writes red.", "price": 2}]},
    {"id": "agent-2", "name": ""}
  ]
}`

func TestBuildCardsOrderAndStaleSelection(t *testing.T) {
	c := decodeCampaign(t, twoAgents)
	cat := testCatalog(t)
	s := NewSession()
	s.Select(1)
	s.Select(0)
	s.Select(7)

	cards := BuildCards(&c, cat, s)
	require.Len(t, cards, 2)
	assert.Equal(t, 0, cards[0].Index)
	assert.Equal(t, "Ada — Ghost", cards[0].Header)
	assert.Equal(t, "未命名", cards[1].Header)
}

func TestBuildCardFront(t *testing.T) {
	c := decodeCampaign(t, twoAgents)
	cat := testCatalog(t)
	s := NewSession()

	v, ok := BuildCard(&c, cat, s, 0)
	require.True(t, ok)
	assert.Equal(t, "高级专员", v.Title)
	assert.Equal(t, []int{2, 1, 0, 1}, []int{v.Scores[0].Value, v.Scores[1].Value, v.Scores[2].Value, v.Scores[3].Value})
	assert.True(t, v.Flag)

	require.Len(t, v.QA, len(QAQualities))
	assert.Equal(t, QAView{Quality: "专注", Max: 3, Current: 3}, v.QA[0])
	assert.Equal(t, QAView{Quality: "气场", Max: 0, Current: 0}, v.QA[2])

	assert.True(t, v.Anomaly.FromTemplate)
	require.Len(t, v.Anomaly.Abilities, 2)
	assert.True(t, v.Anomaly.Abilities[0].Practicable)
	assert.Equal(t, []bool{false, false, false}, v.Anomaly.Abilities[0].WellKnownA)

	assert.False(t, v.Reality.Known)
	assert.True(t, v.Reality.SplitWarning)
	assert.False(t, v.Reality.SplitFailed)
	require.Len(t, v.Reality.Relationships, 2)
	assert.Equal(t, 9, v.Reality.Relationships[0].Closeness)
	assert.Equal(t, 1, v.Reality.Relationships[1].Closeness)

	assert.True(t, v.Competency.Known)
	assert.Equal(t, []string{"握手", "发名片"}, v.Competency.Permissions)

	require.Len(t, v.Items, 2)
	assert.False(t, v.Items[0].Removable)
	assert.True(t, v.Items[1].Removable)
	require.NotNil(t, v.Items[1].Price)
	assert.Equal(t, 2, *v.Items[1].Price)
}

func TestBuildCardTracks(t *testing.T) {
	c := decodeCampaign(t, twoAgents)
	v, _ := BuildCard(&c, testCatalog(t), NewSession(), 0)

	require.Len(t, v.Tracks, 3)
	comp := v.Tracks[0]
	assert.Equal(t, TrackCompetency, comp.Name)
	require.Len(t, comp.Boxes, TrackBoxes)
	assert.True(t, comp.Boxes[4].Filled)
	assert.False(t, comp.Boxes[5].Filled)
	assert.True(t, comp.Boxes[28].Struck)
	assert.False(t, comp.Boxes[27].Struck)
	assert.Equal(t, "A3", comp.Boxes[2].Ref)
	assert.Equal(t, "", comp.Boxes[3].Ref)

	reality := v.Tracks[1]
	assert.Equal(t, 30, reality.Marked)
	assert.Equal(t, 0, reality.Struck)

	anomaly := v.Tracks[2]
	assert.Equal(t, 0, anomaly.Marked)
	assert.NotEmpty(t, anomaly.Help)
}

func TestTemplateRenderingDoesNotMutate(t *testing.T) {
	c := decodeCampaign(t, twoAgents)
	before, err := json.Marshal(c)
	require.NoError(t, err)

	s := NewSession()
	s.Select(0)
	s.Select(1)
	_ = BuildCards(&c, testCatalog(t), s)

	after, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
	assert.Empty(t, c.Agents[0].Arc.Anomaly.Abilities)
	assert.Nil(t, c.Agents[1].Arc)
	assert.Nil(t, c.Agents[1].WallTracks)
}

func TestSessionOverlayAndFlip(t *testing.T) {
	c := decodeCampaign(t, twoAgents)
	cat := testCatalog(t)
	s := NewSession()
	s.SetQACurrent(0, "专注", 1)
	s.SetFlipped(0, true)

	s.Select(0)
	s.Deselect(0)
	s.Select(0)
	v, _ := BuildCard(&c, cat, s, 0)
	assert.Equal(t, 1, v.QA[0].Current)
	assert.True(t, v.Flipped)

	s.SetQACurrent(0, "专注", 99)
	v, _ = BuildCard(&c, cat, s, 0)
	assert.Equal(t, 3, v.QA[0].Current)

	s.Reset()
	v, _ = BuildCard(&c, cat, s, 0)
	assert.Equal(t, 3, v.QA[0].Current)

	assert.False(t, s.Toggle(0))
	assert.Empty(t, s.Selected())
}
