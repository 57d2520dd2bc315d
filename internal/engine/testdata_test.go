package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const testReference = `{
  "异常": [
    {"id": "低语", "abilities": [
      {"name": "回声", "description": "重复最后一句话。"},
      {"name": "静默", "description": "让房间安静下来。"}
    ]},
    {"id": "空白", "abilities": []}
  ],
  "现实": [
    {"id": "看护者", "现实触发器": {"name": "照料", "description": "有人需要你。"}, "过载解除": {"name": "放手", "description": "让他们自己来。"}},
    {"id": "追星族", "现实触发器": {"name": "签名", "description": "见到偶像。"}}
  ],
  "职能": [
    {"id": "公关", "首要指令": {"name": "微笑", "description": "始终保持微笑。"}, "许可行为": ["握手", "发名片"],
     "初始申领物": {"name": "工牌", "description": "证明你的身份。"}}
  ]
}`

const testItems = `{"items": [
  {"id": "pen", "name": "Red Pen", "price": 2, "description": "Writes red."},
  {"name": "Umbrella", "price": "3", "description": "Keeps you dry."},
  {"id": "map", "name": "City Map", "description": "Mostly accurate."}
]}`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := &Catalog{Rules: DefaultRules()}
	require.NoError(t, json.Unmarshal([]byte(testReference), &cat.Reference))
	require.NoError(t, json.Unmarshal([]byte(testItems), &cat.Items))
	return cat
}

func decodeCampaign(t *testing.T, doc string) Campaign {
	t.Helper()
	var c Campaign
	require.NoError(t, json.Unmarshal([]byte(doc), &c))
	return c
}
