package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type promptKind int

const (
	promptNews promptKind = iota
	promptRemoveNews
	promptSpendChaos
	promptNewAgent
	promptGM
	promptClaim
	promptAddAbility
	promptChangeAbility
	promptRelationship
	promptReality
	promptValue
	promptReset
	promptMail
	promptMission
)

var promptTitles = map[promptKind]string{
	promptNews:          "新增新闻",
	promptRemoveNews:    "删除新闻",
	promptSpendChaos:    "消耗混沌值",
	promptNewAgent:      "新建特工",
	promptGM:            "GM 档案",
	promptClaim:         "申领物品",
	promptAddAbility:    "新增异常能力",
	promptChangeAbility: "修改异常能力",
	promptRelationship:  "关系",
	promptReality:       "切换现实",
	promptValue:         "输入数值",
	promptReset:         "初始化战役",
	promptMail:          "发送邮件（标题与内容皆空则清除）",
	promptMission:       "新建任务报告",
}

type step struct {
	label       string
	value       string
	suggestions []string
}

// prompt is a modal that collects one or more text answers in sequence.
type prompt struct {
	kind  promptKind
	agent int
	index int // entry being edited; -1 adds a new one
	field field
	steps []step
	at    int
	input textinput.Model
}

func newPrompt(kind promptKind, steps ...step) *prompt {
	p := &prompt{kind: kind, agent: -1, index: -1, steps: steps, input: textinput.New()}
	p.input.CharLimit = 400
	p.input.Width = 48
	p.input.ShowSuggestions = true
	p.load()
	return p
}

func (p *prompt) load() {
	s := p.steps[p.at]
	p.input.Prompt = s.label + "> "
	p.input.SetValue(s.value)
	p.input.CursorEnd()
	p.input.SetSuggestions(s.suggestions)
	p.input.Focus()
}

// advance stores the current answer and moves on. It reports whether all steps are answered.
func (p *prompt) advance() bool {
	p.steps[p.at].value = strings.TrimSpace(p.input.Value())
	if p.at == len(p.steps)-1 {
		return true
	}
	p.at++
	p.load()
	return false
}

// back returns to the previous step. It reports false on the first step.
func (p *prompt) back() bool {
	if p.at == 0 {
		return false
	}
	p.steps[p.at].value = p.input.Value()
	p.at--
	p.load()
	return true
}

func (p *prompt) answer(i int) string {
	if i < 0 || i >= len(p.steps) {
		return ""
	}
	return p.steps[i].value
}

func (p *prompt) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *prompt) view(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render(promptTitles[p.kind]))
	if len(p.steps) > 1 {
		b.WriteString(st.muted.Render("  " + itoa(p.at+1) + "/" + itoa(len(p.steps))))
	}
	b.WriteString("\n\n")
	for i := 0; i < p.at; i++ {
		b.WriteString(st.muted.Render(p.steps[i].label+": "+p.steps[i].value) + "\n")
	}
	b.WriteString(p.input.View() + "\n\n")
	b.WriteString(st.muted.Render("Enter 确认  Tab 补全  Esc 取消/返回"))
	return st.modal.Render(b.String())
}

func yes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "是", "1", "true":
		return true
	}
	return false
}
