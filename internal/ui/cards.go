package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/DaanHessen/agency-gm/internal/text"
)

func itoa(v int) string { return strconv.Itoa(v) }

var scoreNames = map[string]string{
	engine.ScoreCommendations: "嘉奖",
	engine.ScoreReprimands:    "申诫",
	engine.ScoreProbation:     "察看期",
	engine.ScoreMVP:           "MVP",
}

// cardRenderer draws one card. focus is nil when the card isn't focused.
type cardRenderer struct {
	st    styles
	cv    engine.CardView
	af    *agentForm
	focus *field
	width int
}

func (r cardRenderer) ctl(f field, s string) string {
	if r.focus != nil && *r.focus == f {
		return r.st.focus.Render(s)
	}
	return s
}

func check(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (r cardRenderer) render() string {
	var b strings.Builder
	head := r.st.header.Render(r.cv.Header)
	if r.cv.Title != "" {
		head += "  " + r.st.selected.Render(r.cv.Title)
	}
	side := "正面"
	if r.cv.Flipped {
		side = "背面"
	}
	b.WriteString(head + r.st.muted.Render("  "+r.cv.ID+" · "+side) + "\n")
	if r.cv.Flipped {
		r.back(&b)
	} else {
		r.front(&b)
	}
	style := r.st.card
	if r.focus != nil {
		style = style.BorderForeground(r.st.title.GetForeground())
	}
	if r.width > 4 {
		style = style.Width(r.width - 2)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

func (r cardRenderer) front(b *strings.Builder) {
	var scores []string
	for _, s := range r.cv.Scores {
		scores = append(scores, r.ctl(field{kind: fieldScore, key: s.Key},
			fmt.Sprintf("%s %s %s", s.Icon, scoreNames[s.Key], r.af.scores[s.Key])))
	}
	scores = append(scores,
		r.ctl(field{kind: fieldFlag}, check(r.af.flag)+" flag"),
		r.ctl(field{kind: fieldSocks}, check(r.af.socks)+" socks"))
	b.WriteString(strings.Join(scores, "  ") + "\n\n")

	b.WriteString(r.st.title.Render("资质保证") + "\n")
	var row []string
	for i, q := range r.cv.QA {
		cell := q.Quality + " " +
			r.ctl(field{kind: fieldQACurrent, key: q.Quality}, r.af.qaCurrent[q.Quality]) + "/" +
			r.ctl(field{kind: fieldQAMax, key: q.Quality}, r.af.qaMax[q.Quality])
		row = append(row, cell)
		if (i+1)%3 == 0 || i == len(r.cv.QA)-1 {
			b.WriteString(strings.Join(row, "   ") + "\n")
			row = row[:0]
		}
	}
	b.WriteString("\n")

	an := r.cv.Anomaly
	label := "异常：" + orDash(an.Choice)
	if an.FromTemplate {
		label += r.st.muted.Render("（模板）")
	}
	b.WriteString(r.st.title.Render(label) + "\n")
	if len(an.Abilities) == 0 {
		b.WriteString(r.st.muted.Render("  暂无能力") + "\n")
	}
	for _, ab := range an.Abilities {
		line := "• " + r.ctl(field{kind: fieldAbility, index: ab.Index}, r.st.header.Render(ab.Name))
		if fields, ok := r.af.abilities[ab.Index]; ok {
			line += "  " + r.ctl(field{kind: fieldPracticed, index: ab.Index}, check(fields.Practiced)+" 已练习")
			line += "  为人所知 " +
				r.ctl(field{kind: fieldWellKnownA, index: ab.Index}, "A "+boxes(fields.WellKnownA)) + " " +
				r.ctl(field{kind: fieldWellKnownB, index: ab.Index}, "B "+boxes(fields.WellKnownB))
		}
		b.WriteString(line + "\n")
		if ab.Description != "" {
			desc := text.Outcomes(text.Wrap(ab.Description, r.textWidth()), r.outcome)
			b.WriteString(indent(desc, "  ") + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(r.st.title.Render("申领物") + "\n")
	if len(r.cv.Items) == 0 {
		b.WriteString(r.st.muted.Render("  无") + "\n")
	}
	for _, it := range r.cv.Items {
		line := "• " + it.Name
		if it.Price != nil {
			line += fmt.Sprintf("  (%d)", *it.Price)
		}
		if !it.Removable {
			line += r.st.muted.Render("  初始")
		}
		b.WriteString(r.ctl(field{kind: fieldItem, index: it.Index}, line) + "\n")
		if it.Description != "" {
			b.WriteString(indent(text.Wrap(it.Description, r.textWidth()), "  ") + "\n")
		}
	}
}

func (r cardRenderer) back(b *strings.Builder) {
	re := r.cv.Reality
	b.WriteString(r.st.title.Render("现实："+orDash(re.Choice)) + "\n")
	split := engine.ParseInt(r.af.split)
	splitText := fmt.Sprintf("割裂进度 %d/%d", split, engine.MaxSplit)
	switch {
	case split >= engine.MaxSplit:
		splitText = r.st.danger.Render(splitText + " 现实失效")
	case re.SplitWarning || split >= engine.MaxSplit-1:
		splitText = r.st.warning.Render(splitText)
	}
	b.WriteString(r.ctl(field{kind: fieldSplit}, splitText) + "\n")
	if re.Trigger != nil {
		b.WriteString(r.feature("现实触发器", re.Trigger))
	}
	if re.Release != nil {
		b.WriteString(r.feature("过载解除", re.Release))
	}
	b.WriteString(r.st.header.Render("关系") + "\n")
	if len(re.Relationships) == 0 {
		b.WriteString(r.st.muted.Render("  暂无关系") + "\n")
	}
	for _, rel := range re.Relationships {
		line := fmt.Sprintf("• %s", rel.Name)
		if rel.Actor != "" {
			line += "（" + rel.Actor + "）"
		}
		line += fmt.Sprintf("  连结 %d", rel.Closeness)
		b.WriteString(r.ctl(field{kind: fieldRelationship, index: rel.Index}, line) + "\n")
		if rel.Description != "" {
			b.WriteString(indent(text.Wrap(rel.Description, r.textWidth()), "  ") + "\n")
		}
		if rel.Benefit != "" {
			benefit := "益处：" + rel.Benefit
			if rel.Active {
				benefit = r.st.success.Render(benefit + " ✓")
			}
			b.WriteString("  " + benefit + "\n")
		}
	}
	b.WriteString("\n")

	co := r.cv.Competency
	b.WriteString(r.st.title.Render("职能："+orDash(co.Choice)) + "\n")
	if co.Directive != nil {
		b.WriteString(r.feature("首要指令", co.Directive))
	}
	if len(co.Permissions) > 0 {
		b.WriteString(r.st.header.Render("许可行为") + "\n")
		for _, p := range co.Permissions {
			b.WriteString(indent(text.Wrap("• "+p, r.textWidth()), "  ") + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(r.st.title.Render("工作/生活平衡") + "\n")
	b.WriteString(r.st.muted.Render(text.Wrap(engine.TracksHelp, r.textWidth())) + "\n")
	for _, t := range r.cv.Tracks {
		b.WriteString(r.track(t))
	}
}

func (r cardRenderer) feature(label string, f *engine.Feature) string {
	s := r.st.header.Render(label) + "  " + f.Name + "\n"
	if f.Description != "" {
		s += indent(text.Outcomes(text.Wrap(f.Description, r.textWidth()), r.outcome), "  ") + "\n"
	}
	return s
}

func (r cardRenderer) track(t engine.TrackView) string {
	var cells strings.Builder
	for _, box := range t.Boxes {
		switch {
		case box.Struck:
			cells.WriteString(r.st.danger.Render("╳"))
		case box.Filled:
			cells.WriteString(r.st.fill.Render("■"))
		default:
			cells.WriteString(r.st.empty.Render("□"))
		}
	}
	line := fmt.Sprintf("%-4s %s  ", t.Name, cells.String()) +
		r.ctl(field{kind: fieldTrackMarked, key: t.Name}, fmt.Sprintf("标记 %d", t.Marked)) + " " +
		r.ctl(field{kind: fieldTrackStruck, key: t.Name}, fmt.Sprintf("划掉 %d", t.Struck))
	out := line + "\n"
	if r.focus != nil && r.focus.key == t.Name && (r.focus.kind == fieldTrackMarked || r.focus.kind == fieldTrackStruck) {
		var refs []string
		for i, box := range t.Boxes {
			if box.Ref != "" {
				refs = append(refs, fmt.Sprintf("%d:%s", i+1, box.Ref))
			}
		}
		out += r.st.muted.Render("  参照 "+strings.Join(refs, " ")) + "\n"
		out += r.st.muted.Render(indent(text.Wrap(t.Help, r.textWidth()), "  ")) + "\n"
	}
	return out
}

func (r cardRenderer) outcome(s string) string { return r.st.outcome.Render(s) }

func (r cardRenderer) textWidth() int {
	if r.width <= 10 {
		return 70
	}
	return r.width - 8
}

func boxes(row []bool) string {
	var b strings.Builder
	for _, on := range row {
		if on {
			b.WriteString("■")
		} else {
			b.WriteString("□")
		}
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// renderCards lays cards out in columns that fit the terminal width.
func renderCards(cards []string, width int) string {
	if len(cards) == 0 {
		return ""
	}
	cols := 1
	if width >= 170 {
		cols = 2
	}
	var rows []string
	for i := 0; i < len(cards); i += cols {
		end := min(i+cols, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
