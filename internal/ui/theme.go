package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

type palette struct {
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Accent    lipgloss.Color
	AccentAlt lipgloss.Color
	Border    lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Danger    lipgloss.Color
	BoxFill   lipgloss.Color
	BoxEmpty  lipgloss.Color
}

var palettes = map[string]palette{
	"catppuccin": {
		Text:      lipgloss.Color("#cdd6f4"),
		Muted:     lipgloss.Color("#a6adc8"),
		Accent:    lipgloss.Color("#cba6f7"),
		AccentAlt: lipgloss.Color("#f38ba8"),
		Border:    lipgloss.Color("#585b70"),
		Success:   lipgloss.Color("#94e2d5"),
		Warning:   lipgloss.Color("#f9e2af"),
		Danger:    lipgloss.Color("#f38ba8"),
		BoxFill:   lipgloss.Color("#94e2d5"),
		BoxEmpty:  lipgloss.Color("#45475a"),
	},
	"dracula": {
		Text:      lipgloss.Color("#f8f8f2"),
		Muted:     lipgloss.Color("#6272a4"),
		Accent:    lipgloss.Color("#ff79c6"),
		AccentAlt: lipgloss.Color("#bd93f9"),
		Border:    lipgloss.Color("#44475a"),
		Success:   lipgloss.Color("#50fa7b"),
		Warning:   lipgloss.Color("#f1fa8c"),
		Danger:    lipgloss.Color("#ff5555"),
		BoxFill:   lipgloss.Color("#50fa7b"),
		BoxEmpty:  lipgloss.Color("#3c4053"),
	},
	"gruvbox": {
		Text:      lipgloss.Color("#ebdbb2"),
		Muted:     lipgloss.Color("#a89984"),
		Accent:    lipgloss.Color("#fabd2f"),
		AccentAlt: lipgloss.Color("#d3869b"),
		Border:    lipgloss.Color("#665c54"),
		Success:   lipgloss.Color("#b8bb26"),
		Warning:   lipgloss.Color("#fe8019"),
		Danger:    lipgloss.Color("#fb4934"),
		BoxFill:   lipgloss.Color("#b8bb26"),
		BoxEmpty:  lipgloss.Color("#504945"),
	},
	"agency": {
		Text:      lipgloss.Color("#e8e6e3"),
		Muted:     lipgloss.Color("#8a8f98"),
		Accent:    lipgloss.Color("#e03c31"),
		AccentAlt: lipgloss.Color("#f2a900"),
		Border:    lipgloss.Color("#3a3f47"),
		Success:   lipgloss.Color("#7bc67b"),
		Warning:   lipgloss.Color("#f2a900"),
		Danger:    lipgloss.Color("#e03c31"),
		BoxFill:   lipgloss.Color("#e03c31"),
		BoxEmpty:  lipgloss.Color("#3a3f47"),
	},
}

const defaultTheme = "agency"

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultTheme]
}

func themeNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string, step int) string {
	names := themeNames()
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, name := range names {
		if name == current {
			idx = i
			break
		}
	}
	idx = (idx + step) % len(names)
	if idx < 0 {
		idx += len(names)
	}
	return names[idx]
}

// styles are the lipgloss styles derived from a palette.
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	text     lipgloss.Style
	muted    lipgloss.Style
	focus    lipgloss.Style
	selected lipgloss.Style
	warning  lipgloss.Style
	danger   lipgloss.Style
	success  lipgloss.Style
	outcome  lipgloss.Style
	fill     lipgloss.Style
	empty    lipgloss.Style
	card     lipgloss.Style
	panel    lipgloss.Style
	modal    lipgloss.Style
	status   lipgloss.Style
}

func newStyles(p palette) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		header:   lipgloss.NewStyle().Bold(true).Foreground(p.Text),
		text:     lipgloss.NewStyle().Foreground(p.Text),
		muted:    lipgloss.NewStyle().Foreground(p.Muted),
		focus:    lipgloss.NewStyle().Reverse(true).Bold(true),
		selected: lipgloss.NewStyle().Foreground(p.AccentAlt).Bold(true),
		warning:  lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		danger:   lipgloss.NewStyle().Foreground(p.Danger).Bold(true),
		success:  lipgloss.NewStyle().Foreground(p.Success),
		outcome:  lipgloss.NewStyle().Foreground(p.AccentAlt).Bold(true),
		fill:     lipgloss.NewStyle().Foreground(p.BoxFill),
		empty:    lipgloss.NewStyle().Foreground(p.BoxEmpty),
		card:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Border).Padding(0, 1),
		panel:    lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(p.Border).Padding(0, 1),
		modal:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(p.Accent).Padding(1, 2),
		status:   lipgloss.NewStyle().Foreground(p.Muted),
	}
}
