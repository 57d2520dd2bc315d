// Package text turns the campaign's prose (mission notes, ability descriptions) into
// terminal output.
package text

import (
	"errors"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer renders Markdown for a terminal of the given width.
type Renderer interface {
	Render(md string, width int) (string, error)
}

type glamourRenderer struct {
	style string
}

// NewGlamour renders with glamour using the named standard style, or the terminal's
// auto-detected style when style is empty.
func NewGlamour(style string) Renderer { return &glamourRenderer{style: style} }

func (g *glamourRenderer) Render(md string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wrapWidth(width))}
	if g.style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(g.style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func wrapWidth(width int) int {
	if width <= 4 {
		return 80
	}
	return width - 4
}

// plainRenderer is the offline fallback: the source, wrapped.
type plainRenderer struct{}

func NewPlain() Renderer { return plainRenderer{} }

func (plainRenderer) Render(md string, width int) (string, error) {
	return Wrap(md, wrapWidth(width)), nil
}

// WithFallback prefers primary and uses fallback when primary is nil or fails.
func WithFallback(primary, fallback Renderer) Renderer {
	return &fallbackRenderer{p: primary, f: fallback}
}

type fallbackRenderer struct{ p, f Renderer }

func (r *fallbackRenderer) Render(md string, width int) (string, error) {
	if r.p != nil {
		if s, err := r.p.Render(md, width); err == nil {
			return s, nil
		}
	}
	if r.f == nil {
		return "", errors.New("no renderer")
	}
	return r.f.Render(md, width)
}

// OutcomeLabels are the phrases ability descriptions use to introduce results.
var OutcomeLabels = []string{"成功时", "失败时"}

// Outcomes passes every outcome label in s through mark.
func Outcomes(s string, mark func(string) string) string {
	if s == "" || mark == nil {
		return s
	}
	pairs := make([]string, 0, 2*len(OutcomeLabels))
	for _, l := range OutcomeLabels {
		pairs = append(pairs, l, mark(l))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Wrap breaks lines longer than width runes at the last space, or hard at width when
// there is none (CJK text rarely has spaces).
func Wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		r := []rune(line)
		for len(r) > width {
			cut := width
			for j := width; j > 0; j-- {
				if r[j] == ' ' {
					cut = j
					break
				}
			}
			b.WriteString(strings.TrimRight(string(r[:cut]), " "))
			b.WriteByte('\n')
			r = []rune(strings.TrimLeft(string(r[cut:]), " "))
		}
		b.WriteString(string(r))
	}
	return b.String()
}
