package ui

import (
	"strconv"

	"github.com/DaanHessen/agency-gm/internal/engine"
)

// form holds what the editor's controls currently show. Like an HTML form it keeps
// numbers as text; engine.Reconcile parses them when the form is folded into the campaign.
type form struct {
	chaos     string
	looseEnds string
	agents    map[int]*agentForm
}

type agentForm struct {
	scores    map[string]string
	flag      bool
	socks     bool
	abilities map[int]engine.AbilityFields
	split     string
	qaMax     map[string]string
	qaCurrent map[string]string
}

func newForm(c *engine.Campaign, cards []engine.CardView) *form {
	f := &form{
		chaos:     strconv.Itoa(c.Agency.Chaos.Value()),
		looseEnds: strconv.Itoa(c.Agency.LooseEnds.Value()),
		agents:    make(map[int]*agentForm, len(cards)),
	}
	for _, cv := range cards {
		f.agents[cv.Index] = formFromCard(cv)
	}
	return f
}

func formFromCard(cv engine.CardView) *agentForm {
	af := &agentForm{
		scores:    make(map[string]string, len(cv.Scores)),
		flag:      cv.Flag,
		socks:     cv.Socks,
		abilities: map[int]engine.AbilityFields{},
		split:     strconv.Itoa(cv.Reality.Split),
		qaMax:     make(map[string]string, len(cv.QA)),
		qaCurrent: make(map[string]string, len(cv.QA)),
	}
	for _, s := range cv.Scores {
		af.scores[s.Key] = strconv.Itoa(s.Value)
	}
	for _, ab := range cv.Anomaly.Abilities {
		if !ab.Practicable {
			continue
		}
		af.abilities[ab.Index] = engine.AbilityFields{
			Practiced:  ab.Practiced,
			WellKnownA: append([]bool(nil), ab.WellKnownA...),
			WellKnownB: append([]bool(nil), ab.WellKnownB...),
		}
	}
	for _, q := range cv.QA {
		af.qaMax[q.Quality] = strconv.Itoa(q.Max)
		af.qaCurrent[q.Quality] = strconv.Itoa(q.Current)
	}
	return af
}

func (f *form) snapshot() engine.Snapshot {
	snap := engine.Snapshot{
		Agency: engine.AgencyFields{Chaos: f.chaos, LooseEnds: f.looseEnds},
		Agents: make(map[int]engine.AgentFields, len(f.agents)),
	}
	for idx, af := range f.agents {
		fields := engine.AgentFields{
			Scores:       af.scores,
			Flag:         af.flag,
			Socks:        af.socks,
			Abilities:    af.abilities,
			RealitySplit: af.split,
			QA:           make(map[string]engine.QAFields, len(af.qaMax)),
		}
		for q, hi := range af.qaMax {
			fields.QA[q] = engine.QAFields{Max: hi, Current: af.qaCurrent[q]}
		}
		snap.Agents[idx] = fields
	}
	return snap
}

type fieldKind int

const (
	fieldScore fieldKind = iota
	fieldFlag
	fieldSocks
	fieldQAMax
	fieldQACurrent
	fieldAbility
	fieldPracticed
	fieldWellKnownA
	fieldWellKnownB
	fieldItem
	fieldSplit
	fieldRelationship
	fieldTrackMarked
	fieldTrackStruck
)

// field is one focusable control of a card.
type field struct {
	kind  fieldKind
	key   string // score key, QA quality or track name
	index int    // ability, item or relationship index
}

// cardFields lists the focusable controls of a card side in display order.
func cardFields(cv engine.CardView) []field {
	var out []field
	if !cv.Flipped {
		for _, s := range cv.Scores {
			out = append(out, field{kind: fieldScore, key: s.Key})
		}
		out = append(out, field{kind: fieldFlag}, field{kind: fieldSocks})
		for _, q := range cv.QA {
			out = append(out,
				field{kind: fieldQAMax, key: q.Quality},
				field{kind: fieldQACurrent, key: q.Quality})
		}
		for _, ab := range cv.Anomaly.Abilities {
			out = append(out, field{kind: fieldAbility, index: ab.Index})
			if !ab.Practicable {
				continue
			}
			out = append(out,
				field{kind: fieldPracticed, index: ab.Index},
				field{kind: fieldWellKnownA, index: ab.Index},
				field{kind: fieldWellKnownB, index: ab.Index})
		}
		for _, it := range cv.Items {
			out = append(out, field{kind: fieldItem, index: it.Index})
		}
		return out
	}
	out = append(out, field{kind: fieldSplit})
	for _, rel := range cv.Reality.Relationships {
		out = append(out, field{kind: fieldRelationship, index: rel.Index})
	}
	for _, t := range cv.Tracks {
		out = append(out,
			field{kind: fieldTrackMarked, key: t.Name},
			field{kind: fieldTrackStruck, key: t.Name})
	}
	return out
}

// structural reports whether changing f edits the campaign directly rather than the form.
func (f field) structural() bool {
	switch f.kind {
	case fieldItem, fieldRelationship, fieldTrackMarked, fieldTrackStruck:
		return true
	}
	return false
}

func bump(s string, delta, lo, hi int) string {
	v := engine.ParseInt(s) + delta
	if v < lo {
		v = lo
	}
	if hi >= lo && v > hi {
		v = hi
	}
	return strconv.Itoa(v)
}

// adjust applies +delta (or a toggle, for checkboxes) to a form control. It reports
// whether the form changed.
func (af *agentForm) adjust(f field, delta int) bool {
	switch f.kind {
	case fieldScore:
		af.scores[f.key] = bump(af.scores[f.key], delta, 0, -1)
	case fieldFlag:
		af.flag = !af.flag
	case fieldSocks:
		af.socks = !af.socks
	case fieldQAMax:
		af.qaMax[f.key] = bump(af.qaMax[f.key], delta, 0, -1)
	case fieldQACurrent:
		af.qaCurrent[f.key] = bump(af.qaCurrent[f.key], delta, 0, engine.ParseInt(af.qaMax[f.key]))
	case fieldSplit:
		af.split = bump(af.split, delta, 0, engine.MaxSplit)
	case fieldPracticed:
		ab, ok := af.abilities[f.index]
		if !ok {
			return false
		}
		ab.Practiced = !ab.Practiced
		af.abilities[f.index] = ab
	case fieldWellKnownA, fieldWellKnownB:
		ab, ok := af.abilities[f.index]
		if !ok {
			return false
		}
		row := &ab.WellKnownA
		if f.kind == fieldWellKnownB {
			row = &ab.WellKnownB
		}
		n := engine.PrefixCount(*row)
		if delta > 0 {
			*row = engine.ToggleWellKnown(*row, n, true)
		} else {
			*row = engine.ToggleWellKnown(*row, n-1, false)
		}
		af.abilities[f.index] = ab
	default:
		return false
	}
	return true
}
