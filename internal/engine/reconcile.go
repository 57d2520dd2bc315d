package engine

// Snapshot is the raw content of an editor's form controls at save time. Numeric fields
// stay strings so that parsing and its fallback to 0 happen in one place.
type Snapshot struct {
	Agency AgencyFields
	Agents map[int]AgentFields // keyed by agent index; agents without an entry are left alone
}

type AgencyFields struct {
	Chaos     string
	LooseEnds string
}

type AgentFields struct {
	Scores       map[string]string // keyed by ScoreKeys; a missing key reads as 0
	Flag         bool
	Socks        bool
	Abilities    map[int]AbilityFields
	RealitySplit string
	QA           map[string]QAFields
}

type AbilityFields struct {
	Practiced  bool
	WellKnownA []bool
	WellKnownB []bool
}

type QAFields struct {
	Max     string
	Current string
}

// Reconcile folds snap into a copy of prev. prev is never modified. The returned overlay
// carries the QA current values, which are not part of the document.
func Reconcile(prev Campaign, snap Snapshot, cat *Catalog) (Campaign, QAOverlay) {
	next := prev.Clone()
	overlay := make(QAOverlay)

	next.Agency.Chaos = Int(ParseInt(snap.Agency.Chaos))
	next.Agency.LooseEnds = Int(ParseInt(snap.Agency.LooseEnds))

	for idx, f := range snap.Agents {
		a := next.Agent(idx)
		if a == nil {
			continue
		}
		for _, key := range ScoreKeys {
			a.setScore(key, ParseInt(f.Scores[key]))
		}
		a.Flag = f.Flag
		a.Socks = f.Socks
		a.Title = cat.Rules.AgencyTitle(a)

		reconcileAbilities(a, &cat.Reference, f.Abilities)

		if f.RealitySplit != "" || a.reality() != nil {
			a.ensureReality().Split = Int(clamp(ParseInt(f.RealitySplit), 0, MaxSplit))
		}

		if len(f.QA) > 0 {
			qa := a.ensureQA()
			cur := make(map[string]int, len(f.QA))
			for _, q := range QAQualities {
				field, ok := f.QA[q]
				if !ok {
					continue
				}
				hi := max(0, ParseInt(field.Max))
				qa[q] = Int(hi)
				cur[q] = clamp(ParseInt(field.Current), 0, hi)
			}
			overlay[idx] = cur
		}
	}
	return next, overlay
}

// reconcileAbilities writes practiced flags and well-known counts. Abilities shown from the
// catalog template are materialized first so that their edits have somewhere to land.
func reconcileAbilities(a *Agent, ref *ArcReference, fields map[int]AbilityFields) {
	if len(fields) == 0 {
		return
	}
	abilities, fromTemplate := displayedAbilities(a, ref)
	if len(abilities) == 0 {
		return
	}
	if fromTemplate {
		a.ensureAnomaly().Abilities = abilities
	}
	list := a.ensureAnomaly().Abilities
	for i := range list {
		ab := &list[i]
		f, ok := fields[i]
		if !ok || !ab.Practicable() {
			continue
		}
		practiced := f.Practiced
		ab.Practiced = &practiced
		if ab.WellKnown != nil {
			ab.WellKnown.A = Int(PrefixCount(f.WellKnownA))
			ab.WellKnown.B = Int(PrefixCount(f.WellKnownB))
		}
	}
}
