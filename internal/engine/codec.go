package engine

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Int is a counter that decodes leniently: JSON numbers, numeric strings, null and
// anything else all decode, with unparseable input becoming 0.
type Int int

func (n Int) Value() int { return int(n) }

func (n *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Int(ParseInt(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Int(int(f))
	return nil
}

// ParseInt reads a leading optionally signed run of decimal digits after leading
// whitespace, returning 0 when there is none.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if digits > 18 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}

// extras keeps JSON members the model does not know about so a load/save round trip
// doesn't drop them.
type extras map[string]json.RawMessage

func collectExtras(data []byte, t reflect.Type) (extras, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range jsonKeys(t) {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return extras(all), nil
}

func mergeExtras(known []byte, ex extras) ([]byte, error) {
	if len(ex) == 0 {
		return known, nil
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(known, &all); err != nil {
		return nil, err
	}
	for k, v := range ex {
		if _, ok := all[k]; !ok {
			all[k] = v
		}
	}
	return marshalNoEscape(all)
}

func jsonKeys(t reflect.Type) []string {
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		keys = append(keys, name)
	}
	return keys
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (c *Campaign) UnmarshalJSON(b []byte) error {
	type plain Campaign
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	ex, err := collectExtras(b, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*c = Campaign(p)
	c.extra = ex
	return nil
}

func (c Campaign) MarshalJSON() ([]byte, error) {
	type plain Campaign
	if c.Agents == nil {
		c.Agents = []Agent{}
	}
	b, err := marshalNoEscape(plain(c))
	if err != nil {
		return nil, err
	}
	return mergeExtras(b, c.extra)
}

func (a *Agency) UnmarshalJSON(b []byte) error {
	type plain Agency
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	ex, err := collectExtras(b, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*a = Agency(p)
	a.extra = ex
	return nil
}

func (a Agency) MarshalJSON() ([]byte, error) {
	type plain Agency
	if a.News == nil {
		a.News = []NewsItem{}
	}
	b, err := marshalNoEscape(plain(a))
	if err != nil {
		return nil, err
	}
	return mergeExtras(b, a.extra)
}

func (a *Agent) UnmarshalJSON(b []byte) error {
	type plain Agent
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	ex, err := collectExtras(b, reflect.TypeOf(p))
	if err != nil {
		return err
	}
	*a = Agent(p)
	a.extra = ex
	return nil
}

func (a Agent) MarshalJSON() ([]byte, error) {
	type plain Agent
	b, err := marshalNoEscape(plain(a))
	if err != nil {
		return nil, err
	}
	return mergeExtras(b, a.extra)
}

// Clone returns a deep copy of the campaign.
func (c Campaign) Clone() Campaign {
	out := c
	out.extra = c.extra.clone()
	out.Agency.extra = c.Agency.extra.clone()
	if c.Agency.News != nil {
		out.Agency.News = append([]NewsItem(nil), c.Agency.News...)
	}
	if c.GM != nil {
		gm := *c.GM
		out.GM = &gm
	}
	if c.Agents != nil {
		out.Agents = make([]Agent, len(c.Agents))
		for i := range c.Agents {
			out.Agents[i] = c.Agents[i].Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the agent.
func (a Agent) Clone() Agent {
	out := a
	out.extra = a.extra.clone()
	if a.QA != nil {
		out.QA = make(map[string]Int, len(a.QA))
		for k, v := range a.QA {
			out.QA[k] = v
		}
	}
	if a.WallTracks != nil {
		wt := *a.WallTracks
		out.WallTracks = &wt
	}
	if a.Arc != nil {
		arc := Arc{}
		if an := a.Arc.Anomaly; an != nil {
			c := *an
			if an.Abilities != nil {
				c.Abilities = make([]Ability, len(an.Abilities))
				for i, ab := range an.Abilities {
					c.Abilities[i] = ab.clone()
				}
			}
			arc.Anomaly = &c
		}
		if r := a.Arc.Reality; r != nil {
			c := *r
			if r.Relationships != nil {
				c.Relationships = append([]Relationship(nil), r.Relationships...)
			}
			c.Trigger = r.Trigger.clone()
			c.Release = r.Release.clone()
			arc.Reality = &c
		}
		if comp := a.Arc.Competency; comp != nil {
			c := *comp
			c.Directive = comp.Directive.clone()
			if comp.Permissions != nil {
				c.Permissions = append([]string(nil), comp.Permissions...)
			}
			arc.Competency = &c
		}
		out.Arc = &arc
	}
	if a.Items != nil {
		out.Items = make([]ClaimedItem, len(a.Items))
		for i, it := range a.Items {
			out.Items[i] = it
			if it.Price != nil {
				p := *it.Price
				out.Items[i].Price = &p
			}
		}
	}
	return out
}

func (ab Ability) clone() Ability {
	out := ab
	if ab.Practiced != nil {
		p := *ab.Practiced
		out.Practiced = &p
	}
	if ab.WellKnown != nil {
		wk := *ab.WellKnown
		out.WellKnown = &wk
	}
	return out
}

func (f *Feature) clone() *Feature {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

func (e extras) clone() extras {
	if e == nil {
		return nil
	}
	out := make(extras, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
