package engine

import "strings"

// ArcReference is the read-only catalog of arc templates (arc-reference.json).
type ArcReference struct {
	Anomalies    []AnomalyRef    `json:"异常"`
	Realities    []RealityRef    `json:"现实"`
	Competencies []CompetencyRef `json:"职能"`
}

type AnomalyRef struct {
	ID        string    `json:"id"`
	Abilities []Ability `json:"abilities,omitempty"`
}

type RealityRef struct {
	ID      string   `json:"id"`
	Trigger *Feature `json:"现实触发器,omitempty"`
	Release *Feature `json:"过载解除,omitempty"`
}

type CompetencyRef struct {
	ID          string   `json:"id"`
	Directive   *Feature `json:"首要指令,omitempty"`
	Permissions []string `json:"许可行为,omitempty"`
	InitialItem *Feature `json:"初始申领物,omitempty"`
}

func (r *ArcReference) Anomaly(id string) (AnomalyRef, bool) {
	if r == nil || id == "" {
		return AnomalyRef{}, false
	}
	for _, a := range r.Anomalies {
		if a.ID == id {
			return a, true
		}
	}
	return AnomalyRef{}, false
}

func (r *ArcReference) Reality(id string) (RealityRef, bool) {
	if r == nil || id == "" {
		return RealityRef{}, false
	}
	for _, x := range r.Realities {
		if x.ID == id {
			return x, true
		}
	}
	return RealityRef{}, false
}

func (r *ArcReference) Competency(id string) (CompetencyRef, bool) {
	if r == nil || id == "" {
		return CompetencyRef{}, false
	}
	for _, c := range r.Competencies {
		if c.ID == id {
			return c, true
		}
	}
	return CompetencyRef{}, false
}

// templateAbilities copies the catalog abilities of the anomaly as fresh practicable instances.
func (r *ArcReference) templateAbilities(choice string) []Ability {
	ref, ok := r.Anomaly(choice)
	if !ok || len(ref.Abilities) == 0 {
		return nil
	}
	out := make([]Ability, len(ref.Abilities))
	for i, ab := range ref.Abilities {
		practiced := false
		out[i] = Ability{
			Name:        ab.Name,
			Description: ab.Description,
			Practiced:   &practiced,
			WellKnown:   &WellKnown{},
		}
	}
	return out
}

// CatalogItem is an entry of items.json.
type CatalogItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       *Int   `json:"price,omitempty"`
	Description string `json:"description"`
}

// Key is the identifier pickers use: the id, or the name for entries without one.
func (it CatalogItem) Key() string {
	if it.ID != "" {
		return it.ID
	}
	return it.Name
}

type ItemCatalog struct {
	Items []CatalogItem `json:"items"`
}

func (c ItemCatalog) Find(key string) (CatalogItem, bool) {
	for _, it := range c.Items {
		if it.Key() == key {
			return it, true
		}
	}
	return CatalogItem{}, false
}

// Search filters by case-insensitive substring of the name. An empty term returns everything.
func (c ItemCatalog) Search(term string) []CatalogItem {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return append([]CatalogItem(nil), c.Items...)
	}
	var out []CatalogItem
	for _, it := range c.Items {
		if strings.Contains(strings.ToLower(it.Name), term) {
			out = append(out, it)
		}
	}
	return out
}

// Catalog bundles the read-only data the renderer and reconciler consult.
type Catalog struct {
	Reference ArcReference
	Items     ItemCatalog
	Rules     Rules
}
