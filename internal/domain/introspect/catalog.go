package introspect

import (
	"slices"
	"strings"
)

// Uncategorized is the category of fields missing from a catalog.
const Uncategorized = "uncategorized"

// Catalog is the per-dataset field configuration: which fields are critical,
// which category each belongs to, and optional descriptions.
type Catalog struct {
	Description    string
	CriticalFields []string
	Categories     map[string][]string // category -> fields
	Descriptions   map[string]string   // field -> text
}

type compiled struct {
	description  string
	criticalList []string
	critical     map[string]struct{}
	category     map[string]string
	descriptions map[string]string
}

func compile(c Catalog) *compiled {
	out := &compiled{
		description:  c.Description,
		criticalList: slices.Clone(c.CriticalFields),
		critical:     make(map[string]struct{}, len(c.CriticalFields)),
		category:     make(map[string]string),
		descriptions: c.Descriptions,
	}
	for _, f := range c.CriticalFields {
		out.critical[f] = struct{}{}
	}

	// Sorted so a field listed under two categories resolves the same way
	// every run.
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, f := range c.Categories[name] {
			if _, ok := out.category[f]; !ok {
				out.category[f] = name
			}
		}
	}
	return out
}

// lookup resolves a field. Criticality needs the exact name; the category
// falls back to dotted ancestors so that "ball_data.x" is filed under the
// category of "ball_data". configured is false when neither the field nor an
// ancestor is mentioned anywhere.
func (c *compiled) lookup(field string) (category string, critical bool, description string, configured bool) {
	category = Uncategorized
	if c == nil {
		return category, false, "", false
	}

	description, configured = c.descriptions[field]
	if _, ok := c.critical[field]; ok {
		critical, configured = true, true
	}
	for name := field; ; {
		if cat, ok := c.category[name]; ok {
			return cat, critical, description, true
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return category, critical, description, configured
}
