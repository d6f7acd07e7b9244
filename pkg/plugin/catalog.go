package plugin

import (
	"fmt"
	"sort"
)

// Catalog is the set of checks available to a scan. It is built once at
// start-up and passed to whatever runs checks.
type Catalog struct {
	registry Registry
	plugins  []Plugin
	byID     map[string]Plugin
}

// NewCatalog validates the metadata of every plugin against registry and
// returns a catalog ordered by plugin ID.
func NewCatalog(registry Registry, plugins ...Plugin) (*Catalog, error) {
	c := &Catalog{
		registry: registry,
		byID:     make(map[string]Plugin, len(plugins)),
	}
	for _, p := range plugins {
		md := p.Metadata()
		if err := md.Validate(registry); err != nil {
			return nil, err
		}
		if _, exists := c.byID[md.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate plugin id %s", ErrInvalidMetadata, md.ID)
		}
		c.byID[md.ID] = p
		c.plugins = append(c.plugins, p)
	}
	sort.Slice(c.plugins, func(i, j int) bool {
		return c.plugins[i].Metadata().ID < c.plugins[j].Metadata().ID
	})
	return c, nil
}

func (c *Catalog) Registry() Registry {
	return c.registry
}

func (c *Catalog) Get(id string) (Plugin, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Plugins() []Plugin {
	return append([]Plugin{}, c.plugins...)
}

func (c *Catalog) Len() int {
	return len(c.plugins)
}

// Select returns the plugins with the given IDs that belong to one of the
// given categories. Empty ids or categories do not filter. Unknown IDs are
// an error.
func (c *Catalog) Select(ids []string, categories []string) ([]Plugin, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := c.byID[id]; !ok {
			return nil, fmt.Errorf("plugin not found: %s", id)
		}
		wanted[id] = true
	}
	inCategory := make(map[string]bool, len(categories))
	for _, category := range categories {
		inCategory[category] = true
	}
	var selected []Plugin
	for _, p := range c.plugins {
		md := p.Metadata()
		if len(wanted) > 0 && !wanted[md.ID] {
			continue
		}
		if len(inCategory) > 0 && !inCategory[md.Category] {
			continue
		}
		selected = append(selected, p)
	}
	return selected, nil
}
