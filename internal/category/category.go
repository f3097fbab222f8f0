package category

import (
	"fmt"
	"regexp"
	"sort"
)

// Category maps a public category name to its backing collection.
type Category struct {
	Name       string `yaml:"name" json:"name"`
	Collection string `yaml:"collection" json:"collection"`
}

var nameRe = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// Defaults returns the built-in category set.
func Defaults() []Category {
	return []Category{
		{Name: "infrastructure", Collection: "infrastructure_events"},
		{Name: "business", Collection: "business_events"},
		{Name: "consumer", Collection: "consumer_events"},
		{Name: "federal", Collection: "federal_events"},
		{Name: "emerging_tech", Collection: "emerging_tech_events"},
	}
}

// Registry is an immutable name -> collection table. It is built once from
// configuration and shared read-only.
type Registry struct {
	byName map[string]Category
	names  []string
}

// NewRegistry validates cats and builds a Registry. Names must be unique and
// match [a-z0-9_-]{1,64}; an empty collection defaults to "<name>_events".
func NewRegistry(cats []Category) (*Registry, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("category: at least one category is required")
	}
	r := &Registry{byName: make(map[string]Category, len(cats))}
	for _, c := range cats {
		if !nameRe.MatchString(c.Name) {
			return nil, fmt.Errorf("category: invalid name %q", c.Name)
		}
		if _, dup := r.byName[c.Name]; dup {
			return nil, fmt.Errorf("category: duplicate name %q", c.Name)
		}
		if c.Collection == "" {
			c.Collection = c.Name + "_events"
		}
		r.byName[c.Name] = c
		r.names = append(r.names, c.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustDefaults builds a Registry from Defaults.
func MustDefaults() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup resolves a category name.
func (r *Registry) Lookup(name string) (Category, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the sorted category names.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// All returns the categories sorted by name.
func (r *Registry) All() []Category {
	out := make([]Category, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

// Collections returns the distinct backing collections.
func (r *Registry) Collections() []string {
	seen := make(map[string]bool, len(r.names))
	var out []string
	for _, c := range r.All() {
		if !seen[c.Collection] {
			seen[c.Collection] = true
			out = append(out, c.Collection)
		}
	}
	return out
}
