package category

import (
	"reflect"
	"testing"
)

func TestDefaultsRegistry(t *testing.T) {
	r := MustDefaults()
	c, ok := r.Lookup("infrastructure")
	if !ok || c.Collection != "infrastructure_events" {
		t.Fatalf("lookup = %+v %v", c, ok)
	}
	if _, ok := r.Lookup("unknown"); ok {
		t.Fatalf("unknown category resolved")
	}
	want := []string{"business", "consumer", "emerging_tech", "federal", "infrastructure"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v", got)
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		cats []Category
	}{
		{"empty", nil},
		{"bad name", []Category{{Name: "Bad Name"}}},
		{"duplicate", []Category{{Name: "a"}, {Name: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.cats); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestCollectionDefaultAndDedup(t *testing.T) {
	r, err := NewRegistry([]Category{{Name: "alpha"}, {Name: "beta", Collection: "shared"}, {Name: "gamma", Collection: "shared"}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	c, _ := r.Lookup("alpha")
	if c.Collection != "alpha_events" {
		t.Fatalf("default collection = %q", c.Collection)
	}
	if got := r.Collections(); !reflect.DeepEqual(got, []string{"alpha_events", "shared"}) {
		t.Fatalf("collections = %v", got)
	}
}
