// Package event defines the record handed to feed consumers.
package event

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/corbtastik/incident-visualizer/internal/cursor"
)

// Event is one record from a category collection. Events are treated as
// immutable once delivered; consumers receive copies of the slices that hold
// them and must not mutate Fields.
type Event struct {
	Key      cursor.Key     `json:"key"`
	Category string         `json:"category,omitempty"`
	Fields   map[string]any `json:"fields"`
}

// Lookup resolves a dotted path ("serviceIssue.type") against Fields.
func (e Event) Lookup(path string) (any, bool) {
	var cur any = e.Fields
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Text returns the string at path, or "" when absent or not a string.
func (e Event) Text(path string) string {
	v, ok := e.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Float returns the number at path.
func (e Event) Float(path string) (float64, bool) {
	v, ok := e.Lookup(path)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// IssueType returns serviceIssue.type, the incident classification.
func (e Event) IssueType() string { return e.Text("serviceIssue.type") }

// Preview is the condensed "last event" card.
type Preview struct {
	ID   string   `json:"id"`
	City string   `json:"city,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	Type string   `json:"type,omitempty"`
}

// Preview condenses the event for display.
func (e Event) Preview() Preview {
	p := Preview{ID: cursor.Encode(e.Key), City: e.Text("city"), Type: e.IssueType()}
	if lat, ok := e.Float("lat"); ok {
		p.Lat = &lat
	}
	if lng, ok := e.Float("lng"); ok {
		p.Lng = &lng
	}
	return p
}

func (p Preview) String() string {
	var b strings.Builder
	b.WriteString(p.ID)
	if p.Type != "" {
		fmt.Fprintf(&b, " type=%s", p.Type)
	}
	if p.City != "" {
		fmt.Fprintf(&b, " city=%s", p.City)
	}
	if p.Lat != nil && p.Lng != nil {
		fmt.Fprintf(&b, " at=%.4f,%.4f", *p.Lat, *p.Lng)
	}
	return b.String()
}
