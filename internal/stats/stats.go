// Package stats derives summary counts from event snapshots.
package stats

import (
	"sort"

	"github.com/corbtastik/incident-visualizer/internal/event"
)

// OtherType buckets events without a serviceIssue.type.
const OtherType = "other"

// IssueTypes lists the service issue classifications the synthetic source emits.
var IssueTypes = []string{
	"wireless", "fiber", "enterprise", "broadband", "wifi-hotspot", "iot",
	"satellite", "smart-city", "public-safety", "backhaul", "edge",
	"datacenter", "cloud-network",
}

// CountsByType counts events per serviceIssue.type. When allowed is non-nil,
// types outside it are skipped.
func CountsByType(events []event.Event, allowed map[string]bool) map[string]int {
	out := make(map[string]int)
	for _, ev := range events {
		t := ev.IssueType()
		if t == "" {
			t = OtherType
		}
		if allowed != nil && !allowed[t] {
			continue
		}
		out[t]++
	}
	return out
}

// Count is one row of a sorted tally.
type Count struct {
	Type  string
	Value int
}

// Sorted orders a tally by descending count, then name.
func Sorted(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for k, v := range counts {
		out = append(out, Count{Type: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Type < out[j].Type
	})
	return out
}
