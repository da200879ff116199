package uitree

import (
	"fmt"
	"strings"
)

// Diff is the structural comparison of two element lists captured at
// different times from the same device.
type Diff struct {
	Changed  bool           `json:"changed"`
	Added    []*Element     `json:"added,omitempty"`
	Removed  []*Element     `json:"removed,omitempty"`
	Modified []Modification `json:"modified,omitempty"`
}

// Modification pairs the before/after views of one element whose flags
// changed between snapshots.
type Modification struct {
	Before *Element `json:"before"`
	After  *Element `json:"after"`
}

// identityKey approximates element identity across snapshots. Refs are
// call-scoped and never participate; identity is (role, label,
// identifier). When two elements collide on the tuple (two identical list
// rows), matching falls back to list position: the first unmatched
// occurrence wins. That positional tie-break is an approximation, and a
// reorder of otherwise identical elements is reported as unchanged.
func identityKey(e *Element) string {
	return string(e.Role) + "\x00" + e.Label + "\x00" + e.Identifier
}

// Compare diffs two ordered element lists. Two empty lists are unchanged.
// Growth, shrinkage, or any element's label or flags changing reports
// Changed; a label change breaks identity and therefore surfaces as one
// removal plus one addition. Bounds are display-only and never compared.
func Compare(before, after []*Element) *Diff {
	diff := &Diff{}

	// Index unconsumed before-elements by identity, in list order.
	pending := make(map[string][]int, len(before))
	for i, e := range before {
		key := identityKey(e)
		pending[key] = append(pending[key], i)
	}

	matched := make([]bool, len(before))
	for _, e := range after {
		key := identityKey(e)
		queue := pending[key]
		if len(queue) == 0 {
			diff.Added = append(diff.Added, e)
			continue
		}
		idx := queue[0]
		pending[key] = queue[1:]
		matched[idx] = true
		if !flagsEqual(before[idx].Flags, e.Flags) {
			diff.Modified = append(diff.Modified, Modification{Before: before[idx], After: e})
		}
	}

	for i, e := range before {
		if !matched[i] {
			diff.Removed = append(diff.Removed, e)
		}
	}

	diff.Changed = len(diff.Added) > 0 || len(diff.Removed) > 0 || len(diff.Modified) > 0
	return diff
}

// Summary renders the diff as one short human-readable line.
func (d *Diff) Summary() string {
	if !d.Changed {
		return "unchanged"
	}
	parts := make([]string, 0, 3)
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	if n := len(d.Modified); n > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", n))
	}
	return strings.Join(parts, ", ")
}
