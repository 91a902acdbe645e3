package runtime

import "sort"

// --------------------------------------------------------------------------
// Access Keys
// --------------------------------------------------------------------------

// Access names one unit-sharable resource. The substrate treats keys as
// opaque: two units conflict iff one writes a key the other reads or writes.
// Callers are responsible for encoding their resources (a counter, a cursor
// row, a message slot) into distinct keys.
type Access uint64

// lockStep is one entry of a unit's resolved locking plan.
type lockStep struct {
	key   Access
	write bool
}

// buildPlan merges the declared read and write sets into a deduplicated
// locking plan sorted by key. Write access dominates: a key that appears in
// both sets is locked exclusively. The global sort order is what makes
// multi-resource acquisition deadlock-free.
func buildPlan(reads, writes []Access) []lockStep {
	mode := make(map[Access]bool, len(reads)+len(writes))
	for _, key := range reads {
		if _, ok := mode[key]; !ok {
			mode[key] = false
		}
	}
	for _, key := range writes {
		mode[key] = true
	}

	plan := make([]lockStep, 0, len(mode))
	for key, write := range mode {
		plan = append(plan, lockStep{key: key, write: write})
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].key < plan[j].key })
	return plan
}
