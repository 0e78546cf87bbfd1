// Package detector implements the failure detector: a pure function over a
// MemberTable and the local timeout counter that decides which entries to
// evict once their last-heard timestamp is older than TREMOVE ticks.
package detector

import "gossipmesh/internal/membership/table"

// Sweep evicts every entry whose age (timeoutCounter - entry.Timestamp)
// exceeds tremove, and returns the evicted entries so the caller can emit
// NODE_REMOVED events for them. Eviction is safe under iteration: Sweep
// collects victims from a snapshot first, then evicts in a second pass.
func Sweep(tbl *table.Table, timeoutCounter, tremove int64) []table.MemberEntry {
	var victims []table.MemberEntry
	for _, e := range tbl.Iter() {
		if timeoutCounter-e.Timestamp > tremove {
			victims = append(victims, e)
		}
	}
	for _, v := range victims {
		tbl.Evict(v.ID)
	}
	return victims
}
