package detector

import (
	"testing"

	"gossipmesh/internal/membership/table"
)

func TestSweepEvictsStaleEntries(t *testing.T) {
	tb := table.New()
	tb.Insert(1, 100, 0, 0)  // timestamp 0
	tb.Insert(2, 200, 0, 10) // timestamp 10, fresh

	victims := Sweep(tb, 21, 20) // 21 - 0 = 21 > 20, 21 - 10 = 11 <= 20
	if len(victims) != 1 || victims[0].ID != 1 {
		t.Fatalf("Sweep() victims = %v, want [id=1]", victims)
	}
	if tb.Contains(1) {
		t.Fatalf("entry 1 survived Sweep()")
	}
	if !tb.Contains(2) {
		t.Fatalf("entry 2 was wrongly evicted")
	}
}

func TestSweepBoundaryNotEvicted(t *testing.T) {
	tb := table.New()
	tb.Insert(1, 100, 0, 0)
	// timeoutCounter - timestamp == tremove exactly: must survive (strict >).
	Sweep(tb, 20, 20)
	if !tb.Contains(1) {
		t.Fatalf("entry evicted at exact TREMOVE boundary")
	}
}

func TestSweepNoVictims(t *testing.T) {
	tb := table.New()
	tb.Insert(1, 100, 0, 5)
	victims := Sweep(tb, 10, 20)
	if len(victims) != 0 {
		t.Fatalf("Sweep() victims = %v, want none", victims)
	}
}

func TestSweepSafeUnderMultipleVictims(t *testing.T) {
	tb := table.New()
	for id := uint32(1); id <= 5; id++ {
		tb.Insert(id, uint16(id), 0, 0)
	}
	victims := Sweep(tb, 100, 20)
	if len(victims) != 5 {
		t.Fatalf("Sweep() evicted %d entries, want 5", len(victims))
	}
	if tb.Len() != 0 {
		t.Fatalf("Len() = %d after sweeping all entries, want 0", tb.Len())
	}
}
