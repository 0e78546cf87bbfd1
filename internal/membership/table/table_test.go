package table

import "testing"

func TestInsertGetContains(t *testing.T) {
	tb := New()
	if tb.Contains(1) {
		t.Fatalf("Contains(1) = true on empty table")
	}
	tb.Insert(1, 100, 5, 0)
	if !tb.Contains(1) {
		t.Fatalf("Contains(1) = false after Insert")
	}
	e, ok := tb.Get(1)
	if !ok || e != (MemberEntry{ID: 1, Port: 100, Heartbeat: 5, Timestamp: 0}) {
		t.Fatalf("Get(1) = %v, %v", e, ok)
	}
}

func TestInsertIsNoopIfPresent(t *testing.T) {
	tb := New()
	tb.Insert(1, 100, 5, 0)
	tb.Insert(1, 200, 99, 10)
	e, _ := tb.Get(1)
	if e.Port != 100 || e.Heartbeat != 5 {
		t.Fatalf("second Insert overwrote existing entry: %v", e)
	}
}

func TestUpdate(t *testing.T) {
	tb := New()
	tb.Insert(1, 100, 5, 0)
	tb.Update(1, 9, 3)
	e, _ := tb.Get(1)
	if e.Heartbeat != 9 || e.Timestamp != 3 {
		t.Fatalf("Update() = %v, want hb=9 ts=3", e)
	}
}

func TestUpdateAbsentIsNoop(t *testing.T) {
	tb := New()
	tb.Update(1, 9, 3)
	if tb.Contains(1) {
		t.Fatalf("Update() on absent id created an entry")
	}
}

func TestEvict(t *testing.T) {
	tb := New()
	tb.Insert(1, 100, 0, 0)
	tb.Insert(2, 200, 0, 0)
	tb.Insert(3, 300, 0, 0)
	tb.Evict(2)
	if tb.Contains(2) {
		t.Fatalf("Contains(2) = true after Evict")
	}
	if tb.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tb.Len())
	}
	if !tb.Contains(1) || !tb.Contains(3) {
		t.Fatalf("Evict(2) disturbed surviving entries")
	}
}

func TestEvictAbsentIsNoop(t *testing.T) {
	tb := New()
	tb.Insert(1, 100, 0, 0)
	tb.Evict(99)
	if tb.Len() != 1 {
		t.Fatalf("Evict(absent) changed Len() to %d", tb.Len())
	}
}

func TestIterIsSnapshot(t *testing.T) {
	tb := New()
	tb.Insert(1, 100, 0, 0)
	tb.Insert(2, 200, 0, 0)
	snap := tb.Iter()
	if len(snap) != 2 {
		t.Fatalf("Iter() length = %d, want 2", len(snap))
	}
	tb.Evict(1)
	if len(snap) != 2 {
		t.Fatalf("Iter() snapshot mutated by later Evict")
	}
	if tb.Len() != 1 {
		t.Fatalf("Len() = %d after Evict, want 1", tb.Len())
	}
}

func TestUniqueIDs(t *testing.T) {
	tb := New()
	for i := uint32(0); i < 10; i++ {
		tb.Insert(i, uint16(i), 0, 0)
	}
	seen := make(map[uint32]bool)
	for _, e := range tb.Iter() {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d in Iter()", e.ID)
		}
		seen[e.ID] = true
	}
}
