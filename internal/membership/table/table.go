// Package table implements MemberTable: the set of known peers and their
// last-heard metadata. Iteration order is stable between mutations so
// traversal-with-erase (used by the failure detector) is well-defined.
package table

// MemberEntry is one row of the membership table.
type MemberEntry struct {
	ID        uint32
	Port      uint16
	Heartbeat int64
	Timestamp int64
}

// Table is an append-only-by-id sequence of MemberEntry, unique by ID.
type Table struct {
	entries []MemberEntry
	index   map[uint32]int
}

// New returns an empty table.
func New() *Table {
	return &Table{index: make(map[uint32]int)}
}

// Contains reports whether id is present.
func (t *Table) Contains(id uint32) bool {
	_, ok := t.index[id]
	return ok
}

// Get returns the entry for id and whether it was found.
func (t *Table) Get(id uint32) (MemberEntry, bool) {
	i, ok := t.index[id]
	if !ok {
		return MemberEntry{}, false
	}
	return t.entries[i], true
}

// Insert appends a new entry. No-op if id is already present.
func (t *Table) Insert(id uint32, port uint16, heartbeat, timestamp int64) {
	if t.Contains(id) {
		return
	}
	t.index[id] = len(t.entries)
	t.entries = append(t.entries, MemberEntry{ID: id, Port: port, Heartbeat: heartbeat, Timestamp: timestamp})
}

// Update sets heartbeat and timestamp on the existing entry for id.
// No-op if id is absent.
func (t *Table) Update(id uint32, heartbeat, timestamp int64) {
	i, ok := t.index[id]
	if !ok {
		return
	}
	t.entries[i].Heartbeat = heartbeat
	t.entries[i].Timestamp = timestamp
}

// Evict removes the entry for id. No-op if absent. Safe to call while
// iterating a snapshot returned by Iter.
func (t *Table) Evict(id uint32) {
	i, ok := t.index[id]
	if !ok {
		return
	}
	last := len(t.entries) - 1
	removed := t.entries[i]
	t.entries[i] = t.entries[last]
	t.entries = t.entries[:last]
	delete(t.index, removed.ID)
	if i != last {
		t.index[t.entries[i].ID] = i
	}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Iter returns a snapshot slice of all entries. The caller may evict
// entries by ID while holding this snapshot without invalidating the
// traversal — Evict mutates the table's own backing slice, not this copy.
func (t *Table) Iter() []MemberEntry {
	out := make([]MemberEntry, len(t.entries))
	copy(out, t.entries)
	return out
}
