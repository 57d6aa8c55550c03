package workbook

import (
	"iter"
	"slices"
)

// SharedStrings is the workbook-wide table of distinct cell texts with a
// reference count per entry. a serializer writes it as the shared string
// part; text cells hold only the entry ID.
type SharedStrings struct {
	ids       map[string]uint32
	values    map[uint32]string
	refCounts map[uint32]int
	nextID    uint32
}

// NewSharedStrings creates an empty table
func NewSharedStrings() *SharedStrings {
	return &SharedStrings{
		ids:       make(map[string]uint32),
		values:    make(map[uint32]string),
		refCounts: make(map[uint32]int),
		nextID:    1, // 0 means "no string"
	}
}

// Acquire returns the ID for s, adding it when new, and takes a reference.
func (ss *SharedStrings) Acquire(s string) uint32 {
	if id, exists := ss.ids[s]; exists {
		ss.refCounts[id]++
		return id
	}
	id := ss.nextID
	ss.nextID++
	ss.ids[s] = id
	ss.values[id] = s
	ss.refCounts[id] = 1
	return id
}

// Release drops one reference. the entry is removed with its last
// reference; the return value reports that removal.
func (ss *SharedStrings) Release(id uint32) bool {
	s, exists := ss.values[id]
	if !exists {
		return false
	}
	ss.refCounts[id]--
	if ss.refCounts[id] > 0 {
		return false
	}
	delete(ss.ids, s)
	delete(ss.values, id)
	delete(ss.refCounts, id)
	return true
}

// Lookup returns the text of an entry
func (ss *SharedStrings) Lookup(id uint32) (string, bool) {
	s, exists := ss.values[id]
	return s, exists
}

// References returns the reference count of an entry
func (ss *SharedStrings) References(id uint32) int {
	return ss.refCounts[id]
}

// Count returns the number of distinct texts
func (ss *SharedStrings) Count() int {
	return len(ss.values)
}

// Entries iterates the table in insertion order
func (ss *SharedStrings) Entries() iter.Seq2[uint32, string] {
	return func(yield func(uint32, string) bool) {
		ids := make([]uint32, 0, len(ss.values))
		for id := range ss.values {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id, ss.values[id]) {
				return
			}
		}
	}
}
