// Package cache is the console's local mirror of the students resource.
//
// The cache holds the records of exactly one view at a time: the full
// list, a name search, or an age filter. It is never authoritative: it
// only ever stores what the server returned.
//
// Every mutation builds a new slice and swaps it in under the lock, so a
// reader never observes a half-applied change and a failed operation
// (which never reaches the cache) cannot corrupt it.
//
// Ordering: reads are last-request-wins. A read result is installed only
// if no read issued after it has already been installed. Writes are
// server-confirmed and always apply; they are also logged so that a read
// issued before them, which may not include them, gets them replayed on
// top when it lands.
package cache

import (
	"slices"
	"sync"

	"github.com/aanand-mishra/students-console/internal/types"
)

// View names which question the cached records answer.
type View int

const (
	ViewAll View = iota
	ViewSearch
	ViewFilter
)

func (v View) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewFilter:
		return "filter"
	default:
		return "all"
	}
}

// Snapshot is an immutable copy of the cache state. Generation is the
// sequence number of the installed read.
type Snapshot struct {
	View       View
	Records    []types.Student
	Generation uint64
}

type writeKind int

const (
	writeAppend writeKind = iota
	writeReplace
	writeRemove
)

// write is one confirmed mutation, kept until every read that could
// predate it has been installed or discarded.
type write struct {
	seq    uint64
	kind   writeKind
	record types.Student
	id     int64
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	view       View
	records    []types.Student
	generation uint64
	writes     []write
}

// New returns an empty cache showing the full-list view.
func New() *Cache {
	return &Cache{records: []types.Student{}}
}

// Replace installs the result of a read issued with sequence number seq.
// A result older than the installed read lost the race to a later read
// and is dropped; Replace then reports false. Writes confirmed with a
// higher sequence number are replayed on top of the result.
func (c *Cache) Replace(view View, records []types.Student, seq uint64) bool {
	fresh := slices.Clone(records)
	if fresh == nil {
		fresh = []types.Student{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq < c.generation {
		return false
	}

	pending := c.writes[:0:0]
	for _, w := range c.writes {
		if w.seq > seq {
			fresh = w.apply(fresh)
			pending = append(pending, w)
		}
	}

	c.view = view
	c.records = fresh
	c.generation = seq
	c.writes = pending
	return true
}

// Append adds a record created by the server. If a concurrent read
// already brought the record in, it is replaced instead of duplicated.
func (c *Cache) Append(record types.Student, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.commit(write{seq: seq, kind: writeAppend, record: record, id: record.ID})
}

// ReplaceByID swaps in the server's version of an updated record. It
// reports false (and changes nothing) if the id is not cached.
func (c *Cache) ReplaceByID(record types.Student, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := indexOf(c.records, record.ID) >= 0
	c.commit(write{seq: seq, kind: writeReplace, record: record, id: record.ID})
	return found
}

// RemoveByID drops the record with id. Removing an absent id is a no-op
// that reports false.
func (c *Cache) RemoveByID(id int64, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := indexOf(c.records, id) >= 0
	c.commit(write{seq: seq, kind: writeRemove, id: id})
	return found
}

// Find returns the cached record with id.
func (c *Cache) Find(id int64) (types.Student, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := indexOf(c.records, id); i >= 0 {
		return c.records[i], true
	}
	return types.Student{}, false
}

// Snapshot copies the current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		View:       c.view,
		Records:    slices.Clone(c.records),
		Generation: c.generation,
	}
}

// Len is the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// commit applies w and keeps it for replay while an older read may still
// land. Must be called with the lock held.
func (c *Cache) commit(w write) {
	c.records = w.apply(c.records)
	if w.seq > c.generation {
		c.writes = append(c.writes, w)
	}
}

// apply returns records with w applied; records itself is not modified.
// Applying a write twice has the same effect as applying it once.
func (w write) apply(records []types.Student) []types.Student {
	i := indexOf(records, w.id)
	switch w.kind {
	case writeAppend:
		next := slices.Clone(records)
		if i >= 0 {
			next[i] = w.record
			return next
		}
		return append(next, w.record)
	case writeReplace:
		if i < 0 {
			return records
		}
		next := slices.Clone(records)
		next[i] = w.record
		return next
	default:
		if i < 0 {
			return records
		}
		return slices.Delete(slices.Clone(records), i, i+1)
	}
}

func indexOf(records []types.Student, id int64) int {
	return slices.IndexFunc(records, func(s types.Student) bool {
		return s.ID == id
	})
}
