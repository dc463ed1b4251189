// Package table implements the open-addressing hash table used for the
// VM's globals and its string intern pool. Class method tables and
// instance fields do not use it: they are Go maps keyed by interned
// StringObj (see bytecode.ClassObj and bytecode.InstanceObj).
//
// It is hand-rolled rather than built on a Go map because findString
// (the intern table's primary operation) needs to probe by raw bytes
// and hash before any StringObj exists, and because the VM's GC needs
// to be able to walk "every (key, value) pair" as a root and evict
// unmarked keys mid-sweep (removeWhite) — neither is expressible over
// an opaque built-in map.
package table

import "github.com/kristofer/ember/pkg/bytecode"

const maxLoad = 0.75

type entry struct {
	key   *bytecode.StringObj
	value bytecode.Value
	// tombstone is true for a deleted slot. Deleted slots keep their
	// key nil (so they compare as empty to findEntry's early-exit) but
	// are not truly empty: they must not terminate a probe sequence.
	tombstone bool
}

// Table is an open-addressing hash table, power-of-two capacity, linear
// probing, tombstone-preserving deletes.
type Table struct {
	count   int // live entries + tombstones, used for the load-factor check
	entries []entry
}

// New returns an empty Table. Capacity is allocated lazily on first Set.
func New() *Table {
	return &Table{}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	live := 0
	for _, e := range t.entries {
		if e.key != nil {
			live++
		}
	}
	return live
}

// Get looks up key and reports whether it was found.
func (t *Table) Get(key *bytecode.StringObj) (bytecode.Value, bool) {
	if len(t.entries) == 0 {
		return bytecode.Value{}, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return bytecode.Value{}, false
	}
	return e.value, true
}

// Set installs value under key, growing the table first if doing so
// would push the load factor past 75%. It reports whether key was new
// (true) or already present (false).
func (t *Table) Set(key *bytecode.StringObj, value bytecode.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		t.grow()
	}

	e := t.findEntry(t.entries, key)
	isNew := e.key == nil
	if isNew && !e.tombstone {
		t.count++
	}

	e.key = key
	e.value = value
	e.tombstone = false
	return isNew
}

// Delete removes key, leaving a tombstone so later probes for a
// different key that collided past this slot still find it. Reports
// whether key was present.
func (t *Table) Delete(key *bytecode.StringObj) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = bytecode.Bool(true) // tombstone sentinel value, distinct from nil
	e.tombstone = true
	return true
}

// CopyAll copies every live entry of t into dst.
func (t *Table) CopyAll(dst *Table) {
	for _, e := range t.entries {
		if e.key != nil {
			dst.Set(e.key, e.value)
		}
	}
}

// Each calls fn for every live entry. Iteration order is unspecified.
func (t *Table) Each(fn func(key *bytecode.StringObj, value bytecode.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.value)
		}
	}
}

// FindString is the intern table's primary operation: it hashes and
// compares raw bytes directly, without ever constructing a StringObj,
// so the VM can check "do I already have this string" before
// allocating one.
func (t *Table) FindString(chars string, hash uint32) *bytecode.StringObj {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash & (capacity - 1)
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.tombstone {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & (capacity - 1)
	}
}

// RemoveWhite evicts every entry whose key is an unmarked StringObj.
// Called during GC, after tracing and before sweep, so a String about
// to be freed does not linger in the intern table with a dangling
// identity.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.IsMarked() {
			e.key = nil
			e.value = bytecode.Bool(true)
			e.tombstone = true
		}
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)
	for _, e := range t.entries {
		if e.key == nil {
			continue // drop tombstones on grow; count is reset below
		}
		dst := t.findEntry(newEntries, e.key)
		dst.key = e.key
		dst.value = e.value
	}
	t.count = 0
	for _, e := range newEntries {
		if e.key != nil {
			t.count++
		}
	}
	t.entries = newEntries
}

// findEntry runs the linear probe over entries (capacity assumed a
// power of two), returning the slot where key is or belongs. It tracks
// the first tombstone seen so a Set can reuse it instead of probing
// past it.
func (t *Table) findEntry(entries []entry, key *bytecode.StringObj) *entry {
	capacity := uint32(len(entries))
	index := key.Hash & (capacity - 1)
	var tombstone *entry
	for {
		e := &entries[index]
		if e.key == nil {
			if e.tombstone {
				if tombstone == nil {
					tombstone = e
				}
			} else {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
		} else if e.key == key {
			return e
		}
		index = (index + 1) & (capacity - 1)
	}
}
