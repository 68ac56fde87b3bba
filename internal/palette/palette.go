// Package palette implements the per-brick append-only palette: the
// ordered list of distinct labels a brick's operation stream can
// reference by PALETTE_ADV, PALETTE_LAST and PALETTE_DELTA.
package palette

import "golang.org/x/exp/slices"

// Manager tracks one brick's palette during either encoding or decoding.
// Entry 0 is always the brick's root label, installed by NewManager.
type Manager struct {
	entries []uint32
	cursor  int // index of the most recently appended entry

	pending    []uint32 // decode only: raw palette words not yet consumed
	pendingPos int
}

// NewManager starts a palette with the brick's verbatim root label
// already in slot 0, for encoding.
func NewManager(rootLabel uint32) *Manager {
	return &Manager{entries: []uint32{rootLabel}, cursor: 0}
}

// NewDecodeManager starts a palette for decoding: rootLabel occupies
// slot 0 and trailing holds the raw palette words written after the
// brick's root label, in introduction order, consumed one at a time by
// Advance as PALETTE_ADV ops are decoded.
func NewDecodeManager(rootLabel uint32, trailing []uint32) *Manager {
	return &Manager{entries: []uint32{rootLabel}, cursor: 0, pending: trailing}
}

// Advance consumes the next raw palette word (as PALETTE_ADV requires on
// decode), appends it, and returns its value.
func (m *Manager) Advance() uint32 {
	v := m.pending[m.pendingPos]
	m.pendingPos++
	m.Append(v)
	return v
}

// Entries returns the palette contents in introduction order.
func (m *Manager) Entries() []uint32 { return m.entries }

// Len reports how many labels the palette currently holds.
func (m *Manager) Len() int { return len(m.entries) }

// Last returns the most recently appended label, the value a
// PALETTE_LAST op reproduces.
func (m *Manager) Last() uint32 { return m.entries[len(m.entries)-1] }

// Cursor returns the index of the most recently appended entry. Delta
// references are always relative to this index, not to whatever index a
// prior PALETTE_DELTA resolved to.
func (m *Manager) Cursor() int { return m.cursor }

// Find reports the index of label in the palette, if present.
func (m *Manager) Find(label uint32) (int, bool) {
	idx := slices.Index(m.entries, label)
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

// Append introduces a new palette entry (encoder: a label not yet seen;
// decoder: the next value read off the trailing palette word array) and
// returns its index.
func (m *Manager) Append(label uint32) int {
	idx := len(m.entries)
	m.entries = append(m.entries, label)
	m.cursor = idx
	return idx
}

// Delta computes the PALETTE_DELTA payload that references idx, relative
// to the current cursor. idx must be strictly less than Cursor(); the
// palette's append-only, monotonically advancing cursor guarantees this
// whenever idx names an entry other than the most recent one (which would
// instead be encoded as PALETTE_LAST).
func (m *Manager) Delta(idx int) uint32 {
	return uint32(m.cursor - idx)
}

// ResolveDelta returns the label and index a PALETTE_DELTA payload of d
// resolves to, without moving the cursor: only PALETTE_ADV advances it.
func (m *Manager) ResolveDelta(d uint32) (uint32, int) {
	idx := m.cursor - int(d)
	return m.entries[idx], idx
}
