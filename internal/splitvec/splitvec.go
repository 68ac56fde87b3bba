// Package splitvec manages the brick encoding buffers as a sequence of
// growable uint32 vectors, each capped well under 2^32 elements so that a
// brick's offset within its vector always fits a uint32 index.
package splitvec

import "github.com/pkg/errors"

// ErrCapacityExceeded is returned when a single brick's encoding cannot
// fit inside one vector even when empty.
var ErrCapacityExceeded = errors.New("splitvec: brick encoding exceeds vector capacity")

// noBrickSize0 marks that no rollover has happened yet: every brick so
// far lives in vector 0 and BrickSize0 is unset.
const noBrickSize0 = -1

// Manager owns one or more []uint32 buffers ("split vectors") and the
// per-brick start offsets into them. A brick's literal start entry is its
// real local offset within its vector, EXCEPT at the brick that begins a
// new vector: there the stored value is a sentinel equal to the previous
// vector's final length (its real local offset, always 0, is implied).
// That sentinel convention is what lets starts[i+1]-starts[i] recover the
// prior brick's size even across a rollover, and is what callers check
// via StartsResetAt.
//
// The first rollover freezes brickSize0, the number of bricks that had
// accumulated in vector 0 at that point. Every vector after the first is
// then forced to hold exactly brickSize0 bricks (never more, even if
// capacity would allow it), so which vector holds brick i is the O(1)
// quantity i/brickSize0 rather than a stored per-brick array.
type Manager struct {
	capacity     uint32
	vectors      [][]uint32
	starts       []uint32
	brickSize0   int // noBrickSize0 until the first rollover, then frozen
	curVecBricks int // bricks appended to the current (last) vector so far
}

// NewManager creates a manager whose vectors never exceed capacity
// elements.
func NewManager(capacity uint32) *Manager {
	if capacity == 0 {
		capacity = 1 << 28
	}
	return &Manager{capacity: capacity, vectors: [][]uint32{{}}, brickSize0: noBrickSize0}
}

// Append adds one brick's encoded words, returning its brick index. It
// starts a new vector first if words would not fit in the current one, or
// if brickSize0 is already frozen and the current vector already holds
// brickSize0 bricks.
func (m *Manager) Append(words []uint32) (int, error) {
	if uint32(len(words)) > m.capacity {
		return 0, ErrCapacityExceeded
	}
	cur := len(m.vectors) - 1
	rollover := uint32(len(m.vectors[cur]))+uint32(len(words)) > m.capacity
	if m.brickSize0 != noBrickSize0 && m.curVecBricks >= m.brickSize0 {
		rollover = true
	}
	var offset uint32
	if rollover {
		// The sentinel stored for the brick that opens a new vector is
		// the previous vector's final length, not this brick's real
		// offset (always 0 in the new vector): that is what lets a
		// replaying caller recover starts[i+1]-starts[i] as the prior
		// brick's size across the boundary.
		sentinel := uint32(len(m.vectors[cur]))
		if m.brickSize0 == noBrickSize0 {
			m.brickSize0 = m.curVecBricks
		}
		m.vectors = append(m.vectors, []uint32{})
		cur++
		m.curVecBricks = 0
		offset = sentinel
	} else {
		offset = uint32(len(m.vectors[cur]))
	}
	m.vectors[cur] = append(m.vectors[cur], words...)
	brick := len(m.starts)
	m.starts = append(m.starts, offset)
	m.curVecBricks++
	return brick, nil
}

// Restore rebuilds a Manager directly from its serialized parts,
// bypassing the capacity-rollover logic Append applies: a container
// reload replays exactly the vector/start layout that was written,
// deriving which vector each brick lives in from brickSize0 rather than
// re-running the rollover decision. brickSize0 is noBrickSize0 (pass a
// negative value) when no rollover ever happened.
func Restore(capacity uint32, vectors [][]uint32, starts []uint32, brickSize0 int) *Manager {
	if capacity == 0 {
		capacity = 1 << 28
	}
	if brickSize0 < 0 {
		brickSize0 = noBrickSize0
	}
	m := &Manager{capacity: capacity, vectors: vectors, starts: starts, brickSize0: brickSize0}
	if brickSize0 != noBrickSize0 {
		m.curVecBricks = len(starts) - (len(vectors)-1)*brickSize0
	} else {
		m.curVecBricks = len(starts)
	}
	return m
}

// Vectors returns the underlying split vectors.
func (m *Manager) Vectors() [][]uint32 { return m.vectors }

// Starts returns the per-brick start offsets, in the sentinel-at-rollover
// convention described on Manager.
func (m *Manager) Starts() []uint32 { return m.starts }

// BrickSize0 returns the number of bricks vector 0 held when the first
// rollover happened (also the fixed size of every vector after it), or a
// negative value if no rollover has happened yet.
func (m *Manager) BrickSize0() int { return m.brickSize0 }

// BrickCount reports how many bricks have been appended.
func (m *Manager) BrickCount() int { return len(m.starts) }

// VectorOf reports which vector a brick's encoding lives in. Before the
// first rollover, or when one never happens, every brick lives in vector
// 0; after it, brickSize0 makes the vector index an O(1) division.
func (m *Manager) VectorOf(brick int) int {
	if m.brickSize0 == noBrickSize0 {
		return 0
	}
	return brick / m.brickSize0
}

// isRollover reports whether brick begins a new vector, i.e. whether its
// starts entry is the rollover sentinel rather than a real offset.
func (m *Manager) isRollover(brick int) bool {
	if brick == 0 {
		return false
	}
	return m.VectorOf(brick) != m.VectorOf(brick-1)
}

// realOffset returns a brick's true local offset into its vector: 0 at a
// rollover brick (the stored starts entry there is the sentinel, not the
// offset), the stored value otherwise.
func (m *Manager) realOffset(brick int) uint32 {
	if m.isRollover(brick) {
		return 0
	}
	return m.starts[brick]
}

// BrickWords returns the encoded words for one brick.
func (m *Manager) BrickWords(brick int) []uint32 {
	v := m.VectorOf(brick)
	start := m.realOffset(brick)
	end := uint32(len(m.vectors[v]))
	if brick+1 < len(m.starts) && m.VectorOf(brick+1) == v {
		end = m.realOffset(brick + 1)
	}
	return m.vectors[v][start:end]
}

// StartsResetAt reports whether starts[i] < starts[i-1]. Under the
// sentinel convention this is how a reset shows up one brick after a
// vector's opening brick: the sentinel stored at i-1 equals the prior
// vector's final length, while starts[i] is the opening brick's size,
// normally a smaller in-vector offset.
func (m *Manager) StartsResetAt(i int) bool {
	if i == 0 || i >= len(m.starts) {
		return false
	}
	return m.starts[i] < m.starts[i-1]
}
