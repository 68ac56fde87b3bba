package brickcodec

import (
	"github.com/volcanite-go/csgv/internal/multigrid"
	"github.com/volcanite-go/csgv/internal/ops"
	"github.com/volcanite-go/csgv/internal/palette"
)

func rowMajor(p [3]int, width int) int {
	return p[0] + p[1]*width + p[2]*width*width
}

func parentOf(p [3]int) [3]int {
	return [3]int{p[0] / 2, p[1] / 2, p[2] / 2}
}

// levelState tracks, for one level of the walk, which cells have a known
// value so far (Morton-order progressive fill) and which lie inside an
// already-terminated (stopped) subtree.
type levelState struct {
	width   int
	values  []uint32
	known   []bool
	stopped []bool
}

func newLevelState(width int) *levelState {
	n := width * width * width
	return &levelState{width: width, values: make([]uint32, n), known: make([]bool, n), stopped: make([]bool, n)}
}

func (s *levelState) neighbor(p [3]int, axis int) (uint32, bool) {
	q := p
	q[axis]--
	if q[axis] < 0 {
		return 0, false
	}
	idx := rowMajor(q, s.width)
	if !s.known[idx] {
		return 0, false
	}
	return s.values[idx], true
}

func chooseOp(mask ops.Mask, target, parentVal uint32, neighVal [3]uint32, neighOK [3]bool, pm *palette.Manager) (ops.Op, uint32) {
	if mask.Has(ops.MaskParent) && parentVal == target {
		return ops.OpParent, 0
	}
	if mask.Has(ops.MaskNeighborX) && neighOK[0] && neighVal[0] == target {
		return ops.OpNeighborX, 0
	}
	if mask.Has(ops.MaskNeighborY) && neighOK[1] && neighVal[1] == target {
		return ops.OpNeighborY, 0
	}
	if mask.Has(ops.MaskNeighborZ) && neighOK[2] && neighVal[2] == target {
		return ops.OpNeighborZ, 0
	}
	if mask.Has(ops.MaskPaletteLast) && pm.Last() == target {
		return ops.OpPaletteLast, 0
	}
	if mask.Has(ops.MaskPaletteDelta) {
		if idx, ok := pm.Find(target); ok && idx != pm.Cursor() {
			return ops.OpPaletteDelta, pm.Delta(idx)
		}
	}
	pm.Append(target)
	return ops.OpPaletteAdv, 0
}

// EncodeBrick walks grid coarse-to-fine, emitting into w one op nibble per
// non-root cell outside a stopped subtree (none at all if the whole brick
// collapses to its root's uniform label), each PALETTE_DELTA op followed
// by its delta payload nibbles, and returns the cumulative nibble count at the end of every
// level past the root, in level order, for the caller to build the brick
// header from.
func EncodeBrick(grid *multigrid.Grid, mask ops.Mask, pm *palette.Manager, w NibbleWriter) []int {
	finest := grid.FinestLevel()
	levelEnds := make([]int, 0, finest)

	prev := newLevelState(1)
	prev.values[0] = grid.Root().Label
	prev.known[0] = true
	prev.stopped[0] = mask.Has(ops.MaskStopBit) && grid.Root().Uniform

	for level := 1; level <= finest; level++ {
		width := grid.Levels[level].Width
		cur := newLevelState(width)
		order := ops.MortonOrder(width)
		for _, p := range order {
			idx := rowMajor(p, width)
			parentIdx := rowMajor(parentOf(p), prev.width)
			if prev.stopped[parentIdx] {
				cur.values[idx] = prev.values[parentIdx]
				cur.known[idx] = true
				cur.stopped[idx] = true
				continue
			}
			node := grid.Levels[level].Nodes[idx]
			var neighVal [3]uint32
			var neighOK [3]bool
			neighVal[0], neighOK[0] = cur.neighbor(p, 0)
			neighVal[1], neighOK[1] = cur.neighbor(p, 1)
			neighVal[2], neighOK[2] = cur.neighbor(p, 2)

			op, delta := chooseOp(mask, node.Label, prev.values[parentIdx], neighVal, neighOK, pm)
			stop := mask.Has(ops.MaskStopBit) && node.Uniform && level != finest
			w.WriteNibble(ops.Pack(op, stop))
			if op == ops.OpPaletteDelta {
				for _, dn := range ops.EncodeDelta(delta) {
					w.WriteNibble(dn)
				}
			}
			cur.values[idx] = node.Label
			cur.known[idx] = true
			cur.stopped[idx] = stop
		}
		if cw, ok := w.(interface{ Count() int }); ok {
			levelEnds = append(levelEnds, cw.Count())
		}
		prev = cur
	}
	return levelEnds
}

// DecodeBrick reconstructs cell values up to (and including) maxLevel,
// reading one op nibble (plus any PALETTE_DELTA payload) from r per cell
// outside a stopped subtree; cells inside one copy their parent's label.
// If the root's subtree was encoded as uniform (rootStopped), nothing is
// read and every cell is filled with the brick's root label. It returns
// the row-major value grid of the requested level.
func DecodeBrick(rootLabel uint32, rootStopped bool, brickSize int, maxLevel int, mask ops.Mask, pm *palette.Manager, r NibbleReader) []uint32 {
	prev := newLevelState(1)
	prev.values[0] = rootLabel
	prev.known[0] = true
	prev.stopped[0] = rootStopped

	if maxLevel == 0 {
		return append([]uint32(nil), prev.values...)
	}

	finest := 0
	for w := brickSize; w > 1; w /= 2 {
		finest++
	}

	for level := 1; level <= maxLevel; level++ {
		width := 1 << uint(level)
		cur := newLevelState(width)
		order := ops.MortonOrder(width)
		for _, p := range order {
			idx := rowMajor(p, width)
			parentIdx := rowMajor(parentOf(p), prev.width)
			if prev.stopped[parentIdx] {
				cur.values[idx] = prev.values[parentIdx]
				cur.known[idx] = true
				cur.stopped[idx] = true
				continue
			}
			n := r.ReadNibble()
			op := n.Op()
			stop := n.Stop()

			var value uint32
			switch op {
			case ops.OpParent:
				value = prev.values[parentIdx]
			case ops.OpNeighborX:
				v, ok := cur.neighbor(p, 0)
				value = fallback(v, ok, prev.values[parentIdx])
			case ops.OpNeighborY:
				v, ok := cur.neighbor(p, 1)
				value = fallback(v, ok, prev.values[parentIdx])
			case ops.OpNeighborZ:
				v, ok := cur.neighbor(p, 2)
				value = fallback(v, ok, prev.values[parentIdx])
			case ops.OpPaletteLast:
				value = pm.Last()
			case ops.OpPaletteDelta:
				d, _ := ops.DecodeDelta(func() ops.Nibble { return r.ReadNibble() })
				value, _ = pm.ResolveDelta(d)
			case ops.OpPaletteAdv:
				value = pm.Advance()
			}
			cur.values[idx] = value
			cur.known[idx] = true
			cur.stopped[idx] = stop && level != finest
		}
		prev = cur
	}
	return append([]uint32(nil), prev.values...)
}

func fallback(v uint32, ok bool, parent uint32) uint32 {
	if ok {
		return v
	}
	return parent
}
