// Package multigrid builds the per-brick octree of representative labels
// that the operation-code grammar walks coarse-to-fine.
package multigrid

import "math/bits"

// Invalid marks a voxel position that lies outside the volume for a border
// brick. Input labels are not checked against it: a real voxel holding
// 0xFFFFFFFF is encoded like any other label, and border cells are never
// scattered back into a decoded volume.
const Invalid uint32 = 0xFFFFFFFF

// Node is one cell of one level of a brick's multigrid: a representative
// label and whether the whole subtree below the cell shares that label.
type Node struct {
	Label   uint32
	Uniform bool
}

// Level is one resolution of the octree: Width cells along each axis,
// Nodes stored row-major x-fastest.
type Level struct {
	Width int
	Nodes []Node
}

func (l *Level) at(x, y, z int) *Node {
	return &l.Nodes[x+y*l.Width+z*l.Width*l.Width]
}

// Grid is the full per-brick multigrid, Levels[0] the root (a single cell)
// through Levels[len-1] the finest level (BrickSize^3 cells).
type Grid struct {
	BrickSize int
	Levels    []Level
}

// RootLevel returns 0, the index of the root level in Levels.
func (g *Grid) RootLevel() int { return 0 }

// FinestLevel returns the index of the finest level.
func (g *Grid) FinestLevel() int { return len(g.Levels) - 1 }

// Root returns the brick's single root node.
func (g *Grid) Root() Node { return g.Levels[0].Nodes[0] }

// FinestFirstFlat concatenates all levels finest level first, as described
// by the data model: a flat array of (label, uniform) nodes across LoDs.
func (g *Grid) FinestFirstFlat() []Node {
	total := 0
	for _, l := range g.Levels {
		total += len(l.Nodes)
	}
	out := make([]Node, 0, total)
	for i := len(g.Levels) - 1; i >= 0; i-- {
		out = append(out, g.Levels[i].Nodes...)
	}
	return out
}

// Build constructs the multigrid for one brick of the volume. volumeDim is
// the voxel shape of the full volume, brickOrigin the brick's corner in
// voxel coordinates, and brickSize the (power-of-two) edge length of the
// cube. needStop requests that uniform-subtree flags be computed; when
// false, Uniform is false on every level above the finest (finest-level
// cells are always marked Uniform) and stop bits must not be used by
// the caller. needLabelsAboveRoot is accepted for interface parity with
// the reference encoder but unused: the core path never reads above the
// root cell.
func Build(volume []uint32, volumeDim [3]int, brickOrigin [3]int, brickSize int, needStop bool, needLabelsAboveRoot bool) *Grid {
	_ = needLabelsAboveRoot
	levels := bits.TrailingZeros(uint(brickSize)) + 1 // log2(brickSize)+1
	g := &Grid{BrickSize: brickSize, Levels: make([]Level, levels)}

	finest := &g.Levels[levels-1]
	finest.Width = brickSize
	finest.Nodes = make([]Node, brickSize*brickSize*brickSize)
	for z := 0; z < brickSize; z++ {
		vz := brickOrigin[2] + z
		for y := 0; y < brickSize; y++ {
			vy := brickOrigin[1] + y
			for x := 0; x < brickSize; x++ {
				vx := brickOrigin[0] + x
				n := finest.at(x, y, z)
				if vx >= volumeDim[0] || vy >= volumeDim[1] || vz >= volumeDim[2] {
					n.Label = Invalid
					n.Uniform = true
				} else {
					idx := vx + vy*volumeDim[0] + vz*volumeDim[0]*volumeDim[1]
					n.Label = volume[idx]
					n.Uniform = true
				}
			}
		}
	}

	// build coarser levels bottom-up: a parent is uniform iff all eight
	// children are uniform and share a label.
	for lvl := levels - 2; lvl >= 0; lvl-- {
		child := &g.Levels[lvl+1]
		width := child.Width / 2
		l := &g.Levels[lvl]
		l.Width = width
		l.Nodes = make([]Node, width*width*width)
		for z := 0; z < width; z++ {
			for y := 0; y < width; y++ {
				for x := 0; x < width; x++ {
					var first Node
					uniform := needStop
					same := true
					for i := 0; i < 8; i++ {
						cx := 2*x + (i & 1)
						cy := 2*y + ((i >> 1) & 1)
						cz := 2*z + ((i >> 2) & 1)
						c := child.at(cx, cy, cz)
						if i == 0 {
							first = *c
						}
						if !c.Uniform {
							same = false
						}
						if c.Label != first.Label {
							same = false
						}
					}
					n := l.at(x, y, z)
					if needStop && same {
						n.Label = first.Label
						n.Uniform = true
					} else {
						n.Label = first.Label
						n.Uniform = false
						_ = uniform
					}
				}
			}
		}
	}
	return g
}
