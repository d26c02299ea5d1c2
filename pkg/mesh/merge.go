package mesh

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// MergeResult holds the output of Merge.
type MergeResult struct {
	Vertices []vmath.Vec3
	Colors   []vmath.Vec3
	// Mapping[i] is the index in Vertices that input vertex i became.
	Mapping []int
}

type cellKey [3]int64

var positiveOffsets = []cellKey{
	{0, 0, 0},
	{0, 0, 1},
	{0, 1, 0},
	{1, 0, 0},
}

var fullOffsets = func() []cellKey {
	offsets := []cellKey{{0, 0, 0}}
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				offsets = append(offsets, cellKey{dx, dy, dz})
			}
		}
	}
	return offsets
}()

// Merge deduplicates vertices that lie within cutoff of an earlier kept
// vertex and have the same color. Vertices and colors are truncated to
// vmath.Precision first. Vertices are visited in input order, so the first
// vertex of a cluster is the one kept.
func Merge(vertices, colors []vmath.Vec3, cutoff float64, opts ...Option) (*MergeResult, error) {
	o := buildOptions(opts)

	if math.IsNaN(cutoff) || cutoff <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCutoff, cutoff)
	}
	if len(colors) != len(vertices) {
		return nil, fmt.Errorf("%w: %d colors for %d vertices", ErrColorCount, len(colors), len(vertices))
	}

	verts := vmath.TruncateAll(vertices)
	cols := vmath.TruncateAll(colors)
	cutoffSq := cutoff * cutoff

	offsets := positiveOffsets
	if o.neighbors == NeighborFull {
		offsets = fullOffsets
	}

	keyOf := func(v vmath.Vec3) cellKey {
		return cellKey{
			int64(math.Floor(v.X / cutoff)),
			int64(math.Floor(v.Y / cutoff)),
			int64(math.Floor(v.Z / cutoff)),
		}
	}

	grid := make(map[cellKey][]int)
	mapping := make([]int, len(verts))

	for i, v := range verts {
		key := keyOf(v)
		target := -1

	search:
		for _, off := range offsets {
			cell := grid[cellKey{key[0] + off[0], key[1] + off[1], key[2] + off[2]}]
			for _, j := range cell {
				if vmath.WithinCutoffSquared(v, verts[j], cutoffSq) && vmath.SameColor(cols[i], cols[j]) {
					target = j
					break search
				}
			}
		}

		if target >= 0 {
			mapping[i] = target
			continue
		}
		mapping[i] = i
		grid[key] = append(grid[key], i)
	}

	// Compact kept vertices; mapping[i] == i marks a kept vertex and every
	// merge target is an earlier kept vertex.
	compact := make([]int, len(verts))
	res := &MergeResult{
		Vertices: make([]vmath.Vec3, 0, len(grid)),
		Colors:   make([]vmath.Vec3, 0, len(grid)),
		Mapping:  mapping,
	}
	for i := range verts {
		if mapping[i] != i {
			continue
		}
		compact[i] = len(res.Vertices)
		res.Vertices = append(res.Vertices, verts[i])
		res.Colors = append(res.Colors, cols[i])
	}
	for i, j := range mapping {
		mapping[i] = compact[j]
	}

	o.log.Debug("vertices merged",
		zap.Int("before", len(verts)),
		zap.Int("after", len(res.Vertices)),
		zap.Float64("cutoff", cutoff),
		zap.Stringer("neighbors", o.neighbors))

	return res, nil
}

// UpdateIndices remaps every non-sentinel index through mapping.
// An index with no mapping entry is an internal invariant break and
// returns ErrMappingIncomplete.
func UpdateIndices(indices []int, mapping []int) ([]int, error) {
	out := make([]int, len(indices))
	for i, idx := range indices {
		if idx == Sentinel {
			out[i] = Sentinel
			continue
		}
		if idx < 0 || idx >= len(mapping) || mapping[idx] < 0 {
			return nil, fmt.Errorf("%w: index %d at position %d", ErrMappingIncomplete, idx, i)
		}
		out[i] = mapping[idx]
	}
	return out, nil
}
