package mesh

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

const (
	clusterGridFactor    = 1.05
	clusterMaxIterations = 20
	clusterGridScale     = 10
	clusterLowerBand     = 0.9
)

type clusterKey struct {
	cell  [3]int64
	color [3]int64
}

type cluster struct {
	sumPos   vmath.Vec3
	sumColor vmath.Vec3
	count    int
}

// ClusterSimplify reduces a mesh by snapping vertices to a uniform grid over
// the bounding box and replacing each (cell, color) bucket with the mean of
// its members. The grid resolution is adjusted for up to 20 iterations until
// the vertex count lands between 90% and 100% of target.
//
// If the bounding box cannot be computed the input is returned unchanged.
func ClusterSimplify(vertices []vmath.Vec3, indices []int, colors []vmath.Vec3, target int, opts ...Option) (*Mesh, error) {
	o := buildOptions(opts)

	if len(colors) != len(vertices) {
		return nil, fmt.Errorf("%w: %d colors for %d vertices", ErrColorCount, len(colors), len(vertices))
	}
	if err := ValidateIndices(indices); err != nil {
		return nil, err
	}

	bounds, ok := ComputeBounds(vertices)
	if !ok {
		o.log.Warn("invalid bounding box, skipping clustering", zap.Int("vertices", len(vertices)))
		return &Mesh{
			Vertices: append([]vmath.Vec3(nil), vertices...),
			Colors:   append([]vmath.Vec3(nil), colors...),
			Indices:  append([]int(nil), indices...),
		}, nil
	}
	if target < 1 {
		target = 1
	}

	gridSize := int(math.Ceil(math.Cbrt(float64(len(vertices))/float64(target)) * clusterGridScale))
	if gridSize < 1 {
		gridSize = 1
	}

	o.log.Info("starting vertex clustering",
		zap.Int("vertices", len(vertices)),
		zap.Int("target", target),
		zap.Int("grid", gridSize))

	var out *Mesh
refine:
	for iter := 1; iter <= clusterMaxIterations; iter++ {
		verts, cols, mapping := clusterOnce(vertices, colors, bounds, gridSize)
		out = &Mesh{
			Vertices: verts,
			Colors:   cols,
			Indices:  rebuildFaces(indices, mapping),
		}

		o.log.Debug("clustering iteration",
			zap.Int("iteration", iter),
			zap.Int("grid", gridSize),
			zap.Int("vertices", len(verts)))

		switch {
		case len(verts) > target:
			gridSize = int(math.Floor(float64(gridSize) / clusterGridFactor))
			if gridSize < 1 {
				gridSize = 1
			}
		case float64(len(verts)) < float64(target)*clusterLowerBand:
			gridSize = int(math.Ceil(float64(gridSize) * clusterGridFactor))
		default:
			break refine
		}
	}

	o.log.Info("vertex clustering complete",
		zap.Int("vertices", len(out.Vertices)),
		zap.Int("faces", out.FaceCount()))

	return out, nil
}

// clusterOnce buckets vertices by grid cell and quantized color. Buckets are
// emitted in first-seen order. Non-finite vertices map to -1.
func clusterOnce(vertices, colors []vmath.Vec3, b Bounds, gridSize int) ([]vmath.Vec3, []vmath.Vec3, []int) {
	size := b.Size()
	cellSize := [3]float64{
		size.X / float64(gridSize),
		size.Y / float64(gridSize),
		size.Z / float64(gridSize),
	}
	origin := vmath.Array(b.Min)

	cellOf := func(v vmath.Vec3) [3]int64 {
		var cell [3]int64
		for axis, c := range vmath.Array(v) {
			// A flat axis collapses into a single cell.
			if cellSize[axis] > 0 {
				cell[axis] = int64(math.Floor((c - origin[axis]) / cellSize[axis]))
			}
		}
		return cell
	}
	colorOf := func(c vmath.Vec3) [3]int64 {
		return [3]int64{
			int64(math.Round(c.X * 255)),
			int64(math.Round(c.Y * 255)),
			int64(math.Round(c.Z * 255)),
		}
	}

	index := make(map[clusterKey]int)
	var buckets []cluster
	mapping := make([]int, len(vertices))

	for i, v := range vertices {
		if !vmath.Finite(v) {
			mapping[i] = -1
			continue
		}
		key := clusterKey{cell: cellOf(v), color: colorOf(colors[i])}
		bi, ok := index[key]
		if !ok {
			bi = len(buckets)
			index[key] = bi
			buckets = append(buckets, cluster{})
		}
		bk := &buckets[bi]
		bk.sumPos = vmath.Vec3{X: bk.sumPos.X + v.X, Y: bk.sumPos.Y + v.Y, Z: bk.sumPos.Z + v.Z}
		c := colors[i]
		bk.sumColor = vmath.Vec3{X: bk.sumColor.X + c.X, Y: bk.sumColor.Y + c.Y, Z: bk.sumColor.Z + c.Z}
		bk.count++
		mapping[i] = bi
	}

	verts := make([]vmath.Vec3, len(buckets))
	cols := make([]vmath.Vec3, len(buckets))
	for i, bk := range buckets {
		inv := 1 / float64(bk.count)
		verts[i] = vmath.Scale(bk.sumPos, inv)
		cols[i] = vmath.Scale(bk.sumColor, inv)
	}
	return verts, cols, mapping
}
