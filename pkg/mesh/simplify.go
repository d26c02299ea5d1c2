package mesh

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// Edge is a collapse candidate between two same-colored vertices.
type Edge struct {
	V1, V2  int // V1 < V2
	Cost    float64
	Optimal vmath.Vec3
}

// Simplify reduces a mesh towards target vertices with quadric error metric
// edge collapse.
//
// Costs are computed once and edges are collapsed greedily in ascending cost
// order without re-costing neighbors. An edge is only a candidate when its
// endpoints have the same color, and each vertex takes part in at most one
// collapse, so the target is a best-effort floor. Every collapse removes one
// vertex; collapsing stops as soon as the output would hold target vertices.
//
// Normals are not part of the result.
func Simplify(vertices []vmath.Vec3, indices []int, colors []vmath.Vec3, target int, opts ...Option) (*Mesh, error) {
	o := buildOptions(opts)

	if len(colors) != len(vertices) {
		return nil, fmt.Errorf("%w: %d colors for %d vertices", ErrColorCount, len(colors), len(vertices))
	}
	if err := ValidateIndices(indices); err != nil {
		return nil, err
	}

	o.log.Info("starting QEM simplification",
		zap.Int("vertices", len(vertices)),
		zap.Int("target", target))

	quadrics := accumulateQuadrics(vertices, indices, o.log)
	edges, singular := candidateEdges(vertices, indices, colors, quadrics)
	if singular > 0 {
		o.log.Debug("singular quadrics, using edge midpoints", zap.Int("edges", singular))
	}

	slices.SortStableFunc(edges, func(a, b Edge) int {
		return cmp.Compare(a.Cost, b.Cost)
	})

	alive := make([]bool, len(vertices))
	for i := range alive {
		alive[i] = true
	}
	mapping := make([]int, len(vertices))
	for i := range mapping {
		mapping[i] = -1
	}

	out := &Mesh{
		Vertices: make([]vmath.Vec3, 0, len(vertices)),
		Colors:   make([]vmath.Vec3, 0, len(vertices)),
	}
	remaining := len(vertices)

	for _, e := range edges {
		if remaining <= target {
			break
		}
		if !alive[e.V1] || !alive[e.V2] {
			continue
		}

		// Quadrics are fixed after accumulation, so the cached position is
		// still the optimum for this pair.
		idx := len(out.Vertices)
		out.Vertices = append(out.Vertices, e.Optimal)
		out.Colors = append(out.Colors, colors[e.V1])
		mapping[e.V1] = idx
		mapping[e.V2] = idx
		alive[e.V1] = false
		alive[e.V2] = false
		remaining--
	}
	collapsed := len(out.Vertices)

	for i, ok := range alive {
		if !ok {
			continue
		}
		mapping[i] = len(out.Vertices)
		out.Vertices = append(out.Vertices, vertices[i])
		out.Colors = append(out.Colors, colors[i])
	}

	out.Indices = rebuildFaces(indices, mapping)

	o.log.Info("QEM simplification complete",
		zap.Int("candidates", len(edges)),
		zap.Int("collapsed", collapsed),
		zap.Int("vertices", len(out.Vertices)),
		zap.Int("faces", out.FaceCount()))

	return out, nil
}

// accumulateQuadrics sums the plane quadric of every incident triangle into
// each vertex. Degenerate and out-of-range faces are skipped.
func accumulateQuadrics(vertices []vmath.Vec3, indices []int, log *zap.Logger) []Quadric {
	quadrics := make([]Quadric, len(vertices))
	degenerate := 0

	for f := 0; f < len(indices)/4; f++ {
		tri, ok := face(indices, f, len(vertices))
		if !ok {
			log.Warn("face references invalid vertex", zap.Int("face", f), zap.Ints("indices", tri[:]))
			continue
		}
		plane, ok := trianglePlane(vertices[tri[0]], vertices[tri[1]], vertices[tri[2]])
		if !ok {
			degenerate++
			continue
		}
		q := PlaneQuadric(plane)
		quadrics[tri[0]].Add(q)
		quadrics[tri[1]].Add(q)
		quadrics[tri[2]].Add(q)
	}

	if degenerate > 0 {
		log.Debug("skipped degenerate triangles", zap.Int("count", degenerate))
	}
	return quadrics
}

// candidateEdges enumerates the unique undirected face edges whose endpoints
// share a color, in first-seen order, and costs each one. It also returns how
// many edges fell back to their midpoint.
func candidateEdges(vertices []vmath.Vec3, indices []int, colors []vmath.Vec3, quadrics []Quadric) ([]Edge, int) {
	seen := make(map[[2]int]struct{}, len(indices)/2)
	var edges []Edge
	singular := 0

	for f := 0; f < len(indices)/4; f++ {
		tri, ok := face(indices, f, len(vertices))
		if !ok {
			continue
		}
		for j := 0; j < 3; j++ {
			a, b := tri[j], tri[(j+1)%3]
			if a == b {
				continue
			}
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if !vmath.SameColor(colors[a], colors[b]) {
				continue
			}

			q := quadrics[a].Sum(quadrics[b])
			pos, ok := q.Optimal(vmath.Midpoint(vertices[a], vertices[b]))
			if !ok {
				singular++
			}
			edges = append(edges, Edge{
				V1:      a,
				V2:      b,
				Cost:    q.Evaluate(pos),
				Optimal: pos,
			})
		}
	}
	return edges, singular
}
