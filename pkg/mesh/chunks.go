package mesh

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// Params controls one pass of the chunk pipeline.
type Params struct {
	// MergeCutoff is the spatial merge distance. Required.
	MergeCutoff float64
	// ReductionFraction, when set, requests simplification to
	// round(mergedVertices * fraction) vertices. Nil or 1 means merge only.
	ReductionFraction *float64
	// Strategy selects the simplifier.
	Strategy Strategy
}

// Stats records vertex and face counts at each stage for one chunk.
type Stats struct {
	Chunk          int  `json:"chunk"`
	InputVertices  int  `json:"input_vertices"`
	InputFaces     int  `json:"input_faces"`
	MergedVertices int  `json:"merged_vertices"`
	MergedFaces    int  `json:"merged_faces"`
	OutputVertices int  `json:"output_vertices"`
	OutputFaces    int  `json:"output_faces"`
	Simplified     bool `json:"simplified"`
}

// Coordinator runs the merge and simplify stages over the chunks of a
// document, strictly in input order.
type Coordinator struct {
	opts []Option
	log  *zap.Logger
}

// NewCoordinator creates a coordinator. The options are forwarded to every
// stage.
func NewCoordinator(opts ...Option) *Coordinator {
	return &Coordinator{
		opts: opts,
		log:  buildOptions(opts).log,
	}
}

// TargetVertexCount returns the simplification target for a merged vertex
// count, and false when no simplification was requested.
func (p Params) TargetVertexCount(merged int) (int, bool) {
	if p.ReductionFraction == nil {
		return 0, false
	}
	f := *p.ReductionFraction
	if math.IsNaN(f) || f == 1 {
		return 0, false
	}
	target := int(math.Round(float64(merged) * f))
	if target <= 0 {
		return 0, false
	}
	return target, true
}

// Process runs ProcessChunk over every chunk in order. ctx is checked
// between chunks; a chunk in progress runs to completion.
func (c *Coordinator) Process(ctx context.Context, chunks []Chunk, p Params) ([]Chunk, []Stats, error) {
	out := make([]Chunk, 0, len(chunks))
	stats := make([]Stats, 0, len(chunks))
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		res, st, err := c.ProcessChunk(i, ch, p)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		out = append(out, res)
		stats = append(stats, st)
	}
	return out, stats, nil
}

// ProcessChunk merges one chunk, simplifies it when p requests a target, and
// truncates its normals. The raw wrapper text is carried over unchanged.
func (c *Coordinator) ProcessChunk(idx int, ch Chunk, p Params) (Chunk, Stats, error) {
	log := c.log.With(zap.Int("chunk", idx))
	st := Stats{
		Chunk:         idx,
		InputVertices: len(ch.Vertices),
		InputFaces:    ch.FaceCount(),
	}
	if err := ch.Validate(); err != nil {
		return Chunk{}, st, err
	}

	log.Info("input mesh",
		zap.String("stage", "input"),
		zap.Int("vertices", st.InputVertices),
		zap.Int("faces", st.InputFaces))

	merged, err := Merge(ch.Vertices, ch.Colors, p.MergeCutoff, c.opts...)
	if err != nil {
		return Chunk{}, st, err
	}
	indices, err := UpdateIndices(ch.Indices, merged.Mapping)
	if err != nil {
		return Chunk{}, st, err
	}

	st.MergedVertices = len(merged.Vertices)
	st.MergedFaces = FaceCount(indices)
	log.Info("after vertex merging",
		zap.String("stage", "merge"),
		zap.Int("vertices", st.MergedVertices),
		zap.Int("faces", st.MergedFaces))

	result := Chunk{
		Mesh: Mesh{
			Vertices: merged.Vertices,
			Colors:   merged.Colors,
			Normals:  vmath.TruncateAll(ch.Normals),
			Indices:  indices,
		},
		Raw: ch.Raw,
	}

	if target, ok := p.TargetVertexCount(len(merged.Vertices)); ok {
		var simplified *Mesh
		switch p.Strategy {
		case StrategyCluster:
			simplified, err = ClusterSimplify(merged.Vertices, indices, merged.Colors, target, c.opts...)
		default:
			simplified, err = Simplify(merged.Vertices, indices, merged.Colors, target, c.opts...)
		}
		if err != nil {
			return Chunk{}, st, err
		}
		result.Vertices = vmath.TruncateAll(simplified.Vertices)
		result.Colors = vmath.TruncateAll(simplified.Colors)
		result.Indices = simplified.Indices
		st.Simplified = true

		log.Info("after simplification",
			zap.String("stage", "simplify"),
			zap.Stringer("strategy", p.Strategy),
			zap.Int("target", target),
			zap.Int("vertices", len(result.Vertices)),
			zap.Int("faces", result.FaceCount()))
	}

	st.OutputVertices = len(result.Vertices)
	st.OutputFaces = result.FaceCount()
	return result, st, nil
}

// MergeChunks fuses chunks into one: vertices, colors and normals are
// concatenated, face indices are offset by the running vertex count, and a
// single merge pass with cutoff joins coincident same-colored vertices
// across chunk boundaries. The first chunk's raw text is kept.
func MergeChunks(chunks []Chunk, cutoff float64, opts ...Option) (Chunk, error) {
	o := buildOptions(opts)
	if len(chunks) == 0 {
		return Chunk{}, nil
	}

	var all Mesh
	offset := 0
	for i, ch := range chunks {
		if err := ch.Validate(); err != nil {
			return Chunk{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		all.Vertices = append(all.Vertices, ch.Vertices...)
		all.Colors = append(all.Colors, ch.Colors...)
		all.Normals = append(all.Normals, ch.Normals...)
		for _, idx := range ch.Indices {
			if idx == Sentinel {
				all.Indices = append(all.Indices, Sentinel)
				continue
			}
			all.Indices = append(all.Indices, idx+offset)
		}
		offset += len(ch.Vertices)
	}

	merged, err := Merge(all.Vertices, all.Colors, cutoff, opts...)
	if err != nil {
		return Chunk{}, err
	}
	indices, err := UpdateIndices(all.Indices, merged.Mapping)
	if err != nil {
		return Chunk{}, err
	}

	o.log.Info("chunks fused",
		zap.Int("chunks", len(chunks)),
		zap.Int("vertices_before", len(all.Vertices)),
		zap.Int("vertices_after", len(merged.Vertices)),
		zap.Int("faces", FaceCount(indices)))

	return Chunk{
		Mesh: Mesh{
			Vertices: merged.Vertices,
			Colors:   merged.Colors,
			Normals:  vmath.TruncateAll(all.Normals),
			Indices:  indices,
		},
		Raw: chunks[0].Raw,
	}, nil
}
