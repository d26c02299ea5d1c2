// Package optimize runs the full document pipeline: parse, merge and
// simplify every Shape (or fuse them first), then serialize.
package optimize

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vrmlopt/internal/config"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
	"github.com/Faultbox/vrmlopt/pkg/vrml"
)

// Params holds the settings for one request.
type Params struct {
	MergeCutoff       float64
	ReductionFraction *float64
	Strategy          mesh.Strategy
	NeighborMode      mesh.NeighborMode
	// FuseShapes merges all geometry shapes into one before the per-chunk
	// pass, joining coincident vertices within FuseCutoff.
	FuseShapes bool
	FuseCutoff float64
}

// Result is the output of Process.
type Result struct {
	VRML   string
	Chunks []mesh.Chunk
	Stats  []mesh.Stats
	Fused  bool
}

// ParamsFromConfig converts the simplify section of the config.
func ParamsFromConfig(c config.SimplifyConfig) (Params, error) {
	strategy, err := mesh.ParseStrategy(c.Strategy)
	if err != nil {
		return Params{}, err
	}
	neighbors, err := mesh.ParseNeighborMode(c.NeighborMode)
	if err != nil {
		return Params{}, err
	}
	return Params{
		MergeCutoff:       c.MergeCutoff,
		ReductionFraction: c.ReductionFraction,
		Strategy:          strategy,
		NeighborMode:      neighbors,
		FuseShapes:        c.FuseShapes,
		FuseCutoff:        c.FuseCutoff,
	}, nil
}

func (p Params) meshParams() mesh.Params {
	return mesh.Params{
		MergeCutoff:       p.MergeCutoff,
		ReductionFraction: p.ReductionFraction,
		Strategy:          p.Strategy,
	}
}

// Pipeline runs documents through the mesh stages.
type Pipeline struct {
	log *zap.Logger
}

// New creates a pipeline. A nil logger discards output.
func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{log: log}
}

// Process parses content, optimizes every geometry Shape and serializes the
// result. Shapes without geometry are kept as they were.
func (p *Pipeline) Process(ctx context.Context, content string, params Params) (*Result, error) {
	doc, err := vrml.Parse(content, vrml.WithLogger(p.log.Named("vrml")))
	if err != nil {
		return nil, err
	}
	if len(doc.Chunks) == 0 {
		return nil, vrml.ErrNoShapes
	}

	chunks, stats, fused, err := p.run(ctx, doc.Chunks, params)
	if err != nil {
		return nil, err
	}

	res := &Result{Chunks: chunks, Stats: stats, Fused: fused}
	if fused {
		res.VRML = doc.SerializeFused(chunks[0])
	} else if res.VRML, err = doc.Serialize(chunks); err != nil {
		return nil, err
	}
	return res, nil
}

// ProcessChunks optimizes pre-parsed chunks.
func (p *Pipeline) ProcessChunks(ctx context.Context, chunks []mesh.Chunk, params Params) ([]mesh.Chunk, []mesh.Stats, error) {
	out, stats, _, err := p.run(ctx, chunks, params)
	return out, stats, err
}

func (p *Pipeline) run(ctx context.Context, chunks []mesh.Chunk, params Params) ([]mesh.Chunk, []mesh.Stats, bool, error) {
	log := p.log.Named("mesh")
	opts := []mesh.Option{
		mesh.WithLogger(log),
		mesh.WithNeighborMode(params.NeighborMode),
	}

	fused := false
	if params.FuseShapes && len(chunks) > 1 {
		one, err := mesh.MergeChunks(chunks, params.FuseCutoff, opts...)
		if err != nil {
			return nil, nil, false, fmt.Errorf("fuse shapes: %w", err)
		}
		chunks = []mesh.Chunk{one}
		fused = true
	}

	out, stats, err := mesh.NewCoordinator(opts...).Process(ctx, chunks, params.meshParams())
	if err != nil {
		return nil, nil, false, err
	}
	return out, stats, fused, nil
}
