package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/vrmlopt/internal/optimize"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

// Handler turns requests into responses. It is safe for concurrent use.
type Handler struct {
	pipeline *optimize.Pipeline
	defaults optimize.Params
	log      *zap.Logger
}

// NewHandler creates a handler. defaults supplies the strategy, neighbor
// mode and fuse settings a request does not override.
func NewHandler(defaults optimize.Params, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		pipeline: optimize.New(log),
		defaults: defaults,
		log:      log,
	}
}

// Handle runs one request. Failures, including panics in the pipeline, are
// reported in the response rather than returned.
func (h *Handler) Handle(ctx context.Context, req Request) (resp Response) {
	resp.ID = req.ID
	start := time.Now()
	log := h.log.With(zap.String("id", req.ID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while optimizing",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
			resp = Response{ID: req.ID, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if err := req.Validate(); err != nil {
		log.Warn("rejected request", zap.Error(err))
		resp.Error = err.Error()
		return resp
	}

	params, err := h.params(req)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	if req.VRML != "" {
		res, err := h.pipeline.Process(ctx, req.VRML, params)
		if err != nil {
			log.Warn("optimization failed", zap.Error(err))
			resp.Error = err.Error()
			return resp
		}
		resp.VRML = res.VRML
		resp.Stats = res.Stats
	} else {
		chunks := make([]mesh.Chunk, len(req.Chunks))
		for i, rec := range req.Chunks {
			chunks[i] = rec.ToChunk()
		}
		out, stats, err := h.pipeline.ProcessChunks(ctx, chunks, params)
		if err != nil {
			log.Warn("optimization failed", zap.Error(err))
			resp.Error = err.Error()
			return resp
		}
		resp.Chunks = make([]ChunkRecord, len(out))
		for i, ch := range out {
			resp.Chunks[i] = FromChunk(ch)
		}
		resp.Stats = stats
	}

	resp.Success = true
	log.Info("request complete",
		zap.Int("chunks", len(resp.Stats)),
		zap.Duration("elapsed", time.Since(start)))
	return resp
}

func (h *Handler) params(req Request) (optimize.Params, error) {
	p := h.defaults
	p.MergeCutoff = req.MergeCutoff
	p.ReductionFraction = req.ReductionFraction
	if req.Strategy != "" {
		s, err := mesh.ParseStrategy(req.Strategy)
		if err != nil {
			return p, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		p.Strategy = s
	}
	if req.FuseShapes != nil {
		p.FuseShapes = *req.FuseShapes
	}
	return p, nil
}
