// Package worker serves the optimization pipeline to remote callers over a
// websocket and to local callers through a background goroutine.
package worker

import (
	"errors"
	"fmt"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
	"github.com/Faultbox/vrmlopt/pkg/mesh"
)

// ErrBadRequest marks requests rejected before any work is done.
var ErrBadRequest = errors.New("bad request")

// Request asks for one document or chunk list to be optimized. Exactly one
// of VRML and Chunks must be set.
type Request struct {
	ID                string        `json:"id"`
	VRML              string        `json:"vrmlContent,omitempty"`
	Chunks            []ChunkRecord `json:"chunks,omitempty"`
	MergeCutoff       float64       `json:"mergeCutoff"`
	ReductionFraction *float64      `json:"reductionFraction"`
	// Optional overrides of the server defaults.
	Strategy   string `json:"strategy,omitempty"`
	FuseShapes *bool  `json:"fuseShapes,omitempty"`
}

// Response answers a Request. ID always echoes the request.
type Response struct {
	ID      string        `json:"id"`
	Success bool          `json:"success"`
	VRML    string        `json:"optimizedVRML,omitempty"`
	Chunks  []ChunkRecord `json:"chunks,omitempty"`
	Error   string        `json:"error,omitempty"`
	Stats   []mesh.Stats  `json:"stats,omitempty"`
}

// ChunkRecord is the wire form of a mesh.Chunk. Each vector is a JSON array
// that should hold three numbers; any other length decodes as the origin.
type ChunkRecord struct {
	Vertices [][]float64 `json:"vertices"`
	Indices  []int       `json:"indices"`
	Colors   [][]float64 `json:"colors"`
	Normals  [][]float64 `json:"normals"`
	Raw      string      `json:"rawWrapperText,omitempty"`
}

// Validate checks the request shape.
func (r *Request) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id", ErrBadRequest)
	}
	if (r.VRML == "") == (len(r.Chunks) == 0) {
		return fmt.Errorf("%w: exactly one of vrmlContent or chunks is required", ErrBadRequest)
	}
	if !(r.MergeCutoff > 0) {
		return fmt.Errorf("%w: mergeCutoff must be positive", ErrBadRequest)
	}
	if f := r.ReductionFraction; f != nil && !(*f > 0 && *f <= 1) {
		return fmt.Errorf("%w: reductionFraction must be in (0, 1]", ErrBadRequest)
	}
	return nil
}

func toVecs(in [][]float64) []vmath.Vec3 {
	if in == nil {
		return nil
	}
	out := make([]vmath.Vec3, len(in))
	for i, a := range in {
		out[i] = vmath.FromSlice(a)
	}
	return out
}

func fromVecs(in []vmath.Vec3) [][]float64 {
	out := make([][]float64, len(in))
	for i, v := range in {
		a := vmath.Array(v)
		out[i] = a[:]
	}
	return out
}

// ToChunk converts a record to a mesh chunk.
func (c ChunkRecord) ToChunk() mesh.Chunk {
	return mesh.Chunk{
		Mesh: mesh.Mesh{
			Vertices: toVecs(c.Vertices),
			Colors:   toVecs(c.Colors),
			Normals:  toVecs(c.Normals),
			Indices:  c.Indices,
		},
		Raw: c.Raw,
	}
}

// FromChunk converts a mesh chunk to its wire form.
func FromChunk(ch mesh.Chunk) ChunkRecord {
	return ChunkRecord{
		Vertices: fromVecs(ch.Vertices),
		Indices:  ch.Indices,
		Colors:   fromVecs(ch.Colors),
		Normals:  fromVecs(ch.Normals),
		Raw:      ch.Raw,
	}
}
