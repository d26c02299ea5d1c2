// Package mesh implements the vertex deduplication and simplification
// pipeline for triangulated, per-vertex colored meshes.
//
// Index streams follow the VRML coordIndex convention restricted to
// triangles: every face occupies four slots, three vertex indices followed
// by the Sentinel value -1.
package mesh

import (
	"errors"
	"fmt"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// Sentinel terminates every face in an index stream.
const Sentinel = -1

// Mesh errors.
var (
	ErrMappingIncomplete = errors.New("vertex mapping incomplete")
	ErrIndexStream       = errors.New("malformed index stream")
	ErrColorCount        = errors.New("color count does not match vertex count")
	ErrInvalidCutoff     = errors.New("merge cutoff must be a positive number")
)

// Mesh holds one triangulated mesh. Colors are index-aligned with Vertices.
// Normals are optional and carried through unchanged by the simplifiers.
type Mesh struct {
	Vertices []vmath.Vec3
	Colors   []vmath.Vec3
	Normals  []vmath.Vec3
	Indices  []int
}

// Chunk is one Shape block of a document: its mesh plus the raw text the
// serializer needs to rebuild the surrounding syntax.
type Chunk struct {
	Mesh
	Raw string
}

// FaceCount returns the number of sentinel-terminated faces.
func FaceCount(indices []int) int {
	n := 0
	for _, idx := range indices {
		if idx == Sentinel {
			n++
		}
	}
	return n
}

// FaceCount returns the number of faces in m.
func (m *Mesh) FaceCount() int {
	return FaceCount(m.Indices)
}

// Validate checks the structural invariants shared by every stage:
// one color per vertex and a well-formed 4-slot index stream.
func (m *Mesh) Validate() error {
	if len(m.Colors) != len(m.Vertices) {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrColorCount, len(m.Colors), len(m.Vertices))
	}
	return ValidateIndices(m.Indices)
}

// ValidateIndices checks that indices has length 4k and a sentinel in every
// fourth slot.
func ValidateIndices(indices []int) error {
	if len(indices)%4 != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of 4", ErrIndexStream, len(indices))
	}
	for i := 3; i < len(indices); i += 4 {
		if indices[i] != Sentinel {
			return fmt.Errorf("%w: face %d not terminated by %d", ErrIndexStream, i/4, Sentinel)
		}
	}
	return nil
}

// face returns the three vertex indices of face f and whether they are all
// valid indices into a vertex array of length n.
func face(indices []int, f, n int) ([3]int, bool) {
	tri := [3]int{indices[f*4], indices[f*4+1], indices[f*4+2]}
	for _, v := range tri {
		if v < 0 || v >= n {
			return tri, false
		}
	}
	return tri, true
}

// faceKey returns the sorted vertex triple of a face for duplicate detection.
func faceKey(tri [3]int) [3]int {
	a, b, c := tri[0], tri[1], tri[2]
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return [3]int{a, b, c}
}

// rebuildFaces remaps every face through mapping and drops degenerate and
// duplicate triangles. Faces that reference unmapped vertices are skipped.
func rebuildFaces(indices []int, mapping []int) []int {
	out := make([]int, 0, len(indices))
	seen := make(map[[3]int]struct{}, len(indices)/4)
	for f := 0; f < len(indices)/4; f++ {
		tri, ok := face(indices, f, len(mapping))
		if !ok {
			continue
		}
		a, b, c := mapping[tri[0]], mapping[tri[1]], mapping[tri[2]]
		if a < 0 || b < 0 || c < 0 {
			continue
		}
		if a == b || b == c || c == a {
			continue
		}
		key := faceKey([3]int{a, b, c})
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a, b, c, Sentinel)
	}
	return out
}
