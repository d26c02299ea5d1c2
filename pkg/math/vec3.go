// Package math provides the vector and matrix primitives used by the mesh
// pipeline. Vectors are gonum r3 values; all helpers are stateless.
package math

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a 3D vector (position, RGB color or normal).
type Vec3 = r3.Vec

// Precision is the number of decimal places kept by Truncate.
const Precision = 2

// ColorEpsilon is the per-channel tolerance used by SameColor.
const ColorEpsilon = 0.001

var log = zap.NewNop()

// SetLogger sets the logger used to report invalid input.
// A nil logger disables reporting.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

// FromSlice converts a numeric slice into a Vec3.
// Invalid input (wrong length or non-finite values) is logged and
// yields the zero vector.
func FromSlice(s []float64) Vec3 {
	if len(s) != 3 {
		log.Warn("invalid vector length", zap.Int("len", len(s)))
		return Vec3{}
	}
	v := Vec3{X: s[0], Y: s[1], Z: s[2]}
	if !Finite(v) {
		log.Warn("non-finite vector", zap.Float64s("v", s))
		return Vec3{}
	}
	return v
}

// Array returns v as a fixed-size array.
func Array(v Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromArray converts a fixed-size array into a Vec3.
func FromArray(a [3]float64) Vec3 {
	return Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// Finite reports whether every component of v is a finite number.
func Finite(v Vec3) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec3) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// WithinCutoffSquared reports whether |a-b|^2 <= cutoffSq.
// Each axis is checked on its own first so far-apart points exit early.
func WithinCutoffSquared(a, b Vec3, cutoffSq float64) bool {
	dx := (a.X - b.X) * (a.X - b.X)
	if dx > cutoffSq {
		return false
	}
	dy := (a.Y - b.Y) * (a.Y - b.Y)
	if dy > cutoffSq {
		return false
	}
	dz := (a.Z - b.Z) * (a.Z - b.Z)
	if dz > cutoffSq {
		return false
	}
	return dx+dy+dz <= cutoffSq
}

// SameColor reports whether every channel of a and b differs by less than ColorEpsilon.
func SameColor(a, b Vec3) bool {
	return math.Abs(a.X-b.X) < ColorEpsilon &&
		math.Abs(a.Y-b.Y) < ColorEpsilon &&
		math.Abs(a.Z-b.Z) < ColorEpsilon
}

// Truncate rounds each component of v to Precision decimal places.
func Truncate(v Vec3) Vec3 {
	return Vec3{X: round2(v.X), Y: round2(v.Y), Z: round2(v.Z)}
}

// TruncateAll returns a truncated copy of vs.
func TruncateAll(vs []Vec3) []Vec3 {
	if vs == nil {
		return nil
	}
	out := make([]Vec3, len(vs))
	for i, v := range vs {
		out[i] = Truncate(v)
	}
	return out
}

func round2(x float64) float64 {
	r := math.Round(x*100) / 100
	if r == 0 {
		// drop negative zero so "-0" never reaches the serializer
		return 0
	}
	return r
}

// Scale returns v * s. A non-finite scalar is logged and yields the zero vector.
func Scale(v Vec3, s float64) Vec3 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		log.Warn("invalid scale factor", zap.Float64("s", s))
		return Vec3{}
	}
	return r3.Scale(s, v)
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec3) Vec3 {
	return r3.Scale(0.5, r3.Add(a, b))
}

// Normal returns the unit normal of triangle (a, b, c) and the length of the
// unnormalized cross product. ok is false when that length is below eps.
func Normal(a, b, c Vec3, eps float64) (n Vec3, length float64, ok bool) {
	cross := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	length = r3.Norm(cross)
	if length < eps || math.IsNaN(length) {
		return Vec3{}, length, false
	}
	return r3.Scale(1/length, cross), length, true
}
