package mesh

import (
	"math"

	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// Bounds holds the axis-aligned bounding box of a vertex set.
type Bounds struct {
	Min vmath.Vec3
	Max vmath.Vec3
}

// ComputeBounds returns the bounding box of the finite vertices. ok is false
// when no finite vertex exists.
func ComputeBounds(vertices []vmath.Vec3) (b Bounds, ok bool) {
	b = Bounds{
		Min: vmath.Vec3{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		Max: vmath.Vec3{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, v := range vertices {
		if !vmath.Finite(v) {
			continue
		}
		updateBounds(&b, v)
		ok = true
	}
	return b, ok
}

// Size returns the extent of the box on each axis.
func (b Bounds) Size() vmath.Vec3 {
	return vmath.Vec3{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

func updateBounds(b *Bounds, p vmath.Vec3) {
	b.Min.X = math.Min(b.Min.X, p.X)
	b.Min.Y = math.Min(b.Min.Y, p.Y)
	b.Min.Z = math.Min(b.Min.Z, p.Z)
	b.Max.X = math.Max(b.Max.X, p.X)
	b.Max.Y = math.Max(b.Max.Y, p.Y)
	b.Max.Z = math.Max(b.Max.Z, p.Z)
}
