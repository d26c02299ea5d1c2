package mesh

import (
	vmath "github.com/Faultbox/vrmlopt/pkg/math"
)

// degenerateEpsilon is the cross-product length below which a triangle
// contributes no plane.
const degenerateEpsilon = 1e-10

// Quadric is the sum over a set of planes (a,b,c,d) of p*p^T. Evaluating it
// at a point gives the sum of squared distances to those planes.
type Quadric struct {
	m vmath.Mat4
}

// PlaneQuadric returns the quadric of a single plane ax+by+cz+d = 0.
func PlaneQuadric(plane [4]float64) Quadric {
	return Quadric{m: vmath.Outer(plane)}
}

// Add accumulates other into q.
func (q *Quadric) Add(other Quadric) {
	q.m = q.m.Add(other.m)
}

// Sum returns q + other without modifying either.
func (q Quadric) Sum(other Quadric) Quadric {
	return Quadric{m: q.m.Add(other.m)}
}

// Evaluate returns the quadric error at p.
func (q Quadric) Evaluate(p vmath.Vec3) float64 {
	return q.m.QuadraticForm(p)
}

// Optimal returns the point minimizing q by solving A*x = -b with Cramer's
// rule, where A is the upper-left 3x3 block and b the linear column.
// When the system is singular it returns fallback and ok=false.
func (q Quadric) Optimal(fallback vmath.Vec3) (p vmath.Vec3, ok bool) {
	b := q.m.Column(3)
	x, ok := vmath.SolveCramer(q.m.Upper3(), vmath.Vec3{X: -b.X, Y: -b.Y, Z: -b.Z})
	if !ok {
		return fallback, false
	}
	return x, true
}

// trianglePlane returns the normalized plane through a, b and c.
// ok is false for degenerate triangles.
func trianglePlane(a, b, c vmath.Vec3) (plane [4]float64, ok bool) {
	n, _, ok := vmath.Normal(a, b, c, degenerateEpsilon)
	if !ok {
		return plane, false
	}
	d := -(n.X*a.X + n.Y*a.Y + n.Z*a.Z)
	return [4]float64{n.X, n.Y, n.Z, d}, true
}
