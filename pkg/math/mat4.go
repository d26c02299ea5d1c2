package math

import "math"

// Mat4 is a 4x4 matrix in row-major order.
// Layout: [m0  m1  m2  m3 ]
//
//	[m4  m5  m6  m7 ]
//	[m8  m9  m10 m11]
//	[m12 m13 m14 m15]
type Mat4 [16]float64

// Mat3 is a 3x3 matrix in row-major order.
type Mat3 [9]float64

// SingularEpsilon is the determinant magnitude below which a 3x3 system is
// treated as singular.
const SingularEpsilon = 1e-10

// Outer returns the outer product p*p^T of a 4-vector.
func Outer(p [4]float64) Mat4 {
	var m Mat4
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m[r*4+c] = p[r] * p[c]
		}
	}
	return m
}

// Add returns m + other.
func (m Mat4) Add(other Mat4) Mat4 {
	for i := range m {
		m[i] += other[i]
	}
	return m
}

// QuadraticForm evaluates [x y z 1] * m * [x y z 1]^T.
func (m Mat4) QuadraticForm(p Vec3) float64 {
	x, y, z := p.X, p.Y, p.Z
	return x*(m[0]*x+m[1]*y+m[2]*z+m[3]) +
		y*(m[4]*x+m[5]*y+m[6]*z+m[7]) +
		z*(m[8]*x+m[9]*y+m[10]*z+m[11]) +
		(m[12]*x + m[13]*y + m[14]*z + m[15])
}

// Upper3 returns the upper-left 3x3 block.
func (m Mat4) Upper3() Mat3 {
	return Mat3{
		m[0], m[1], m[2],
		m[4], m[5], m[6],
		m[8], m[9], m[10],
	}
}

// Column returns the first three entries of column c.
func (m Mat4) Column(c int) Vec3 {
	return Vec3{X: m[c], Y: m[4+c], Z: m[8+c]}
}

// Det returns the determinant.
func (a Mat3) Det() float64 {
	return a[0]*(a[4]*a[8]-a[5]*a[7]) -
		a[1]*(a[3]*a[8]-a[5]*a[6]) +
		a[2]*(a[3]*a[7]-a[4]*a[6])
}

// withColumn returns a copy of a with column c replaced by v.
func (a Mat3) withColumn(c int, v Vec3) Mat3 {
	a[c] = v.X
	a[3+c] = v.Y
	a[6+c] = v.Z
	return a
}

// SolveCramer solves a*x = b with Cramer's rule.
// ok is false when |det(a)| < SingularEpsilon or the result is not finite.
func SolveCramer(a Mat3, b Vec3) (x Vec3, ok bool) {
	det := a.Det()
	if math.Abs(det) < SingularEpsilon || math.IsNaN(det) {
		return Vec3{}, false
	}
	x = Vec3{
		X: a.withColumn(0, b).Det() / det,
		Y: a.withColumn(1, b).Det() / det,
		Z: a.withColumn(2, b).Det() / det,
	}
	if !Finite(x) {
		return Vec3{}, false
	}
	return x, true
}
