package geom

// Fixed-dimension matrix types for the estimation maths. Matrices are
// row-major flat arrays so predict/update steps can be written without
// per-call heap allocation; dimensions are checked at compile time by
// the type system rather than at run time.

// MinDeterminant is the determinant magnitude below which a 3x3 matrix
// is treated as singular and inversion falls back to the identity.
const MinDeterminant = 1e-12

// Mat3 is a 3x3 matrix, row-major.
type Mat3 [9]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// At returns the element at row i, column j.
func (m Mat3) At(i, j int) float64 { return m[i*3+j] }

// Set assigns the element at row i, column j.
func (m *Mat3) Set(i, j int, v float64) { m[i*3+j] = v }

// Add returns m + n.
func (m Mat3) Add(n Mat3) Mat3 {
	var out Mat3
	for i := range m {
		out[i] = m[i] + n[i]
	}
	return out
}

// MulVec returns m · v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Det returns the determinant of m.
func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Invert returns the inverse of m computed via the cofactor/determinant
// formula. A near-singular matrix (|det| < MinDeterminant) returns the
// identity matrix and ok=false instead of dividing by zero.
func (m Mat3) Invert() (Mat3, bool) {
	det := m.Det()
	if det > -MinDeterminant && det < MinDeterminant {
		return Identity3(), false
	}
	inv := 1 / det
	return Mat3{
		(m[4]*m[8] - m[5]*m[7]) * inv,
		(m[2]*m[7] - m[1]*m[8]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		(m[5]*m[6] - m[3]*m[8]) * inv,
		(m[0]*m[8] - m[2]*m[6]) * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
		(m[3]*m[7] - m[4]*m[6]) * inv,
		(m[1]*m[6] - m[0]*m[7]) * inv,
		(m[0]*m[4] - m[1]*m[3]) * inv,
	}, true
}

// Vec9 is a 9-component column vector.
type Vec9 [9]float64

// Add returns v + w.
func (v Vec9) Add(w Vec9) Vec9 {
	var out Vec9
	for i := range v {
		out[i] = v[i] + w[i]
	}
	return out
}

// Mat9 is a 9x9 matrix, row-major.
type Mat9 [81]float64

// Identity9 returns the 9x9 identity matrix.
func Identity9() Mat9 {
	var m Mat9
	for i := 0; i < 9; i++ {
		m[i*9+i] = 1
	}
	return m
}

// At returns the element at row i, column j.
func (m Mat9) At(i, j int) float64 { return m[i*9+j] }

// Set assigns the element at row i, column j.
func (m *Mat9) Set(i, j int, v float64) { m[i*9+j] = v }

// Add returns m + n.
func (m Mat9) Add(n Mat9) Mat9 {
	var out Mat9
	for i := range m {
		out[i] = m[i] + n[i]
	}
	return out
}

// Mul returns the matrix product m · n.
func (m Mat9) Mul(n Mat9) Mat9 {
	var out Mat9
	for i := 0; i < 9; i++ {
		for k := 0; k < 9; k++ {
			a := m[i*9+k]
			if a == 0 {
				continue
			}
			for j := 0; j < 9; j++ {
				out[i*9+j] += a * n[k*9+j]
			}
		}
	}
	return out
}

// Transpose returns mᵀ.
func (m Mat9) Transpose() Mat9 {
	var out Mat9
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			out[j*9+i] = m[i*9+j]
		}
	}
	return out
}

// MulVec returns m · v.
func (m Mat9) MulVec(v Vec9) Vec9 {
	var out Vec9
	for i := 0; i < 9; i++ {
		var sum float64
		for j := 0; j < 9; j++ {
			sum += m[i*9+j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// Symmetrize returns (m + mᵀ)/2. Covariance updates accumulate
// asymmetry from floating-point rounding; averaging with the transpose
// keeps the matrix symmetric.
func (m Mat9) Symmetrize() Mat9 {
	var out Mat9
	for i := 0; i < 9; i++ {
		for j := 0; j < 9; j++ {
			out[i*9+j] = (m[i*9+j] + m[j*9+i]) / 2
		}
	}
	return out
}
