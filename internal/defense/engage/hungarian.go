package engage

import "math"

// hungarian implements the Kuhn–Munkres (Hungarian) algorithm for
// optimal threat-to-battery pairing in batch planning. It solves the
// balanced assignment problem in O(n³) time, replacing a greedy
// highest-score-first sweep which could starve a threat when two
// threats compete for the same battery.
//
// The cost matrix entry C[i][j] is derived from the engagement score of
// battery j against threat i (lower cost = better pairing). Pairings
// the scorer rejects outright are set to forbiddenCost so the solver
// never selects them.
//
// Returns assignments[i] = j meaning threat i → battery j, or -1 if
// threat i is unassigned (no capable battery remains for it).

const forbiddenCost = 1e18 // Stand-in for infinity in the cost matrix

// hungarianAssign solves the rectangular assignment problem for an n×m
// cost matrix. It returns assignments[i] = column index assigned to row
// i, or -1 if unassigned. Costs ≥ forbiddenCost are treated as
// forbidden.
//
// For n ≤ m it pads nothing; for n > m it pads columns so excess rows
// stay unassigned.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		result := make([]int, n)
		for i := range result {
			result[i] = -1
		}
		return result
	}

	// Make the matrix square by padding.
	dim := n
	if m > dim {
		dim = m
	}

	// Padded and forbidden cells share a fill value scaled to the real
	// costs. Filling with forbiddenCost itself would be wrong: the ulp
	// of float64 at 1e18 is 128, so once a matching total is dominated
	// by padded cells, real cost differences of a few units vanish and
	// the solver can hand a contested column to the worse row.
	// 2*dim*maxAbs+1 keeps the fill strictly worse than any all-real
	// matching while staying in full-precision range.
	maxAbs := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if cost[i][j] >= forbiddenCost {
				continue
			}
			if a := math.Abs(cost[i][j]); a > maxAbs {
				maxAbs = a
			}
		}
	}
	fill := maxAbs*float64(2*dim) + 1

	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		for j := 0; j < dim; j++ {
			if i < n && j < m && cost[i][j] < forbiddenCost {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = fill
			}
		}
	}

	// Kuhn-Munkres with potentials (Jonker-Volgenant variant).
	// Uses 1-indexed arrays internally for cleaner index arithmetic.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1) // Row potentials
	v := make([]float64, dim+1) // Column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0 // Virtual column

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path.
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	// Extract assignments (row → column).
	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	// Trim to original dimensions and reject forbidden assignments.
	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || cost[i][col] >= forbiddenCost {
			result[i] = -1
		} else {
			result[i] = col
		}
	}

	return result
}
