package layout

import "time"

// Assignment is the column colouring of one cluster. Columns and Spans are
// indexed like the cluster's events.
type Assignment struct {
	Columns []int
	Spans   []int
	Count   int

	collides [][]bool
}

// Collides reports whether events i and j of the cluster overlap.
func (a Assignment) Collides(i, j int) bool {
	return a.collides[i][j]
}

// AssignColumns gives every event the lowest column not taken by an
// earlier event it collides with. Count is the number of columns used,
// which may exceed any display cap.
func AssignColumns(c Cluster, tol time.Duration) Assignment {
	n := len(c)
	a := Assignment{
		Columns:  make([]int, n),
		Spans:    make([]int, n),
		collides: make([][]bool, n),
	}
	for i := range a.collides {
		a.collides[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if Overlaps(c[i], c[j], tol) {
				a.collides[i][j] = true
				a.collides[j][i] = true
			}
		}
	}

	for i := 0; i < n; i++ {
		used := make(map[int]bool)
		for j := 0; j < i; j++ {
			if a.collides[i][j] {
				used[a.Columns[j]] = true
			}
		}
		col := 0
		for used[col] {
			col++
		}
		a.Columns[i] = col
		a.Spans[i] = 1
		if col+1 > a.Count {
			a.Count = col + 1
		}
	}
	return a
}

// widen lets each event grow into columns to its right while no colliding
// event occupies them, up to maxSpan columns and never past lanes.
func (a *Assignment) widen(lanes, maxSpan int) {
	for i := range a.Columns {
		for a.Spans[i] < maxSpan {
			next := a.Columns[i] + a.Spans[i]
			if next >= lanes || a.occupied(i, next) {
				break
			}
			a.Spans[i]++
		}
	}
}

func (a *Assignment) occupied(i, col int) bool {
	for j := range a.Columns {
		if j == i || !a.collides[i][j] {
			continue
		}
		if col >= a.Columns[j] && col < a.Columns[j]+a.Spans[j] {
			return true
		}
	}
	return false
}
