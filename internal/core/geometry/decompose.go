package geometry

import (
	"fmt"
	"math"
)

// ConvexParts splits p into convex polygons with at most maxVertices vertices each.
// Convex inputs within the limit are returned as they are (counter-clockwise); the others are
// ear-clipped into triangles that are then merged back greedily along shared diagonals.
func ConvexParts(p Poly, maxVertices int) ([]Poly, error) {
	if maxVertices < 3 {
		return nil, fmt.Errorf("max vertices %d below 3", maxVertices)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ccw := dedup(p.CounterClockwise())
	if err := ccw.Validate(); err != nil {
		return nil, err
	}
	if ccw.IsConvex() && len(ccw.Vertices) <= maxVertices {
		return []Poly{ccw}, nil
	}

	pieces, err := triangulate(ccw.Vertices)
	if err != nil {
		return nil, err
	}
	for merged := true; merged; {
		merged = false
	search:
		for i := 0; i < len(pieces); i++ {
			for j := i + 1; j < len(pieces); j++ {
				if m, ok := mergePieces(ccw.Vertices, pieces[i], pieces[j], maxVertices); ok {
					pieces[i] = m
					pieces = append(pieces[:j], pieces[j+1:]...)
					merged = true
					break search
				}
			}
		}
	}

	parts := make([]Poly, 0, len(pieces))
	for _, piece := range pieces {
		vs := make([]Point, len(piece))
		for k, idx := range piece {
			vs[k] = ccw.Vertices[idx]
		}
		parts = append(parts, Poly{Vertices: vs})
	}
	return parts, nil
}

func dedup(p Poly) Poly {
	vs := make([]Point, 0, len(p.Vertices))
	for i, v := range p.Vertices {
		next := p.Vertices[(i+1)%len(p.Vertices)]
		if v.Distance(next) < epsilon {
			continue
		}
		vs = append(vs, v)
	}
	return Poly{Vertices: vs}
}

// triangulate ear-clips a counter-clockwise simple polygon; collinear vertices are dropped.
func triangulate(pts []Point) ([][]int, error) {
	idx := make([]int, len(pts))
	for i := range idx {
		idx[i] = i
	}
	var tris [][]int
	for len(idx) > 3 {
		found := false
		n := len(idx)
		for i := 0; i < n; i++ {
			prev, cur, next := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
			a, b, c := pts[prev], pts[cur], pts[next]
			cross := b.Sub(a).Cross(c.Sub(b))
			if math.Abs(cross) < epsilon {
				idx = append(idx[:i], idx[i+1:]...)
				found = true
				break
			}
			if cross < 0 {
				continue
			}
			ear := true
			for _, o := range idx {
				if o == prev || o == cur || o == next {
					continue
				}
				if inTriangle(pts[o], a, b, c) {
					ear = false
					break
				}
			}
			if !ear {
				continue
			}
			tris = append(tris, []int{prev, cur, next})
			idx = append(idx[:i], idx[i+1:]...)
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: not a simple polygon", ErrDegeneratePoly)
		}
	}
	if len(idx) == 3 {
		a, b, c := pts[idx[0]], pts[idx[1]], pts[idx[2]]
		if math.Abs(b.Sub(a).Cross(c.Sub(b))) >= epsilon {
			tris = append(tris, idx)
		}
	}
	if len(tris) == 0 {
		return nil, ErrDegeneratePoly
	}
	return tris, nil
}

func inTriangle(p, a, b, c Point) bool {
	d1 := b.Sub(a).Cross(p.Sub(a))
	d2 := c.Sub(b).Cross(p.Sub(b))
	d3 := a.Sub(c).Cross(p.Sub(c))
	return d1 >= -epsilon && d2 >= -epsilon && d3 >= -epsilon
}

// mergePieces joins two counter-clockwise index loops sharing an edge if the result stays
// convex and within the vertex limit.
func mergePieces(pts []Point, a, b []int, maxVertices int) ([]int, bool) {
	if len(a)+len(b)-2 > maxVertices {
		return nil, false
	}
	for k := range a {
		a0, a1 := a[k], a[(k+1)%len(a)]
		for m := range b {
			if b[m] != a1 || b[(m+1)%len(b)] != a0 {
				continue
			}
			merged := make([]int, 0, len(a)+len(b)-2)
			for s := 1; s <= len(a); s++ {
				merged = append(merged, a[(k+s)%len(a)])
			}
			for s := 2; s < len(b); s++ {
				merged = append(merged, b[(m+s)%len(b)])
			}
			if !convexLoop(pts, merged) {
				return nil, false
			}
			return merged, true
		}
	}
	return nil, false
}

func convexLoop(pts []Point, loop []int) bool {
	n := len(loop)
	for i := range loop {
		a, b, c := pts[loop[i]], pts[loop[(i+1)%n]], pts[loop[(i+2)%n]]
		if b.Sub(a).Cross(c.Sub(b)) < -epsilon {
			return false
		}
	}
	return true
}
