package geometry

import (
	"errors"
	"math"
)

const epsilon = 1e-9

// ErrDegeneratePoly is returned for polygons with fewer than three vertices or zero area.
var ErrDegeneratePoly = errors.New("degenerate polygon")

// Poly is a simple polygon given by its vertices; the last vertex connects to the first.
type Poly struct {
	Vertices []Point `json:"vertices" yaml:"vertices"`
}

func NewPoly(vertices ...Point) Poly { return Poly{Vertices: vertices} }

// Rectangle returns the counter-clockwise w×h rectangle with its min corner in the origin.
func Rectangle(w, h float64) Poly {
	return NewPoly(Point{}, Point{X: w}, Point{X: w, Y: h}, Point{Y: h})
}

func Square(side float64) Poly { return Rectangle(side, side) }

// SignedArea is positive for counter-clockwise polygons.
func (p Poly) SignedArea() float64 {
	var a float64
	n := len(p.Vertices)
	for i := range p.Vertices {
		a += p.Vertices[i].Cross(p.Vertices[(i+1)%n])
	}
	return a / 2
}

func (p Poly) Area() float64 { return math.Abs(p.SignedArea()) }

// Centroid returns the area centroid, or the vertex average for degenerate polygons.
func (p Poly) Centroid() Point {
	a := p.SignedArea()
	if math.Abs(a) < epsilon {
		return Average(p.Vertices...)
	}
	var cx, cy float64
	n := len(p.Vertices)
	for i := range p.Vertices {
		v0, v1 := p.Vertices[i], p.Vertices[(i+1)%n]
		c := v0.Cross(v1)
		cx += (v0.X + v1.X) * c
		cy += (v0.Y + v1.Y) * c
	}
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

func (p Poly) BoundingBox() BoundingBox { return BoxOf(p.Vertices...) }

// Sides returns the edges of the polygon, starting from the first vertex.
func (p Poly) Sides() []Segment {
	n := len(p.Vertices)
	sides := make([]Segment, 0, n)
	for i := range p.Vertices {
		sides = append(sides, Segment{Src: p.Vertices[i], Dst: p.Vertices[(i+1)%n]})
	}
	return sides
}

func (p Poly) Perimeter() float64 {
	var l float64
	for _, s := range p.Sides() {
		l += s.Length()
	}
	return l
}

// IsConvex reports whether every turn has the same orientation.
func (p Poly) IsConvex() bool {
	n := len(p.Vertices)
	if n < 3 {
		return false
	}
	sign := 0
	for i := range p.Vertices {
		a, b, c := p.Vertices[i], p.Vertices[(i+1)%n], p.Vertices[(i+2)%n]
		cross := b.Sub(a).Cross(c.Sub(b))
		if math.Abs(cross) < epsilon {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return sign != 0
}

// CounterClockwise returns the polygon with counter-clockwise vertex order.
func (p Poly) CounterClockwise() Poly {
	if p.SignedArea() >= 0 {
		return p
	}
	vs := make([]Point, len(p.Vertices))
	for i, v := range p.Vertices {
		vs[len(vs)-1-i] = v
	}
	return Poly{Vertices: vs}
}

func (p Poly) Translated(d Point) Poly {
	vs := make([]Point, len(p.Vertices))
	for i, v := range p.Vertices {
		vs[i] = v.Add(d)
	}
	return Poly{Vertices: vs}
}

func (p Poly) Rotated(center Point, angle float64) Poly {
	vs := make([]Point, len(p.Vertices))
	for i, v := range p.Vertices {
		vs[i] = v.RotateAround(center, angle)
	}
	return Poly{Vertices: vs}
}

// Distance returns the distance between q and the polygon outline.
func (p Poly) Distance(q Point) float64 {
	d := math.Inf(1)
	for _, s := range p.Sides() {
		d = math.Min(d, s.Distance(q))
	}
	return d
}

// Contains reports whether q lies inside the polygon (even-odd rule).
func (p Poly) Contains(q Point) bool {
	in := false
	n := len(p.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > q.Y) != (b.Y > q.Y) && q.X < (b.X-a.X)*(q.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

// Validate returns ErrDegeneratePoly for polygons that cannot back a physical shape.
func (p Poly) Validate() error {
	if len(p.Vertices) < 3 || p.Area() < epsilon {
		return ErrDegeneratePoly
	}
	return nil
}
