package geometry

import "math"

// Point is a 2D point or vector.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

var Origin = Point{}

func NewPoint(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(o Point) Point        { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point        { return Point{X: p.X - o.X, Y: p.Y - o.Y} }
func (p Point) Scale(s float64) Point    { return Point{X: p.X * s, Y: p.Y * s} }
func (p Point) Dot(o Point) float64      { return p.X*o.X + p.Y*o.Y }
func (p Point) Cross(o Point) float64    { return p.X*o.Y - p.Y*o.X }
func (p Point) Length() float64          { return math.Hypot(p.X, p.Y) }
func (p Point) Distance(o Point) float64 { return math.Hypot(o.X-p.X, o.Y-p.Y) }

// Direction is the angle of the vector with the x axis, in (-π, π].
func (p Point) Direction() float64 { return math.Atan2(p.Y, p.X) }

// Normalize returns the unit vector with the same direction; the zero vector stays zero.
func (p Point) Normalize() Point {
	l := p.Length()
	if l == 0 {
		return p
	}
	return p.Scale(1 / l)
}

// Rotate rotates the vector by angle radians around the origin.
func (p Point) Rotate(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// RotateAround rotates the point by angle radians around center.
func (p Point) RotateAround(center Point, angle float64) Point {
	return p.Sub(center).Rotate(angle).Add(center)
}

// Perpendicular returns the vector rotated by +90°.
func (p Point) Perpendicular() Point { return Point{X: -p.Y, Y: p.X} }

// Average returns the arithmetic mean of the points.
func Average(points ...Point) Point {
	if len(points) == 0 {
		return Origin
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// NormalizeAngle maps a in (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
