package geometry

import "math"

// BoundingBox is an axis-aligned box.
type BoundingBox struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

func (b BoundingBox) Width() float64  { return b.Max.X - b.Min.X }
func (b BoundingBox) Height() float64 { return b.Max.Y - b.Min.Y }
func (b BoundingBox) Center() Point   { return Average(b.Min, b.Max) }

// Enclosing returns the smallest box containing all the given boxes.
func Enclosing(boxes ...BoundingBox) BoundingBox {
	if len(boxes) == 0 {
		return BoundingBox{}
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out.Min = Point{X: math.Min(out.Min.X, b.Min.X), Y: math.Min(out.Min.Y, b.Min.Y)}
		out.Max = Point{X: math.Max(out.Max.X, b.Max.X), Y: math.Max(out.Max.Y, b.Max.Y)}
	}
	return out
}

// BoxOf returns the bounding box of a set of points.
func BoxOf(points ...Point) BoundingBox {
	if len(points) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}
