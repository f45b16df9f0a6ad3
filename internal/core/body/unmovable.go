package body

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// SurfaceMaterial holds the contact properties of a body's fixtures.
type SurfaceMaterial struct {
	Friction    float64 `yaml:"friction" json:"friction"`
	Restitution float64 `yaml:"restitution" json:"restitution"`
}

// UnmovableBody is a static obstacle made of one or more convex backend parts.
type UnmovableBody struct {
	id      ID
	parts   []*box2d.B2Body
	outline []box2d.B2Vec2 // in the first part's local frame
	anchors []*Anchor
}

// NewUnmovableBody decomposes poly into convex parts and places anchors along its edges,
// anchorsDensity anchors per unit of length, each bound to its nearest part.
func NewUnmovableBody(w *World, poly geometry.Poly, anchorsDensity float64, m SurfaceMaterial) (*UnmovableBody, error) {
	parts, err := geometry.ConvexParts(poly, MaxPolygonVertices)
	if err != nil {
		return nil, err
	}
	u := &UnmovableBody{id: w.newID()}
	partPolys := make([]geometry.Poly, 0, len(parts))
	for _, part := range parts {
		c := part.Centroid()
		b := w.createBody(bodyParams{static: true, position: c})
		addPolygon(b, part.Translated(c.Scale(-1)).Vertices, fixtureParams{
			friction:    m.Friction,
			restitution: m.Restitution,
			filter:      defaultFilter(),
		})
		b.SetUserData(u)
		u.parts = append(u.parts, b)
		partPolys = append(partPolys, part)
	}
	for _, v := range poly.CounterClockwise().Vertices {
		u.outline = append(u.outline, u.parts[0].GetLocalPoint(toVec(v)))
	}

	for _, p := range edgeAnchorPoints(poly.CounterClockwise(), anchorsDensity) {
		nearest, best := 0, math.Inf(1)
		for i, part := range partPolys {
			d := part.Distance(p)
			if part.Contains(p) {
				d = 0
			}
			if d < best {
				nearest, best = i, d
			}
		}
		u.anchors = append(u.anchors, newAnchor(u, u.parts[nearest], p))
	}
	return u, nil
}

func (u *UnmovableBody) ID() ID { return u.id }

// Poly returns the outline transformed by the live transform of the first part.
func (u *UnmovableBody) Poly() geometry.Poly {
	ref := u.parts[0]
	vs := make([]geometry.Point, len(u.outline))
	for i, v := range u.outline {
		vs[i] = fromVec(ref.GetWorldPoint(v))
	}
	return geometry.Poly{Vertices: vs}
}

func (u *UnmovableBody) Mass() float64                        { return 0 }
func (u *UnmovableBody) Angle() float64                       { return 0 }
func (u *UnmovableBody) CenterLinearVelocity() geometry.Point { return geometry.Origin }
func (u *UnmovableBody) Anchors() []*Anchor                   { return u.anchors }
func (u *UnmovableBody) BackendBodies() []*box2d.B2Body       { return u.parts }
func (u *UnmovableBody) BackendJoints() []box2d.B2JointInterface {
	return nil
}

func (u *UnmovableBody) String() string {
	return fmt.Sprintf("unmovable#%d(%d parts)", u.id, len(u.parts))
}

// edgeAnchorPoints spreads points along each side of poly: ceil(length*density) per side, at
// the centers of equal sub-segments. A non-positive density yields no points.
func edgeAnchorPoints(poly geometry.Poly, density float64) []geometry.Point {
	if density <= 0 {
		return nil
	}
	var points []geometry.Point
	for _, side := range poly.Sides() {
		n := int(math.Ceil(side.Length() * density))
		if n < 1 {
			n = 1
		}
		for i := 0; i < n; i++ {
			points = append(points, side.PointAtRate((float64(i)+0.5)/float64(n)))
		}
	}
	return points
}
