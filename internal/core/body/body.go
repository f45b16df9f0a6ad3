// Package body implements the physical bodies of the simulation on top of the Box2D backend:
// unmovable terrain, rigid polygons, motorized rotational joints and soft voxels. Bodies expose
// attachable anchors and are linked to each other at runtime through Links.
package body

import (
	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// ID identifies a body within one World.
type ID uint64

// Body is the contract shared by every simulated body.
type Body interface {
	ID() ID
	// Poly is recomputed from the live backend transforms at every call.
	Poly() geometry.Poly
	Mass() float64
	// Angle is the signed rotation relative to the creation pose, in (-π, π].
	Angle() float64
	CenterLinearVelocity() geometry.Point
}

// Anchorable bodies expose anchors through which Links are formed.
type Anchorable interface {
	Body
	Anchors() []*Anchor
}

// Actuable bodies are driven once per tick, before the backend step.
type Actuable interface {
	Body
	Actuate(t, previousT float64)
}

// MultipartBody exposes the backend objects implementing the body, so that they can be
// added and removed atomically.
type MultipartBody interface {
	Body
	BackendBodies() []*box2d.B2Body
	BackendJoints() []box2d.B2JointInterface
}

// KindOf returns a short human-readable name of the concrete body kind.
func KindOf(b Body) string {
	switch b.(type) {
	case nil:
		return "nil"
	case *UnmovableBody:
		return "unmovable"
	case *RigidBody:
		return "rigid"
	case *Voxel:
		return "voxel"
	case *RotationalJoint:
		return "rotational-joint"
	default:
		return "unknown"
	}
}

func toVec(p geometry.Point) box2d.B2Vec2 { return box2d.MakeB2Vec2(p.X, p.Y) }

func fromVec(v box2d.B2Vec2) geometry.Point { return geometry.Point{X: v.X, Y: v.Y} }

func toVecs(points []geometry.Point) []box2d.B2Vec2 {
	vs := make([]box2d.B2Vec2, len(points))
	for i, p := range points {
		vs[i] = toVec(p)
	}
	return vs
}

// worldPolygon returns the world coordinates of the vertices of the first polygon fixture of b,
// in backend order.
func worldPolygon(b *box2d.B2Body) geometry.Poly {
	for f := b.GetFixtureList(); f != nil; f = f.GetNext() {
		shape, ok := f.GetShape().(*box2d.B2PolygonShape)
		if !ok {
			continue
		}
		vs := make([]geometry.Point, shape.M_count)
		for i := 0; i < shape.M_count; i++ {
			vs[i] = fromVec(b.GetWorldPoint(shape.M_vertices[i]))
		}
		return geometry.Poly{Vertices: vs}
	}
	return geometry.Poly{}
}

func totalMass(bodies []*box2d.B2Body) float64 {
	var m float64
	for _, b := range bodies {
		m += b.GetMass()
	}
	return m
}

// massWeightedVelocity averages the linear velocities of bodies weighted by their masses.
func massWeightedVelocity(bodies []*box2d.B2Body) geometry.Point {
	var total float64
	var v geometry.Point
	for _, b := range bodies {
		m := b.GetMass()
		total += m
		v = v.Add(fromVec(b.GetLinearVelocity()).Scale(m))
	}
	if total == 0 {
		return geometry.Origin
	}
	return v.Scale(1 / total)
}
