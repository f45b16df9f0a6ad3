package body

import (
	"fmt"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// RigidMaterial holds the physical properties of a RigidBody.
type RigidMaterial struct {
	SurfaceMaterial `yaml:",inline"`
	LinearDamping   float64 `yaml:"linear_damping" json:"linear_damping"`
	AngularDamping  float64 `yaml:"angular_damping" json:"angular_damping"`
}

// RigidBody is a dynamic convex polygon with its mass spread over its area.
type RigidBody struct {
	id               ID
	body             *box2d.B2Body
	anchors          []*Anchor
	initialDirection float64
}

func NewRigidBody(w *World, poly geometry.Poly, mass, anchorsDensity float64, m RigidMaterial) (*RigidBody, error) {
	if err := poly.Validate(); err != nil {
		return nil, err
	}
	if !poly.IsConvex() || len(poly.Vertices) > MaxPolygonVertices {
		return nil, fmt.Errorf("%w: rigid body needs a convex polygon with at most %d vertices", ErrInvalidParameters, MaxPolygonVertices)
	}
	if mass <= 0 {
		return nil, fmt.Errorf("%w: non-positive mass %.3f", ErrInvalidParameters, mass)
	}
	c := poly.Centroid()
	b := w.createBody(bodyParams{position: c, linearDamping: m.LinearDamping, angularDamping: m.AngularDamping})
	addPolygon(b, poly.Translated(c.Scale(-1)).Vertices, fixtureParams{
		density:     mass / poly.Area(),
		friction:    m.Friction,
		restitution: m.Restitution,
		filter:      defaultFilter(),
	})
	r := &RigidBody{id: w.newID(), body: b}
	b.SetUserData(r)
	r.initialDirection = firstEdgeDirection(r.Poly())
	for _, p := range edgeAnchorPoints(poly.CounterClockwise(), anchorsDensity) {
		r.anchors = append(r.anchors, newAnchor(r, b, p))
	}
	return r, nil
}

func (r *RigidBody) ID() ID { return r.id }

// Poly returns the vertices of the backend shape, in backend order.
func (r *RigidBody) Poly() geometry.Poly { return worldPolygon(r.body) }

func (r *RigidBody) Mass() float64 { return r.body.GetMass() }

// Angle is computed from the rotation of the first edge of the backend shape, whose vertex
// order may differ from the order of the creation polygon.
func (r *RigidBody) Angle() float64 {
	return geometry.NormalizeAngle(firstEdgeDirection(r.Poly()) - r.initialDirection)
}

func (r *RigidBody) CenterLinearVelocity() geometry.Point {
	return fromVec(r.body.GetLinearVelocity())
}

func (r *RigidBody) Anchors() []*Anchor                      { return r.anchors }
func (r *RigidBody) BackendBodies() []*box2d.B2Body          { return []*box2d.B2Body{r.body} }
func (r *RigidBody) BackendJoints() []box2d.B2JointInterface { return nil }

func (r *RigidBody) String() string { return fmt.Sprintf("rigid#%d", r.id) }

func firstEdgeDirection(p geometry.Poly) float64 {
	if len(p.Vertices) < 2 {
		return 0
	}
	return p.Vertices[1].Sub(p.Vertices[0]).Direction()
}
