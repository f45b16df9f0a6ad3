package body

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// MaxPolygonVertices is the largest convex polygon the backend accepts.
const MaxPolygonVertices = box2d.B2_maxPolygonVertices

// Collision categories. Fixtures not belonging to voxels use CategoryDefault.
const (
	CategoryDefault uint16 = 0x0001
	CategoryVertex  uint16 = 0x0002
	CategoryCentral uint16 = 0x0004
	maskAll         uint16 = 0xFFFF
)

var (
	ErrSameBody          = errors.New("anchors belong to the same body")
	ErrUnknownLinkType   = errors.New("unknown link type")
	ErrForeignLink       = errors.New("link does not belong to this world")
	ErrInvalidParameters = errors.New("invalid body parameters")
)

// SoftLinkParams configures the spring joints created by soft links.
type SoftLinkParams struct {
	// RestDistanceRatio multiplies the sum of the anchors' distances to their outlines.
	RestDistanceRatio float64 `yaml:"rest_distance_ratio" json:"rest_distance_ratio"`
	Frequency         float64 `yaml:"frequency" json:"frequency"`
	Damping           float64 `yaml:"damping" json:"damping"`
}

// World wraps the backend world and owns the arena of live links.
type World struct {
	b2        *box2d.B2World
	nextBody  ID
	nextLink  LinkID
	nextGroup int16
	links     map[LinkID]*Link
}

func NewWorld(gravity geometry.Point) *World {
	w := box2d.MakeB2World(toVec(gravity))
	// the time-of-impact solver updates package-level counters in the backend, so worlds
	// stepped on different goroutines must keep it off
	w.M_continuousPhysics = false
	return &World{
		b2:    &w,
		links: make(map[LinkID]*Link),
	}
}

// Backend gives direct access to the backend world.
func (w *World) Backend() *box2d.B2World { return w.b2 }

// Step advances the backend by exactly one fixed step.
func (w *World) Step(dt float64, velocityIterations, positionIterations int) {
	w.b2.Step(dt, velocityIterations, positionIterations)
}

func (w *World) newID() ID {
	w.nextBody++
	return w.nextBody
}

// newGroup returns a fresh negative collision group; fixtures sharing it never collide.
func (w *World) newGroup() int16 {
	w.nextGroup--
	if w.nextGroup == -32768 {
		w.nextGroup = -1
	}
	return w.nextGroup
}

type bodyParams struct {
	static         bool
	position       geometry.Point
	linearDamping  float64
	angularDamping float64
}

func (w *World) createBody(p bodyParams) *box2d.B2Body {
	def := box2d.MakeB2BodyDef()
	def.Type = box2d.B2BodyType.B2_dynamicBody
	if p.static {
		def.Type = box2d.B2BodyType.B2_staticBody
	}
	def.Position = toVec(p.position)
	def.LinearDamping = p.linearDamping
	def.AngularDamping = p.angularDamping
	def.AllowSleep = false
	return w.b2.CreateBody(&def)
}

type fixtureParams struct {
	density     float64
	friction    float64
	restitution float64
	filter      box2d.B2Filter
}

func defaultFilter() box2d.B2Filter {
	f := box2d.MakeB2Filter()
	f.CategoryBits = CategoryDefault
	f.MaskBits = maskAll
	return f
}

// addPolygon attaches a convex polygon, given in body-local coordinates, to b.
func addPolygon(b *box2d.B2Body, local []geometry.Point, p fixtureParams) *box2d.B2Fixture {
	shape := box2d.MakeB2PolygonShape()
	vs := toVecs(local)
	shape.Set(vs, len(vs))
	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = p.density
	fd.Friction = p.friction
	fd.Restitution = p.restitution
	fd.Filter = p.filter
	return b.CreateFixtureFromDef(&fd)
}

func addCircle(b *box2d.B2Body, radius float64, p fixtureParams) *box2d.B2Fixture {
	shape := box2d.MakeB2CircleShape()
	shape.M_radius = radius
	fd := box2d.MakeB2FixtureDef()
	fd.Shape = &shape
	fd.Density = p.density
	fd.Friction = p.friction
	fd.Restitution = p.restitution
	fd.Filter = p.filter
	return b.CreateFixtureFromDef(&fd)
}

// CreateLink connects src to dst with a backend constraint and registers the two halves of
// the connection on both anchors. It returns nil, without error, when src is already linked to
// the body owning dst.
func (w *World) CreateLink(src, dst *Anchor, typ LinkType, soft SoftLinkParams) (*Link, error) {
	if src.owner == dst.owner {
		return nil, ErrSameBody
	}
	if src.IsLinkedTo(dst.owner) {
		return nil, nil
	}
	var joint box2d.B2JointInterface
	switch typ {
	case LinkRigid:
		def := box2d.MakeB2WeldJointDef()
		def.Initialize(src.body, dst.body, toVec(geometry.Average(src.Point(), dst.Point())))
		joint = w.b2.CreateJoint(&def)
	case LinkSoft:
		def := box2d.MakeB2DistanceJointDef()
		def.Initialize(src.body, dst.body, toVec(src.Point()), toVec(dst.Point()))
		def.Length = (src.DistanceToOutline() + dst.DistanceToOutline()) * soft.RestDistanceRatio
		def.FrequencyHz = soft.Frequency
		def.DampingRatio = soft.Damping
		def.CollideConnected = true
		joint = w.b2.CreateJoint(&def)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLinkType, typ)
	}

	w.nextLink++
	forward := &Link{id: w.nextLink, source: src, destination: dst, typ: typ, joint: joint}
	w.nextLink++
	backward := &Link{id: w.nextLink, source: dst, destination: src, typ: typ, joint: joint}
	forward.reverse, backward.reverse = backward.id, forward.id

	src.links[forward.id] = forward
	dst.links[backward.id] = backward
	w.links[forward.id] = forward
	w.links[backward.id] = backward
	return forward, nil
}

// RemoveLink destroys the backend constraint of l and erases both halves of the connection.
func (w *World) RemoveLink(l *Link) error {
	if _, ok := w.links[l.id]; !ok {
		return fmt.Errorf("%w: link %d", ErrForeignLink, l.id)
	}
	reversed := l.Reversed()
	w.b2.DestroyJoint(l.joint)
	delete(l.source.links, l.id)
	delete(w.links, l.id)
	if reversed != nil {
		delete(reversed.source.links, reversed.id)
		delete(w.links, reversed.id)
	}
	return nil
}

// Links returns every live link half, ordered by id.
func (w *World) Links() []*Link {
	links := make([]*Link, 0, len(w.links))
	for _, l := range w.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].id < links[j].id })
	return links
}

// Remove tears b down: the links of all its anchors first, then its backend joints, then its
// backend bodies. It returns the removed links (source-side halves).
func (w *World) Remove(b MultipartBody) ([]*Link, error) {
	var removed []*Link
	if a, ok := b.(Anchorable); ok {
		for _, anchor := range a.Anchors() {
			for _, l := range anchor.Links() {
				if err := w.RemoveLink(l); err != nil {
					return removed, err
				}
				removed = append(removed, l)
			}
		}
	}
	for _, j := range b.BackendJoints() {
		w.b2.DestroyJoint(j)
	}
	for _, bb := range b.BackendBodies() {
		w.b2.DestroyBody(bb)
	}
	return removed, nil
}

// Translate moves every backend body of b by delta.
func Translate(b MultipartBody, delta geometry.Point) {
	for _, bb := range b.BackendBodies() {
		bb.SetTransform(toVec(fromVec(bb.GetPosition()).Add(delta)), bb.GetAngle())
	}
}

// Rotate rotates every backend body of b by angle around center.
func Rotate(b MultipartBody, center geometry.Point, angle float64) {
	for _, bb := range b.BackendBodies() {
		pos := fromVec(bb.GetPosition()).RotateAround(center, angle)
		bb.SetTransform(toVec(pos), bb.GetAngle()+angle)
	}
}

// RayCast returns the closest point hit by the segment from→to, ignoring the excluded bodies.
func (w *World) RayCast(from, to geometry.Point, exclude []*box2d.B2Body) (geometry.Point, bool) {
	skip := make(map[*box2d.B2Body]struct{}, len(exclude))
	for _, b := range exclude {
		skip[b] = struct{}{}
	}
	var hit geometry.Point
	found := false
	w.b2.RayCast(func(fixture *box2d.B2Fixture, point box2d.B2Vec2, _ box2d.B2Vec2, fraction float64) float64 {
		if _, ok := skip[fixture.GetBody()]; ok {
			return -1
		}
		hit = fromVec(point)
		found = true
		return fraction
	}, toVec(from), toVec(to))
	return hit, found
}

// InContact returns the backend bodies touching any of bodies, excluding bodies themselves.
func (w *World) InContact(bodies []*box2d.B2Body) []*box2d.B2Body {
	own := make(map[*box2d.B2Body]struct{}, len(bodies))
	for _, b := range bodies {
		own[b] = struct{}{}
	}
	var out []*box2d.B2Body
	seen := make(map[*box2d.B2Body]struct{})
	for _, b := range bodies {
		for ce := b.GetContactList(); ce != nil; ce = ce.Next {
			if ce.Contact == nil || !ce.Contact.IsTouching() {
				continue
			}
			if _, ok := own[ce.Other]; ok {
				continue
			}
			if _, ok := seen[ce.Other]; ok {
				continue
			}
			seen[ce.Other] = struct{}{}
			out = append(out, ce.Other)
		}
	}
	return out
}
