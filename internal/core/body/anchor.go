package body

import (
	"sort"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// LinkType is the kind of backend constraint behind a Link.
type LinkType uint8

const (
	// LinkRigid welds the two anchors: no relative motion.
	LinkRigid LinkType = iota
	// LinkSoft keeps the two anchors at a spring distance.
	LinkSoft
)

func (t LinkType) String() string {
	switch t {
	case LinkRigid:
		return "RIGID"
	case LinkSoft:
		return "SOFT"
	default:
		return "UNKNOWN"
	}
}

// LinkID identifies one half of a physical connection.
type LinkID uint64

// Link is one half of a connection between two anchors of different bodies. Every connection is
// made of two Links, one registered on each anchor, each referencing the other as its reverse.
type Link struct {
	id          LinkID
	reverse     LinkID
	source      *Anchor
	destination *Anchor
	typ         LinkType
	joint       box2d.B2JointInterface
}

func (l *Link) ID() LinkID                    { return l.id }
func (l *Link) Source() *Anchor               { return l.source }
func (l *Link) Destination() *Anchor          { return l.destination }
func (l *Link) Type() LinkType                { return l.typ }
func (l *Link) Joint() box2d.B2JointInterface { return l.joint }

// Reversed returns the other half of the connection, registered on the destination anchor.
func (l *Link) Reversed() *Link { return l.destination.links[l.reverse] }

// Anchor is an attachment point owned by exactly one body for its whole life.
type Anchor struct {
	owner Anchorable
	body  *box2d.B2Body
	local box2d.B2Vec2
	links map[LinkID]*Link
}

func newAnchor(owner Anchorable, b *box2d.B2Body, at geometry.Point) *Anchor {
	return &Anchor{
		owner: owner,
		body:  b,
		local: b.GetLocalPoint(toVec(at)),
		links: make(map[LinkID]*Link),
	}
}

func (a *Anchor) Owner() Anchorable          { return a.owner }
func (a *Anchor) BackendBody() *box2d.B2Body { return a.body }

// Point returns the current world position of the anchor.
func (a *Anchor) Point() geometry.Point { return fromVec(a.body.GetWorldPoint(a.local)) }

// Links returns the links having this anchor as source, ordered by id.
func (a *Anchor) Links() []*Link {
	links := make([]*Link, 0, len(a.links))
	for _, l := range a.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].id < links[j].id })
	return links
}

// IsLinkedTo reports whether the anchor has a link towards any anchor of target.
func (a *Anchor) IsLinkedTo(target Anchorable) bool {
	for _, l := range a.links {
		if l.destination.owner == target {
			return true
		}
	}
	return false
}

// LinkedAnchorables returns the distinct bodies this anchor is linked to.
func (a *Anchor) LinkedAnchorables() []Anchorable {
	var out []Anchorable
	seen := make(map[Anchorable]struct{})
	for _, l := range a.Links() {
		o := l.destination.owner
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out
}

// DistanceToOutline is the distance between the anchor and the outline of its owner.
func (a *Anchor) DistanceToOutline() float64 { return a.owner.Poly().Distance(a.Point()) }

// LinksBetween returns the links going from any anchor of src to any anchor of dst.
func LinksBetween(src, dst Anchorable) []*Link {
	var out []*Link
	for _, a := range src.Anchors() {
		for _, l := range a.Links() {
			if l.destination.owner == dst {
				out = append(out, l)
			}
		}
	}
	return out
}

// ApplyForce applies f, in world coordinates, at the anchor point.
func (a *Anchor) ApplyForce(f geometry.Point) {
	a.body.ApplyForce(toVec(f), a.body.GetWorldPoint(a.local), true)
}
