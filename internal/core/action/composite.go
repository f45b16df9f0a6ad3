package action

import (
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// AttachClosestAnchors links up to N anchor pairs between Source and Target, closest pairs
// first. Source anchors already linked to Target are skipped, and links already joining the
// two bodies count toward N. Result: the created []*body.Link.
type AttachClosestAnchors struct {
	N      int
	Source body.Anchorable
	Target body.Anchorable
	Type   body.LinkType
}

func (AttachClosestAnchors) Kind() Kind { return KindAttachClosestAnchors }

func (a AttachClosestAnchors) Perform(p Performer, agent Agent) (any, error) {
	if a.Source == nil || a.Target == nil {
		return nil, Illegal(a, "source and target are required", nil)
	}
	if a.Source == a.Target {
		return nil, Illegal(a, "cannot attach a body to itself", body.ErrSameBody)
	}
	n := a.N - len(body.LinksBetween(a.Source, a.Target))
	pairs := closestPairs(n, freeAnchors(a.Source, a.Target), a.Target.Anchors())
	links := make([]*body.Link, 0, len(pairs))
	for _, pair := range pairs {
		o, err := p.Perform(CreateLink{Source: pair.source, Destination: pair.destination, Type: a.Type}, agent)
		if err != nil {
			return links, err
		}
		if l, ok := ResultAs[*body.Link](o); ok && l != nil {
			links = append(links, l)
		}
	}
	return links, nil
}

// AttachAnchor links Source to the closest anchor of Target. Result: the *body.Link, or nil
// when Target has no anchors or Source is already linked to it.
type AttachAnchor struct {
	Source *body.Anchor
	Target body.Anchorable
	Type   body.LinkType
}

func (AttachAnchor) Kind() Kind { return KindAttachAnchor }

func (a AttachAnchor) Perform(p Performer, agent Agent) (any, error) {
	if a.Source == nil || a.Target == nil {
		return nil, Illegal(a, "source and target are required", nil)
	}
	if a.Source.Owner() == a.Target {
		return nil, Illegal(a, "cannot attach a body to itself", body.ErrSameBody)
	}
	if a.Source.IsLinkedTo(a.Target) {
		return nil, nil
	}
	dst, _ := closestAnchor(a.Source, []body.Anchorable{a.Target})
	if dst == nil {
		return nil, nil
	}
	o, err := p.Perform(CreateLink{Source: a.Source, Destination: dst, Type: a.Type}, agent)
	if err != nil {
		return nil, err
	}
	if l, ok := ResultAs[*body.Link](o); ok && l != nil {
		return l, nil
	}
	return nil, nil
}

// TranslateBodyAt moves a body so that the min corner of its bounding box lands on
// Destination. Result: the body.
type TranslateBodyAt struct {
	Body        body.Body
	Destination geometry.Point
}

func (TranslateBodyAt) Kind() Kind { return KindTranslateBodyAt }

func (a TranslateBodyAt) Perform(p Performer, agent Agent) (any, error) {
	if a.Body == nil {
		return nil, Illegal(a, "body is required", nil)
	}
	delta := a.Destination.Sub(a.Body.Poly().BoundingBox().Min)
	return perform[body.Body](p, TranslateBody{Body: a.Body, Delta: delta}, agent)
}

// CreateAndTranslateVoxel creates a voxel and then moves its min corner to At. Result:
// *body.Voxel.
type CreateAndTranslateVoxel struct {
	CreateVoxel
	At geometry.Point
}

func (CreateAndTranslateVoxel) Kind() Kind { return KindCreateAndTranslateVoxel }

func (a CreateAndTranslateVoxel) Perform(p Performer, agent Agent) (any, error) {
	return createAndTranslate[*body.Voxel](p, agent, a.CreateVoxel, a.At)
}

// CreateAndTranslateRigidBody creates a rigid body and then moves its min corner to At.
// Result: *body.RigidBody.
type CreateAndTranslateRigidBody struct {
	CreateRigidBody
	At geometry.Point
}

func (CreateAndTranslateRigidBody) Kind() Kind { return KindCreateAndTranslateRigidBody }

func (a CreateAndTranslateRigidBody) Perform(p Performer, agent Agent) (any, error) {
	return createAndTranslate[*body.RigidBody](p, agent, a.CreateRigidBody, a.At)
}

// CreateAndTranslateRotationalJoint creates a joint and then moves its min corner to At.
// Result: *body.RotationalJoint.
type CreateAndTranslateRotationalJoint struct {
	CreateRotationalJoint
	At geometry.Point
}

func (CreateAndTranslateRotationalJoint) Kind() Kind { return KindCreateAndTranslateRotationalJoint }

func (a CreateAndTranslateRotationalJoint) Perform(p Performer, agent Agent) (any, error) {
	return createAndTranslate[*body.RotationalJoint](p, agent, a.CreateRotationalJoint, a.At)
}

// createAndTranslate runs the creation and the translation as two separate actions, so a
// failed translation leaves the created body in place.
func createAndTranslate[B body.Body](p Performer, agent Agent, create Action, at geometry.Point) (B, error) {
	b, err := perform[B](p, create, agent)
	if err != nil {
		return b, err
	}
	if _, err := perform[body.Body](p, TranslateBodyAt{Body: b, Destination: at}, agent); err != nil {
		return b, err
	}
	return b, nil
}

// DetachAnchor removes every link of Anchor. Result: the removed []*body.Link.
type DetachAnchor struct {
	Anchor *body.Anchor
}

func (DetachAnchor) Kind() Kind { return KindDetachAnchor }

func (a DetachAnchor) Perform(p Performer, agent Agent) (any, error) {
	if a.Anchor == nil {
		return nil, Illegal(a, "anchor is required", nil)
	}
	return removeLinks(p, agent, a.Anchor.Links(), nil)
}

// DetachAnchorFromAnchorable removes the links going from Anchor to Target. Result: the
// removed []*body.Link.
type DetachAnchorFromAnchorable struct {
	Anchor *body.Anchor
	Target body.Anchorable
}

func (DetachAnchorFromAnchorable) Kind() Kind { return KindDetachAnchorFromAnchorable }

func (a DetachAnchorFromAnchorable) Perform(p Performer, agent Agent) (any, error) {
	if a.Anchor == nil || a.Target == nil {
		return nil, Illegal(a, "anchor and target are required", nil)
	}
	return removeLinks(p, agent, a.Anchor.Links(), a.Target)
}

// DetachAllAnchorsFromAnchorable removes the links of every anchor of Anchorable. When From is
// set only the links reaching From are removed. Result: the removed []*body.Link.
type DetachAllAnchorsFromAnchorable struct {
	Anchorable body.Anchorable
	From       body.Anchorable
}

func (DetachAllAnchorsFromAnchorable) Kind() Kind { return KindDetachAllAnchorsFromAnchorable }

func (a DetachAllAnchorsFromAnchorable) Perform(p Performer, agent Agent) (any, error) {
	if a.Anchorable == nil {
		return nil, Illegal(a, "anchorable is required", nil)
	}
	var links []*body.Link
	for _, anchor := range a.Anchorable.Anchors() {
		links = append(links, anchor.Links()...)
	}
	return removeLinks(p, agent, links, a.From)
}

func removeLinks(p Performer, agent Agent, links []*body.Link, only body.Anchorable) ([]*body.Link, error) {
	removed := make([]*body.Link, 0, len(links))
	for _, l := range links {
		if only != nil && l.Destination().Owner() != only {
			continue
		}
		if _, err := perform[*body.Link](p, RemoveLink{Link: l}, agent); err != nil {
			return removed, err
		}
		removed = append(removed, l)
	}
	return removed, nil
}

// AttractClosestAnchors attracts up to N anchor pairs between Source and Target, closest pairs
// first, skipping Source anchors already linked to Target. Result: the []geometry.Point forces
// applied to the source anchors; pairs out of the attraction range contribute nothing.
type AttractClosestAnchors struct {
	N         int
	Source    body.Anchorable
	Target    body.Anchorable
	Magnitude float64
}

func (AttractClosestAnchors) Kind() Kind { return KindAttractClosestAnchors }

func (a AttractClosestAnchors) Perform(p Performer, agent Agent) (any, error) {
	if a.Source == nil || a.Target == nil {
		return nil, Illegal(a, "source and target are required", nil)
	}
	if a.Source == a.Target {
		return nil, Illegal(a, "cannot attract a body to itself", body.ErrSameBody)
	}
	pairs := closestPairs(a.N, freeAnchors(a.Source, a.Target), a.Target.Anchors())
	forces := make([]geometry.Point, 0, len(pairs))
	for _, pair := range pairs {
		o, err := p.Perform(AttractAnchor{Source: pair.source, Destination: pair.destination, Magnitude: a.Magnitude}, agent)
		if err != nil {
			return forces, err
		}
		if f, ok := ResultAs[geometry.Point](o); ok {
			forces = append(forces, f)
		}
	}
	return forces, nil
}

// AttractAndLinkClosestAnchorable handles every unlinked anchor of Source: the closest anchor
// among Candidates is linked when it is within LinkDistance, attracted otherwise. Result: the
// created []*body.Link.
type AttractAndLinkClosestAnchorable struct {
	Source       body.Anchorable
	Candidates   []body.Anchorable
	Magnitude    float64
	LinkDistance float64
	Type         body.LinkType
}

func (AttractAndLinkClosestAnchorable) Kind() Kind { return KindAttractAndLinkClosestAnchorable }

func (a AttractAndLinkClosestAnchorable) Perform(p Performer, agent Agent) (any, error) {
	if a.Source == nil {
		return nil, Illegal(a, "source is required", nil)
	}
	if a.LinkDistance <= 0 {
		return nil, Illegal(a, "link distance must be positive", nil)
	}
	var links []*body.Link
	for _, anchor := range a.Source.Anchors() {
		if len(anchor.Links()) > 0 {
			continue
		}
		dst, d := closestAnchor(anchor, a.Candidates)
		if dst == nil {
			continue
		}
		if d > a.LinkDistance {
			if _, err := p.Perform(AttractAnchor{Source: anchor, Destination: dst, Magnitude: a.Magnitude}, agent); err != nil {
				return links, err
			}
			continue
		}
		o, err := p.Perform(CreateLink{Source: anchor, Destination: dst, Type: a.Type}, agent)
		if err != nil {
			return links, err
		}
		if l, ok := ResultAs[*body.Link](o); ok && l != nil {
			links = append(links, l)
		}
	}
	return links, nil
}

var (
	_ SelfDescribed = AttachClosestAnchors{}
	_ SelfDescribed = AttachAnchor{}
	_ SelfDescribed = TranslateBodyAt{}
	_ SelfDescribed = CreateAndTranslateVoxel{}
	_ SelfDescribed = CreateAndTranslateRigidBody{}
	_ SelfDescribed = CreateAndTranslateRotationalJoint{}
	_ SelfDescribed = DetachAnchor{}
	_ SelfDescribed = DetachAnchorFromAnchorable{}
	_ SelfDescribed = DetachAllAnchorsFromAnchorable{}
	_ SelfDescribed = AttractClosestAnchors{}
	_ SelfDescribed = AttractAndLinkClosestAnchorable{}
)
