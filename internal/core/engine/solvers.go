package engine

import (
	"errors"
	"fmt"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/observability/log"
)

type solver func(e *Engine, a action.Action, agent action.Agent) (any, error)

// register binds the solver of the action type A to the kind A reports.
func register[A action.Action](solvers map[action.Kind]solver, fn func(e *Engine, a A, agent action.Agent) (any, error)) {
	var zero A
	solvers[zero.Kind()] = func(e *Engine, a action.Action, agent action.Agent) (any, error) {
		typed, ok := a.(A)
		if !ok {
			return nil, &action.UnsupportedActionError{Action: a, Reason: fmt.Sprintf("expected %T, got %T", zero, a)}
		}
		return fn(e, typed, agent)
	}
}

func defaultSolvers() map[action.Kind]solver {
	s := make(map[action.Kind]solver)
	register(s, (*Engine).addAgent)
	register(s, (*Engine).createUnmovableBody)
	register(s, (*Engine).createRigidBody)
	register(s, (*Engine).createVoxel)
	register(s, (*Engine).createRotationalJoint)
	register(s, (*Engine).removeBody)
	register(s, (*Engine).translateBody)
	register(s, (*Engine).rotateBody)
	register(s, (*Engine).createLink)
	register(s, (*Engine).removeLink)
	register(s, (*Engine).attractAnchor)
	register(s, (*Engine).actuateVoxel)
	register(s, (*Engine).actuateRotationalJoint)
	register(s, (*Engine).senseAngle)
	register(s, (*Engine).senseRotatedVelocity)
	register(s, (*Engine).senseDistanceToBody)
	register(s, (*Engine).senseContact)
	register(s, (*Engine).senseAreaRatio)
	register(s, (*Engine).senseSideCompression)
	register(s, (*Engine).senseSideAttachment)
	register(s, (*Engine).senseJointAngle)
	return s
}

func (e *Engine) addAgent(a action.AddAgent, _ action.Agent) (any, error) {
	if a.Agent == nil {
		return nil, action.Illegal(a, "agent is required", nil)
	}
	for _, st := range e.agents {
		if st.agent.ID() == a.Agent.ID() {
			return nil, action.Illegal(a, fmt.Sprintf("agent %s already added", a.Agent.ID()), nil)
		}
	}
	if err := a.Agent.Assemble(e); err != nil {
		return nil, fmt.Errorf("assemble agent %s: %w", a.Agent.ID(), err)
	}
	e.agents = append(e.agents, &agentState{agent: a.Agent})
	e.logger.Debug("agent added", log.Stringer("agent", a.Agent.ID()), log.Int("bodies", len(a.Agent.Bodies())))
	return a.Agent, nil
}

func (e *Engine) density(requested float64) float64 {
	if requested < 0 {
		return e.cfg.AnchorsDensity
	}
	return requested
}

func (e *Engine) createUnmovableBody(a action.CreateUnmovableBody, _ action.Agent) (any, error) {
	u, err := body.NewUnmovableBody(e.world, a.Poly, e.density(a.AnchorsDensity), e.cfg.Terrain)
	if err != nil {
		return nil, action.Illegal(a, "cannot build unmovable body", err)
	}
	e.add(u)
	return u, nil
}

func (e *Engine) createRigidBody(a action.CreateRigidBody, _ action.Agent) (any, error) {
	r, err := body.NewRigidBody(e.world, a.Poly, a.Mass, e.density(a.AnchorsDensity), e.cfg.Rigid)
	if err != nil {
		return nil, action.Illegal(a, "cannot build rigid body", err)
	}
	e.add(r)
	return r, nil
}

func (e *Engine) createVoxel(a action.CreateVoxel, _ action.Agent) (any, error) {
	m := e.cfg.Voxel
	if a.Material != nil {
		m = *a.Material
	}
	v, err := body.NewVoxel(e.world, m)
	if err != nil {
		return nil, action.Illegal(a, "cannot build voxel", err)
	}
	e.add(v)
	return v, nil
}

func (e *Engine) createRotationalJoint(a action.CreateRotationalJoint, _ action.Agent) (any, error) {
	m := e.cfg.Motor
	if a.Motor != nil {
		m = *a.Motor
	}
	j, err := body.NewRotationalJoint(e.world, a.Length, a.Width, a.Mass, m, a.ActiveRange, e.cfg.Rigid)
	if err != nil {
		return nil, action.Illegal(a, "cannot build rotational joint", err)
	}
	e.add(j)
	return j, nil
}

func (e *Engine) removeBody(a action.RemoveBody, _ action.Agent) (any, error) {
	if !e.IsAlive(a.Body) {
		return nil, action.Illegal(a, "body is not alive", nil)
	}
	if _, ok := a.Body.(body.MultipartBody); !ok {
		return nil, action.Unsupported(a, a.Body)
	}
	if err := e.remove(a.Body); err != nil {
		return nil, err
	}
	return a.Body, nil
}

// movable returns the backend view of a live body.
func (e *Engine) movable(a action.Action, b body.Body) (body.MultipartBody, error) {
	if !e.IsAlive(b) {
		return nil, action.Illegal(a, "body is not alive", nil)
	}
	mb, ok := b.(body.MultipartBody)
	if !ok {
		return nil, action.Unsupported(a, b)
	}
	return mb, nil
}

func (e *Engine) translateBody(a action.TranslateBody, _ action.Agent) (any, error) {
	mb, err := e.movable(a, a.Body)
	if err != nil {
		return nil, err
	}
	body.Translate(mb, a.Delta)
	return a.Body, nil
}

func (e *Engine) rotateBody(a action.RotateBody, _ action.Agent) (any, error) {
	mb, err := e.movable(a, a.Body)
	if err != nil {
		return nil, err
	}
	body.Rotate(mb, a.Body.Poly().Centroid(), a.Angle)
	return a.Body, nil
}

func (e *Engine) anchors(a action.Action, src, dst *body.Anchor) error {
	if src == nil || dst == nil {
		return action.Illegal(a, "source and destination anchors are required", nil)
	}
	if src.Owner() == dst.Owner() {
		return action.Illegal(a, "anchors belong to the same body", body.ErrSameBody)
	}
	if !e.IsAlive(src.Owner()) || !e.IsAlive(dst.Owner()) {
		return action.Illegal(a, "anchor owner is not alive", nil)
	}
	return nil
}

func (e *Engine) createLink(a action.CreateLink, _ action.Agent) (any, error) {
	if err := e.anchors(a, a.Source, a.Destination); err != nil {
		return nil, err
	}
	l, err := e.world.CreateLink(a.Source, a.Destination, a.Type, e.cfg.SoftLink)
	if err != nil {
		return nil, action.Illegal(a, "cannot create link", err)
	}
	if l == nil {
		return nil, nil
	}
	e.publish(EventLinkCreated, linkEvent(l))
	return l, nil
}

func (e *Engine) removeLink(a action.RemoveLink, _ action.Agent) (any, error) {
	if a.Link == nil {
		return nil, action.Illegal(a, "link is required", nil)
	}
	if err := e.world.RemoveLink(a.Link); err != nil {
		return nil, action.Illegal(a, "cannot remove link", err)
	}
	e.publish(EventLinkRemoved, linkEvent(a.Link))
	return a.Link, nil
}

func (e *Engine) attractAnchor(a action.AttractAnchor, _ action.Agent) (any, error) {
	if err := e.anchors(a, a.Source, a.Destination); err != nil {
		return nil, err
	}
	delta := a.Destination.Point().Sub(a.Source.Point())
	if delta.Length() > e.cfg.AttractionRange {
		return nil, nil
	}
	magnitude := e.cfg.AttractionForce.Denormalize(geometry.UnitRange.Clip(a.Magnitude))
	force := delta.Normalize().Scale(magnitude)
	a.Source.ApplyForce(force)
	a.Destination.ApplyForce(force.Scale(-1))
	return force, nil
}

func (e *Engine) actuateVoxel(a action.ActuateVoxel, _ action.Agent) (any, error) {
	if !e.IsAlive(a.Voxel) {
		return nil, action.Illegal(a, "voxel is not alive", nil)
	}
	return a.Voxel.SetActuation(a.Values), nil
}

func (e *Engine) actuateRotationalJoint(a action.ActuateRotationalJoint, _ action.Agent) (any, error) {
	if !e.IsAlive(a.Joint) {
		return nil, action.Illegal(a, "joint is not alive", nil)
	}
	return a.Joint.SetTargetAngle(a.Angle), nil
}

// sensed clips v to the range declared by s.
func sensed(s action.Sense, v float64) (any, error) {
	return s.Range().Clip(v), nil
}

func (e *Engine) alive(s action.Sense) error {
	if !e.IsAlive(s.Body()) {
		return action.Illegal(s, "sensed body is not alive", nil)
	}
	return nil
}

func (e *Engine) senseAngle(a action.SenseAngle, _ action.Agent) (any, error) {
	if err := e.alive(a); err != nil {
		return nil, err
	}
	return sensed(a, a.Target.Angle())
}

func (e *Engine) senseRotatedVelocity(a action.SenseRotatedVelocity, _ action.Agent) (any, error) {
	if err := e.alive(a); err != nil {
		return nil, err
	}
	dir := geometry.Point{X: 1}.Rotate(a.Target.Angle() + a.Direction)
	return sensed(a, a.Target.CenterLinearVelocity().Dot(dir))
}

func (e *Engine) senseDistanceToBody(a action.SenseDistanceToBody, _ action.Agent) (any, error) {
	if a.Distance <= 0 {
		return nil, action.Illegal(a, "distance must be positive", nil)
	}
	mb, err := e.movable(a, a.Target)
	if err != nil {
		return nil, err
	}
	from := a.Target.Poly().Centroid()
	to := from.Add(geometry.Point{X: a.Distance}.Rotate(a.Target.Angle() + a.Direction))
	hit, ok := e.world.RayCast(from, to, mb.BackendBodies())
	if !ok {
		return sensed(a, a.Distance)
	}
	return sensed(a, from.Distance(hit))
}

func (e *Engine) senseContact(a action.SenseContact, _ action.Agent) (any, error) {
	mb, err := e.movable(a, a.Target)
	if err != nil {
		return nil, err
	}
	if len(e.world.InContact(mb.BackendBodies())) > 0 {
		return 1.0, nil
	}
	return 0.0, nil
}

func (e *Engine) senseAreaRatio(a action.SenseAreaRatio, _ action.Agent) (any, error) {
	if err := e.alive(a); err != nil {
		return nil, err
	}
	return sensed(a, a.Voxel.AreaRatio())
}

func validSide(a action.Action, s body.Side) error {
	if s < body.N || s > body.W {
		return action.Illegal(a, fmt.Sprintf("unknown side %d", s), nil)
	}
	return nil
}

func (e *Engine) senseSideCompression(a action.SenseSideCompression, _ action.Agent) (any, error) {
	if err := errors.Join(e.alive(a), validSide(a, a.Side)); err != nil {
		return nil, err
	}
	return sensed(a, a.Voxel.SideCompression(a.Side))
}

func (e *Engine) senseSideAttachment(a action.SenseSideAttachment, _ action.Agent) (any, error) {
	if err := errors.Join(e.alive(a), validSide(a, a.Side)); err != nil {
		return nil, err
	}
	first, second := a.Voxel.SideAnchors(a.Side)
	attached := 0
	for _, anchor := range []*body.Anchor{first, second} {
		if len(anchor.Links()) > 0 {
			attached++
		}
	}
	return sensed(a, float64(attached)/2)
}

func (e *Engine) senseJointAngle(a action.SenseJointAngle, _ action.Agent) (any, error) {
	if err := e.alive(a); err != nil {
		return nil, err
	}
	return sensed(a, a.Joint.JointAngle())
}
