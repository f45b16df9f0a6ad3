package action

import (
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// AddAgent assembles an embodied agent and registers it to be driven every tick.
// Result: the agent.
type AddAgent struct {
	Agent EmbodiedAgent
}

// CreateUnmovableBody creates static terrain from a possibly non-convex polygon. A negative
// AnchorsDensity selects the configured default. Result: *body.UnmovableBody.
type CreateUnmovableBody struct {
	Poly           geometry.Poly
	AnchorsDensity float64
}

// CreateRigidBody creates one dynamic convex body whose mass is spread over its area. A
// negative AnchorsDensity selects the configured default. Result: *body.RigidBody.
type CreateRigidBody struct {
	Poly           geometry.Poly
	Mass           float64
	AnchorsDensity float64
}

// CreateVoxel creates a voxel with its min corner in the origin. A nil Material selects the
// configured default. Result: *body.Voxel.
type CreateVoxel struct {
	Material *body.VoxelMaterial
}

// CreateRotationalJoint creates a two-paddle joint with its min corner in the origin. A nil
// Motor selects the configured default. Result: *body.RotationalJoint.
type CreateRotationalJoint struct {
	Length, Width, Mass float64
	ActiveRange         geometry.DoubleRange
	Motor               *body.Motor
}

// RemoveBody tears a body down, detaching its links first. Result: the removed body.
type RemoveBody struct {
	Body body.Body
}

// TranslateBody moves a body by Delta. Result: the body.
type TranslateBody struct {
	Body  body.Body
	Delta geometry.Point
}

// RotateBody rotates a body by Angle around the centroid of its polygon. Result: the body.
type RotateBody struct {
	Body  body.Body
	Angle float64
}

// CreateLink connects two anchors of different bodies. Result: the source-side *body.Link, or
// nil when Source is already linked to the body owning Destination.
type CreateLink struct {
	Source, Destination *body.Anchor
	Type                body.LinkType
}

// RemoveLink removes both halves of a link. Result: the link.
type RemoveLink struct {
	Link *body.Link
}

// AttractAnchor pulls two anchors of different bodies toward each other with Magnitude in
// [0,1] of the configured force range. Result: the force applied to Source, or nil when the
// anchors are out of the attraction range.
type AttractAnchor struct {
	Source, Destination *body.Anchor
	Magnitude           float64
}

// ActuateVoxel stores one value per side (N, E, S, W) in [-1,1]. Result: the clipped values.
type ActuateVoxel struct {
	Voxel  *body.Voxel
	Values [4]float64
}

// ActuateRotationalJoint sets the target angle of a joint. Result: the clipped target.
type ActuateRotationalJoint struct {
	Joint *body.RotationalJoint
	Angle float64
}

func (AddAgent) Kind() Kind               { return KindAddAgent }
func (CreateUnmovableBody) Kind() Kind    { return KindCreateUnmovableBody }
func (CreateRigidBody) Kind() Kind        { return KindCreateRigidBody }
func (CreateVoxel) Kind() Kind            { return KindCreateVoxel }
func (CreateRotationalJoint) Kind() Kind  { return KindCreateRotationalJoint }
func (RemoveBody) Kind() Kind             { return KindRemoveBody }
func (TranslateBody) Kind() Kind          { return KindTranslateBody }
func (RotateBody) Kind() Kind             { return KindRotateBody }
func (CreateLink) Kind() Kind             { return KindCreateLink }
func (RemoveLink) Kind() Kind             { return KindRemoveLink }
func (AttractAnchor) Kind() Kind          { return KindAttractAnchor }
func (ActuateVoxel) Kind() Kind           { return KindActuateVoxel }
func (ActuateRotationalJoint) Kind() Kind { return KindActuateRotationalJoint }
