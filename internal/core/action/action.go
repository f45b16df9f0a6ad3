// Package action defines the request/response envelope through which every mutation and
// reading of the simulated world is requested, plus the composite actions that are expressed
// in terms of primitive ones.
package action

import (
	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/body"
)

// Kind enumerates every action the simulator understands.
type Kind uint8

const (
	KindUnknown Kind = iota

	KindAddAgent
	KindCreateUnmovableBody
	KindCreateRigidBody
	KindCreateVoxel
	KindCreateRotationalJoint
	KindRemoveBody
	KindTranslateBody
	KindRotateBody
	KindCreateLink
	KindRemoveLink
	KindAttractAnchor
	KindActuateVoxel
	KindActuateRotationalJoint
	KindSenseAngle
	KindSenseRotatedVelocity
	KindSenseDistanceToBody
	KindSenseContact
	KindSenseAreaRatio
	KindSenseSideCompression
	KindSenseSideAttachment
	KindSenseJointAngle

	KindAttachClosestAnchors
	KindAttachAnchor
	KindCreateAndTranslateVoxel
	KindCreateAndTranslateRigidBody
	KindCreateAndTranslateRotationalJoint
	KindTranslateBodyAt
	KindDetachAnchor
	KindDetachAnchorFromAnchorable
	KindDetachAllAnchorsFromAnchorable
	KindAttractClosestAnchors
	KindAttractAndLinkClosestAnchorable

	kindCount
)

var kindNames = [kindCount]string{
	KindUnknown:                           "Unknown",
	KindAddAgent:                          "AddAgent",
	KindCreateUnmovableBody:               "CreateUnmovableBody",
	KindCreateRigidBody:                   "CreateRigidBody",
	KindCreateVoxel:                       "CreateVoxel",
	KindCreateRotationalJoint:             "CreateRotationalJoint",
	KindRemoveBody:                        "RemoveBody",
	KindTranslateBody:                     "TranslateBody",
	KindRotateBody:                        "RotateBody",
	KindCreateLink:                        "CreateLink",
	KindRemoveLink:                        "RemoveLink",
	KindAttractAnchor:                     "AttractAnchor",
	KindActuateVoxel:                      "ActuateVoxel",
	KindActuateRotationalJoint:            "ActuateRotationalJoint",
	KindSenseAngle:                        "SenseAngle",
	KindSenseRotatedVelocity:              "SenseRotatedVelocity",
	KindSenseDistanceToBody:               "SenseDistanceToBody",
	KindSenseContact:                      "SenseContact",
	KindSenseAreaRatio:                    "SenseAreaRatio",
	KindSenseSideCompression:              "SenseSideCompression",
	KindSenseSideAttachment:               "SenseSideAttachment",
	KindSenseJointAngle:                   "SenseJointAngle",
	KindAttachClosestAnchors:              "AttachClosestAnchors",
	KindAttachAnchor:                      "AttachAnchor",
	KindCreateAndTranslateVoxel:           "CreateAndTranslateVoxel",
	KindCreateAndTranslateRigidBody:       "CreateAndTranslateRigidBody",
	KindCreateAndTranslateRotationalJoint: "CreateAndTranslateRotationalJoint",
	KindTranslateBodyAt:                   "TranslateBodyAt",
	KindDetachAnchor:                      "DetachAnchor",
	KindDetachAnchorFromAnchorable:        "DetachAnchorFromAnchorable",
	KindDetachAllAnchorsFromAnchorable:    "DetachAllAnchorsFromAnchorable",
	KindAttractClosestAnchors:             "AttractClosestAnchors",
	KindAttractAndLinkClosestAnchorable:   "AttractAndLinkClosestAnchorable",
}

func (k Kind) String() string {
	if k >= kindCount {
		return "Unknown"
	}
	return kindNames[k]
}

// Kinds lists every known kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := KindUnknown + 1; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Action is an immutable description of an intent.
type Action interface {
	Kind() Kind
}

// Outcome is an action together with the agent that requested it and its result. Result is
// nil when the action was a documented no-op.
type Outcome struct {
	Action Action
	Agent  Agent
	Result any
}

// ResultAs returns the result of o as R. The boolean is false when the result is missing or
// of another type.
func ResultAs[R any](o Outcome) (R, bool) {
	r, ok := o.Result.(R)
	return r, ok
}

// Performer executes actions on behalf of agents. Implementations must allow Perform to be
// called again from within a running Perform.
type Performer interface {
	Perform(a Action, agent Agent) (Outcome, error)
}

// SelfDescribed actions carry their own logic, written in terms of other actions.
type SelfDescribed interface {
	Action
	Perform(p Performer, agent Agent) (any, error)
}

// Agent is the identity on whose behalf an action is performed.
type Agent interface {
	ID() uuid.UUID
}

// EmbodiedAgent owns bodies in the world and is driven once per tick.
type EmbodiedAgent interface {
	Agent
	// Assemble creates the agent's bodies through p.
	Assemble(p Performer) error
	Bodies() []body.Body
	// Act receives the outcomes of the actions it returned at the previous tick.
	Act(t float64, previous []Outcome) []Action
}

// NewAgentID returns a fresh agent identity.
func NewAgentID() uuid.UUID { return uuid.New() }

type anonymous struct{ id uuid.UUID }

func (a anonymous) ID() uuid.UUID { return a.id }

// NewAgent returns a bare agent identity, useful for callers that own no bodies.
func NewAgent() Agent { return anonymous{id: NewAgentID()} }

// perform runs a within p and returns its result as R; a missing result is ErrMissingResult.
func perform[R any](p Performer, a Action, agent Agent) (R, error) {
	var zero R
	o, err := p.Perform(a, agent)
	if err != nil {
		return zero, err
	}
	if o.Result == nil {
		return zero, &MissingResultError{Action: a}
	}
	r, ok := ResultAs[R](o)
	if !ok {
		return zero, &UnsupportedActionError{Action: a, Reason: "unexpected result type"}
	}
	return r, nil
}
