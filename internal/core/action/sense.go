package action

import (
	"math"

	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// DefaultVelocityLimit bounds SenseRotatedVelocity readings when no limit is given.
const DefaultVelocityLimit = 5.0

// Sense is a reading of one body. Solvers return a float64 clipped to Range.
type Sense interface {
	Action
	Body() body.Body
	Range() geometry.DoubleRange
}

// Normalize maps a sensed value into [-1,1] using the declared range of s.
func Normalize(s Sense, value float64) float64 {
	return geometry.SymmetricRange.Denormalize(s.Range().Normalize(value))
}

// NormalizedOutcome returns the normalized reading of o; false when o is not a sense outcome.
func NormalizedOutcome(o Outcome) (float64, bool) {
	s, ok := o.Action.(Sense)
	if !ok {
		return 0, false
	}
	v, ok := ResultAs[float64](o)
	if !ok {
		return 0, false
	}
	return Normalize(s, v), true
}

var (
	angleRange   = geometry.DoubleRange{Min: -math.Pi, Max: math.Pi}
	booleanRange = geometry.UnitRange
)

// SenseAngle reads the rotation of a body relative to its creation pose.
type SenseAngle struct {
	Target body.Body
}

// SenseRotatedVelocity reads the component of the body center velocity along Direction,
// expressed relative to the body's own angle.
type SenseRotatedVelocity struct {
	Target    body.Body
	Direction float64
	Limit     float64
}

// SenseDistanceToBody casts a ray from the body centroid along Direction (relative to the
// body's angle) and reads the distance to the first other body, or Distance if none is hit.
type SenseDistanceToBody struct {
	Target    body.Body
	Direction float64
	Distance  float64
}

// SenseContact reads 1 when any backend part of the body touches another body, 0 otherwise.
type SenseContact struct {
	Target body.Body
}

// SenseAreaRatio reads the current area of a voxel over its rest area.
type SenseAreaRatio struct {
	Voxel *body.Voxel
}

// SenseSideCompression reads the current length of one voxel side over its rest length.
type SenseSideCompression struct {
	Voxel *body.Voxel
	Side  body.Side
}

// SenseSideAttachment reads the fraction of the anchors of one voxel side that are linked.
type SenseSideAttachment struct {
	Voxel *body.Voxel
	Side  body.Side
}

// SenseJointAngle reads the relative angle between the two paddles of a joint.
type SenseJointAngle struct {
	Joint *body.RotationalJoint
}

func (SenseAngle) Kind() Kind           { return KindSenseAngle }
func (SenseRotatedVelocity) Kind() Kind { return KindSenseRotatedVelocity }
func (SenseDistanceToBody) Kind() Kind  { return KindSenseDistanceToBody }
func (SenseContact) Kind() Kind         { return KindSenseContact }
func (SenseAreaRatio) Kind() Kind       { return KindSenseAreaRatio }
func (SenseSideCompression) Kind() Kind { return KindSenseSideCompression }
func (SenseSideAttachment) Kind() Kind  { return KindSenseSideAttachment }
func (SenseJointAngle) Kind() Kind      { return KindSenseJointAngle }

func (s SenseAngle) Body() body.Body           { return s.Target }
func (s SenseRotatedVelocity) Body() body.Body { return s.Target }
func (s SenseDistanceToBody) Body() body.Body  { return s.Target }
func (s SenseContact) Body() body.Body         { return s.Target }
func (s SenseAreaRatio) Body() body.Body       { return s.Voxel }
func (s SenseSideCompression) Body() body.Body { return s.Voxel }
func (s SenseSideAttachment) Body() body.Body  { return s.Voxel }
func (s SenseJointAngle) Body() body.Body      { return s.Joint }

func (SenseAngle) Range() geometry.DoubleRange { return angleRange }

func (s SenseRotatedVelocity) Range() geometry.DoubleRange {
	if s.Limit <= 0 {
		return geometry.Symmetric(DefaultVelocityLimit)
	}
	return geometry.Symmetric(s.Limit)
}

func (s SenseDistanceToBody) Range() geometry.DoubleRange {
	return geometry.DoubleRange{Min: 0, Max: math.Max(s.Distance, 0)}
}

func (SenseContact) Range() geometry.DoubleRange { return booleanRange }

func (s SenseAreaRatio) Range() geometry.DoubleRange {
	if s.Voxel == nil {
		return geometry.DoubleRange{Min: 1, Max: 1}
	}
	return s.Voxel.Material().AreaRatioRange
}

func (s SenseSideCompression) Range() geometry.DoubleRange {
	if s.Voxel == nil {
		return geometry.DoubleRange{Min: 1, Max: 1}
	}
	return s.Voxel.SideCompressionRange()
}

func (SenseSideAttachment) Range() geometry.DoubleRange { return booleanRange }
func (SenseJointAngle) Range() geometry.DoubleRange     { return body.PassiveAngleRange }

// VoxelSenses enumerates the readings commonly attached to a voxel: angle, area ratio, and the
// compression and attachment of every side.
func VoxelSenses(v *body.Voxel) []Sense {
	senses := []Sense{SenseAngle{Target: v}, SenseAreaRatio{Voxel: v}}
	for _, s := range body.Sides {
		senses = append(senses, SenseSideCompression{Voxel: v, Side: s}, SenseSideAttachment{Voxel: v, Side: s})
	}
	return senses
}
