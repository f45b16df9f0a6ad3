package body

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// PassiveAngleRange is the mechanical limit of every rotational joint.
var PassiveAngleRange = geometry.DoubleRange{Min: -math.Pi / 2, Max: math.Pi / 2}

// Motor configures the PID loop driving a RotationalJoint.
type Motor struct {
	MaxSpeed       float64 `yaml:"max_speed" json:"max_speed"`
	MaxTorque      float64 `yaml:"max_torque" json:"max_torque"`
	ControlP       float64 `yaml:"control_p" json:"control_p"`
	ControlI       float64 `yaml:"control_i" json:"control_i"`
	ControlD       float64 `yaml:"control_d" json:"control_d"`
	AngleTolerance float64 `yaml:"angle_tolerance" json:"angle_tolerance"`
}

func DefaultMotor() Motor {
	return Motor{
		MaxSpeed:       20,
		MaxTorque:      1000,
		ControlP:       8,
		ControlI:       0.1,
		ControlD:       0.2,
		AngleTolerance: 0,
	}
}

func (m Motor) Validate() error {
	if m.MaxSpeed <= 0 || m.MaxTorque <= 0 {
		return fmt.Errorf("%w: motor max speed and torque must be positive", ErrInvalidParameters)
	}
	if m.AngleTolerance < 0 {
		return fmt.Errorf("%w: negative motor angle tolerance", ErrInvalidParameters)
	}
	return nil
}

// RotationalJoint is made of two rigid paddles joined at the center by a motorized revolute
// joint. A PID loop drives the motor speed toward the target angle.
type RotationalJoint struct {
	id          ID
	paddles     [2]*box2d.B2Body
	corners     [2][4]box2d.B2Vec2 // local SW, SE, NE, NW of each paddle
	revolute    *box2d.B2RevoluteJoint
	anchors     []*Anchor
	motor       Motor
	activeRange geometry.DoubleRange
	initial     float64

	target    float64
	integral  float64
	lastError float64
}

// NewRotationalJoint builds a length×width joint whose min corner is in the origin.
func NewRotationalJoint(w *World, length, width, mass float64, motor Motor, activeRange geometry.DoubleRange, m RigidMaterial) (*RotationalJoint, error) {
	if length <= 0 || width <= 0 || mass <= 0 {
		return nil, fmt.Errorf("%w: rotational joint needs positive length, width and mass", ErrInvalidParameters)
	}
	if err := motor.Validate(); err != nil {
		return nil, err
	}
	if !activeRange.Valid() || activeRange.Min < PassiveAngleRange.Min || activeRange.Max > PassiveAngleRange.Max {
		return nil, fmt.Errorf("%w: active range %s outside %s", ErrInvalidParameters, activeRange, PassiveAngleRange)
	}

	j := &RotationalJoint{id: w.newID(), motor: motor, activeRange: activeRange}
	half := length / 2
	paddle := geometry.Rectangle(half, width)
	for i := range j.paddles {
		origin := geometry.Point{X: float64(i) * half}
		c := paddle.Translated(origin).Centroid()
		b := w.createBody(bodyParams{position: c, linearDamping: m.LinearDamping, angularDamping: m.AngularDamping})
		local := paddle.Translated(origin.Sub(c))
		addPolygon(b, local.Vertices, fixtureParams{
			density:     mass / 2 / paddle.Area(),
			friction:    m.Friction,
			restitution: m.Restitution,
			filter:      defaultFilter(),
		})
		b.SetUserData(j)
		for k, v := range local.Vertices {
			j.corners[i][k] = toVec(v)
		}
		j.paddles[i] = b
	}

	def := box2d.MakeB2RevoluteJointDef()
	def.Initialize(j.paddles[0], j.paddles[1], toVec(geometry.Point{X: half, Y: width / 2}))
	def.EnableLimit = true
	def.LowerAngle = PassiveAngleRange.Min
	def.UpperAngle = PassiveAngleRange.Max
	def.EnableMotor = true
	def.MaxMotorTorque = motor.MaxTorque
	def.MotorSpeed = 0
	j.revolute = w.b2.CreateJoint(&def).(*box2d.B2RevoluteJoint)

	j.initial = j.paddles[0].GetAngle()
	j.anchors = []*Anchor{
		newAnchor(j, j.paddles[0], geometry.Point{}),
		newAnchor(j, j.paddles[0], geometry.Point{Y: width}),
		newAnchor(j, j.paddles[1], geometry.Point{X: length}),
		newAnchor(j, j.paddles[1], geometry.Point{X: length, Y: width}),
	}
	return j, nil
}

func (j *RotationalJoint) ID() ID { return j.id }

func (j *RotationalJoint) corner(paddle, k int) geometry.Point {
	return fromVec(j.paddles[paddle].GetWorldPoint(j.corners[paddle][k]))
}

// Poly returns the outline of the two paddles, with the hinge side points averaged.
func (j *RotationalJoint) Poly() geometry.Poly {
	return geometry.NewPoly(
		j.corner(0, 0),
		geometry.Average(j.corner(0, 1), j.corner(1, 0)),
		j.corner(1, 1),
		j.corner(1, 2),
		geometry.Average(j.corner(0, 2), j.corner(1, 3)),
		j.corner(0, 3),
	)
}

func (j *RotationalJoint) Mass() float64 { return totalMass(j.paddles[:]) }

func (j *RotationalJoint) Angle() float64 {
	return geometry.NormalizeAngle(j.paddles[0].GetAngle() - j.initial)
}

func (j *RotationalJoint) CenterLinearVelocity() geometry.Point {
	return massWeightedVelocity(j.paddles[:])
}

func (j *RotationalJoint) Anchors() []*Anchor             { return j.anchors }
func (j *RotationalJoint) BackendBodies() []*box2d.B2Body { return j.paddles[:] }

func (j *RotationalJoint) BackendJoints() []box2d.B2JointInterface {
	return []box2d.B2JointInterface{j.revolute}
}

// JointAngle is the current relative angle between the two paddles.
func (j *RotationalJoint) JointAngle() float64 { return j.revolute.GetJointAngle() }

func (j *RotationalJoint) ActiveAngleRange() geometry.DoubleRange { return j.activeRange }
func (j *RotationalJoint) Motor() Motor                           { return j.motor }
func (j *RotationalJoint) TargetAngle() float64                   { return j.target }

// SetTargetAngle sets the target of the PID loop, clipped to the active range.
func (j *RotationalJoint) SetTargetAngle(angle float64) float64 {
	j.target = j.activeRange.Clip(angle)
	return j.target
}

// Actuate runs one PID iteration and sets the motor speed, clipped to the motor max speed.
func (j *RotationalJoint) Actuate(t, previousT float64) {
	dt := t - previousT
	e := j.target - j.JointAngle()
	if math.Abs(e) <= j.motor.AngleTolerance {
		j.integral = 0
		j.lastError = e
		j.revolute.SetMotorSpeed(0)
		return
	}
	var derivative float64
	if dt > 0 {
		j.integral += e * dt
		derivative = (e - j.lastError) / dt
	}
	j.lastError = e
	out := j.motor.ControlP*e + j.motor.ControlI*j.integral + j.motor.ControlD*derivative
	j.revolute.SetMotorSpeed(geometry.Symmetric(j.motor.MaxSpeed).Clip(out))
}

func (j *RotationalJoint) String() string { return fmt.Sprintf("rotational-joint#%d", j.id) }
