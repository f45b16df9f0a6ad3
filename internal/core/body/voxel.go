package body

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"

	"github.com/zeusync/robosim/internal/core/geometry"
)

// Vertex names one of the four corner masses of a Voxel.
type Vertex int

const (
	NW Vertex = iota
	NE
	SE
	SW
)

func (v Vertex) String() string { return [...]string{"NW", "NE", "SE", "SW"}[v] }

// Side names one of the four sides of a Voxel, by its two vertices in clockwise order.
type Side int

const (
	N Side = iota
	E
	S
	W
)

var Sides = [4]Side{N, E, S, W}

func (s Side) String() string { return [...]string{"N", "E", "S", "W"}[s] }

// Vertices returns the two vertices delimiting the side.
func (s Side) Vertices() (Vertex, Vertex) {
	switch s {
	case N:
		return NW, NE
	case E:
		return NE, SE
	case S:
		return SE, SW
	default:
		return SW, NW
	}
}

// SpringScaffolding names a group of distance joints assembled into a Voxel.
type SpringScaffolding string

const (
	SideInternal SpringScaffolding = "SIDE_INTERNAL"
	SideExternal SpringScaffolding = "SIDE_EXTERNAL"
	SideCross    SpringScaffolding = "SIDE_CROSS"
	CentralCross SpringScaffolding = "CENTRAL_CROSS"
)

// AllScaffoldings is the full spring scaffolding.
var AllScaffoldings = []SpringScaffolding{SideInternal, SideExternal, SideCross, CentralCross}

// SpringRange bounds the rest length of one spring: Min ≤ Rest ≤ Max.
type SpringRange struct {
	Min  float64 `json:"min"`
	Rest float64 `json:"rest"`
	Max  float64 `json:"max"`
}

func (r SpringRange) Validate() error {
	if r.Min <= 0 || r.Min > r.Rest || r.Rest > r.Max {
		return fmt.Errorf("%w: spring range %.4f ≤ %.4f ≤ %.4f violated", ErrInvalidParameters, r.Min, r.Rest, r.Max)
	}
	return nil
}

// Length maps an actuation value in [-1,1] to a rest length: positive values contract toward
// Min, negative values expand toward Max, proportionally to the magnitude.
func (r SpringRange) Length(actuation float64) float64 {
	a := geometry.SymmetricRange.Clip(actuation)
	if a >= 0 {
		return r.Rest - a*(r.Rest-r.Min)
	}
	return r.Rest - a*(r.Max-r.Rest)
}

// VoxelMaterial holds every construction parameter of a Voxel.
type VoxelMaterial struct {
	SideLength           float64              `yaml:"side_length" json:"side_length"`
	Mass                 float64              `yaml:"mass" json:"mass"`
	Softness             float64              `yaml:"softness" json:"softness"`
	AreaRatioRange       geometry.DoubleRange `yaml:"area_ratio_range" json:"area_ratio_range"`
	Friction             float64              `yaml:"friction" json:"friction"`
	Restitution          float64              `yaml:"restitution" json:"restitution"`
	LinearDamping        float64              `yaml:"linear_damping" json:"linear_damping"`
	AngularDamping       float64              `yaml:"angular_damping" json:"angular_damping"`
	VertexMassSideRatio  float64              `yaml:"vertex_mass_side_ratio" json:"vertex_mass_side_ratio"`
	CentralMassSideRatio float64              `yaml:"central_mass_side_ratio" json:"central_mass_side_ratio"`
	CentralMassRatio     float64              `yaml:"central_mass_ratio" json:"central_mass_ratio"`
	CentralMass          bool                 `yaml:"central_mass" json:"central_mass"`
	SpringFrequencyRange geometry.DoubleRange `yaml:"spring_frequency_range" json:"spring_frequency_range"`
	SpringDamping        float64              `yaml:"spring_damping" json:"spring_damping"`
	Scaffoldings         []SpringScaffolding  `yaml:"scaffoldings" json:"scaffoldings"`
}

func DefaultVoxelMaterial() VoxelMaterial {
	return VoxelMaterial{
		SideLength:           1,
		Mass:                 1,
		Softness:             0.5,
		AreaRatioRange:       geometry.DoubleRange{Min: 0.8, Max: 1.2},
		Friction:             1,
		Restitution:          0.1,
		LinearDamping:        0.1,
		AngularDamping:       0.1,
		VertexMassSideRatio:  0.2,
		CentralMassSideRatio: 0.3,
		CentralMassRatio:     0.2,
		CentralMass:          true,
		SpringFrequencyRange: geometry.DoubleRange{Min: 2, Max: 12},
		SpringDamping:        0.3,
		Scaffoldings:         AllScaffoldings,
	}
}

func (m VoxelMaterial) Validate() error {
	switch {
	case m.SideLength <= 0:
		return fmt.Errorf("%w: non-positive side length %.3f", ErrInvalidParameters, m.SideLength)
	case m.Mass <= 0:
		return fmt.Errorf("%w: non-positive mass %.3f", ErrInvalidParameters, m.Mass)
	case m.Softness < 0 || m.Softness > 1:
		return fmt.Errorf("%w: softness %.3f outside [0,1]", ErrInvalidParameters, m.Softness)
	case m.AreaRatioRange.Min <= 0 || m.AreaRatioRange.Min > 1 || m.AreaRatioRange.Max < 1:
		return fmt.Errorf("%w: area ratio range %s must contain 1 and be positive", ErrInvalidParameters, m.AreaRatioRange)
	case m.VertexMassSideRatio <= 0 || m.VertexMassSideRatio >= 0.5:
		return fmt.Errorf("%w: vertex mass side ratio %.3f outside (0,0.5)", ErrInvalidParameters, m.VertexMassSideRatio)
	case m.CentralMass && (m.CentralMassSideRatio <= 0 || m.CentralMassSideRatio+2*m.VertexMassSideRatio >= 1):
		return fmt.Errorf("%w: central mass side ratio %.3f does not fit", ErrInvalidParameters, m.CentralMassSideRatio)
	case m.CentralMass && (m.CentralMassRatio <= 0 || m.CentralMassRatio >= 1):
		return fmt.Errorf("%w: central mass ratio %.3f outside (0,1)", ErrInvalidParameters, m.CentralMassRatio)
	case !m.SpringFrequencyRange.Valid() || m.SpringFrequencyRange.Min <= 0:
		return fmt.Errorf("%w: spring frequency range %s", ErrInvalidParameters, m.SpringFrequencyRange)
	case m.SpringDamping < 0:
		return fmt.Errorf("%w: negative spring damping", ErrInvalidParameters)
	case len(m.Scaffoldings) == 0:
		return fmt.Errorf("%w: empty spring scaffolding", ErrInvalidParameters)
	}
	for _, s := range m.Scaffoldings {
		switch s {
		case SideInternal, SideExternal, SideCross, CentralCross:
		default:
			return fmt.Errorf("%w: unknown spring scaffolding %q", ErrInvalidParameters, s)
		}
	}
	return nil
}

// SpringFrequency is the joint frequency derived from the softness: softer means lower.
func (m VoxelMaterial) SpringFrequency() float64 {
	return m.SpringFrequencyRange.Max - m.Softness*m.SpringFrequencyRange.Extent()
}

func (m VoxelMaterial) has(s SpringScaffolding) bool {
	for _, x := range m.Scaffoldings {
		if x == s {
			return true
		}
	}
	return false
}

// spring is one distance joint of the scaffolding.
type spring struct {
	joint *box2d.B2DistanceJoint
	rng   SpringRange
	side  Side
	kind  SpringScaffolding
}

func (s spring) central() bool { return s.kind == CentralCross }

// Voxel is a deformable square made of four corner masses, an optional central mass and a
// scaffolding of spring joints.
type Voxel struct {
	id               ID
	material         VoxelMaterial
	vertices         [4]*box2d.B2Body
	central          *box2d.B2Body
	springs          []spring
	anchors          []*Anchor
	group            int16
	vertexRadius     float64
	restSide         float64
	initialDirection float64
	actuation        [4]float64
}

// NewVoxel assembles a voxel whose min corner is in the origin.
func NewVoxel(w *World, m VoxelMaterial) (*Voxel, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	l := m.SideLength
	r := l * m.VertexMassSideRatio / 2
	v := &Voxel{
		id:           w.newID(),
		material:     m,
		group:        w.newGroup(),
		vertexRadius: r,
		restSide:     l - 2*r,
	}

	vertexMass := m.Mass / 4
	if m.CentralMass {
		vertexMass = m.Mass * (1 - m.CentralMassRatio) / 4
	}
	positions := [4]geometry.Point{
		NW: {X: r, Y: l - r},
		NE: {X: l - r, Y: l - r},
		SE: {X: l - r, Y: r},
		SW: {X: r, Y: r},
	}
	for i, p := range positions {
		b := w.createBody(bodyParams{position: p, linearDamping: m.LinearDamping, angularDamping: m.AngularDamping})
		addCircle(b, r, fixtureParams{
			density:     vertexMass / (math.Pi * r * r),
			friction:    m.Friction,
			restitution: m.Restitution,
			filter:      v.filter(CategoryVertex),
		})
		b.SetUserData(v)
		v.vertices[i] = b
	}
	if m.CentralMass {
		rc := l * m.CentralMassSideRatio / 2
		b := w.createBody(bodyParams{position: geometry.Point{X: l / 2, Y: l / 2}, linearDamping: m.LinearDamping, angularDamping: m.AngularDamping})
		addCircle(b, rc, fixtureParams{
			density:     m.Mass * m.CentralMassRatio / (math.Pi * rc * rc),
			friction:    m.Friction,
			restitution: m.Restitution,
			filter:      v.filter(CategoryCentral),
		})
		b.SetUserData(v)
		v.central = b
	}

	if err := v.assembleSprings(w); err != nil {
		v.destroyPartial(w)
		return nil, err
	}
	v.initialDirection = v.direction()
	for _, b := range v.vertices {
		v.anchors = append(v.anchors, newAnchor(v, b, fromVec(b.GetPosition())))
	}
	return v, nil
}

// filter keeps the voxel parts from colliding with each other through the shared negative
// group, while they collide with every other fixture.
func (v *Voxel) filter(category uint16) box2d.B2Filter {
	f := box2d.MakeB2Filter()
	f.CategoryBits = category
	f.MaskBits = maskAll
	f.GroupIndex = v.group
	return f
}

// springLength is the length of a spring whose component along the side scales with s while
// its perpendicular component stays fixed.
func springLength(along, across, s float64) float64 {
	return math.Hypot(along*s, across)
}

func (v *Voxel) springRange(along, across float64) SpringRange {
	ar := v.material.AreaRatioRange
	return SpringRange{
		Min:  springLength(along, across, math.Sqrt(ar.Min)),
		Rest: springLength(along, across, 1),
		Max:  springLength(along, across, math.Sqrt(ar.Max)),
	}
}

func (v *Voxel) assembleSprings(w *World) error {
	m := v.material
	r, d := v.vertexRadius, v.restSide
	center := geometry.Point{X: m.SideLength / 2, Y: m.SideLength / 2}
	add := func(a, b *box2d.B2Body, pa, pb geometry.Point, rng SpringRange, side Side, kind SpringScaffolding) error {
		if err := rng.Validate(); err != nil {
			return err
		}
		def := box2d.MakeB2DistanceJointDef()
		def.Initialize(a, b, toVec(pa), toVec(pb))
		def.Length = rng.Rest
		def.FrequencyHz = m.SpringFrequency()
		def.DampingRatio = m.SpringDamping
		j := w.b2.CreateJoint(&def).(*box2d.B2DistanceJoint)
		v.springs = append(v.springs, spring{joint: j, rng: rng, side: side, kind: kind})
		return nil
	}

	for _, side := range Sides {
		i, k := side.Vertices()
		a, b := v.vertices[i], v.vertices[k]
		pa, pb := fromVec(a.GetPosition()), fromVec(b.GetPosition())
		inward := center.Sub(geometry.Average(pa, pb)).Normalize().Scale(r)
		if m.has(SideInternal) {
			if err := add(a, b, pa.Add(inward), pb.Add(inward), v.springRange(d, 0), side, SideInternal); err != nil {
				return err
			}
		}
		if m.has(SideExternal) {
			if err := add(a, b, pa.Sub(inward), pb.Sub(inward), v.springRange(d, 0), side, SideExternal); err != nil {
				return err
			}
		}
		if m.has(SideCross) {
			rng := v.springRange(d, 2*r)
			if err := add(a, b, pa.Add(inward), pb.Sub(inward), rng, side, SideCross); err != nil {
				return err
			}
			if err := add(a, b, pa.Sub(inward), pb.Add(inward), rng, side, SideCross); err != nil {
				return err
			}
		}
	}

	if m.has(CentralCross) {
		diagonal := v.springRange(d*math.Sqrt2, 0)
		for _, pair := range [][2]Vertex{{NW, SE}, {NE, SW}} {
			a, b := v.vertices[pair[0]], v.vertices[pair[1]]
			if err := add(a, b, fromVec(a.GetPosition()), fromVec(b.GetPosition()), diagonal, -1, CentralCross); err != nil {
				return err
			}
		}
		if v.central != nil {
			half := v.springRange(d*math.Sqrt2/2, 0)
			for _, a := range v.vertices {
				if err := add(a, v.central, fromVec(a.GetPosition()), center, half, -1, CentralCross); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (v *Voxel) destroyPartial(w *World) {
	for _, s := range v.springs {
		w.b2.DestroyJoint(s.joint)
	}
	for _, b := range v.BackendBodies() {
		w.b2.DestroyBody(b)
	}
}

func (v *Voxel) ID() ID                  { return v.id }
func (v *Voxel) Material() VoxelMaterial { return v.material }
func (v *Voxel) Anchors() []*Anchor      { return v.anchors }

// Anchor returns the anchor placed on the given vertex.
func (v *Voxel) Anchor(vertex Vertex) *Anchor { return v.anchors[vertex] }

func (v *Voxel) BackendBodies() []*box2d.B2Body {
	bodies := append([]*box2d.B2Body{}, v.vertices[:]...)
	if v.central != nil {
		bodies = append(bodies, v.central)
	}
	return bodies
}

func (v *Voxel) BackendJoints() []box2d.B2JointInterface {
	joints := make([]box2d.B2JointInterface, len(v.springs))
	for i, s := range v.springs {
		joints[i] = s.joint
	}
	return joints
}

// SpringRanges returns the ranges of every assembled spring, in assembly order.
func (v *Voxel) SpringRanges() []SpringRange {
	out := make([]SpringRange, len(v.springs))
	for i, s := range v.springs {
		out[i] = s.rng
	}
	return out
}

// SpringLengths returns the current rest length of every assembled spring.
func (v *Voxel) SpringLengths() []float64 {
	out := make([]float64, len(v.springs))
	for i, s := range v.springs {
		out[i] = s.joint.GetLength()
	}
	return out
}

func (v *Voxel) vertexPoint(x Vertex) geometry.Point { return fromVec(v.vertices[x].GetPosition()) }

// VertexPoints returns the centers of the four vertex masses, in NW, NE, SE, SW order.
func (v *Voxel) VertexPoints() [4]geometry.Point {
	var out [4]geometry.Point
	for i := range out {
		out[i] = v.vertexPoint(Vertex(i))
	}
	return out
}

// Poly projects every vertex mass away from the centroid by the distance between a vertex
// center and its corner at rest, so that the polygon follows area changes smoothly.
func (v *Voxel) Poly() geometry.Poly {
	ps := v.VertexPoints()
	c := geometry.Average(ps[:]...)
	offset := v.vertexRadius * math.Sqrt2
	corner := func(x Vertex) geometry.Point {
		return ps[x].Add(ps[x].Sub(c).Normalize().Scale(offset))
	}
	return geometry.NewPoly(corner(SW), corner(SE), corner(NE), corner(NW))
}

func (v *Voxel) Mass() float64 { return totalMass(v.BackendBodies()) }

// direction is the average of the horizontal sides and of the vertical sides rotated by -90°.
func (v *Voxel) direction() float64 {
	p := v.VertexPoints()
	h := p[NE].Sub(p[NW]).Add(p[SE].Sub(p[SW]))
	up := p[NW].Sub(p[SW]).Add(p[NE].Sub(p[SE]))
	return h.Add(geometry.Point{X: up.Y, Y: -up.X}).Direction()
}

func (v *Voxel) Angle() float64 {
	return geometry.NormalizeAngle(v.direction() - v.initialDirection)
}

func (v *Voxel) CenterLinearVelocity() geometry.Point {
	return massWeightedVelocity(v.BackendBodies())
}

// AreaRatio is the ratio between the current and the nominal area.
func (v *Voxel) AreaRatio() float64 {
	return v.Poly().Area() / (v.material.SideLength * v.material.SideLength)
}

// SideCompression is the ratio between the current and the rest distance of the side vertices.
func (v *Voxel) SideCompression(s Side) float64 {
	a, b := s.Vertices()
	return v.vertexPoint(a).Distance(v.vertexPoint(b)) / v.restSide
}

// SideCompressionRange is the nominal range of SideCompression.
func (v *Voxel) SideCompressionRange() geometry.DoubleRange {
	ar := v.material.AreaRatioRange
	return geometry.DoubleRange{Min: math.Sqrt(ar.Min), Max: math.Sqrt(ar.Max)}
}

// SideAnchors returns the two anchors delimiting the side.
func (v *Voxel) SideAnchors(s Side) (*Anchor, *Anchor) {
	a, b := s.Vertices()
	return v.anchors[a], v.anchors[b]
}

// SetActuation stores one value per side (N, E, S, W), clipped to [-1,1]; they are applied
// at the next Actuate.
func (v *Voxel) SetActuation(values [4]float64) [4]float64 {
	for i, x := range values {
		v.actuation[i] = geometry.SymmetricRange.Clip(x)
	}
	return v.actuation
}

func (v *Voxel) Actuation() [4]float64 { return v.actuation }

// Actuate sets the rest length of every spring: side springs follow their side value, central
// springs follow the average of the four.
func (v *Voxel) Actuate(_, _ float64) {
	avg := (v.actuation[0] + v.actuation[1] + v.actuation[2] + v.actuation[3]) / 4
	for _, s := range v.springs {
		a := avg
		if !s.central() {
			a = v.actuation[s.side]
		}
		s.joint.SetLength(s.rng.Length(a))
	}
}

func (v *Voxel) String() string { return fmt.Sprintf("voxel#%d", v.id) }
