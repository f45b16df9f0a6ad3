package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

var ErrInvalidConfig = errors.New("invalid engine config")

// Config holds every tunable of an Engine. Zero values are not defaults: start from
// DefaultConfig and override.
type Config struct {
	Gravity            geometry.Point `yaml:"gravity" json:"gravity"`
	TimeStep           float64        `yaml:"time_step" json:"time_step"`
	VelocityIterations int            `yaml:"velocity_iterations" json:"velocity_iterations"`
	PositionIterations int            `yaml:"position_iterations" json:"position_iterations"`

	// AttractionRange is the largest anchor distance at which AttractAnchor has an effect.
	AttractionRange float64              `yaml:"attraction_range" json:"attraction_range"`
	AttractionForce geometry.DoubleRange `yaml:"attraction_force" json:"attraction_force"`

	SoftLink       body.SoftLinkParams  `yaml:"soft_link" json:"soft_link"`
	AnchorsDensity float64              `yaml:"anchors_density" json:"anchors_density"`
	Voxel          body.VoxelMaterial   `yaml:"voxel" json:"voxel"`
	Motor          body.Motor           `yaml:"motor" json:"motor"`
	Rigid          body.RigidMaterial   `yaml:"rigid" json:"rigid"`
	Terrain        body.SurfaceMaterial `yaml:"terrain" json:"terrain"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:            geometry.Point{Y: -9.8},
		TimeStep:           1.0 / 60,
		VelocityIterations: 8,
		PositionIterations: 3,
		AttractionRange:    1,
		AttractionForce:    geometry.DoubleRange{Min: 0, Max: 100},
		SoftLink:           body.SoftLinkParams{RestDistanceRatio: 1, Frequency: 8, Damping: 0.3},
		AnchorsDensity:     2,
		Voxel:              body.DefaultVoxelMaterial(),
		Motor:              body.DefaultMotor(),
		Rigid: body.RigidMaterial{
			SurfaceMaterial: body.SurfaceMaterial{Friction: 1, Restitution: 0.1},
			LinearDamping:   0.1,
			AngularDamping:  0.1,
		},
		Terrain: body.SurfaceMaterial{Friction: 1, Restitution: 0.1},
	}
}

func (c Config) Validate() error {
	switch {
	case c.TimeStep <= 0:
		return fmt.Errorf("%w: non-positive time step %v", ErrInvalidConfig, c.TimeStep)
	case c.VelocityIterations <= 0 || c.PositionIterations <= 0:
		return fmt.Errorf("%w: solver iterations must be positive", ErrInvalidConfig)
	case c.AttractionRange < 0:
		return fmt.Errorf("%w: negative attraction range", ErrInvalidConfig)
	case !c.AttractionForce.Valid() || c.AttractionForce.Min < 0:
		return fmt.Errorf("%w: attraction force range %s", ErrInvalidConfig, c.AttractionForce)
	case c.SoftLink.RestDistanceRatio < 0 || c.SoftLink.Frequency < 0 || c.SoftLink.Damping < 0:
		return fmt.Errorf("%w: soft link parameters must not be negative", ErrInvalidConfig)
	case c.AnchorsDensity < 0:
		return fmt.Errorf("%w: negative anchors density", ErrInvalidConfig)
	}
	if err := c.Voxel.Validate(); err != nil {
		return fmt.Errorf("%w: voxel: %w", ErrInvalidConfig, err)
	}
	if err := c.Motor.Validate(); err != nil {
		return fmt.Errorf("%w: motor: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadYAML reads a config from r on top of DefaultConfig and validates it.
func LoadYAML(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode engine config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile is LoadYAML over the file at path.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open engine config: %w", err)
	}
	defer f.Close()
	return LoadYAML(f)
}
