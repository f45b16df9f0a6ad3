package robot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// EmptyCell marks a grid position without voxel.
const EmptyCell = '.'

var ErrInvalidGrid = errors.New("invalid grid config")

// GridConfig describes a robot made of voxels laid out on a grid. Every non-empty cell of
// Rows names the controller driving it, so heterogeneous control is always explicit.
type GridConfig struct {
	// Rows are listed top row first; each rune is a cell.
	Rows        []string                    `yaml:"rows" json:"rows"`
	Origin      geometry.Point              `yaml:"origin" json:"origin"`
	LinkType    string                      `yaml:"link_type" json:"link_type"`
	Voxel       *body.VoxelMaterial         `yaml:"voxel,omitempty" json:"voxel,omitempty"`
	Controllers map[string]ControllerConfig `yaml:"controllers" json:"controllers"`
}

// ControllerConfig selects and parametrizes one controller kind.
type ControllerConfig struct {
	Kind string `yaml:"kind" json:"kind"`
	// sine
	Amplitude float64 `yaml:"amplitude" json:"amplitude"`
	Frequency float64 `yaml:"frequency" json:"frequency"`
	Phase     float64 `yaml:"phase" json:"phase"`
	// PhaseStep is added to Phase once per column, producing a travelling wave.
	PhaseStep float64 `yaml:"phase_step" json:"phase_step"`
	// constant
	Values [4]float64 `yaml:"values" json:"values"`
	// reflex
	Gain float64 `yaml:"gain" json:"gain"`
}

const (
	ControllerSine     = "sine"
	ControllerConstant = "constant"
	ControllerReflex   = "reflex"
	ControllerIdle     = "idle"
)

func (c ControllerConfig) Validate() error {
	switch c.Kind {
	case ControllerSine:
		if c.Frequency < 0 {
			return errors.New("negative frequency")
		}
	case ControllerConstant, ControllerReflex, ControllerIdle:
	default:
		return fmt.Errorf("unknown controller kind %q", c.Kind)
	}
	return nil
}

func (c GridConfig) linkType() (body.LinkType, error) {
	switch strings.ToUpper(c.LinkType) {
	case "", body.LinkRigid.String():
		return body.LinkRigid, nil
	case body.LinkSoft.String():
		return body.LinkSoft, nil
	default:
		return 0, fmt.Errorf("%w: unknown link type %q", ErrInvalidGrid, c.LinkType)
	}
}

func (c GridConfig) Validate() error {
	if len(c.Rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidGrid)
	}
	if _, err := c.linkType(); err != nil {
		return err
	}
	for name, cc := range c.Controllers {
		if len([]rune(name)) != 1 || name == string(EmptyCell) {
			return fmt.Errorf("%w: controller name %q must be a single rune other than %q", ErrInvalidGrid, name, EmptyCell)
		}
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("%w: controller %q: %w", ErrInvalidGrid, name, err)
		}
	}
	cells := 0
	for r, row := range c.Rows {
		for col, cell := range row {
			if cell == EmptyCell {
				continue
			}
			if _, ok := c.Controllers[string(cell)]; !ok {
				return fmt.Errorf("%w: cell (%d,%d) uses undeclared controller %q", ErrInvalidGrid, r, col, cell)
			}
			cells++
		}
	}
	if cells == 0 {
		return fmt.Errorf("%w: grid has no voxel", ErrInvalidGrid)
	}
	if c.Voxel != nil {
		if err := c.Voxel.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
		}
	}
	return nil
}

// LoadGridConfig reads and validates a grid from YAML.
func LoadGridConfig(r io.Reader) (GridConfig, error) {
	var c GridConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return GridConfig{}, fmt.Errorf("decode grid config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return GridConfig{}, err
	}
	return c, nil
}

// LoadGridFile is LoadGridConfig over the file at path.
func LoadGridFile(path string) (GridConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return GridConfig{}, fmt.Errorf("open grid config: %w", err)
	}
	defer f.Close()
	return LoadGridConfig(f)
}

// Worm is a 1×n grid driven by a travelling sine wave.
func Worm(n int) GridConfig {
	return GridConfig{
		Rows: []string{strings.Repeat("s", n)},
		Controllers: map[string]ControllerConfig{
			"s": {Kind: ControllerSine, Amplitude: 1, Frequency: 1, PhaseStep: 0.5},
		},
	}
}
