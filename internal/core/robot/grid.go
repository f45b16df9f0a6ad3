// Package robot assembles modular robots out of voxels and drives them as embodied agents.
package robot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/body"
	"github.com/zeusync/robosim/internal/core/geometry"
)

// Cell is one voxel of a grid robot. Row 0 is the top row.
type Cell struct {
	Row, Col   int
	Voxel      *body.Voxel
	Controller Controller
	name       string
}

// Grid is an embodied agent made of linked voxels, one controller per cell.
type Grid struct {
	id     uuid.UUID
	config GridConfig
	cells  []*Cell
	links  []*body.Link
}

var _ action.EmbodiedAgent = (*Grid)(nil)

func NewGrid(cfg GridConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Grid{id: action.NewAgentID(), config: cfg}, nil
}

func (g *Grid) ID() uuid.UUID  { return g.id }
func (g *Grid) Cells() []*Cell { return g.cells }

// Links returns the links created while assembling.
func (g *Grid) Links() []*body.Link { return g.links }

func (g *Grid) Bodies() []body.Body {
	bodies := make([]body.Body, len(g.cells))
	for i, c := range g.cells {
		bodies[i] = c.Voxel
	}
	return bodies
}

// Assemble creates one voxel per non-empty cell and links every pair of neighbouring cells
// through their two closest anchor pairs.
func (g *Grid) Assemble(p action.Performer) error {
	if len(g.cells) > 0 {
		return fmt.Errorf("grid %s already assembled", g.id)
	}
	side := body.DefaultVoxelMaterial().SideLength
	if g.config.Voxel != nil {
		side = g.config.Voxel.SideLength
	}
	linkType, err := g.config.linkType()
	if err != nil {
		return err
	}

	grid := make(map[[2]int]*Cell)
	height := len(g.config.Rows)
	for r, row := range g.config.Rows {
		for col, name := range []rune(row) {
			if name == EmptyCell {
				continue
			}
			at := g.config.Origin.Add(geometry.Point{X: float64(col) * side, Y: float64(height-1-r) * side})
			o, err := p.Perform(action.CreateAndTranslateVoxel{CreateVoxel: action.CreateVoxel{Material: g.config.Voxel}, At: at}, g)
			if err != nil {
				return fmt.Errorf("cell (%d,%d): %w", r, col, err)
			}
			v, ok := action.ResultAs[*body.Voxel](o)
			if !ok {
				return fmt.Errorf("cell (%d,%d): %w", r, col, action.ErrMissingResult)
			}
			c := &Cell{Row: r, Col: col, Voxel: v, name: string(name), Controller: newController(g.config.Controllers[string(name)])}
			g.cells = append(g.cells, c)
			grid[[2]int{r, col}] = c
		}
	}

	for _, c := range g.cells {
		for _, d := range [][2]int{{0, 1}, {1, 0}} {
			n, ok := grid[[2]int{c.Row + d[0], c.Col + d[1]}]
			if !ok {
				continue
			}
			o, err := p.Perform(action.AttachClosestAnchors{N: 2, Source: c.Voxel, Target: n.Voxel, Type: linkType}, g)
			if err != nil {
				return fmt.Errorf("link (%d,%d) to (%d,%d): %w", c.Row, c.Col, n.Row, n.Col, err)
			}
			links, _ := action.ResultAs[[]*body.Link](o)
			g.links = append(g.links, links...)
		}
	}
	return nil
}

// Act actuates every cell from its controller, and asks for the side readings needed at the
// next tick.
func (g *Grid) Act(t float64, previous []action.Outcome) []action.Action {
	readings := make(map[*body.Voxel]*[4]float64)
	for _, o := range previous {
		s, ok := o.Action.(action.SenseSideCompression)
		if !ok {
			continue
		}
		v, ok := action.NormalizedOutcome(o)
		if !ok {
			continue
		}
		r := readings[s.Voxel]
		if r == nil {
			r = new([4]float64)
			readings[s.Voxel] = r
		}
		r[s.Side] = v
	}

	actions := make([]action.Action, 0, len(g.cells))
	for _, c := range g.cells {
		var values [4]float64
		r, ok := readings[c.Voxel]
		if ok {
			values = *r
		}
		actions = append(actions, action.ActuateVoxel{Voxel: c.Voxel, Values: c.Controller.Actuation(t, *c, values, ok)})
		if c.Controller.Senses() {
			for _, s := range body.Sides {
				actions = append(actions, action.SenseSideCompression{Voxel: c.Voxel, Side: s})
			}
		}
	}
	return actions
}

// Center is the average centroid of the cells.
func (g *Grid) Center() geometry.Point {
	points := make([]geometry.Point, len(g.cells))
	for i, c := range g.cells {
		points[i] = c.Voxel.Poly().Centroid()
	}
	return geometry.Average(points...)
}
