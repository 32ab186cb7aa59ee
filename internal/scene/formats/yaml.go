// Package formats provides scene file format parsers.
package formats

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/tui-traffic/internal/routing"
)

//go:embed scene.schema.json
var sceneSchemaJSON string

var sceneSchema = jsonschema.MustCompileString("scene.schema.json", sceneSchemaJSON)

// ErrSchema wraps every schema violation.
var ErrSchema = errors.New("scene does not match schema")

// YAMLScene is the YAML structure of a scene file.
type YAMLScene struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Tiles       []YAMLTile      `yaml:"tiles"`
	StopSigns   []YAMLDevice    `yaml:"stop_signs,omitempty"`
	Stoplights  []YAMLStoplight `yaml:"stoplights,omitempty"`
	Spawns      []YAMLSpawn     `yaml:"spawns,omitempty"`
	Exits       map[string]int  `yaml:"exits,omitempty"`
}

// YAMLDirection is either a straight cardinal or a turn.
type YAMLDirection struct {
	Straight string    `yaml:"straight,omitempty"`
	Turn     *YAMLTurn `yaml:"turn,omitempty"`
}

// YAMLTurn is a turn from In to Out.
type YAMLTurn struct {
	In  string `yaml:"in"`
	Out string `yaml:"out"`
}

// YAMLTile is one tile. Exactly one of the direction fields or Intersection
// is set.
type YAMLTile struct {
	At            [2]int `yaml:"at"`
	YAMLDirection `yaml:",inline"`
	Intersection  []YAMLExit `yaml:"intersection,omitempty"`
}

// YAMLExit lists the cardinals permitted for one arrival direction.
type YAMLExit struct {
	Arrival YAMLDirection `yaml:"arrival"`
	Exits   []string      `yaml:"exits"`
}

// YAMLDevice is a stop sign placement in tile units.
type YAMLDevice struct {
	At [2]float64 `yaml:"at"`
}

// YAMLStoplight is a stoplight placement and its cycle frequency in seconds.
type YAMLStoplight struct {
	At        [2]float64 `yaml:"at"`
	Frequency float64    `yaml:"frequency"`
}

// YAMLSpawn is an entry tile.
type YAMLSpawn struct {
	At [2]int `yaml:"at"`
}

// Stoplight is a parsed stoplight placement.
type Stoplight struct {
	Pos       mgl64.Vec2
	Frequency float64
}

// Scene is a parsed scene document ready for validation.
type Scene struct {
	ID          string
	Name        string
	Description string
	Tiles       []routing.Tile
	StopSigns   []mgl64.Vec2
	Stoplights  []Stoplight
	Spawns      []routing.Coord
	Exits       map[routing.Cardinal]int
}

// ValidateSchema checks a YAML document against the scene schema.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("yaml unmarshal: %w", err)
	}

	// The validator expects JSON-shaped values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}

	if err := sceneSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

// ParseYAML validates and decodes a YAML scene file.
func ParseYAML(data []byte) (Scene, error) {
	if err := ValidateSchema(data); err != nil {
		return Scene{}, err
	}

	var ys YAMLScene
	if err := yaml.Unmarshal(data, &ys); err != nil {
		return Scene{}, fmt.Errorf("yaml unmarshal: %w", err)
	}

	s := Scene{
		ID:          ys.ID,
		Name:        ys.Name,
		Description: ys.Description,
		Exits:       make(map[routing.Cardinal]int, len(ys.Exits)),
	}

	for i, yt := range ys.Tiles {
		dir, err := yt.tileDirection()
		if err != nil {
			return Scene{}, fmt.Errorf("tile %d: %w", i, err)
		}
		s.Tiles = append(s.Tiles, routing.NewTile(routing.C(yt.At[0], yt.At[1]), dir))
	}

	for _, d := range ys.StopSigns {
		s.StopSigns = append(s.StopSigns, mgl64.Vec2{d.At[0], d.At[1]})
	}
	for _, l := range ys.Stoplights {
		s.Stoplights = append(s.Stoplights, Stoplight{
			Pos:       mgl64.Vec2{l.At[0], l.At[1]},
			Frequency: l.Frequency,
		})
	}
	for _, sp := range ys.Spawns {
		s.Spawns = append(s.Spawns, routing.C(sp.At[0], sp.At[1]))
	}
	for name, bound := range ys.Exits {
		c, ok := routing.ParseCardinal(name)
		if !ok {
			return Scene{}, fmt.Errorf("exits: unknown cardinal %q", name)
		}
		s.Exits[c] = bound
	}

	return s, nil
}

func (yt YAMLTile) tileDirection() (routing.TileDirection, error) {
	if len(yt.Intersection) > 0 {
		exits := make(map[routing.Direction][]routing.Cardinal, len(yt.Intersection))
		for _, e := range yt.Intersection {
			arrival, err := e.Arrival.direction()
			if err != nil {
				return routing.TileDirection{}, err
			}
			var outs []routing.Cardinal
			for _, name := range e.Exits {
				c, ok := routing.ParseCardinal(name)
				if !ok {
					return routing.TileDirection{}, fmt.Errorf("unknown cardinal %q", name)
				}
				outs = append(outs, c)
			}
			exits[arrival] = outs
		}
		return routing.Intersection(exits), nil
	}

	dir, err := yt.YAMLDirection.direction()
	if err != nil {
		return routing.TileDirection{}, err
	}
	return routing.Constant(dir), nil
}

func (yd YAMLDirection) direction() (routing.Direction, error) {
	if yd.Turn != nil {
		in, ok := routing.ParseCardinal(yd.Turn.In)
		if !ok {
			return routing.Direction{}, fmt.Errorf("unknown cardinal %q", yd.Turn.In)
		}
		out, ok := routing.ParseCardinal(yd.Turn.Out)
		if !ok {
			return routing.Direction{}, fmt.Errorf("unknown cardinal %q", yd.Turn.Out)
		}
		return routing.Turn(in, out), nil
	}

	c, ok := routing.ParseCardinal(yd.Straight)
	if !ok {
		return routing.Direction{}, fmt.Errorf("unknown cardinal %q", yd.Straight)
	}
	return routing.Straight(c), nil
}

// FormatExtensions returns supported file extensions.
func FormatExtensions() []string {
	return []string{".yaml", ".yml"}
}
