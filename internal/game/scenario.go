package game

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

//go:embed scenarios/*.yaml
var scenarioFS embed.FS

// ErrInvalidScenario is returned for scenario files that cannot be run.
var ErrInvalidScenario = errors.New("game: invalid scenario")

// Scenario is a declarative Sim setup, usually read from YAML.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Width       int            `yaml:"width"`
	Height      int            `yaml:"height"`
	Ticks       int            `yaml:"ticks"`
	Seed        int64          `yaml:"seed"`
	Config      pathing.Config `yaml:"config"`
	Terrain     TerrainSpec    `yaml:"terrain"`
	Units       []UnitSpec     `yaml:"units"`
	Obstacles   []UnitSpec     `yaml:"obstacles"`
	Areas       []AreaSpec     `yaml:"areas"`
	Orders      []OrderSpec    `yaml:"orders"`
	Script      string         `yaml:"script"`
}

// TerrainSpec selects the height field. Kind is "flat" or "noise".
type TerrainSpec struct {
	Kind      string  `yaml:"kind"`
	Amplitude float64 `yaml:"amplitude"`
	Scale     float64 `yaml:"scale"`
}

// UnitSpec places one unit.
type UnitSpec struct {
	ID   uint64 `yaml:"id"`
	Name string `yaml:"name"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	W    int    `yaml:"w"`
	H    int    `yaml:"h"`
}

// AreaSpec is a permanently blocked rectangle.
type AreaSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// OrderSpec is a scheduled order. Kind defaults to "move".
type OrderSpec struct {
	Tick int    `yaml:"tick"`
	Unit uint64 `yaml:"unit"`
	Kind string `yaml:"kind"`
	X    int    `yaml:"x"`
	Y    int    `yaml:"y"`
	W    int    `yaml:"w"`
	H    int    `yaml:"h"`
	Name string `yaml:"name"`
}

var orderKinds = map[string]OrderKind{
	"":         OrderMove,
	"move":     OrderMove,
	"teleport": OrderTeleport,
	"spawn":    OrderSpawn,
	"kill":     OrderKill,
	"destroy":  OrderDestroy,
}

// ParseScenario decodes YAML over the default settings and validates it.
func ParseScenario(data []byte) (Scenario, error) {
	sc := Scenario{
		Width:  100,
		Height: 100,
		Ticks:  300,
		Seed:   1,
		Config: pathing.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("game: parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// LoadScenario reads a scenario from disk.
func LoadScenario(filename string) (Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Scenario{}, fmt.Errorf("game: read %s: %w", filename, err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("game: load %s: %w", filename, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return sc, nil
}

// BuiltinScenario returns one of the embedded scenarios by name.
func BuiltinScenario(name string) (Scenario, error) {
	data, err := scenarioFS.ReadFile("scenarios/" + name + ".yaml")
	if err != nil {
		return Scenario{}, fmt.Errorf("game: unknown scenario %q (have %s)", name, strings.Join(BuiltinScenarioNames(), ", "))
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("game: scenario %s: %w", name, err)
	}
	if sc.Name == "" {
		sc.Name = name
	}
	return sc, nil
}

// BuiltinScenarioNames lists the embedded scenarios alphabetically.
func BuiltinScenarioNames() []string {
	entries, err := scenarioFS.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Validate checks map size, unit ids and order kinds.
func (sc Scenario) Validate() error {
	if sc.Width <= 0 || sc.Height <= 0 {
		return fmt.Errorf("%w: map size %dx%d", ErrInvalidScenario, sc.Width, sc.Height)
	}
	if sc.Ticks <= 0 {
		return fmt.Errorf("%w: ticks must be positive, got %d", ErrInvalidScenario, sc.Ticks)
	}
	switch sc.Terrain.Kind {
	case "", "flat", "noise":
	default:
		return fmt.Errorf("%w: terrain kind %q", ErrInvalidScenario, sc.Terrain.Kind)
	}
	if err := sc.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	seen := make(map[uint64]bool)
	for _, u := range append(append([]UnitSpec(nil), sc.Units...), sc.Obstacles...) {
		if u.ID == 0 {
			return fmt.Errorf("%w: unit %q without id", ErrInvalidScenario, u.Name)
		}
		if seen[u.ID] {
			return fmt.Errorf("%w: duplicate unit id %d", ErrInvalidScenario, u.ID)
		}
		seen[u.ID] = true
	}
	for i, o := range sc.Orders {
		if _, ok := orderKinds[o.Kind]; !ok {
			return fmt.Errorf("%w: order %d: unknown kind %q", ErrInvalidScenario, i, o.Kind)
		}
	}
	return nil
}

// Options converts the scenario into Sim options.
func (sc Scenario) Options() []SimOption {
	opts := []SimOption{
		WithMapSize(sc.Width, sc.Height),
		WithConfig(sc.Config),
		WithSeed(sc.Seed),
	}
	if sc.Terrain.Kind == "noise" {
		opts = append(opts, WithNoiseTerrain(sc.Terrain.Amplitude, sc.Terrain.Scale))
	}
	for _, u := range sc.Units {
		opts = append(opts, WithUnit(pathing.EntityID(u.ID), u.Name, u.X, u.Y, max(u.W, 1), max(u.H, 1)))
	}
	for _, u := range sc.Obstacles {
		opts = append(opts, WithObstacle(pathing.EntityID(u.ID), u.X, u.Y, max(u.W, 1), max(u.H, 1)))
	}
	for _, a := range sc.Areas {
		opts = append(opts, WithBlockedArea(a.X, a.Y, a.W, a.H))
	}
	for _, o := range sc.Orders {
		opts = append(opts, WithScheduled(Order{
			Tick:      o.Tick,
			Kind:      orderKinds[o.Kind],
			Unit:      pathing.EntityID(o.Unit),
			Target:    pathing.Cell{X: o.X, Y: o.Y},
			Footprint: pathing.Footprint{W: max(o.W, 1), H: max(o.H, 1)},
			Name:      o.Name,
		}))
	}
	if sc.Script != "" {
		opts = append(opts, WithScript(sc.Script))
	}
	return opts
}

// NewSim builds a Sim for the scenario. extra options apply after the
// scenario's own.
func (sc Scenario) NewSim(extra ...SimOption) (*Sim, error) {
	s, err := NewSim(append(sc.Options(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("game: scenario %s: %w", sc.Name, err)
	}
	return s, nil
}
