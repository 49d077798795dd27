package game

import (
	"fmt"
	"image/color"
	"log"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

// borderWidth is the pixel gap between the window edge and the map.
const borderWidth = 24

// hudScale is the integer upscale factor applied to all HUD text.
const hudScale = 2

// reportEvery is how often, in ticks, the viewer samples a PathReport.
const reportEvery = 60

// statusColors maps each route status to the colour its unit is drawn in.
var statusColors = map[pathing.Status]color.RGBA{
	pathing.NotStarted:  colornames.Lightgray,
	pathing.InProgress:  colornames.Dodgerblue,
	pathing.Repathing:   colornames.Gold,
	pathing.Completed:   colornames.Limegreen,
	pathing.Unreachable: colornames.Crimson,
	pathing.Stopped:     colornames.Gray,
	pathing.Invalid:     colornames.Magenta,
}

// Game is the interactive viewer: it runs a scenario's Sim and draws the
// terrain, the obstacle grid, units and their routes.
type Game struct {
	scenario Scenario
	sim      *Sim

	cellSize   int
	width      int
	height     int
	gameWidth  int // map width in pixels (log panel takes the rest)
	gameHeight int
	offX       int
	offY       int

	logPanel *LogPanel
	reporter *PathReporter
	watcher  *ConfigWatcher
	mirror   *log.Logger

	// Offscreen buffers: terrain heights at one pixel per cell, coarse grid
	// occupancy at one pixel per coarse cell, HUD text at 1x.
	terrainImg *ebiten.Image
	gridImg    *ebiten.Image
	gridPix    []byte
	hudBuf     *ebiten.Image

	showGrid   bool
	showRoutes bool
	showHUD    bool
	prevKeys   map[ebiten.Key]bool
	prevLeft   bool
	prevRight  bool
	selected   pathing.EntityID

	// Simulation speed control.
	simSpeed  float64 // multiplier: 0=paused, 0.5, 1, 2, 4
	tickAccum float64

	message     string
	messageTick int
}

// New creates a viewer for sc. cellSize is the on-screen size of one cell
// in pixels; 0 fits the map into roughly 900 pixels.
func New(sc Scenario, cellSize int) (*Game, error) {
	if cellSize <= 0 {
		cellSize = max(1, 900/max(sc.Width, sc.Height))
	}
	g := &Game{
		scenario:   sc,
		cellSize:   cellSize,
		gameWidth:  sc.Width * cellSize,
		gameHeight: sc.Height * cellSize,
		offX:       borderWidth,
		offY:       borderWidth,
		showGrid:   true,
		showRoutes: true,
		showHUD:    true,
		prevKeys:   make(map[ebiten.Key]bool),
		simSpeed:   1,
	}
	g.width = borderWidth + g.gameWidth + borderWidth + logPanelWidth
	g.height = max(borderWidth+g.gameHeight+borderWidth, 480)
	g.hudBuf = ebiten.NewImage(g.width/hudScale, g.height/hudScale)
	if err := g.reset(); err != nil {
		return nil, err
	}
	return g, nil
}

// reset rebuilds the simulation from the scenario.
func (g *Game) reset() error {
	sim, err := g.scenario.NewSim()
	if err != nil {
		return err
	}
	sim.Log.SetLimit(5000)
	sim.Log.SetMirror(g.mirror)
	g.sim = sim
	g.logPanel = NewLogPanel()
	g.logPanel.Sync(sim.Log, 0)
	g.reporter = NewPathReporter(reportWindowTicks, true)
	g.selected = 0
	g.initTerrain()
	cols, rows := sim.Paths.Grid().Dims()
	g.gridImg = ebiten.NewImage(cols, rows)
	g.gridPix = make([]byte, cols*rows*4)
	return nil
}

// initTerrain renders the height field once, darker for lower ground.
func (g *Game) initTerrain() {
	w, h := g.sim.Terrain.Size()
	maxH := 0.0
	if nt, ok := g.sim.Terrain.(*NoiseTerrain); ok {
		maxH = nt.MaxHeight()
	}
	base := colornames.Darkolivegreen
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			shade := 0.0
			if maxH > 0 {
				shade = g.sim.Terrain.HeightAt(pathing.Cell{X: x, Y: y}) / maxH
			}
			f := 0.6 + 0.6*shade
			i := (y*w + x) * 4
			pix[i] = uint8(min(float64(base.R)*f, 255))
			pix[i+1] = uint8(min(float64(base.G)*f, 255))
			pix[i+2] = uint8(min(float64(base.B)*f, 255))
			pix[i+3] = 255
		}
	}
	g.terrainImg = ebiten.NewImage(w, h)
	g.terrainImg.WritePixels(pix)
}

// WatchConfig reloads the pathing config from path whenever it changes.
func (g *Game) WatchConfig(path string) error {
	w, err := NewConfigWatcher(path)
	if err != nil {
		return err
	}
	g.watcher = w
	return nil
}

// MirrorLog also writes the path log of this and every restarted run to l.
func (g *Game) MirrorLog(l *log.Logger) {
	g.mirror = l
	g.sim.Log.SetMirror(l)
}

// Close releases the config watcher.
func (g *Game) Close() error {
	if g.watcher == nil {
		return nil
	}
	return g.watcher.Close()
}

// Sim returns the running simulation.
func (g *Game) Sim() *Sim { return g.sim }

func (g *Game) notify(format string, args ...any) {
	g.message = fmt.Sprintf(format, args...)
	g.messageTick = g.sim.Tick
}

func (g *Game) Update() error {
	g.handleInput()

	if g.watcher != nil {
		applied, err := g.watcher.Poll(g.sim.Paths)
		switch {
		case err != nil:
			g.notify("config: %v", err)
		case applied:
			g.notify("config reloaded")
		}
	}

	if g.simSpeed <= 0 {
		return nil
	}
	g.tickAccum += g.simSpeed
	for g.tickAccum >= 1.0 {
		g.tickAccum -= 1.0
		g.simTick()
	}
	return nil
}

// simTick runs one simulation tick and feeds the panels.
func (g *Game) simTick() {
	g.sim.Step()
	g.logPanel.Sync(g.sim.Log, g.sim.Tick)
	if g.sim.Tick%reportEvery == 0 {
		g.reporter.Collect(g.sim)
	}
}

// keyPressed reports a key going down this frame.
func (g *Game) keyPressed(current map[ebiten.Key]bool, k ebiten.Key) bool {
	current[k] = ebiten.IsKeyPressed(k)
	return current[k] && !g.prevKeys[k]
}

// handleInput processes keypresses (edge-triggered) and mouse orders.
func (g *Game) handleInput() {
	currentKeys := map[ebiten.Key]bool{}

	if g.keyPressed(currentKeys, ebiten.KeyG) {
		g.showGrid = !g.showGrid
	}
	if g.keyPressed(currentKeys, ebiten.KeyR) {
		g.showRoutes = !g.showRoutes
	}
	if g.keyPressed(currentKeys, ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}
	if g.keyPressed(currentKeys, ebiten.KeyV) {
		g.sim.Log.SetVerbose(!g.sim.Log.Verbose())
		g.logPanel.SetMinimum(pathing.LevelInfo)
		if g.sim.Log.Verbose() {
			g.logPanel.SetMinimum(pathing.LevelDebug)
		}
	}

	// Sim speed controls: Space/P=pause/resume, N=step, ,=slower, .=faster.
	speeds := []float64{0, 0.5, 1, 2, 4}
	space := g.keyPressed(currentKeys, ebiten.KeySpace)
	if g.keyPressed(currentKeys, ebiten.KeyP) || space {
		if g.simSpeed > 0 {
			g.simSpeed = 0
		} else {
			g.simSpeed = 1
		}
	}
	if g.keyPressed(currentKeys, ebiten.KeyN) && g.simSpeed == 0 {
		g.simTick()
	}
	if g.keyPressed(currentKeys, ebiten.KeyComma) {
		for i, s := range speeds {
			if s >= g.simSpeed && i > 0 {
				g.simSpeed = speeds[i-1]
				break
			}
		}
	}
	if g.keyPressed(currentKeys, ebiten.KeyPeriod) {
		for i, s := range speeds {
			if s <= g.simSpeed && i < len(speeds)-1 && speeds[i+1] > g.simSpeed {
				g.simSpeed = speeds[i+1]
				break
			}
		}
	}

	if g.keyPressed(currentKeys, ebiten.KeyBackspace) {
		if err := g.reset(); err != nil {
			g.notify("restart: %v", err)
		}
	}
	if g.keyPressed(currentKeys, ebiten.KeyC) {
		g.copyReport()
	}
	if g.selected != 0 {
		if g.keyPressed(currentKeys, ebiten.KeyK) {
			g.sim.Schedule(Order{Tick: g.sim.Tick, Kind: OrderKill, Unit: g.selected})
		}
		if g.keyPressed(currentKeys, ebiten.KeyX) {
			g.sim.Schedule(Order{Tick: g.sim.Tick, Kind: OrderDestroy, Unit: g.selected})
			g.selected = 0
		}
	}

	// Left click selects, right click orders the selected unit.
	left := ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
	right := ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight)
	if cell, ok := g.cursorCell(); ok {
		if left && !g.prevLeft {
			g.selected = 0
			if u, ok := g.sim.World.UnitAt(cell); ok && !u.static {
				g.selected = u.id
			}
		}
		if right && !g.prevRight && g.selected != 0 {
			g.sim.Schedule(Order{Tick: g.sim.Tick, Kind: OrderMove, Unit: g.selected, Target: cell})
		}
	}
	g.prevLeft = left
	g.prevRight = right

	g.prevKeys = currentKeys
}

// cursorCell returns the map cell under the mouse.
func (g *Game) cursorCell() (pathing.Cell, bool) {
	mx, my := ebiten.CursorPosition()
	x, y := mx-g.offX, my-g.offY
	if x < 0 || y < 0 || x >= g.gameWidth || y >= g.gameHeight {
		return pathing.Cell{}, false
	}
	return pathing.Cell{X: x / g.cellSize, Y: y / g.cellSize}, true
}

// copyReport puts the selected unit's debug report, or the path report
// when nothing is selected, on the clipboard.
func (g *Game) copyReport() {
	var text string
	if g.selected != 0 {
		text = g.sim.UnitDebugReport(g.selected, 240)
	} else {
		g.reporter.Collect(g.sim)
		text = g.reporter.WindowSummary().Format() + "\n" + g.reporter.FormatLatest()
	}
	if err := clipboard.WriteAll(text); err != nil {
		g.notify("clipboard: %v", err)
		return
	}
	g.notify("report copied (%d lines)", strings.Count(text, "\n"))
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 12, G: 14, B: 12, A: 255})

	cs := float64(g.cellSize)
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(cs, cs)
	op.GeoM.Translate(float64(g.offX), float64(g.offY))
	screen.DrawImage(g.terrainImg, &op)

	if g.showGrid {
		g.drawGrid(screen)
	}
	g.drawStatic(screen)
	if g.showRoutes {
		g.drawRoutes(screen)
	}
	g.drawUnits(screen)

	ox, oy := float32(g.offX), float32(g.offY)
	gw, gh := float32(g.gameWidth), float32(g.gameHeight)
	vector.StrokeRect(screen, ox-1, oy-1, gw+2, gh+2, 2.0, color.RGBA{R: 65, G: 90, B: 65, A: 255}, false)

	logX := g.offX + g.gameWidth + g.offX
	g.logPanel.Draw(screen, logX, g.height)

	if g.showHUD {
		g.drawHUD(screen)
	}
	if g.message != "" && g.sim.Tick-g.messageTick < 180 {
		ebitenutil.DebugPrintAt(screen, g.message, g.offX+6, g.offY+6)
	}
}

// drawGrid shades every coarse cell that holds at least one footprint.
func (g *Game) drawGrid(screen *ebiten.Image) {
	grid := g.sim.Paths.Grid()
	cols, rows := grid.Dims()
	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			i := (cy*cols + cx) * 4
			n := grid.Count(cx, cy)
			if n == 0 {
				g.gridPix[i], g.gridPix[i+1], g.gridPix[i+2], g.gridPix[i+3] = 0, 0, 0, 0
				continue
			}
			a := uint8(min(60+40*n, 200))
			// Premultiplied alpha.
			g.gridPix[i] = uint8(int(colornames.Tomato.R) * int(a) / 255)
			g.gridPix[i+1] = uint8(int(colornames.Tomato.G) * int(a) / 255)
			g.gridPix[i+2] = uint8(int(colornames.Tomato.B) * int(a) / 255)
			g.gridPix[i+3] = a
		}
	}
	g.gridImg.WritePixels(g.gridPix)
	s := float64(grid.Ratio() * g.cellSize)
	var op ebiten.DrawImageOptions
	op.GeoM.Scale(s, s)
	op.GeoM.Translate(float64(g.offX), float64(g.offY))
	screen.DrawImage(g.gridImg, &op)
}

func (g *Game) cellRect(screen *ebiten.Image, st pathing.Stamp, c color.Color) {
	x0, y0, x1, y1 := st.Footprint.Bounds(st.Pos)
	cs := float32(g.cellSize)
	vector.FillRect(screen,
		float32(g.offX)+float32(x0)*cs, float32(g.offY)+float32(y0)*cs,
		float32(x1-x0+1)*cs, float32(y1-y0+1)*cs, c, false)
}

func (g *Game) cellCentre(c pathing.Cell) (float32, float32) {
	cs := float32(g.cellSize)
	return float32(g.offX) + (float32(c.X)+0.5)*cs, float32(g.offY) + (float32(c.Y)+0.5)*cs
}

func (g *Game) drawStatic(screen *ebiten.Image) {
	for _, st := range g.sim.Paths.Grid().Static() {
		g.cellRect(screen, st, colornames.Dimgray)
	}
}

func (g *Game) drawRoutes(screen *ebiten.Image) {
	for _, p := range g.sim.Paths.Paths() {
		if p.Status.Terminal() || len(p.Waypoints) == 0 {
			continue
		}
		u, ok := g.sim.World.Unit(p.Entity)
		if !ok {
			continue
		}
		col := statusColors[p.Status]
		col.A = 140
		if p.Entity == g.selected {
			col.A = 255
		}
		px, py := g.cellCentre(u.pos)
		for _, wp := range p.Waypoints {
			x, y := g.cellCentre(wp)
			vector.StrokeLine(screen, px, py, x, y, 1.0, col, false)
			px, py = x, y
		}
		ex, ey := g.cellCentre(p.End)
		vector.StrokeRect(screen, ex-3, ey-3, 6, 6, 1.0, col, false)
	}
}

func (g *Game) drawUnits(screen *ebiten.Image) {
	for _, u := range g.sim.World.Units() {
		var col color.RGBA
		switch {
		case u.static:
			col = colornames.Saddlebrown
		case u.state == UnitDying:
			col = colornames.Darkslategray
		default:
			col = colornames.Whitesmoke
			if st, ok := g.sim.Status(u.id); ok {
				col = statusColors[st]
			}
		}
		g.cellRect(screen, u.Stamp(), col)
		if u.id == g.selected {
			x0, y0, x1, y1 := u.footprint.Bounds(u.pos)
			cs := float32(g.cellSize)
			vector.StrokeRect(screen,
				float32(g.offX)+float32(x0)*cs-2, float32(g.offY)+float32(y0)*cs-2,
				float32(x1-x0+1)*cs+4, float32(y1-y0+1)*cs+4, 1.5, colornames.White, false)
		}
	}
}

// drawHUD renders the status and keyboard hints in the bottom-left corner.
// Text is drawn into hudBuf at 1x then composited onto the screen at hudScale.
func (g *Game) drawHUD(screen *ebiten.Image) {
	speedStr := fmt.Sprintf("%gx", g.simSpeed)
	if g.simSpeed == 0 {
		speedStr = "PAUSED"
	}
	counts := g.sim.Paths.StatusCounts()
	lines := []string{
		fmt.Sprintf("%s  T=%d  %s", g.scenario.Name, g.sim.Tick, speedStr),
		fmt.Sprintf("routes=%d moving=%d repath=%d done=%d unreachable=%d",
			g.sim.Paths.PathCount(), counts[pathing.InProgress], counts[pathing.Repathing],
			counts[pathing.Completed], counts[pathing.Unreachable]),
		fmt.Sprintf("budget=%d/tick ratio=%d overlaps=%d dropped=%d",
			g.sim.Paths.IterationsPerTick(), g.sim.Paths.Grid().Ratio(), g.sim.Overlaps(), g.sim.Paths.Events().Dropped()),
	}
	if u, ok := g.sim.Unit(g.selected); ok {
		st, _ := g.sim.Status(u.id)
		lines = append(lines, fmt.Sprintf("selected %s at %v: %s", u.name, u.pos, st))
	}
	lines = append(lines,
		"Space=pause N=step ,/.=speed Backspace=restart",
		"click=select right-click=move K=kill X=destroy",
		"G=grid R=routes V=verbose C=copy report H=HUD",
	)

	const lineH = 12
	const charW = 6
	const padX = 5
	const padY = 4

	maxLen := 0
	for _, l := range lines {
		maxLen = max(maxLen, len(l))
	}
	boxW := float32(maxLen*charW + padX*2)
	boxH := float32(len(lines)*lineH + padY*2)
	bx := float32(4)
	by := float32(g.height/hudScale) - boxH - 4

	g.hudBuf.Clear()
	vector.FillRect(g.hudBuf, bx, by, boxW, boxH, color.RGBA{R: 6, G: 10, B: 6, A: 210}, false)
	vector.StrokeRect(g.hudBuf, bx, by, boxW, boxH, 1.0, color.RGBA{R: 60, G: 100, B: 60, A: 180}, false)
	for i, line := range lines {
		ebitenutil.DebugPrintAt(g.hudBuf, line, int(bx)+padX, int(by)+padY+i*lineH)
	}

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Scale(float64(hudScale), float64(hudScale))
	screen.DrawImage(g.hudBuf, opts)
}

func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// Size returns the window size the viewer wants.
func (g *Game) Size() (int, int) {
	return g.width, g.height
}
