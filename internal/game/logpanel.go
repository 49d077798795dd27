package game

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"

	"github.com/arthurmco/familyline-testbed-sub000/internal/pathing"
)

const (
	logPanelWidth = 320
	logMaxEntries = 60
	logLineHeight = 11
)

// LogPanel is a ring buffer of path log entries rendered on-screen.
type LogPanel struct {
	entries []pathing.LogEntry
	head    int
	count   int
	synced  int // last tick copied from the path log
	minimum pathing.Level
}

// NewLogPanel creates a panel with a fixed capacity.
func NewLogPanel() *LogPanel {
	return &LogPanel{
		entries: make([]pathing.LogEntry, logMaxEntries),
		synced:  -1,
		minimum: pathing.LevelInfo,
	}
}

// SetMinimum hides entries below level.
func (lp *LogPanel) SetMinimum(level pathing.Level) { lp.minimum = level }

// Add appends an entry to the panel.
func (lp *LogPanel) Add(e pathing.LogEntry) {
	if e.Level < lp.minimum {
		return
	}
	lp.entries[lp.head] = e
	lp.head = (lp.head + 1) % logMaxEntries
	if lp.count < logMaxEntries {
		lp.count++
	}
}

// Sync copies the entries recorded after the last synced tick, up to tick.
func (lp *LogPanel) Sync(pl *pathing.PathLog, tick int) {
	if tick <= lp.synced {
		return
	}
	for _, e := range pl.FilterTickRange(lp.synced+1, tick) {
		lp.Add(e)
	}
	lp.synced = tick
}

// Recent returns entries in chronological order (oldest first).
func (lp *LogPanel) Recent() []pathing.LogEntry {
	result := make([]pathing.LogEntry, lp.count)
	for i := 0; i < lp.count; i++ {
		idx := (lp.head - lp.count + i + logMaxEntries) % logMaxEntries
		result[i] = lp.entries[idx]
	}
	return result
}

func levelColor(l pathing.Level) color.Color {
	switch l {
	case pathing.LevelWarning:
		return colornames.Orange
	case pathing.LevelInfo:
		return colornames.Mediumseagreen
	}
	return colornames.Slategray
}

// Draw renders the log panel on the right side of the screen.
func (lp *LogPanel) Draw(screen *ebiten.Image, panelX int, panelH int) {
	// Panel background.
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), float32(panelH), color.RGBA{R: 10, G: 12, B: 10, A: 248}, false)
	vector.StrokeLine(screen, float32(panelX), 0, float32(panelX), float32(panelH), 1.0, color.RGBA{R: 50, G: 70, B: 50, A: 255}, false)

	// Title bar.
	vector.FillRect(screen, float32(panelX), 0, float32(logPanelWidth), 16, color.RGBA{R: 20, G: 30, B: 20, A: 255}, false)
	ebitenutil.DebugPrintAt(screen, "PATH LOG", panelX+8, 2)
	vector.StrokeLine(screen, float32(panelX), 16, float32(panelX+logPanelWidth), 16, 1.0, color.RGBA{R: 50, G: 80, B: 50, A: 200}, false)

	entries := lp.Recent()

	// Newest at the bottom.
	maxVisible := (panelH - 24) / logLineHeight
	startIdx := 0
	if len(entries) > maxVisible {
		startIdx = len(entries) - maxVisible
	}
	visible := entries[startIdx:]
	recent := 3

	y := 20
	for i, e := range visible {
		if i >= len(visible)-recent {
			vector.FillRect(screen, float32(panelX+2), float32(y), float32(logPanelWidth-4), float32(logLineHeight), color.RGBA{R: 30, G: 40, B: 30, A: 160}, false)
		}
		vector.FillRect(screen, float32(panelX+5), float32(y+3), 3, 5, levelColor(e.Level), false)
		line := fmt.Sprintf("%4d [%s] %s %s", e.Tick, e.Entity, e.Key, e.Value)
		ebitenutil.DebugPrintAt(screen, line, panelX+12, y)
		y += logLineHeight
	}
}
