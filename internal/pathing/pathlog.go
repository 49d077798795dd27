package pathing

import (
	"fmt"
	"log"
	"strings"
)

// Level is the severity of a log entry.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warn"
	}
	return "?"
}

// LogEntry is one recorded coordinator event.
type LogEntry struct {
	Tick     int
	Entity   string // display name, or "--" for global events
	Level    Level
	Category string // grid, search, path, event, move, config
	Key      string
	Value    string
}

// String formats the entry as a fixed-width log line.
//
//	[T=042] info  U1       path    status         InProgress → Completed
func (e LogEntry) String() string {
	return fmt.Sprintf("[T=%03d] %-5s %-8s %-7s %-14s %s",
		e.Tick, e.Level, e.Entity, e.Category, e.Key, e.Value)
}

// PathLog collects structured coordinator events. Debug entries are only
// kept in verbose mode. A nil *PathLog discards everything.
type PathLog struct {
	entries []LogEntry
	verbose bool
	limit   int
	mirror  *log.Logger
}

// NewPathLog creates an unbounded log.
func NewPathLog(verbose bool) *PathLog {
	return &PathLog{verbose: verbose}
}

// SetVerbose toggles recording of debug entries.
func (pl *PathLog) SetVerbose(v bool) {
	if pl != nil {
		pl.verbose = v
	}
}

// Verbose reports whether debug entries are recorded.
func (pl *PathLog) Verbose() bool {
	return pl != nil && pl.verbose
}

// SetLimit keeps only the newest n entries. Zero means unbounded.
func (pl *PathLog) SetLimit(n int) {
	if pl != nil {
		pl.limit = max(n, 0)
		pl.trim()
	}
}

// SetMirror also writes every recorded entry to l.
func (pl *PathLog) SetMirror(l *log.Logger) {
	if pl != nil {
		pl.mirror = l
	}
}

// Add records an entry. Debug entries are dropped unless verbose.
func (pl *PathLog) Add(tick int, level Level, entity, category, key, value string) {
	if pl == nil || (level == LevelDebug && !pl.verbose) {
		return
	}
	e := LogEntry{Tick: tick, Entity: entity, Level: level, Category: category, Key: key, Value: value}
	pl.entries = append(pl.entries, e)
	if pl.mirror != nil {
		pl.mirror.Println(e.String())
	}
	pl.trim()
}

// Debugf records a debug entry.
func (pl *PathLog) Debugf(tick int, entity, category, key, format string, args ...any) {
	if pl == nil || !pl.verbose {
		return
	}
	pl.Add(tick, LevelDebug, entity, category, key, fmt.Sprintf(format, args...))
}

// Infof records an info entry.
func (pl *PathLog) Infof(tick int, entity, category, key, format string, args ...any) {
	pl.Add(tick, LevelInfo, entity, category, key, fmt.Sprintf(format, args...))
}

// Warnf records a warning entry.
func (pl *PathLog) Warnf(tick int, entity, category, key, format string, args ...any) {
	pl.Add(tick, LevelWarning, entity, category, key, fmt.Sprintf(format, args...))
}

func (pl *PathLog) trim() {
	if pl.limit == 0 || len(pl.entries) <= 2*pl.limit {
		return
	}
	n := copy(pl.entries, pl.entries[len(pl.entries)-pl.limit:])
	pl.entries = pl.entries[:n]
}

// Entries returns all recorded entries.
func (pl *PathLog) Entries() []LogEntry {
	if pl == nil {
		return nil
	}
	if pl.limit > 0 && len(pl.entries) > pl.limit {
		return pl.entries[len(pl.entries)-pl.limit:]
	}
	return pl.entries
}

// Len returns the number of visible entries.
func (pl *PathLog) Len() int { return len(pl.Entries()) }

// Reset drops every entry.
func (pl *PathLog) Reset() {
	if pl != nil {
		pl.entries = pl.entries[:0]
	}
}

// Filter returns entries matching the given category and/or key.
// Pass empty string to match any value for that field.
func (pl *PathLog) Filter(category, key string) []LogEntry {
	var out []LogEntry
	for _, e := range pl.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FilterEntity returns entries for one entity label.
func (pl *PathLog) FilterEntity(label string) []LogEntry {
	var out []LogEntry
	for _, e := range pl.Entries() {
		if e.Entity == label {
			out = append(out, e)
		}
	}
	return out
}

// FilterLevel returns entries at or above level.
func (pl *PathLog) FilterLevel(level Level) []LogEntry {
	var out []LogEntry
	for _, e := range pl.Entries() {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// FilterTickRange returns entries within [fromTick, toTick] inclusive.
func (pl *PathLog) FilterTickRange(fromTick, toTick int) []LogEntry {
	var out []LogEntry
	for _, e := range pl.Entries() {
		if e.Tick >= fromTick && e.Tick <= toTick {
			out = append(out, e)
		}
	}
	return out
}

// CountCategory returns how many entries match the given category and key.
func (pl *PathLog) CountCategory(category, key string) int {
	return len(pl.Filter(category, key))
}

// LastOf returns the most recent entry matching category+key, or false if none.
func (pl *PathLog) LastOf(category, key string) (LogEntry, bool) {
	entries := pl.Filter(category, key)
	if len(entries) == 0 {
		return LogEntry{}, false
	}
	return entries[len(entries)-1], true
}

// HasEntry returns true if at least one entry matches category, key, and value substring.
func (pl *PathLog) HasEntry(category, key, valueSubstr string) bool {
	for _, e := range pl.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if key != "" && e.Key != key {
			continue
		}
		if valueSubstr != "" && !strings.Contains(e.Value, valueSubstr) {
			continue
		}
		return true
	}
	return false
}

// Format returns the full log as a single string for t.Log output.
func (pl *PathLog) Format() string {
	return formatEntries(pl.Entries())
}

// FormatRange returns a log string filtered to a tick range.
func (pl *PathLog) FormatRange(fromTick, toTick int) string {
	return formatEntries(pl.FilterTickRange(fromTick, toTick))
}

func formatEntries(entries []LogEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
