//go:build !pathdebug

package pathing

// assertf reports whether cond holds. Builds tagged pathdebug panic instead.
func assertf(cond bool, format string, args ...any) bool {
	return cond
}
