//go:build pathdebug

package pathing

import "fmt"

func assertf(cond bool, format string, args ...any) bool {
	if !cond {
		panic(fmt.Sprintf("pathing: "+format, args...))
	}
	return true
}
