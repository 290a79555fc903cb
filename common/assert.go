package common

import (
	"runtime"

	"github.com/devlights/gomy/output"
)

// Assert panics with msg when condition does not hold. Used for states
// that are programming errors, never for recoverable conditions.
func Assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}

// DumpStacks prints the stacks of all goroutines, so hung latch holders
// show up in the report. A debugging aid; no code path here calls it.
func DumpStacks() {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	output.Stdoutl("=== stack-all ", string(buf))
}
