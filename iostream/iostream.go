// Package iostream decouples the CLI driver from os.Stdout/os.Stderr: a
// hook run prints a block message or a lex/parse/eval diagnostic to one of
// these two streams and nowhere else, so swapping in a buffer is enough to
// assert on that output in a test without the real process streams.
package iostream

import (
	"bytes"
	"io"
	"os"
)

// IOStream bundles a stdout and a stderr writer.
type IOStream struct {
	Stdout io.Writer
	Stderr io.Writer
}

// OS returns an IOStream wired to the real process stdout/stderr.
func OS() IOStream {
	return IOStream{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Test returns an IOStream backed by in-memory buffers, so a test can
// assert on exactly what was printed without touching the real
// stdout/stderr.
func Test() IOStream {
	return IOStream{
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}
}

// Null returns an IOStream that discards all output, for callers that only
// care about a run's exit behaviour (e.g. ExecutionResult.Kind) and not
// its printed diagnostics.
func Null() IOStream {
	return IOStream{
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
}
