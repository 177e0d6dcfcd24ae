package logger

import (
	"io"
	"os"
)

var (
	FlagVerbose bool // -V/--verbose
	FlagQuiet   bool // -q/--quiet
	FlagJSON    bool // --json for CI
)

func ConfigureFromFlags() {
	var out io.Writer = os.Stdout
	level := "info"

	switch {
	case FlagQuiet:
		level = "error"
	case FlagVerbose:
		level = "debug"
	}

	Configure(Options{
		Level: level,
		JSON:  FlagJSON,
		Out:   out,
	})
}
