// Cutline turns natural-language audio editing commands into validated,
// reversible DAW edits.
//
// Usage:
//
//	cutline serve --config /path/to/cutline.yaml
//	cutline repl
//	cutline send "fade out 2 seconds"
package main

import (
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
