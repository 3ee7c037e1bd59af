// deskpilot turns a natural-language instruction (Spanish or English) into
// desktop automation primitives and executes them.
package main

import (
	"fmt"
	"os"

	"deskpilot/internal/logging"
)

func main() {
	defer logging.CloseAll()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
