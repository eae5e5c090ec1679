// Command muikit runs chat completions against Bedrock or Gemini and launches
// VNC browser containers from a YAML configuration.
package main

import (
	"fmt"
	"os"

	"github.com/muikit/muikit/internal/logging"
)

func main() {
	if err := newRootCmd(os.Getenv).Execute(); err != nil {
		// Post-run hooks are skipped when a command fails.
		_ = logging.Sync()
		fmt.Fprintln(os.Stderr, "muikit:", err)
		os.Exit(1)
	}
}
