// Command loom runs the course-aware, OpenAI-compatible chat gateway.
package main

import (
	"os"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driving/cli"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
