// Command devenv serves development-environment facts to AI coding
// assistants over MCP and manages its registration with them.
package main

import (
	"os"

	"github.com/thoreinstein/devenv/cmd/devenv/commands"
)

func main() {
	os.Exit(commands.Execute())
}
