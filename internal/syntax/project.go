package syntax

import (
	"context"

	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/probe"
)

// ProjectCommand is a named, ready-to-run command for the current project.
type ProjectCommand struct {
	Name        string `json:"name" yaml:"name"`
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description" yaml:"description"`
}

type projectCommand struct {
	name        string
	op          Operation
	description string
}

var projectCommands = []projectCommand{
	{name: "Test", op: OpTest, description: "Run project tests"},
	{name: "Run", op: OpRun, description: "Run the main application"},
	{name: "Install Dependencies", op: OpInstall, description: "Install project dependencies"},
	{name: "Lint", op: OpLint, description: "Run code linting"},
}

// piServiceCommands are added when running on a Raspberry Pi.
var piServiceCommands = []projectCommand{
	{name: "Deploy", op: OpDeploy, description: "Deploy changes to the device"},
	{name: "Check Service", op: OpServiceStatus, description: "Show the project service status"},
	{name: "View Logs", op: OpLogs, description: "Follow the project service logs"},
}

// ProjectCommands returns the common commands for the project in env. The
// service variable, when set, names the unit used by the Pi commands.
// Operations that fail to resolve are logged and left out.
func ProjectCommands(ctx context.Context, env probe.Info, vars map[string]string) []ProjectCommand {
	list := projectCommands
	if env.IsRaspberryPi {
		list = append(append([]projectCommand(nil), projectCommands...), piServiceCommands...)
	}

	out := make([]ProjectCommand, 0, len(list))
	for _, pc := range list {
		s, err := Lookup(env, Query{Operation: string(pc.op), Variables: vars})
		if err != nil {
			logging.FromContext(ctx).Debug("skipping project command",
				"name", pc.name, "operation", pc.op, "error", err)
			continue
		}
		out = append(out, ProjectCommand{Name: pc.name, Command: s.Command, Description: pc.description})
	}
	return out
}
