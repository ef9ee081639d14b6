package doctor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/thoreinstein/devenv/internal/probe"
)

// Detector produces the environment snapshot served to assistants.
type Detector interface {
	Detect(ctx context.Context) probe.Info
}

// EnvironmentCheck runs the probe and verifies the interpreter it reports
// is usable.
type EnvironmentCheck struct {
	detector Detector
}

var _ Check = (*EnvironmentCheck)(nil)

func NewEnvironmentCheck(d Detector) *EnvironmentCheck {
	return &EnvironmentCheck{detector: d}
}

func (c *EnvironmentCheck) Name() string     { return "environment" }
func (c *EnvironmentCheck) Category() string { return "environment" }

func (c *EnvironmentCheck) Run(ctx context.Context) *CheckResult {
	info := c.detector.Detect(ctx)
	details := map[string]any{
		"os_type":         info.OSType,
		"architecture":    info.Architecture,
		"shell":           info.Shell,
		"shell_syntax":    info.ShellSyntax,
		"python_cmd":      info.PythonCmd,
		"python_version":  info.PythonVersion,
		"is_container":    info.IsContainer,
		"is_raspberry_pi": info.IsRaspberryPi,
	}
	if info.ProjectRoot != "" {
		details["project_root"] = info.ProjectRoot
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Details:  details,
		Message: fmt.Sprintf("%s/%s, %s shell, %s %s",
			info.OSType, info.Architecture, info.Shell, info.PythonCmd, info.PythonVersion),
	}

	if info.PythonVersion == "" || info.PythonVersion == "unknown" {
		result.Status = SeverityWarning
		result.Message = fmt.Sprintf("%s not found on PATH; Python commands will not run", info.PythonCmd)
		result.FixHint = fmt.Sprintf("install Python 3 so that %q resolves on PATH", info.PythonCmd)
	}
	return result
}

// ToolsCheck reports which developer tools the probe found and warns about
// required ones that are missing.
type ToolsCheck struct {
	detector Detector
	required []string
}

var _ Check = (*ToolsCheck)(nil)

// NewToolsCheck creates a ToolsCheck. Without required tools it only
// reports what is available.
func NewToolsCheck(d Detector, required ...string) *ToolsCheck {
	return &ToolsCheck{detector: d, required: required}
}

func (c *ToolsCheck) Name() string     { return "tools" }
func (c *ToolsCheck) Category() string { return "environment" }

func (c *ToolsCheck) Run(ctx context.Context) *CheckResult {
	info := c.detector.Detect(ctx)

	var missing []string
	for _, tool := range c.required {
		if !info.HasTool(tool) {
			missing = append(missing, tool)
		}
	}

	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
		Status:   SeverityPass,
		Message:  fmt.Sprintf("%d of %d known tools on PATH", len(info.AvailableTools), len(probe.KnownTools)),
		Details: map[string]any{
			"available": slices.Clone(info.AvailableTools),
		},
	}
	if len(missing) > 0 {
		result.Status = SeverityWarning
		result.Details["missing"] = missing
		result.Message = "missing required tools: " + strings.Join(missing, ", ")
		result.FixHint = "install " + strings.Join(missing, " and ") + " and make sure it is on PATH"
	}
	return result
}
