package commands

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	buildinfo "github.com/thoreinstein/devenv/cmd"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/probe"
	"github.com/thoreinstein/devenv/internal/project"
	"github.com/thoreinstein/devenv/internal/server"
)

// newProber builds a Prober from the loaded configuration.
func newProber() *probe.Prober {
	return probe.New(
		probe.WithTTL(appConfig.Probe.CacheTTL),
		probe.WithCommandTimeout(appConfig.Probe.CommandTimeout),
		probe.WithProjectRoots(appConfig.Project.Roots),
		probe.WithLogger(slog.Default()),
	)
}

// newServer builds the MCP server from the loaded configuration.
func newServer(logger *slog.Logger) *server.Server {
	return server.New(server.Options{
		Name:         appConfig.Server.Name,
		Version:      buildinfo.Info().Version,
		Instructions: appConfig.Server.Instructions,
		Prober:       newProber(),
		Analyzer:     project.Analyze,
		MaxFiles:     appConfig.Project.MaxFiles,
		Logger:       logger,
	})
}

// parseVars turns repeated --var key=value flags into a map.
func parseVars(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewUserError(
				errors.Wrapf(errors.ErrInvalidArgument, "--var %q", p),
				"use --var name=value, e.g. --var file=main.py",
			)
		}
		vars[k] = v
	}
	return vars, nil
}

// splitList splits comma-separated flag values, dropping empty items.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for item := range strings.SplitSeq(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding YAML")
	}
	return enc.Close()
}
