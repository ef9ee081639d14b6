package doctor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/devenv/internal/errors"
)

// buildResult folds path issues into a single result.
func buildResult(name, category string, issues []issue, checked int) *CheckResult {
	result := &CheckResult{
		Name:     name,
		Category: category,
		Status:   SeverityPass,
		Message:  fmt.Sprintf("all %d paths look good", checked),
		Details:  map[string]any{"checked": checked},
	}
	if len(issues) == 0 {
		return result
	}

	list := make([]map[string]any, 0, len(issues))
	var hints []string
	for _, is := range issues {
		result.Status = worst(result.Status, is.Severity)
		m := map[string]any{
			"path":     is.Path,
			"subject":  is.Subject,
			"problem":  is.Problem,
			"severity": is.Severity.String(),
		}
		if is.Mode != "" {
			m["mode"] = is.Mode
		}
		if is.FixHint != "" {
			m["fix_hint"] = is.FixHint
		}
		list = append(list, m)

		if is.fixable() {
			result.Fixable = true
		}
		if is.FixHint != "" {
			hints = append(hints, is.FixHint)
		}
	}
	result.Details["issues"] = list
	result.Message = fmt.Sprintf("found %d issue(s) across %d paths", len(issues), checked)
	result.FixHint = strings.Join(hints, "; ")
	return result
}

func formatMode(mode os.FileMode) string {
	return fmt.Sprintf("%04o", mode.Perm())
}

func parentDir(path string) string {
	return filepath.Dir(path)
}

// decodeSettings parses an assistant settings file by extension and
// returns a message with line and column on failure.
func decodeSettings(path string, data []byte) (any, string) {
	var v any
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &v); err != nil {
			return nil, formatTOMLError(err)
		}
		return v, ""
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, formatJSONError(err, data)
	}
	return v, ""
}

func formatJSONError(err error, data []byte) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(data, int(syntaxErr.Offset))
		return fmt.Sprintf("JSON syntax error at line %d, column %d: %s", line, col, syntaxErr.Error())
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(data, int(typeErr.Offset))
		return fmt.Sprintf("JSON type error at line %d, column %d: %s", line, col, typeErr.Error())
	}
	return fmt.Sprintf("JSON error: %v", err)
}

func formatTOMLError(err error) string {
	var decodeErr *toml.DecodeError
	if errors.As(err, &decodeErr) {
		row, col := decodeErr.Position()
		return fmt.Sprintf("TOML syntax error at line %d, column %d: %s", row, col, decodeErr.Error())
	}
	return fmt.Sprintf("TOML error: %v", err)
}

// offsetToLineCol converts a byte offset to a 1-based line and column.
func offsetToLineCol(data []byte, offset int) (line, col int) {
	offset = min(max(offset, 0), len(data))
	line = 1
	lineStart := 0
	for i := range offset {
		if data[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return line, offset - lineStart + 1
}
