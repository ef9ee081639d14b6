package syntax

import (
	"maps"
	"slices"
	"strings"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/probe"
)

var (
	// ErrMissingVariable indicates a template placeholder with no value.
	ErrMissingVariable = errors.New("missing variable in template")

	// ErrMalformedTemplate indicates an unbalanced or empty placeholder.
	ErrMalformedTemplate = errors.New("malformed template")
)

// segment is either literal text or, when placeholder is set, a variable
// name.
type segment struct {
	text        string
	placeholder bool
}

func parse(tmpl string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(tmpl); i++ {
		switch c := tmpl[i]; c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return nil, errors.Wrapf(ErrMalformedTemplate, "unclosed '{' at offset %d", i)
			}
			raw := tmpl[i+1 : i+1+end]
			name := strings.TrimSpace(raw)
			if name == "" || strings.ContainsRune(raw, '{') {
				return nil, errors.Wrapf(ErrMalformedTemplate, "invalid placeholder %q at offset %d", "{"+raw+"}", i)
			}
			flush()
			segs = append(segs, segment{text: name, placeholder: true})
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, errors.Wrapf(ErrMalformedTemplate, "single '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

// Format expands {name} placeholders in tmpl from vars.
func Format(tmpl string, vars map[string]string) (string, error) {
	segs, err := parse(tmpl)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for _, s := range segs {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		val, ok := vars[s.text]
		if !ok {
			return "", errors.WithHint(
				errors.Wrapf(ErrMissingVariable, "%q", s.text),
				"available variables: "+strings.Join(slices.Sorted(maps.Keys(vars)), ", "),
			)
		}
		b.WriteString(val)
	}
	return b.String(), nil
}

// Variables returns the built-in template variables for env merged with
// extra. Values in extra win.
func Variables(env probe.Info, extra map[string]string) map[string]string {
	vars := map[string]string{
		"python_cmd":   env.PythonCmd,
		"pip_cmd":      env.PipCmd(),
		"shell_sep":    env.Separator(),
		"project_root": env.EffectiveProjectRoot(),
		"home":         env.HomeDirectory,
		"user":         env.User,
		"shell":        env.Shell,
		"os":           env.OSType,
	}
	maps.Copy(vars, extra)
	return vars
}

// FormatForEnv expands tmpl with the built-in variables of env and vars.
func FormatForEnv(tmpl string, env probe.Info, vars map[string]string) (string, error) {
	return Format(tmpl, Variables(env, vars))
}
