package syntax

import (
	"maps"
	"strings"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/probe"
)

// Targets accepted by Lookup.
const (
	TargetLocal = "local"
	TargetPi    = "pi"
)

var (
	// ErrUnknownOperation indicates an operation absent from the table.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrUnsupportedFamily indicates neither the family nor its fallback
	// has a row for the operation.
	ErrUnsupportedFamily = errors.New("operation not supported on this platform")

	// ErrInvalidTarget indicates a target other than local or pi.
	ErrInvalidTarget = errors.New("invalid target")
)

// Syntax is a populated command for one operation. Family is the family
// whose row was used, which differs from the selected one on fallback.
type Syntax struct {
	Operation   Operation `json:"operation" yaml:"operation"`
	Family      Family    `json:"family" yaml:"family"`
	Command     string    `json:"command" yaml:"command"`
	Explanation string    `json:"explanation" yaml:"explanation"`
	Example     string    `json:"example" yaml:"example"`
	Environment string    `json:"environment" yaml:"environment"`
	ShellType   string    `json:"shell_type" yaml:"shell_type"`
	Separator   string    `json:"command_separator" yaml:"command_separator"`
}

// Query selects and parameterizes a lookup.
type Query struct {
	Operation string
	// Target is "local" (default) or "pi".
	Target    string
	Variables map[string]string
}

// Operations returns every supported operation in display order.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

// Summary is a one-line description of op.
func (op Operation) Summary() string {
	return table[op].summary
}

// ParseOperation validates name against the table.
func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := table[op]; ok {
		return op, nil
	}
	return "", errors.WithHint(
		errors.Wrapf(ErrUnknownOperation, "%q", name),
		"supported operations: "+operationList(),
	)
}

// SelectFamily picks the family for env. A pi target or a probed Raspberry
// Pi selects pi; otherwise the OS decides, with linux for anything unknown.
func SelectFamily(env probe.Info, target string) Family {
	if target == TargetPi || env.IsRaspberryPi {
		return FamilyPi
	}
	switch env.OSType {
	case "windows":
		return FamilyWindows
	case "darwin":
		return FamilyDarwin
	default:
		return FamilyLinux
	}
}

// Resolve returns the row for op and family, following the fallback chain.
// The returned Family is the one whose row was used.
func Resolve(op Operation, family Family) (Template, Family, error) {
	e, ok := table[op]
	if !ok {
		return Template{}, "", errors.Wrapf(ErrUnknownOperation, "%q", op)
	}
	if row, ok := e.rows[family]; ok {
		return row, family, nil
	}
	if fb, ok := family.fallback(); ok {
		if row, ok := e.rows[fb]; ok {
			return row, fb, nil
		}
	}
	return Template{}, "", errors.Wrapf(ErrUnsupportedFamily, "%s on %s", op, family)
}

// Lookup returns the populated command for q in env.
func Lookup(env probe.Info, q Query) (Syntax, error) {
	op, err := ParseOperation(q.Operation)
	if err != nil {
		return Syntax{}, err
	}

	target := q.Target
	switch target {
	case "", TargetLocal, TargetPi:
	default:
		return Syntax{}, errors.Wrapf(ErrInvalidTarget, "%q (want %s or %s)", target, TargetLocal, TargetPi)
	}

	family := SelectFamily(env, target)
	row, resolved, err := Resolve(op, family)
	if err != nil {
		return Syntax{}, err
	}

	// A pi target from another machine runs on the Pi, not with the local
	// interpreter.
	if env.PythonCmd == "" || (target == TargetPi && !env.IsRaspberryPi) {
		env.PythonCmd = family.Interpreter()
	}

	vars := map[string]string{}
	maps.Copy(vars, table[op].defaults)
	vars = Variables(env, mergeInto(vars, q.Variables))

	out := Syntax{
		Operation:   op,
		Family:      resolved,
		Environment: env.OSType + "/" + env.Shell,
		ShellType:   family.ShellType(),
		Separator:   family.Separator(),
	}
	fields := []struct {
		dst  *string
		tmpl string
	}{
		{&out.Command, row.Command},
		{&out.Explanation, row.Explanation},
		{&out.Example, row.Example},
	}
	for _, f := range fields {
		s, err := Format(f.tmpl, vars)
		if err != nil {
			return Syntax{}, errors.Wrapf(err, "operation %s", op)
		}
		*f.dst = s
	}
	return out, nil
}

// mergeInto copies src over dst and returns dst. Variables applies the
// built-ins beneath, so caller values win over both.
func mergeInto(dst, src map[string]string) map[string]string {
	maps.Copy(dst, src)
	return dst
}

func operationList() string {
	names := make([]string, len(operations))
	for i, op := range operations {
		names[i] = string(op)
	}
	return strings.Join(names, ", ")
}
