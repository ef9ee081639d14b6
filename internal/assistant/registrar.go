package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"maps"
	"reflect"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/devenv/internal/backup"
	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/paths"
	"github.com/thoreinstein/devenv/pkg/fileutil"
)

// Actions reported in a Result.
const (
	ActionAdded     = "added"
	ActionUpdated   = "updated"
	ActionUnchanged = "unchanged"
	ActionRemoved   = "removed"
	ActionAbsent    = "absent"
)

// ErrMalformedConfig indicates a settings file that could not be parsed
// or whose servers table has the wrong shape. Such files are never
// rewritten.
var ErrMalformedConfig = errors.New("malformed assistant config")

// Result describes the outcome of a Register or Unregister call.
type Result struct {
	Assistant string `json:"assistant"`
	Scope     Scope  `json:"scope"`
	Path      string `json:"path"`
	Action    string `json:"action"`
	BackupID  string `json:"backup_id,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
	// Preview holds the file content that would be written in a dry run.
	Preview string `json:"preview,omitempty"`
}

// Registrar edits assistant MCP settings files. Files are backed up
// before the first change and unknown settings are preserved.
type Registrar struct {
	backups     *backup.Manager
	projectRoot string
	dryRun      bool
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithBackups sets the backup manager; nil disables backups.
func WithBackups(m *backup.Manager) Option {
	return func(r *Registrar) { r.backups = m }
}

// WithProjectRoot sets the root used for ScopeProject paths.
func WithProjectRoot(root string) Option {
	return func(r *Registrar) { r.projectRoot = root }
}

// WithDryRun computes results without writing files or backups.
func WithDryRun(dryRun bool) Option {
	return func(r *Registrar) { r.dryRun = dryRun }
}

// NewRegistrar creates a Registrar with a default backup manager.
func NewRegistrar(opts ...Option) *Registrar {
	r := &Registrar{backups: backup.NewManager()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ConfigPath returns the settings file for assistant at scope.
func (r *Registrar) ConfigPath(assistant string, scope Scope) (string, error) {
	if scope == ScopeProject {
		return paths.ProjectMCPConfigPath(assistant, r.projectRoot)
	}
	return paths.UserMCPConfigPath(assistant)
}

// Register adds or replaces the entry named e.Name.
func (r *Registrar) Register(ctx context.Context, assistant string, scope Scope, e Entry) (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	f, path, err := r.resolve(assistant, scope)
	if err != nil {
		return nil, err
	}

	doc, exists, err := load(path, f)
	if err != nil {
		return nil, err
	}
	servers, err := serversTable(doc, f.key, true)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	rendered := f.render(e)
	action := ActionAdded
	if old, ok := servers[e.Name].(map[string]any); ok {
		// Keys the format does not manage stay as the user wrote them.
		for k, v := range old {
			if !slices.Contains(f.fields, k) {
				rendered[k] = v
			}
		}
		action = ActionUpdated
		if equalJSON(old, rendered) {
			action = ActionUnchanged
		}
	}
	servers[e.Name] = rendered

	res := &Result{Assistant: assistant, Scope: scope, Path: path, Action: action, DryRun: r.dryRun}
	if action == ActionUnchanged {
		return res, nil
	}
	return res, r.write(ctx, res, f, doc, exists, "register")
}

// Unregister removes the entry called name. Removing an absent entry is
// not an error.
func (r *Registrar) Unregister(ctx context.Context, assistant string, scope Scope, name string) (*Result, error) {
	f, path, err := r.resolve(assistant, scope)
	if err != nil {
		return nil, err
	}

	res := &Result{Assistant: assistant, Scope: scope, Path: path, Action: ActionAbsent, DryRun: r.dryRun}
	doc, exists, err := load(path, f)
	if err != nil || !exists {
		return res, err
	}
	servers, err := serversTable(doc, f.key, false)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if _, ok := servers[name]; !ok {
		return res, nil
	}

	delete(servers, name)
	res.Action = ActionRemoved
	return res, r.write(ctx, res, f, doc, exists, "unregister")
}

// Lookup returns the entry called name, if registered.
func (r *Registrar) Lookup(assistant string, scope Scope, name string) (Entry, bool, error) {
	f, path, err := r.resolve(assistant, scope)
	if err != nil {
		return Entry{}, false, err
	}
	doc, exists, err := load(path, f)
	if err != nil || !exists {
		return Entry{}, false, err
	}
	servers, err := serversTable(doc, f.key, false)
	if err != nil {
		return Entry{}, false, errors.Wrapf(err, "%s", path)
	}
	raw, ok := servers[name].(map[string]any)
	if !ok {
		return Entry{}, false, nil
	}
	return parse(assistant, name, raw), true, nil
}

// List returns every server entry of assistant at scope, sorted by name.
func (r *Registrar) List(assistant string, scope Scope) ([]Entry, error) {
	f, path, err := r.resolve(assistant, scope)
	if err != nil {
		return nil, err
	}
	doc, exists, err := load(path, f)
	if err != nil || !exists {
		return nil, err
	}
	servers, err := serversTable(doc, f.key, false)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	names := slices.Sorted(maps.Keys(servers))
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if raw, ok := servers[name].(map[string]any); ok {
			entries = append(entries, parse(assistant, name, raw))
		}
	}
	return entries, nil
}

func (r *Registrar) resolve(assistant string, scope Scope) (format, string, error) {
	f, ok := formats[assistant]
	if !ok {
		return format{}, "", errors.WithHint(
			errors.Wrapf(paths.ErrUnknownAssistant, "%q", assistant),
			"supported assistants: claude, codex, gemini, opencode, vscode",
		)
	}
	path, err := r.ConfigPath(assistant, scope)
	if err != nil {
		return format{}, "", err
	}
	return f, path, nil
}

func (r *Registrar) write(ctx context.Context, res *Result, f format, doc map[string]any, exists bool, reason string) error {
	logger := logging.FromContext(ctx)

	data, err := encode(f, doc)
	if err != nil {
		return err
	}
	if r.dryRun {
		res.Preview = string(data)
		return nil
	}

	if exists && r.backups != nil {
		manifest, err := r.backups.Backup(res.Assistant, reason, []string{res.Path})
		if err != nil && !errors.Is(err, backup.ErrNothingToBackup) {
			return errors.Wrapf(err, "backing up %s", res.Path)
		}
		if manifest != nil {
			res.BackupID = manifest.ID
			logger.Debug("backed up assistant config", "assistant", res.Assistant, "id", manifest.ID)
		}
	}

	if err := fileutil.AtomicWriteFile(res.Path, data, 0); err != nil {
		return errors.Wrapf(err, "writing %s", res.Path)
	}
	logger.Info("assistant config updated", "assistant", res.Assistant, "path", res.Path, "action", res.Action)
	return nil
}

// load reads the settings document at path. A missing or empty file is an
// empty document.
func load(path string, f format) (doc map[string]any, exists bool, err error) {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, false, nil
		}
		return nil, false, errors.Wrapf(err, "reading %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, true, nil
	}

	doc = map[string]any{}
	if f.toml {
		err = toml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, true, errors.Wrapf(ErrMalformedConfig, "%s: %v", path, err)
	}
	return doc, true, nil
}

func encode(f format, doc map[string]any) ([]byte, error) {
	if f.toml {
		data, err := toml.Marshal(doc)
		if err != nil {
			return nil, errors.Wrap(err, "encoding TOML")
		}
		return data, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "encoding JSON")
	}
	return buf.Bytes(), nil
}

// serversTable walks key inside doc and returns the servers map, creating
// the intermediate tables when create is set.
func serversTable(doc map[string]any, key []string, create bool) (map[string]any, error) {
	cur := doc
	for _, k := range key {
		next, ok := cur[k]
		if !ok || next == nil {
			if !create {
				return map[string]any{}, nil
			}
			m := map[string]any{}
			cur[k] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedConfig, "%q is not an object", k)
		}
		cur = m
	}
	return cur, nil
}

func equalJSON(a, b any) bool {
	na, errA := normalize(a)
	nb, errB := normalize(b)
	return errA == nil && errB == nil && reflect.DeepEqual(na, nb)
}

// normalize round-trips v through JSON so []string and []any compare equal.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	err = json.Unmarshal(data, &out)
	return out, err
}

// Supported returns the assistants Registrar can edit, sorted.
func Supported() []string {
	return slices.Sorted(maps.Keys(formats))
}
