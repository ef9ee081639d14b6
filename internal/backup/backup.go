package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/paths"
	"github.com/thoreinstein/devenv/pkg/fileutil"
)

// Version is recorded in manifests. It is set from the build version.
var Version = "dev"

// Manager creates, lists, restores and prunes backups.
type Manager struct {
	rootDir   string
	retention int
	now       func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackupDir sets the root backup directory.
func WithBackupDir(dir string) Option {
	return func(m *Manager) {
		m.rootDir = dir
	}
}

// WithRetentionCount sets how many backups Backup keeps per assistant.
// Values below one are ignored.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retention = n
		}
	}
}

// WithClock overrides the time source used for backup ids.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager rooted at paths.BackupDir by default.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		rootDir:   paths.BackupDir(),
		retention: DefaultRetentionCount,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir is the root backup directory.
func (m *Manager) Dir() string { return m.rootDir }

// Backup copies files into a new backup for assistant and then prunes the
// oldest backups beyond the retention count. Missing files are skipped;
// if none exist ErrNothingToBackup is returned.
func (m *Manager) Backup(assistant, reason string, files []string) (*Manifest, error) {
	if assistant == "" {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "assistant is required")
	}

	now := m.now().UTC()
	id := now.Format("20060102T150405") + "-" + uuid.NewString()[:8]
	dir := m.backupPath(assistant, id)

	var stored []File
	for _, p := range files {
		src, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "resolving %s", p)
		}
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if info.IsDir() {
			return nil, errors.Wrapf(errors.ErrInvalidArgument, "%s is a directory", p)
		}

		rel := relPath(src)
		hash, mode, err := copyFile(src, filepath.Join(dir, rel))
		if err != nil {
			os.RemoveAll(dir)
			return nil, errors.Wrapf(err, "backing up %s", p)
		}
		stored = append(stored, File{OriginalPath: src, RelPath: rel, SHA256: hash, Mode: mode})
	}

	if len(stored) == 0 {
		return nil, ErrNothingToBackup
	}

	manifest := &Manifest{
		Version:       ManifestVersion,
		ID:            id,
		CreatedAt:     now,
		Assistant:     assistant,
		Reason:        reason,
		Files:         stored,
		DevenvVersion: Version,
	}
	if err := fileutil.AtomicWriteJSON(filepath.Join(dir, manifestName), manifest, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrap(err, "writing manifest")
	}

	if err := m.Prune(assistant, m.retention); err != nil {
		return manifest, errors.Wrap(err, "pruning old backups")
	}
	return manifest, nil
}

// Restore copies every file of a backup back to its original location
// after verifying its hash.
func (m *Manager) Restore(assistant, id string) (*Manifest, error) {
	manifest, err := m.Get(assistant, id)
	if err != nil {
		return nil, err
	}

	dir := m.backupPath(assistant, manifest.ID)
	for _, f := range manifest.Files {
		src := filepath.Join(dir, f.RelPath)
		hash, err := hashFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", f.RelPath)
		}
		if hash != f.SHA256 {
			return nil, errors.Wrapf(ErrBackupCorrupted, "%s hash mismatch", f.RelPath)
		}

		data, err := os.ReadFile(src)
		if err != nil {
			return nil, errors.Wrapf(err, "reading backup file %s", f.RelPath)
		}
		if err := fileutil.AtomicWriteFile(f.OriginalPath, data, f.Mode.Perm()); err != nil {
			return nil, errors.Wrapf(err, "restoring %s", f.OriginalPath)
		}
	}
	return manifest, nil
}

// List returns the backups for assistant, newest first. An empty
// assistant lists every assistant's backups.
func (m *Manager) List(assistant string) ([]Manifest, error) {
	assistants := []string{assistant}
	if assistant == "" {
		entries, err := os.ReadDir(m.rootDir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNoBackupsFound
			}
			return nil, errors.Wrap(err, "reading backup directory")
		}
		assistants = assistants[:0]
		for _, e := range entries {
			if e.IsDir() {
				assistants = append(assistants, e.Name())
			}
		}
	}

	var manifests []Manifest
	for _, a := range assistants {
		entries, err := os.ReadDir(filepath.Join(m.rootDir, a))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrap(err, "reading backup directory")
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			manifest, err := m.Get(a, e.Name())
			if err != nil {
				// Directories without a readable manifest are not backups.
				continue
			}
			manifests = append(manifests, *manifest)
		}
	}

	if len(manifests) == 0 {
		return nil, ErrNoBackupsFound
	}

	slices.SortFunc(manifests, func(a, b Manifest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return manifests, nil
}

// Latest returns the newest backup for assistant.
func (m *Manager) Latest(assistant string) (*Manifest, error) {
	list, err := m.List(assistant)
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Prune keeps the newest keep backups for assistant and removes the rest.
func (m *Manager) Prune(assistant string, keep int) error {
	if keep < 0 {
		return errors.Wrap(errors.ErrInvalidArgument, "keep must be non-negative")
	}
	manifests, err := m.List(assistant)
	if err != nil {
		if errors.Is(err, ErrNoBackupsFound) {
			return nil
		}
		return err
	}
	for i := keep; i < len(manifests); i++ {
		if err := os.RemoveAll(m.backupPath(manifests[i].Assistant, manifests[i].ID)); err != nil {
			return errors.Wrapf(err, "removing backup %s", manifests[i].ID)
		}
	}
	return nil
}

// Get loads the manifest of one backup.
func (m *Manager) Get(assistant, id string) (*Manifest, error) {
	if assistant == "" || id == "" {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "assistant and backup id are required")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "invalid backup id %q", id)
	}

	data, err := os.ReadFile(filepath.Join(m.backupPath(assistant, id), manifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNoBackupsFound, "backup %s", id)
		}
		return nil, errors.Wrap(err, "reading manifest")
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	manifest.ID = id
	if manifest.Assistant == "" {
		manifest.Assistant = assistant
	}
	return &manifest, nil
}

func (m *Manager) backupPath(assistant, id string) string {
	return filepath.Join(m.rootDir, assistant, id)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "reading file")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copyFile copies src to dst and returns the content hash and the source
// mode. The copy is private to the user regardless of the source mode.
func copyFile(src, dst string) (hash string, mode fs.FileMode, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, errors.Wrap(err, "opening source file")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", 0, errors.Wrap(err, "stat source file")
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return "", 0, errors.Wrap(err, "creating backup directory")
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", 0, errors.Wrap(err, "creating backup file")
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		out.Close()
		return "", 0, errors.Wrap(err, "copying file")
	}
	if err := out.Close(); err != nil {
		return "", 0, errors.Wrap(err, "closing backup file")
	}
	return hex.EncodeToString(h.Sum(nil)), info.Mode(), nil
}

// relPath maps an absolute path to a relative one usable inside the backup
// directory. Volume colons are dropped so Windows paths stay valid.
func relPath(abs string) string {
	clean := filepath.Clean(abs)
	clean = strings.ReplaceAll(clean, ":", "")
	return strings.TrimLeft(clean, `/\`)
}
