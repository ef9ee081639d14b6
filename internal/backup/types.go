package backup

import (
	"io/fs"
	"time"

	"github.com/thoreinstein/devenv/internal/errors"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// DefaultRetentionCount is the number of backups kept per assistant.
const DefaultRetentionCount = 5

const manifestName = "manifest.json"

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no backups exist for the assistant.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a stored file no longer matches the
	// hash recorded in its manifest.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrNothingToBackup indicates none of the given files exist.
	ErrNothingToBackup = errors.New("no files to back up")
)

// Manifest describes one backup. It is stored as manifest.json in the
// backup directory.
type Manifest struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Assistant string    `json:"assistant"`
	// Reason records the command that triggered the backup.
	Reason        string `json:"reason,omitempty"`
	Files         []File `json:"files"`
	DevenvVersion string `json:"devenv_version"`
}

// File is one backed up file.
type File struct {
	OriginalPath string      `json:"original_path"`
	RelPath      string      `json:"rel_path"`
	SHA256       string      `json:"sha256"`
	Mode         fs.FileMode `json:"mode"`
}
