// Package backup snapshots assistant configuration files before devenv
// rewrites them, and restores those snapshots on request.
//
// Each backup is a directory holding copies of the files and a manifest
// with their original paths, modes and SHA-256 hashes:
//
//	$XDG_DATA_HOME/devenv/backups/
//	└── {assistant}/
//	    └── {timestamp}-{id}/
//	        ├── manifest.json
//	        └── {copied files...}
//
// Restore verifies every hash before writing anything back. Backup prunes
// the oldest snapshots beyond the retention count.
//
//	mgr := backup.NewManager(backup.WithRetentionCount(5))
//	manifest, err := mgr.Backup("claude", "register", []string{"/home/me/.claude.json"})
//	...
//	_, err = mgr.Restore("claude", manifest.ID)
package backup
