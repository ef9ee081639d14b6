// Package logging provides structured logging for devenv using slog.
//
// Logs are always written to stderr or a file, never stdout: when devenv runs
// as a stdio server, stdout carries protocol messages only.
//
//	logger := logging.New(logging.Config{
//		Level:  slog.LevelInfo,
//		Format: logging.FormatText,
//		Output: os.Stderr,
//	})
//	ctx = logging.NewContext(ctx, logger)
//
// The text [Handler] colors output on terminals and masks attribute values
// that look like secrets. Use [NewMultiHandler] to write to stderr and a log
// file at once, and [ForTest] to route logs through testing.T.
package logging
