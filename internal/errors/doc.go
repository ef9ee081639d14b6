// Package errors provides error handling conventions for the devenv CLI.
//
// It re-exports the wrapping helpers from github.com/cockroachdb/errors so
// that packages import a single errors package, defines a handful of shared
// sentinel errors, and provides [ExitError] for mapping failures onto process
// exit codes.
//
// # Exit Codes
//
//   - ExitSuccess (0): Command completed successfully
//   - ExitUser (1): User-related error (invalid input, configuration, etc.)
//   - ExitSystem (2): System-related error (I/O, permissions, etc.)
//
// # ExitError
//
//	err := errors.NewUserError(syntax.ErrUnknownOperation, "Run: devenv operations")
//	var exitErr *errors.ExitError
//	if errors.As(err, &exitErr) {
//	    os.Exit(exitErr.Code)
//	}
package errors
