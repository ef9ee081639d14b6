package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/logging"
	"github.com/thoreinstein/devenv/internal/server"
)

type serveOptions struct {
	transport string
	host      string
	port      int
}

var serveFlags serveOptions

func init() {
	serveCmd.Flags().StringVar(&serveFlags.transport, "transport", "", "transport: stdio or http (default from config)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", "", "HTTP listen host (default from config)")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", 0, "HTTP listen port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server",
	Long: `Run the dev-environment MCP server.

With the stdio transport, requests are read from stdin and responses
written to stdout, one JSON message per line. Logs go to stderr and the
optional log file only.

With the http transport, the server listens on host:port:
  POST   /mcp     one JSON-RPC message
  DELETE /mcp     end the session
  GET    /health  liveness
  GET    /tools   tool listing`,
	Example: `  # What assistants launch
  devenv serve

  # Serve over HTTP for remote clients
  devenv serve --transport http --host 0.0.0.0 --port 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context(), cmd, serveFlags)
	},
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	logger := logging.FromContext(ctx)
	if opts.transport == "" {
		opts.transport = appConfig.Transport
	}
	srv := newServer(logger)

	switch opts.transport {
	case "stdio":
		logger.Info("serving MCP over stdio", "session", srv.SessionID())
		err := srv.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case "http":
		httpOpts := server.HTTPOptions{
			Host:        appConfig.HTTP.Host,
			Port:        appConfig.HTTP.Port,
			CORSOrigins: appConfig.HTTP.CORSOrigins,
		}
		if opts.host != "" {
			httpOpts.Host = opts.host
		}
		if opts.port != 0 {
			httpOpts.Port = opts.port
		}
		if httpOpts.Port < 1 || httpOpts.Port > 65535 {
			return errors.NewUserError(errors.Newf("invalid port %d", httpOpts.Port), "use a port between 1 and 65535")
		}
		logger.Info("serving MCP over HTTP", "addr", httpOpts.Addr(), "pid", os.Getpid())
		if err := srv.ListenAndServe(ctx, httpOpts); err != nil {
			return errors.NewSystemError(err, "check that "+httpOpts.Addr()+" is free")
		}
		return nil

	default:
		return errors.NewUserError(
			errors.Newf("unknown transport %q", opts.transport),
			"use --transport stdio or --transport http",
		)
	}
}
