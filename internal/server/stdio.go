package server

import (
	"context"
	"io"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/jsonrpc"
)

type readResult struct {
	line []byte
	err  error
}

// ServeStdio runs the newline-delimited request loop over r and w until r
// reaches EOF or ctx is cancelled. Each message is handled fully before
// the next line is read. EOF is a clean shutdown and returns nil.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	codec := jsonrpc.NewCodec(r, w)

	// The reader goroutine only reads when asked so nothing is consumed
	// from r after the loop stops.
	next := make(chan struct{})
	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-next:
			case <-done:
				return
			}
			line, err := codec.Read()
			select {
			case lines <- readResult{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil && !errors.Is(err, jsonrpc.ErrMessageTooLarge) {
				return
			}
		}
	}()

	s.logger.Info("mcp server started", "transport", "stdio", "name", s.name, "version", s.version)

	for {
		select {
		case next <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		var res readResult
		select {
		case res = <-lines:
		case <-ctx.Done():
			return ctx.Err()
		}

		if res.err != nil {
			switch {
			case errors.Is(res.err, io.EOF):
				s.logger.Info("input closed, shutting down")
				return nil
			case errors.Is(res.err, jsonrpc.ErrMessageTooLarge):
				s.logger.Warn("discarding oversized message", "limit", jsonrpc.MaxMessageSize)
				resp := jsonrpc.NewResponse(jsonrpc.ID{}, nil,
					jsonrpc.Errorf(jsonrpc.CodeInvalidRequest, "message exceeds %d bytes", jsonrpc.MaxMessageSize))
				if err := codec.WriteMessage(resp); err != nil {
					return err
				}
				continue
			default:
				return res.err
			}
		}

		resp := s.Handle(ctx, res.line)
		if resp == nil {
			continue
		}
		if err := codec.WriteMessage(resp); err != nil {
			return errors.Wrap(err, "writing response")
		}
	}
}
