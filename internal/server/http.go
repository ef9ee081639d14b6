package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/thoreinstein/devenv/internal/errors"
	"github.com/thoreinstein/devenv/internal/jsonrpc"
)

// SessionHeader carries the MCP session id on HTTP requests and responses.
const SessionHeader = "Mcp-Session-Id"

// ShutdownTimeout bounds the graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

// HTTPOptions configures the HTTP binding.
type HTTPOptions struct {
	Host string
	Port int
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

// Addr is the host:port listen address.
func (o HTTPOptions) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// NewHTTPHandler returns the gin engine serving s.
//
//	POST   /mcp     one JSON-RPC message
//	DELETE /mcp     end the session
//	GET    /health  liveness
//	GET    /tools   tool listing
func NewHTTPHandler(s *Server, opts HTTPOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))
	router.Use(cors.New(corsConfig(opts.CORSOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"name":    s.name,
			"version": s.version,
		})
	})

	router.GET("/tools", func(c *gin.Context) {
		tools := ToolDefinitions()
		c.JSON(http.StatusOK, gin.H{
			"tools": tools,
			"count": len(tools),
		})
	})

	router.POST("/mcp", s.handleHTTPMessage)
	router.DELETE("/mcp", func(c *gin.Context) {
		if !s.checkSession(c) {
			return
		}
		s.Reset()
		c.Status(http.StatusNoContent)
	})
	router.GET("/mcp", func(c *gin.Context) {
		c.Header("Allow", "POST, DELETE")
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "streaming responses are not supported"})
	})

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", SessionHeader},
		ExposeHeaders: []string{"Content-Length", SessionHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// checkSession rejects requests naming a session other than the current
// one. Requests without the header are accepted.
func (s *Server) checkSession(c *gin.Context) bool {
	id := c.GetHeader(SessionHeader)
	if id == "" || id == s.SessionID() {
		return true
	}
	c.JSON(http.StatusNotFound, jsonrpc.NewResponse(jsonrpc.ID{}, nil,
		jsonrpc.Errorf(jsonrpc.CodeInvalidRequest, "unknown session %q", id)))
	return false
}

func (s *Server) handleHTTPMessage(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, jsonrpc.MaxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, jsonrpc.NewResponse(jsonrpc.ID{}, nil,
				jsonrpc.Errorf(jsonrpc.CodeInvalidRequest, "message exceeds %d bytes", jsonrpc.MaxMessageSize)))
			return
		}
		c.JSON(http.StatusBadRequest, jsonrpc.NewResponse(jsonrpc.ID{}, nil,
			jsonrpc.Errorf(jsonrpc.CodeParseError, "reading body: %v", err)))
		return
	}

	isInit := isInitializeRequest(body)
	if !isInit && !s.checkSession(c) {
		return
	}

	resp := s.Handle(c.Request.Context(), body)
	if resp == nil {
		c.Status(http.StatusAccepted)
		return
	}
	if isInit && resp.Error == nil {
		c.Header(SessionHeader, s.SessionID())
	}
	c.JSON(http.StatusOK, resp)
}

func isInitializeRequest(body []byte) bool {
	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		return false
	}
	req, ok := msg.(*jsonrpc.Request)
	return ok && req.Method == string(MethodInitialize)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// ListenAndServe serves the HTTP binding until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, opts HTTPOptions) error {
	srv := &http.Server{
		Addr:              opts.Addr(),
		Handler:           NewHTTPHandler(s, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server started", "transport", "http", "addr", srv.Addr, "name", s.name, "version", s.version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrapf(err, "listening on %s", srv.Addr)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down http server")
	}
	return nil
}
