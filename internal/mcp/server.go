// Package mcp exposes project analytics to AI agents over the Model Context
// Protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

// Version is the MCP server version.
const Version = "1.0.0"

// Server is the MCP server of the tracker.
type Server struct {
	projects  *service.ProjectService
	sessions  *service.SessionService
	analytics *service.AnalyticsService
	audit     port.AuditRepository
	server    *mcp.Server
}

// NewServer creates a new MCP server. audit may be nil.
func NewServer(projects *service.ProjectService, sessions *service.SessionService, analytics *service.AnalyticsService, audit port.AuditRepository) *Server {
	s := &Server{
		projects:  projects,
		sessions:  sessions,
		analytics: analytics,
		audit:     audit,
		server:    mcp.NewServer(&mcp.Implementation{Name: "aio-tracker", Version: Version}, nil),
	}
	s.registerTools()
	return s
}

// Handler returns the streamable HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves MCP on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/mcp", s.Handler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	slog.Info("MCP server starting", "addr", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
