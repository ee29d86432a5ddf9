package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/config"
	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/transport/sse"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/transport/streamhttp"
)

// Start runs the server on the transport selected in the configuration and
// blocks until the context is cancelled or the transport shuts down.
func (s *Server) Start(ctx context.Context, cfg *config.Config) error {
	logging.Info(s.logger, "starting MCP server",
		slog.String("name", s.Name),
		slog.String("version", s.Version),
		slog.String("transport", cfg.Transport),
		slog.Int("tools", s.toolRegistry.Count()))

	switch cfg.Transport {
	case config.TransportStdio:
		return s.startStdio(ctx)
	case config.TransportHTTP:
		return s.startStreamHTTP(ctx, cfg)
	case config.TransportSSE:
		return s.startSSE(ctx, cfg)
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Transport)
	}
}

func (s *Server) startStdio(ctx context.Context) error {
	if !s.transportRegistry.HasTransport(protocol.TransportTypeStdio) {
		WithTransports(protocol.TransportTypeStdio)(s)
	}

	transport, err := s.transportRegistry.Create(ctx, protocol.TransportTypeStdio, nil)
	if err != nil {
		return fmt.Errorf("failed to create stdio transport: %w", err)
	}

	session := s.HandleConnection(transport)
	logging.Debug(s.logger, "stdio session ready", slog.String("sessionID", session.ID))

	// Block until stdin closes or the process is told to stop.
	select {
	case <-ctx.Done():
		_ = transport.Close()
		s.removeSession(session.ID)
	case <-session.Done():
	}
	return nil
}

func (s *Server) startStreamHTTP(ctx context.Context, cfg *config.Config) error {
	httpServer := streamhttp.NewServer(cfg.ListenAddress(), s.HandleConnection,
		streamhttp.WithLogger(s.logger))
	return httpServer.Start(ctx)
}

func (s *Server) startSSE(ctx context.Context, cfg *config.Config) error {
	logging.Warn(s.logger, "the SSE transport is deprecated, prefer the streamable HTTP transport")
	sseServer := sse.NewServer(cfg.ListenAddress(), s.HandleConnection,
		sse.WithLogger(s.logger))
	return sseServer.Start(ctx)
}
