package server

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/protocol"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/tools"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/transport/stdio"
)

// ServerOption is a function that configures a server
type ServerOption func(*Server)

// WithServerID sets the server ID
func WithServerID(id string) ServerOption {
	return func(s *Server) {
		s.ID = id
	}
}

// WithServerName sets the server name
func WithServerName(name string) ServerOption {
	return func(s *Server) {
		s.Name = name
	}
}

// WithServerVersion sets the server version
func WithServerVersion(version string) ServerOption {
	return func(s *Server) {
		s.Version = version
	}
}

// WithInstructions sets the instructions text sent during initialization.
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) {
		s.Instructions = instructions
	}
}

// WithLogger creates the server's logger factory at the given level.
func WithLogger(level slog.Level) ServerOption {
	lf := logging.NewLoggerFactory()
	lf.SetLevel(level)
	return func(s *Server) {
		s.loggerFactory = lf
	}
}

// WithLoggerFactory shares an existing logger factory with the server.
func WithLoggerFactory(lf *logging.LoggerFactory) ServerOption {
	return func(s *Server) {
		s.loggerFactory = lf
	}
}

// WithRequestTimeout bounds the execution time of a single tool call.
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.requestTimeout = timeout
	}
}

// WithTransportRegistry specifies a custom transport registry to use
func WithTransportRegistry(registry *protocol.TransportRegistry) ServerOption {
	return func(s *Server) {
		s.transportRegistry = registry
	}
}

// WithTransports registers the named transports in the server's registry.
// The HTTP bindings are listener-driven and created in Start; only stdio
// needs a creator here.
func WithTransports(transportTypes ...string) ServerOption {
	return func(s *Server) {
		for _, trsType := range transportTypes {
			if trsType == protocol.TransportTypeStdio {
				stdio.Register(s.transportRegistry)
			}
		}
	}
}

// WithProtocolVersion adds a supported protocol version.
func WithProtocolVersion(version protocol.ProtocolVersion) ServerOption {
	return func(s *Server) {
		if !slices.Contains(s.SupportedVersions, version) {
			s.SupportedVersions = append(s.SupportedVersions, version)
		}
	}
}

// WithTool registers a tool descriptor in the server's catalog.
func WithTool(descriptor *tools.Descriptor) ServerOption {
	return func(s *Server) {
		s.toolRegistry.MustRegister(descriptor)
	}
}
