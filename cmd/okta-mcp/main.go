// Command okta-mcp runs the MCP gateway server for an Okta organization.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gps-prasad/aws-okta-mcp-server/internal/config"
	"github.com/gps-prasad/aws-okta-mcp-server/internal/logging"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/catalog"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/okta"
	"github.com/gps-prasad/aws-okta-mcp-server/pkg/server"
)

const (
	serverName    = "okta-mcp-server"
	serverVersion = "1.0.0"
)

const serverInstructions = "Read-only tools for querying an Okta organization: users, groups, " +
	"applications, policies, network zones and system log events, plus helpers " +
	"for working with timestamps. Listing tools return bounded result sets; " +
	"follow the nextCursor value to resume a truncated listing."

var (
	flagStdio    bool
	flagHTTP     bool
	flagSSE      bool
	flagRisks    bool
	flagHost     string
	flagPort     int
	flagLogLevel string
	flagConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "okta-mcp",
	Short: "MCP server exposing read-only Okta directory tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVar(&flagStdio, "stdio", false, "serve over stdio (default)")
	rootCmd.Flags().BoolVar(&flagHTTP, "http", false, "serve over streamable HTTP")
	rootCmd.Flags().BoolVar(&flagSSE, "sse", false, "serve over HTTP+SSE (deprecated)")
	rootCmd.Flags().BoolVar(&flagRisks, "iunderstandtherisks", false,
		"acknowledge that network transports expose the server beyond the local process")
	rootCmd.Flags().StringVar(&flagHost, "host", config.DefaultHost, "listen host for network transports")
	rootCmd.Flags().IntVar(&flagPort, "port", config.DefaultPort, "listen port for network transports")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to a YAML configuration file")
	rootCmd.MarkFlagsMutuallyExclusive("stdio", "http", "sse")
}

func run(ctx context.Context) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		parsed, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		level = parsed
	}
	// Logs must stay off stdout: on the stdio transport, stdout carries
	// protocol traffic only.
	loggerFactory := logging.NewLoggerFactoryWithConfig(os.Stderr, level)
	logger := loggerFactory.CreateLogger("okta-mcp")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps := catalog.Deps{
		MaxResults: cfg.MaxResults,
		Logger:     loggerFactory.CreateLogger("catalog"),
	}
	if cfg.HasCredentials() {
		client, err := okta.NewClient(cfg.OrgURL, cfg.APIToken,
			okta.WithLogger(loggerFactory.CreateLogger("okta-client")),
			okta.WithTimeout(cfg.RequestTimeout))
		if err != nil {
			return err
		}
		deps.Directory = client
	} else {
		// The server still starts so that clients can list tools; directory
		// calls fail with a configuration error until credentials arrive.
		logging.Warn(logger, "OKTA_CLIENT_ORGURL or OKTA_API_TOKEN not set, directory tools will fail")
	}

	srv := server.NewServer(
		server.WithServerName(serverName),
		server.WithServerVersion(serverVersion),
		server.WithInstructions(serverInstructions),
		server.WithLoggerFactory(loggerFactory),
		server.WithRequestTimeout(cfg.RequestTimeout),
	)
	catalog.Register(srv.Tools(), deps)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx, cfg); err != nil {
		return err
	}
	srv.Shutdown()
	return nil
}

// buildConfig layers the configuration sources: defaults, then the optional
// config file, then environment variables, then command line flags.
func buildConfig() (*config.Config, error) {
	cfg := config.Default()
	if flagConfig != "" {
		if err := cfg.LoadFile(flagConfig); err != nil {
			return nil, err
		}
	}
	cfg.LoadEnv()

	switch {
	case flagHTTP:
		cfg.Transport = config.TransportHTTP
	case flagSSE:
		cfg.Transport = config.TransportSSE
	case flagStdio:
		cfg.Transport = config.TransportStdio
	}
	if flagHost != config.DefaultHost {
		cfg.Host = flagHost
	}
	if flagPort != config.DefaultPort {
		cfg.Port = flagPort
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagRisks {
		cfg.AcknowledgeRisks = true
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg, nil
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "okta-mcp: %v\n", err)
		os.Exit(1)
	}
}
