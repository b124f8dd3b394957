package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/codap-mcp/codapmeta"
	codapotel "github.com/codap-mcp/codapmeta/otel"
)

const defaultRequestTimeout = 30 * time.Second

// NewRootCmd creates the codapmeta root command with all subcommands.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codapmeta",
		Short: "CODAP MCP session-metadata client",
		Long:  "codapmeta inspects CODAP MCP session metadata: the tool manifest a session exposes and the API versions it supports.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().String("base-url", "", "Relay base URL (env CODAPMETA_BASE_URL)")
	root.PersistentFlags().String("session", "", "Session ID (env CODAPMETA_SESSION)")
	root.PersistentFlags().String("api-version", "", "Requested API version; empty means server default")
	root.PersistentFlags().Duration("timeout", defaultRequestTimeout, "HTTP request timeout")
	root.PersistentFlags().String("config", "", "Config file path (default: ./codapmeta.yaml, ~/.codapmeta/config.yaml)")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().String("otlp-endpoint", "", "OTLP trace collector endpoint (env CODAPMETA_OTLP_ENDPOINT)")

	root.Version = codapmeta.Version
	root.SetVersionTemplate(fmt.Sprintf("codapmeta version %s\n", codapmeta.Version))

	root.AddCommand(newManifestCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newNegotiateCmd())
	root.AddCommand(newProbeCmd())
	root.AddCommand(newWatchCmd())
	root.AddCommand(newHistoryCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "codapmeta version %s\n", codapmeta.Version)
			return nil
		},
	}
}

// commandSetup carries the per-invocation client, config, and
// observability hooks shared by subcommands.
type commandSetup struct {
	cfg           Config
	client        *codapmeta.Client
	apiVersion    string
	logger        *slog.Logger
	observerSet   bool
	traceShutdown func(context.Context) error
}

// resolveSetup merges flags, environment, and config file into a ready
// client. Flags win over environment; environment wins over the file.
func resolveSetup(cmd *cobra.Command) (*commandSetup, error) {
	explicitConfig, _ := cmd.Flags().GetString("config")
	cfg, _, err := LoadConfig(explicitConfig)
	if err != nil {
		return nil, exitError(exitUsage, "%s", err)
	}

	baseURL := resolveStringSetting(cmd, "base-url", cfg.BaseURL)
	if baseURL == "" {
		return nil, exitError(exitUsage, "base URL is required (--base-url or CODAPMETA_BASE_URL)")
	}
	sessionID := resolveStringSetting(cmd, "session", cfg.SessionID)
	if sessionID == "" {
		return nil, exitError(exitUsage, "session ID is required (--session or CODAPMETA_SESSION)")
	}
	apiVersion := resolveStringSetting(cmd, "api-version", cfg.APIVersion)

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !cmd.Flags().Changed("timeout") && cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout)
	}

	logger := newCommandLogger(cmd)

	setup := &commandSetup{
		cfg:        cfg,
		apiVersion: apiVersion,
		logger:     logger,
	}

	if endpoint := resolveStringSetting(cmd, "otlp-endpoint", cfg.OTLPEndpoint); endpoint != "" {
		shutdown, err := codapotel.SetupTracing(cmd.Context(), endpoint, "codapmeta")
		if err != nil {
			return nil, exitError(exitRuntime, "initializing tracing: %v", err)
		}
		setup.traceShutdown = shutdown

		observer, err := codapotel.NewClientObserver(
			otelapi.GetMeterProvider().Meter("codapmeta/client"),
			otelapi.GetTracerProvider().Tracer("codapmeta/client"),
		)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, exitError(exitRuntime, "initializing client observability: %v", err)
		}
		codapmeta.SetObserver(observer)
		setup.observerSet = true
	}

	setup.client = codapmeta.New(baseURL, sessionID,
		codapmeta.WithTimeout(timeout),
		codapmeta.WithLogger(logger),
	)
	return setup, nil
}

// close releases observability hooks installed by resolveSetup.
func (s *commandSetup) close() {
	if s.observerSet {
		codapmeta.SetObserver(nil)
	}
	if s.traceShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.traceShutdown(shutdownCtx); err != nil {
			s.logger.Warn("trace exporter shutdown failed", "error", err)
		}
	}
}

func resolveStringSetting(cmd *cobra.Command, flagName, fileValue string) string {
	value, _ := cmd.Flags().GetString(flagName)
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(fileValue)
}

func newCommandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
