// Package main is the entry point for the careers relay.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shineum/careers-relay/internal/channel"
	"github.com/shineum/careers-relay/internal/config"
	"github.com/shineum/careers-relay/internal/envelope"
	"github.com/shineum/careers-relay/internal/intake"
	"github.com/shineum/careers-relay/internal/metrics"
	"github.com/shineum/careers-relay/internal/server"
)

// verifyTimeout bounds the verify subcommand.
const verifyTimeout = time.Minute

type flags struct {
	configPath string
	envFiles   []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:          "careers-relay",
		Short:        "Accept job applications over HTTP and relay them by email",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}
	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "", "path to YAML configuration file (optional)")
	rootCmd.PersistentFlags().StringSliceVar(&f.envFiles, "env-file", []string{".env"}, "dotenv files to load; missing files are skipped")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Check that the configured mail channel is reachable and accepts the credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), f)
		},
	})

	return rootCmd
}

func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: f.configPath, EnvFiles: f.envFiles})
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Logging.Level)
	return cfg, nil
}

func runServe(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logEnvCheck(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	missing := cfg.MissingMailKeys()
	var ch channel.Channel
	if len(missing) == 0 {
		ch, err = selectChannel(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create mail channel: %w", err)
		}
	} else {
		slog.Warn("mail configuration incomplete, submissions will be refused", "missing", missing)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler := intake.New(intake.Options{
		Channel:     ch,
		Builder:     envelope.Builder{From: cfg.Mail.From, To: cfg.Mail.To},
		MissingKeys: missing,
		Metrics:     metrics.New(reg),
	})

	router := server.NewRouter(server.RouterConfig{
		Intake:    handler,
		Origins:   cfg.Origins(),
		StaticDir: cfg.Server.StaticDir,
		Gatherer:  reg,
	})

	slog.Info("starting careers-relay",
		"addr", cfg.Addr(),
		"provider", cfg.Mail.Provider,
		"static_dir", cfg.Server.StaticDir,
		"origins", cfg.Origins(),
	)

	if err := server.New(cfg.Addr(), router).ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("careers-relay stopped")
	return nil
}

func runVerify(ctx context.Context, f *flags) error {
	cfg, err := loadConfig(f)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logEnvCheck(cfg)

	if missing := cfg.MissingMailKeys(); len(missing) > 0 {
		return fmt.Errorf("missing configuration: %v", missing)
	}

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	ch, err := selectChannel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create mail channel: %w", err)
	}

	start := time.Now()
	if err := ch.Verify(ctx); err != nil {
		return fmt.Errorf("%s verification failed: %w", ch.Name(), err)
	}

	slog.Info("mail channel verified", "channel", ch.Name(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// logEnvCheck records which mail settings are present. Credentials are only
// reported as set or unset.
func logEnvCheck(cfg *config.Config) {
	slog.Info("env check",
		"provider", cfg.Mail.Provider,
		"mail_host", cfg.Mail.Host,
		"mail_port", cfg.Mail.Port,
		"mail_secure", cfg.Secure(),
		"mail_user_set", cfg.Mail.User != "",
		"mail_password_set", cfg.Mail.Password != "",
		"mail_from", cfg.Mail.From,
		"mail_to", cfg.Mail.To,
		"ses_keys_set", cfg.SES.AccessKeyID != "" && cfg.SES.SecretAccessKey != "",
		"graph_secret_set", cfg.Graph.ClientSecret != "",
		"postmark_token_set", cfg.Postmark.ServerToken != "",
	)
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level.
func setupLogger(level string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
