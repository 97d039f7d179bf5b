package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/chronologos/ibgw/internal/config"
	"github.com/chronologos/ibgw/pkg/session"
)

var (
	configPath string
	logLevel   string
	hostFlag   string
	portFlag   int
	clientFlag int64
	retries    int
)

var rootCmd = &cobra.Command{
	Use:           "ibgw",
	Short:         "Client for the trading gateway API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (yaml, toml or json)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&hostFlag, "host", "", "gateway host")
	pf.IntVar(&portFlag, "port", 0, "gateway port")
	pf.Int64Var(&clientFlag, "client-id", 0, "API client id")
	pf.IntVar(&retries, "retries", 3, "connect attempts before giving up")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = hostFlag
	}
	if flags.Changed("port") {
		cfg.Port = portFlag
	}
	if flags.Changed("client-id") {
		cfg.ClientID = clientFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

// newLogger writes text to a terminal and JSON otherwise.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openSession connects with retries and waits for the managed accounts the
// server sends after StartApi.
func openSession(ctx context.Context, cfg config.Config, logger *slog.Logger, mod func(*session.Config)) (*session.Session, error) {
	sc, err := cfg.ToSession()
	if err != nil {
		return nil, err
	}
	sc.Logger = logger
	if mod != nil {
		mod(&sc)
	}
	s := session.New(sc)
	if err := s.ConnectWithRetry(ctx, session.RetryPolicy{MaxAttempts: retries}); err != nil {
		return nil, fmt.Errorf("connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return s, nil
}
