package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/model"
	"github.com/chronologos/ibgw/pkg/session"
)

var metricsAddr string

func init() {
	connectCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.AddCommand(connectCmd)
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect, print session details, then log server notices until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Level())
		ctx, stop := signalContext()
		defer stop()

		var reg *prometheus.Registry
		if metricsAddr != "" {
			reg = prometheus.NewRegistry()
			srv := &http.Server{
				Addr:              metricsAddr,
				Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server", "err", err)
				}
			}()
			defer srv.Close()
		}

		s, err := openSession(ctx, cfg, logger, func(sc *session.Config) {
			if reg != nil {
				sc.Registerer = reg
			}
		})
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("session %s\n", s.ID())
		fmt.Printf("server version %d, connected %s\n", s.ServerVersion(), s.ConnectionTime())
		actx, cancel := context.WithTimeout(ctx, 5*time.Second)
		accounts, err := s.AwaitAccounts(actx)
		cancel()
		if err == nil {
			fmt.Printf("accounts %s\n", strings.Join(accounts, ", "))
		}
		fmt.Printf("next order id %d\n", s.NextID())

		return watch(ctx, s, logger)
	},
}

// watch logs unsolicited traffic until ctx ends or the session stops.
func watch(ctx context.Context, s *session.Session, logger *slog.Logger) error {
	done := s.Done()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			if err := s.Err(); err != nil && !errors.Is(err, session.ErrSessionClosed) {
				return err
			}
			return nil
		case ev := <-s.Unsolicited():
			logEvent(logger, ev)
		}
	}
}

func logEvent(logger *slog.Logger, ev codec.Event) {
	if ev.Err != nil {
		logger.Warn("notice", "err", ev.Err)
		return
	}
	if ev.Kind == catalog.ErrMsg {
		n, err := model.NewServerNotice(&ev)
		if err == nil {
			level := slog.LevelError
			if n.Warning() {
				level = slog.LevelInfo
			}
			logger.Log(context.Background(), level, "server", "id", n.ID, "code", n.Code, "msg", n.Message)
			return
		}
	}
	logger.Debug("unsolicited", "kind", ev.Kind, "fields", ev.Len())
}
