package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chronologos/ibgw/internal/auth"
	"github.com/chronologos/ibgw/internal/version"
	"github.com/chronologos/ibgw/pkg/transport"
)

func init() {
	rootCmd.AddCommand(relayCmd, versionCmd)
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Expose the gateway's TCP port as passkey-authenticated QUIC streams",
	Long: "relay listens on relay.port (UDP) and splices each authenticated stream onto\n" +
		"relay.target. Without a configured passkey a new one is generated and printed.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Level())

		var passkey []byte
		if cfg.Passkey != "" {
			if passkey, err = auth.ParsePasskey(cfg.Passkey); err != nil {
				return err
			}
		} else {
			if passkey, err = auth.GeneratePasskey(); err != nil {
				return err
			}
			fmt.Printf("passkey %s\n", auth.FormatPasskey(passkey))
		}

		r, err := transport.ListenRelay(transport.RelayConfig{
			Port:       cfg.Relay.Port,
			Target:     cfg.Relay.Target,
			Passkey:    passkey,
			MaxStreams: cfg.Relay.MaxStreams,
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer r.Close()
		logger.Info("relay listening", "port", r.Port(), "target", cfg.Relay.Target)

		ctx, stop := signalContext()
		defer stop()
		return r.Serve(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ibgw %s (%s)\n", version.VERSION, version.Commit)
	},
}
