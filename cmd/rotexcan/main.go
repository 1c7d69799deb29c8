// rotexcan polls a Rotex/Daikin HPSU heat pump over CAN and publishes its
// values to MQTT, InfluxDB, a REST/WebSocket API and Prometheus.
//
// Subcommands:
//
//	rotexcan run                      start the polling daemon
//	rotexcan send "31 00 FA 01 D6 00 00"  send one freeform request
//	rotexcan entities                 print the entity catalog
//	rotexcan migrate [up|down|status] manage the state database
//	rotexcan version                  print build information
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/rotex-can-core/migrations"

	"github.com/nerrad567/rotex-can-core/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "rotexcan",
		Short: "Rotex HPSU CAN polling engine",
		Long: `rotexcan polls a Rotex/Daikin HPSU heat pump over CAN (SocketCAN or an
SLCAN USB adapter), decodes its registers into typed entities and publishes
them to MQTT, InfluxDB, a REST/WebSocket API and Prometheus.

The configuration file defaults to configs/config.yaml and can be set with
--config or the ROTEXCAN_CONFIG environment variable.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", getConfigPath(), "path to config.yaml")

	root.AddCommand(
		newRunCmd(opts),
		newSendCmd(opts),
		newEntitiesCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
	)
	return root
}

// getConfigPath returns the configuration file path.
// Uses ROTEXCAN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ROTEXCAN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads the configuration file. When allowMissing is set and the
// file does not exist, the built-in defaults are used instead.
func loadConfig(path string, allowMissing bool) (*config.Config, error) {
	if allowMissing {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rotexcan %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
