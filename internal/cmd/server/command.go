package serverrun

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cfgpkg "github.com/corbtastik/incident-visualizer/internal/config"
)

// NewCommand builds the `server` command group.
func NewCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}

	startCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the incidents server (HTTP and gRPC)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := cfgpkg.Load(path)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := Run(ctx, Options{Config: cfg, ConfigPath: path}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := startCmd.Flags()
	f.StringP("config", "c", os.Getenv("INCIDENTS_CONFIG"), "Config file (yaml, json or toml)")
	f.String("http", "", "HTTP listen address")
	f.String("grpc", "", "gRPC listen address")
	f.String("driver", "", "Storage driver: embedded|postgres|mongo|memory")
	f.String("data-dir", "", "Embedded store directory (default: OS application data dir)")
	f.String("fsync", "", "Embedded fsync mode: always|interval|never")
	f.Bool("synthetic", false, "Generate synthetic incidents into every category")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(startCmd)
	return serverCmd
}

// applyFlags overlays explicitly set flags on cfg.
func applyFlags(cmd *cobra.Command, cfg *cfgpkg.Config) {
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	str("http", &cfg.Server.HTTPAddr)
	str("grpc", &cfg.Server.GRPCAddr)
	str("driver", &cfg.Storage.Driver)
	str("data-dir", &cfg.Storage.DataDir)
	str("fsync", &cfg.Storage.Fsync)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	if cmd.Flags().Changed("synthetic") {
		cfg.Ingest.Synthetic, _ = cmd.Flags().GetBool("synthetic")
	}
}
