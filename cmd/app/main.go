package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crypto_dash/internal/app"
	"crypto_dash/internal/infra"
)

var rootCmd = &cobra.Command{
	Use:   "crypto-dash",
	Short: "Weather, crypto and news dashboard backend",
	Long: `crypto-dash polls CoinGecko, OpenWeather and NewsData, streams live
prices from CoinCap, fires price alerts once per threshold crossing and serves
the dashboard state over HTTP and a websocket.`,
	SilenceUsage: true,
	RunE:         runE,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the configured version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := infra.LoadConfig(infra.ResolveConfigPath(viper.GetString("config")))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.App.Name, cfg.App.Version)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to config.yaml (default: ./configs/config.yaml)")
	flags.String("listen", "", "HTTP listen address (overrides server.listen)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("workspace", "", "runtime data directory")

	for _, name := range []string{"config", "listen", "log-level", "workspace"} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
	viper.SetEnvPrefix("CRYPTODASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(versionCmd)
}

func runE(cmd *cobra.Command, args []string) error {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(app.Options{
		ConfigPath: viper.GetString("config"),
		Workspace:  viper.GetString("workspace"),
		Listen:     viper.GetString("listen"),
		LogLevel:   viper.GetString("log-level"),
	}); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return err
	}
	defer bootstrap.Close()

	infra.PrintBanner(cmd.OutOrStdout(), bootstrap.Config)

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire and run
	dashboard := app.New(bootstrap)
	if err := dashboard.Run(ctx, bootstrap); err != nil {
		slog.Error("Dashboard stopped with error", slog.Any("error", err))
		return err
	}

	slog.Info("👋 Shutting down gracefully...")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
