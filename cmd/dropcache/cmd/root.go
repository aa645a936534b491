package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
	"github.com/corey/dropcache/internal/config"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded once per invocation by the root pre-run hook.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dropcache",
	Short: "Monster drop table cache",
	Long: "Parses monster drop tables out of wiki markup and serves ranked keyword\n" +
		"search over them from a TTL-bounded local cache.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		c.LogLevel = "debug"
	}
	cfg = c
	setupLogging(os.Stderr, cfg.SlogLevel())
	return nil
}

// setupLogging installs the process-wide slog handler.
func setupLogging(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $DROPCACHE_CONFIG or ./dropcache.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(staleCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

// paths resolves the runtime file layout for the loaded config.
func paths() *app.Paths {
	return app.NewPaths(cfg.DataDir, cfg.DBPath)
}

// daemonClient returns a client for the daemon socket and whether the
// daemon answered.
func daemonClient() (*socket.Client, bool) {
	client := socket.NewClient(paths().Socket)
	return client, client.Ping()
}

// withApp opens the cache in-process for a command that runs without the
// daemon. The snapshot is saved when fn returns.
func withApp(fn func(a *app.App) error) error {
	a, err := app.New(cfg, app.Deps{})
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(paths()))
		}
		return fmt.Errorf("init: %w", err)
	}
	ferr := fn(a)
	if cerr := a.Close(); cerr != nil && ferr == nil {
		return fmt.Errorf("save: %w", cerr)
	}
	return ferr
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
