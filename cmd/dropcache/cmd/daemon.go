package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/app"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the dropcache daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon (runs in the foreground)",
	RunE:  runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	if _, ok := daemonClient(); ok {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	a, err := app.New(cfg, app.Deps{})
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(paths()))
		}
		return fmt.Errorf("init: %w", err)
	}

	// Mirror logs into the daemon log so a detached run leaves a trail.
	if f, err := os.OpenFile(a.Paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		defer f.Close()
		setupLogging(io.MultiWriter(os.Stderr, f), cfg.SlogLevel())
	}

	if err := a.Start(); err != nil {
		a.Close()
		return err
	}
	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "warning: pid file: %v\n", err)
	}
	defer a.Paths.CleanEphemeral()

	fmt.Printf("⚡ dropcache daemon started at %s\n", a.Paths.Socket)
	if a.WebServer != nil && a.WebServer.Addr() != "" {
		fmt.Printf("  %smetrics: %s/metrics%s\n", colorGray, a.WebServer.URL(), colorReset)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		fmt.Println("\n⚡ shutting down...")
	case <-a.Server.ShutdownCh():
		fmt.Println("⚡ shutdown requested")
	}
	return a.Stop()
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	client, ok := daemonClient()
	if !ok {
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
