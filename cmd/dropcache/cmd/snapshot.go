package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the cache snapshot document to a file (or stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Replace the cache with a snapshot document",
	Long: "Loads a snapshot document, replacing every cached entry. Expired entries\n" +
		"are skipped. A document with another version leaves the cache empty.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// requireNoDaemon guards commands that rewrite the snapshot directly.
func requireNoDaemon() error {
	if _, ok := daemonClient(); ok {
		return fmt.Errorf("the daemon owns the cache\n  → stop it first:  dropcache daemon stop")
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := requireNoDaemon(); err != nil {
		return err
	}

	var data []byte
	err := withApp(func(a *app.App) error {
		var err error
		data, err = a.Store.ExportSnapshot()
		return err
	})
	if err != nil {
		return err
	}

	if len(args) == 0 || args[0] == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "⚡ exported %d bytes to %s\n", len(data), args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireNoDaemon(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	var loaded int
	err = withApp(func(a *app.App) error {
		var err error
		loaded, err = a.Store.ImportSnapshot(data)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("⚡ imported %d entries\n", loaded)
	return nil
}
