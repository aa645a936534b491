package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

var (
	staleMaxAge time.Duration
	staleRemove bool
	staleJSON   bool
)

var staleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List (or remove) entries not refreshed within --max-age",
	RunE:  runStale,
}

func init() {
	staleCmd.Flags().DurationVar(&staleMaxAge, "max-age", 24*time.Hour, "Entries written longer ago than this are stale")
	staleCmd.Flags().BoolVar(&staleRemove, "remove", false, "Remove the stale entries")
	staleCmd.Flags().BoolVar(&staleJSON, "json", false, "Output as JSON")
}

func runStale(cmd *cobra.Command, args []string) error {
	if staleMaxAge < 0 {
		return fmt.Errorf("--max-age must not be negative")
	}

	var result *socket.StaleResult
	if client, ok := daemonClient(); ok {
		var err error
		if result, err = client.Stale(staleMaxAge, staleRemove); err != nil {
			return err
		}
	} else {
		err := withApp(func(a *app.App) error {
			res := a.Stale(staleMaxAge, staleRemove)
			result = &res
			return nil
		})
		if err != nil {
			return err
		}
	}

	if staleJSON {
		return writeJSON(os.Stdout, result)
	}
	fmt.Print(formatStale(result, staleMaxAge))
	return nil
}
