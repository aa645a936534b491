package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	var st *socket.StatsResult
	if client, ok := daemonClient(); ok {
		var err error
		if st, err = client.Stats(); err != nil {
			return err
		}
	} else {
		err := withApp(func(a *app.App) error {
			res := a.Stats()
			st = &res
			return nil
		})
		if err != nil {
			return err
		}
	}

	if statsJSON {
		return writeJSON(os.Stdout, st)
	}
	fmt.Print(formatStats(st))
	return nil
}
