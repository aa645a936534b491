package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

var getJSON bool

var getCmd = &cobra.Command{
	Use:   "get <title>",
	Short: "Show one cached monster with every drop",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getJSON, "json", false, "Output as JSON")
}

func runGet(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")

	var result *socket.GetResult
	if client, ok := daemonClient(); ok {
		var err error
		if result, err = client.Get(title); err != nil {
			return err
		}
	} else {
		err := withApp(func(a *app.App) error {
			res := a.Get(title)
			result = &res
			return nil
		})
		if err != nil {
			return err
		}
	}

	if !result.Found {
		return fmt.Errorf("%q is not cached", title)
	}
	if getJSON {
		return writeJSON(os.Stdout, result.Entry)
	}
	fmt.Print(formatEntry(result.Entry))
	return nil
}
