package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

var (
	searchLimit int
	searchLive  bool
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search cached monsters by keyword",
	Long: "Ranks cached monsters against the query. With --live a miss is looked up\n" +
		"on the wiki as a page title and cached when it has drops.",
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Max results (default: search.default_limit)")
	searchCmd.Flags().BoolVar(&searchLive, "live", false, "Fall back to the live wiki on a miss")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var result *socket.SearchResult
	if client, ok := daemonClient(); ok {
		var err error
		if searchLive {
			result, err = client.Lookup(query, searchLimit)
		} else {
			result, err = client.Search(query, searchLimit)
		}
		if err != nil {
			return err
		}
	} else {
		err := withApp(func(a *app.App) error {
			if !searchLive {
				res := a.Search(query, searchLimit)
				result = &res
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()
			res, err := a.Lookup(ctx, query, searchLimit)
			if err != nil {
				return err
			}
			result = &res
			return nil
		})
		if err != nil {
			return err
		}
	}

	if searchJSON {
		return writeJSON(os.Stdout, result)
	}
	fmt.Print(formatSearchResult(result))
	return nil
}
