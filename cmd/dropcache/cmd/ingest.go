package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/socket"
	"github.com/corey/dropcache/internal/app"
)

var (
	ingestTitles []string
	ingestJSON   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest wiki pages from a dump directory or the live wiki",
	Long: "Without --title, every page file in dir (default: ingest.dump_dir) is parsed\n" +
		"and monsters with drops are cached. With --title, the named pages are\n" +
		"fetched from the configured wiki instead.",
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringArrayVarP(&ingestTitles, "title", "t", nil, "Fetch this page from the live wiki (repeatable)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "Output as JSON")
}

func runIngest(cmd *cobra.Command, args []string) error {
	params := socket.IngestParams{Titles: ingestTitles}
	if len(args) == 1 {
		if len(ingestTitles) > 0 {
			return fmt.Errorf("give either a directory or --title, not both")
		}
		// The daemon may run from another working directory.
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		params.Dir = dir
	}

	var result *socket.IngestResult
	if client, ok := daemonClient(); ok {
		var err error
		if result, err = client.Ingest(params); err != nil {
			return err
		}
	} else {
		err := withApp(func(a *app.App) error {
			ctx, cancel := signalContext()
			defer cancel()
			res, err := a.Ingest(ctx, params)
			if res.RunID != "" {
				result = &res
			}
			return err
		})
		switch {
		case result == nil:
			return err
		case errors.Is(err, context.Canceled):
			fmt.Fprintln(os.Stderr, "⚡ interrupted, partial results saved")
		case err != nil:
			return err
		}
	}

	if ingestJSON {
		return writeJSON(os.Stdout, result)
	}
	fmt.Print(formatIngest(result))
	return nil
}
