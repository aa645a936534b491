package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/adapters/dumpdir"
	"github.com/corey/dropcache/internal/domain/wikitext"
)

var (
	parseTitle string
	parseJSON  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|->",
	Short: "Parse one page of wiki markup and print the monster record",
	Long: "Runs the drop-table parser over a file (or stdin with -) without touching\n" +
		"the cache. The title defaults to the file name.",
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseTitle, "title", "t", "", "Page title (default: derived from the file name)")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Output as JSON")
}

func runParse(cmd *cobra.Command, args []string) error {
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

	title := parseTitle
	if title == "" && args[0] != "-" {
		title = dumpdir.TitleFromPath(args[0])
	}
	if title == "" {
		return fmt.Errorf("--title is required when reading stdin")
	}

	rec := wikitext.ParsePage(title, string(data), cfg.Wiki.BaseURL)
	if parseJSON {
		return writeJSON(os.Stdout, rec)
	}
	if !rec.IsMonster() {
		fmt.Printf("⚡ %s%s%s has no drops (not cached as a monster)\n", colorCyan, rec.Title, colorReset)
		return nil
	}
	fmt.Printf("%s⚡ %d drops%s\n", colorBold, len(rec.Drops), colorReset)
	fmt.Print(formatMonster(&rec))
	return nil
}
