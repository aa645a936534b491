package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show resolved paths, daemon status and the effective config",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := paths()
		_, running := daemonClient()

		status := colorYellow + "not running" + colorReset
		if running {
			status = colorGreen + "running" + colorReset
		}

		fmt.Printf("%s⚡ dropcache config%s\n", colorBold, colorReset)
		fmt.Printf("  Data dir:   %s\n", p.Root)
		fmt.Printf("  Database:   %s\n", p.DB)
		fmt.Printf("  Socket:     %s\n", p.Socket)
		fmt.Printf("  Daemon log: %s\n", p.DaemonLog)
		fmt.Printf("  Daemon:     %s\n", status)
		fmt.Println()

		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}
