package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, ok := daemonClient()
		if !ok {
			fmt.Println("⚡ daemon is not running")
			fmt.Println("  start it with: dropcache daemon start")
			return nil
		}

		h, err := client.Health()
		if err != nil {
			return err
		}
		fmt.Print(formatHealth(h))
		return nil
	},
}
