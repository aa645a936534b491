package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/dropcache/internal/app"
)

var removeCmd = &cobra.Command{
	Use:   "remove <title>",
	Short: "Remove one monster from the cache",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached monster",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "Skip the confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")

	var removed bool
	if client, ok := daemonClient(); ok {
		res, err := client.Remove(title)
		if err != nil {
			return err
		}
		removed = res.Removed
	} else {
		err := withApp(func(a *app.App) error {
			removed = a.Remove(title).Removed
			return nil
		})
		if err != nil {
			return err
		}
	}

	if !removed {
		fmt.Printf("⚡ %q was not cached\n", title)
		return nil
	}
	fmt.Printf("⚡ removed %s%s%s\n", colorCyan, title, colorReset)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearForce && !confirm("Remove every cached monster?") {
		fmt.Println("⚡ aborted")
		return nil
	}

	var cleared int
	if client, ok := daemonClient(); ok {
		res, err := client.Clear()
		if err != nil {
			return err
		}
		cleared = res.Cleared
	} else {
		err := withApp(func(a *app.App) error {
			cleared = a.Clear().Cleared
			return nil
		})
		if err != nil {
			return err
		}
	}

	fmt.Printf("⚡ cleared %d entries\n", cleared)
	return nil
}

// confirm asks a yes/no question on stdin. Anything but y/yes is no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
