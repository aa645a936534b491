package main

import (
	"os"

	"github.com/corey/dropcache/cmd/dropcache/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
