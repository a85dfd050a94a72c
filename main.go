package main

import (
	"os"

	"github.com/gridsense/tapctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
