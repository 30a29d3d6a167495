package main

import (
	"fmt"
	"os"

	"github.com/scholzdev/githook/cli/cmd"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "githook: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	rootCmd := cmd.BuildRootCmd()
	return rootCmd.Execute()
}
