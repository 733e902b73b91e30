package main

import (
	"fmt"
	"os"

	"github.com/adamavenir/office/internal/command"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func main() {
	if err := command.NewRootCmd(Version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
