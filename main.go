package main

import (
	"fmt"
	"os"

	"github.com/lanewatch/lanewatch/cmd"
	"github.com/lanewatch/lanewatch/internal/app"
	"github.com/lanewatch/lanewatch/internal/buildinfo"
)

// Set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	rt := &app.Runtime{Build: buildinfo.NewContext(version, buildDate)}

	rootCmd := cmd.RootCommand(rt)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command execution error: %v\n", err)
		os.Exit(1)
	}
}
