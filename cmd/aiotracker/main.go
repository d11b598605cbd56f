package main

import (
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:          "aiotracker",
		Short:        "Track brand citations in Google AI Overviews",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config.{yaml,json,toml} when present)")

	root.AddCommand(serveCmd(&cfgPath), migrateCmd(&cfgPath), importCmd(&cfgPath))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
