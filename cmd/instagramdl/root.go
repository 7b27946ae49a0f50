package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"instagramdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "instagramdl",
	Short: "Retrieve Instagram posts and their media",
	Long: `instagramdl fetches single Instagram posts, normalizes them into one
post model and downloads their photos and videos.

Posts can be fetched through the public GraphQL API, the internal query
endpoint, the server-rendered page or a headless browser. Requests are
queued and paced so that consecutive fetches are at least the configured
interval apart.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || cmd.Name() == "version" || cmd.Name() == "help" {
			return
		}
		ui.PrintLogo()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./instagramdl.yaml or ~/.config/instagramdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "hide the banner")

	rootCmd.SetVersionTemplate(`instagramdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// commonFlags returns the persistent flags that map onto configuration keys.
func commonFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if cmd.Flags().Changed("log-level") {
		flags["log-level"] = logLevel
	}
	return flags
}
