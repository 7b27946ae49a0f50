package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"instagramdl/pkg/config"
	"instagramdl/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage instagramdl configuration files.

Configuration is resolved from, highest priority first:
  - Command line flags
  - Environment variables (INSTAGRAMDL_*, .env files included)
  - Configuration file
  - Default values`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write a configuration file holding every option at its default value.

The file is created as 'instagramdl.yaml' in the current directory unless
--config names another path. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report all problems.

Checks the YAML syntax, value ranges and that the output and log
directories can be created.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "instagramdl.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Pick a session (api, query, page or browser) and an output directory")
	fmt.Fprintln(ui.Output, "2. Run 'instagramdl config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "3. Fetch a post with 'instagramdl get <post-url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, commonFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))

	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source == "" {
		source = "(none found)"
	}
	fmt.Fprintln(ui.Output)
	ui.PrintInfo("Configuration file", source)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source != "" {
		ui.PrintInfo("Validating configuration", source)
	} else {
		ui.PrintInfo("Validating configuration", "defaults and environment")
	}

	cfg, err := config.Load(configFile, commonFlags(cmd))
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var problems []error
	if cfg.Download.Enabled {
		if err := os.MkdirAll(cfg.Download.Directory, 0755); err != nil {
			problems = append(problems, fmt.Errorf("cannot create output directory: %w", err))
		}
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			problems = append(problems, fmt.Errorf("cannot open log file: %w", err))
		} else {
			f.Close()
		}
	}
	if cfg.Instagram.Session == config.SessionBrowser && cfg.Browser.ExecPath != "" {
		if _, err := os.Stat(cfg.Browser.ExecPath); err != nil {
			problems = append(problems, fmt.Errorf("browser executable: %w", err))
		}
	}
	if err := errors.Join(problems...); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Session: %s\n", cfg.Instagram.Session)
	fmt.Fprintf(ui.Output, "  Minimum interval: %s\n", cfg.Scheduler.MinInterval)
	fmt.Fprintf(ui.Output, "  Download: %t (%s, %d concurrent)\n", cfg.Download.Enabled, cfg.Download.Directory, cfg.Download.ConcurrentDownloads)
	fmt.Fprintf(ui.Output, "  Media rate limit: %d requests/minute (%s)\n", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Algorithm)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
