package commands

import (
	"encoding/json"
	"fmt"

	"github.com/khaneliman/hypr-socket-watch/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hypr-socket-watch configuration",
	Long:  `View and create the hypr-socket-watch configuration file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including defaults and environment overrides.`,
	Example: `  # Show configuration as YAML (default)
  hypr-socket-watch config show

  # Show configuration as JSON
  hypr-socket-watch config show --format json`,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long:  `Write a starter configuration file. An existing file is never overwritten.`,
	Example: `  hypr-socket-watch config init --monitor DP-1 --wallpapers ~/Pictures/wallpapers`,
	RunE:    runConfigInit,
}

var (
	formatFlag     string
	initMonitor    string
	initWallpapers string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")

	configInitCmd.Flags().StringVar(&initMonitor, "monitor", "", "monitor to set wallpapers on")
	configInitCmd.Flags().StringVar(&initWallpapers, "wallpapers", "", "directory of wallpapers")
	configInitCmd.MarkFlagRequired("monitor")
	configInitCmd.MarkFlagRequired("wallpapers")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	switch formatFlag {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	case "yaml":
		encoder := yaml.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent(2)
		return encoder.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (use 'yaml' or 'json')", formatFlag)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	if err := configMgr.WriteDefault(initMonitor, initWallpapers); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", configMgr.GetConfigPath())
	return nil
}
