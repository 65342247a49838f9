package commands

import (
	"fmt"
	"os"

	"github.com/khaneliman/hypr-socket-watch/internal/config"
	"github.com/khaneliman/hypr-socket-watch/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "hypr-socket-watch",
		Short: "Change the wallpaper whenever the Hyprland workspace changes",
		Long: `hypr-socket-watch listens on Hyprland's event socket and, on every
workspace switch, applies the matching wallpaper through hyprpaper.

Wallpapers are taken from the configured directory in byte-wise name order:
workspace 1 gets the first file, workspace 2 the second, and so on. Indexes
past the last file reuse the last file.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runWatch,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/hypr-socket-watch/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	addWatchFlags(rootCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig reads the config file with the persistent flags applied
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}

	bindings := map[string]string{
		"debug":       "debug",
		"socket_path": "socket",
		"status_addr": "status-addr",
	}
	for key, flag := range bindings {
		if err := configMgr.BindFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return nil, nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	cfg, err := configMgr.Load()
	if err != nil {
		return nil, configMgr, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, configMgr, nil
}
