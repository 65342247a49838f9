package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/khaneliman/hypr-socket-watch/internal/wallpaper"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [WORKSPACE]",
	Short: "Show which wallpaper a workspace maps to",
	Long: `Resolve a workspace index to a wallpaper the same way the watcher does,
without touching Hyprland. Without an index, list every wallpaper with the
workspace that selects it.`,
	Example: `  # Which wallpaper does workspace 3 get?
  hypr-socket-watch resolve 3

  # List the whole mapping as JSON
  hypr-socket-watch resolve --format json

  # Preview a different directory
  hypr-socket-watch resolve 1 --dir ~/Pictures/other`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

var (
	resolveFormat string
	resolveDir    string
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "table", "output format (table or json)")
	resolveCmd.Flags().StringVar(&resolveDir, "dir", "", "wallpaper directory (default is the configured one)")
}

type mapping struct {
	Workspace int    `json:"workspace"`
	Wallpaper string `json:"wallpaper"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	dir := resolveDir
	if dir == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir = cfg.Wallpapers
	}

	if len(args) == 1 {
		index, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid workspace index: %s", args[0])
		}
		path, err := wallpaper.Resolve(dir, uint32(index))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	paths, err := wallpaper.List(dir)
	if err != nil {
		return err
	}
	rows := make([]mapping, len(paths))
	for i, p := range paths {
		rows[i] = mapping{Workspace: i + 1, Wallpaper: p}
	}

	switch resolveFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "table":
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WORKSPACE\tWALLPAPER")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\n", r.Workspace, filepath.Base(r.Wallpaper))
		}
		fmt.Fprintf(w, "%d+\t%s\n", len(rows)+1, filepath.Base(paths[len(paths)-1]))
		return w.Flush()
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", resolveFormat)
	}
}
