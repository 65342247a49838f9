package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khaneliman/hypr-socket-watch/internal/api"
	"github.com/khaneliman/hypr-socket-watch/internal/config"
	"github.com/khaneliman/hypr-socket-watch/internal/dispatch"
	"github.com/khaneliman/hypr-socket-watch/internal/ipc"
	"github.com/khaneliman/hypr-socket-watch/internal/logger"
	"github.com/khaneliman/hypr-socket-watch/internal/notify"
	"github.com/khaneliman/hypr-socket-watch/internal/watcher"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// drainTimeout bounds how long shutdown waits for queued wallpapers
const drainTimeout = 10 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the Hyprland event socket (default)",
	Long: `Connect to Hyprland's event socket and apply a wallpaper on every
workspace switch. This is what running hypr-socket-watch without a
subcommand does.

The watcher exits with status 0 when Hyprland closes the socket and with a
non-zero status when the config cannot be loaded, the socket cannot be found
or connected, or reading from it fails.`,
	Example: `  # Watch using the default config
  hypr-socket-watch

  # Use a specific config file with debug logging
  hypr-socket-watch watch --config ~/walls.yaml --debug

  # Expose status on localhost
  hypr-socket-watch watch --status-addr 127.0.0.1:9099`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addWatchFlags(watchCmd)
}

func addWatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("socket", "", "event socket path (default is discovered from HYPRLAND_INSTANCE_SIGNATURE)")
	cmd.Flags().String("status-addr", "", "listen address for the status API (disabled when empty)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, configMgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{Debug: cfg.Debug, Pretty: cfg.PrettyLogs})
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("monitor", cfg.Monitor).
		Str("wallpapers", cfg.Wallpapers).
		Bool("debug", cfg.Debug).
		Msg("Config loaded")

	socketPath, err := resolveSocket(cfg)
	if err != nil {
		return err
	}
	log.Info().Str("socket", socketPath).Msg("Socket path")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := ipc.Dial(ctx, socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	var w *watcher.Watcher
	var status *api.Server
	if cfg.StatusAddr != "" {
		status = api.NewServer(cfg, func() watcher.State {
			if w == nil {
				return watcher.StateConnecting
			}
			return w.State()
		}, log)
	}

	var observers []dispatch.Observer
	if status != nil {
		observers = append(observers, status.ObserveOutcome)
	}
	if cfg.NotifyOnFailure {
		if sender, err := notify.NewDBusSender(); err != nil {
			log.Warn().Err(err).Msg("Desktop notifications unavailable")
		} else {
			defer sender.Close()
			observers = append(observers, notify.New(sender, log).Observe)
		}
	}

	dispatcher := dispatch.New(dispatch.Options{
		Command:   cfg.ApplyCommand,
		Preload:   cfg.Preload,
		Signature: ipc.EnvFromOS().Signature,
		Logger:    log,
		Observers: observers,
	})

	var eventObservers []watcher.EventObserver
	if status != nil {
		eventObservers = append(eventObservers, status.ObserveEvent)
	}
	w = watcher.New(watcher.Options{
		Monitor:    cfg.Monitor,
		Wallpapers: cfg.Wallpapers,
		Dispatcher: dispatcher,
		Logger:     log,
		Observers:  eventObservers,
	})

	if status != nil {
		go func() {
			if err := status.Start(cfg.StatusAddr); err != nil {
				log.Error().Err(err).Msg("Status server error")
			}
		}()
	}

	runErr := w.Run(ctx, conn)

	shutdown(log, dispatcher, status)
	return runErr
}

func resolveSocket(cfg *config.Config) (string, error) {
	if cfg.SocketPath != "" {
		return cfg.SocketPath, nil
	}
	path, err := ipc.Discover(ipc.EnvFromOS())
	if err != nil {
		return "", fmt.Errorf("failed to locate event socket: %w", err)
	}
	return path, nil
}

func shutdown(log zerolog.Logger, dispatcher *dispatch.Dispatcher, status *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := dispatcher.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("Pending wallpapers abandoned")
	}
	if status != nil {
		if err := status.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Status server shutdown failed")
		}
	}
}
