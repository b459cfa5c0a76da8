package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/sam3lab/internal/config"
	"github.com/ekisa-team/sam3lab/internal/xfs"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the demo, then run it again whenever the config file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runWatch(cmd.Context())
		},
	}
}

func (a *app) runWatch(ctx context.Context) error {
	if !xfs.FileExists(a.configPath) {
		return fmt.Errorf("watch needs a config file, %s does not exist", a.configPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reloads := make(chan *config.Config, 1)
	watcher, err := config.NewWatcher(ctx, a.configPath, 0, func(cfg *config.Config, err error) {
		if err != nil {
			a.print.fail("config", "Reload failed: "+err.Error())
			return
		}
		select {
		case reloads <- cfg:
		default:
			// a newer snapshot is read below
		}
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	a.cfg = watcher.Snapshot()
	if err := a.runDemo(ctx); err != nil {
		return err
	}
	a.print.info("", "Watching "+a.configPath+" (Ctrl-C to stop)")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped", "reloads", watcher.ReloadCount())
			return nil
		case <-reloads:
			a.cfg = watcher.Snapshot()
			a.print.info("config", "Config changed, running demo again")
			if err := a.runDemo(ctx); err != nil {
				return err
			}
		}
	}
}
