package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload files as they appear in a local directory",
		Long: `Watch a local directory and upload every new or changed file into a
folder once the file has stopped changing. Only one watcher may run per
directory. Stop with Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, _ := cmd.Flags().GetString("folder")

			return runOnce(cmd, func(ctx context.Context, a *app) error {
				return runWatch(ctx, cmd, a, args[0], folder)
			})
		},
	}

	cmd.Flags().String("folder", "", "target folder (defaults to the current folder)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, dir, folder string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	if folder == "" {
		folder = a.ctrl.Snapshot().CurrentFolder
	}

	if folder == "" {
		return fmt.Errorf("no target folder: open one first or pass --folder")
	}

	lock, err := acquireWatchLock(a.cfg.PIDDir, watchOwner{Dir: abs, Folder: folder})
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := shutdownContext(ctx, a.logger)
	defer stop()

	w := watch.New(abs, func(ctx context.Context, path string) error {
		err := a.ctrl.UploadFile(ctx, folder, path)
		a.flushNotes()

		return err
	}, watch.WithLogger(a.logger))

	statusf(cmd.ErrOrStderr(), "Watching %s, uploading to %s. Press Ctrl-C to stop.\n", abs, folder)
	a.logger.Info("watch started", slog.String("dir", abs), slog.String("folder", folder))

	return w.Run(ctx)
}
