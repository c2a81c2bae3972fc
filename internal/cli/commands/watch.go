package commands

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// WatchOptions holds options for the watch command.
type WatchOptions struct {
	Detail   bool
	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-extract lineage whenever a SQL file changes",
		Long: `Watch a directory tree and print the lineage of each .sql file as it is
created or written. Stops on interrupt.`,
		Example: `  sqllineage watch models/ --detail`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Detail, "detail", false, "Include column-level lineage")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 100*time.Millisecond, "Wait this long after the last write before extracting")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string, opts *WatchOptions) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	if err := addTree(watcher, dir); err != nil {
		return err
	}
	cc.Renderer.Println(cc.Renderer.Muted(fmt.Sprintf("Watching %s for .sql changes...", dir)))

	return watchLoop(ctx, watcher, opts.Debounce, func(path string) {
		out := extractFile(ctx, cc, path)
		if out.Error != "" {
			cc.Renderer.Error(fmt.Sprintf("%s: %s", path, out.Error))
			return
		}
		if err := cc.Renderer.RenderExtract(out, opts.Detail); err != nil {
			cc.Logger.Warn("failed to render", "source", path, "error", err)
		}
	}, func(path string) {
		if err := addTree(watcher, path); err != nil {
			cc.Logger.Warn("failed to watch directory", "dir", path, "error", err)
		}
	})
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// watchLoop dispatches changed .sql files to onChange once they have been
// quiet for debounce, and new directories to onDir. It returns when ctx is
// done or the watcher is closed.
func watchLoop(ctx context.Context, w *fsnotify.Watcher, debounce time.Duration, onChange, onDir func(path string)) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					onDir(ev.Name)
					continue
				}
			}
			if !isSQLEvent(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(debounce)

		case <-timer.C:
			for _, path := range slices.Sorted(maps.Keys(pending)) {
				onChange(path)
			}
			clear(pending)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher: %w", err)
		}
	}
}

// isSQLEvent reports whether ev wrote a .sql file.
func isSQLEvent(ev fsnotify.Event) bool {
	return (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) && isSQLFile(ev.Name)
}
