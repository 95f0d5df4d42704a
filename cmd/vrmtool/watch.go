package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-avatar/internal/assets"
	"github.com/Faultbox/midgard-avatar/internal/config"
	"github.com/Faultbox/midgard-avatar/internal/logger"
	"github.com/Faultbox/midgard-avatar/pkg/avatar"
)

func cmdWatch(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmtool watch <file.vrm>")
	}
	path := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", path)
	return watchFile(ctx, newManager(cfg), path, cfg.Watch.Debounce, func(m *avatar.Model, err error) {
		fmt.Printf("[%s] ", time.Now().Format("15:04:05"))
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			return
		}
		printSummary(path, m)
	})
}

// watchFile decodes path once, then again each time it changes on disk,
// until ctx is done. Bursts of events within debounce collapse into one
// decode. Editors that replace the file by rename are handled by watching
// the parent directory.
func watchFile(ctx context.Context, m *assets.Manager, path string, debounce time.Duration, report func(*avatar.Model, error)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	reload := func() {
		m.Evict(target)
		model, err := m.Load(target)
		report(model, err)
	}
	reload()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", zap.String("path", target))
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("file changed", zap.String("path", target), zap.Stringer("op", event.Op))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-timer.C:
			reload()
		}
	}
}
