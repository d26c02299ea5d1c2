package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/vrmlopt/internal/config"
	"github.com/Faultbox/vrmlopt/internal/logger"
	"github.com/Faultbox/vrmlopt/internal/optimize"
	"github.com/Faultbox/vrmlopt/internal/worker"
)

// settle is how long a file must stay quiet before it is processed.
const settle = 300 * time.Millisecond

func isSource(path string) bool {
	lower := strings.ToLower(path)
	return (strings.HasSuffix(lower, ".wrl") || strings.HasSuffix(lower, ".vrml")) &&
		!strings.HasSuffix(lower, outputSuffix)
}

func cmdWatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("d", "", "Output directory (default: next to each input)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: vrmlopt watch [-d dir] <dir>")
	}
	params, err := optimize.ParamsFromConfig(cfg.Simplify)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(fs.Arg(0)); err != nil {
		return fmt.Errorf("watching %s: %w", fs.Arg(0), err)
	}

	w := worker.NewWorker(worker.NewHandler(params, logger.Named("worker")), cfg.Server.QueueSize)
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("watching", zap.String("dir", fs.Arg(0)))

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if isSource(event.Name) {
					pending[event.Name] = time.Now()
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				processWatched(ctx, cfg, w, params, path, *dir)
			}
		}
	}
}

func processWatched(ctx context.Context, cfg *config.Config, w *worker.Worker, params optimize.Params, path, dir string) {
	content, err := readDocument(path, cfg.Input.Charset)
	if err != nil {
		logger.Warn("read failed", zap.String("file", path), zap.Error(err))
		return
	}

	resp, err := w.Do(ctx, worker.Request{
		ID:                filepath.Base(path),
		VRML:              content,
		MergeCutoff:       params.MergeCutoff,
		ReductionFraction: params.ReductionFraction,
	})
	if err != nil {
		logger.Warn("submit failed", zap.String("file", path), zap.Error(err))
		return
	}
	if !resp.Success {
		logger.Warn("optimization failed", zap.String("file", path), zap.String("error", resp.Error))
		return
	}

	out := outputPath(path, dir, outputSuffix)
	if err := os.WriteFile(out, []byte(resp.VRML), 0o644); err != nil {
		logger.Warn("write failed", zap.String("file", out), zap.Error(err))
		return
	}
	logger.Info("updated", zap.String("file", out), zap.Int("shapes", len(resp.Stats)))
}
