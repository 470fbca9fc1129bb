package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tagwm/tagwm/internal/config"
	"github.com/tagwm/tagwm/internal/core"
	"github.com/tagwm/tagwm/internal/ipc"
	"github.com/tagwm/tagwm/internal/layout"
	"github.com/tagwm/tagwm/internal/x11"
)

// runDaemon runs the window manager until exit. A soft reload ends the
// current incarnation; the outer loop reloads the configuration and builds a
// fresh model, adapter and socket, then runs a new adoption pass.
func runDaemon() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	for {
		err := runIncarnation(cfg, logger)
		if errors.Is(err, core.ErrRestart) {
			logger.Info("daemon.reload")
			fresh, lerr := config.Load()
			if lerr != nil {
				logger.Warn("daemon.reload", "error", lerr, "action", "keeping previous config")
			} else {
				cfg = fresh
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level: cfg.SlogLevel(),
				}))
				slog.SetDefault(logger)
			}
			continue
		}
		if err != nil {
			logger.Error("daemon.exit", "error", err)
			return 1
		}
		logger.Info("daemon.exit")
		return 0
	}
}

// runIncarnation builds and runs one full instance of the window manager.
// Everything is torn down before returning so a reload starts clean.
func runIncarnation(cfg *config.Config, logger *slog.Logger) error {
	bindings := cfg.Bindings()
	combos := make([]string, 0, len(bindings))
	for _, b := range bindings {
		combos = append(combos, b.Combo)
	}
	tagNames := make([]string, 0, len(cfg.Tags))
	for _, t := range cfg.Tags {
		tagNames = append(tagNames, t.Name)
	}

	adapter, err := x11.NewAdapter(x11.Options{
		BorderWidth:   cfg.Border.Width,
		BorderNormal:  cfg.Border.Normal,
		BorderFocused: cfg.Border.Focused,
		BorderUrgent:  cfg.Border.Urgent,
		Combos:        combos,
		TagNames:      tagNames,
		Logger:        logger.With("component", "x11"),
	})
	if err != nil {
		return fmt.Errorf("connect to display: %w", err)
	}
	defer adapter.Close()

	commands := make(chan core.Command, 16)
	srv, err := ipc.NewServer("", commands, logger.With("component", "ipc"))
	if err != nil {
		return fmt.Errorf("create IPC server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer srv.Stop()

	model := core.NewModel(cfg.CoreTags(), cfg.CorePolicy())
	loop := core.NewLoop(core.LoopConfig{
		Model:    model,
		Proc:     core.NewProcessor(layout.Names(), logger.With("component", "proc")),
		Rec:      core.NewReconciler(logger.With("component", "rec")),
		Emitter:  core.NewEmitter(layout.NewEngine(), cfg.Gap, cfg.Border.Width > 0),
		Adapter:  adapter,
		Commands: commands,
		Bindings: bindings,
		Logger:   logger.With("component", "loop"),
	})
	loop.Publish = srv.PublishStatus

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for sig := range sigCh {
			cmd := core.Command{Kind: core.CmdExit}
			if sig == syscall.SIGHUP {
				cmd = core.Command{Kind: core.CmdSoftReload}
			}
			select {
			case commands <- cmd:
			case <-ctx.Done():
				return
			default:
				// Loop wedged; fall back to hard cancellation.
				cancel()
				return
			}
		}
	}()

	logger.Info("daemon.start", "tags", len(tagNames), "bindings", len(bindings))
	return loop.RunUntilExit(ctx)
}
