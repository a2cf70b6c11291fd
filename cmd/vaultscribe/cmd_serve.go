package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/vaultscribe/internal/config"
	"github.com/user/vaultscribe/internal/control"
	"github.com/user/vaultscribe/internal/engine"
	"github.com/user/vaultscribe/internal/hostid"
	"github.com/user/vaultscribe/internal/journal"
	"github.com/user/vaultscribe/internal/notify"
	"github.com/user/vaultscribe/internal/scheduler"
	"github.com/user/vaultscribe/internal/summary"
	"github.com/user/vaultscribe/internal/types"
	"github.com/user/vaultscribe/internal/watch"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vaultscribe daemon",
	RunE:  runServe,
}

func writePIDFile() (string, error) {
	pidPath := filepath.Join(filepath.Dir(cfgPath), "vaultscribe.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

// quitRecord builds the final application-quit event, recording which
// signal ended the session.
func quitRecord(vaultName, hostname string, sig os.Signal) *types.EventRecord {
	rec := types.NewRecord(types.KindApplicationQuit, "", vaultName, hostname)
	rec.Metadata.QuitMethod = sig.String()
	return rec
}

func periodFromConfig(cfg *config.Config) journal.Period {
	if cfg.Period == "monthly" {
		return journal.Monthly
	}
	return journal.Daily
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.VaultPath == "" {
		return fmt.Errorf("no vault configured (run 'vaultscribe setup' or set vault_path)")
	}
	if _, err := os.Stat(cfg.VaultPath); err != nil {
		return fmt.Errorf("vault path %s: %w", cfg.VaultPath, err)
	}

	pidPath, err := writePIDFile()
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	hostname := hostid.Resolve(cfg.VaultPath)

	// Core pipeline: store -> maintainer -> engine
	store := journal.NewStore(cfg.VaultPath, cfg.EventsFolder, periodFromConfig(cfg))
	maintainer := summary.NewMaintainer(store, summary.Options{
		VaultName:    cfg.VaultName,
		Period:       periodFromConfig(cfg),
		RecentEvents: cfg.RecentEvents,
	})
	eng := engine.New(store, maintainer, engine.Options{
		FlushThreshold: cfg.FlushThreshold,
		FlushInterval:  time.Duration(cfg.FlushIntervalSecs) * time.Second,
	})

	stage, err := summary.Bootstrap(store, maintainer)
	if err != nil {
		// Degraded startup: without the log directories events would be
		// unpersistable, so logging stops; missing summaries alone still
		// allow logging, repair comes from a later rebuild.
		slog.Error("bootstrap incomplete", "stage", stage, "error", err)
		if stage < summary.DirectoryEnsured {
			eng.SetEnabled(false)
		}
	} else {
		stage = summary.Ready
		if err := maintainer.Rebuild(context.Background()); err != nil {
			slog.Warn("initial summary rebuild failed", "error", err)
		}
	}

	// Notifications
	registry := notify.NewRegistry()
	registry.Register("console:", notify.ConsoleHandler(os.Stdout))
	alertTarget := "console:stdout"
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		handler, err := notify.TelegramHandler(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			slog.Warn("telegram notifier disabled", "error", err)
		} else {
			registry.Register("telegram:", handler)
			alertTarget = fmt.Sprintf("telegram:%d", cfg.Telegram.ChatID)
			slog.Info("telegram notifier registered")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	// Vault watcher
	watcher, err := watch.New(watch.Config{
		VaultPath:    cfg.VaultPath,
		VaultName:    cfg.VaultName,
		Hostname:     hostname,
		EventsFolder: cfg.EventsFolder,
		Debounce:     time.Duration(cfg.WatchDebounceMs) * time.Millisecond,
	}, eng)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	g.Go(func() error {
		return watcher.Run(gctx)
	})

	// Control server
	ctrl := control.NewServer(eng, maintainer, store, stage)
	ctrl.SetNotifier(func(message string) {
		if err := registry.Notify(alertTarget, message); err != nil {
			slog.Warn("notice delivery failed", "target", alertTarget, "error", err)
		}
	})
	if cfg.Control.Enabled {
		httpServer := &http.Server{
			Addr:    cfg.Control.Listen,
			Handler: ctrl,
		}
		g.Go(func() error {
			slog.Info("control server started", "listen", cfg.Control.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("control server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			return httpServer.Shutdown(shutCtx)
		})
	}

	// Scheduler: periodic flush plus the nightly summary rebuild.
	sched := scheduler.New(cfg.FlushSchedule, cfg.RebuildSchedule,
		eng.Flush,
		maintainer.Rebuild,
		func(message string) {
			if err := registry.Notify(alertTarget, message); err != nil {
				slog.Error("alert delivery failed", "target", alertTarget, "error", err)
			}
		})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	slog.Info("vaultscribe started",
		"vault", cfg.VaultPath,
		"events_folder", cfg.EventsFolder,
		"period", cfg.Period,
		"hostname", hostname,
		"stage", stage,
		"pid_file", pidPath,
	)

	eng.Append(types.NewRecord(types.KindPluginLifecycle, "", cfg.VaultName, hostname))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			// In-process reload: the buffer must survive, so the daemon
			// retargets rather than re-execing.
			slog.Info("received SIGHUP, reloading config")
			next, err := config.Load(cfgPath)
			if err != nil {
				slog.Error("reload failed, keeping previous config", "error", err)
				continue
			}
			setupLogging(next)
			eng.UpdateConfig(next.VaultPath, next.EventsFolder)
			// The watcher must follow the store: a stale watch set would
			// observe the store's own writes under the new events folder.
			watcher.Retarget(next.VaultPath, next.EventsFolder)
			if err := sched.Reload(next.FlushSchedule, next.RebuildSchedule); err != nil {
				slog.Error("scheduler reload failed", "error", err)
			}
			reStage, err := summary.Bootstrap(store, maintainer)
			if err != nil {
				slog.Error("re-bootstrap after reload failed", "stage", reStage, "error", err)
				ctrl.SetStage(reStage)
				if reStage < summary.DirectoryEnsured {
					eng.SetEnabled(false)
				}
				continue
			}
			ctrl.SetStage(summary.Ready)
			eng.SetEnabled(true)
			if err := maintainer.Rebuild(context.Background()); err != nil {
				slog.Warn("rebuild after reload failed", "error", err)
			}
			cfg = next
			continue
		}

		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		eng.Append(quitRecord(cfg.VaultName, hostname, sig))
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("background worker error", "error", err)
		}

		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := eng.Close(closeCtx); err != nil {
			var lossErr *engine.DataLossError
			if errors.As(err, &lossErr) {
				slog.Error("shutdown flush failed, events lost",
					"lost", lossErr.Lost, "error", lossErr.Err)
			} else {
				slog.Error("shutdown flush failed", "error", err)
			}
			return err
		}
		return nil
	}
}
