package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"dealbot/internal/adapters/telegram"
	"dealbot/internal/affiliate"
	"dealbot/internal/alerts"
	"dealbot/internal/bot"
	"dealbot/internal/broadcast"
	"dealbot/internal/cart"
	"dealbot/internal/config"
	"dealbot/internal/scheduler"
	"dealbot/internal/storage"
	"dealbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
	})
	defer logSvc.Close()
	mgr.SetLogger(log.With(logx.String("svc", "config")))

	busyTimeout, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	store, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busyTimeout},
		log.With(logx.String("svc", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	pollTimeout, _ := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	sendTimeout, _ := config.ParseDurationField("telegram.send_timeout", cfg.Telegram.SendTimeout)
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
	}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram adapter: %w", err)
	}

	affTimeout, _ := config.ParseDurationField("affiliate.timeout", cfg.Affiliate.Timeout)
	aff := affiliate.New(affiliate.Config{
		AppKey:     cfg.Affiliate.AppKey,
		AppSecret:  cfg.Affiliate.AppSecret,
		TrackingID: cfg.Affiliate.TrackingID,
		Timeout:    affTimeout,
	}, log.With(logx.String("svc", "affiliate")))

	carts := cart.New(store, aff, log.With(logx.String("svc", "cart")))
	alertSvc := alerts.New(store, log.With(logx.String("svc", "alerts")))

	maxPerSecond, retryAttempts, retryDelay, batchSize, err := cfg.BroadcastValues()
	if err != nil {
		return err
	}
	bcast, err := broadcast.New(broadcast.Config{
		BatchSize: batchSize,
		Queue: broadcast.QueueConfig{
			MaxPerSecond:  maxPerSecond,
			RetryAttempts: retryAttempts,
			RetryDelay:    retryDelay,
		},
	}, adapter, bot.StoreBridge{Store: store}, log.With(logx.String("svc", "broadcast")))
	if err != nil {
		return err
	}

	inactiveAfter, _ := config.ParseDurationField("scheduler.inactive_after", cfg.Scheduler.InactiveAfter)
	sched := scheduler.New(scheduler.Config{
		CartCheckSpec: cfg.Scheduler.CartCheckSpec,
		CleanupSpec:   cfg.Scheduler.CleanupSpec,
		InactiveAfter: inactiveAfter,
	}, store, carts, adapter, log.With(logx.String("svc", "scheduler")))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	svc := bot.New(bot.Config{
		AdminUserIDs:    cfg.Telegram.AdminUserIDs,
		DefaultLanguage: cfg.DefaultLanguage,
	}, adapter, store, bcast, aff, carts, alertSvc, log.With(logx.String("svc", "bot")))

	// Follow config changes for log level adjustments at runtime.
	go func() {
		ch := mgr.Subscribe(1)
		defer mgr.Unsubscribe(ch)
		go func() { _ = mgr.Watch(ctx) }()
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-ch:
				if !ok {
					return
				}
				logSvc.Apply(logx.Config{
					Level:   next.Logging.Level,
					Console: next.Logging.Console,
					File:    logx.FileConfig{Enabled: next.Logging.File.Enabled, Path: next.Logging.File.Path},
				})
				log.Info("logging config reapplied", logx.String("level", next.Logging.Level))
			}
		}
	}()

	// Tell systemd we are up (no-op outside a systemd unit).
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	log.Info("dealbot started")

	err = svc.Run(ctx)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	_ = adapter.Stop(stopCtx)
	log.Info("dealbot stopped")
	return err
}
