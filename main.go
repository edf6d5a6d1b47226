package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/engdrill/internal/batching"
	"github.com/example/engdrill/internal/bot"
	"github.com/example/engdrill/internal/catalog"
	"github.com/example/engdrill/internal/config"
	"github.com/example/engdrill/internal/database"
	"github.com/example/engdrill/internal/logger"
	"github.com/example/engdrill/internal/practice"
	"github.com/example/engdrill/internal/scheduler"
	"github.com/example/engdrill/internal/selection"
)

func main() {
	cfg := config.Load()

	appLog, err := logger.New(cfg.App.LogFilePath, cfg.IsProduction())
	if err != nil {
		// Nothing else to report through yet.
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		appLog.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	policy := database.DefaultRetryPolicy()
	catalogRepo := database.NewCatalogRepository(db)
	records := database.NewRetryingRecordStore(database.NewReviewRecordRepository(db), policy)
	settings := database.NewCachedSettings(
		database.NewRetryingSettings(database.NewSettingsRepository(db, cfg.Catalog.DefaultLevel), policy),
		cfg.App.SettingsCacheTTL)
	index := database.NewRetryingPracticeIndex(database.NewPracticeIndexRepository(db), policy)

	if cfg.Catalog.Path != "" {
		importCfg := catalog.DefaultImportConfig()
		importCfg.FilePath = cfg.Catalog.Path
		importCfg.DefaultLevel = cfg.Catalog.DefaultLevel
		res, err := catalog.Import(ctx, catalogRepo, importCfg)
		if err != nil {
			appLog.Fatal("failed to import catalog", "path", cfg.Catalog.Path, "error", err)
		}
		appLog.Info("catalog imported",
			"path", cfg.Catalog.Path,
			"processed", res.TotalProcessed,
			"imported", res.Imported,
			"skipped", res.Skipped)
		for _, e := range res.Errors {
			appLog.Warn("catalog row skipped", "reason", e)
		}
	}

	seed := cfg.Selection.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	svc := practice.NewService(records, database.NewRetryingCatalog(catalogRepo, policy), settings, index, practice.Options{
		Rand: selection.NewRand(seed),
		Batch: batching.BatchConfig{
			Window:       cfg.Batch.Window,
			MaxBatchSize: cfg.Batch.MaxBatchSize,
			FetchTimeout: cfg.Batch.FetchTimeout,
		},
		ExclusionSize: cfg.Selection.ExclusionSize,
		Logger:        appLog,
	})

	b, err := bot.New(cfg.Telegram.Token, svc,
		func(userID int64) bot.Cursor { return svc.NewCursor(userID) },
		settings, bot.DefaultConfig(), appLog)
	if err != nil {
		appLog.Fatal("failed to create bot", "error", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(settings, svc, b, scheduler.Config{
			StartHour: cfg.Scheduler.NotificationStartHour,
			EndHour:   cfg.Scheduler.NotificationEndHour,
		}, appLog)
		if err := sched.Start(ctx); err != nil {
			appLog.Fatal("failed to start scheduler", "error", err)
		}
		b.SetReminderChecker(sched)
	}

	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		appLog.Info("received signal", "signal", sig.String())
		cancel()

		if sched != nil {
			sched.Stop()
		}
		b.Stop()

		close(done)
	}()

	appLog.Info("bot started, press Ctrl+C to stop")
	go func() {
		if err := b.Start(ctx); err != nil && err != context.Canceled {
			appLog.Error("bot error", "error", err)
		}
	}()

	<-done
	appLog.Info("bot stopped successfully")
}
