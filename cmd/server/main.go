package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"studycycle/backend/internal/alarm"
	"studycycle/backend/internal/clock"
	"studycycle/backend/internal/config"
	"studycycle/backend/internal/db"
	"studycycle/backend/internal/engine"
	"studycycle/backend/internal/handler"
	"studycycle/backend/internal/logger"
	"studycycle/backend/internal/repository"
	"studycycle/backend/internal/router"
	"studycycle/backend/internal/service"
	"studycycle/backend/internal/store"
	"studycycle/backend/migrations"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogFormat, cfg.LogLevel)

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal("open database", "error", err)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, migrations.Files)
	if err != nil {
		log.Fatal("run migrations", "error", err)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "files", applied)
	}

	userRepo := repository.NewUserRepository(database)
	subjectRepo := repository.NewSubjectRepository(database)
	settingsRepo := repository.NewSettingsRepository(database)
	sessionRepo := repository.NewSessionRepository(database)

	snapshots, err := openStore(cfg, repository.NewSnapshotRepository(database))
	if err != nil {
		log.Fatal("open snapshot store", "driver", cfg.StoreDriver, "error", err)
	}

	authService := service.NewAuthService(userRepo, settingsRepo, cfg.JWTSecret, cfg.TokenTTL)
	subjectService := service.NewSubjectService(subjectRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	sessionService := service.NewSessionService(sessionRepo)
	cycleService := service.NewCycleService(
		subjectService,
		settingsService,
		snapshots,
		service.NewSessionRecorder(sessionRepo),
		alarm.NewLog(log),
		clock.System{},
		service.CycleOptions{
			AutoAdvance:     cfg.AutoAdvance,
			PersistEvery:    cfg.PersistEvery,
			TickInterval:    cfg.TickInterval,
			RecorderRetries: cfg.RecorderRetries,
			Foreground:      cfg.TimerBackend == config.BackendForeground,
		},
		log,
	)

	routes := router.New(authService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Subject:  handler.NewSubjectHandler(subjectService),
		Settings: handler.NewSettingsHandler(settingsService),
		Cycle:    handler.NewCycleHandler(cycleService),
		Session:  handler.NewSessionHandler(sessionService),
	}, cfg.CORSOrigins)

	// Event streams only end when their controller closes, so the cycle
	// service shuts down together with the server instead of after it.
	srv := router.NewServer(":"+cfg.Port, routes, cycleService.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("backend listening", "port", cfg.Port, "store", cfg.StoreDriver, "timer", cfg.TimerBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Waits for the close started by Shutdown before the database goes away.
		cycleService.Close()
		log.Info("backend stopped")
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal("run server", "error", err)
	}
}

func openStore(cfg config.Config, repo *repository.SnapshotRepository) (engine.SnapshotStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDisk:
		disk, err := store.NewDisk(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return disk, nil
	case config.StoreMemory:
		return store.NewMemory(), nil
	default:
		return store.NewSQL(repo), nil
	}
}
