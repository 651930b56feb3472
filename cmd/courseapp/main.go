package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tumme/course-system/internal/api"
	"github.com/tumme/course-system/internal/api/handler"
	"github.com/tumme/course-system/internal/api/metrics"
	"github.com/tumme/course-system/internal/core/ports"
	"github.com/tumme/course-system/internal/core/service"
	mongostore "github.com/tumme/course-system/internal/infrastructure/db/mongo"
	redisstore "github.com/tumme/course-system/internal/infrastructure/db/redis"
	"github.com/tumme/course-system/internal/infrastructure/hasher"
	badgerstore "github.com/tumme/course-system/internal/infrastructure/session/badger"
	"github.com/tumme/course-system/internal/pkg/config"
	"github.com/tumme/course-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "courseapp:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:    cfg.LogLevel,
		Pretty:   cfg.LogPretty,
		Service:  "courseapp",
		DeviceID: cfg.Session.DeviceID,
	})

	// --- Record store ---
	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "courseapp",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	checks := map[string]handler.Check{
		"mongodb": func(ctx context.Context) error { return mongostore.Ping(ctx, client) },
	}

	// --- Session store ---
	store, closeStore, err := openSessionStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Services ---
	users := mongostore.NewUserRepository(db)
	courses := mongostore.NewCourseRepository(db)
	subs := mongostore.NewSubscriptionRepository(db)

	manager := service.NewSessionManager(
		users, store, hasher.NewBcrypt(cfg.BcryptCost),
		logger.Component("session"),
		service.SessionOptions{
			Timeout:       cfg.Session.Timeout,
			SweepInterval: cfg.Session.SweepInterval,
		},
	)
	states, unsubscribe := manager.Subscribe()
	defer unsubscribe()

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start session manager: %w", err)
	}
	defer manager.Close()

	router := api.NewRouter(api.Deps{
		Auth:     manager,
		Courses:  service.NewCourseService(users, courses, subs, logger.Component("courses")),
		Grades:   service.NewGradeService(users, courses, subs, logger.Component("grades")),
		Profiles: service.NewProfileService(users),
		Checks:   checks,
		Logger:   logger.Component("http"),
	})
	router.Debug = !cfg.IsProduction()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case s, ok := <-states:
				if !ok {
					return nil
				}
				metrics.ObserveAuthState(s)
				log.Info().Str("state", string(s.Status)).Msg("auth state changed")
			}
		}
	})

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return router.Shutdown(sctx)
	})

	return g.Wait()
}

// openSessionStore builds the configured session backend and registers its
// readiness check.
func openSessionStore(
	ctx context.Context,
	cfg *config.Config,
	log zerolog.Logger,
	checks map[string]handler.Check,
) (ports.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return redisstore.NewSessionStore(rdb, cfg.Session.DeviceID), func() { _ = rdb.Close() }, nil

	default:
		bdb, err := badgerstore.Open(badgerstore.Config{
			Path:       cfg.Session.Path,
			InMemory:   cfg.Session.InMemory,
			SyncWrites: true,
			Logger:     &log,
		})
		if err != nil {
			return nil, nil, err
		}
		checks["session_store"] = func(context.Context) error {
			if bdb.IsClosed() {
				return errors.New("session database closed")
			}
			return nil
		}
		return badgerstore.NewStore(bdb, cfg.Session.DeviceID), func() { _ = bdb.Close() }, nil
	}
}
