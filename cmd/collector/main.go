// cmd/collector/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yout0703/web-collector/internal/api"
	"github.com/yout0703/web-collector/internal/cluster"
	"github.com/yout0703/web-collector/internal/common/config"
	"github.com/yout0703/web-collector/internal/common/database"
	"github.com/yout0703/web-collector/internal/common/logger"
	"github.com/yout0703/web-collector/internal/common/observability"
	"github.com/yout0703/web-collector/internal/extractor"
	"github.com/yout0703/web-collector/internal/similarity"
	"github.com/yout0703/web-collector/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting web-collector",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- PostgreSQL with retry ---
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()

	err = retryWithBackoff(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	templateStore := store.NewPostgresStore(pg.GetDB(), log)
	if err := templateStore.InitSchema(context.Background()); err != nil {
		zapLog.Fatal("schema init failed", zap.Error(err))
	}

	// --- Classification lock: redis when configured, mutex otherwise ---
	var locker cluster.Locker = cluster.NewMutexLocker()
	if cfg.Database.Redis.Address != "" {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		defer rdb.Close()

		err = retryWithBackoff(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return rdb.Ping(ctx)
		}, 5, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis unreachable", zap.Error(err))
		}

		locker = cluster.NewRedisLocker(rdb.GetClient(), "", 0)
		zapLog.Info("using redis classification lock")
	}

	clusterer := cluster.New(
		templateStore,
		similarity.NewScorer(),
		locker,
		cfg.Similarity.Threshold,
		log,
	)
	ext := extractor.New(cfg.Extractor, log)

	// --- Daily cleanup of stale unclassified records ---
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	if cfg.Cleanup.Days > 0 {
		go func() {
			ticker := time.NewTicker(24 * time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-cleanupCtx.Done():
					return
				case <-ticker.C:
					n, err := clusterer.CleanupOldRecords(cleanupCtx, cfg.Cleanup.Days)
					if err != nil {
						zapLog.Error("cleanup failed", zap.Error(err))
						continue
					}
					zapLog.Info("cleanup finished", zap.Int64("removed", n))
				}
			}
		}()
	}

	router := api.NewRouter(clusterer, ext, obs, log)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		zapLog.Info("http server listening", zap.String("addr", cfg.HTTP.Addr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
	zapLog.Info("stopped")
}
