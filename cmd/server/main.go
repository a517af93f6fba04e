package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rahmatrdn/go-ora-telemetry/internal/config"
	"github.com/rahmatrdn/go-ora-telemetry/internal/crypt"
	"github.com/rahmatrdn/go-ora-telemetry/internal/http/handler"
	"github.com/rahmatrdn/go-ora-telemetry/internal/queue"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/oracle"
	"github.com/rahmatrdn/go-ora-telemetry/internal/repository/sqlite"
	"github.com/rahmatrdn/go-ora-telemetry/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	db, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Fatal("open telemetry store", zap.Error(err))
	}

	cipher, err := crypt.New(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("init cipher", zap.Error(err))
	}

	publisher, err := queue.NewPublisher(cfg.AMQPUrl, cfg.AMQPExchange)
	if err != nil {
		logger.Fatal("connect rabbitmq", zap.Error(err))
	}
	defer publisher.Close()

	client := oracle.NewClient()
	defer client.Close()

	connRepo := sqlite.NewConnectionRepository(db)
	settingsRepo := sqlite.NewSettingsRepository(db)
	logRepo := sqlite.NewLogRepository(db)
	recordRepo := sqlite.NewRecordRepository(db)
	summaryRepo := sqlite.NewSummaryRepository(db)

	connections := usecase.NewConnectionUsecase(connRepo, client, cipher, logger)
	collector := usecase.NewCollectorUsecase(connections, settingsRepo, logRepo, recordRepo, summaryRepo, client, publisher, logger)
	history := usecase.NewHistoryUsecase(connections, recordRepo, client, logger)

	scheduler, err := usecase.NewScheduler(collector, logger)
	if err != nil {
		logger.Fatal("init scheduler", zap.Error(err))
	}
	defer scheduler.Shutdown()

	resumeSchedules(logger, connections, collector, scheduler)

	app := fiber.New(fiber.Config{AppName: "go-ora-telemetry"})
	handler.NewTelemetryHandler(connections, collector, history, scheduler).Register(app)

	go func() {
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			logger.Fatal("http listen", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	_ = app.Shutdown()
}

// resumeSchedules restarts scheduled collection for every connection whose
// settings have it enabled, so a process restart does not silently stop
// telemetry.
func resumeSchedules(logger *zap.Logger, connections *usecase.ConnectionUsecase, collector *usecase.CollectorUsecase, scheduler *usecase.Scheduler) {
	ctx := context.Background()
	conns, err := connections.GetAllConnections(ctx)
	if err != nil {
		logger.Warn("schedule resume: listing connections failed", zap.Error(err))
		return
	}
	for _, conn := range conns {
		settings, err := collector.Settings(ctx, conn.ID)
		if err != nil {
			logger.Warn("schedule resume: settings lookup failed",
				zap.Int64("connection_id", conn.ID), zap.Error(err))
			continue
		}
		if !settings.Enabled {
			continue
		}
		if err := scheduler.Start(ctx, conn.ID); err != nil {
			logger.Warn("schedule resume failed",
				zap.Int64("connection_id", conn.ID), zap.Error(err))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
