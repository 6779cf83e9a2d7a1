package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/app"
	"github.com/vladislavdragonenkov/order-service/internal/version"
)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level string) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
	if level == "" {
		return nil
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(parsed)
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("failed to load .env")
	}

	if err := setupLogger(os.Getenv(envLogLevel)); err != nil {
		log.WithError(err).Warn("invalid log level, using info")
	}

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(startupFields(cfg)).Info("запускаем OrderService")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("OrderService остановлен")
}

// startupFields описывает конфигурацию и сборку для стартового лога.
func startupFields(cfg app.Config) log.Fields {
	v, commit, date := version.Info()
	return log.Fields{
		"http_addr":     cfg.HTTPAddr,
		"grpc_addr":     cfg.GRPCAddr,
		"metrics_addr":  cfg.MetricsAddr,
		"user_service":  cfg.UserServiceURL,
		"inventory_svc": cfg.InventoryServiceURL,
		"id_strategy":   cfg.IDStrategy,
		"kafka_brokers": cfg.KafkaBrokers,
		"version":       v,
		"commit":        commit,
		"build_date":    date,
	}
}
