package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/order-service/internal/health"
	"github.com/vladislavdragonenkov/order-service/internal/idgen"
	"github.com/vladislavdragonenkov/order-service/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/order-service/internal/metrics"
	"github.com/vladislavdragonenkov/order-service/internal/service/inventory"
	"github.com/vladislavdragonenkov/order-service/internal/service/users"
	"github.com/vladislavdragonenkov/order-service/internal/storage/memory"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Repo      domain.OrderRepository
	Users     domain.UserDirectory
	Products  domain.ProductCatalog
	IDs       domain.IDGenerator
	Publisher domain.OrderEventPublisher

	Metrics     *metrics.OrderMetrics
	HTTPMetrics *metrics.HTTPMetrics
	Logger      *log.Entry

	CheckTimeout time.Duration

	kafkaProducer *kafka.Producer
	eventQueue    *kafka.AsyncPublisher
}

type pinger interface {
	Ping(ctx context.Context) error
}

// initRuntimeDependencies собирает клиенты справочных сервисов, хранилище, генератор id и Kafka.
func initRuntimeDependencies(cfg Config, registerer prometheus.Registerer, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	httpClient := &http.Client{Timeout: httpClientTimeout(cfg)}

	userClient, err := users.NewClient(cfg.UserServiceURL, httpClient, logger.WithField("component", "user-client"))
	if err != nil {
		return nil, fmt.Errorf("user service client: %w", err)
	}
	inventoryClient, err := inventory.NewClient(cfg.InventoryServiceURL, httpClient, logger.WithField("component", "inventory-client"))
	if err != nil {
		return nil, fmt.Errorf("inventory service client: %w", err)
	}

	ids, err := idgen.New(cfg.IDStrategy, cfg.IDPrefix)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Repo:         memory.NewOrderRepository(),
		Users:        userClient,
		Products:     inventoryClient,
		IDs:          ids,
		Metrics:      metrics.NewOrderMetricsWithRegisterer(registerer),
		HTTPMetrics:  metrics.NewHTTPMetrics(registerer),
		Logger:       logger,
		CheckTimeout: cfg.CheckTimeout,
	}

	// Kafka опциональна: без брокеров или при ошибке подключения сервис работает без событий.
	producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	if producer != nil {
		deps.kafkaProducer = producer
		deps.eventQueue = kafka.NewAsyncPublisher(producer,
			kafka.WithAsyncLogger(logger.WithField("component", "kafka-async-publisher")),
			kafka.WithAsyncMetrics(deps.Metrics),
		)
		deps.Publisher = deps.eventQueue
	}

	return deps, nil
}

// registerHealthCheckers добавляет проверки справочных сервисов в readiness.
func (d *Dependencies) registerHealthCheckers(h *healthcheck.Handler) {
	if p, ok := d.Users.(pinger); ok {
		h.RegisterChecker("user-service", healthcheck.NewSimpleChecker("user-service", p.Ping))
	}
	if p, ok := d.Products.(pinger); ok {
		h.RegisterChecker("inventory-service", healthcheck.NewSimpleChecker("inventory-service", p.Ping))
	}
}

// Close дожидается отправки очереди событий и освобождает внешние ресурсы.
func (d *Dependencies) Close() {
	if d.eventQueue != nil {
		if err := d.eventQueue.Close(); err != nil {
			d.Logger.WithError(err).Warn("order event queue closed with pending events")
		}
	}
	closeKafka(d.kafkaProducer, d.Logger)
}

// httpClientTimeout задаёт верхнюю границу на запрос к справочному сервису
// с запасом над таймаутом одной проверки. CheckTimeout == 0 снимает и эту границу:
// запрос ограничен только контекстом входящего HTTP-запроса.
func httpClientTimeout(cfg Config) time.Duration {
	if cfg.CheckTimeout <= 0 {
		return 0
	}
	return cfg.CheckTimeout + time.Second
}
