// Package orders управляет созданием и чтением заказов.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
	"github.com/vladislavdragonenkov/order-service/internal/metrics"
)

// ErrInternal оборачивает сбои, не связанные с валидацией (например, коллизию id в хранилище).
var ErrInternal = errors.New("orders: internal error")

// Validator проверяет пользователя и товары заказа до его сохранения.
type Validator interface {
	Validate(ctx context.Context, userID string, items []domain.OrderItem) error
}

// Options задаёт необязательные зависимости Orchestrator.
type Options struct {
	Logger    *log.Entry
	Metrics   *metrics.OrderMetrics
	Publisher domain.OrderEventPublisher
	Clock     func() time.Time
}

// Option настраивает Orchestrator.
type Option func(*Options)

func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithPublisher подключает публикацию события order.created.
// Публикатор вызывается в потоке запроса, поэтому не должен ждать брокер (см. kafka.AsyncPublisher).
func WithPublisher(publisher domain.OrderEventPublisher) Option {
	return func(opts *Options) {
		opts.Publisher = publisher
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Orchestrator проводит заказ через состояния Received → Validating → Accepted/Rejected.
type Orchestrator struct {
	repo      domain.OrderRepository
	validator Validator
	ids       domain.IDGenerator
	publisher domain.OrderEventPublisher
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	now       func() time.Time
}

// NewOrchestrator создаёт оркестратор заказов.
func NewOrchestrator(repo domain.OrderRepository, validator Validator, ids domain.IDGenerator, options ...Option) *Orchestrator {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Orchestrator{
		repo:      repo,
		validator: validator,
		ids:       ids,
		publisher: opts.Publisher,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       clock,
	}
}

// CreateOrder валидирует заказ и сохраняет его со статусом pending.
// При отказе валидации возвращается *domain.ValidationError, хранилище не изменяется.
func (o *Orchestrator) CreateOrder(ctx context.Context, userID string, items []domain.OrderItem) (domain.Order, error) {
	start := time.Now()
	o.metrics.RecordCreateStarted()
	defer func() {
		o.metrics.RecordCreateFinished(time.Since(start))
	}()

	logger := o.logger.WithFields(log.Fields{
		"user_id":     userID,
		"items_count": len(items),
	})
	logger.Debug("order received")

	if err := o.validator.Validate(ctx, userID, items); err != nil {
		if vErr, ok := domain.AsValidationError(err); ok {
			o.metrics.RecordOrderRejected(string(vErr.Kind))
			logger.WithFields(log.Fields{
				"entity":    vErr.Kind,
				"entity_id": vErr.EntityID,
				"reason":    vErr.Message,
			}).Info("order rejected")
			return domain.Order{}, err
		}
		o.metrics.RecordOrderFailed()
		logger.WithError(err).Warn("order validation aborted")
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:        o.ids.NewID(),
		UserID:    userID,
		Items:     copyItems(items),
		Status:    domain.OrderStatusPending,
		CreatedAt: o.now().UTC(),
	}

	if err := o.repo.Create(order); err != nil {
		o.metrics.RecordOrderFailed()
		logger.WithError(err).WithField("order_id", order.ID).Error("failed to store order")
		return domain.Order{}, fmt.Errorf("%w: store order %s: %v", ErrInternal, order.ID, err)
	}

	o.metrics.RecordOrderCreated()
	logger.WithField("order_id", order.ID).Info("order accepted")

	o.publishCreated(order)
	return order.Clone(), nil
}

// GetOrder возвращает заказ по id или domain.ErrOrderNotFound.
func (o *Orchestrator) GetOrder(id string) (domain.Order, error) {
	return o.repo.Get(id)
}

// ListOrders возвращает все заказы в порядке создания.
func (o *Orchestrator) ListOrders() ([]domain.Order, error) {
	return o.repo.List()
}

// publishCreated передаёт событие публикатору. Результат доставки учитывает сам публикатор,
// здесь логируется только отказ принять событие.
func (o *Orchestrator) publishCreated(order domain.Order) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.PublishOrderCreated(order); err != nil {
		o.logger.WithError(err).WithField("order_id", order.ID).Warn("order.created not handed to publisher")
	}
}

func copyItems(items []domain.OrderItem) []domain.OrderItem {
	if items == nil {
		return []domain.OrderItem{}
	}
	out := make([]domain.OrderItem, len(items))
	copy(out, items)
	return out
}
