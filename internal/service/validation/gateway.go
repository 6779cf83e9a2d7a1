package validation

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
	"github.com/vladislavdragonenkov/order-service/internal/metrics"
)

const (
	defaultCheckTimeout = 5 * time.Second

	msgUserCheckTimedOut    = "user check timed out"
	msgProductCheckTimedOut = "product check timed out"
)

// Options задаёт параметры Gateway.
type Options struct {
	Logger       *log.Entry
	Metrics      *metrics.OrderMetrics
	CheckTimeout time.Duration
}

// Option настраивает Gateway.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithMetrics подключает метрики проверок.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithCheckTimeout ограничивает время одной проверки. 0 отключает ограничение.
func WithCheckTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.CheckTimeout = timeout
	}
}

// Gateway последовательно проверяет пользователя и товары заказа.
// Проверки выполняются строго по порядку и останавливаются на первом отказе.
type Gateway struct {
	users        domain.UserDirectory
	products     domain.ProductCatalog
	logger       *log.Entry
	metrics      *metrics.OrderMetrics
	checkTimeout time.Duration
}

// NewGateway создаёт Gateway поверх клиентов user-service и inventory-service.
func NewGateway(users domain.UserDirectory, products domain.ProductCatalog, options ...Option) *Gateway {
	opts := Options{CheckTimeout: defaultCheckTimeout}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "validation-gateway")
	}
	if opts.CheckTimeout < 0 {
		opts.CheckTimeout = 0
	}

	return &Gateway{
		users:        users,
		products:     products,
		logger:       logger,
		metrics:      opts.Metrics,
		checkTimeout: opts.CheckTimeout,
	}
}

// Validate проверяет существование пользователя, затем каждого товара в порядке items.
// Возвращает *domain.ValidationError при отказе проверки или ошибку контекста, если
// запрос был отменён; в последнем случае оставшиеся проверки не выполняются.
func (g *Gateway) Validate(ctx context.Context, userID string, items []domain.OrderItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := g.runCheck(ctx, domain.EntityUser, userID, func(checkCtx context.Context) error {
		return g.users.CheckUser(checkCtx, userID)
	})
	if err != nil {
		return err
	}

	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		productID := item.ProductID
		err := g.runCheck(ctx, domain.EntityProduct, productID, func(checkCtx context.Context) error {
			return g.products.CheckProduct(checkCtx, productID)
		})
		if err != nil {
			g.logger.WithFields(log.Fields{
				"user_id":    userID,
				"product_id": productID,
				"item_index": idx,
				"skipped":    len(items) - idx - 1,
			}).Debug("product check failed, remaining items skipped")
			return err
		}
	}

	return nil
}

func (g *Gateway) runCheck(ctx context.Context, kind domain.EntityKind, id string, check func(context.Context) error) error {
	checkCtx := ctx
	if g.checkTimeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, g.checkTimeout)
		defer cancel()
	}

	start := time.Now()
	err := check(checkCtx)
	duration := time.Since(start)
	g.metrics.RecordCheck(string(kind), err == nil, duration)

	if err == nil {
		g.logger.WithFields(log.Fields{
			"entity":      kind,
			"entity_id":   id,
			"duration_ms": duration.Milliseconds(),
		}).Debug("existence check passed")
		return nil
	}

	// Отмена внешнего запроса не считается отказом валидации.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	vErr := toValidationError(kind, id, err)
	g.logger.WithError(err).WithFields(log.Fields{
		"entity":    kind,
		"entity_id": id,
	}).Info("existence check failed")
	return vErr
}

func toValidationError(kind domain.EntityKind, id string, err error) *domain.ValidationError {
	if vErr, ok := domain.AsValidationError(err); ok {
		return vErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if kind == domain.EntityUser {
			return domain.NewUserValidationError(id, msgUserCheckTimedOut, err)
		}
		return domain.NewProductValidationError(id, msgProductCheckTimedOut, err)
	}
	return &domain.ValidationError{Kind: kind, EntityID: id, Message: err.Error(), Cause: err}
}
