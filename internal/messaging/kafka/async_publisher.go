package kafka

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/order-service/internal/domain"
	"github.com/vladislavdragonenkov/order-service/internal/metrics"
)

const (
	defaultQueueSize    = 1024
	defaultDrainTimeout = 5 * time.Second
)

var (
	// ErrQueueFull возвращается, когда очередь событий заполнена; событие отброшено.
	ErrQueueFull = errors.New("kafka: event queue is full")
	// ErrPublisherClosed возвращается после Close.
	ErrPublisherClosed = errors.New("kafka: publisher is closed")
	// ErrDrainTimeout возвращается из Close, если очередь не опустела за DrainTimeout.
	ErrDrainTimeout = errors.New("kafka: pending events not drained before timeout")
)

// AsyncOptions задаёт параметры AsyncPublisher.
type AsyncOptions struct {
	QueueSize    int
	DrainTimeout time.Duration
	Logger       *log.Entry
	Metrics      *metrics.OrderMetrics
}

// AsyncOption настраивает AsyncPublisher.
type AsyncOption func(*AsyncOptions)

func WithQueueSize(size int) AsyncOption {
	return func(opts *AsyncOptions) {
		opts.QueueSize = size
	}
}

func WithDrainTimeout(timeout time.Duration) AsyncOption {
	return func(opts *AsyncOptions) {
		opts.DrainTimeout = timeout
	}
}

func WithAsyncLogger(logger *log.Entry) AsyncOption {
	return func(opts *AsyncOptions) {
		opts.Logger = logger
	}
}

func WithAsyncMetrics(m *metrics.OrderMetrics) AsyncOption {
	return func(opts *AsyncOptions) {
		opts.Metrics = m
	}
}

// AsyncPublisher ставит события в ограниченную очередь и отправляет их
// в фоне через next. PublishOrderCreated никогда не ждёт брокер:
// при заполненной очереди событие отбрасывается и учитывается в метриках.
type AsyncPublisher struct {
	next         domain.OrderEventPublisher
	queue        chan domain.Order
	done         chan struct{}
	drainTimeout time.Duration
	logger       *log.Entry
	metrics      *metrics.OrderMetrics

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher запускает фоновую отправку. Остановка через Close.
func NewAsyncPublisher(next domain.OrderEventPublisher, options ...AsyncOption) *AsyncPublisher {
	opts := AsyncOptions{QueueSize: defaultQueueSize, DrainTimeout: defaultDrainTimeout}
	for _, option := range options {
		option(&opts)
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = defaultDrainTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", "kafka-async-publisher")
	}

	p := &AsyncPublisher{
		next:         next,
		queue:        make(chan domain.Order, opts.QueueSize),
		done:         make(chan struct{}),
		drainTimeout: opts.DrainTimeout,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	go p.run()
	return p
}

// PublishOrderCreated ставит событие в очередь без ожидания отправки.
func (p *AsyncPublisher) PublishOrderCreated(order domain.Order) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.queue <- order.Clone():
		return nil
	default:
		p.metrics.RecordEventDropped()
		return ErrQueueFull
	}
}

// Pending возвращает число событий, ожидающих отправки.
func (p *AsyncPublisher) Pending() int {
	return len(p.queue)
}

func (p *AsyncPublisher) run() {
	defer close(p.done)

	for order := range p.queue {
		err := p.next.PublishOrderCreated(order)
		p.metrics.RecordEventPublished(err == nil)
		if err != nil {
			p.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order.created")
		}
	}
}

// Close перестаёт принимать события и ждёт отправки очереди не дольше DrainTimeout.
// Повторный вызов ничего не делает.
func (p *AsyncPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	timer := time.NewTimer(p.drainTimeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
		p.logger.WithField("pending", len(p.queue)).Warn("order events not drained before shutdown")
		return ErrDrainTimeout
	}
}

var _ domain.OrderEventPublisher = (*AsyncPublisher)(nil)
