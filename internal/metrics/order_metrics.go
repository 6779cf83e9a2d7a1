package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// OrderMetrics содержит метрики создания заказов и проверок существования.
// Все методы безопасны для nil-получателя: метрики можно не подключать в тестах.
type OrderMetrics struct {
	// Счётчики заказов
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec
	ordersFailed   prometheus.Counter

	// Время обработки запроса на создание
	createDuration prometheus.Histogram

	// Проверки существования во внешних сервисах
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec

	// Публикация событий
	eventsPublished *prometheus.CounterVec

	// Gauge для создаваемых в данный момент заказов
	inFlight prometheus.Gauge
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "oms_orders_created_total",
			Help: "Total number of orders accepted and stored",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_orders_rejected_total",
			Help: "Total number of order requests rejected by validation",
		}, []string{"kind"}),
		ordersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "oms_orders_failed_total",
			Help: "Total number of order requests failed for non-validation reasons",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "oms_order_create_duration_seconds",
			Help:    "Duration of order creation including validation",
			Buckets: prometheus.DefBuckets,
		}),
		checksTotal: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_existence_checks_total",
			Help: "Total number of existence checks against remote registries",
		}, []string{"entity", "result"}),
		checkDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "oms_existence_check_duration_seconds",
			Help:    "Duration of individual existence checks in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"entity"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "oms_order_events_published_total",
			Help: "Total number of order events grouped by delivery result",
		}, []string{"result"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "oms_order_creations_in_flight",
			Help: "Number of order creations currently being validated",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCreateStarted увеличивает количество заказов в обработке.
func (m *OrderMetrics) RecordCreateStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordCreateFinished уменьшает количество заказов в обработке и фиксирует длительность.
func (m *OrderMetrics) RecordCreateFinished(duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.createDuration.Observe(duration.Seconds())
}

// RecordOrderCreated увеличивает счётчик принятых заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

// RecordOrderRejected увеличивает счётчик отказов валидации по типу сущности.
func (m *OrderMetrics) RecordOrderRejected(kind string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(kind).Inc()
}

// RecordOrderFailed увеличивает счётчик прочих ошибок создания.
func (m *OrderMetrics) RecordOrderFailed() {
	if m == nil {
		return
	}
	m.ordersFailed.Inc()
}

// RecordCheck фиксирует результат и длительность одной проверки существования.
func (m *OrderMetrics) RecordCheck(entity string, ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.checksTotal.WithLabelValues(entity, result).Inc()
	m.checkDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordEventPublished фиксирует результат публикации события.
func (m *OrderMetrics) RecordEventPublished(ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}

// RecordEventDropped фиксирует событие, отброшенное из-за переполнения очереди.
func (m *OrderMetrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(ResultDropped).Inc()
}
