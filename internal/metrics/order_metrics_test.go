package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewOrderMetrics(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewOrderMetricsWithRegisterer should not return nil")
	}
	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.ordersRejected == nil {
		t.Error("ordersRejected counter vec should not be nil")
	}
	if metrics.ordersFailed == nil {
		t.Error("ordersFailed counter should not be nil")
	}
	if metrics.createDuration == nil {
		t.Error("createDuration histogram should not be nil")
	}
	if metrics.checksTotal == nil {
		t.Error("checksTotal counter vec should not be nil")
	}
	if metrics.checkDuration == nil {
		t.Error("checkDuration histogram vec should not be nil")
	}
	if metrics.eventsPublished == nil {
		t.Error("eventsPublished counter vec should not be nil")
	}
	if metrics.inFlight == nil {
		t.Error("inFlight gauge should not be nil")
	}
}

func TestNewOrderMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := testutil.ToFloat64(first.ordersCreated); got != 2 {
		t.Fatalf("expected shared counter value 2, got %f", got)
	}
}

func TestRecordOrderCreated(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderCreated()

	metric := &dto.Metric{}
	if err := metrics.ordersCreated.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1.0 {
		t.Errorf("expected counter value 1.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordOrderRejected(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderRejected("user")
	metrics.RecordOrderRejected("product")
	metrics.RecordOrderRejected("product")

	if got := testutil.ToFloat64(metrics.ordersRejected.WithLabelValues("user")); got != 1 {
		t.Errorf("expected 1 user rejection, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.ordersRejected.WithLabelValues("product")); got != 2 {
		t.Errorf("expected 2 product rejections, got %f", got)
	}
}

func TestRecordCreateLifecycle(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCreateStarted()
	metrics.RecordCreateStarted()
	if got := testutil.ToFloat64(metrics.inFlight); got != 2 {
		t.Fatalf("expected 2 in flight, got %f", got)
	}

	metrics.RecordCreateFinished(150 * time.Millisecond)
	if got := testutil.ToFloat64(metrics.inFlight); got != 1 {
		t.Fatalf("expected 1 in flight, got %f", got)
	}

	metric := &dto.Metric{}
	if err := metrics.createDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 1 {
		t.Errorf("expected 1 sample, got %d", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() < 0.15 {
		t.Errorf("expected sample sum >= 0.15, got %f", metric.Histogram.GetSampleSum())
	}
}

func TestRecordCheck(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordCheck("user", true, 10*time.Millisecond)
	metrics.RecordCheck("product", true, 5*time.Millisecond)
	metrics.RecordCheck("product", false, 5*time.Millisecond)

	if got := testutil.ToFloat64(metrics.checksTotal.WithLabelValues("user", ResultOK)); got != 1 {
		t.Errorf("expected 1 ok user check, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.checksTotal.WithLabelValues("product", ResultOK)); got != 1 {
		t.Errorf("expected 1 ok product check, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.checksTotal.WithLabelValues("product", ResultFailed)); got != 1 {
		t.Errorf("expected 1 failed product check, got %f", got)
	}
	if got := testutil.CollectAndCount(metrics.checkDuration); got != 2 {
		t.Errorf("expected 2 duration series, got %d", got)
	}
}

func TestRecordEventPublished(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordEventPublished(true)
	metrics.RecordEventPublished(false)
	metrics.RecordEventDropped()
	metrics.RecordOrderFailed()

	if got := testutil.ToFloat64(metrics.eventsPublished.WithLabelValues(ResultOK)); got != 1 {
		t.Errorf("expected 1 published event, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.eventsPublished.WithLabelValues(ResultFailed)); got != 1 {
		t.Errorf("expected 1 failed event, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.eventsPublished.WithLabelValues(ResultDropped)); got != 1 {
		t.Errorf("expected 1 dropped event, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.ordersFailed); got != 1 {
		t.Errorf("expected 1 failed order, got %f", got)
	}
}

func TestNilOrderMetricsIsSafe(_ *testing.T) {
	var metrics *OrderMetrics

	// Не должно паниковать
	metrics.RecordCreateStarted()
	metrics.RecordCreateFinished(time.Millisecond)
	metrics.RecordOrderCreated()
	metrics.RecordOrderRejected("user")
	metrics.RecordOrderFailed()
	metrics.RecordCheck("user", true, time.Millisecond)
	metrics.RecordEventPublished(true)
	metrics.RecordEventDropped()
}

func TestHTTPMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)

	metrics.ObserveRequest("POST", "/api/v1/orders", 201, 20*time.Millisecond)
	metrics.ObserveRequest("POST", "/api/v1/orders", 400, 10*time.Millisecond)

	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("POST", "/api/v1/orders", "201")); got != 1 {
		t.Errorf("expected 1 created request, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.requestsTotal.WithLabelValues("POST", "/api/v1/orders", "400")); got != 1 {
		t.Errorf("expected 1 rejected request, got %f", got)
	}

	var nilMetrics *HTTPMetrics
	nilMetrics.ObserveRequest("GET", "/", 200, time.Millisecond)
}
