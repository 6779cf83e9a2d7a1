package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/order-service/internal/health"
	"github.com/vladislavdragonenkov/order-service/internal/service/httpapi"
	"github.com/vladislavdragonenkov/order-service/internal/version"
)

const serviceName = "order-service"

// Run поднимает HTTP API, gRPC health и сервер метрик и блокируется до отмены ctx
// или падения одного из них.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	deps, err := initRuntimeDependencies(cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	orchestrator := createOrchestrator(deps)

	healthHandler := healthcheck.NewHandler(serviceName, version.GetVersion())
	deps.registerHealthCheckers(healthHandler)

	apiSrv := &http.Server{
		Handler: httpapi.NewRouter(httpapi.RouterConfig{
			Orders:  orchestrator,
			Health:  healthHandler,
			Metrics: deps.HTTPMetrics,
			Logger:  logger.WithField("layer", "http"),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := newMetricsServer(healthHandler)
	grpcServer, grpcHealth := newGRPCServer(logger.WithField("layer", "grpc"))

	listeners, err := listenAll(cfg.HTTPAddr, cfg.GRPCAddr, cfg.MetricsAddr)
	if err != nil {
		return err
	}
	apiLis, grpcLis, metricsLis := listeners[0], listeners[1], listeners[2]

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("HTTP API слушает %s", apiLis.Addr())
		return serveHTTP(apiSrv, apiLis)
	})
	g.Go(func() error {
		logger.Infof("gRPC health слушает %s", grpcLis.Addr())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("метрики доступны по адресу %s/metrics", metricsLis.Addr())
		return serveHTTP(metricsSrv, metricsLis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")

		grpcHealth.Shutdown()
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		return nil
	})

	err = g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// listenAll открывает все слушатели заранее, чтобы ошибка занятого порта вернулась из Run.
func listenAll(addrs ...string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			for _, opened := range listeners {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		listeners = append(listeners, lis)
	}
	return listeners, nil
}

// newGRPCServer создаёт gRPC сервер со стандартным health-сервисом, reflection и метриками.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := registerGRPCMetrics(prometheus.DefaultRegisterer, logger)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Register reflection service for grpcurl and load testing tools
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	return grpcServer, healthServer
}

func registerGRPCMetrics(registerer prometheus.Registerer, logger *log.Entry) *promgrpc.ServerMetrics {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("failed to register grpc metrics")
	}
	return grpcMetrics
}

// newMetricsServer собирает служебный HTTP с /metrics для Prometheus и health probes.
func newMetricsServer(healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	return &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// stopGRPC пытается остановить сервер gracefully, а по таймауту принудительно.
func stopGRPC(srv *grpc.Server, timeout time.Duration, logger *log.Entry) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
