// Package app собирает сервис клиентов и заказов из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/customers/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/customers/internal/health"
	"github.com/vladislavdragonenkov/customers/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/customers/internal/metrics"
	"github.com/vladislavdragonenkov/customers/internal/service/customer"
	"github.com/vladislavdragonenkov/customers/internal/service/idempotency"
	"github.com/vladislavdragonenkov/customers/internal/service/order"
	"github.com/vladislavdragonenkov/customers/internal/service/outbox"
	"github.com/vladislavdragonenkov/customers/internal/service/product"
	"github.com/vladislavdragonenkov/customers/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/customers/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает REST API, gRPC health, метрики и фоновые воркеры до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return err
	}

	serviceMetrics := metrics.NewServiceMetrics()
	deps, err := initRuntimeDependencies(ctx, cfg, serviceMetrics, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)

	customers := customer.NewService(deps.store,
		customer.WithMetrics(serviceMetrics),
		customer.WithLogger(logger.WithField("layer", "customer")),
	)
	orders := order.NewService(deps.store, deps.products, order.WithMetrics(serviceMetrics))
	products := product.NewService(deps.products, serviceMetrics)

	router := httpapi.NewRouter(httpapi.Dependencies{
		Customers:   customers,
		Orders:      orders,
		Products:    products,
		Idempotency: idempotency.NewGuard(deps.idempotencyRepo, cfg.IdempotencyTTL),
		Metrics:     serviceMetrics,
		Logger:      logger.WithField("layer", "http"),
	})

	healthHandler := healthcheck.NewHandler(version.Current().Version)
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if deps.cacheChecker != nil {
		healthHandler.RegisterChecker("product-cache", deps.cacheChecker)
	}

	producer, err := initKafkaProducer(cfg.Brokers(), logger)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
	}
	defer closeKafkaProducer(producer, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	outboxDone := startOutboxWorker(workerCtx, cfg, deps.store.Outbox(), producer, logger)
	cleanupDone := startIdempotencyCleanup(workerCtx, cfg, deps.idempotencyRepo, logger)
	defer func() {
		stopWorkers()
		<-outboxDone
		<-cleanupDone
	}()

	grpcServer, healthServer := newGRPCServer(logger)
	go healthcheck.SyncGRPC(workerCtx, healthHandler, healthServer, cfg.HealthSyncInterval, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = lis.Close()
		return err
	}

	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC health слушает %s", lis.Addr())
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Infof("REST API слушает %s", apiLis.Addr())
		if err := apiSrv.Serve(apiLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(apiSrv, logger)
		stopGRPC(grpcServer, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer собирает gRPC-сервер с health-сервисом и метриками перехватчиков.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(healthcheck.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)
	reflection.Register(srv)
	grpcMetrics.InitializeMetrics(srv)
	return srv, healthServer
}

func stopGRPC(srv *grpc.Server, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}

// startOutboxWorker запускает доставку outbox. Без Kafka события только логируются.
func startOutboxWorker(ctx context.Context, cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, logger *log.Entry) <-chan struct{} {
	var publisher domain.OutboxPublisher = logPublisher{logger: logger.WithField("component", "outbox-log")}
	opts := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
	}
	if producer != nil {
		publisher = kafka.NewOutboxPublisher(producer, cfg.KafkaTopic)
		opts = append(opts, outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)))
	}

	worker := outbox.NewWorker(repo, publisher, opts...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	return done
}

func startIdempotencyCleanup(ctx context.Context, cfg Config, repo domain.IdempotencyRepository, logger *log.Entry) <-chan struct{} {
	worker := idempotency.NewCleanupWorker(repo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()
	return done
}

// startMetricsServer запускает служебный HTTP: /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
