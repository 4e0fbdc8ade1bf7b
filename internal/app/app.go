// Package app собирает сервис из репозиториев, доменных сервисов,
// REST-слоя и фоновых воркеров, и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/restaurant-oms/internal/health"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/branch"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/menu"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/order"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/outbox"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/rest"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/settlement"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/strategy"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены контекста или фатальной
// ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	kafkaProducer, err := initKafkaProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		logger.WithError(err).Warn("starting without kafka")
	}
	defer closeKafka(kafkaProducer, logger)

	publisher := newOutboxPublisher(kafkaProducer, logger)

	orders := order.NewService(deps.Orders, deps.Menu, deps.Branches, deps.Outbox,
		logger.WithField("component", "order_service"))
	catalog := menu.NewService(deps.Menu, deps.Branches,
		logger.WithField("component", "menu_service"))
	branches := branch.NewService(deps.Branches,
		logger.WithField("component", "branch_service"))
	registry := strategy.NewDefaultRegistry(logger.WithField("component", "payment-strategy"))
	engine := settlement.NewEngine(deps.Orders, deps.Payments, registry, deps.Outbox,
		logger.WithField("component", "settlement"))

	workerOptions := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox_worker")),
		outbox.WithPollInterval(cfg.Outbox.PollInterval),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
	}
	if kafkaProducer != nil {
		workerOptions = append(workerOptions,
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)))
	}
	worker := outbox.NewWorker(deps.Outbox, publisher, workerOptions...)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", healthcheck.NewSimpleChecker("storage", func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return deps.Ping(pingCtx)
	}))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	router := rest.NewRouter(orders, engine, catalog, branches, logger)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		<-workerDone
		return ctx.Err()

	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		<-workerDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer поднимает служебный HTTP: /metrics, /healthz,
// /readyz и /livez.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
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
