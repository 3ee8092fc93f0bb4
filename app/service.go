package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/powerplan/api/productionplan"
	"github.com/kilianp07/powerplan/config"
	"github.com/kilianp07/powerplan/core/dispatch"
	coremetrics "github.com/kilianp07/powerplan/core/metrics"
	coremon "github.com/kilianp07/powerplan/core/monitoring"
	"github.com/kilianp07/powerplan/infra/logger"
	"github.com/kilianp07/powerplan/infra/metrics"
	"github.com/kilianp07/powerplan/infra/monitoring"
	"github.com/kilianp07/powerplan/infra/mqtt"
	"github.com/kilianp07/powerplan/internal/eventbus"
)

// Service wires the planner to its transports and metrics sinks.
type Service struct {
	Manager *dispatch.PlanManager
	Handler http.Handler

	cfg    *config.Config
	bus    *eventbus.Bus[coremetrics.PlanEvent]
	events <-chan coremetrics.PlanEvent
	broker *mqtt.Client
	sink   coremetrics.MetricsSink
	logs   io.Closer
	log    logger.Logger

	// workers tracks the event publisher so Close can drain it before
	// disconnecting the broker.
	workers sync.WaitGroup

	mu   sync.Mutex
	addr net.Addr
}

// New creates a Service from the configuration. The MQTT client connects
// immediately when a broker is configured.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logs, err := logger.EnableFile(cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	bus := eventbus.New[coremetrics.PlanEvent](eventbus.DefaultBuffer)
	manager, err := dispatch.NewPlanManager(dispatch.NewPlanner(cfg.Planner), sink, bus, logger.New("plan_manager"))
	if err != nil {
		_ = coremetrics.Close(sink)
		_ = logs.Close()
		return nil, fmt.Errorf("plan manager: %w", err)
	}

	svc := &Service{
		Manager: manager,
		Handler: productionplan.NewHandler(manager, productionplan.Options{
			Token:           cfg.Server.Token,
			DefaultCO2Price: cfg.Planner.CO2DefaultPrice,
			Logger:          logger.New("http"),
		}),
		cfg:  cfg,
		bus:  bus,
		sink: sink,
		logs: logs,
		log:  logg,
	}

	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			_ = coremetrics.Close(sink)
			_ = logs.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.broker = client
		if cfg.MQTT.RequestTopic != "" {
			if err := mqtt.NewListener(client, manager, cfg.Planner.CO2DefaultPrice).Start(); err != nil {
				client.Disconnect()
				_ = coremetrics.Close(sink)
				_ = logs.Close()
				return nil, fmt.Errorf("mqtt listener: %w", err)
			}
		}
		if cfg.MQTT.EventsTopic != "" {
			svc.events = bus.Subscribe()
		}
	}
	return svc, nil
}

// Addr returns the address the HTTP server listens on once Run has bound it.
func (s *Service) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves the HTTP API and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Server.Address, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	if s.events != nil {
		s.workers.Add(1)
		go func() {
			defer s.workers.Done()
			mqtt.NewEventPublisher(s.broker).Run(ctx, s.events)
		}()
	}
	if s.cfg.Metrics.PrometheusEnabled() && s.cfg.Metrics.PrometheusPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Server.ReadTimeout(),
		WriteTimeout:      s.cfg.Server.WriteTimeout(),
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Infof("serving production plans on %s", ln.Addr())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases resources held by the service. Closing the bus ends the
// event publisher, which is waited for before the broker disconnects.
func (s *Service) Close() error {
	s.bus.Close()
	s.workers.Wait()
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d plan events dropped by slow subscribers", n)
	}
	if s.broker != nil {
		s.broker.Disconnect()
	}
	err := coremetrics.Close(s.sink)
	if err != nil {
		s.log.Errorf("close metrics sink: %v", err)
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(err, s.logs.Close())
}
