package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/amrfleet/api/runs"
	"github.com/kilianp07/amrfleet/config"
	"github.com/kilianp07/amrfleet/core/dispatch"
	"github.com/kilianp07/amrfleet/core/dispatch/logging"
	"github.com/kilianp07/amrfleet/core/logger"
	coremetrics "github.com/kilianp07/amrfleet/core/metrics"
	"github.com/kilianp07/amrfleet/core/robotstatus"
	"github.com/kilianp07/amrfleet/core/scenario"
	"github.com/kilianp07/amrfleet/infra/db"
	infralogger "github.com/kilianp07/amrfleet/infra/logger"
	inframetrics "github.com/kilianp07/amrfleet/infra/metrics"
	"github.com/kilianp07/amrfleet/infra/mqtt"
	"github.com/kilianp07/amrfleet/infra/ws"
	"github.com/kilianp07/amrfleet/internal/eventbus"
)

// Service composes every component named in the system overview into one
// runnable process: the in-process bus, the simulator's run driver, the
// dispatcher, SQLite persistence, the telemetry bridge, the dashboard
// broadcaster, Prometheus metrics, and the run-creation/query HTTP API.
type Service struct {
	bus          *eventbus.Bus
	log          logger.Logger
	runner       *Runner
	dispatchMgr  *dispatch.Manager
	dbStore      *db.Store
	materializer *db.Materializer
	mqttClient   *mqtt.PahoClient
	bridge       *mqtt.Bridge
	wsHub        *ws.Hub
	broadcaster  *ws.Broadcaster
	httpServer   *http.Server
	logStore     logging.LogStore
}

// New wires a Service from cfg. The MQTT telemetry bridge is only started
// when cfg.MQTT.Broker is set; every other component is always wired, since
// the ambient stack (persistence, metrics, the dashboard) is carried
// regardless of which run mode the caller ultimately drives.
func New(cfg *config.Config) (*Service, error) {
	log := infralogger.New("service")
	bus := eventbus.New()

	logStore, err := newLogStore(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("log store: %w", err)
	}

	dbStore, err := db.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	status := robotstatus.NewMemoryStore()
	optimize := dispatch.NewGAOptimizeFunc(cfg.Optimizer)
	dispatchMgr := dispatch.NewManager(cfg.Dispatch, bus, infralogger.New("dispatcher"), status, optimize)
	dispatchMgr.SetLogStore(logStore)

	scenCfg := scenario.DefaultConfig()
	scenCfg.MaxSimSeconds = cfg.Sim.MaxSimSeconds
	scenCfg.ServiceTimeS = cfg.Sim.ServiceTimeS
	runner := NewRunner(bus, infralogger.New("simulator"), scenCfg, cfg.Sim)

	materializer := db.NewMaterializer(dbStore, bus, infralogger.New("db-materializer"))

	wsHub := ws.NewHub(infralogger.New("ws"))
	broadcaster := ws.NewBroadcaster(wsHub, bus, infralogger.New("ws-broadcaster"))

	var mqttClient *mqtt.PahoClient
	var bridge *mqtt.Bridge
	if cfg.MQTT.Broker != "" {
		mqttClient, err = mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		bridge = mqtt.NewBridge(mqttClient, bus, infralogger.New("mqtt-bridge"))
	}

	promSink, err := inframetrics.NewPromSink()
	if err != nil {
		return nil, fmt.Errorf("prom sink: %w", err)
	}
	coremetrics.StartCollector(context.Background(), bus, promSink)

	runSvc := runs.NewService(bus, dbStore, runs.Defaults{Mode: cfg.Run.Mode, Scale: cfg.Run.Scale, Seed: cfg.Run.Seed})
	runHandler := runs.NewHandler(runSvc)
	router := runs.NewRouter(func(mux *http.ServeMux) {
		runHandler.Register(mux)
		mux.Handle(cfg.HTTP.WSPath, wsHub)
		mux.Handle("/metrics", promhttp.Handler())
	}, log)

	httpServer := &http.Server{Addr: cfg.HTTP.ListenAddr, Handler: router}

	return &Service{
		bus:          bus,
		log:          log,
		runner:       runner,
		dispatchMgr:  dispatchMgr,
		dbStore:      dbStore,
		materializer: materializer,
		mqttClient:   mqttClient,
		bridge:       bridge,
		wsHub:        wsHub,
		broadcaster:  broadcaster,
		httpServer:   httpServer,
		logStore:     logStore,
	}, nil
}

// Run starts every component and blocks until ctx is canceled, then shuts
// the HTTP server down gracefully.
func (s *Service) Run(ctx context.Context) error {
	go s.runner.Run(ctx)
	go s.dispatchMgr.Run(ctx)
	go s.materializer.Run(ctx)
	go s.broadcaster.Run(ctx)
	if s.bridge != nil {
		go s.bridge.Run(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()
	s.log.Infof("service: listening addr=%s", s.httpServer.Addr)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Close releases every resource the Service holds open.
func (s *Service) Close() error {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if err := s.logStore.Close(); err != nil {
		s.log.Errorf("service: log store close: %v", err)
	}
	if err := s.dbStore.Close(); err != nil {
		return err
	}
	s.bus.Close()
	return nil
}

func newLogStore(cfg config.LoggingConfig) (logging.LogStore, error) {
	if cfg.Backend == "sqlite" {
		return logging.NewSQLiteStore(cfg.Path)
	}
	return logging.NewJSONLStore(cfg.Path)
}
