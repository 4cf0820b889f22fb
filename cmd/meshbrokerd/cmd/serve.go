package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/plantd/meshbroker/internal/broker"
	"github.com/plantd/meshbroker/internal/config"
	"github.com/plantd/meshbroker/internal/factory"
	"github.com/plantd/meshbroker/internal/logging"
	"github.com/plantd/meshbroker/internal/metrics"
	"github.com/plantd/meshbroker/internal/proto"
	"github.com/plantd/meshbroker/internal/statusapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the broker's client/worker event loop and status API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func serve() {
	cfg := config.GetConfig()
	logging.Initialize(cfg.Log)

	fields := log.Fields{"service": cfg.Service.ID, "context": "serve"}

	if err := cfg.Validate(); err != nil {
		log.WithFields(fields).Fatalf("configuration validation failed: %v", err)
	}

	transport, err := broker.BindCzmqTransport(cfg.ClientEndpoint, cfg.WorkerEndpoint)
	if err != nil {
		log.WithFields(fields).Fatalf("failed to bind broker sockets: %v", err)
	}

	f, err := buildFactory(cfg)
	if err != nil {
		log.WithFields(fields).Fatalf("invalid worker-spawn-commands: %v", err)
	}
	f.AddEndpoint(transport.WorkerEndpointAddr())

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	b := broker.New(transport, f, cfg.HeartbeatInterval, cfg.HeartbeatLiveness, broker.WithMetrics(collector))

	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		b.Run(ctx)
	}()

	var statusServer *http.Server
	if cfg.StatusEndpoint != "" {
		router := statusapi.NewRouter(b, time.Now())
		statusServer = &http.Server{Addr: cfg.StatusEndpoint, Handler: router}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := statusServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithFields(fields).WithError(err).Error("status API server stopped")
			}
		}()
	}

	log.WithFields(fields).Info("meshbrokerd started")
	log.WithFields(fields).Infof("environment: %s", cfg.Env)
	log.WithFields(fields).Infof("client endpoint: %s, worker endpoint: %s", transport.ClientEndpointAddr(), transport.WorkerEndpointAddr())

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	<-termChan

	log.WithFields(fields).Info("shutdown signal received")

	cancel()
	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = statusServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	_ = transport.Close()
	wg.Wait()

	log.WithFields(fields).Info("meshbrokerd stopped")
}

func buildFactory(cfg *config.BrokerConfig) (*factory.ProcessFactory, error) {
	specs := make(map[proto.JobType]factory.WorkerSpec, len(cfg.WorkerSpawnCommand))
	for _, spawn := range cfg.WorkerSpawnCommand {
		jobType, err := proto.ParseJobType(spawn.JobType)
		if err != nil {
			return nil, err
		}
		specs[jobType] = factory.WorkerSpec{Command: spawn.Command, Args: spawn.Args}
	}
	return factory.NewProcessFactory(specs, cfg.FactoryCap), nil
}
