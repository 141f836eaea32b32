// Package daemon wires the manager, the introspection server, the history
// journal and signal handling into one long-running process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RevCBH/unitd/internal/config"
	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/history"
	"github.com/RevCBH/unitd/internal/manager"
	"github.com/RevCBH/unitd/internal/metrics"
	"github.com/RevCBH/unitd/internal/server"
	"github.com/RevCBH/unitd/internal/unit"
)

// Daemon is the main process coordinator
type Daemon struct {
	cfg *config.Config
	log *zap.Logger

	bus     *events.Bus
	mgr     *manager.Manager
	hist    *history.DB
	metric  *metrics.Collector
	srv     *server.Server
	pidFile *PIDFile
}

// New creates a daemon from configuration
func New(cfg *config.Config) (*Daemon, error) {
	log, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	if cfg.EventLog {
		bus.Subscribe(events.LogHandler(events.LogConfig{Writer: os.Stderr}))
	}

	collector := metrics.NewCollector()

	mgr := manager.New(manager.Config{
		Logger:            log,
		Bus:               bus,
		Metrics:           collector,
		DefaultJobTimeout: cfg.JobTimeout(),
	})

	var hist *history.DB
	if cfg.HistoryPath != "" {
		hist, err = history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history journal: %w", err)
		}
		bus.Subscribe(hist.Handler(func(err error) {
			log.Warn("history journal write failed", zap.Error(err))
		}))
	}

	srv := server.New(server.Config{
		Addr:    cfg.ListenAddr,
		Logger:  log,
		Manager: mgr,
		History: hist,
		Metrics: collector,
	})

	return &Daemon{
		cfg:     cfg,
		log:     log,
		bus:     bus,
		mgr:     mgr,
		hist:    hist,
		metric:  collector,
		srv:     srv,
		pidFile: NewPIDFile(cfg.PIDFile),
	}, nil
}

// Manager returns the daemon's manager, for unit registration
func (d *Daemon) Manager() *manager.Manager { return d.mgr }

// AddUnit registers a unit with the manager
func (d *Daemon) AddUnit(u *unit.Unit) { d.mgr.AddUnit(u) }

// Run starts everything and blocks until the context is canceled or a
// termination signal arrives. SIGHUP triggers a live reload.
func (d *Daemon) Run(ctx context.Context) error {
	// Register signals before anything observable comes up so a reload
	// request can never hit the default handler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := d.pidFile.Acquire(); err != nil {
		return fmt.Errorf("failed to acquire PID file: %w", err)
	}
	defer d.pidFile.Release()

	if err := d.srv.Start(); err != nil {
		return fmt.Errorf("failed to start api server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- d.mgr.Run(ctx) }()

	d.log.Info("unitd started", zap.String("listen", d.srv.Addr()))

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				d.log.Info("live reload requested")
				if err := d.mgr.Reload(); err != nil {
					d.log.Error("live reload failed", zap.Error(err))
				}
			default:
				d.log.Info("shutting down", zap.String("signal", sig.String()))
				cancel()
				return d.shutdown(loopDone)
			}
		case <-ctx.Done():
			return d.shutdown(loopDone)
		}
	}
}

func (d *Daemon) shutdown(loopDone chan error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.srv.Shutdown(shutdownCtx); err != nil {
		d.log.Warn("api server shutdown failed", zap.Error(err))
	}
	if d.hist != nil {
		if err := d.hist.Close(); err != nil {
			d.log.Warn("history journal close failed", zap.Error(err))
		}
	}
	<-loopDone
	d.bus.Close()
	return nil
}
