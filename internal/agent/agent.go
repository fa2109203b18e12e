// Package agent contains the scheduler loop: two independently-timed
// repeating actions (heartbeat, check sweep) driven from one goroutine
// against a shared worklist.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/servicemon/agent/internal/config"
	"github.com/servicemon/agent/internal/domain"
	"github.com/servicemon/agent/internal/monitor"
	"github.com/servicemon/agent/internal/probe"
	"github.com/servicemon/agent/internal/server"
	"github.com/servicemon/agent/internal/sysinfo"
	"github.com/servicemon/agent/internal/worklist"
)

const (
	// loopIdle bounds busy-waiting between scheduling iterations.
	loopIdle = 1 * time.Second

	// recoveryPause is the pause after a recovered iteration panic.
	recoveryPause = 2 * time.Second
)

// ControlPlane is the subset of the monitor client the scheduler uses.
type ControlPlane interface {
	Heartbeat(ctx context.Context, info domain.HostInfo) (*monitor.HeartbeatResult, error)
	ReportCheck(ctx context.Context, result domain.CheckResult) error
}

// Prober performs one reachability check against a worklist target.
type Prober interface {
	Probe(ctx context.Context, target domain.ServiceTarget) domain.CheckResult
}

// Agent wires the control-plane client, the prober, and the worklist
// store into the dual-interval scheduler.
type Agent struct {
	cfg    *config.Config
	logger *slog.Logger

	client ControlPlane
	prober Prober
	store  *worklist.Store
	status *Status

	statusServer *server.Server
}

// New creates an agent and all its subsystems from the configuration.
func New(cfg *config.Config, logger *slog.Logger) *Agent {
	return &Agent{
		cfg:    cfg,
		logger: logger,
		client: monitor.NewClient(cfg.APIKey, cfg.BaseURL, cfg.RequestTimeout(), logger),
		prober: probe.New(cfg.RequestTimeout(), cfg.DegradedThreshold()),
		store:  worklist.NewStore(),
		status: NewStatus(),
	}
}

// Run executes the scheduler until the context is cancelled. A heartbeat
// is always issued once before the timed loop begins, so the first sweep
// never runs against a never-updated worklist when one is obtainable.
// Run only returns on shutdown; every action-level failure is logged and
// absorbed.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting monitoring loop",
		"heartbeat_interval", a.cfg.HeartbeatInterval().String(),
		"check_interval", a.cfg.CheckInterval().String(),
	)

	if a.cfg.StatusPort > 0 {
		a.statusServer = server.New(a.cfg.StatusPort, a.store, a.status, a.logger)
		go func() {
			if err := a.statusServer.Run(); err != nil {
				a.logger.Error("status server stopped", "err", err)
			}
		}()
	}

	a.heartbeat(ctx)
	lastHeartbeat := time.Now()

	// Zero value makes the first sweep due immediately.
	var lastSweep time.Time

	for {
		a.iterate(ctx, &lastHeartbeat, &lastSweep)

		select {
		case <-ctx.Done():
			a.logger.Info("shutting down agent")
			a.shutdown()
			return nil
		case <-time.After(loopIdle):
		}
	}
}

// iterate runs one scheduling pass: fire whichever actions are past due,
// heartbeat first so it can refresh the worklist before the sweep reads
// it. A panic anywhere inside degrades only this iteration.
func (a *Agent) iterate(ctx context.Context, lastHeartbeat, lastSweep *time.Time) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("recovered from scheduler panic", "panic", r)
			time.Sleep(recoveryPause)
		}
	}()

	if time.Since(*lastHeartbeat) >= a.cfg.HeartbeatInterval() {
		*lastHeartbeat = time.Now()
		a.heartbeat(ctx)
	}

	if time.Since(*lastSweep) >= a.cfg.CheckInterval() {
		*lastSweep = time.Now()
		a.sweep(ctx)
	}
}

// heartbeat reports host metadata and applies any worklist the control
// plane returned. Failure leaves the previous worklist intact.
func (a *Agent) heartbeat(ctx context.Context) {
	info := sysinfo.Collect()

	result, err := a.client.Heartbeat(ctx, info)
	if err != nil {
		a.logger.Warn("heartbeat failed", "err", err)
		return
	}

	a.status.RecordHeartbeat(result.AgentID, time.Now())
	a.logger.Info("heartbeat sent", "agent_id", result.AgentID)

	if result.Services == nil {
		return
	}

	previous := a.store.Len()
	a.store.Replace(result.Services)
	if len(result.Services) != previous {
		a.logger.Info("worklist updated",
			"previous", previous,
			"current", len(result.Services),
		)
	}
}

// sweep probes every entry of the current worklist snapshot in order and
// reports each result. Entries are checked sequentially; one entry's
// failure never stops the rest of the sweep.
func (a *Agent) sweep(ctx context.Context) {
	services := a.store.Snapshot()
	if len(services) == 0 {
		a.logger.Debug("check sweep skipped, worklist is empty")
		return
	}

	logger := a.logger.With("sweep_id", uuid.New().String()[:8])
	logger.Debug("check sweep started", "services", len(services))

	for _, target := range services {
		a.checkService(ctx, logger, target)
	}
}

// checkService probes a single target and reports the outcome. Recover
// keeps an unexpected fault in one entry from reaching the sweep.
func (a *Agent) checkService(ctx context.Context, logger *slog.Logger, target domain.ServiceTarget) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered from check panic",
				"host", target.Host,
				"port", target.Port,
				"panic", r,
			)
		}
	}()

	result := a.prober.Probe(ctx, target)
	a.status.RecordCheck(result)

	if err := a.client.ReportCheck(ctx, result); err != nil {
		logger.Warn("failed to report service check", "err", err)
		return
	}

	attrs := []any{
		"host", result.Host,
		"port", result.Port,
		"status", result.Status,
	}
	if result.ResponseTimeMs != nil {
		attrs = append(attrs, "response_ms", *result.ResponseTimeMs)
	}
	logger.Info("service check reported", attrs...)
}

func (a *Agent) shutdown() {
	if a.statusServer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.statusServer.Shutdown(ctx); err != nil {
		a.logger.Error("status server shutdown error", "err", err)
	}
}
