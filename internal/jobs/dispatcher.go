package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpus-kb/corpus/internal/store"
)

// Dispatcher drives processed jobs through their processors on a
// fixed tick, shedding whole ticks under host load, and sweeps
// expired terminal jobs on a slower tick.
type Dispatcher struct {
	store    *store.Store
	registry *Registry
	sampler  LoadSampler
	deps     Dependencies
	logger   *slog.Logger

	interval      time.Duration
	sweepInterval time.Duration
	loadThreshold float64
}

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	Interval      time.Duration // job tick, default 5s
	SweepInterval time.Duration // expiry tick, default 1h
	LoadThreshold float64       // percent, default 80
	Sampler       LoadSampler   // default HostLoadSampler
}

// NewDispatcher creates a dispatcher. Dependencies are attached to the
// context of every processor invocation.
func NewDispatcher(s *store.Store, registry *Registry, deps Dependencies, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.LoadThreshold <= 0 {
		cfg.LoadThreshold = 80
	}
	if cfg.Sampler == nil {
		cfg.Sampler = HostLoadSampler{}
	}
	return &Dispatcher{
		store:         s,
		registry:      registry,
		sampler:       cfg.Sampler,
		deps:          deps,
		logger:        logger,
		interval:      cfg.Interval,
		sweepInterval: cfg.SweepInterval,
		loadThreshold: cfg.LoadThreshold,
	}
}

// Run ticks until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	sweeper := time.NewTicker(d.sweepInterval)
	defer sweeper.Stop()

	d.logger.Info("dispatcher started",
		"interval", d.interval,
		"sweep_interval", d.sweepInterval,
		"load_threshold", d.loadThreshold)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		case <-sweeper.C:
			d.Sweep()
		}
	}
}

// Tick runs one dispatch cycle: sample load, maybe shed, otherwise
// take the single oldest processed job and run its processor. A shed
// tick performs no job-store reads.
func (d *Dispatcher) Tick(ctx context.Context) {
	cpuPct, memPct, err := d.sampler.Sample(ctx)
	if err != nil {
		d.logger.Warn("load sample failed, skipping tick", "error", err)
		return
	}
	if cpuPct > d.loadThreshold || memPct > d.loadThreshold {
		d.logger.Debug("tick shed under load", "cpu", cpuPct, "mem", memPct)
		return
	}

	job, err := d.store.OldestProcessed()
	if err == store.ErrNotFound {
		return
	}
	if err != nil {
		d.logger.Error("failed to fetch processed jobs", "error", err)
		return
	}

	d.dispatch(ctx, job)
}

// dispatch runs one job through its processor. Processor failure of
// any kind marks the job failed; it never escapes the loop.
func (d *Dispatcher) dispatch(ctx context.Context, job *store.Job) {
	if err := d.store.UpdateJobStatus(job.ID, store.JobStatusRunning, ""); err != nil {
		d.logger.Error("failed to mark job running", "job", job.ID, "error", err)
		return
	}

	processor, ok := d.registry.Get(job.Type)
	if !ok {
		d.logger.Error("no processor for job type", "job", job.ID, "type", job.Type)
		d.fail(job, fmt.Sprintf("no processor registered for type %q", job.Type))
		return
	}

	summary, err := d.invoke(ctx, processor, job)
	if err != nil {
		d.logger.Error("processor failed", "job", job.ID, "type", job.Type, "error", err)
		d.fail(job, err.Error())
		return
	}

	if err := d.complete(job, summary); err != nil {
		d.logger.Error("failed to mark job completed", "job", job.ID, "error", err)
		return
	}
	d.logger.Info("job completed", "job", job.ID, "type", job.Type)
}

// invoke runs the processor with dependencies attached and panics
// converted to errors.
func (d *Dispatcher) invoke(ctx context.Context, processor Processor, job *store.Job) (summary map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return processor.Process(ContextWithDeps(ctx, d.deps), job)
}

func (d *Dispatcher) fail(job *store.Job, message string) {
	if err := d.store.UpdateJobStatus(job.ID, store.JobStatusFailed, message); err != nil {
		d.logger.Error("failed to mark job failed", "job", job.ID, "error", err)
	}
}

// complete marks the job done. The worker-attached result is the
// job's single result write; a processor summary is only stored when
// no worker result exists.
func (d *Dispatcher) complete(job *store.Job, summary map[string]any) error {
	if summary != nil && len(job.Result) == 0 {
		_, err := d.store.AttachJobResult(job.ID, summary, store.JobStatusCompleted)
		return err
	}
	return d.store.UpdateJobStatus(job.ID, store.JobStatusCompleted, "")
}

// Sweep deletes terminal jobs past their retention deadline.
func (d *Dispatcher) Sweep() {
	n, err := d.store.SweepExpiredJobs(time.Now())
	if err != nil {
		d.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		d.logger.Info("expired jobs swept", "count", n)
	}
}
