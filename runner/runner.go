// Package runner wires the pipeline stages together: producers feed raw
// container jobs into a bridge that drops already-converted inputs, a worker
// pool converts, and a single writer persists results. Containers are
// independent of each other, so conversion parallelizes freely; within one
// container the stages run strictly in sequence.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/emlkit/eml2md/config"
	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/state"
	"github.com/emlkit/eml2md/stats"
)

type StageFunc func(context.Context) error

type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	jobs    chan model.Envelope
	work    chan model.Job
	results chan model.Result
	events  chan stats.Event

	tracker state.Tracker

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeJobsOnce    sync.Once
	closeWorkOnce    sync.Once
	closeResultsOnce sync.Once
	closeEventsOnce  sync.Once
	since            time.Time
}

func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	ctx, cancel := context.WithCancel(context.Background())

	tracker, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("state tracker: %w", err)
	}

	r := &Runner{
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		jobs:    make(chan model.Envelope, 32),
		work:    make(chan model.Job, 32),
		results: make(chan model.Result, 32),
		events:  make(chan stats.Event, 128),
		tracker: tracker,
	}

	r.AddStage("bridge", r.bridge)
	return r, nil
}

func (r *Runner) Config() config.Config {
	return r.cfg
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

func (r *Runner) Context() context.Context {
	return r.ctx
}

func (r *Runner) Tracker() state.Tracker {
	return r.tracker
}

func (r *Runner) JobsWriter() chan<- model.Envelope {
	return r.jobs
}

func (r *Runner) CloseJobs() {
	r.closeJobsOnce.Do(func() {
		close(r.jobs)
	})
}

func (r *Runner) Work() <-chan model.Job {
	return r.work
}

func (r *Runner) Results() <-chan model.Result {
	return r.results
}

// SendResult delivers one conversion result to the writer stage. Returns
// false when the run has been canceled.
func (r *Runner) SendResult(ctx context.Context, res model.Result) bool {
	select {
	case <-ctx.Done():
		return false
	case r.results <- res:
		return true
	}
}

func (r *Runner) CloseResults() {
	r.closeResultsOnce.Do(func() {
		close(r.results)
	})
}

func (r *Runner) EmitEvent(evt stats.Event) {
	select {
	case <-r.ctx.Done():
	case r.events <- evt:
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.statsWG.Add(1)
	go func() {
		defer r.statsWG.Done()
		if err := fn(r.ctx, r.events); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stats: %w", name, err))
		}
	}()
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.workWG.Add(1)
	go func() {
		defer r.workWG.Done()
		if err := fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.fail(fmt.Errorf("%s stage: %w", name, err))
		}
	}()
}

func (r *Runner) Start() error {
	r.since = time.Now()

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	if c, ok := r.tracker.(io.Closer); ok {
		if err := c.Close(); err != nil {
			r.fail(fmt.Errorf("close tracker: %w", err))
		}
	}

	err := r.err
	duration := time.Since(r.since)
	if err != nil {
		r.logger.Error("pipeline failed", "duration", duration, "err", err)
		return err
	}

	r.logger.Info("pipeline completed", "duration", duration)
	return nil
}

// bridge moves jobs from the producers to the worker pool. Producer errors
// are per-input: they are counted and logged, and the rest of the batch keeps
// going. Inputs already converted in a previous run are skipped.
func (r *Runner) bridge(ctx context.Context) error {
	defer r.closeWork()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.jobs:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeFailed, Err: envelope.Err})
				if r.logger != nil {
					r.logger.Error("input failed", "err", envelope.Err)
				}
				continue
			}

			job := envelope.Job
			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeScanned, Input: job.Name})

			if job.Hash != "" && r.tracker.AlreadyProcessed(job.Hash) {
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeSkipped, Input: job.Name})
				continue
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.work <- job:
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeEnqueued, Input: job.Name})
			}
		}
	}
}

func (r *Runner) closeWork() {
	r.closeWorkOnce.Do(func() {
		close(r.work)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		close(r.events)
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
