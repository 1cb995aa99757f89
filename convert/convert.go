// Package convert runs the forward pipeline: segment a container into its
// logical messages, merge near-duplicates, render the thread document.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/emlkit/eml2md/dedup"
	"github.com/emlkit/eml2md/markdown"
	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/runner"
	"github.com/emlkit/eml2md/stats"
	"github.com/emlkit/eml2md/thread"
)

type Options struct {
	NewestFirst    bool
	DedupThreshold int
	Workers        int
}

// Thread converts one raw container into a rendered document. It returns the
// surviving records as well, so the caller can persist their attachments.
func Thread(raw []byte, opts Options) (string, []model.MessageRecord, error) {
	records, err := thread.Segment(raw)
	if err != nil {
		return "", nil, err
	}
	records = dedup.Deduplicate(records, opts.DedupThreshold)
	return markdown.Render(records, opts.NewestFirst), records, nil
}

// Workers is the conversion stage: a pool of goroutines draining the job
// channel. Jobs are independent containers, so pool size only trades memory
// for throughput. A failed job is reported with its input name and does not
// stop the batch.
type Workers struct {
	opts   Options
	runner *runner.Runner
	logger *slog.Logger
}

func NewWorkers(opts Options, r *runner.Runner, logger *slog.Logger) *Workers {
	if opts.Workers < 1 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.DedupThreshold <= 0 {
		opts.DedupThreshold = dedup.DefaultThreshold
	}
	w := &Workers{opts: opts, runner: r, logger: logger}
	r.AddStage("convert", w.run)
	return w
}

func (w *Workers) run(ctx context.Context) error {
	defer w.runner.CloseResults()

	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.work(ctx)
		}()
	}
	wg.Wait()
	return nil
}

func (w *Workers) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-w.runner.Work():
			if !ok {
				return
			}

			doc, records, err := Thread(job.Raw, w.opts)
			if err != nil {
				w.runner.EmitEvent(stats.Event{
					Stage: stats.StageConvert,
					Type:  stats.EventTypeFailed,
					Input: job.Name,
					Err:   fmt.Errorf("convert %s: %w", job.Name, err),
				})
				if w.logger != nil {
					w.logger.Error("conversion failed", "input", job.Name, "err", err)
				}
				continue
			}

			w.runner.EmitEvent(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeConverted, Input: job.Name})
			if !w.runner.SendResult(ctx, model.Result{Job: job, Markdown: doc, Records: records}) {
				return
			}
		}
	}
}
