package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/emlkit/eml2md/stats"
)

// Bar manages a progress bar for tracking container conversion.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

// New creates a new progress bar if logLevel is "info" and the total number
// of inputs is known up front (directory sources; mbox and IMAP sources have
// no cheap count).
func New(total int, logLevel string) *Bar {
	enabled := logLevel == "info" && total > 0

	bar := &Bar{
		total:   total,
		enabled: enabled,
	}

	if enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Converting messages").
			Start()

		bar.pb = pb

		pterm.Info.Printf("Inputs to convert: %d\n", total)
		pterm.Println()
	}

	return bar
}

// Update advances the progress bar based on the event type.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeWritten, stats.EventTypeDryRunWrite, stats.EventTypeSkipped, stats.EventTypeFailed:
		b.pb.Increment()
		if evt.Input != "" {
			display := evt.Input
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			b.pb.UpdateTitle("Converting " + display)
		}
	}
}

// Finish completes the progress bar.
func (b *Bar) Finish() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}

	b.pb.Stop()
	pterm.Success.Println("Conversion complete!")
}

// Reporter wires the bar and a final pterm summary into the event stream.
type Reporter struct {
	bar       *Bar
	collector *stats.Collector
	logger    *slog.Logger
	started   time.Time
}

// NewReporter subscribes one consumer driving both the bar and the summary
// when the bar is enabled; callers fall back to the plain stats.Reporter
// otherwise. A channel delivers each event to a single receiver, so the bar
// and the summary must share one subscription rather than register two.
func NewReporter(stream stats.EventStream, bar *Bar, logger *slog.Logger) *Reporter {
	reporter := &Reporter{
		bar:       bar,
		collector: stats.NewCollector(),
		logger:    logger,
		started:   time.Now(),
	}

	if bar != nil && bar.enabled {
		stream.SubscribeStats("progress", reporter.consume)
	}

	return reporter
}

// Enabled reports whether the bar will actually draw.
func (b *Bar) Enabled() bool {
	return b.enabled
}

func (r *Reporter) consume(ctx context.Context, events <-chan stats.Event) error {
	defer r.bar.Finish()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				r.printSummary()
				return nil
			}
			r.bar.Update(evt)
			r.collector.Apply(evt)
		}
	}
}

func (r *Reporter) printSummary() {
	summary := r.collector.Snapshot()
	duration := time.Since(r.started)

	if r.logger != nil {
		pterm.Println()
		pterm.DefaultSection.Println("Summary")
		pterm.Info.Printf("Duration: %v\n", duration)
		pterm.Info.Printf("Scanned: %d\n", summary.Scanned)
		pterm.Info.Printf("Converted: %d\n", summary.Converted)
		pterm.Info.Printf("Written: %d\n", summary.Written)
		pterm.Info.Printf("Dry-run written: %d\n", summary.DryRunWritten)
		pterm.Info.Printf("Skipped (already converted): %d\n", summary.Skipped)
		pterm.Info.Printf("Failed: %d\n", summary.Failed)
		if summary.LastError != nil {
			pterm.Error.Printf("Last error: %v\n", summary.LastError)
		}
	}
}
