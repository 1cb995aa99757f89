package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/runner"
)

type MboxOptions struct {
	Path string
}

// MboxProducer streams an mbox archive and emits every contained message as
// its own container job, named <stem>-NNNN. A message that cannot be read is
// a per-input failure; the stream continues.
type MboxProducer struct {
	opts   MboxOptions
	runner *runner.Runner
	logger *slog.Logger
}

func NewMboxProducer(opts MboxOptions, r *runner.Runner, logger *slog.Logger) (*MboxProducer, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	p := &MboxProducer{opts: opts, runner: r, logger: logger}
	r.AddStage("mbox-source", p.run)
	return p, nil
}

func (p *MboxProducer) run(ctx context.Context) error {
	defer p.runner.CloseJobs()

	file, err := os.Open(p.opts.Path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	stem := strings.TrimSuffix(filepath.Base(p.opts.Path), filepath.Ext(p.opts.Path))
	reader := mboxlib.NewReader(file)

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return p.emit(ctx, model.Envelope{Err: fmt.Errorf("mbox message %d: %w", idx, err)})
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			if err := p.emit(ctx, model.Envelope{Err: fmt.Errorf("mbox message %d read: %w", idx, err)}); err != nil {
				return err
			}
			continue
		}

		job := model.Job{
			Name: fmt.Sprintf("%s-%04d", stem, idx),
			Hash: HashContainer(raw),
			Raw:  raw,
		}
		if err := p.emit(ctx, model.Envelope{Job: job}); err != nil {
			return err
		}
	}
}

func (p *MboxProducer) emit(ctx context.Context, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.runner.JobsWriter() <- env:
		return nil
	}
}
