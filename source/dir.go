// Package source feeds raw message containers into the pipeline. Three
// producers exist: an eml directory scanner, an mbox archive reader, and an
// IMAP folder fetcher. Exactly one runs per pipeline; each closes the job
// channel when its input is exhausted.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/runner"
)

type DirOptions struct {
	Path string
}

// DirProducer scans a directory for .eml files and emits one job per file.
// An unreadable file is reported as a per-input failure; an empty directory
// is an empty result, not an error.
type DirProducer struct {
	opts   DirOptions
	runner *runner.Runner
	logger *slog.Logger
}

func NewDirProducer(opts DirOptions, r *runner.Runner, logger *slog.Logger) (*DirProducer, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("input directory is empty")
	}
	p := &DirProducer{opts: opts, runner: r, logger: logger}
	r.AddStage("dir-source", p.run)
	return p, nil
}

func (p *DirProducer) run(ctx context.Context) error {
	defer p.runner.CloseJobs()

	entries, err := os.ReadDir(p.opts.Path)
	if err != nil {
		return fmt.Errorf("read input directory: %w", err)
	}

	found := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".eml") {
			continue
		}
		found++

		path := filepath.Join(p.opts.Path, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			if err := p.emit(ctx, model.Envelope{Err: fmt.Errorf("%s: %w", entry.Name(), err)}); err != nil {
				return err
			}
			continue
		}

		job := model.Job{
			Name: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path: path,
			Hash: HashContainer(raw),
			Raw:  raw,
		}
		if err := p.emit(ctx, model.Envelope{Job: job}); err != nil {
			return err
		}
	}

	if found == 0 && p.logger != nil {
		p.logger.Warn("no .eml files found", "dir", p.opts.Path)
	}
	return nil
}

func (p *DirProducer) emit(ctx context.Context, env model.Envelope) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.runner.JobsWriter() <- env:
		return nil
	}
}

// CountInputs returns the number of .eml files a directory would contribute,
// for progress bar sizing.
func CountInputs(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".eml") {
			count++
		}
	}
	return count, nil
}

// HashContainer fingerprints a raw container for the incremental-state
// journal.
func HashContainer(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}
