// Package storage persists conversion results: the rendered document, the
// attachments of its surviving messages, and the relocation of consumed
// input files. The core pipeline never touches the filesystem; this stage is
// the only place writes happen.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/emlkit/eml2md/model"
	"github.com/emlkit/eml2md/runner"
	"github.com/emlkit/eml2md/state"
	"github.com/emlkit/eml2md/stats"
)

type Options struct {
	OutputDir string
	DoneDir   string
	DryRun    bool
}

// Writer is the sink stage. It writes output/<name>/<name>.md plus each
// attachment under a sanitized filename, moves file-backed inputs to the done
// directory, and records the input hash so later runs skip it. Dry runs do
// everything except touch the filesystem.
type Writer struct {
	opts    Options
	runner  *runner.Runner
	tracker state.Tracker
	logger  *slog.Logger
}

func NewWriter(opts Options, r *runner.Runner, logger *slog.Logger) (*Writer, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	tracker := r.Tracker()
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	w := &Writer{opts: opts, runner: r, tracker: tracker, logger: logger}
	r.AddStage("write", w.run)
	return w, nil
}

func (w *Writer) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-w.runner.Results():
			if !ok {
				return nil
			}

			if w.opts.DryRun {
				if err := w.tracker.MarkProcessed(res.Job.Hash, res.Job.Name); err != nil {
					return err
				}
				w.runner.EmitEvent(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeDryRunWrite, Input: res.Job.Name})
				if w.logger != nil {
					w.logger.Debug("dry-run write", "input", res.Job.Name, "bytes", len(res.Markdown))
				}
				continue
			}

			path, err := w.write(res)
			if err != nil {
				err = fmt.Errorf("write %s: %w", res.Job.Name, err)
				w.runner.EmitEvent(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeFailed, Input: res.Job.Name, Err: err})
				return err
			}

			if err := w.tracker.MarkProcessed(res.Job.Hash, res.Job.Name); err != nil {
				return err
			}

			w.runner.EmitEvent(stats.Event{Stage: stats.StageWrite, Type: stats.EventTypeWritten, Input: res.Job.Name, Detail: path})
			if w.logger != nil {
				w.logger.Debug("wrote markdown", "input", res.Job.Name, "path", path)
			}
		}
	}
}

func (w *Writer) write(res model.Result) (string, error) {
	dir := filepath.Join(w.opts.OutputDir, res.Job.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	mdPath := filepath.Join(dir, res.Job.Name+".md")
	if err := os.WriteFile(mdPath, []byte(res.Markdown), 0o644); err != nil {
		return "", err
	}

	for _, rec := range res.Records {
		for _, att := range rec.Attachments {
			name := SanitizeFilename(att.Filename)
			if name == "" {
				continue
			}
			if err := os.WriteFile(filepath.Join(dir, name), att.Content, 0o644); err != nil {
				return "", err
			}
		}
	}

	if res.Job.Path != "" && w.opts.DoneDir != "" {
		if err := os.MkdirAll(w.opts.DoneDir, 0o755); err != nil {
			return "", err
		}
		target := filepath.Join(w.opts.DoneDir, filepath.Base(res.Job.Path))
		if err := os.Rename(res.Job.Path, target); err != nil {
			return "", fmt.Errorf("move to done: %w", err)
		}
	}

	return mdPath, nil
}

var unsafePathRE = regexp.MustCompile(`[^\p{L}\p{N}_.-]`)

// SanitizeFilename maps an attachment's declared filename onto a
// filesystem-safe one: anything outside letters, digits, underscore, dot and
// hyphen becomes an underscore. The original name survives in the rendered
// attachment reference.
func SanitizeFilename(name string) string {
	return unsafePathRE.ReplaceAllString(name, "_")
}
