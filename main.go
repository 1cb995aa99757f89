package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/emlkit/eml2md/cmd"
	"github.com/emlkit/eml2md/config"
	"github.com/emlkit/eml2md/convert"
	"github.com/emlkit/eml2md/progress"
	"github.com/emlkit/eml2md/runner"
	"github.com/emlkit/eml2md/source"
	"github.com/emlkit/eml2md/stats"
	"github.com/emlkit/eml2md/storage"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "eml2md",
		Short: "Convert email threads into deduplicated markdown documents",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(c)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting eml2md", "input", cfg.InputDir, "mbox", cfg.MboxPath, "imap", cfg.IMAPHost, "output", cfg.OutputDir, "dryRun", cfg.DryRun)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(cmd.NewReadCommand())
	rootCmd.AddCommand(cmd.NewStatsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	r, err := runner.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	total := 0
	switch {
	case cfg.MboxPath != "":
		if _, err := source.NewMboxProducer(source.MboxOptions{Path: cfg.MboxPath}, r, logger); err != nil {
			return fmt.Errorf("source.NewMboxProducer: %w", err)
		}
	case cfg.IMAPHost != "":
		fetcherOpts := source.IMAPOptions{
			Host:               cfg.IMAPHost,
			Port:               cfg.IMAPPort,
			Username:           cfg.IMAPUser,
			Password:           cfg.IMAPPass,
			UseTLS:             cfg.UseTLS,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Folder:             cfg.IMAPFolder,
			Limit:              cfg.IMAPLimit,
		}
		if _, err := source.NewIMAPFetcher(fetcherOpts, r, logger); err != nil {
			return fmt.Errorf("source.NewIMAPFetcher: %w", err)
		}
	default:
		if n, err := source.CountInputs(cfg.InputDir); err == nil {
			total = n
		}
		if _, err := source.NewDirProducer(source.DirOptions{Path: cfg.InputDir}, r, logger); err != nil {
			return fmt.Errorf("source.NewDirProducer: %w", err)
		}
	}

	bar := progress.New(total, cfg.LogLevel)
	if bar.Enabled() {
		progress.NewReporter(r, bar, logger)
	} else {
		stats.NewReporter(r, logger)
	}

	convert.NewWorkers(convert.Options{
		NewestFirst:    cfg.NewestFirst,
		DedupThreshold: cfg.DedupThreshold,
		Workers:        cfg.Workers,
	}, r, logger)

	writerOpts := storage.Options{
		OutputDir: cfg.OutputDir,
		DoneDir:   cfg.DoneDir,
		DryRun:    cfg.DryRun,
	}
	if _, err := storage.NewWriter(writerOpts, r, logger); err != nil {
		return fmt.Errorf("storage.NewWriter: %w", err)
	}

	return r.Start()
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("eml2md-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
