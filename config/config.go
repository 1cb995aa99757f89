package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Config captures all command-line options required to run the converter.
type Config struct {
	InputDir       string
	MboxPath       string
	OutputDir      string
	DoneDir        string
	StateDir       string
	NewestFirst    bool
	DedupThreshold int
	Workers        int
	DryRun         bool
	LogLevel       string
	LogDir         string

	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	IMAPFolder         string
	IMAPLimit          int
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.String("input", "input", "Directory scanned for .eml files to convert")
	flags.String("mbox", "", "Convert every message of this mbox archive instead of an input directory")
	flags.String("output", "output", "Directory for the generated markdown and attachments")
	flags.String("done", "done", "Directory processed .eml files are moved into (empty to disable)")
	flags.String("state-dir", defaultStateDir, "Directory for the incremental-conversion journal")
	flags.Bool("newest-first", false, "Sort emails newest first in the generated document (default: oldest first)")
	flags.Int("dedup-threshold", 8, "Near-duplicate fingerprint distance, 1-20")
	flags.Int("workers", 0, "Conversion workers (0 = number of CPUs)")
	flags.Bool("dry-run", false, "Convert and report without writing or moving anything")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Mirror logs into a timestamped file in this directory")

	flags.String("imap-host", "", "Fetch containers from this IMAP server instead of an input directory")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("imap-folder", "INBOX", "IMAP folder to fetch")
	flags.Int("imap-limit", 0, "Maximum number of IMAP messages to fetch (0 = all)")

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	inputDir, err := flags.GetString("input")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	outputDir, err := flags.GetString("output")
	if err != nil {
		return Config{}, err
	}
	doneDir, err := flags.GetString("done")
	if err != nil {
		return Config{}, err
	}
	stateDir, err := flags.GetString("state-dir")
	if err != nil {
		return Config{}, err
	}
	newestFirst, err := flags.GetBool("newest-first")
	if err != nil {
		return Config{}, err
	}
	dedupThreshold, err := flags.GetInt("dedup-threshold")
	if err != nil {
		return Config{}, err
	}
	workers, err := flags.GetInt("workers")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}
	imapHost, err := flags.GetString("imap-host")
	if err != nil {
		return Config{}, err
	}
	imapPort, err := flags.GetInt("imap-port")
	if err != nil {
		return Config{}, err
	}
	imapUser, err := flags.GetString("imap-user")
	if err != nil {
		return Config{}, err
	}
	imapPass, err := flags.GetString("imap-pass")
	if err != nil {
		return Config{}, err
	}
	useTLS, err := flags.GetBool("use-tls")
	if err != nil {
		return Config{}, err
	}
	insecureSkipVerify, err := flags.GetBool("insecure-skip-verify")
	if err != nil {
		return Config{}, err
	}
	imapFolder, err := flags.GetString("imap-folder")
	if err != nil {
		return Config{}, err
	}
	imapLimit, err := flags.GetInt("imap-limit")
	if err != nil {
		return Config{}, err
	}

	if imapPass == "" {
		imapPass = os.Getenv("IMAP_PASS")
	}

	if stateDir == "" {
		stateDir, err = defaultStateDir()
		if err != nil {
			return Config{}, err
		}
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		InputDir:           inputDir,
		MboxPath:           mboxPath,
		OutputDir:          outputDir,
		DoneDir:            doneDir,
		StateDir:           filepath.Clean(stateDir),
		NewestFirst:        newestFirst,
		DedupThreshold:     dedupThreshold,
		Workers:            workers,
		DryRun:             dryRun,
		LogLevel:           logLevel,
		LogDir:             logDir,
		IMAPHost:           imapHost,
		IMAPPort:           imapPort,
		IMAPUser:           imapUser,
		IMAPPass:           imapPass,
		UseTLS:             useTLS,
		InsecureSkipVerify: insecureSkipVerify,
		IMAPFolder:         imapFolder,
		IMAPLimit:          imapLimit,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	sources := 0
	if cfg.MboxPath != "" {
		sources++
	}
	if cfg.IMAPHost != "" {
		sources++
	}
	if sources > 1 {
		return fmt.Errorf("--mbox and --imap-host are mutually exclusive")
	}
	if sources == 0 && cfg.InputDir == "" {
		return fmt.Errorf("--input is required when no other source is given")
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if cfg.DedupThreshold < 1 || cfg.DedupThreshold > 20 {
		return fmt.Errorf("--dedup-threshold must be between 1 and 20")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must not be negative")
	}
	if cfg.IMAPHost != "" {
		if cfg.IMAPUser == "" {
			return fmt.Errorf("--imap-user is required with --imap-host")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".eml2md", "state"), nil
}
