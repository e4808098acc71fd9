package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cic2nf/internal/cic"
	"cic2nf/internal/config"
	"cic2nf/internal/factory"
	"cic2nf/internal/logger"
	"cic2nf/internal/pipeline"
	_ "cic2nf/internal/sink" // registers the output sinks

	"github.com/rs/zerolog"
)

const (
	exitOK          = 0
	exitConfigError = 1
	exitFileFailed  = 2
)

var errConflictingHints = errors.New("conflicting meridiem flags")

// options holds the parsed command line.
type options struct {
	configPath string
	name       string
	outputDir  string
	isAM       bool
	isPM       bool
	amList     string
	workers    int
	batchSize  int
	logLevel   string
	logFormat  string
	logFile    string
	inputs     []string

	// flags given explicitly, used to override the config file
	set map[string]bool
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("csv-to-nf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: csv-to-nf [flags] <file.csv>...")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&opts.name, "name", config.DefaultDataset, "dataset name: CIC-IDS-2017 or CIC-DDoS-2019")
	fs.StringVar(&opts.outputDir, "o", config.DefaultOutputDir, "output directory for per-label .nf files")
	fs.BoolVar(&opts.isAM, "is-am", false, "all files were recorded in the morning")
	fs.BoolVar(&opts.isPM, "is-pm", false, "all files were recorded in the evening")
	fs.StringVar(&opts.amList, "is-am-list", "", "comma separated hint per file: 0|n|none, 1|a|am, 2|p|pm")
	fs.IntVar(&opts.workers, "workers", config.DefaultWorkers, "number of files converted in parallel")
	fs.IntVar(&opts.batchSize, "batch-size", config.DefaultBatchSize, "accepted rows per output batch")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&opts.logFormat, "log-format", "console", "log format: console or json")
	fs.StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	opts.inputs = fs.Args()

	if opts.isAM && opts.isPM {
		return nil, fmt.Errorf("%w: -is-am and -is-pm are exclusive", errConflictingHints)
	}
	if opts.amList != "" && (opts.isAM || opts.isPM) {
		return nil, fmt.Errorf("%w: -is-am-list cannot be combined with -is-am or -is-pm", errConflictingHints)
	}
	if len(opts.inputs) == 0 {
		fs.Usage()
		return nil, errors.New("no input files")
	}
	return opts, nil
}

// loadConfig reads the config file, if any, and applies explicit flags on top.
func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	if opts.set["name"] || opts.configPath == "" {
		cfg.Dataset = opts.name
	}
	if opts.set["o"] || opts.configPath == "" {
		cfg.OutputDir = opts.outputDir
	}
	if opts.set["workers"] {
		cfg.Workers = opts.workers
	}
	if opts.set["batch-size"] {
		cfg.BatchSize = opts.batchSize
	}
	if opts.set["log-level"] {
		cfg.Log.Level = opts.logLevel
	}
	if opts.set["log-format"] {
		cfg.Log.Format = opts.logFormat
	}
	if opts.set["log-file"] {
		cfg.Log.File = opts.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildJobs pairs every input with its meridiem hint.
func buildJobs(opts *options, log zerolog.Logger) ([]pipeline.Job, error) {
	var hints []cic.Hint
	switch {
	case opts.isAM:
		hints = []cic.Hint{cic.Morning}
	case opts.isPM:
		hints = []cic.Hint{cic.Evening}
	case opts.amList != "":
		for _, s := range strings.Split(opts.amList, ",") {
			h, err := cic.ParseHint(s)
			if err != nil {
				return nil, err
			}
			hints = append(hints, h)
		}
	}

	if opts.isAM || opts.isPM {
		// a global hint applies to every file without a warning
		for len(hints) < len(opts.inputs) {
			hints = append(hints, hints[0])
		}
	}
	hints = cic.ExpandHints(hints, len(opts.inputs), log)

	jobs := make([]pipeline.Job, len(opts.inputs))
	for i, path := range opts.inputs {
		jobs[i] = pipeline.Job{Path: path, Hint: hints[i]}
	}
	return jobs, nil
}

func run(args []string) int {
	opts, err := parseArgs(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "csv-to-nf: %v\n", err)
		return exitConfigError
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csv-to-nf: failed to load config: %v\n", err)
		return exitConfigError
	}

	closer := logger.Setup(cfg.Log.Level, cfg.Log.Format, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	defer closer.Close()
	log := logger.Get("csv-to-nf")

	variant, err := cic.ParseVariant(cfg.Dataset)
	if err != nil {
		log.Error().Err(err).Msg("Unsupported dataset")
		return exitConfigError
	}
	schema, err := cic.SchemaFor(variant)
	if err != nil {
		log.Error().Err(err).Msg("Unsupported dataset")
		return exitConfigError
	}

	jobs, err := buildJobs(opts, log)
	if err != nil {
		log.Error().Err(err).Msg("Invalid -is-am-list")
		return exitConfigError
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", cfg.OutputDir).Msg("Failed to create output directory")
		return exitConfigError
	}

	sinks, err := factory.Create(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create sinks")
		return exitConfigError
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Str("sink", s.Name()).Msg("Failed to close sink")
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv := pipeline.NewConverter(schema, sinks, cfg.BatchSize, cfg.Workers)
	res, err := conv.Run(ctx, jobs)
	if err != nil {
		log.Error().Err(err).Strs("failed", res.Failed).Msg("Some files could not be converted")
		return exitFileFailed
	}

	log.Info().Str("run_id", res.RunID).Str("output_dir", cfg.OutputDir).Msg("All files converted")
	return exitOK
}

func main() {
	os.Exit(run(os.Args[1:]))
}
