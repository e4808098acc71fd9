package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cic2nf/internal/cic"
	"cic2nf/internal/logger"
	"cic2nf/internal/model"
	"cic2nf/pkg/csvsource"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Job is one input file and the meridiem hint that applies to it.
type Job struct {
	Path string
	Hint cic.Hint
}

// Result collects the outcome of a Converter run.
type Result struct {
	RunID  string
	Files  []Stats
	Failed []string
}

// Converter runs one Session per input file. Files are the unit of
// parallelism; rows of one file are always processed in order.
type Converter struct {
	schema    cic.Schema
	sinks     []model.Sink
	batchSize int
	workers   int
	log       zerolog.Logger
}

// NewConverter creates a converter writing to sinks. workers bounds the
// number of files processed at once.
func NewConverter(schema cic.Schema, sinks []model.Sink, batchSize, workers int) *Converter {
	if workers <= 0 {
		workers = 1
	}
	return &Converter{
		schema:    schema,
		sinks:     sinks,
		batchSize: batchSize,
		workers:   workers,
		log:       logger.Get("pipeline"),
	}
}

// Run converts every job. A fatal error in one file is logged and the other
// files carry on; the returned error joins all per-file errors.
func (c *Converter) Run(ctx context.Context, jobs []Job) (Result, error) {
	res := Result{RunID: uuid.NewString(), Files: make([]Stats, len(jobs))}
	log := c.log.With().Str("run_id", res.RunID).Logger()
	log.Info().
		Str("dataset", c.schema.Variant.String()).
		Int("files", len(jobs)).
		Int("workers", c.workers).
		Msg("Conversion started")

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(c.workers)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			stats, err := c.runFile(ctx, job, log)
			mu.Lock()
			defer mu.Unlock()
			res.Files[i] = stats
			if err != nil {
				errs = append(errs, err)
				res.Failed = append(res.Failed, job.Path)
			}
			// never cancel the other files
			return nil
		})
	}
	// workers record failures in errs and always return nil
	_ = g.Wait()

	log.Info().Int("files", len(jobs)).Int("failed", len(res.Failed)).Msg("Conversion finished")
	return res, errors.Join(errs...)
}

func (c *Converter) runFile(ctx context.Context, job Job, log zerolog.Logger) (Stats, error) {
	src, err := csvsource.NewReader(job.Path)
	if err != nil {
		log.Error().Err(err).Str("path", job.Path).Msg("Failed to open input file")
		return Stats{File: job.Path}, err
	}
	defer src.Close()

	session := NewSession(c.schema, src.Name(), job.Hint, c.sinks, c.batchSize, log)
	log.Info().Str("path", job.Path).Str("hint", job.Hint.String()).Msg("Processing file")

	stats, err := session.Run(ctx, src)
	if err != nil {
		log.Error().Err(err).Str("path", job.Path).Int("rows_read", stats.RowsRead).Msg("File aborted")
		return stats, fmt.Errorf("%s: %w", job.Path, err)
	}

	log.Info().
		Str("path", job.Path).
		Int("rows_read", stats.RowsRead).
		Int("accepted", stats.Repair.Accepted).
		Int("discarded_column_count", stats.Repair.DiscardedColumnCount).
		Int("discarded_empty", stats.Repair.DiscardedEmpty).
		Int("clamped_durations", stats.Build.ClampedDurations).
		Int("clamped_bytes", stats.Build.ClampedBytes).
		Int("flows", stats.TotalFlows()).
		Int("labels", len(stats.FlowsWritten)).
		Dur("elapsed", stats.Elapsed).
		Msg("File finished")
	return stats, nil
}
