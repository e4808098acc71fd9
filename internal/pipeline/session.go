package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cic2nf/internal/cic"
	core "cic2nf/internal/core/model"
	"cic2nf/internal/model"
	"cic2nf/internal/netflow"

	"github.com/rs/zerolog"
)

// Stats summarizes the processing of one input file.
type Stats struct {
	File         string
	RowsRead     int
	Repair       cic.RepairStats
	Build        cic.BuildStats
	Batches      int
	FlowsWritten map[string]int
	Labels       []core.Label
	Elapsed      time.Duration
}

// TotalFlows returns the number of NetFlow records handed to the sinks.
func (s Stats) TotalFlows() int {
	n := 0
	for _, c := range s.FlowsWritten {
		n += c
	}
	return n
}

// Session converts one input file. It owns all per-file parser state and
// must not be reused for another file.
type Session struct {
	file      string
	sinks     []model.Sink
	batchSize int
	log       zerolog.Logger

	repairer *cic.RowRepairer
	builder  *cic.RecordBuilder

	batch []core.BiFlow
	start time.Time
	stats Stats
}

// NewSession creates the state for one file. name is the file's base name;
// for CIC-IDS-2017 it seeds the time-of-day phase.
func NewSession(schema cic.Schema, name string, hint cic.Hint, sinks []model.Sink, batchSize int, log zerolog.Logger) *Session {
	log = log.With().Str("file", name).Logger()
	times := cic.NewResolverForFile(schema, name, hint, log)
	labels := cic.NewLabelSet(schema.Benign)

	if batchSize <= 0 {
		batchSize = 1
	}
	return &Session{
		file:      name,
		sinks:     sinks,
		batchSize: batchSize,
		log:       log,
		repairer:  cic.NewRowRepairer(schema, log),
		builder:   cic.NewRecordBuilder(schema, times, labels, log),
		batch:     make([]core.BiFlow, 0, min(batchSize, 1<<16)),
		stats:     Stats{File: name, FlowsWritten: make(map[string]int)},
	}
}

// Run reads src to the end. Rows are repaired and built in file order and
// written to the sinks every batchSize accepted rows. The first fatal error
// stops the file; batches already written stay written.
func (s *Session) Run(ctx context.Context, src model.RowSource) (Stats, error) {
	s.start = time.Now()

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(), err
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.finish(), fmt.Errorf("%s: line %d: %w", s.file, src.Line(), err)
		}
		s.stats.RowsRead++

		fixed, verdict := s.repairer.Repair(row, src.Line())
		if verdict != cic.Accepted {
			continue
		}

		rec, err := s.builder.Build(fixed, src.Line())
		if err != nil {
			return s.finish(), fmt.Errorf("%s: %w", s.file, err)
		}
		s.batch = append(s.batch, rec)

		if len(s.batch) >= s.batchSize {
			if err := s.flush(ctx); err != nil {
				return s.finish(), err
			}
		}
	}

	if err := s.flush(ctx); err != nil {
		return s.finish(), err
	}
	return s.finish(), nil
}

// flush splits, lays out and categorizes the pending batch, then hands every
// label group to every sink.
func (s *Session) flush(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	flows := netflow.SplitAll(s.batch)
	s.batch = s.batch[:0]
	netflow.Layout(flows)
	groups := netflow.Categorize(flows)

	for _, label := range netflow.SortedLabels(groups) {
		group := groups[label]
		for _, sink := range s.sinks {
			if err := sink.Write(ctx, label, group); err != nil {
				return fmt.Errorf("%s: sink %s: label %q: %w", s.file, sink.Name(), label, err)
			}
		}
		s.stats.FlowsWritten[label] += len(group)
	}

	s.stats.Batches++
	s.log.Debug().Int("batch", s.stats.Batches).Int("flows", len(flows)).Int("labels", len(groups)).Msg("Flushed batch")
	return nil
}

func (s *Session) finish() Stats {
	s.stats.Repair = s.repairer.Stats()
	s.stats.Build = s.builder.Stats()
	s.stats.Labels = s.builder.Labels().Labels()
	s.stats.Elapsed = time.Since(s.start)
	return s.stats
}
