package cic

import (
	"strings"

	"cic2nf/internal/core/model"

	"github.com/rs/zerolog"
)

// Verdict is the outcome of repairing one row.
type Verdict int

const (
	Accepted Verdict = iota
	DiscardedColumnCount
	DiscardedEmpty
)

func (v Verdict) String() string {
	switch v {
	case DiscardedColumnCount:
		return "column-count"
	case DiscardedEmpty:
		return "empty"
	default:
		return "accepted"
	}
}

const (
	windows1252Dash = "\x96"
	asciiDash       = "-"
)

// RepairStats counts repair outcomes for one file.
type RepairStats struct {
	Accepted             int
	DiscardedColumnCount int
	DiscardedEmpty       int
	RepairedLabels       int
	InvalidUTF8Fields    int
}

// RowRepairer validates raw rows and applies dataset-specific byte fixes
// before any field is decoded.
type RowRepairer struct {
	schema Schema
	log    zerolog.Logger
	stats  RepairStats
}

// NewRowRepairer creates a repairer for one input file.
func NewRowRepairer(schema Schema, log zerolog.Logger) *RowRepairer {
	return &RowRepairer{schema: schema, log: log}
}

// Stats returns the counters accumulated so far.
func (r *RowRepairer) Stats() RepairStats {
	return r.stats
}

// Repair validates row and returns it with every field decoded to valid UTF-8.
// Rows with the wrong number of columns are discarded with a warning, rows
// whose fields are all empty are discarded silently. A discarded row is not
// an error; the caller moves on to the next one.
func (r *RowRepairer) Repair(row model.RawRow, line int) (model.RawRow, Verdict) {
	if len(row) != r.schema.NumColumns {
		r.stats.DiscardedColumnCount++
		r.log.Warn().
			Int("line", line).
			Int("expected_columns", r.schema.NumColumns).
			Int("actual_columns", len(row)).
			Msg("Skipped CSV row with unexpected column count")
		return nil, DiscardedColumnCount
	}

	if allEmpty(row) {
		// trailing blank rows, e.g. the last ~289k lines of the Thursday
		// morning CIC-IDS-2017 export
		r.stats.DiscardedEmpty++
		r.log.Debug().Int("line", line).Msg("Skipped empty CSV row")
		return nil, DiscardedEmpty
	}

	fixed := make(model.RawRow, len(row))
	copy(fixed, row)

	// The dash fix must see the raw label bytes: after lossy decoding 0x96
	// would already be U+FFFD.
	labelIdx := r.schema.Columns.Label
	if r.schema.RepairLabelDash && strings.Contains(fixed[labelIdx], windows1252Dash) {
		fixed[labelIdx] = strings.ReplaceAll(fixed[labelIdx], windows1252Dash, asciiDash)
		r.stats.RepairedLabels++
	}

	for i, field := range fixed {
		if s, changed := SanitizeUTF8(field); changed {
			fixed[i] = s
			r.stats.InvalidUTF8Fields++
		}
	}

	r.stats.Accepted++
	return fixed, Accepted
}

func allEmpty(row model.RawRow) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}
