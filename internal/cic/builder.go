package cic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cic2nf/internal/core/model"

	"github.com/rs/zerolog"
)

// FieldError reports a field that could not be decoded. It is fatal for the
// file the row came from.
type FieldError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("line %d: field %s (%q): %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// BuildStats counts values the builder had to coerce.
type BuildStats struct {
	Records          int
	ClampedDurations int
	ClampedBytes     int
}

// RecordBuilder assembles BiFlow records from repaired rows. It owns the
// per-file resolver state, so rows must be fed in file order.
type RecordBuilder struct {
	schema Schema
	times  *TimestampResolver
	counts *NumericResolver
	bytes  *NumericResolver
	labels *LabelSet
	log    zerolog.Logger
	stats  BuildStats
}

// NewRecordBuilder wires a builder from its per-file collaborators.
func NewRecordBuilder(schema Schema, times *TimestampResolver, labels *LabelSet, log zerolog.Logger) *RecordBuilder {
	return &RecordBuilder{
		schema: schema,
		times:  times,
		counts: NewNumericResolver(false),
		bytes:  NewNumericResolver(false),
		labels: labels,
		log:    log,
	}
}

// Stats returns the counters accumulated so far.
func (b *RecordBuilder) Stats() BuildStats {
	return b.stats
}

// Labels returns the label set the builder registers names in.
func (b *RecordBuilder) Labels() *LabelSet {
	return b.labels
}

// Build decodes one repaired row.
func (b *RecordBuilder) Build(row model.RawRow, line int) (model.BiFlow, error) {
	c := b.schema.Columns
	fail := func(field string, idx int, err error) (model.BiFlow, error) {
		return model.BiFlow{}, &FieldError{Line: line, Field: field, Value: row[idx], Err: err}
	}

	var rec model.BiFlow
	var err error

	rec.FiveTuple.Src.IP = strings.TrimSpace(row[c.SrcIP])
	rec.FiveTuple.Dst.IP = strings.TrimSpace(row[c.DstIP])
	if rec.FiveTuple.Src.Port, err = parsePort(row[c.SrcPort]); err != nil {
		return fail("source port", c.SrcPort, err)
	}
	if rec.FiveTuple.Dst.Port, err = parsePort(row[c.DstPort]); err != nil {
		return fail("destination port", c.DstPort, err)
	}
	if rec.FiveTuple.Protocol, err = parseProtocol(row[c.Protocol]); err != nil {
		return fail("protocol", c.Protocol, err)
	}

	ts, err := b.times.Resolve(row[c.Timestamp])
	if err != nil {
		return fail("timestamp", c.Timestamp, err)
	}
	rec.Start = ts.Time

	micros, err := strconv.ParseInt(strings.TrimSpace(row[c.Duration]), 10, 64)
	if err != nil {
		return fail("duration", c.Duration, err)
	}
	if micros < 0 {
		b.stats.ClampedDurations++
		b.log.Warn().
			Int("line", line).
			Int64("duration_us", micros).
			Str("connection", rec.FiveTuple.ConnectionID()).
			Msg("Negative duration is converted to 0")
		micros = 0
	}
	rec.Duration = time.Duration(micros) * time.Microsecond

	if rec.Packets, err = b.counts.ResolvePair(row[c.FwdPackets], row[c.BwdPackets]); err != nil {
		return fail("packet counts", c.FwdPackets, err)
	}

	totals, err := b.bytes.ResolveBytes(row[c.FwdHeader], row[c.BwdHeader], row[c.FwdPayload], row[c.BwdPayload])
	if err != nil {
		return fail("byte counts", c.FwdHeader, err)
	}
	rec.Bytes = totals.Bytes
	for dir, clamped := range totals.Clamped {
		if clamped {
			b.stats.ClampedBytes++
			b.log.Warn().
				Int("line", line).
				Int("direction", dir).
				Str("connection", rec.FiveTuple.ConnectionID()).
				Msg("Negative byte total is converted to 0")
		}
	}

	var counters [NumFlagColumns]string
	for i, idx := range c.Flags {
		counters[i] = row[idx]
	}
	if rec.Flags, err = DecodeFlags(counters); err != nil {
		return fail("flags", c.Flags[0], err)
	}

	rec.Label = b.labels.Assign(FixLabel(row[c.Label]))

	b.stats.Records++
	return rec, nil
}

// FixLabel trims a label and replaces decoding artifacts (U+FFFD) with a dash.
func FixLabel(s string) string {
	s = strings.TrimSpace(s)
	if strings.ContainsRune(s, '\uFFFD') {
		s = strings.ReplaceAll(s, "\uFFFD", "-")
	}
	return s
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	return uint16(v), err
}

func parseProtocol(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8)
	return uint8(v), err
}
