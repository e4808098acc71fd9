package model

import (
	"context"

	core "cic2nf/internal/core/model"
)

// Sink defines a generic interface for persisting categorized NetFlow records.
type Sink interface {
	// Write appends one label's records in the given order. Record sinks
	// (text, clickhouse, nats) must not truncate or reorder what they already
	// hold. Aggregate sinks may replace their output on Close.
	Write(ctx context.Context, label string, flows []*core.NetFlow) error

	// Name identifies the sink in logs.
	Name() string

	// Close flushes any buffered state and releases resources.
	Close() error
}
