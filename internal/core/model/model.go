package model

import (
	"fmt"
	"time"
)

// Direction indexes the per-direction counters of a BiFlow.
const (
	Forward  = 0
	Backward = 1
)

// Endpoint is one side of a flow.
type Endpoint struct {
	IP   string
	Port uint16
}

// FiveTuple represents the 5-tuple of a network flow.
type FiveTuple struct {
	Src      Endpoint
	Dst      Endpoint
	Protocol uint8 // e.g., TCP, UDP
}

// ConnectionID returns an identifier shared by both capture directions of the
// same connection. If both IPs are equal the lower port comes first, otherwise
// the lexicographically smaller IP comes first.
func (t FiveTuple) ConnectionID() string {
	a, b := t.Src, t.Dst
	if a.IP == b.IP {
		if b.Port < a.Port {
			a, b = b, a
		}
	} else if b.IP < a.IP {
		a, b = b, a
	}
	return fmt.Sprintf("%s-%s-%d-%d-%d", a.IP, b.IP, a.Port, b.Port, t.Protocol)
}

// Label is a ground-truth traffic class. Index 0 means unassigned and index 1
// is reserved for the benign sentinel.
type Label struct {
	Name  string
	Index uint8
}

const (
	LabelIndexUnassigned uint8 = 0
	LabelIndexBenign     uint8 = 1
)

// RawRow is one CSV line's fields. No text decoding has been applied yet, so
// each field still holds the source bytes.
type RawRow []string

// BiFlow is a canonical bidirectional flow record built from one source row.
// Index 0 of the array fields is forward, index 1 is backward.
type BiFlow struct {
	FiveTuple FiveTuple
	Start     time.Time
	Duration  time.Duration // never negative
	Packets   [2]uint64
	Bytes     [2]uint64
	Flags     Flags
	Label     Label
}

// NetFlow is a unidirectional flow record in the NetFlow text format.
type NetFlow struct {
	Timestamp time.Time
	Duration  time.Duration
	Protocol  uint8
	Src       Endpoint
	Dst       Endpoint
	Flags     Flags
	QoS       uint8
	Packets   uint64
	Bytes     uint64
	Flows     uint32
	Label     Label

	// Column widths shared by every record of one output batch.
	DurationWidth int
	BytesWidth    int
}
