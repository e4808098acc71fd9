package query

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	core "cic2nf/internal/core/model"
	"cic2nf/internal/netflow"
	"cic2nf/internal/protocol"
	"cic2nf/internal/sink"
)

var (
	// ErrLabelNotFound is returned when no file exists for a label.
	ErrLabelNotFound = errors.New("label not found")
	// ErrInvalidLabel is returned for labels that cannot name a file.
	ErrInvalidLabel = errors.New("invalid label")
)

// LabelInfo describes one label file in the output directory.
type LabelInfo struct {
	Name      string
	File      string
	SizeBytes int64
}

// Totals accumulates flow, packet and byte counts.
type Totals struct {
	Flows   uint64
	Packets uint64
	Bytes   uint64
}

func (t *Totals) add(nf *core.NetFlow) {
	t.Flows += uint64(nf.Flows)
	t.Packets += nf.Packets
	t.Bytes += nf.Bytes
}

// ProtocolTotals are the totals of one IP protocol within a label.
type ProtocolTotals struct {
	Protocol uint8
	Name     string
	Totals
}

// LabelSummary aggregates one label file.
type LabelSummary struct {
	Label     string
	Total     Totals
	First     time.Time
	Last      time.Time
	Protocols []ProtocolTotals
}

// Querier defines the interface for querying converted flow data.
type Querier interface {
	Labels(ctx context.Context) ([]LabelInfo, error)
	Flows(ctx context.Context, label string, limit int) ([]*core.NetFlow, error)
	Summary(ctx context.Context, label string) (*LabelSummary, error)
}

// fileQuerier implements the Querier interface over a directory of label files.
type fileQuerier struct {
	dir string
}

// NewFileQuerier creates a querier reading the text sink's output in dir.
func NewFileQuerier(dir string) Querier {
	return &fileQuerier{dir: dir}
}

// Labels lists every label file, sorted by name.
func (q *fileQuerier) Labels(ctx context.Context) ([]LabelInfo, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", q.dir, err)
	}

	var labels []LabelInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sink.FileExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		labels = append(labels, LabelInfo{
			Name:      strings.TrimSuffix(e.Name(), sink.FileExt),
			File:      e.Name(),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels, nil
}

func (q *fileQuerier) read(label string) ([]*core.NetFlow, error) {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	path := filepath.Join(q.dir, sink.FileName(label))
	flows, err := netflow.ReadFile(path, core.Label{Name: label})
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
	}
	return flows, err
}

// Flows returns a label's records in timestamp order. limit <= 0 means all.
func (q *fileQuerier) Flows(ctx context.Context, label string, limit int) ([]*core.NetFlow, error) {
	flows, err := q.read(label)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(flows) > limit {
		flows = flows[:limit]
	}
	return flows, nil
}

// Summary aggregates a label's records per protocol.
func (q *fileQuerier) Summary(ctx context.Context, label string) (*LabelSummary, error) {
	flows, err := q.read(label)
	if err != nil {
		return nil, err
	}

	sum := &LabelSummary{Label: label}
	byProto := make(map[uint8]*ProtocolTotals)
	for i, nf := range flows {
		if i == 0 {
			sum.First = nf.Timestamp
		}
		sum.Last = nf.Timestamp
		sum.Total.add(nf)

		pt, ok := byProto[nf.Protocol]
		if !ok {
			pt = &ProtocolTotals{Protocol: nf.Protocol, Name: protocol.Name(nf.Protocol)}
			byProto[nf.Protocol] = pt
		}
		pt.add(nf)
	}

	for _, pt := range byProto {
		sum.Protocols = append(sum.Protocols, *pt)
	}
	sort.Slice(sum.Protocols, func(i, j int) bool {
		return sum.Protocols[i].Protocol < sum.Protocols[j].Protocol
	})
	return sum, nil
}
