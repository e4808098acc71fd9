package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cic2nf/internal/core/model"
)

// SummaryFile is the file name the summary sink writes on Close.
const SummaryFile = "summary.json"

// LabelSummary holds the totals of one label.
type LabelSummary struct {
	Label   string    `json:"label"`
	Index   uint8     `json:"index"`
	Flows   uint64    `json:"flows"`
	Packets uint64    `json:"packets"`
	Bytes   uint64    `json:"bytes"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// SummaryData is the content of summary.json.
type SummaryData struct {
	GeneratedAt string         `json:"generated_at"`
	TotalFlows  uint64         `json:"total_flows"`
	Labels      []LabelSummary `json:"labels"`
}

// SummarySink accumulates per-label totals and writes them as JSON on Close.
type SummarySink struct {
	dir string

	mu     sync.Mutex
	labels map[string]*LabelSummary
}

// NewSummarySink returns a sink writing dir/summary.json.
func NewSummarySink(dir string) *SummarySink {
	return &SummarySink{dir: dir, labels: make(map[string]*LabelSummary)}
}

func (s *SummarySink) Name() string { return "summary" }

func (s *SummarySink) Write(_ context.Context, label string, flows []*model.NetFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, nf := range flows {
		sum, ok := s.labels[label]
		if !ok {
			sum = &LabelSummary{Label: label, Index: nf.Label.Index, First: nf.Timestamp, Last: nf.Timestamp}
			s.labels[label] = sum
		}
		sum.Flows += uint64(nf.Flows)
		sum.Packets += nf.Packets
		sum.Bytes += nf.Bytes
		if nf.Timestamp.Before(sum.First) {
			sum.First = nf.Timestamp
		}
		if nf.Timestamp.After(sum.Last) {
			sum.Last = nf.Timestamp
		}
	}
	return nil
}

// Snapshot returns the current totals sorted by label.
func (s *SummarySink) Snapshot() SummaryData {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := SummaryData{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Labels:      make([]LabelSummary, 0, len(s.labels)),
	}
	for _, sum := range s.labels {
		data.Labels = append(data.Labels, *sum)
		data.TotalFlows += sum.Flows
	}
	sort.Slice(data.Labels, func(i, j int) bool {
		return data.Labels[i].Label < data.Labels[j].Label
	})
	return data
}

// Close writes summary.json, replacing the file of an earlier run.
func (s *SummarySink) Close() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}
	summaryFilePath := filepath.Join(s.dir, SummaryFile)
	summaryFile, err := os.Create(summaryFilePath)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	jsonEncoder := json.NewEncoder(summaryFile)
	jsonEncoder.SetIndent("", "  ")
	if err := jsonEncoder.Encode(s.Snapshot()); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}
