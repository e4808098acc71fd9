// Package sink holds the output sinks records are written to after
// categorization. Every sink registers itself with the factory.
package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cic2nf/internal/core/model"
	"cic2nf/internal/logger"
	"cic2nf/internal/netflow"

	"github.com/rs/zerolog"
)

// FileExt is the extension of per-label NetFlow text files.
const FileExt = ".nf"

const unlabeledFile = "unlabeled"

// TextSink appends NetFlow text lines to one file per label.
type TextSink struct {
	dir string
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTextSink creates dir if needed and returns a sink writing into it.
func NewTextSink(dir string) (*TextSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &TextSink{
		dir:   dir,
		log:   logger.Get("sink.text"),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *TextSink) Name() string { return "text" }

// FileName maps a label to its file name. Path separators in the label are
// replaced so every label stays inside the output directory.
func FileName(label string) string {
	if label == "" {
		label = unlabeledFile
	}
	label = strings.ReplaceAll(label, "/", "_")
	label = strings.ReplaceAll(label, string(filepath.Separator), "_")
	return label + FileExt
}

// Path returns the file a label's records are appended to.
func (s *TextSink) Path(label string) string {
	return filepath.Join(s.dir, FileName(label))
}

// lockFor serializes writers of the same label file so lines of two batches
// never interleave.
func (s *TextSink) lockFor(label string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[label]
	if !ok {
		l = &sync.Mutex{}
		s.locks[label] = l
	}
	return l
}

// Write appends flows to the label's file, creating it on first use.
func (s *TextSink) Write(ctx context.Context, label string, flows []*model.NetFlow) error {
	if len(flows) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.lockFor(label)
	lock.Lock()
	defer lock.Unlock()

	path := s.Path(label)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open label file '%s': %w", path, err)
	}

	w := bufio.NewWriterSize(file, 256*1024)
	for _, nf := range flows {
		w.WriteString(netflow.FormatLine(nf))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write label file '%s': %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close label file '%s': %w", path, err)
	}

	s.log.Debug().Str("label", label).Int("flows", len(flows)).Str("path", path).Msg("Appended flows")
	return nil
}

// Close is a no-op; every Write closes its file.
func (s *TextSink) Close() error { return nil }
