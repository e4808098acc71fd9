// Package csvsource reads CIC flow CSV exports row by row, transparently
// decompressing .gz and .zst files.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cic2nf/internal/core/model"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Reader reads rows from a CSV file. The first line is treated as the header
// and is never returned by Next.
type Reader struct {
	name    string
	csv     *csv.Reader
	closers []func() error
	header  []string
	line    int
}

// NewReader opens the CSV file at filePath. Files ending in .gz or .zst are
// decompressed on the fly.
func NewReader(filePath string) (*Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	closers := []func() error{f.Close}

	var in io.Reader = f
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".gz":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", filePath, err)
		}
		in = gz
		closers = append(closers, gz.Close)
	case ".zst", ".zstd":
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", filePath, err)
		}
		in = dec
		closers = append(closers, func() error { dec.Close(); return nil })
	}

	r := NewReaderFrom(in, filepath.Base(filePath))
	r.closers = closers
	return r, nil
}

// NewReaderFrom wraps an already opened stream. name is reported by Name and
// should be the source file name.
func NewReaderFrom(in io.Reader, name string) *Reader {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return &Reader{name: name, csv: cr}
}

// Name returns the base name of the source file.
func (r *Reader) Name() string {
	return r.name
}

// Line returns the 1-based input line of the row last returned by Next.
func (r *Reader) Line() int {
	return r.line
}

// Header returns the header fields once the first row has been read.
func (r *Reader) Header() []string {
	return r.header
}

// Next returns the next data row, or io.EOF when the input is exhausted.
// Field count is not checked here.
func (r *Reader) Next() (model.RawRow, error) {
	if r.header == nil {
		header, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("%s: failed to read header: %w", r.name, err)
		}
		r.header = header
	}

	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%s: %w", r.name, err)
	}
	r.line, _ = r.csv.FieldPos(0)
	return model.RawRow(record), nil
}

// Close releases the underlying file and decompressor.
func (r *Reader) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
