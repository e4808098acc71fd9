package csvsource

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cic2nf/internal/core/model"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Flow ID, Source IP, Label\n" +
	"a,10.0.0.1,BENIGN\n" +
	"\n" +
	"b, 10.0.0.2,Web Attack \x96 XSS\n" +
	"c,10.0.0.3\n"

func readAll(t *testing.T, r *Reader) ([]model.RawRow, []int) {
	t.Helper()
	var rows []model.RawRow
	var lines []int
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
		lines = append(lines, r.Line())
	}
	return rows, lines
}

func TestReader_Plain(t *testing.T) {
	r := NewReaderFrom(strings.NewReader(sample), "Tuesday.csv")
	rows, lines := readAll(t, r)

	assert.Equal(t, "Tuesday.csv", r.Name())
	assert.Equal(t, []string{"Flow ID", "Source IP", "Label"}, r.Header())
	require.Len(t, rows, 3)
	assert.Equal(t, model.RawRow{"a", "10.0.0.1", "BENIGN"}, rows[0])
	// raw bytes survive and leading spaces are trimmed
	assert.Equal(t, model.RawRow{"b", "10.0.0.2", "Web Attack \x96 XSS"}, rows[1])
	// short rows are passed through for the repairer to reject
	assert.Len(t, rows[2], 2)
	assert.Equal(t, []int{2, 4, 5}, lines)
}

func TestReader_Empty(t *testing.T) {
	r := NewReaderFrom(strings.NewReader(""), "empty.csv")
	_, err := r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestNewReader_Compressed(t *testing.T) {
	dir := t.TempDir()

	var gzBuf bytes.Buffer
	gw := gzip.NewWriter(&gzBuf)
	_, err := gw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	zstBytes := enc.EncodeAll([]byte(sample), nil)
	require.NoError(t, enc.Close())

	files := map[string][]byte{
		"flows.csv":     []byte(sample),
		"flows.csv.gz":  gzBuf.Bytes(),
		"flows.csv.zst": zstBytes,
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, data, 0o644))

			r, err := NewReader(path)
			require.NoError(t, err)
			rows, _ := readAll(t, r)
			assert.Len(t, rows, 3)
			assert.Equal(t, name, r.Name())
			assert.NoError(t, r.Close())
		})
	}
}

func TestNewReader_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewReader(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.csv.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip"), 0o644))
	_, err = NewReader(bad)
	assert.Error(t, err)
}
