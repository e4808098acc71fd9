package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"cic2nf/internal/cic"
	core "cic2nf/internal/core/model"
	"cic2nf/internal/model"
	"cic2nf/internal/sink"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flowRow describes the fields of a synthetic CIC row that matter here.
type flowRow struct {
	src, dst         core.Endpoint
	ts               string
	fwdPkts, bwdPkts string
	label            string
}

func (r flowRow) fields(schema cic.Schema) core.RawRow {
	row := make(core.RawRow, schema.NumColumns)
	for i := range row {
		row[i] = "0"
	}
	c := schema.Columns
	row[c.SrcIP], row[c.SrcPort] = r.src.IP, itoa(r.src.Port)
	row[c.DstIP], row[c.DstPort] = r.dst.IP, itoa(r.dst.Port)
	row[c.Protocol] = "6"
	row[c.Timestamp] = r.ts
	row[c.Duration] = "2000"
	row[c.FwdPackets], row[c.BwdPackets] = r.fwdPkts, r.bwdPkts
	row[c.FwdPayload], row[c.BwdPayload] = "100", "200"
	row[c.Label] = r.label
	return row
}

func itoa(p uint16) string { return strconv.Itoa(int(p)) }

var (
	client = core.Endpoint{IP: "192.168.10.5", Port: 49188}
	server = core.Endpoint{IP: "192.168.10.3", Port: 80}
)

// sliceSource is an in-memory model.RowSource.
type sliceSource struct {
	name string
	rows []core.RawRow
	pos  int
}

func (s *sliceSource) Next() (core.RawRow, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	s.pos++
	return s.rows[s.pos-1], nil
}

// Line mimics a CSV file with a header line.
func (s *sliceSource) Line() int    { return s.pos + 1 }
func (s *sliceSource) Name() string { return s.name }

// recordingSink remembers every Write call.
type recordingSink struct {
	mu     sync.Mutex
	writes map[string][][]*core.NetFlow
	fail   error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{writes: make(map[string][][]*core.NetFlow)}
}

func (s *recordingSink) Write(_ context.Context, label string, flows []*core.NetFlow) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[label] = append(s.writes[label], flows)
	return nil
}

func (s *recordingSink) Name() string { return "recording" }
func (s *recordingSink) Close() error { return nil }

func ids2017(t *testing.T) cic.Schema {
	t.Helper()
	schema, err := cic.SchemaFor(cic.IDS2017)
	require.NoError(t, err)
	return schema
}

const tuesday = "Tuesday-WorkingHours.pcap_ISCX.csv"

func TestSession_EndToEnd(t *testing.T) {
	schema := ids2017(t)
	dir := t.TempDir()
	text, err := sink.NewTextSink(dir)
	require.NoError(t, err)

	src := &sliceSource{name: tuesday, rows: []core.RawRow{
		flowRow{src: client, dst: server, ts: "4/7/2017 8:56", fwdPkts: "3", bwdPkts: "0", label: "BENIGN"}.fields(schema),
		flowRow{src: server, dst: client, ts: "4/7/2017 8:55", fwdPkts: "0", bwdPkts: "7", label: "BENIGN"}.fields(schema),
	}}

	stats, err := NewSession(schema, src.Name(), cic.NoHint, []model.Sink{text}, 100, zerolog.Nop()).
		Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"BENIGN": 2}, stats.FlowsWritten)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "BENIGN.nf", entries[0].Name())

	data, err := os.ReadFile(filepath.Join(dir, "BENIGN.nf"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	// the 8:55 row comes first
	assert.True(t, strings.HasPrefix(lines[0], "2017-07-04 08:55:00.000"))
	assert.True(t, strings.HasPrefix(lines[1], "2017-07-04 08:56:00.000"))
	assert.Equal(t, "7", strings.Fields(lines[0])[9])
	assert.Equal(t, "3", strings.Fields(lines[1])[9])
	assert.Contains(t, lines[0], "   7 ")
	assert.Contains(t, lines[1], "   3 ")
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, "    1"), line)
		// both records run client -> server
		assert.Contains(t, line, "192.168.10.5:49188 ->    192.168.10.3:80   ")
	}
}

func TestSession_BatchesAndStats(t *testing.T) {
	schema := ids2017(t)
	rec := newRecordingSink()

	rows := []core.RawRow{
		flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "2", label: "BENIGN"}.fields(schema),
		make(core.RawRow, 10),
		flowRow{src: client, dst: server, ts: "4/7/2017 9:01", fwdPkts: "1", bwdPkts: "0", label: "DoS Hulk"}.fields(schema),
		make(core.RawRow, schema.NumColumns),
		flowRow{src: client, dst: server, ts: "4/7/2017 9:02", fwdPkts: "0", bwdPkts: "1", label: "DoS Hulk"}.fields(schema),
	}
	src := &sliceSource{name: tuesday, rows: rows}

	stats, err := NewSession(schema, src.Name(), cic.NoHint, []model.Sink{rec}, 2, zerolog.Nop()).
		Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 3, stats.Repair.Accepted)
	assert.Equal(t, 1, stats.Repair.DiscardedColumnCount)
	assert.Equal(t, 1, stats.Repair.DiscardedEmpty)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 4, stats.TotalFlows())
	assert.Equal(t, map[string]int{"BENIGN": 2, "DoS Hulk": 2}, stats.FlowsWritten)
	assert.Equal(t, []core.Label{{Name: "BENIGN", Index: 1}, {Name: "DoS Hulk", Index: 2}}, stats.Labels)

	// first batch holds rows 1 and 3, second batch row 5
	require.Len(t, rec.writes["DoS Hulk"], 2)
	assert.Len(t, rec.writes["DoS Hulk"][0], 1)
	assert.Len(t, rec.writes["DoS Hulk"][1], 1)
}

func TestSession_FatalFieldNamesFileAndLine(t *testing.T) {
	schema := ids2017(t)
	rec := newRecordingSink()

	bad := flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "2", label: "BENIGN"}.fields(schema)
	bad[schema.Columns.SrcPort] = "http"
	src := &sliceSource{name: tuesday, rows: []core.RawRow{
		flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "2", label: "BENIGN"}.fields(schema),
		bad,
	}}

	stats, err := NewSession(schema, src.Name(), cic.NoHint, []model.Sink{rec}, 1, zerolog.Nop()).
		Run(context.Background(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), tuesday)
	assert.Contains(t, err.Error(), "line 3")

	var fe *cic.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "source port", fe.Field)

	// the batch before the bad row was already written
	assert.Equal(t, 2, stats.TotalFlows())
}

func TestSession_SinkError(t *testing.T) {
	schema := ids2017(t)
	rec := newRecordingSink()
	rec.fail = errors.New("disk full")

	src := &sliceSource{name: tuesday, rows: []core.RawRow{
		flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "2", label: "BENIGN"}.fields(schema),
	}}
	_, err := NewSession(schema, src.Name(), cic.NoHint, []model.Sink{rec}, 10, zerolog.Nop()).
		Run(context.Background(), src)
	assert.ErrorContains(t, err, "disk full")
}

func writeCSV(t *testing.T, dir, name string, schema cic.Schema, rows ...core.RawRow) string {
	t.Helper()
	var sb strings.Builder
	header := make([]string, schema.NumColumns)
	for i := range header {
		header[i] = "col"
	}
	sb.WriteString(strings.Join(header, ",") + "\n")
	for _, row := range rows {
		sb.WriteString(strings.Join(row, ",") + "\n")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestConverter_FileFailureIsIsolated(t *testing.T) {
	schema := ids2017(t)
	in := t.TempDir()
	out := t.TempDir()

	good := writeCSV(t, in, tuesday, schema,
		flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "1", label: "BENIGN"}.fields(schema))
	badRow := flowRow{src: client, dst: server, ts: "4/7/2017 9:00", fwdPkts: "2", bwdPkts: "1", label: "PortScan"}.fields(schema)
	badRow[schema.Columns.Timestamp] = "not a time"
	bad := writeCSV(t, in, "Friday-WorkingHours-Afternoon-PortScan.pcap_ISCX.csv", schema, badRow)
	missing := filepath.Join(in, "missing.csv")

	text, err := sink.NewTextSink(out)
	require.NoError(t, err)

	conv := NewConverter(schema, []model.Sink{text}, 100, 2)
	res, err := conv.Run(context.Background(), []Job{{Path: good}, {Path: bad}, {Path: missing}})
	require.Error(t, err)
	assert.ErrorIs(t, err, cic.ErrUnknownTimestampFormat)
	assert.ElementsMatch(t, []string{bad, missing}, res.Failed)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Files, 3)
	assert.Equal(t, 2, res.Files[0].TotalFlows())

	data, err := os.ReadFile(filepath.Join(out, "BENIGN.nf"))
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	_, err = os.Stat(filepath.Join(out, "PortScan.nf"))
	assert.True(t, os.IsNotExist(err))
}
