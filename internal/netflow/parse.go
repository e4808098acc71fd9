package netflow

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cic2nf/internal/core/model"
)

// ErrMalformedLine is returned when a text line does not have the NetFlow
// column structure.
var ErrMalformedLine = errors.New("malformed netflow line")

const lineFields = 12

// ParseLine is the inverse of FormatLine. The label is not part of the text
// and must be supplied by the caller, usually from the file name.
func ParseLine(line string, label model.Label) (*model.NetFlow, error) {
	f := strings.Fields(line)
	if len(f) != lineFields || f[5] != "->" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	ts, err := time.Parse(TimestampLayout, f[0]+" "+f[1])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	dur, err := ParseDuration(f[2])
	if err != nil {
		return nil, err
	}
	proto, err := strconv.ParseUint(f[3], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("protocol: %w", err)
	}
	src, err := parseEndpoint(f[4])
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	dst, err := parseEndpoint(f[6])
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	flags, err := model.ParseFlags(f[7])
	if err != nil {
		return nil, err
	}
	qos, err := strconv.ParseUint(f[8], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	packets, err := strconv.ParseUint(f[9], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("packets: %w", err)
	}
	bytes, err := strconv.ParseUint(f[10], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bytes: %w", err)
	}
	flows, err := strconv.ParseUint(f[11], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("flows: %w", err)
	}

	return &model.NetFlow{
		Timestamp: ts,
		Duration:  dur,
		Protocol:  uint8(proto),
		Src:       src,
		Dst:       dst,
		Flags:     flags,
		QoS:       uint8(qos),
		Packets:   packets,
		Bytes:     bytes,
		Flows:     uint32(flows),
		Label:     label,
	}, nil
}

// ParseDuration reads the "s.mmm" duration column.
func ParseDuration(s string) (time.Duration, error) {
	secs, frac, ok := strings.Cut(s, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("duration %q: %w", s, ErrMalformedLine)
	}
	sv, err := strconv.ParseUint(secs, 10, 63)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	ms, err := strconv.ParseUint(frac, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	return time.Duration(sv)*time.Second + time.Duration(ms)*time.Millisecond, nil
}

// parseEndpoint splits on the last colon so IPv6 addresses survive.
func parseEndpoint(s string) (model.Endpoint, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return model.Endpoint{}, fmt.Errorf("%w: endpoint %q", ErrMalformedLine, s)
	}
	port, err := strconv.ParseUint(s[i+1:], 10, 16)
	if err != nil {
		return model.Endpoint{}, fmt.Errorf("port %q: %w", s[i+1:], err)
	}
	return model.Endpoint{IP: s[:i], Port: uint16(port)}, nil
}

// ReadFile loads every record of a label file. Blank lines are skipped. The
// widths are recomputed and the records re-sorted as one batch.
func ReadFile(path string, label model.Label) ([]*model.NetFlow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var flows []*model.NetFlow
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		nf, err := ParseLine(line, label)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, err)
		}
		flows = append(flows, nf)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	Layout(flows)
	return flows, nil
}
