package netflow

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"cic2nf/internal/core/model"
)

// TimestampLayout is the text layout of the first two columns.
const TimestampLayout = "2006-01-02 15:04:05.000"

// Layout computes the batch-wide column widths, stamps them on every record
// and sorts the batch by timestamp. Records with equal timestamps keep their
// insertion order.
func Layout(flows []*model.NetFlow) {
	var maxMs int64
	var maxBytes uint64
	for _, nf := range flows {
		if ms := nf.Duration.Milliseconds(); ms > maxMs {
			maxMs = ms
		}
		if nf.Bytes > maxBytes {
			maxBytes = nf.Bytes
		}
	}

	durWidth := digits(uint64(maxMs)) + 1
	if maxMs < 1000 {
		durWidth++
	}
	bytesWidth := digits(maxBytes)

	for _, nf := range flows {
		nf.DurationWidth = durWidth
		nf.BytesWidth = bytesWidth
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Timestamp.Before(flows[j].Timestamp)
	})
}

// digits returns the number of decimal digits in v; zero has one digit.
func digits(v uint64) int {
	return len(strconv.FormatUint(v, 10))
}

// FormatDuration renders d as seconds with millisecond precision.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%d.%03d", ms/1000, ms%1000)
}

// FormatLine renders one record without a trailing newline. Width fields
// should have been stamped by Layout first.
func FormatLine(nf *model.NetFlow) string {
	return fmt.Sprintf("%s %*s %3d %15s:%-5d -> %15s:%-5d %s %3d %3d %*d %5d",
		nf.Timestamp.UTC().Format(TimestampLayout),
		nf.DurationWidth, FormatDuration(nf.Duration),
		nf.Protocol,
		nf.Src.IP, nf.Src.Port,
		nf.Dst.IP, nf.Dst.Port,
		nf.Flags,
		nf.QoS,
		nf.Packets,
		nf.BytesWidth, nf.Bytes,
		nf.Flows,
	)
}
