// Package netflow turns canonical bidirectional flows into unidirectional
// NetFlow text records and reads them back.
package netflow

import "cic2nf/internal/core/model"

// Split converts one bidirectional flow into at most two unidirectional ones.
// Slot 0 is the forward direction and slot 1 the backward direction with the
// endpoints swapped; a slot is nil when its direction carried no packets.
func Split(rec model.BiFlow) [2]*model.NetFlow {
	var out [2]*model.NetFlow
	ends := [2][2]model.Endpoint{
		model.Forward:  {rec.FiveTuple.Src, rec.FiveTuple.Dst},
		model.Backward: {rec.FiveTuple.Dst, rec.FiveTuple.Src},
	}
	for dir := range out {
		if rec.Packets[dir] == 0 {
			continue
		}
		out[dir] = &model.NetFlow{
			Timestamp: rec.Start,
			Duration:  rec.Duration,
			Protocol:  rec.FiveTuple.Protocol,
			Src:       ends[dir][0],
			Dst:       ends[dir][1],
			Flags:     rec.Flags,
			QoS:       0,
			Packets:   rec.Packets[dir],
			Bytes:     rec.Bytes[dir],
			Flows:     1,
			Label:     rec.Label,
		}
	}
	return out
}

// SplitAll splits every record and returns the non-nil results in order.
func SplitAll(recs []model.BiFlow) []*model.NetFlow {
	out := make([]*model.NetFlow, 0, len(recs)*2)
	for _, rec := range recs {
		for _, nf := range Split(rec) {
			if nf != nil {
				out = append(out, nf)
			}
		}
	}
	return out
}
