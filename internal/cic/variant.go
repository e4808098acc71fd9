// Package cic adapts the CSV exports of the CIC intrusion-detection datasets
// into canonical bidirectional flow records.
//
// Each supported dataset variant has its own column layout and its own data
// quality problems. The Schema returned by SchemaFor captures the layout; the
// RowRepairer, TimestampResolver, NumericResolver and RecordBuilder work off
// it so that everything variant-specific is decided once per input file.
package cic

import (
	"errors"
	"fmt"

	"cic2nf/internal/core/model"
)

// Variant identifies a supported dataset export format.
type Variant int

const (
	IDS2017 Variant = iota + 1
	DDoS2019
)

// ErrUnknownVariant is returned for dataset names or values outside the supported set.
var ErrUnknownVariant = errors.New("unknown dataset variant")

// Variants lists every supported variant.
func Variants() []Variant {
	return []Variant{IDS2017, DDoS2019}
}

func (v Variant) String() string {
	switch v {
	case IDS2017:
		return "CIC-IDS-2017"
	case DDoS2019:
		return "CIC-DDoS-2019"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant maps a dataset name such as "CIC-IDS-2017" to its Variant.
func ParseVariant(name string) (Variant, error) {
	for _, v := range Variants() {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// BenignLabelName is the label both datasets use for background traffic.
const BenignLabelName = "BENIGN"

// Columns holds the 0-based positions of every field the decoders read.
type Columns struct {
	SrcIP, SrcPort int
	DstIP, DstPort int
	Protocol       int
	Timestamp      int
	Duration       int
	FwdPackets     int
	BwdPackets     int
	FwdPayload     int
	BwdPayload     int
	FwdHeader      int
	BwdHeader      int
	Flags          [NumFlagColumns]int
	Label          int
}

// Schema is the per-variant layout and behaviour switches.
type Schema struct {
	Variant    Variant
	NumColumns int
	Benign     model.Label
	Columns    Columns

	// TwelveHourClock marks sources whose timestamps carry no AM/PM marker.
	TwelveHourClock bool
	// RepairLabelDash enables the Windows-1252 dash fix on the label field.
	RepairLabelDash bool
}

// SchemaFor returns the layout of v. An unknown variant is a programming or
// configuration error, never a data error.
func SchemaFor(v Variant) (Schema, error) {
	benign := model.Label{Name: BenignLabelName, Index: model.LabelIndexBenign}
	switch v {
	case IDS2017:
		return Schema{
			Variant:    v,
			NumColumns: 85,
			Benign:     benign,
			Columns: Columns{
				SrcIP: 1, SrcPort: 2,
				DstIP: 3, DstPort: 4,
				Protocol:   5,
				Timestamp:  6,
				Duration:   7,
				FwdPackets: 8, BwdPackets: 9,
				FwdPayload: 10, BwdPayload: 11,
				FwdHeader: 40, BwdHeader: 41,
				Flags: [NumFlagColumns]int{36, 37, 38, 39, 49, 50, 51, 52, 53, 54, 55, 56},
				Label: 84,
			},
			TwelveHourClock: true,
			RepairLabelDash: true,
		}, nil
	case DDoS2019:
		return Schema{
			Variant:    v,
			NumColumns: 88,
			Benign:     benign,
			Columns: Columns{
				SrcIP: 2, SrcPort: 3,
				DstIP: 4, DstPort: 5,
				Protocol:   6,
				Timestamp:  7,
				Duration:   8,
				FwdPackets: 9, BwdPackets: 10,
				FwdPayload: 11, BwdPayload: 12,
				FwdHeader: 41, BwdHeader: 42,
				Flags: [NumFlagColumns]int{37, 38, 39, 40, 50, 51, 52, 53, 54, 55, 56, 57},
				Label: 87,
			},
		}, nil
	default:
		return Schema{}, fmt.Errorf("%w: %s", ErrUnknownVariant, v)
	}
}
