package cic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// NumericStrategy is one way of reading a count that may have been exported
// either as an integer or as a float.
type NumericStrategy int

const (
	// StrategyInteger reads the whole field as a decimal integer.
	StrategyInteger NumericStrategy = iota
	// StrategyFloatPrefix reads the digits before the decimal point, or the
	// whole field when there is none.
	StrategyFloatPrefix
)

func (s NumericStrategy) String() string {
	if s == StrategyFloatPrefix {
		return "float-prefix"
	}
	return "integer"
}

// ErrNotNumeric is returned when no strategy can read a field.
var ErrNotNumeric = errors.New("neither an integer nor a float")

// NumericResult records the parsed magnitude and the strategy that produced it.
type NumericResult struct {
	Value    uint64
	Strategy NumericStrategy
}

// NumericResolver parses pairs of related count columns whose representation
// silently switches from integer to float partway through a file. It carries
// one bit across rows: whether the previous pair needed the float path. Once
// a column has been seen fractional, later rows try that path first.
//
// A resolver is owned by one file session and must not be shared.
type NumericResolver struct {
	fractional bool
}

// NewNumericResolver returns a resolver in the given carried state.
func NewNumericResolver(fractional bool) *NumericResolver {
	return &NumericResolver{fractional: fractional}
}

// Fractional reports the carried state.
func (r *NumericResolver) Fractional() bool {
	return r.fractional
}

// ResolvePair parses a forward/backward pair of non-negative counts.
func (r *NumericResolver) ResolvePair(fwd, bwd string) ([2]uint64, error) {
	f, err := resolveUnsigned(fwd, r.fractional)
	if err != nil {
		return [2]uint64{}, fmt.Errorf("forward value: %w", err)
	}
	b, err := resolveUnsigned(bwd, r.fractional)
	if err != nil {
		return [2]uint64{}, fmt.Errorf("backward value: %w", err)
	}
	r.fractional = f.Strategy == StrategyFloatPrefix || b.Strategy == StrategyFloatPrefix
	return [2]uint64{f.Value, b.Value}, nil
}

// ResolveSignedPair is ResolvePair for fields that may carry a leading minus
// sign. The sign is stripped, the magnitude resolved, and the sign reapplied.
func (r *NumericResolver) ResolveSignedPair(fwd, bwd string) ([2]int64, error) {
	f, fStrategy, err := resolveSigned(fwd, r.fractional)
	if err != nil {
		return [2]int64{}, fmt.Errorf("forward value: %w", err)
	}
	b, bStrategy, err := resolveSigned(bwd, r.fractional)
	if err != nil {
		return [2]int64{}, fmt.Errorf("backward value: %w", err)
	}
	r.fractional = fStrategy == StrategyFloatPrefix || bStrategy == StrategyFloatPrefix
	return [2]int64{f, b}, nil
}

// ByteTotals is the result of ResolveBytes. Clamped marks the directions
// whose header+payload sum was negative and was coerced to zero.
type ByteTotals struct {
	Bytes   [2]uint64
	Clamped [2]bool
}

// ResolveBytes sums header and payload byte counts per direction. Both pairs
// go through the same resolver, header first.
func (r *NumericResolver) ResolveBytes(fwdHeader, bwdHeader, fwdPayload, bwdPayload string) (ByteTotals, error) {
	header, err := r.ResolveSignedPair(fwdHeader, bwdHeader)
	if err != nil {
		return ByteTotals{}, fmt.Errorf("header bytes: %w", err)
	}
	payload, err := r.ResolveSignedPair(fwdPayload, bwdPayload)
	if err != nil {
		return ByteTotals{}, fmt.Errorf("payload bytes: %w", err)
	}

	var out ByteTotals
	for i := range out.Bytes {
		total := header[i] + payload[i]
		if total < 0 {
			out.Clamped[i] = true
			continue
		}
		out.Bytes[i] = uint64(total)
	}
	return out, nil
}

// resolveUnsigned tries the strategies in the order implied by the carried
// state and reports which one succeeded.
func resolveUnsigned(s string, preferFloat bool) (NumericResult, error) {
	s = strings.TrimSpace(s)
	order := [2]NumericStrategy{StrategyInteger, StrategyFloatPrefix}
	if preferFloat {
		order = [2]NumericStrategy{StrategyFloatPrefix, StrategyInteger}
	}
	for _, strategy := range order {
		if v, ok := parseWith(strategy, s); ok {
			return NumericResult{Value: v, Strategy: strategy}, nil
		}
	}
	return NumericResult{}, fmt.Errorf("%q: %w", s, ErrNotNumeric)
}

func resolveSigned(s string, preferFloat bool) (int64, NumericStrategy, error) {
	s = strings.TrimSpace(s)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	res, err := resolveUnsigned(s, preferFloat)
	if err != nil {
		return 0, 0, err
	}
	v := int64(res.Value)
	if negative {
		v = -v
	}
	return v, res.Strategy, nil
}

func parseWith(strategy NumericStrategy, s string) (uint64, bool) {
	if strategy == StrategyFloatPrefix {
		if i := strings.IndexByte(s, '.'); i >= 0 {
			s = s[:i]
		}
	}
	v, err := strconv.ParseUint(s, 10, 63)
	return v, err == nil
}
