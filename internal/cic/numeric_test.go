package cic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericResolver_SwitchesToFractional(t *testing.T) {
	r := NewNumericResolver(false)

	got, err := r.ResolvePair("123", "45.0")
	require.NoError(t, err)
	assert.Equal(t, [2]uint64{123, 45}, got)
	assert.True(t, r.Fractional())

	// integers still read through the float-prefix path, so the state sticks
	got, err = r.ResolvePair("9", "9")
	require.NoError(t, err)
	assert.Equal(t, [2]uint64{9, 9}, got)
	assert.True(t, r.Fractional())
}

func TestNumericResolver_StaysIntegerForIntegers(t *testing.T) {
	r := NewNumericResolver(false)
	for _, pair := range [][2]string{{"0", "0"}, {"17", "4"}, {" 8 ", "1000000"}} {
		_, err := r.ResolvePair(pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, r.Fractional())
	}
}

func TestNumericResolver_Errors(t *testing.T) {
	tests := []struct {
		name     string
		fwd, bwd string
	}{
		{"empty", "", "1"},
		{"text", "1", "Infinity"},
		{"negative unsigned", "-1", "1"},
		{"bare fraction", ".5", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewNumericResolver(false)
			_, err := r.ResolvePair(tt.fwd, tt.bwd)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotNumeric)
		})
	}
}

func TestNumericResolver_SignedPair(t *testing.T) {
	r := NewNumericResolver(false)
	got, err := r.ResolveSignedPair("-20", "32.0")
	require.NoError(t, err)
	assert.Equal(t, [2]int64{-20, 32}, got)
	assert.True(t, r.Fractional())

	got, err = r.ResolveSignedPair("-7.9", "3")
	require.NoError(t, err)
	assert.Equal(t, [2]int64{-7, 3}, got)
}

func TestNumericResolver_ResolveBytes(t *testing.T) {
	r := NewNumericResolver(false)

	totals, err := r.ResolveBytes("40", "20", "100", "0")
	require.NoError(t, err)
	assert.Equal(t, [2]uint64{140, 20}, totals.Bytes)
	assert.Equal(t, [2]bool{false, false}, totals.Clamped)

	// header counters in CIC-IDS-2017 can overflow into negative values
	totals, err = r.ResolveBytes("-1000", "32", "12", "6.0")
	require.NoError(t, err)
	assert.Equal(t, [2]uint64{0, 38}, totals.Bytes)
	assert.Equal(t, [2]bool{true, false}, totals.Clamped)
	assert.True(t, r.Fractional())
}

func TestResolveUnsigned_ReportsStrategy(t *testing.T) {
	res, err := resolveUnsigned("12", false)
	require.NoError(t, err)
	assert.Equal(t, StrategyInteger, res.Strategy)

	res, err = resolveUnsigned("12.75", false)
	require.NoError(t, err)
	assert.Equal(t, NumericResult{Value: 12, Strategy: StrategyFloatPrefix}, res)

	res, err = resolveUnsigned("12", true)
	require.NoError(t, err)
	assert.Equal(t, StrategyFloatPrefix, res.Strategy)
}
