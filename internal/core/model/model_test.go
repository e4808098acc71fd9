package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionID(t *testing.T) {
	tests := []struct {
		name     string
		tuple    FiveTuple
		expected string
	}{
		{
			name:     "smaller ip first already",
			tuple:    FiveTuple{Src: Endpoint{"10.0.0.1", 5000}, Dst: Endpoint{"10.0.0.2", 80}, Protocol: 6},
			expected: "10.0.0.1-10.0.0.2-5000-80-6",
		},
		{
			name:     "swapped when source ip is larger",
			tuple:    FiveTuple{Src: Endpoint{"10.0.0.2", 80}, Dst: Endpoint{"10.0.0.1", 5000}, Protocol: 6},
			expected: "10.0.0.1-10.0.0.2-5000-80-6",
		},
		{
			name:     "same ip orders by port",
			tuple:    FiveTuple{Src: Endpoint{"127.0.0.1", 8080}, Dst: Endpoint{"127.0.0.1", 443}, Protocol: 17},
			expected: "127.0.0.1-127.0.0.1-443-8080-17",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.tuple.ConnectionID())
		})
	}
}

func TestConnectionID_DirectionIndependent(t *testing.T) {
	fwd := FiveTuple{Src: Endpoint{"192.168.10.5", 49152}, Dst: Endpoint{"192.168.10.50", 22}, Protocol: 6}
	bwd := FiveTuple{Src: fwd.Dst, Dst: fwd.Src, Protocol: 6}
	assert.Equal(t, fwd.ConnectionID(), bwd.ConnectionID())
}

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "........", Flags(0).String())
	assert.Equal(t, "CEUAPRSF", Flags(0xff).String())
	assert.Equal(t, "...A..S.", (FlagSYN | FlagACK).String())
	assert.Equal(t, "..U.P..F", (FlagURG | FlagPSH | FlagFIN).String())
}

func TestParseFlags(t *testing.T) {
	for _, f := range []Flags{0, FlagSYN, FlagSYN | FlagACK, FlagCWR | FlagECE | FlagRST, 0xff} {
		parsed, err := ParseFlags(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}

	_, err := ParseFlags("...A")
	assert.Error(t, err)
}
