package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "TCP", Name(6))
	assert.Equal(t, "UDP", Name(17))
	assert.Equal(t, "ICMPv4", Name(1))
	assert.Equal(t, "IP-253", Name(253))
}

func TestIsTransport(t *testing.T) {
	assert.True(t, IsTransport(6))
	assert.True(t, IsTransport(17))
	assert.False(t, IsTransport(1))
	assert.False(t, IsTransport(0))
}
