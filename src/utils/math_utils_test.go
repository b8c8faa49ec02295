package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.2345, 2))
	assert.Equal(t, 1.24, RoundFloat(1.2351, 2))
	assert.Equal(t, -1.23, RoundFloat(-1.2345, 2))
	assert.Equal(t, 100.0, RoundFloat(100, 2))
}

func TestRoundUnits(t *testing.T) {
	assert.Equal(t, 33.3334, RoundUnits(33.33337))
	assert.InDelta(t, 0.0, RoundUnits(66.6667-33.3333-33.3334), 1e-12)
}

func TestMinFloat(t *testing.T) {
	assert.Equal(t, 1.0, MinFloat(1, 2))
	assert.Equal(t, 1.0, MinFloat(2, 1))
}
