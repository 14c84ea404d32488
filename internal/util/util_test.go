package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 3, Min(3, 7))
	assert.Equal(t, 7, Max(3, 7))
	assert.Equal(t, -1, Min(-1, 0))
}

func TestRounddownRoundup(t *testing.T) {
	assert.Equal(t, 8, Rounddown(11, 4))
	assert.Equal(t, 12, Roundup(11, 4))
	assert.Equal(t, 8, Rounddown(8, 4))
	assert.Equal(t, 8, Roundup(8, 4))
}

func TestReadnWritenRoundTrip(t *testing.T) {
	buf := make([]uint8, 16)
	cases := []struct {
		sz  int
		val int
		off int
	}{
		{8, 123456789, 0},
		{4, 42, 8},
		{2, 7, 12},
		{1, 9, 14},
	}
	for _, c := range cases {
		Writen(buf, c.sz, c.off, c.val)
		assert.Equal(t, c.val, Readn(buf, c.sz, c.off))
	}
}

func TestReadnPanicsOutOfBounds(t *testing.T) {
	buf := make([]uint8, 4)
	assert.Panics(t, func() { Readn(buf, 8, 0) })
}

func TestWritenPanicsOnUnsupportedSize(t *testing.T) {
	buf := make([]uint8, 4)
	assert.Panics(t, func() { Writen(buf, 3, 0, 1) })
}
