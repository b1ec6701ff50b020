package zcl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zigsense-go/errcode"
)

func TestCenti(t *testing.T) {
	cases := []struct {
		in        float64
		want      int16
		saturated bool
	}{
		{23.45, 2345, false},
		{54.3, 5430, false},
		{-10.25, -1025, false},
		{0, 0, false},
		{327.67, 32767, false},
		{400, math.MaxInt16, true},
		{-400, math.MinInt16, true},
	}
	for _, c := range cases {
		got, sat, err := Centi(c.in)
		require.NoError(t, err, "Centi(%v)", c.in)
		assert.Equal(t, c.want, got, "Centi(%v)", c.in)
		assert.Equal(t, c.saturated, sat, "Centi(%v) saturation", c.in)
	}
}

func TestCentiRejectsNaN(t *testing.T) {
	_, _, err := Centi(math.NaN())
	assert.ErrorIs(t, err, errcode.InvalidReading)
}

func TestCentiMatchesRoundedScale(t *testing.T) {
	for v := 10.0; v <= 50.0; v += 0.01 {
		got, sat, err := Centi(v)
		require.NoError(t, err)
		require.False(t, sat)
		require.Equal(t, int16(math.Round(v*100)), got, "v=%v", v)
	}
}

func TestCharString(t *testing.T) {
	b, err := CharString("Langlois")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x08Langlois"), b)

	s, err := DecodeCharString(b)
	require.NoError(t, err)
	assert.Equal(t, "Langlois", s)

	_, err = CharString("this identity string is far too long for zcl")
	assert.ErrorIs(t, err, errcode.InvalidParams)

	_, err = DecodeCharString([]byte{5, 'a'})
	assert.Error(t, err)
}
