package zcl

import (
	"math"

	"zigsense-go/errcode"
	"zigsense-go/x/mathx"
)

// MaxCharStrLen is the longest identity string accepted on the Basic cluster.
const MaxCharStrLen = 32

// CharString encodes s as a ZCL character string: one length octet
// followed by the bytes.
func CharString(s string) ([]byte, error) {
	if len(s) > MaxCharStrLen {
		return nil, errcode.New(errcode.InvalidParams, "zcl.charstring", "longer than 32 bytes")
	}
	b := make([]byte, 0, len(s)+1)
	b = append(b, byte(len(s)))
	return append(b, s...), nil
}

// DecodeCharString is the inverse of CharString.
func DecodeCharString(b []byte) (string, error) {
	if len(b) == 0 || int(b[0]) != len(b)-1 {
		return "", errcode.New(errcode.InvalidParams, "zcl.charstring", "length prefix mismatch")
	}
	return string(b[1:]), nil
}

// Centi converts a physical quantity to the ×100 fixed-point int16 used by
// the measurement clusters. Values round half away from zero and saturate
// at the int16 bounds, in which case saturated is true. NaN is rejected.
func Centi(v float64) (value int16, saturated bool, err error) {
	if math.IsNaN(v) {
		return 0, false, errcode.New(errcode.InvalidReading, "zcl.centi", "not a number")
	}
	c, exact := mathx.SaturateInt16(v * 100)
	return c, !exact, nil
}
