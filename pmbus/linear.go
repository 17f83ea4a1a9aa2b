// Copyright © 2015-2016 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package pmbus

import "math"

// signExtend treats the low bits of v as a two's complement number.
func signExtend(v uint16, bits uint) int {
	m := uint16(1) << (bits - 1)
	v &= (1 << bits) - 1
	return int(v^m) - int(m)
}

// Linear11 decodes the PMBus LINEAR11 format: bits 0-10 are a signed
// mantissa Y, bits 11-15 a signed exponent N, value Y * 2^N.
func Linear11(v uint16) float64 {
	y := signExtend(v, 11)
	n := signExtend(v>>11, 5)
	return math.Ldexp(float64(y), n)
}

// Linear16 decodes an unsigned VOUT reading with the exponent from the
// low five bits of VOUT_MODE.
func Linear16(v uint16, voutMode byte) float64 {
	return math.Ldexp(float64(v), signExtend(uint16(voutMode), 5))
}
