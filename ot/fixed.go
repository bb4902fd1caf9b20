package ot

// Fixed is a 16.16 signed fixed-point number, the representation OpenType
// uses for axis coordinates, region boundaries (after widening from
// F2DOT14) and variation-model weights.
type Fixed int32

// FixedOne is 1.0 in 16.16 fixed point.
const FixedOne Fixed = 0x00010000

// FixedMinusOne is -1.0 in 16.16 fixed point.
const FixedMinusOne Fixed = -FixedOne

// F2Dot14 is a 2.14 signed fixed-point number, used for normalized axis
// coordinates and variation region boundaries as they appear on the wire.
type F2Dot14 int16

// F2Dot14One is 1.0 in 2.14 fixed point.
const F2Dot14One F2Dot14 = 1 << 14

// F2Dot14Zero is the exact representation of 0.0.
const F2Dot14Zero F2Dot14 = 0

// ToFixed widens a F2DOT14 value to 16.16 fixed point (shift by 2 bits,
// since 2.14 and 16.16 share the same LSB weight scaled by 2^2).
func (v F2Dot14) ToFixed() Fixed {
	return Fixed(v) << 2
}

// F2Dot14FromFixed narrows a 16.16 fixed-point value to 2.14, discarding the
// low two bits. Values outside the representable range are not clamped;
// callers of this function within the variation core only ever pass
// values already known to lie in [-1, 1] after normalization.
func F2Dot14FromFixed(f Fixed) F2Dot14 {
	return F2Dot14(f >> 2)
}

// fixmul multiplies two 16.16 fixed-point numbers, rounding the 32.32
// intermediate product back to 16.16.
func fixmul(a, b Fixed) Fixed {
	p := int64(a) * int64(b)
	return Fixed(roundDiv(p, 1<<16))
}

// fixdiv divides two 16.16 fixed-point numbers.
func fixdiv(a, b Fixed) Fixed {
	if b == 0 {
		return 0
	}
	p := int64(a) << 16
	return Fixed(roundDiv(p, int64(b)))
}

// roundDiv divides num by den, rounding the quotient to the nearest
// integer with ties away from zero.
func roundDiv(num, den int64) int64 {
	if den < 0 {
		num, den = -num, -den
	}
	if num >= 0 {
		return (num + den/2) / den
	}
	return -((-num + den/2) / den)
}

// FRound rounds a 16.16 fixed-point value to the nearest 16-bit integer,
// ties away from zero. Every downstream binary encoding of a variation
// delta depends on this being bit-identical across platforms.
func FRound(f Fixed) int16 {
	v := roundDiv(int64(f), 1<<16)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

// fabs returns the absolute value of a Fixed number.
func fabs(f Fixed) Fixed {
	if f < 0 {
		return -f
	}
	return f
}
