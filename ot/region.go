package ot

// AxisRegion is one axis' tent function within a VariationRegion: zero
// outside [start, end], 1 at peak, linear ramps between.
type AxisRegion struct {
	Start F2Dot14
	Peak  F2Dot14
	End   F2Dot14
}

// VariationRegion is an ordered sequence of AxisRegion, one per axis of
// the owning ItemVariationStore. Two regions are equal iff their
// coordinate triples are equal element-wise.
type VariationRegion []AxisRegion

// regionKey turns a VariationRegion into a value usable as a map key for
// deduplication (region interning).
func regionKey(r VariationRegion) string {
	buf := make([]byte, len(r)*6)
	for i, a := range r {
		o := i * 6
		buf[o] = byte(uint16(a.Start) >> 8)
		buf[o+1] = byte(uint16(a.Start))
		buf[o+2] = byte(uint16(a.Peak) >> 8)
		buf[o+3] = byte(uint16(a.Peak))
		buf[o+4] = byte(uint16(a.End) >> 8)
		buf[o+5] = byte(uint16(a.End))
	}
	return string(buf)
}

// axisScalarFixed evaluates one axis' contribution to a region's scalar
// at a given normalized location, in 16.16 fixed point. This is the
// build-side / model-inference form: determinism across platforms
// requires fixed-point, not float, arithmetic here.
func axisScalarFixed(start, peak, end, loc Fixed) Fixed {
	switch {
	case start > peak || peak > end:
		return FixedOne
	case start < 0 && end > 0 && peak != 0:
		return FixedOne
	case peak == 0:
		return FixedOne
	case loc < start || loc > end:
		return 0
	case loc == peak:
		return FixedOne
	case loc < peak:
		return fixdiv(loc-start, peak-start)
	default: // loc > peak
		return fixdiv(end-loc, end-peak)
	}
}

// axisScalarFloat is the read-side / query form of axisScalarFixed,
// using float32 as the original AFDKO query path (calcRegionScalars)
// does; see DESIGN.md for why the two are not unified into one function.
func axisScalarFloat(start, peak, end, loc float32) float32 {
	switch {
	case start > peak || peak > end:
		return 1
	case start < 0 && end > 0 && peak != 0:
		return 1
	case peak == 0:
		return 1
	case loc < start || loc > end:
		return 0
	case loc == peak:
		return 1
	case loc < peak:
		return (loc - start) / (peak - start)
	default: // loc > peak
		return (end - loc) / (end - peak)
	}
}

// scalarAt computes region r's scalar (product over axes) at the given
// normalized location, in 16.16 fixed point. Used by the build path
// (VarModel.calcDeltaWeights) where loc is another region's peak.
func (r VariationRegion) scalarAt(loc []Fixed) Fixed {
	s := FixedOne
	for i, ar := range r {
		var l Fixed
		if i < len(loc) {
			l = loc[i]
		}
		s = fixmul(s, axisScalarFixed(ar.Start.ToFixed(), ar.Peak.ToFixed(), ar.End.ToFixed(), l))
		if s == 0 {
			return 0
		}
	}
	return s
}

// scalarAtFloat computes region r's scalar at a normalized location given
// as F2DOT14 coordinates (the query path's native unit), in float32.
func (r VariationRegion) scalarAtFloat(coords []F2Dot14) float32 {
	s := float32(1)
	for i, ar := range r {
		var l F2Dot14
		if i < len(coords) {
			l = coords[i]
		}
		s *= axisScalarFloat(f2dot14ToFloat(ar.Start), f2dot14ToFloat(ar.Peak), f2dot14ToFloat(ar.End), f2dot14ToFloat(l))
		if s == 0 {
			return 0
		}
	}
	return s
}

func f2dot14ToFloat(v F2Dot14) float32 {
	return float32(v) / float32(int32(F2Dot14One))
}
