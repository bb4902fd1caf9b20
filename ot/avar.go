package ot

import (
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"
)

// TagAvar is the table tag for the axis variations table.
var TagAvar = MakeTag('a', 'v', 'a', 'r')

// avarHeaderSize is the size in bytes of the avar table header.
const avarHeaderSize = 8

// SegmentMapEntry is one (fromCoord, toCoord) pair of a SegmentMap, in
// F2DOT14.
type SegmentMapEntry struct {
	FromCoord F2Dot14
	ToCoord   F2Dot14
}

// segmentMap is an ordered sequence of SegmentMapEntry. A map is valid iff
// it has at least 3 entries, the first pair equals (-1,-1), the last
// equals (1,1), and at least one interior pair has from==0 && to==0. An
// invalid map is cleared to zero length at parse time: normalized
// coordinates then pass through unchanged for that axis.
type segmentMap struct {
	entries []SegmentMapEntry
}

func (m segmentMap) valid() bool {
	n := len(m.entries)
	if n < 3 {
		return false
	}
	first, last := m.entries[0], m.entries[n-1]
	if first.FromCoord != -F2Dot14One || first.ToCoord != -F2Dot14One {
		return false
	}
	if last.FromCoord != F2Dot14One || last.ToCoord != F2Dot14One {
		return false
	}
	for i := 1; i < n-1; i++ {
		if m.entries[i].FromCoord == 0 && m.entries[i].ToCoord == 0 {
			return true
		}
	}
	return false
}

// Avar is a parsed avar (Axis Variations) table: a piecewise-linear
// remapping applied to each axis' default-normalized coordinate. A nil
// *Avar behaves as an empty table.
type Avar struct {
	axisCount int
	maps      []segmentMap
}

// ParseAvar parses an avar table. fvarAxisCount is the fvar axis count the
// avar axis count must match; a mismatch is not a parse failure but
// discards every segment map.
func ParseAvar(data []byte, fvarAxisCount int, trace tracing.Trace) (*Avar, error) {
	t := traceOrDefault(trace)
	if len(data) < avarHeaderSize {
		t.Errorf("avar: table shorter than header (%d bytes)", len(data))
		return nil, ErrInvalidTable
	}

	majorVersion := binary.BigEndian.Uint16(data[0:])
	minorVersion := binary.BigEndian.Uint16(data[2:])
	if majorVersion != 1 || minorVersion != 0 {
		t.Errorf("avar: unsupported version %d.%d", majorVersion, minorVersion)
		return nil, ErrInvalidFormat
	}

	axisCount := int(binary.BigEndian.Uint16(data[6:]))

	a := &Avar{
		axisCount: axisCount,
		maps:      make([]segmentMap, axisCount),
	}

	offset := avarHeaderSize
	for i := 0; i < axisCount; i++ {
		if offset+2 > len(data) {
			t.Errorf("avar: truncated before positionMapCount of axis %d", i)
			return nil, ErrInvalidOffset
		}
		positionMapCount := int(binary.BigEndian.Uint16(data[offset:]))
		offset += 2

		if offset+positionMapCount*4 > len(data) {
			t.Errorf("avar: truncated axisValueMap for axis %d", i)
			return nil, ErrInvalidOffset
		}

		entries := make([]SegmentMapEntry, positionMapCount)
		for j := 0; j < positionMapCount; j++ {
			entries[j] = SegmentMapEntry{
				FromCoord: F2Dot14(binary.BigEndian.Uint16(data[offset:])),
				ToCoord:   F2Dot14(binary.BigEndian.Uint16(data[offset+2:])),
			}
			offset += 4
		}
		a.maps[i] = segmentMap{entries: entries}
	}

	if axisCount != fvarAxisCount {
		t.Errorf("avar: axisCount %d disagrees with fvar axisCount %d, discarding segment maps", axisCount, fvarAxisCount)
		for i := range a.maps {
			a.maps[i] = segmentMap{}
		}
		return a, nil
	}

	for i := range a.maps {
		if !a.maps[i].valid() {
			if len(a.maps[i].entries) > 0 {
				t.Debugf("avar: axis %d has an invalid segment map, discarding it", i)
			}
			a.maps[i] = segmentMap{}
		}
	}

	return a, nil
}

// HasData reports whether a is non-nil and has at least one axis.
func (a *Avar) HasData() bool {
	return a != nil && a.axisCount > 0
}

// ApplySegmentMap remaps a default-normalized Fixed coordinate on the
// given axis through its avar segment map. If the axis has no valid
// segment map, v is returned unchanged.
func (a *Avar) ApplySegmentMap(axisIndex int, v Fixed) Fixed {
	if a == nil || axisIndex < 0 || axisIndex >= a.axisCount {
		return v
	}
	entries := a.maps[axisIndex].entries
	if len(entries) == 0 {
		return v
	}

	// Find the first entry with v < entries[i].FromCoord.
	i := 0
	for i < len(entries) && v >= entries[i].FromCoord.ToFixed() {
		i++
	}

	switch {
	case i == 0:
		return entries[0].ToCoord.ToFixed()
	case i == len(entries):
		return entries[len(entries)-1].ToCoord.ToFixed()
	default:
		lo, hi := entries[i-1], entries[i]
		fromLo, fromHi := lo.FromCoord.ToFixed(), hi.FromCoord.ToFixed()
		toLo, toHi := lo.ToCoord.ToFixed(), hi.ToCoord.ToFixed()
		if v == fromLo {
			return toLo
		}
		return toLo + fixmul(toHi-toLo, fixdiv(v-fromLo, fromHi-fromLo))
	}
}

// NormalizeCoords default-normalizes each of userValues against fvar, then
// applies avar's segment map, one axis at a time. It fails if userValues
// is empty or longer than fvar's axis count.
func NormalizeCoords(fv *Fvar, av *Avar, userValues []Fixed) ([]Fixed, error) {
	axisCount := fv.AxisCount()
	if len(userValues) == 0 || len(userValues) > axisCount {
		return nil, ErrInvalidOffset
	}
	out := make([]Fixed, len(userValues))
	for i, u := range userValues {
		n := fv.DefaultNormalize(i, u)
		out[i] = av.ApplySegmentMap(i, n)
	}
	return out, nil
}
