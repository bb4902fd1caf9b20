package ot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAvar(axisCount int, maps [][]SegmentMapEntry) []byte {
	size := avarHeaderSize
	for _, m := range maps {
		size += 2 + len(m)*4
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint16(buf[0:], 1)
	binary.BigEndian.PutUint16(buf[2:], 0)
	binary.BigEndian.PutUint16(buf[6:], uint16(axisCount))

	off := avarHeaderSize
	for _, m := range maps {
		binary.BigEndian.PutUint16(buf[off:], uint16(len(m)))
		off += 2
		for _, e := range m {
			binary.BigEndian.PutUint16(buf[off:], uint16(e.FromCoord))
			binary.BigEndian.PutUint16(buf[off+2:], uint16(e.ToCoord))
			off += 4
		}
	}
	return buf
}

func validSegMap() []SegmentMapEntry {
	return []SegmentMapEntry{
		{FromCoord: -F2Dot14One, ToCoord: -F2Dot14One},
		{FromCoord: 0, ToCoord: 0},
		{FromCoord: F2Dot14One, ToCoord: F2Dot14One},
	}
}

func TestParseAvarValidMap(t *testing.T) {
	data := buildAvar(1, [][]SegmentMapEntry{validSegMap()})
	avar, err := ParseAvar(data, 1, nil)
	require.NoError(t, err)
	require.True(t, avar.HasData())
	assert.Equal(t, Fixed(0), avar.ApplySegmentMap(0, 0))
}

func TestParseAvarAxisCountMismatchDiscardsMaps(t *testing.T) {
	data := buildAvar(1, [][]SegmentMapEntry{validSegMap()})
	avar, err := ParseAvar(data, 2, nil)
	require.NoError(t, err, "axis-count mismatch must not fail the font")
	// segment maps discarded: apply is now the identity.
	assert.Equal(t, fx(0.3), avar.ApplySegmentMap(0, fx(0.3)))
}

func TestParseAvarInvalidMapDiscardedIndividually(t *testing.T) {
	badMap := []SegmentMapEntry{
		{FromCoord: -F2Dot14One, ToCoord: -F2Dot14One},
		{FromCoord: F2Dot14One, ToCoord: F2Dot14One},
	} // missing interior (0,0): too few entries, invalid
	data := buildAvar(1, [][]SegmentMapEntry{badMap})
	avar, err := ParseAvar(data, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, fx(0.5), avar.ApplySegmentMap(0, fx(0.5)), "invalid map: identity passthrough")
}

func TestApplySegmentMapInterpolatesBetweenBreakpoints(t *testing.T) {
	m := []SegmentMapEntry{
		{FromCoord: -F2Dot14One, ToCoord: -F2Dot14One},
		{FromCoord: 0, ToCoord: 0},
		{FromCoord: f2(0.5), ToCoord: f2(0.25)},
		{FromCoord: F2Dot14One, ToCoord: F2Dot14One},
	}
	data := buildAvar(1, [][]SegmentMapEntry{m})
	avar, err := ParseAvar(data, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, fx(0.125), avar.ApplySegmentMap(0, fx(0.25)))
	assert.Equal(t, fx(0.625), avar.ApplySegmentMap(0, fx(0.75)))
}

func TestNormalizeCoordsCombinesFvarAndAvar(t *testing.T) {
	fvarData := buildFvar(0, int32(fx(400)), int32(fx(900)))
	fvar, err := ParseFvar(fvarData, nil)
	require.NoError(t, err)

	avarData := buildAvar(1, [][]SegmentMapEntry{validSegMap()})
	avar, err := ParseAvar(avarData, 1, nil)
	require.NoError(t, err)

	out, err := NormalizeCoords(fvar, avar, []Fixed{fx(400)})
	require.NoError(t, err)
	assert.Equal(t, []Fixed{0}, out)
}

func TestNormalizeCoordsRejectsEmpty(t *testing.T) {
	fvarData := buildFvar(0, int32(fx(400)), int32(fx(900)))
	fvar, err := ParseFvar(fvarData, nil)
	require.NoError(t, err)
	_, err = NormalizeCoords(fvar, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOffset)
}

func TestNilAvarIsIdentity(t *testing.T) {
	var avar *Avar
	assert.False(t, avar.HasData())
	assert.Equal(t, fx(0.42), avar.ApplySegmentMap(0, fx(0.42)))
}
