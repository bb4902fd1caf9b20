package ot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildVhea(version uint32, numberOfVMetrics uint16) []byte {
	buf := make([]byte, 36)
	binary.BigEndian.PutUint32(buf[0:], version)
	binary.BigEndian.PutUint16(buf[34:], numberOfVMetrics)
	return buf
}

func TestParseVheaAcceptsBothVersions(t *testing.T) {
	v1, err := ParseVhea(buildVhea(VheaTableVersion, 3))
	require.NoError(t, err)
	assert.Equal(t, uint16(3), v1.NumberOfVMetrics)

	v11, err := ParseVhea(buildVhea(VheaTableVersion11, 3))
	require.NoError(t, err)
	assert.Equal(t, uint16(3), v11.NumberOfVMetrics)
}

func TestParseVheaRejectsUnknownVersion(t *testing.T) {
	_, err := ParseVhea(buildVhea(0x00020000, 1))
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func buildVmtx(metrics []LongVerMetric, tsbs []int16) []byte {
	buf := make([]byte, len(metrics)*4+len(tsbs)*2)
	off := 0
	for _, m := range metrics {
		binary.BigEndian.PutUint16(buf[off:], m.AdvanceHeight)
		binary.BigEndian.PutUint16(buf[off+2:], uint16(m.Tsb))
		off += 4
	}
	for _, ts := range tsbs {
		binary.BigEndian.PutUint16(buf[off:], uint16(ts))
		off += 2
	}
	return buf
}

func TestParseVmtxLastAdvancePropagates(t *testing.T) {
	data := buildVmtx([]LongVerMetric{{AdvanceHeight: 1000, Tsb: 50}}, []int16{40, 30})
	v, err := ParseVmtx(data, 1, 3)
	require.NoError(t, err)

	assert.Equal(t, uint16(1000), v.GetAdvanceHeight(0))
	assert.Equal(t, uint16(1000), v.GetAdvanceHeight(2), "glyph beyond numberOfVMetrics reuses last advance")
	assert.Equal(t, int16(50), v.GetTsb(0))
	assert.Equal(t, int16(40), v.GetTsb(1))
	assert.Equal(t, int16(30), v.GetTsb(2))
}
