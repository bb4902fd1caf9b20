package ot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildHvar assembles a complete HVAR table: 20-byte header, an
// ItemVariationStore, and a width-map. lsb/rsb maps are left absent.
func buildHvar(ivsBytes, widthMapBytes []byte) []byte {
	ivsOff := hvarHeaderSize
	widthOff := ivsOff + len(ivsBytes)
	total := widthOff + len(widthMapBytes)

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:], 0x00010000)
	binary.BigEndian.PutUint32(buf[4:], uint32(ivsOff))
	binary.BigEndian.PutUint32(buf[8:], uint32(widthOff))
	binary.BigEndian.PutUint32(buf[12:], 0) // lsbMap absent
	binary.BigEndian.PutUint32(buf[16:], 0) // rsbMap absent
	copy(buf[ivsOff:], ivsBytes)
	copy(buf[widthOff:], widthMapBytes)
	return buf
}

func TestParseHvarAndGetAdvanceWidth(t *testing.T) {
	vlm := NewVarLocationMap(1)
	l1 := vlm.Intern(VariationLocation{f2(1)})
	ivs := NewItemVariationStore(1, vlm, DefaultLimits)
	pair := ivs.AddValue(&VarValueRecord{Default: 500, PerLocation: map[LocationIndex]int32{l1: 700}})
	require.NotEqual(t, NotVariable, pair)

	widthMap := buildDeltaSetIndexMap(0x01, []IndexPair{pair}) // entrySize=1 byte, innerBits=2

	data := buildHvar(ivs.Serialize(), widthMap)
	hvar, err := ParseHvar(data, DefaultLimits, nil)
	require.NoError(t, err)

	hmtx, err := ParseHmtx(buildHmtx([]LongHorMetric{{AdvanceWidth: 500, Lsb: 0}}, nil), 1, 1)
	require.NoError(t, err)

	scalars := hvar.Store().CalcRegionScalars([]F2Dot14{f2(1)}, nil)
	got := hvar.GetAdvanceWidth(hmtx, 0, scalars)
	assert.Equal(t, uint16(700), got)
}

func TestParseHvarRejectsShortTable(t *testing.T) {
	_, err := ParseHvar(make([]byte, 4), DefaultLimits, nil)
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestParseHvarMalformedIVSResetsToEmpty(t *testing.T) {
	data := buildHvar([]byte{0xFF, 0xFF}, nil) // bogus IVS bytes: format != 1
	hvar, err := ParseHvar(data, DefaultLimits, nil)
	require.NoError(t, err, "malformed IVS must not fail the whole table")
	require.NotNil(t, hvar.Store())
	assert.Empty(t, hvar.Store().Regions())
}

func TestGetLsbFallsBackWithoutMap(t *testing.T) {
	data := buildHvar(NewItemVariationStore(0, NewVarLocationMap(0), DefaultLimits).Serialize(), nil)
	hvar, err := ParseHvar(data, DefaultLimits, nil)
	require.NoError(t, err)

	hmtx, err := ParseHmtx(buildHmtx([]LongHorMetric{{AdvanceWidth: 500, Lsb: 12}}, nil), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, int16(12), hvar.GetLsb(hmtx, 0, nil))
}

func TestNilHvarFallsBackToHmtx(t *testing.T) {
	var hvar *Hvar
	hmtx, err := ParseHmtx(buildHmtx([]LongHorMetric{{AdvanceWidth: 321, Lsb: 1}}, nil), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint16(321), hvar.GetAdvanceWidth(hmtx, 0, nil))
}
