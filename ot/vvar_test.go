package ot

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildVvar(ivsBytes, heightMapBytes, vorgMapBytes []byte) []byte {
	ivsOff := vvarHeaderSize
	heightOff := ivsOff + len(ivsBytes)
	vorgOff := heightOff + len(heightMapBytes)
	total := vorgOff + len(vorgMapBytes)

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:], 0x00010000)
	binary.BigEndian.PutUint32(buf[4:], uint32(ivsOff))
	binary.BigEndian.PutUint32(buf[8:], uint32(heightOff))
	binary.BigEndian.PutUint32(buf[12:], 0) // tsbMap absent
	binary.BigEndian.PutUint32(buf[16:], 0) // bsbMap absent
	if len(vorgMapBytes) > 0 {
		binary.BigEndian.PutUint32(buf[20:], uint32(vorgOff))
	}
	copy(buf[ivsOff:], ivsBytes)
	copy(buf[heightOff:], heightMapBytes)
	copy(buf[vorgOff:], vorgMapBytes)
	return buf
}

func TestParseVvarAndGetAdvanceHeight(t *testing.T) {
	vlm := NewVarLocationMap(1)
	l1 := vlm.Intern(VariationLocation{f2(1)})
	ivs := NewItemVariationStore(1, vlm, DefaultLimits)
	pair := ivs.AddValue(&VarValueRecord{Default: 1000, PerLocation: map[LocationIndex]int32{l1: 1200}})

	heightMap := buildDeltaSetIndexMap(0x01, []IndexPair{pair})
	data := buildVvar(ivs.Serialize(), heightMap, nil)
	vvar, err := ParseVvar(data, DefaultLimits, nil)
	require.NoError(t, err)

	_, vmtx, err := parseVmtxStandalone([]LongVerMetric{{AdvanceHeight: 1000, Tsb: 0}})
	require.NoError(t, err)

	scalars := vvar.Store().CalcRegionScalars([]F2Dot14{f2(1)}, nil)
	assert.Equal(t, uint16(1200), vvar.GetAdvanceHeight(vmtx, 0, scalars))
}

func TestVorgDeltaBlendsVVARAndVORG(t *testing.T) {
	vorg, err := ParseVORG(buildVORG(900, nil))
	require.NoError(t, err)

	vlm := NewVarLocationMap(1)
	l1 := vlm.Intern(VariationLocation{f2(1)})
	ivs := NewItemVariationStore(1, vlm, DefaultLimits)
	pair := ivs.AddValue(&VarValueRecord{Default: 900, PerLocation: map[LocationIndex]int32{l1: 950}})
	vorgMap := buildDeltaSetIndexMap(0x01, []IndexPair{pair})

	data := buildVvar(ivs.Serialize(), nil, vorgMap)
	vvar, err := ParseVvar(data, DefaultLimits, nil)
	require.NoError(t, err)

	scalars := vvar.Store().CalcRegionScalars([]F2Dot14{f2(1)}, nil)
	assert.Equal(t, int16(950), vvar.VorgDelta(vorg, 0, scalars))
}

func TestNilVvarFallsBackToVmtx(t *testing.T) {
	var vvar *Vvar
	_, vmtx, err := parseVmtxStandalone([]LongVerMetric{{AdvanceHeight: 42, Tsb: 0}})
	require.NoError(t, err)
	assert.Equal(t, uint16(42), vvar.GetAdvanceHeight(vmtx, 0, nil))
}

// parseVmtxStandalone builds a vmtx table with one long metric per glyph
// for tests that only care about Vmtx, not the surrounding vhea.
func parseVmtxStandalone(metrics []LongVerMetric) (*Vhea, *Vmtx, error) {
	vmtx, err := ParseVmtx(buildVmtx(metrics, nil), len(metrics), len(metrics))
	return nil, vmtx, err
}
