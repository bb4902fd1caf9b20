package ot

import (
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"
)

// TagVVAR is the table tag for the Vertical Metrics Variations table.
var TagVVAR = MakeTag('V', 'V', 'A', 'R')

// vvarHeaderSize is the size in bytes of the VVAR table header.
const vvarHeaderSize = 24

// Vvar is a parsed VVAR table: an ItemVariationStore plus per-glyph index
// maps redirecting advance height, top/bottom side bearing, and vertical
// origin lookups into it.
type Vvar struct {
	ivs       *ItemVariationStore
	heightMap *DeltaSetIndexMap
	tsbMap    *DeltaSetIndexMap
	bsbMap    *DeltaSetIndexMap
	vorgMap   *DeltaSetIndexMap
}

// ParseVvar parses a VVAR table.
func ParseVvar(data []byte, limits BuildLimits, trace tracing.Trace) (*Vvar, error) {
	t := traceOrDefault(trace)
	if len(data) < vvarHeaderSize {
		t.Errorf("VVAR: table shorter than header (%d bytes)", len(data))
		return nil, ErrInvalidTable
	}
	version := binary.BigEndian.Uint32(data[0:])
	if version != 0x00010000 {
		t.Errorf("VVAR: unsupported version 0x%08x", version)
		return nil, ErrInvalidFormat
	}

	ivsOffset := binary.BigEndian.Uint32(data[4:])
	heightMapOffset := binary.BigEndian.Uint32(data[8:])
	tsbMapOffset := binary.BigEndian.Uint32(data[12:])
	bsbMapOffset := binary.BigEndian.Uint32(data[16:])
	vorgMapOffset := binary.BigEndian.Uint32(data[20:])

	ivs, err := ParseItemVariationStore(data, ivsOffset, limits, t)
	if err != nil {
		t.Errorf("VVAR: item variation store malformed, resetting to empty: %v", err)
		ivs = &ItemVariationStore{}
	}

	v := &Vvar{ivs: ivs}
	if v.heightMap, err = ParseDeltaSetIndexMap(data, heightMapOffset, t); err != nil {
		t.Errorf("VVAR: advance height map malformed: %v", err)
		v.heightMap = nil
	}
	if v.tsbMap, err = ParseDeltaSetIndexMap(data, tsbMapOffset, t); err != nil {
		t.Errorf("VVAR: tsb map malformed: %v", err)
		v.tsbMap = nil
	}
	if v.bsbMap, err = ParseDeltaSetIndexMap(data, bsbMapOffset, t); err != nil {
		t.Errorf("VVAR: bsb map malformed: %v", err)
		v.bsbMap = nil
	}
	if v.vorgMap, err = ParseDeltaSetIndexMap(data, vorgMapOffset, t); err != nil {
		t.Errorf("VVAR: vorg map malformed: %v", err)
		v.vorgMap = nil
	}
	return v, nil
}

// GetAdvanceHeight returns the variation-adjusted advance height for
// glyph, starting from vmtx's default and adding the VVAR height-map
// delta.
func (v *Vvar) GetAdvanceHeight(vmtx *Vmtx, glyph GlyphID, scalars []float32) uint16 {
	if v == nil {
		return vmtx.GetAdvanceHeight(glyph)
	}
	base := int32(vmtx.GetAdvanceHeight(glyph))
	delta := v.ivs.ApplyDeltasForGid(v.heightMap, glyph, scalars, len(v.ivs.Regions()), nil)
	return uint16(base + int32(delta))
}

// GetTsb returns the variation-adjusted top side bearing for glyph.
func (v *Vvar) GetTsb(vmtx *Vmtx, glyph GlyphID, scalars []float32) int16 {
	base := vmtx.GetTsb(glyph)
	if v == nil || v.tsbMap == nil || v.tsbMap.Offset == 0 {
		return base
	}
	delta := v.ivs.ApplyDeltasForGid(v.tsbMap, glyph, scalars, len(v.ivs.Regions()), nil)
	return int16(int32(base) + int32(delta))
}

// GetBsb returns the variation-adjusted bottom side bearing for glyph,
// given its unadjusted bsb.
func (v *Vvar) GetBsb(bsb int16, glyph GlyphID, scalars []float32) int16 {
	if v == nil || v.bsbMap == nil || v.bsbMap.Offset == 0 {
		return bsb
	}
	delta := v.ivs.ApplyDeltasForGid(v.bsbMap, glyph, scalars, len(v.ivs.Regions()), nil)
	return int16(int32(bsb) + int32(delta))
}

// VorgDelta returns the variation-adjusted vertical origin Y for glyph,
// starting from vorg's default or per-glyph override.
func (v *Vvar) VorgDelta(vorg *VORG, glyph GlyphID, scalars []float32) int16 {
	base := vorg.GetVertOriginY(glyph)
	if v == nil || v.vorgMap == nil || v.vorgMap.Offset == 0 {
		return base
	}
	delta := v.ivs.ApplyDeltasForGid(v.vorgMap, glyph, scalars, len(v.ivs.Regions()), nil)
	return int16(int32(base) + int32(delta))
}

// Store returns the underlying ItemVariationStore.
func (v *Vvar) Store() *ItemVariationStore {
	if v == nil {
		return nil
	}
	return v.ivs
}
