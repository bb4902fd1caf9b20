package ot

import (
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"
)

// TagHVAR is the table tag for the Horizontal Metrics Variations table.
var TagHVAR = MakeTag('H', 'V', 'A', 'R')

// hvarHeaderSize is the size in bytes of the HVAR table header.
const hvarHeaderSize = 20

// Hvar is a parsed HVAR table: an ItemVariationStore plus per-glyph index
// maps redirecting advance width and (optionally) left/right side bearing
// lookups into it.
type Hvar struct {
	ivs      *ItemVariationStore
	widthMap *DeltaSetIndexMap
	lsbMap   *DeltaSetIndexMap
	rsbMap   *DeltaSetIndexMap
}

// ParseHvar parses an HVAR table. A malformed IVS resets to an empty
// store rather than failing the font.
func ParseHvar(data []byte, limits BuildLimits, trace tracing.Trace) (*Hvar, error) {
	t := traceOrDefault(trace)
	if len(data) < hvarHeaderSize {
		t.Errorf("HVAR: table shorter than header (%d bytes)", len(data))
		return nil, ErrInvalidTable
	}
	version := binary.BigEndian.Uint32(data[0:])
	if version != 0x00010000 {
		t.Errorf("HVAR: unsupported version 0x%08x", version)
		return nil, ErrInvalidFormat
	}

	ivsOffset := binary.BigEndian.Uint32(data[4:])
	widthMapOffset := binary.BigEndian.Uint32(data[8:])
	lsbMapOffset := binary.BigEndian.Uint32(data[12:])
	rsbMapOffset := binary.BigEndian.Uint32(data[16:])

	ivs, err := ParseItemVariationStore(data, ivsOffset, limits, t)
	if err != nil {
		t.Errorf("HVAR: item variation store malformed, resetting to empty: %v", err)
		ivs = &ItemVariationStore{}
	}

	h := &Hvar{ivs: ivs}
	if h.widthMap, err = ParseDeltaSetIndexMap(data, widthMapOffset, t); err != nil {
		t.Errorf("HVAR: advance width map malformed: %v", err)
		h.widthMap = nil
	}
	if h.lsbMap, err = ParseDeltaSetIndexMap(data, lsbMapOffset, t); err != nil {
		t.Errorf("HVAR: lsb map malformed: %v", err)
		h.lsbMap = nil
	}
	if h.rsbMap, err = ParseDeltaSetIndexMap(data, rsbMapOffset, t); err != nil {
		t.Errorf("HVAR: rsb map malformed: %v", err)
		h.rsbMap = nil
	}
	return h, nil
}

// GetAdvanceWidth returns the variation-adjusted advance width for glyph,
// starting from hmtx's default and adding the HVAR width-map delta.
func (h *Hvar) GetAdvanceWidth(hmtx *Hmtx, glyph GlyphID, scalars []float32) uint16 {
	if h == nil {
		return hmtx.GetAdvanceWidth(glyph)
	}
	base := int32(hmtx.GetAdvanceWidth(glyph))
	delta := h.ivs.ApplyDeltasForGid(h.widthMap, glyph, scalars, len(h.ivs.Regions()), nil)
	return uint16(base + int32(delta))
}

// GetLsb returns the variation-adjusted left side bearing for glyph. If no
// lsb map is present (Offset zero), the unadjusted hmtx value is returned.
func (h *Hvar) GetLsb(hmtx *Hmtx, glyph GlyphID, scalars []float32) int16 {
	base := hmtx.GetLsb(glyph)
	if h == nil || h.lsbMap == nil || h.lsbMap.Offset == 0 {
		return base
	}
	delta := h.ivs.ApplyDeltasForGid(h.lsbMap, glyph, scalars, len(h.ivs.Regions()), nil)
	return int16(int32(base) + int32(delta))
}

// GetRsb returns the variation-adjusted right side bearing for glyph,
// given its unadjusted rsb (rsb is not stored in hmtx and must be
// computed by the caller from advance width, lsb and bounding box).
func (h *Hvar) GetRsb(rsb int16, glyph GlyphID, scalars []float32) int16 {
	if h == nil || h.rsbMap == nil || h.rsbMap.Offset == 0 {
		return rsb
	}
	delta := h.ivs.ApplyDeltasForGid(h.rsbMap, glyph, scalars, len(h.ivs.Regions()), nil)
	return int16(int32(rsb) + int32(delta))
}

// Store returns the underlying ItemVariationStore, e.g. for computing
// region scalars once per query and reusing them across metrics.
func (h *Hvar) Store() *ItemVariationStore {
	if h == nil {
		return nil
	}
	return h.ivs
}
