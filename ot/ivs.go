package ot

import (
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"
)

// CFF2MaxAxes is the library-wide cap on axisCount inside an
// ItemVariationStore region list. CFF2 variable fonts in practice use a
// handful of axes; 64 leaves generous headroom without letting a
// corrupted table drive an unbounded allocation.
const CFF2MaxAxes = 64

// CFF2MaxMasters is the library-wide cap on regionCount inside an
// ItemVariationStore region list, and on the region-index count of any
// one subtable. CFF2's blend operator addresses masters with a byte-sized
// vsindex selector in practice; 32 covers every observed production font.
const CFF2MaxMasters = 32

// BuildLimits bounds the axis and region counts a parse or build may
// produce, replacing the compile-time CFF2_MAX_AXES/CFF2_MAX_MASTERS
// constants with an overridable value.
type BuildLimits struct {
	MaxAxes    int
	MaxRegions int
}

// DefaultLimits is the BuildLimits used when a caller does not supply one.
var DefaultLimits = BuildLimits{MaxAxes: CFF2MaxAxes, MaxRegions: CFF2MaxMasters}

// IndexPair identifies one delta-set row: (outerIndex, innerIndex) into an
// ItemVariationStore. NotVariable denotes "no variation".
type IndexPair struct {
	Outer uint16
	Inner uint16
}

// NotVariable is the IndexPair sentinel meaning "this item carries no
// variation data".
var NotVariable = IndexPair{Outer: 0xFFFF, Inner: 0xFFFF}

// ItemVariationData is one delta-set subtable: a set of region indices
// shared by every row, and one delta row per item.
type ItemVariationData struct {
	RegionIndices []uint16
	DeltaValues   [][]int16
}

// ItemVariationStore is the factored delta storage shared by HVAR, VVAR,
// MVAR and (indirectly, out of this package's scope) gvar. On the read
// side it is built once from bytes and never mutated. On the build side
// addValue-family methods mutate it until Serialize is called.
type ItemVariationStore struct {
	axisCount int
	regions   []VariationRegion
	regionIdx map[string]uint16
	subtables []*ItemVariationData

	// build-side only
	locationSetMap map[string]*VarModel
	locations      *VarLocationMap
	limits         BuildLimits
}

// NewItemVariationStore creates an empty build-side IVS over axisCount
// axes, backed by locations for location interning.
func NewItemVariationStore(axisCount int, locations *VarLocationMap, limits BuildLimits) *ItemVariationStore {
	return &ItemVariationStore{
		axisCount:      axisCount,
		regionIdx:      make(map[string]uint16),
		locationSetMap: make(map[string]*VarModel),
		locations:      locations,
		limits:         limits,
	}
}

// AxisCount returns the number of axes this store's regions are defined
// over.
func (ivs *ItemVariationStore) AxisCount() int {
	if ivs == nil {
		return 0
	}
	return ivs.axisCount
}

// Regions returns the interned region list.
func (ivs *ItemVariationStore) Regions() []VariationRegion {
	if ivs == nil {
		return nil
	}
	return ivs.regions
}

// internRegion returns r's index in ivs.regions, appending it if not
// already present.
func (ivs *ItemVariationStore) internRegion(r VariationRegion) uint16 {
	k := regionKey(r)
	if idx, ok := ivs.regionIdx[k]; ok {
		return idx
	}
	idx := uint16(len(ivs.regions))
	ivs.regions = append(ivs.regions, r)
	ivs.regionIdx[k] = idx
	return idx
}

// newSubtable appends a new, empty subtable whose regionIndices are
// interned against ivs.regions, returning the subtable's index.
func (ivs *ItemVariationStore) newSubtable(regions []VariationRegion) int {
	indices := make([]uint16, len(regions))
	for i, r := range regions {
		indices[i] = ivs.internRegion(r)
	}
	ivs.subtables = append(ivs.subtables, &ItemVariationData{RegionIndices: indices})
	return len(ivs.subtables) - 1
}

// addRow appends a delta row to subtable subtableIndex and returns its
// row index (the new inner index).
func (ivs *ItemVariationStore) addRow(subtableIndex int, row []int16) int {
	sub := ivs.subtables[subtableIndex]
	sub.DeltaValues = append(sub.DeltaValues, row)
	return len(sub.DeltaValues) - 1
}

// AddValue interns vvr's per-location values into the store, returning the
// IndexPair callers should store for later lookup. The VarLocationMap
// given to NewItemVariationStore resolves LocationIndex values to
// coordinate vectors for model construction.
func (ivs *ItemVariationStore) AddValue(vvr *VarValueRecord) IndexPair {
	if !vvr.IsVariable() {
		return NotVariable
	}

	ls := vvr.sortedLocationSet()
	key := locationSetKey(ls)
	model, ok := ivs.locationSetMap[key]
	if !ok {
		model = NewVarModel(ivs, ivs.locations, ls)
		ivs.locationSetMap[key] = model
	}
	inner := model.AddValue(vvr)
	return IndexPair{Outer: uint16(model.subtableIndex), Inner: uint16(inner)}
}

// ParseItemVariationStore parses an Item Variation Store whose header
// begins at ivsOffset within data. Structural violations return an
// error; callers typically reset to an empty store rather than
// failing the whole font.
func ParseItemVariationStore(data []byte, ivsOffset uint32, limits BuildLimits, trace tracing.Trace) (*ItemVariationStore, error) {
	t := traceOrDefault(trace)
	p, err := NewParser(data).SubParserFromOffset(int(ivsOffset))
	if err != nil {
		t.Errorf("IVS: offset %d out of bounds", ivsOffset)
		return nil, ErrInvalidOffset
	}

	format, err := p.U16()
	if err != nil || format != 1 {
		t.Errorf("IVS: unsupported format %d", format)
		return nil, ErrInvalidFormat
	}
	regionListOffset, err := p.U32()
	if err != nil {
		return nil, ErrInvalidTable
	}
	subtableCount, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	subtableOffsets := make([]uint32, subtableCount)
	for i := range subtableOffsets {
		off, err := p.U32()
		if err != nil {
			t.Errorf("IVS: truncated subtable offset table")
			return nil, ErrInvalidOffset
		}
		subtableOffsets[i] = off
	}

	rp, err := p.SubParserFromOffset(int(regionListOffset))
	if err != nil {
		t.Errorf("IVS: regionListOffset %d out of bounds", regionListOffset)
		return nil, ErrInvalidOffset
	}
	axisCount, err := rp.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	regionCount, err := rp.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	if int(axisCount) > limits.MaxAxes {
		t.Errorf("IVS: axisCount %d exceeds limit %d", axisCount, limits.MaxAxes)
		return nil, ErrTooManyAxes
	}
	if int(regionCount) > limits.MaxRegions {
		t.Errorf("IVS: regionCount %d exceeds limit %d", regionCount, limits.MaxRegions)
		return nil, ErrTooManyRegions
	}

	ivs := &ItemVariationStore{
		axisCount: int(axisCount),
		regionIdx: make(map[string]uint16),
		limits:    limits,
	}
	ivs.regions = make([]VariationRegion, regionCount)
	for i := range ivs.regions {
		region := make(VariationRegion, axisCount)
		for a := range region {
			start, err1 := rp.I16()
			peak, err2 := rp.I16()
			end, err3 := rp.I16()
			if err1 != nil || err2 != nil || err3 != nil {
				t.Errorf("IVS: truncated region list")
				return nil, ErrInvalidOffset
			}
			region[a] = AxisRegion{Start: F2Dot14(start), Peak: F2Dot14(peak), End: F2Dot14(end)}
		}
		ivs.regions[i] = region
		ivs.regionIdx[regionKey(region)] = uint16(i)
	}

	ivs.subtables = make([]*ItemVariationData, subtableCount)
	for i, off := range subtableOffsets {
		sub, err := parseItemVariationData(data, int(ivsOffset)+int(off), limits, t)
		if err != nil {
			t.Errorf("IVS: subtable %d malformed: %v", i, err)
			return nil, err
		}
		ivs.subtables[i] = sub
	}

	return ivs, nil
}

// parseItemVariationData parses one delta-set subtable at offset off
// within the enclosing font's data.
func parseItemVariationData(data []byte, off int, limits BuildLimits, t tracing.Trace) (*ItemVariationData, error) {
	p, err := NewParser(data).SubParserFromOffset(off)
	if err != nil {
		return nil, ErrInvalidOffset
	}
	itemCount, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	shortDeltaCount, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	regionIndexCount, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	if int(regionIndexCount) > limits.MaxRegions {
		t.Errorf("IVS: subtable regionIndexCount %d exceeds limit %d", regionIndexCount, limits.MaxRegions)
		return nil, ErrTooManyRegions
	}

	regionIndices := make([]uint16, regionIndexCount)
	for i := range regionIndices {
		idx, err := p.U16()
		if err != nil {
			return nil, ErrInvalidOffset
		}
		regionIndices[i] = idx
	}

	rows := make([][]int16, itemCount)
	for i := range rows {
		row := make([]int16, regionIndexCount)
		for c := 0; c < int(regionIndexCount); c++ {
			if c < int(shortDeltaCount) {
				v, err := p.I16()
				if err != nil {
					return nil, ErrInvalidOffset
				}
				row[c] = v
			} else {
				v, err := p.U8()
				if err != nil {
					return nil, ErrInvalidOffset
				}
				row[c] = int16(int8(v))
			}
		}
		rows[i] = row
	}

	return &ItemVariationData{RegionIndices: regionIndices, DeltaValues: rows}, nil
}

// CalcRegionScalars computes, for every region in the store, its scalar
// weight at the given normalized instance coordinates. If the
// store's axis count disagrees with len(instCoords), it logs and returns
// an all-zero slice rather than failing.
func (ivs *ItemVariationStore) CalcRegionScalars(instCoords []F2Dot14, trace tracing.Trace) []float32 {
	scalars := make([]float32, len(ivs.regions))
	if ivs.axisCount != len(instCoords) {
		traceOrDefault(trace).Errorf("IVS: axisCount %d disagrees with %d instance coordinates", ivs.axisCount, len(instCoords))
		return scalars
	}
	for i, r := range ivs.regions {
		scalars[i] = r.scalarAtFloat(instCoords)
	}
	return scalars
}

// ApplyDeltasForIndexPair blends subtable pair.Outer's row pair.Inner
// against the given per-region scalars. Out-of-range indices and
// region-count mismatches log and return 0; they never abort.
func (ivs *ItemVariationStore) ApplyDeltasForIndexPair(pair IndexPair, scalars []float32, regionListCount int, trace tracing.Trace) float32 {
	t := traceOrDefault(trace)
	if int(pair.Outer) >= len(ivs.subtables) {
		t.Errorf("IVS: outer index %d out of range (%d subtables)", pair.Outer, len(ivs.subtables))
		return 0
	}
	sub := ivs.subtables[pair.Outer]
	if len(sub.RegionIndices) == 0 {
		return 0
	}
	if len(sub.RegionIndices) > regionListCount {
		t.Errorf("IVS: subtable %d regionIndices count %d exceeds regionListCount %d", pair.Outer, len(sub.RegionIndices), regionListCount)
		return 0
	}
	if int(pair.Inner) >= len(sub.DeltaValues) {
		t.Errorf("IVS: inner index %d out of range (%d rows)", pair.Inner, len(sub.DeltaValues))
		return 0
	}
	row := sub.DeltaValues[pair.Inner]
	var sum float32
	for i, ri := range sub.RegionIndices {
		if int(ri) < len(scalars) {
			sum += scalars[ri] * float32(row[i])
		}
	}
	return sum
}

// ApplyDeltasForGid resolves gid through indexMap and blends the result.
func (ivs *ItemVariationStore) ApplyDeltasForGid(indexMap *DeltaSetIndexMap, gid GlyphID, scalars []float32, regionListCount int, trace tracing.Trace) float32 {
	pair := indexMap.Lookup(gid)
	return ivs.ApplyDeltasForIndexPair(pair, scalars, regionListCount, trace)
}

// DeltaSetIndexMap is a per-glyph redirection from a dense gid to an IVS
// (outer,inner) pair, with last-value clamp.
type DeltaSetIndexMap struct {
	// Offset is the raw table offset this map was parsed from. It is kept
	// around (rather than a plain bool) so callers can gate optional
	// side-bearing contributions the same way the map's presence is
	// tested on the wire: a zero offset means "no map".
	Offset uint32
	Map    []IndexPair
}

// Lookup returns the IndexPair for gid, clamping to the last entry when
// gid exceeds the map.
func (m *DeltaSetIndexMap) Lookup(gid GlyphID) IndexPair {
	if m == nil || len(m.Map) == 0 {
		return IndexPair{Outer: 0, Inner: uint16(gid)}
	}
	if int(gid) < len(m.Map) {
		return m.Map[gid]
	}
	return m.Map[len(m.Map)-1]
}

// ParseDeltaSetIndexMap parses a delta-set index map at offset off within
// data. The wire format here has no leading format byte: the
// header is directly (entryFormat, mapCount). An offset of 0 means the map
// is absent, and (nil, nil) is returned.
func ParseDeltaSetIndexMap(data []byte, off uint32, trace tracing.Trace) (*DeltaSetIndexMap, error) {
	if off == 0 {
		return nil, nil
	}
	t := traceOrDefault(trace)
	p, err := NewParser(data).SubParserFromOffset(int(off))
	if err != nil {
		t.Errorf("DeltaSetIndexMap: offset %d out of bounds", off)
		return nil, ErrInvalidOffset
	}
	entryFormat, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}
	mapCount, err := p.U16()
	if err != nil {
		return nil, ErrInvalidTable
	}

	entrySize := int((entryFormat&0x30)>>4) + 1
	innerBits := uint((entryFormat & 0x0F)) + 1
	innerMask := uint32(1)<<innerBits - 1

	entries := make([]IndexPair, mapCount)
	for i := range entries {
		raw, err := p.Bytes(entrySize)
		if err != nil {
			t.Errorf("DeltaSetIndexMap: truncated at entry %d", i)
			return nil, ErrInvalidOffset
		}
		var e uint32
		for _, b := range raw {
			e = e<<8 | uint32(b)
		}
		entries[i] = IndexPair{
			Outer: uint16(e >> innerBits),
			Inner: uint16(e & innerMask),
		}
	}

	return &DeltaSetIndexMap{Offset: off, Map: entries}, nil
}

// Serialize encodes the store so that every delta is written as a
// 16-bit word (shortDeltaCount is set equal to regionCount, matching the
// AFDKO builder's "all shorts" behavior rather than splitting into a
// short/byte mix, see DESIGN.md).
func (ivs *ItemVariationStore) Serialize() []byte {
	regionListOffset := 8 + 4*len(ivs.subtables)

	subtableBytes := make([][]byte, len(ivs.subtables))
	for i, sub := range ivs.subtables {
		subtableBytes[i] = serializeItemVariationData(sub)
	}

	regionListBytes := serializeRegionList(ivs.axisCount, ivs.regions)

	total := regionListOffset + len(regionListBytes)
	for _, b := range subtableBytes {
		total += len(b)
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint16(buf[0:], 1) // format
	binary.BigEndian.PutUint32(buf[2:], uint32(regionListOffset))
	binary.BigEndian.PutUint16(buf[6:], uint16(len(ivs.subtables)))

	off := regionListOffset + len(regionListBytes)
	for i, b := range subtableBytes {
		binary.BigEndian.PutUint32(buf[8+4*i:], uint32(off))
		off += len(b)
	}

	copy(buf[regionListOffset:], regionListBytes)
	off = regionListOffset + len(regionListBytes)
	for _, b := range subtableBytes {
		copy(buf[off:], b)
		off += len(b)
	}

	return buf
}

func serializeRegionList(axisCount int, regions []VariationRegion) []byte {
	buf := make([]byte, 4+len(regions)*axisCount*6)
	binary.BigEndian.PutUint16(buf[0:], uint16(axisCount))
	binary.BigEndian.PutUint16(buf[2:], uint16(len(regions)))
	off := 4
	for _, r := range regions {
		for _, a := range r {
			binary.BigEndian.PutUint16(buf[off:], uint16(a.Start))
			binary.BigEndian.PutUint16(buf[off+2:], uint16(a.Peak))
			binary.BigEndian.PutUint16(buf[off+4:], uint16(a.End))
			off += 6
		}
	}
	return buf
}

func serializeItemVariationData(sub *ItemVariationData) []byte {
	regionCount := len(sub.RegionIndices)
	itemCount := len(sub.DeltaValues)
	buf := make([]byte, 6+regionCount*2+itemCount*regionCount*2)
	binary.BigEndian.PutUint16(buf[0:], uint16(itemCount))
	binary.BigEndian.PutUint16(buf[2:], uint16(regionCount)) // shortDeltaCount == regionCount, see Serialize doc
	binary.BigEndian.PutUint16(buf[4:], uint16(regionCount))
	off := 6
	for _, ri := range sub.RegionIndices {
		binary.BigEndian.PutUint16(buf[off:], ri)
		off += 2
	}
	for _, row := range sub.DeltaValues {
		for _, v := range row {
			binary.BigEndian.PutUint16(buf[off:], uint16(v))
			off += 2
		}
	}
	return buf
}
