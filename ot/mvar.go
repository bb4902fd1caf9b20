package ot

import (
	"encoding/binary"
	"sort"

	"github.com/npillmayer/schuko/tracing"
)

// TagMVAR is the table tag for the Metrics Variations table.
var TagMVAR = MakeTag('M', 'V', 'A', 'R')

// mvarHeaderSize is the size in bytes of the MVAR table header: version(4)
// + reserved(2) + valueRecordSize(2) + valueRecordCount(2) +
// itemVariationStoreOffset as Offset16(2).
const mvarHeaderSize = 12

// mvarMinRecordSize is the number of bytes this package interprets from
// each value record; valueRecordSize may declare more, in which case the
// remainder is skipped as forward-compatible padding.
const mvarMinRecordSize = 8

// MVarRecord is one (tag, IndexPair) entry of an MVAR table.
type MVarRecord struct {
	Tag   Tag
	Value IndexPair
}

// Mvar is a parsed MVAR (Metrics Variations) table: a sorted-by-tag record
// list plus the ItemVariationStore those records index into. It
// has no per-glyph maps, unlike HVAR/VVAR.
type Mvar struct {
	ivs     *ItemVariationStore
	records []MVarRecord
}

// ParseMvar parses an MVAR table. Records are required to be sorted by
// tag ascending so Lookup can binary search; a font whose records
// are not sorted is rejected as malformed.
func ParseMvar(data []byte, limits BuildLimits, trace tracing.Trace) (*Mvar, error) {
	t := traceOrDefault(trace)
	if len(data) < mvarHeaderSize {
		t.Errorf("MVAR: table shorter than header (%d bytes)", len(data))
		return nil, ErrInvalidTable
	}
	version := binary.BigEndian.Uint32(data[0:])
	if version != 0x00010000 {
		t.Errorf("MVAR: unsupported version 0x%08x", version)
		return nil, ErrInvalidFormat
	}

	valueRecordSize := int(binary.BigEndian.Uint16(data[6:]))
	valueRecordCount := int(binary.BigEndian.Uint16(data[8:]))
	ivsOffset := uint32(binary.BigEndian.Uint16(data[10:]))

	if valueRecordSize < mvarMinRecordSize {
		t.Errorf("MVAR: valueRecordSize %d < %d", valueRecordSize, mvarMinRecordSize)
		return nil, ErrInvalidFormat
	}
	end := mvarHeaderSize + valueRecordCount*valueRecordSize
	if end > len(data) {
		t.Errorf("MVAR: table length %d too short for %d records of size %d", len(data), valueRecordCount, valueRecordSize)
		return nil, ErrInvalidOffset
	}

	records := make([]MVarRecord, valueRecordCount)
	off := mvarHeaderSize
	for i := range records {
		records[i] = MVarRecord{
			Tag: Tag(binary.BigEndian.Uint32(data[off:])),
			Value: IndexPair{
				Outer: binary.BigEndian.Uint16(data[off+4:]),
				Inner: binary.BigEndian.Uint16(data[off+6:]),
			},
		}
		off += valueRecordSize // skips any padding beyond mvarMinRecordSize
	}
	if !sort.SliceIsSorted(records, func(i, j int) bool { return records[i].Tag < records[j].Tag }) {
		t.Errorf("MVAR: value records are not sorted by tag")
		return nil, ErrInvalidTable
	}

	var ivs *ItemVariationStore
	if ivsOffset != 0 {
		var err error
		ivs, err = ParseItemVariationStore(data, ivsOffset, limits, t)
		if err != nil {
			t.Errorf("MVAR: item variation store malformed, resetting to empty: %v", err)
			ivs = &ItemVariationStore{}
		}
	} else {
		ivs = &ItemVariationStore{}
	}

	return &Mvar{ivs: ivs, records: records}, nil
}

// Store returns the underlying ItemVariationStore.
func (m *Mvar) Store() *ItemVariationStore {
	if m == nil {
		return nil
	}
	return m.ivs
}

// Lookup binary searches for tag and, if present, blends its delta
// against scalars. The bool result reports whether tag was found; a
// missing tag returns (0, false).
func (m *Mvar) Lookup(tag Tag, scalars []float32) (delta float32, found bool) {
	if m == nil {
		return 0, false
	}
	i := sort.Search(len(m.records), func(i int) bool { return m.records[i].Tag >= tag })
	if i >= len(m.records) || m.records[i].Tag != tag {
		return 0, false
	}
	return m.ivs.ApplyDeltasForIndexPair(m.records[i].Value, scalars, len(m.ivs.Regions()), nil), true
}
