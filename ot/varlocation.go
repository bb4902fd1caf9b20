package ot

// LocationIndex is a dense, interned identifier for a design-space
// location inside a VarLocationMap. Index 0 is always the default
// location (all axis coordinates zero).
type LocationIndex uint32

// VarLocationMap interns design-space locations (one F2DOT14 coordinate
// per axis) into dense LocationIndex values, so that build-side data
// structures (VarValueRecord.perLocation, VarModel.sortedLocations) can
// key on a small integer instead of a coordinate slice.
type VarLocationMap struct {
	axisCount int
	locations []VariationLocation
	index     map[string]LocationIndex
}

// VariationLocation is a coordinate vector in normalized design space, one
// F2DOT14 value per axis. Axes not mentioned are implicitly zero.
type VariationLocation []F2Dot14

func (l VariationLocation) key() string {
	buf := make([]byte, len(l)*2)
	for i, c := range l {
		buf[i*2] = byte(uint16(c) >> 8)
		buf[i*2+1] = byte(uint16(c))
	}
	return string(buf)
}

// NewVarLocationMap creates an empty map for a font with axisCount axes,
// pre-interning the default (all-zero) location as index 0.
func NewVarLocationMap(axisCount int) *VarLocationMap {
	m := &VarLocationMap{
		axisCount: axisCount,
		index:     make(map[string]LocationIndex),
	}
	m.Intern(make(VariationLocation, axisCount))
	return m
}

// getAxisCount returns the number of axes locations in this map are defined
// over.
func (m *VarLocationMap) getAxisCount() int {
	return m.axisCount
}

// Intern returns the LocationIndex for loc, assigning a new one on first
// occurrence. loc is defensively copied.
func (m *VarLocationMap) Intern(loc VariationLocation) LocationIndex {
	padded := make(VariationLocation, m.axisCount)
	copy(padded, loc)
	k := padded.key()
	if idx, ok := m.index[k]; ok {
		return idx
	}
	idx := LocationIndex(len(m.locations))
	m.locations = append(m.locations, padded)
	m.index[k] = idx
	return idx
}

// getLocation returns the coordinate vector for a previously interned
// LocationIndex.
func (m *VarLocationMap) getLocation(i LocationIndex) VariationLocation {
	if int(i) >= len(m.locations) {
		return nil
	}
	return m.locations[i]
}

// Len returns the number of distinct locations interned so far.
func (m *VarLocationMap) Len() int {
	return len(m.locations)
}
