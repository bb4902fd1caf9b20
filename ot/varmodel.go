package ot

import "sort"

// VarValueRecord is a build-side value: a default plus optional
// per-location overrides, keyed by LocationIndex.
type VarValueRecord struct {
	Default     int32
	PerLocation map[LocationIndex]int32
}

// IsVariable reports whether the record carries any per-location override.
func (v *VarValueRecord) IsVariable() bool {
	return len(v.PerLocation) > 0
}

// valueAt returns the value at location li, falling back to Default.
func (v *VarValueRecord) valueAt(li LocationIndex) int32 {
	if val, ok := v.PerLocation[li]; ok {
		return val
	}
	return v.Default
}

// sortedLocationSet returns the distinct LocationIndex values present in
// PerLocation, ascending (including index 0 if PerLocation has it).
func (v *VarValueRecord) sortedLocationSet() []LocationIndex {
	ls := make([]LocationIndex, 0, len(v.PerLocation))
	for li := range v.PerLocation {
		ls = append(ls, li)
	}
	sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
	return ls
}

func locationSetKey(ls []LocationIndex) string {
	buf := make([]byte, len(ls)*4)
	for i, li := range ls {
		o := i * 4
		buf[o] = byte(li >> 24)
		buf[o+1] = byte(li >> 16)
		buf[o+2] = byte(li >> 8)
		buf[o+3] = byte(li)
	}
	return string(buf)
}

// weight is one entry of a VarModel weight row: master Index's
// contribution, scaled by Scalar, subtracted when encoding a later
// master's delta.
type weight struct {
	Index  int
	Scalar Fixed
}

// VarModel infers a region list and lower-triangular weight matrix from a
// set of master locations, and encodes VarValueRecord deltas against it.
// A VarModel is created once per distinct location set and reused for
// every value sharing that set.
type VarModel struct {
	ivs             *ItemVariationStore // borrowed; VarModel does not own the store
	vlm             *VarLocationMap
	sortedLocations []LocationIndex
	regions         []VariationRegion // index-aligned with sortedLocations; regions[0] is the degenerate default region
	deltaWeights    [][]weight        // index-aligned with sortedLocations
	subtableIndex   int
}

// NewVarModel builds a VarModel over locationSet (the default location is
// added automatically if not already present) and registers a new
// subtable for it in ivs.
func NewVarModel(ivs *ItemVariationStore, vlm *VarLocationMap, locationSet []LocationIndex) *VarModel {
	locations := ensureDefaultFirst(locationSet)
	axisCount := vlm.getAxisCount()

	coords := make([]VariationLocation, len(locations))
	for i, li := range locations {
		coords[i] = vlm.getLocation(li)
	}

	axisPoints := computeAxisPoints(coords, axisCount)
	order := sortLocationIndices(coords, axisPoints)

	sortedLocations := make([]LocationIndex, len(locations))
	sortedCoords := make([]VariationLocation, len(locations))
	for i, idx := range order {
		sortedLocations[i] = locations[idx]
		sortedCoords[i] = coords[idx]
	}

	regions := buildInitialRegions(sortedCoords, axisCount)
	narrowRegions(regions)

	m := &VarModel{
		ivs:             ivs,
		vlm:             vlm,
		sortedLocations: sortedLocations,
		regions:         regions,
	}
	m.subtableIndex = ivs.newSubtable(regions[1:])
	m.deltaWeights = calcDeltaWeights(regions)
	return m
}

// ensureDefaultFirst returns locationSet with LocationIndex 0 present (it
// is added if missing); the caller does not need to special-case models
// that were interned without an explicit default entry.
func ensureDefaultFirst(locationSet []LocationIndex) []LocationIndex {
	for _, li := range locationSet {
		if li == 0 {
			return locationSet
		}
	}
	out := make([]LocationIndex, 0, len(locationSet)+1)
	out = append(out, 0)
	out = append(out, locationSet...)
	return out
}

// computeAxisPoints collects, per axis, the set of coordinate values that
// appear in an on-axis master location (a location with exactly one
// non-zero coordinate), plus 0 for every axis that has at least one such
// location.
func computeAxisPoints(coords []VariationLocation, axisCount int) []map[Fixed]bool {
	points := make([]map[Fixed]bool, axisCount)
	for a := range points {
		points[a] = make(map[Fixed]bool)
	}
	for _, loc := range coords {
		nzAxis, nzCount := -1, 0
		for a := 0; a < axisCount && a < len(loc); a++ {
			if loc[a] != 0 {
				nzAxis = a
				nzCount++
			}
		}
		if nzCount == 1 {
			v := loc[nzAxis].ToFixed()
			points[nzAxis][v] = true
			points[nzAxis][0] = true
		}
	}
	return points
}

// sortLocationIndices returns a permutation of 0..len(coords)-1 that
// orders master locations from most general to most specific.
func sortLocationIndices(coords []VariationLocation, axisPoints []map[Fixed]bool) []int {
	order := make([]int, len(coords))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cmpLocation(coords[order[a]], coords[order[b]], axisPoints) < 0
	})
	return order
}

func numNonZero(loc VariationLocation) int {
	n := 0
	for _, c := range loc {
		if c != 0 {
			n++
		}
	}
	return n
}

func countAxisPointMembers(loc VariationLocation, axisPoints []map[Fixed]bool) int {
	n := 0
	for a, c := range loc {
		if a < len(axisPoints) && axisPoints[a][c.ToFixed()] {
			n++
		}
	}
	return n
}

func signOf(v Fixed) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// cmpLocation is the 5-level total order used to sort master locations:
// fewer non-zero axes first, then more axis-point memberships first, then
// zero-before-nonzero per axis, then sign, then magnitude.
func cmpLocation(a, b VariationLocation, axisPoints []map[Fixed]bool) int {
	if na, nb := numNonZero(a), numNonZero(b); na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	if ca, cb := countAxisPointMembers(a, axisPoints), countAxisPointMembers(b, axisPoints); ca != cb {
		if ca > cb {
			return -1
		}
		return 1
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	at := func(loc VariationLocation, i int) Fixed {
		if i < len(loc) {
			return loc[i].ToFixed()
		}
		return 0
	}
	for i := 0; i < n; i++ {
		az, bz := at(a, i) == 0, at(b, i) == 0
		if az != bz {
			if az {
				return -1
			}
			return 1
		}
	}
	for i := 0; i < n; i++ {
		va, vb := at(a, i), at(b, i)
		if va != 0 && vb != 0 {
			if sa, sb := signOf(va), signOf(vb); sa != sb {
				if sa < sb {
					return -1
				}
				return 1
			}
		}
	}
	for i := 0; i < n; i++ {
		va, vb := fabs(at(a, i)), fabs(at(b, i))
		if va != vb {
			if va < vb {
				return -1
			}
			return 1
		}
	}
	return 0
}

// buildInitialRegions builds one tent region per sorted master location.
// Per axis the region is (0,0,0) where the location's coordinate v is 0,
// (0, v, max) where v > 0 and (min, v, 0) where v < 0, with max and min
// the largest and smallest coordinate of that axis across all locations.
func buildInitialRegions(sortedCoords []VariationLocation, axisCount int) []VariationRegion {
	maxAcross := make([]Fixed, axisCount)
	minAcross := make([]Fixed, axisCount)
	for _, loc := range sortedCoords {
		for a := 0; a < axisCount && a < len(loc); a++ {
			v := loc[a].ToFixed()
			if v > maxAcross[a] {
				maxAcross[a] = v
			}
			if v < minAcross[a] {
				minAcross[a] = v
			}
		}
	}

	regions := make([]VariationRegion, len(sortedCoords))
	for i, loc := range sortedCoords {
		r := make(VariationRegion, axisCount)
		for a := 0; a < axisCount; a++ {
			var v Fixed
			if a < len(loc) {
				v = loc[a].ToFixed()
			}
			switch {
			case v == 0:
				r[a] = AxisRegion{}
			case v > 0:
				r[a] = AxisRegion{Start: 0, Peak: F2Dot14FromFixed(v), End: F2Dot14FromFixed(maxAcross[a])}
			default:
				r[a] = AxisRegion{Start: F2Dot14FromFixed(minAcross[a]), Peak: F2Dot14FromFixed(v), End: 0}
			}
		}
		regions[i] = r
	}
	return regions
}

func sameSupport(r, p VariationRegion) bool {
	if len(r) != len(p) {
		return false
	}
	for a := range r {
		if (r[a].Peak != 0) != (p[a].Peak != 0) {
			return false
		}
	}
	return true
}

// narrowRegions shrinks each region's tent against every earlier region
// with the same support, so no two regions overlap more than necessary.
// It mutates regions in place.
func narrowRegions(regions []VariationRegion) {
	type candidate struct {
		axis  int
		lower bool
		ratio float64
	}
	for i := 1; i < len(regions); i++ {
		r := append(VariationRegion{}, regions[i]...)
		for j := 0; j < i; j++ {
			p := regions[j]
			if !sameSupport(r, p) {
				continue
			}
			relevant := true
			var cands []candidate
			for a := range r {
				peakP := p[a].Peak.ToFixed()
				peakR := r[a].Peak.ToFixed()
				if peakP == peakR {
					continue
				}
				lowerR, upperR := r[a].Start.ToFixed(), r[a].End.ToFixed()
				if !(peakP > lowerR && peakP < upperR) {
					relevant = false
					break
				}
				if peakP < peakR {
					ratio := float64(peakP-peakR) / float64(lowerR-peakR)
					cands = append(cands, candidate{axis: a, lower: true, ratio: ratio})
				} else {
					ratio := float64(peakP-peakR) / float64(upperR-peakR)
					cands = append(cands, candidate{axis: a, lower: false, ratio: ratio})
				}
			}
			if !relevant || len(cands) == 0 {
				continue
			}
			maxRatio := cands[0].ratio
			for _, c := range cands[1:] {
				if c.ratio > maxRatio {
					maxRatio = c.ratio
				}
			}
			for _, c := range cands {
				if c.ratio == maxRatio {
					peakP := p[c.axis].Peak
					if c.lower {
						r[c.axis].Start = peakP
					} else {
						r[c.axis].End = peakP
					}
				}
			}
		}
		regions[i] = r
	}
}

// calcDeltaWeights builds, for each region, the lower-triangular list of
// earlier regions whose scalar at this region's peak is non-zero, needed
// to subtract their already-encoded contribution when solving for this
// region's own delta.
func calcDeltaWeights(regions []VariationRegion) [][]weight {
	weights := make([][]weight, len(regions))
	for i := range regions {
		peak := make([]Fixed, len(regions[i]))
		for a, ar := range regions[i] {
			peak[a] = ar.Peak.ToFixed()
		}
		var row []weight
		for j := 0; j < i; j++ {
			s := regions[j].scalarAt(peak)
			if s != 0 {
				row = append(row, weight{Index: j, Scalar: s})
			}
		}
		weights[i] = row
	}
	return weights
}

// AddValue encodes vvr against every non-default master in this model
// and appends the resulting row to the model's subtable, returning the
// row's index (the new inner index).
func (m *VarModel) AddValue(vvr *VarValueRecord) int {
	n := len(m.sortedLocations)
	encoded := make([]Fixed, n)
	for i := 1; i < n; i++ {
		intDiff := vvr.valueAt(m.sortedLocations[i]) - vvr.Default
		rawDelta := Fixed(intDiff) << 16
		var acc Fixed
		for _, w := range m.deltaWeights[i] {
			acc += fixmul(w.Scalar, encoded[w.Index])
		}
		encoded[i] = rawDelta - acc
	}
	row := make([]int16, n-1)
	for i := 1; i < n; i++ {
		row[i-1] = FRound(encoded[i])
	}
	return m.ivs.addRow(m.subtableIndex, row)
}
