package ot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewVarModelBuildsRegionsAndEncodesDeltas exercises VarModel's public
// surface directly: one axis, locations [default, (1.0,)].
func TestNewVarModelBuildsRegionsAndEncodesDeltas(t *testing.T) {
	vlm := NewVarLocationMap(1)
	l1 := vlm.Intern(VariationLocation{f2(1)})
	ivs := NewItemVariationStore(1, vlm, DefaultLimits)

	model := NewVarModel(ivs, vlm, []LocationIndex{l1})
	require.Equal(t, []LocationIndex{0, l1}, model.sortedLocations)
	require.Len(t, model.regions, 2)

	assert.Equal(t, VariationRegion{{Start: 0, Peak: 0, End: 0}}, model.regions[0])
	assert.Equal(t, VariationRegion{{Start: 0, Peak: f2(1), End: f2(1)}}, model.regions[1])

	// deltaWeights[1] references region 0, whose peak==0 rule gives scalar 1.
	require.Len(t, model.deltaWeights[1], 1)
	assert.Equal(t, 0, model.deltaWeights[1][0].Index)
	assert.Equal(t, FixedOne, model.deltaWeights[1][0].Scalar)

	row := model.AddValue(&VarValueRecord{Default: 500, PerLocation: map[LocationIndex]int32{l1: 700}})
	assert.Equal(t, 0, row)

	sub := ivs.subtables[model.subtableIndex]
	require.Len(t, sub.DeltaValues, 1)
	assert.Equal(t, []int16{200}, sub.DeltaValues[0], "200 = (700-500) - 1*0")
}

// TestNewVarModelSharedAcrossValues verifies per-location-set model
// reuse: two VarValueRecords over the same location set share one model
// and one subtable, each contributing its own row.
func TestNewVarModelSharedAcrossValues(t *testing.T) {
	vlm := NewVarLocationMap(1)
	l1 := vlm.Intern(VariationLocation{f2(1)})
	ivs := NewItemVariationStore(1, vlm, DefaultLimits)

	p1 := ivs.AddValue(&VarValueRecord{Default: 500, PerLocation: map[LocationIndex]int32{l1: 700}})
	p2 := ivs.AddValue(&VarValueRecord{Default: 100, PerLocation: map[LocationIndex]int32{l1: 50}})

	assert.Equal(t, p1.Outer, p2.Outer, "same location set reuses one subtable")
	assert.NotEqual(t, p1.Inner, p2.Inner)
}

func TestVarValueRecordIsVariable(t *testing.T) {
	v := &VarValueRecord{Default: 1}
	assert.False(t, v.IsVariable())
	v.PerLocation = map[LocationIndex]int32{1: 2}
	assert.True(t, v.IsVariable())
	assert.Equal(t, int32(2), v.valueAt(1))
	assert.Equal(t, int32(1), v.valueAt(99))
}

func TestSortedLocationSetIsAscending(t *testing.T) {
	v := &VarValueRecord{PerLocation: map[LocationIndex]int32{5: 1, 2: 1, 8: 1}}
	assert.Equal(t, []LocationIndex{2, 5, 8}, v.sortedLocationSet())
}

func TestComputeAxisPointsSingleNonZeroAxis(t *testing.T) {
	coords := []VariationLocation{{0, 0}, {f2(1), 0}, {0, f2(-1)}}
	points := computeAxisPoints(coords, 2)
	assert.True(t, points[0][fx(1)])
	assert.True(t, points[0][fx(0)])
	assert.True(t, points[1][fx(-1)])
}

func TestCmpLocationOrdersFewerNonZeroFirst(t *testing.T) {
	axisPoints := computeAxisPoints(nil, 2)
	a := VariationLocation{0, 0}
	b := VariationLocation{f2(1), 0}
	assert.Equal(t, -1, cmpLocation(a, b, axisPoints))
	assert.Equal(t, 1, cmpLocation(b, a, axisPoints))
	assert.Equal(t, 0, cmpLocation(a, a, axisPoints))
}
