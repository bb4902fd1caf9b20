package ot

import (
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"
)

// Variable font axis tags (registered axes).
var (
	TagAxisWeight      = MakeTag('w', 'g', 'h', 't') // Weight axis
	TagAxisWidth       = MakeTag('w', 'd', 't', 'h') // Width axis
	TagAxisSlant       = MakeTag('s', 'l', 'n', 't') // Slant axis
	TagAxisItalic      = MakeTag('i', 't', 'a', 'l') // Italic axis
	TagAxisOpticalSize = MakeTag('o', 'p', 's', 'z') // Optical size axis
)

// TagFvar is the table tag for the font variations table.
var TagFvar = MakeTag('f', 'v', 'a', 'r')

// fvarHeaderSize is the size in bytes of the fvar table header.
const fvarHeaderSize = 16

// fvarAxisSize is the size in bytes of one VariationAxisRecord.
const fvarAxisSize = 20

// AxisFlags for variation axes.
type AxisFlags uint16

const (
	// AxisFlagHidden indicates the axis should not be exposed in user interfaces.
	AxisFlagHidden AxisFlags = 0x0001
)

// Variation names a single axis value setting supplied by a caller, e.g. as
// part of a CSS font-variation-settings-style request.
type Variation struct {
	Tag   Tag
	Value Fixed
}

// VariationAxis describes a single fvar axis record.
type VariationAxis struct {
	Index        int
	Tag          Tag
	MinValue     Fixed
	DefaultValue Fixed
	MaxValue     Fixed
	Flags        AxisFlags
	NameID       uint16
}

// VariationInstance is a predefined named style ("Bold", "Condensed Light").
type VariationInstance struct {
	Index            int
	SubfamilyNameID  uint16
	Flags            uint16
	Coordinates      []float32
	PostScriptNameID uint16 // 0 if not present
}

// Fvar is a parsed fvar (Font Variations) table. A nil *Fvar behaves as an
// empty table: every accessor returns its zero value rather than panicking,
// so callers can treat "no fvar" and "fvar with zero axes" alike.
type Fvar struct {
	data          []byte
	axisCount     int
	instanceCount int
	axisOffset    int
	instanceSize  int
}

// ParseFvar parses an fvar table. A malformed table returns an error and a
// nil *Fvar; per policy the caller should then treat the font as
// non-variable rather than abort.
func ParseFvar(data []byte, trace tracing.Trace) (*Fvar, error) {
	t := traceOrDefault(trace)
	if len(data) < fvarHeaderSize {
		t.Errorf("fvar: table shorter than header (%d bytes)", len(data))
		return nil, ErrInvalidTable
	}

	majorVersion := binary.BigEndian.Uint16(data[0:])
	minorVersion := binary.BigEndian.Uint16(data[2:])
	if majorVersion != 1 || minorVersion != 0 {
		t.Errorf("fvar: unsupported version %d.%d", majorVersion, minorVersion)
		return nil, ErrInvalidFormat
	}

	axisOffset := int(binary.BigEndian.Uint16(data[4:]))
	countSizePairs := int(binary.BigEndian.Uint16(data[6:]))
	axisCount := int(binary.BigEndian.Uint16(data[8:]))
	axisSize := int(binary.BigEndian.Uint16(data[10:]))
	instanceCount := int(binary.BigEndian.Uint16(data[12:]))
	instanceSize := int(binary.BigEndian.Uint16(data[14:]))

	if axisOffset < fvarHeaderSize {
		t.Errorf("fvar: axesArrayOffset %d precedes header", axisOffset)
		return nil, ErrInvalidTable
	}
	if countSizePairs < 2 {
		t.Errorf("fvar: countSizePairs %d < 2", countSizePairs)
		return nil, ErrInvalidTable
	}
	if axisSize < fvarAxisSize {
		t.Errorf("fvar: axisSize %d < %d", axisSize, fvarAxisSize)
		return nil, ErrInvalidFormat
	}
	minInstanceSize := 4 + 4*axisCount
	if instanceSize < minInstanceSize {
		t.Errorf("fvar: instanceSize %d < %d (4 + 4*axisCount)", instanceSize, minInstanceSize)
		return nil, ErrInvalidFormat
	}

	axesEnd := axisOffset + axisCount*axisSize
	instancesEnd := axesEnd + instanceCount*instanceSize
	if instancesEnd > len(data) {
		t.Errorf("fvar: table length %d too short for %d axes, %d instances", len(data), axisCount, instanceCount)
		return nil, ErrInvalidOffset
	}

	return &Fvar{
		data:          data,
		axisCount:     axisCount,
		instanceCount: instanceCount,
		axisOffset:    axisOffset,
		instanceSize:  instanceSize,
	}, nil
}

// HasData reports whether f is a non-nil table with at least one axis.
func (f *Fvar) HasData() bool {
	return f != nil && f.axisCount > 0
}

// AxisCount returns the number of variation axes.
func (f *Fvar) AxisCount() int {
	if f == nil {
		return 0
	}
	return f.axisCount
}

// Axes returns every axis record in declared order.
func (f *Fvar) Axes() []VariationAxis {
	if f == nil || f.axisCount == 0 {
		return nil
	}
	axes := make([]VariationAxis, f.axisCount)
	for i := 0; i < f.axisCount; i++ {
		axes[i] = f.axisAt(i)
	}
	return axes
}

// FindAxis finds an axis by its tag.
func (f *Fvar) FindAxis(tag Tag) (VariationAxis, bool) {
	if f == nil {
		return VariationAxis{}, false
	}
	for i := 0; i < f.axisCount; i++ {
		a := f.axisAt(i)
		if a.Tag == tag {
			return a, true
		}
	}
	return VariationAxis{}, false
}

// axisAt reads the axis record at the given index. Callers must have
// already checked index bounds.
func (f *Fvar) axisAt(index int) VariationAxis {
	off := f.axisOffset + index*fvarAxisSize
	return VariationAxis{
		Index:        index,
		Tag:          Tag(binary.BigEndian.Uint32(f.data[off:])),
		MinValue:     Fixed(binary.BigEndian.Uint32(f.data[off+4:])),
		DefaultValue: Fixed(binary.BigEndian.Uint32(f.data[off+8:])),
		MaxValue:     Fixed(binary.BigEndian.Uint32(f.data[off+12:])),
		Flags:        AxisFlags(binary.BigEndian.Uint16(f.data[off+16:])),
		NameID:       binary.BigEndian.Uint16(f.data[off+18:]),
	}
}

// InstanceCount returns the number of named instances.
func (f *Fvar) InstanceCount() int {
	if f == nil {
		return 0
	}
	return f.instanceCount
}

// Instances returns every named instance in declared order.
func (f *Fvar) Instances() []VariationInstance {
	if f == nil || f.instanceCount == 0 {
		return nil
	}
	instances := make([]VariationInstance, f.instanceCount)
	for i := 0; i < f.instanceCount; i++ {
		instances[i] = f.instanceAt(i)
	}
	return instances
}

// InstanceAt returns the named instance at the given index.
func (f *Fvar) InstanceAt(index int) (VariationInstance, bool) {
	if f == nil || index < 0 || index >= f.instanceCount {
		return VariationInstance{}, false
	}
	return f.instanceAt(index), true
}

func (f *Fvar) instanceAt(index int) VariationInstance {
	instancesStart := f.axisOffset + f.axisCount*fvarAxisSize
	off := instancesStart + index*f.instanceSize

	inst := VariationInstance{
		Index:           index,
		SubfamilyNameID: binary.BigEndian.Uint16(f.data[off:]),
		Coordinates:     make([]float32, f.axisCount),
	}

	coordOff := off + 4
	for i := 0; i < f.axisCount; i++ {
		inst.Coordinates[i] = fixed1616ToFloat(uint32(int32(binary.BigEndian.Uint32(f.data[coordOff+i*4:]))))
	}

	if f.instanceSize >= f.axisCount*4+6 {
		inst.PostScriptNameID = binary.BigEndian.Uint16(f.data[off+4+f.axisCount*4:])
	}

	return inst
}

// FindInstance returns the index of the instance whose coordinates exactly
// equal coords, or -1 if none matches. It is a plain linear equality scan
// and never mismatches on unequal coordinates.
func (f *Fvar) FindInstance(coords []float32) int {
	if f == nil {
		return -1
	}
	for i := 0; i < f.instanceCount; i++ {
		inst := f.instanceAt(i)
		if len(inst.Coordinates) != len(coords) {
			continue
		}
		match := true
		for j, c := range coords {
			if inst.Coordinates[j] != c {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// DefaultNormalize maps a user-space axis value into [-1, +1] via linear
// interpolation through (min,-1), (default,0), (max,+1), without applying
// any avar segment map. All arithmetic is done in Fixed.
func (f *Fvar) DefaultNormalize(axisIndex int, u Fixed) Fixed {
	if f == nil || axisIndex < 0 || axisIndex >= f.axisCount {
		return 0
	}
	a := f.axisAt(axisIndex)
	switch {
	case u < a.DefaultValue:
		if u < a.MinValue {
			return FixedMinusOne
		}
		return -fixdiv(a.DefaultValue-u, a.DefaultValue-a.MinValue)
	case u > a.DefaultValue:
		if u > a.MaxValue {
			return FixedOne
		}
		return fixdiv(u-a.DefaultValue, a.MaxValue-a.DefaultValue)
	default:
		return 0
	}
}

// fixed1616ToFloat converts a 16.16 fixed-point number to float32.
func fixed1616ToFloat(v uint32) float32 {
	return float32(int32(v)) / 65536.0
}
