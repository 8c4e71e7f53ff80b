package layout

import (
	"math"
	"strconv"
	"strings"
)

// This file defines unit-safe lengths and the fixed pixel → document unit conversions.

// Unit represents the unit of a length value as written in DSL or used by a document writer.
type Unit int

const (
	UnitNone Unit = iota // unit-less numbers, treated as pixels for geometry
	UnitPX               // CSS pixels
	UnitIN               // inches, the slide document length unit
	UnitPT               // typographic points
	UnitEMU              // English Metric Units used by Office Open XML
)

// ReferenceDPI is the fixed number of pixels per inch used for every pixel → length conversion.
// PointsPerInch is the typographic constant. They are kept separate so that changing ReferenceDPI
// rescales page geometry and font sizes through their own formulas.
const (
	ReferenceDPI  = 72.0
	PointsPerInch = 72.0
	EMUPerInch    = 914400.0

	// maxEMU keeps float → int64 conversions in a safe range.
	maxEMU = math.MaxInt64 / 2
)

// Length preserves a numeric value with its unit.
type Length struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

// inches normalises any length to inches.
func (l Length) inches() float64 {
	switch l.Unit {
	case UnitIN:
		return l.Value
	case UnitPT:
		return l.Value / PointsPerInch
	case UnitEMU:
		return l.Value / EMUPerInch
	default: // UnitPX, UnitNone
		return l.Value / ReferenceDPI
	}
}

// To converts this length to the target unit.
func (l Length) To(target Unit) float64 {
	if l.Unit == target || (l.Unit == UnitNone && target == UnitPX) {
		return l.Value
	}
	in := l.inches()
	switch target {
	case UnitIN:
		return in
	case UnitPT:
		return in * PointsPerInch
	case UnitEMU:
		return in * EMUPerInch
	default:
		return in * ReferenceDPI
	}
}

func (l Length) ToPX() float64 { return l.To(UnitPX) }

// PxToLength converts pixels to the document length unit (inches).
func PxToLength(px float64) float64 {
	return px / ReferenceDPI
}

// PxToPoints converts a pixel font size to points: pixels → inches → points.
// With ReferenceDPI = 72 this is numerically the identity.
func PxToPoints(px float64) float64 {
	return (px / ReferenceDPI) * PointsPerInch
}

// Inch converts inches to EMU, clamped to a safe range.
func Inch(n float64) int64 {
	return clampEMU(n * EMUPerInch)
}

func clampEMU(v float64) int64 {
	if v > float64(maxEMU) {
		return maxEMU
	}
	if v < -float64(maxEMU) {
		return -maxEMU
	}
	return int64(math.Round(v))
}

// ParseRawLengthStr parses a DSL length string preserving its unit. Bare numbers keep UnitNone.
func ParseRawLengthStr(value string) Length {
	v := strings.TrimSpace(value)
	if v == "" {
		return Length{Value: 0, Unit: UnitNone}
	}
	lower := strings.ToLower(v)
	unit := UnitNone
	num := lower
	for _, suf := range []struct {
		s string
		u Unit
	}{{"px", UnitPX}, {"in", UnitIN}, {"pt", UnitPT}} {
		if strings.HasSuffix(lower, suf.s) {
			unit = suf.u
			num = strings.TrimSpace(strings.TrimSuffix(lower, suf.s))
			break
		}
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{Value: 0, Unit: UnitNone}
	}
	return Length{Value: f, Unit: unit}
}

// ParsePixels 解析 DSL 长度并换算为像素；无法解析时返回 ok=false。
func ParsePixels(value string) (float64, bool) {
	l := ParseRawLengthStr(value)
	if l.Unit == UnitNone && l.Value == 0 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return 0, false
		}
	}
	return l.ToPX(), true
}
