package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/ionmd/internal/physics"
	"github.com/san-kum/ionmd/internal/trajectory"
	"gonum.org/v1/gonum/floats"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "unknown"
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// Series extracts one coordinate of one ion. Frames too short to contain
// the ion are skipped.
func Series(frames []trajectory.Frame, ion int, axis Axis) []float64 {
	out := make([]float64, 0, len(frames))
	for _, f := range frames {
		if ion < 0 || ion >= len(f) {
			continue
		}
		switch axis {
		case AxisX:
			out = append(out, f[ion].X)
		case AxisY:
			out = append(out, f[ion].Y)
		default:
			out = append(out, f[ion].Z)
		}
	}
	return out
}

// KineticEnergy sums ½·m·|v|² over the ensemble, in joules.
func KineticEnergy(ions []*physics.Ion) float64 {
	e := make([]float64, len(ions))
	for i, ion := range ions {
		e[i] = ion.KineticEnergy()
	}
	return floats.Sum(e)
}
