package physics

import "gonum.org/v1/gonum/spatial/r3"

// Laser is a Doppler cooling beam. It pushes along KHat with constant
// radiation pressure F0 (N) and damps velocity with coefficient Beta (kg/s).
type Laser struct {
	Name string
	KHat r3.Vec
	F0   float64
	Beta float64
}

// NewLaser normalises k; a zero k yields a beam with no pressure direction.
func NewLaser(name string, k r3.Vec, f0, beta float64) Laser {
	if r3.Norm(k) > 0 {
		k = r3.Unit(k)
	}
	return Laser{Name: name, KHat: k, F0: f0, Beta: beta}
}

// Force returns F0·k̂ − β·v for an ion moving with velocity v.
func (l Laser) Force(v r3.Vec) r3.Vec {
	return r3.Sub(r3.Scale(l.F0, l.KHat), r3.Scale(l.Beta, v))
}
