// Package analysis extracts oscillation properties from trajectories.
//
//   - [PowerSpectrum] and [DominantFrequency]: FFT-based spectral peak
//   - [ZeroCrossingPeriod]: interpolated period of a single mode
//   - [Series]: one coordinate of one ion over every frame
//   - [GeneratePhasePortrait]: position against finite-difference velocity
//   - [KineticEnergy]: total kinetic energy of an ensemble
//
// Comparing a measured spectrum against the analytic secular frequency:
//
//	z := analysis.Series(frames, 0, analysis.AxisZ)
//	f := analysis.DominantFrequency(z, dt)
//	_, wz := trap.SecularFrequencies(40, 1)
//	ratio := 2 * math.Pi * f / wz
package analysis
