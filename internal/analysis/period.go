package analysis

import "gonum.org/v1/gonum/floats"

// ZeroCrossingPeriod averages the spacing of upward mean crossings,
// located by linear interpolation. It returns 0 when the samples cross
// fewer than twice.
func ZeroCrossingPeriod(samples []float64, dt float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	mean := floats.Sum(samples) / float64(len(samples))

	first, last := -1.0, -1.0
	count := 0
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1]-mean, samples[i]-mean
		if a < 0 && b >= 0 {
			t := (float64(i-1) + a/(a-b)) * dt
			if count == 0 {
				first = t
			}
			last = t
			count++
		}
	}
	if count < 2 {
		return 0
	}
	return (last - first) / float64(count-1)
}
