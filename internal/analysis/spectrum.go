package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// PowerSpectrum returns |X_k|² for k = 0..n/2 of the mean-removed samples.
func PowerSpectrum(samples []float64) []float64 {
	n := len(samples)
	if n == 0 {
		return nil
	}

	centred := make([]float64, n)
	copy(centred, samples)
	floats.AddConst(-floats.Sum(samples)/float64(n), centred)

	x := fft.FFTReal(centred)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(x[i])
		ps[i] = a * a
	}
	return ps
}

// DominantFrequency returns the frequency in Hz of the strongest non-DC
// bin, refined toward the larger neighbour by the magnitude ratio. It is
// 0 for fewer than four samples.
func DominantFrequency(samples []float64, dt float64) float64 {
	n := len(samples)
	if n < 4 || dt <= 0 {
		return 0
	}

	ps := PowerSpectrum(samples)
	k := 1 + floats.MaxIdx(ps[1:])

	offset := 0.0
	c := math.Sqrt(ps[k])
	l := math.Sqrt(ps[k-1])
	r := 0.0
	if k+1 < len(ps) {
		r = math.Sqrt(ps[k+1])
	}
	switch {
	case r > l && c+r > 0:
		offset = r / (c + r)
	case k > 1 && c+l > 0:
		offset = -l / (c + l)
	}
	return (float64(k) + offset) / (float64(n) * dt)
}
