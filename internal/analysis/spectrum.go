package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the magnitude of each non-negative frequency bin
// of data with its mean removed. Bin k is k/(len(data)*dt) Hz. NaN samples
// are treated as the mean.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return nil
	}
	mean := stat.Mean(finite(data), nil)
	centered := make([]float64, n)
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		centered[i] = v - mean
	}

	coeff := fourier.NewFFT(n).Coefficients(nil, centered)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c)
	}
	return ps
}

// DominantFrequency is the strongest non-zero frequency in Hz, or 0 when
// data is too short or flat.
func DominantFrequency(data []float64, dt float64) float64 {
	ps := PowerSpectrum(data)
	best, k := 0.0, 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > best {
			best, k = ps[i], i
		}
	}
	if k == 0 || best < 1e-12 {
		return 0
	}
	return float64(k) / (float64(len(data)) * dt)
}

func finite(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []float64{0}
	}
	return out
}
