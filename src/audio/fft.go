package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/viterin/vek"
)

// ----- Spectrum ----- //

// Spectrum computes magnitude spectra of fixed length, power of two blocks.
// The bit reverse permutation, twiddle factors and Han window are computed
// once per length.
type Spectrum struct {
	reorder []int
	twiddle []complex128
	window  []float64
	scratch []complex128
}

// NewSpectrum ...
func NewSpectrum(n int) (*Spectrum, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("spectrum length must be a power of two, got %d", n)
	}
	s := &Spectrum{
		reorder: make([]int, n),
		twiddle: make([]complex128, n/2),
		window:  make([]float64, n),
		scratch: make([]complex128, n),
	}
	for i := range s.reorder {
		s.reorder[i] = bitReverse(i, n)
	}
	for i := range s.twiddle {
		s.twiddle[i] = cmplx.Exp(complex(0, -twoPi*float64(i)/float64(n)))
	}
	for i := range s.window {
		s.window[i] = 0.5 - 0.5*math.Cos(twoPi*float64(i)/float64(n))
	}
	return s, nil
}

// Len returns the block length.
func (s *Spectrum) Len() int {
	return len(s.reorder)
}

func bitReverse(k, n int) int {
	m := 0
	for ; n > 1; n = n >> 1 {
		m = m<<1 + k&1
		k = k >> 1
	}
	return m
}

// transform runs an in place radix-2 decimation in time over s.scratch.
func (s *Spectrum) transform() {
	x := s.scratch
	n := len(x)
	for m := 1; m < n; m <<= 1 {
		stride := n / (m << 1)
		for k := 0; k < m; k++ {
			w := s.twiddle[k*stride]
			for i := k; i < n; i += m << 1 {
				odd := x[i+m] * w
				x[i+m] = x[i] - odd
				x[i] += odd
			}
		}
	}
}

// Magnitudes replaces x with the magnitude of its transform. When windowed
// is set, x is multiplied by the Han window first.
func (s *Spectrum) Magnitudes(x []float64, windowed bool) error {
	if len(x) != s.Len() {
		return fmt.Errorf("length should be %v, but got %v", s.Len(), len(x))
	}
	if windowed {
		vek.Mul_Inplace(x, s.window)
	}
	for i, v := range x {
		s.scratch[s.reorder[i]] = complex(v, 0)
	}
	s.transform()
	for i, c := range s.scratch {
		x[i] = cmplx.Abs(c)
	}
	return nil
}

// ----- Analysis ----- //

const maxAnalysisLength = 4096

func toFloat(samples []int16) []float64 {
	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	return x
}

// Peak returns the largest absolute sample value.
func Peak(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}
	x := toFloat(samples)
	vek.Abs_Inplace(x)
	return int(vek.Max(x))
}

// DominantFrequency estimates the frequency of the strongest partial in
// samples. Only the first power-of-two run of samples (at most 4096) is
// analysed, so the resolution is sampleRate/n Hz. Silence gives 0.
func DominantFrequency(samples []int16, sampleRate int) float64 {
	n := 1
	for n*2 <= len(samples) && n*2 <= maxAnalysisLength {
		n *= 2
	}
	if n < 4 {
		return 0
	}
	spectrum, err := NewSpectrum(n)
	if err != nil {
		return 0
	}
	x := toFloat(samples[:n])
	if err := spectrum.Magnitudes(x, true); err != nil {
		return 0
	}
	bin := vek.ArgMax(x[1:n/2]) + 1
	if x[bin] == 0 {
		return 0
	}
	return float64(bin) * float64(sampleRate) / float64(n)
}
