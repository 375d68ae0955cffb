package audio

import (
	"math"
	"testing"
)

func expectEqual(t *testing.T, actual, expected interface{}) {
	t.Helper()
	if actual != expected {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func expectNearlyEqual(t *testing.T, actual, expected float64) {
	t.Helper()
	if math.Abs(actual-expected) > 0.0001 {
		t.Errorf("expected %v, but got: %v", expected, actual)
	}
}

func TestBitreverse(t *testing.T) {
	expectEqual(t, bitReverse(0, 8), 0)
	expectEqual(t, bitReverse(1, 8), 4)
	expectEqual(t, bitReverse(2, 8), 2)
	expectEqual(t, bitReverse(3, 8), 6)
	expectEqual(t, bitReverse(4, 8), 1)
	expectEqual(t, bitReverse(5, 8), 5)
	expectEqual(t, bitReverse(6, 8), 3)
	expectEqual(t, bitReverse(7, 8), 7)
}

func TestSpectrumMagnitudes(t *testing.T) {
	spectrum, err := NewSpectrum(8)
	expectNoError(t, err)
	x := []float64{0, 0.25, 0.5, 0.75, 1, 0.75, 0.5, 0.25}
	expectNoError(t, spectrum.Magnitudes(x, false))
	expectNearlyEqual(t, x[0], 4)
	expectNearlyEqual(t, x[1], 1+math.Sqrt(2)/2)
	expectNearlyEqual(t, x[2], 0)
	expectNearlyEqual(t, x[3], 1-math.Sqrt(2)/2)
	expectNearlyEqual(t, x[4], 0)
	expectNearlyEqual(t, x[5], 1-math.Sqrt(2)/2)
	expectNearlyEqual(t, x[6], 0)
	expectNearlyEqual(t, x[7], 1+math.Sqrt(2)/2)
}

func TestSpectrumWindow(t *testing.T) {
	spectrum, err := NewSpectrum(8)
	expectNoError(t, err)
	expectNearlyEqual(t, spectrum.window[0], 0)
	expectNearlyEqual(t, spectrum.window[2], 0.5)
	expectNearlyEqual(t, spectrum.window[4], 1)
	expectNearlyEqual(t, spectrum.window[6], 0.5)

	// a windowed constant leaves the window's own spectrum: 4, 2, 0, ...
	x := []float64{1, 1, 1, 1, 1, 1, 1, 1}
	expectNoError(t, spectrum.Magnitudes(x, true))
	expectNearlyEqual(t, x[0], 4)
	expectNearlyEqual(t, x[1], 2)
	expectNearlyEqual(t, x[2], 0)
	expectNearlyEqual(t, x[4], 0)
	expectNearlyEqual(t, x[7], 2)
}

func TestSpectrumRejectsBadLength(t *testing.T) {
	for _, n := range []int{0, 1, 6, 12} {
		if _, err := NewSpectrum(n); err == nil {
			t.Errorf("%d: expected an error", n)
		}
	}
	spectrum, err := NewSpectrum(8)
	expectNoError(t, err)
	if err := spectrum.Magnitudes(make([]float64, 4), false); err == nil {
		t.Errorf("expected an error")
	}
}

func TestPeak(t *testing.T) {
	expectEqual(t, Peak(nil), 0)
	expectEqual(t, Peak([]int16{3, -120, 45}), 120)
	expectEqual(t, Peak([]int16{-32768, 32767}), 32768)
}

func TestDominantFrequency(t *testing.T) {
	sampleRate := 44100
	engine := NewEngine(sampleRate, nil)
	p := DefaultParams()
	out := make([]int16, 4096)
	engine.Generate(p, out)
	resolution := float64(sampleRate) / float64(len(out))
	f := DominantFrequency(out, sampleRate)
	if math.Abs(f-440) > resolution {
		t.Errorf("expected about 440Hz, but got: %v", f)
	}
	expectEqual(t, DominantFrequency(make([]int16, 4096), sampleRate), 0.0)
	expectEqual(t, DominantFrequency([]int16{1, 2}, sampleRate), 0.0)
}
