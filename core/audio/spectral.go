package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	defaultFrameSize = 2048
	maxAnalysisFrame = 64
)

// SpectralCentroid returns the amplitude-weighted mean frequency (Hz) of the
// magnitude spectrum, averaged over up to maxAnalysisFrame Hann-windowed frames
// spread evenly across the signal. ok is false for silence and for signals
// shorter than one frame.
func SpectralCentroid(samples []float64, sampleRate, frameSize int) (centroid float64, ok bool) {
	if frameSize <= 0 {
		frameSize = defaultFrameSize
	}
	if len(samples) < frameSize || sampleRate <= 0 {
		return 0, false
	}

	fft := fourier.NewFFT(frameSize)
	win := hann(frameSize)
	buf := make([]float64, frameSize)
	var coeffs []complex128

	frames := (len(samples)-frameSize)/frameSize + 1
	step := 1
	if frames > maxAnalysisFrame {
		step = frames / maxAnalysisFrame
	}

	var numerator, denominator float64
	for f := 0; f < frames; f += step {
		start := f * frameSize
		for k := 0; k < frameSize; k++ {
			buf[k] = samples[start+k] * win[k]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for i, c := range coeffs {
			mag := cmplx.Abs(c)
			numerator += mag * fft.Freq(i) * float64(sampleRate)
			denominator += mag
		}
	}

	if denominator == 0 || math.IsNaN(numerator) {
		return 0, false
	}
	return numerator / denominator, true
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
