// Package mfcc computes mel-frequency cepstral coefficients from mono PCM
// audio. The output is a [T, NumCoeffs] float32 matrix, time leading, suitable
// for direct input to the word classifier.
//
// Default parameters match the front-end the model was trained with:
//
//	SampleRate: 22050
//	NumCoeffs:  13
//	FFTSize:    2048 (window length)
//	HopSize:    512
//	NumMels:    40
//
// Frames are centered: the signal is zero-padded by FFTSize/2 on both ends, so
// a fixed-length input always yields 1 + len/hop frames (44 for one second at
// the defaults).
package mfcc

import (
	"math"
)

// Config controls extraction parameters.
type Config struct {
	SampleRate int     // audio sample rate in Hz (default 22050)
	NumCoeffs  int     // cepstral coefficients per frame (default 13)
	FFTSize    int     // FFT and window size in samples (default 2048)
	HopSize    int     // hop between frames in samples (default 512)
	NumMels    int     // mel filterbank size (default 40)
	LowFreq    float64 // lowest mel frequency (default 0)
	HighFreq   float64 // highest mel frequency (default SampleRate/2)
}

// DefaultConfig returns the parameters the pretrained model expects.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		NumCoeffs:  13,
		FFTSize:    2048,
		HopSize:    512,
		NumMels:    40,
		LowFreq:    0,
		HighFreq:   11025,
	}
}

// Extractor computes MFCC features. It precomputes the window, mel filterbank
// and DCT basis once; Extract is pure computation and safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64 // Hann window
	melBank [][]float64
	dct     [][]float64
}

// New creates an Extractor with the given config.
func New(cfg Config) *Extractor {
	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.LowFreq, cfg.HighFreq),
		dct:     dctBasis(cfg.NumCoeffs, cfg.NumMels),
	}
}

// Params returns the extraction parameters.
func (e *Extractor) Params() Config {
	return e.cfg
}

// NumFrames returns the number of time steps produced for a signal of n
// samples.
func (e *Extractor) NumFrames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// Shape returns the (timeSteps, coefficients) output shape for a signal of n
// samples.
func (e *Extractor) Shape(n int) (int, int) {
	return e.NumFrames(n), e.cfg.NumCoeffs
}

// Extract computes MFCC features from normalized float32 samples in [-1, 1].
// Output: [T][NumCoeffs] float32 with T = NumFrames(len(pcm)). Deterministic:
// identical input yields a bit-identical matrix.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	cfg := e.cfg
	nfft := cfg.FFTSize
	halfFFT := nfft/2 + 1
	pad := nfft / 2

	// Center padding
	padded := make([]float64, pad+len(pcm)+pad)
	for i, s := range pcm {
		padded[pad+i] = float64(s)
	}

	numFrames := e.NumFrames(len(pcm))
	features := make([][]float32, numFrames)

	re := make([]float64, nfft)
	im := make([]float64, nfft)
	power := make([]float64, halfFFT)
	mel := make([]float64, cfg.NumMels)

	for t := 0; t < numFrames; t++ {
		start := t * cfg.HopSize

		for i := 0; i < nfft; i++ {
			s := 0.0
			if start+i < len(padded) {
				s = padded[start+i]
			}
			re[i] = s * e.window[i]
			im[i] = 0
		}
		fft(re, im)

		for i := 0; i < halfFFT; i++ {
			power[i] = re[i]*re[i] + im[i]*im[i]
		}

		// Log mel energies, floored to avoid -inf on silence
		for m := 0; m < cfg.NumMels; m++ {
			sum := 0.0
			for k, w := range e.melBank[m] {
				sum += w * power[k]
			}
			if sum < 1e-10 {
				sum = 1e-10
			}
			mel[m] = math.Log(sum)
		}

		// DCT-II down to cepstral coefficients
		row := make([]float32, cfg.NumCoeffs)
		for k := 0; k < cfg.NumCoeffs; k++ {
			sum := 0.0
			for m := 0; m < cfg.NumMels; m++ {
				sum += e.dct[k][m] * mel[m]
			}
			row[k] = float32(sum)
		}
		features[t] = row
	}

	return features
}
