package audio

import (
	resampling "github.com/tphakala/go-audio-resampling"
)

// The classifier was trained on exactly one second of audio at 22050 Hz, so
// every clip is normalized to this shape before feature extraction.
const (
	TargetSampleRate = 22050
	TargetSamples    = 22050
)

// Resample converts mono samples from one rate to another using the pure Go
// soxr-style resampler. Same-rate input is returned unchanged.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from == to {
		return samples, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, &DecodeError{Reason: "resampler init failed", Err: err}
	}

	in := make([]float64, len(samples))
	for i, s := range samples {
		in[i] = float64(s)
	}
	out, err := r.Process(in)
	if err != nil {
		return nil, &DecodeError{Reason: "resample failed", Err: err}
	}

	res := make([]float32, len(out))
	for i, s := range out {
		res[i] = float32(s)
	}
	return res, nil
}

// FixLength forces a signal to exactly n samples: longer input is truncated to
// its first n samples, shorter input is right-padded with zeros. The result is
// always a fresh slice.
func FixLength(samples []float32, n int) []float32 {
	out := make([]float32, n)
	copy(out, samples)
	return out
}

// PrepareSignal runs the deterministic preprocessing chain on an encoded clip:
// decode, downmix, resample to TargetSampleRate, force TargetSamples length.
// The returned vector always has length TargetSamples. The second return is
// the decoded clip's duration in seconds, before truncation or padding.
func PrepareSignal(data []byte) ([]float32, float64, error) {
	clip, err := DecodeWAV(data)
	if err != nil {
		return nil, 0, err
	}
	duration := clip.Duration()

	samples := clip.Samples
	if clip.SampleRate != TargetSampleRate {
		samples, err = Resample(samples, clip.SampleRate, TargetSampleRate)
		if err != nil {
			return nil, 0, err
		}
	}
	return FixLength(samples, TargetSamples), duration, nil
}
