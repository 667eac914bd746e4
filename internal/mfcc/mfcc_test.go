package mfcc

import (
	"math"
	"testing"
)

func TestHannWindow(t *testing.T) {
	w := hannWindow(2048)
	if len(w) != 2048 {
		t.Fatalf("expected 2048, got %d", len(w))
	}
	if math.Abs(w[0]) > 1e-12 {
		t.Errorf("w[0] = %f, want 0", w[0])
	}
	if math.Abs(w[1024]-1.0) > 1e-9 {
		t.Errorf("w[1024] = %f, want ~1.0", w[1024])
	}
}

func TestMelConversion(t *testing.T) {
	// HTK mel scale: 2595 * log10(1 + f/700)
	mel := hzToMel(1000)
	if math.Abs(mel-1000.45) > 1.0 {
		t.Errorf("hzToMel(1000) = %f, want ~1000.45", mel)
	}
	hz := melToHz(mel)
	if math.Abs(hz-1000) > 0.1 {
		t.Errorf("melToHz(hzToMel(1000)) = %f, want 1000", hz)
	}
}

func TestMelFilterBank(t *testing.T) {
	bank := melFilterBank(40, 2048, 22050, 0, 11025)
	if len(bank) != 40 {
		t.Fatalf("expected 40 filters, got %d", len(bank))
	}
	halfFFT := 2048/2 + 1
	for i, f := range bank {
		if len(f) != halfFFT {
			t.Fatalf("filter %d: expected %d bins, got %d", i, halfFFT, len(f))
		}
		hasNonZero := false
		for _, v := range f {
			if v > 0 {
				hasNonZero = true
				break
			}
		}
		if !hasNonZero {
			t.Errorf("filter %d is all zeros", i)
		}
	}
}

func TestFFT(t *testing.T) {
	// DC + 1Hz cosine in an 8-sample window
	n := 8
	re := make([]float64, n)
	im := make([]float64, n)
	for i := range re {
		re[i] = 1.0 + math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	fft(re, im)

	if math.Abs(re[0]-float64(n)) > 0.01 {
		t.Errorf("DC = %f, want %d", re[0], n)
	}
	if math.Abs(re[1]-float64(n)/2) > 0.01 {
		t.Errorf("H1 real = %f, want %f", re[1], float64(n)/2)
	}
}

func TestDCTBasisOrthonormal(t *testing.T) {
	basis := dctBasis(13, 40)
	for a := 0; a < 13; a++ {
		for b := 0; b < 13; b++ {
			dot := 0.0
			for m := 0; m < 40; m++ {
				dot += basis[a][m] * basis[b][m]
			}
			want := 0.0
			if a == b {
				want = 1.0
			}
			if math.Abs(dot-want) > 1e-9 {
				t.Fatalf("basis rows %d,%d: dot = %f, want %f", a, b, dot, want)
			}
		}
	}
}

func TestExtractShape(t *testing.T) {
	ext := New(DefaultConfig())

	// One second at 22050 Hz must produce the classifier's input shape.
	pcm := make([]float32, 22050)
	for i := range pcm {
		pcm[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/22050))
	}

	feat := ext.Extract(pcm)
	if len(feat) != 44 {
		t.Fatalf("time steps = %d, want 44", len(feat))
	}
	for t2, row := range feat {
		if len(row) != 13 {
			t.Fatalf("frame %d: coeffs = %d, want 13", t2, len(row))
		}
	}

	rows, cols := ext.Shape(len(pcm))
	if rows != 44 || cols != 13 {
		t.Fatalf("Shape = (%d,%d), want (44,13)", rows, cols)
	}
}

func TestExtractDeterministic(t *testing.T) {
	ext := New(DefaultConfig())
	pcm := make([]float32, 22050)
	for i := range pcm {
		pcm[i] = float32(math.Sin(2 * math.Pi * 300 * float64(i) / 22050))
	}

	a := ext.Extract(pcm)
	b := ext.Extract(pcm)
	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("feature [%d][%d] differs between runs", i, j)
			}
		}
	}
}

func TestExtractSilence(t *testing.T) {
	ext := New(DefaultConfig())
	feat := ext.Extract(make([]float32, 22050))

	// All frames of a silent clip are identical: the log floor everywhere.
	for i := 1; i < len(feat); i++ {
		for j := range feat[i] {
			if feat[i][j] != feat[0][j] {
				t.Fatalf("silent frame %d differs from frame 0", i)
			}
		}
	}
}

func TestExtractDistinguishesTones(t *testing.T) {
	ext := New(DefaultConfig())

	mk := func(freq float64) [][]float32 {
		pcm := make([]float32, 22050)
		for i := range pcm {
			pcm[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/22050))
		}
		return ext.Extract(pcm)
	}

	lo := mk(200)
	hi := mk(4000)

	diff := 0.0
	for j := range lo[20] {
		d := float64(lo[20][j] - hi[20][j])
		diff += d * d
	}
	if diff < 1.0 {
		t.Fatalf("features for 200Hz and 4kHz tones are nearly identical (dist²=%f)", diff)
	}
}
