package classifier

import (
	"fmt"
	"math"
)

// Layer kinds and activations as stored in the model file.
const (
	kindConv2D  uint8 = 1
	kindMaxPool uint8 = 2
	kindFlatten uint8 = 3
	kindDense   uint8 = 4

	ActLinear  uint8 = 0
	ActReLU    uint8 = 1
	ActSoftmax uint8 = 2

	PadValid uint8 = 0
	PadSame  uint8 = 1
)

// tensor is an h×w×c activation volume. Dense layers operate on flattened
// tensors (h=1, w=1, c=len).
type tensor struct {
	h, w, c int
	data    []float32
}

func newTensor(h, w, c int) *tensor {
	return &tensor{h: h, w: w, c: c, data: make([]float32, h*w*c)}
}

func (t *tensor) at(i, j, k int) float32 {
	return t.data[(i*t.w+j)*t.c+k]
}

func (t *tensor) set(i, j, k int, v float32) {
	t.data[(i*t.w+j)*t.c+k] = v
}

type shape struct{ h, w, c int }

// Layer is one step of the forward pass.
type Layer interface {
	forward(x *tensor) *tensor
	// outShape propagates the activation shape, or errors when the layer
	// cannot accept the incoming shape. Run once at load time.
	outShape(in shape) (shape, error)
}

type conv2dLayer struct {
	kh, kw, inC, outC int
	act, pad          uint8
	weights           []float32 // [kh][kw][inC][outC]
	bias              []float32 // [outC]
}

// Conv2D builds a stride-1 2-D convolution layer. Weights are laid out
// [kh][kw][inC][outC], matching the serialized form.
func Conv2D(kh, kw, inC, outC int, act, pad uint8, weights, bias []float32) Layer {
	return &conv2dLayer{kh: kh, kw: kw, inC: inC, outC: outC, act: act, pad: pad, weights: weights, bias: bias}
}

func (l *conv2dLayer) outShape(in shape) (shape, error) {
	if in.c != l.inC {
		return shape{}, fmt.Errorf("conv2d: input has %d channels, kernel expects %d", in.c, l.inC)
	}
	if len(l.weights) != l.kh*l.kw*l.inC*l.outC || len(l.bias) != l.outC {
		return shape{}, fmt.Errorf("conv2d: weight/bias size mismatch")
	}
	if l.pad == PadSame {
		return shape{h: in.h, w: in.w, c: l.outC}, nil
	}
	h := in.h - l.kh + 1
	w := in.w - l.kw + 1
	if h <= 0 || w <= 0 {
		return shape{}, fmt.Errorf("conv2d: kernel %dx%d larger than input %dx%d", l.kh, l.kw, in.h, in.w)
	}
	return shape{h: h, w: w, c: l.outC}, nil
}

func (l *conv2dLayer) forward(x *tensor) *tensor {
	outH, outW := x.h-l.kh+1, x.w-l.kw+1
	padTop, padLeft := 0, 0
	if l.pad == PadSame {
		outH, outW = x.h, x.w
		padTop = (l.kh - 1) / 2
		padLeft = (l.kw - 1) / 2
	}

	out := newTensor(outH, outW, l.outC)
	for i := 0; i < outH; i++ {
		for j := 0; j < outW; j++ {
			for o := 0; o < l.outC; o++ {
				sum := l.bias[o]
				for di := 0; di < l.kh; di++ {
					si := i + di - padTop
					if si < 0 || si >= x.h {
						continue
					}
					for dj := 0; dj < l.kw; dj++ {
						sj := j + dj - padLeft
						if sj < 0 || sj >= x.w {
							continue
						}
						for ci := 0; ci < l.inC; ci++ {
							w := l.weights[((di*l.kw+dj)*l.inC+ci)*l.outC+o]
							sum += w * x.at(si, sj, ci)
						}
					}
				}
				out.set(i, j, o, activate(sum, l.act))
			}
		}
	}
	return out
}

type maxPoolLayer struct {
	ph, pw, sh, sw int
	pad            uint8
}

// MaxPool2D builds a max-pooling layer with pool size (ph, pw) and
// strides (sh, sw).
func MaxPool2D(ph, pw, sh, sw int, pad uint8) Layer {
	return &maxPoolLayer{ph: ph, pw: pw, sh: sh, sw: sw, pad: pad}
}

func (l *maxPoolLayer) outShape(in shape) (shape, error) {
	if l.ph <= 0 || l.pw <= 0 || l.sh <= 0 || l.sw <= 0 {
		return shape{}, fmt.Errorf("maxpool: non-positive pool or stride")
	}
	if l.pad == PadSame {
		return shape{h: ceilDiv(in.h, l.sh), w: ceilDiv(in.w, l.sw), c: in.c}, nil
	}
	if in.h < l.ph || in.w < l.pw {
		return shape{}, fmt.Errorf("maxpool: pool %dx%d larger than input %dx%d", l.ph, l.pw, in.h, in.w)
	}
	return shape{h: (in.h-l.ph)/l.sh + 1, w: (in.w-l.pw)/l.sw + 1, c: in.c}, nil
}

func (l *maxPoolLayer) forward(x *tensor) *tensor {
	var outH, outW int
	if l.pad == PadSame {
		outH, outW = ceilDiv(x.h, l.sh), ceilDiv(x.w, l.sw)
	} else {
		outH, outW = (x.h-l.ph)/l.sh+1, (x.w-l.pw)/l.sw+1
	}

	out := newTensor(outH, outW, x.c)
	for i := 0; i < outH; i++ {
		for j := 0; j < outW; j++ {
			for k := 0; k < x.c; k++ {
				max := float32(math.Inf(-1))
				seen := false
				for di := 0; di < l.ph; di++ {
					si := i*l.sh + di
					if si >= x.h {
						break
					}
					for dj := 0; dj < l.pw; dj++ {
						sj := j*l.sw + dj
						if sj >= x.w {
							break
						}
						if v := x.at(si, sj, k); !seen || v > max {
							max = v
							seen = true
						}
					}
				}
				out.set(i, j, k, max)
			}
		}
	}
	return out
}

type flattenLayer struct{}

// Flatten collapses an activation volume into a vector, row-major.
func Flatten() Layer { return flattenLayer{} }

func (flattenLayer) outShape(in shape) (shape, error) {
	return shape{h: 1, w: 1, c: in.h * in.w * in.c}, nil
}

func (flattenLayer) forward(x *tensor) *tensor {
	return &tensor{h: 1, w: 1, c: len(x.data), data: x.data}
}

type denseLayer struct {
	in, out int
	act     uint8
	weights []float32 // [in][out]
	bias    []float32 // [out]
}

// Dense builds a fully connected layer. Weights are laid out [in][out].
func Dense(in, out int, act uint8, weights, bias []float32) Layer {
	return &denseLayer{in: in, out: out, act: act, weights: weights, bias: bias}
}

func (l *denseLayer) outShape(in shape) (shape, error) {
	flat := in.h * in.w * in.c
	if flat != l.in {
		return shape{}, fmt.Errorf("dense: input size %d, layer expects %d", flat, l.in)
	}
	if len(l.weights) != l.in*l.out || len(l.bias) != l.out {
		return shape{}, fmt.Errorf("dense: weight/bias size mismatch")
	}
	return shape{h: 1, w: 1, c: l.out}, nil
}

func (l *denseLayer) forward(x *tensor) *tensor {
	out := newTensor(1, 1, l.out)
	for o := 0; o < l.out; o++ {
		sum := l.bias[o]
		for i := 0; i < l.in; i++ {
			sum += l.weights[i*l.out+o] * x.data[i]
		}
		out.data[o] = sum
	}
	if l.act == ActSoftmax {
		softmax(out.data)
	} else {
		for i, v := range out.data {
			out.data[i] = activate(v, l.act)
		}
	}
	return out
}

func activate(v float32, act uint8) float32 {
	if act == ActReLU && v < 0 {
		return 0
	}
	return v
}

// softmax normalizes in place, shifted by the max for numeric stability.
func softmax(v []float32) {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	sum := 0.0
	for i, x := range v {
		e := math.Exp(float64(x - max))
		v[i] = float32(e)
		sum += e
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }
