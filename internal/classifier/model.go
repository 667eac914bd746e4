package classifier

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Serialized model layout (all integers little-endian):
//
//	magic    [4]byte "SCNN"
//	version  uint16  (currently 1)
//	rows     uint32  input time steps
//	cols     uint32  input coefficients (input channel count is always 1)
//	nlayers  uint16
//	layers   layer records, see below
//
// Layer records start with a kind byte:
//
//	conv2d:  kind=1, act uint8, pad uint8, kh kw inC outC uint32,
//	         weights float32[kh*kw*inC*outC], bias float32[outC]
//	maxpool: kind=2, pad uint8, ph pw sh sw uint32
//	flatten: kind=3
//	dense:   kind=4, act uint8, in out uint32,
//	         weights float32[in*out], bias float32[out]

var modelMagic = [4]byte{'S', 'C', 'N', 'N'}

const modelVersion = 1

// Network is a loaded feed-forward network. Immutable after construction and
// safe for concurrent forward passes.
type Network struct {
	inputRows int
	inputCols int
	layers    []Layer
	outputDim int
}

// NewNetwork validates that the layer stack accepts an (rows, cols, 1) input
// volume and terminates in a softmax dense layer, then returns the network.
func NewNetwork(rows, cols int, layers ...Layer) (*Network, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid input shape (%d,%d)", rows, cols)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("network has no layers")
	}

	s := shape{h: rows, w: cols, c: 1}
	for i, l := range layers {
		var err error
		s, err = l.outShape(s)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	if s.h != 1 || s.w != 1 {
		return nil, fmt.Errorf("network output is a %dx%dx%d volume, want a vector", s.h, s.w, s.c)
	}

	last, ok := layers[len(layers)-1].(*denseLayer)
	if !ok || last.act != ActSoftmax {
		return nil, fmt.Errorf("final layer must be dense with softmax activation")
	}

	return &Network{inputRows: rows, inputCols: cols, layers: layers, outputDim: s.c}, nil
}

// InputShape returns the (rows, cols) feature shape the network expects.
func (n *Network) InputShape() (int, int) { return n.inputRows, n.inputCols }

// OutputDim returns the length of the confidence vector the network produces.
func (n *Network) OutputDim() int { return n.outputDim }

func (n *Network) forward(x *tensor) []float32 {
	for _, l := range n.layers {
		x = l.forward(x)
	}
	return x.data
}

// ReadModel parses a serialized network. Structural problems (bad magic,
// truncated weights, impossible shapes) are returned as plain errors; Load
// wraps them into ModelLoadError.
func ReadModel(r io.Reader) (*Network, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != modelMagic {
		return nil, fmt.Errorf("bad magic %q", magic)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != modelVersion {
		return nil, fmt.Errorf("unsupported model version %d", version)
	}

	var rows, cols uint32
	var nlayers uint16
	if err := readAll(r, &rows, &cols, &nlayers); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if rows == 0 || cols == 0 || rows > 1<<16 || cols > 1<<16 {
		return nil, fmt.Errorf("implausible input shape (%d,%d)", rows, cols)
	}

	layers := make([]Layer, 0, nlayers)
	for i := 0; i < int(nlayers); i++ {
		l, err := readLayer(r)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, l)
	}

	return NewNetwork(int(rows), int(cols), layers...)
}

func readLayer(r io.Reader) (Layer, error) {
	var kind uint8
	if err := binary.Read(r, binary.LittleEndian, &kind); err != nil {
		return nil, fmt.Errorf("read kind: %w", err)
	}

	switch kind {
	case kindConv2D:
		var act, pad uint8
		var kh, kw, inC, outC uint32
		if err := readAll(r, &act, &pad, &kh, &kw, &inC, &outC); err != nil {
			return nil, err
		}
		if err := checkDims("conv2d", kh, kw, inC, outC); err != nil {
			return nil, err
		}
		weights, err := readFloats(r, int(kh*kw*inC*outC))
		if err != nil {
			return nil, err
		}
		bias, err := readFloats(r, int(outC))
		if err != nil {
			return nil, err
		}
		return Conv2D(int(kh), int(kw), int(inC), int(outC), act, pad, weights, bias), nil

	case kindMaxPool:
		var pad uint8
		var ph, pw, sh, sw uint32
		if err := readAll(r, &pad, &ph, &pw, &sh, &sw); err != nil {
			return nil, err
		}
		if err := checkDims("maxpool", ph, pw, sh, sw); err != nil {
			return nil, err
		}
		return MaxPool2D(int(ph), int(pw), int(sh), int(sw), pad), nil

	case kindFlatten:
		return Flatten(), nil

	case kindDense:
		var act uint8
		var in, out uint32
		if err := readAll(r, &act, &in, &out); err != nil {
			return nil, err
		}
		if err := checkDims("dense", in, out); err != nil {
			return nil, err
		}
		weights, err := readFloats(r, int(in*out))
		if err != nil {
			return nil, err
		}
		bias, err := readFloats(r, int(out))
		if err != nil {
			return nil, err
		}
		return Dense(int(in), int(out), act, weights, bias), nil

	default:
		return nil, fmt.Errorf("unknown layer kind %d", kind)
	}
}

// WriteModel serializes a network in the format ReadModel parses. Used by the
// export tooling and by tests building fixture models.
func WriteModel(w io.Writer, n *Network) error {
	if _, err := w.Write(modelMagic[:]); err != nil {
		return err
	}
	if err := writeAll(w, uint16(modelVersion), uint32(n.inputRows), uint32(n.inputCols), uint16(len(n.layers))); err != nil {
		return err
	}

	for _, l := range n.layers {
		switch l := l.(type) {
		case *conv2dLayer:
			if err := writeAll(w, kindConv2D, l.act, l.pad,
				uint32(l.kh), uint32(l.kw), uint32(l.inC), uint32(l.outC)); err != nil {
				return err
			}
			if err := writeAll(w, l.weights, l.bias); err != nil {
				return err
			}
		case *maxPoolLayer:
			if err := writeAll(w, kindMaxPool, l.pad,
				uint32(l.ph), uint32(l.pw), uint32(l.sh), uint32(l.sw)); err != nil {
				return err
			}
		case flattenLayer:
			if err := writeAll(w, kindFlatten); err != nil {
				return err
			}
		case *denseLayer:
			if err := writeAll(w, kindDense, l.act, uint32(l.in), uint32(l.out)); err != nil {
				return err
			}
			if err := writeAll(w, l.weights, l.bias); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown layer type %T", l)
		}
	}
	return nil
}

func readAll(r io.Reader, vs ...any) error {
	for _, v := range vs {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func writeAll(w io.Writer, vs ...any) error {
	for _, v := range vs {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

func readFloats(r io.Reader, n int) ([]float32, error) {
	if n <= 0 || n > 1<<26 {
		return nil, fmt.Errorf("implausible weight count %d", n)
	}
	out := make([]float32, n)
	if err := binary.Read(r, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("read %d weights: %w", n, err)
	}
	return out, nil
}

func checkDims(what string, dims ...uint32) error {
	for _, d := range dims {
		if d == 0 || d > 1<<16 {
			return fmt.Errorf("%s: implausible dimension %d", what, d)
		}
	}
	return nil
}
