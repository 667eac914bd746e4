// Package classifier loads a pretrained word-classification network and runs
// inference on MFCC feature matrices.
//
// A Classifier is created once at process start via Load and lives for the
// whole process; it is immutable after construction and safe for concurrent
// Predict calls. There is no reload path: a broken artifact is a startup
// failure, not a runtime condition.
package classifier

import (
	"fmt"
	"os"
)

// Classifier binds a loaded network to its label vocabulary.
type Classifier struct {
	net    *Network
	labels []string
}

// Load reads the model artifact at path and binds it to the given label
// ordering (DefaultLabels when labels is nil). The network output dimension
// must equal the label count; an index/label mismatch would be a silent
// correctness bug, so it is rejected here. All failures are ModelLoadError.
func Load(path string, labels []string) (*Classifier, error) {
	if labels == nil {
		labels = DefaultLabels
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	defer f.Close()

	net, err := ReadModel(f)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}

	return New(net, labels)
}

// New binds an in-memory network to a label ordering. Exposed for tests and
// tooling that build networks directly.
func New(net *Network, labels []string) (*Classifier, error) {
	if net.OutputDim() != len(labels) {
		return nil, &ModelLoadError{Err: errLabelMismatch(net.OutputDim(), len(labels))}
	}
	return &Classifier{net: net, labels: labels}, nil
}

// Labels returns a copy of the vocabulary in output-unit order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// InputShape returns the (timeSteps, coefficients) feature shape the model
// expects.
func (c *Classifier) InputShape() (rows, cols int) {
	return c.net.InputShape()
}

// Predict runs the network on a feature matrix and returns the arg-max label
// together with the full softmax confidence vector, ordered exactly as
// Labels(). The matrix is reshaped internally to the (1, T, C, 1) volume the
// network was trained on. A shape mismatch yields an InferenceError.
func (c *Classifier) Predict(features [][]float32) (string, []float32, error) {
	rows, cols := c.net.InputShape()
	if len(features) != rows {
		return "", nil, &InferenceError{GotRows: len(features), WantRows: rows, WantCols: cols}
	}
	x := newTensor(rows, cols, 1)
	for i, row := range features {
		if len(row) != cols {
			return "", nil, &InferenceError{GotRows: len(features), GotCols: len(row), WantRows: rows, WantCols: cols}
		}
		copy(x.data[i*cols:(i+1)*cols], row)
	}

	conf := c.net.forward(x)

	// Arg-max; first occurrence wins on exact ties, keeping the result
	// stable in label-index order.
	best := 0
	for i, v := range conf {
		if v > conf[best] {
			best = i
		}
	}
	return c.labels[best], conf, nil
}

func errLabelMismatch(outputDim, labelCount int) error {
	return fmt.Errorf("model output dimension %d does not match label count %d", outputDim, labelCount)
}
