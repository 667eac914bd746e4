package classifier

import (
	"errors"
	"fmt"
)

// ModelLoadError reports a missing or malformed model artifact. Loading
// happens once at startup; this error is fatal to the process.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("classifier: load %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("classifier: load: %v", e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports a feature matrix whose shape does not match the
// network input.
type InferenceError struct {
	GotRows, GotCols   int
	WantRows, WantCols int
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("classifier: input shape (%d,%d) does not match model input (%d,%d)",
		e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// IsInferenceError reports whether err is (or wraps) an InferenceError.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}
