package audio

import "errors"

// DecodeError reports audio bytes that could not be interpreted as a clip.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "audio: " + e.Reason + ": " + e.Err.Error()
	}
	return "audio: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is (or wraps) a DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// ErrEmptyRecording is returned when a recorder delivered no samples at all.
var ErrEmptyRecording = errors.New("audio: recording contains no samples")
