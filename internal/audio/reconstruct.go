package audio

import (
	"sort"
	"strconv"
)

// SparseSamples is what the browser recorder delivers: a mapping from sample
// index to an 8-bit value, in whatever order the widget serialized it.
type SparseSamples map[int]byte

// ParseSparseSamples converts the JSON form of a recorder payload (string keys)
// into SparseSamples. Non-numeric or negative indices are rejected.
func ParseSparseSamples(raw map[string]uint8) (SparseSamples, error) {
	out := make(SparseSamples, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, &DecodeError{Reason: "invalid sample index " + strconv.Quote(k), Err: err}
		}
		out[idx] = v
	}
	return out, nil
}

// Reconstruct orders a sparse sample map by ascending index and concatenates
// the byte values into a contiguous buffer. Insertion order is irrelevant.
// Gaps in the index domain are compacted: recorders emit dense indices
// starting at 0, and a missing index contributes nothing rather than silence.
func Reconstruct(m SparseSamples) ([]byte, error) {
	if len(m) == 0 {
		return nil, ErrEmptyRecording
	}

	idx := make([]int, 0, len(m))
	for i := range m {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]byte, len(idx))
	for i, j := range idx {
		out[i] = m[j]
	}
	return out, nil
}

// MergeSparse combines per-chunk sparse maps into a single map. Chunks address
// the same index domain; on a duplicate index the later chunk wins.
func MergeSparse(chunks []SparseSamples) SparseSamples {
	out := make(SparseSamples)
	for _, c := range chunks {
		for i, v := range c {
			out[i] = v
		}
	}
	return out
}
