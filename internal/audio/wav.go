package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Clip is decoded audio: mono samples in [-1, 1] at the container's rate.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

type wavFormat struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// DecodeWAV parses a RIFF/WAVE byte buffer into a mono Clip. Multi-channel
// input is downmixed by averaging. Supported sample encodings: unsigned 8-bit,
// signed 16/24/32-bit PCM and 32-bit IEEE float.
func DecodeWAV(data []byte) (*Clip, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Reason: "empty buffer"}
	}
	if len(data) < 12 {
		return nil, &DecodeError{Reason: fmt.Sprintf("buffer too short (%d bytes)", len(data))}
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, &DecodeError{Reason: "missing RIFF/WAVE header"}
	}

	var fmtChunk *wavFormat
	var pcm []byte

	// Walk the chunk list; files written by browsers and editors carry
	// LIST/INFO chunks between fmt and data.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, &DecodeError{Reason: fmt.Sprintf("chunk %q overruns buffer", id)}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, &DecodeError{Reason: "fmt chunk too short"}
			}
			var f wavFormat
			if err := binary.Read(bytes.NewReader(data[body:body+16]), binary.LittleEndian, &f); err != nil {
				return nil, &DecodeError{Reason: "unreadable fmt chunk", Err: err}
			}
			fmtChunk = &f
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++ // chunks are word-aligned
		}
	}

	if fmtChunk == nil {
		return nil, &DecodeError{Reason: "missing fmt chunk"}
	}
	if pcm == nil {
		return nil, &DecodeError{Reason: "missing data chunk"}
	}
	if fmtChunk.NumChannels == 0 || fmtChunk.SampleRate == 0 {
		return nil, &DecodeError{Reason: "invalid fmt chunk (zero channels or rate)"}
	}
	if fmtChunk.AudioFormat != wavFormatPCM && fmtChunk.AudioFormat != wavFormatFloat {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported audio format %d", fmtChunk.AudioFormat)}
	}

	samples, err := decodeSamples(pcm, fmtChunk)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, &DecodeError{Reason: "data chunk contains no samples"}
	}

	return &Clip{Samples: samples, SampleRate: int(fmtChunk.SampleRate)}, nil
}

func decodeSamples(pcm []byte, f *wavFormat) ([]float32, error) {
	bytesPer := int(f.BitsPerSample) / 8
	if bytesPer <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("unsupported bit depth %d", f.BitsPerSample)}
	}
	ch := int(f.NumChannels)
	frameSize := bytesPer * ch
	frames := len(pcm) / frameSize

	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := float64(0)
		for c := 0; c < ch; c++ {
			p := pcm[i*frameSize+c*bytesPer:]
			v, err := decodeSample(p, f)
			if err != nil {
				return nil, err
			}
			sum += v
		}
		out[i] = float32(sum / float64(ch))
	}
	return out, nil
}

func decodeSample(p []byte, f *wavFormat) (float64, error) {
	if f.AudioFormat == wavFormatFloat {
		if f.BitsPerSample != 32 {
			return 0, &DecodeError{Reason: fmt.Sprintf("unsupported float bit depth %d", f.BitsPerSample)}
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))), nil
	}

	switch f.BitsPerSample {
	case 8:
		// 8-bit WAV is unsigned, centered on 128
		return (float64(p[0]) - 128) / 128, nil
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768, nil
	case 24:
		v := int32(p[0]) | int32(p[1])<<8 | int32(p[2])<<16
		if v&0x800000 != 0 {
			v |= ^int32(0xFFFFFF) // sign-extend
		}
		return float64(v) / 8388608, nil
	case 32:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648, nil
	default:
		return 0, &DecodeError{Reason: fmt.Sprintf("unsupported bit depth %d", f.BitsPerSample)}
	}
}

// EncodeWAV writes mono float32 samples as a 16-bit PCM WAV buffer. Used for
// archiving normalized clips and for building test fixtures.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, &DecodeError{Reason: "cannot encode empty clip"}
	}
	if sampleRate <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	dataSize := uint32(len(samples) * 2)
	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, wavFormat{
		AudioFormat:   wavFormatPCM,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
	})
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)

	for _, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.Write(buf, binary.LittleEndian, int16(v*32767))
	}
	return buf.Bytes(), nil
}
