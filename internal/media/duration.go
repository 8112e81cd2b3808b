package media

import (
	"bytes"
	"encoding/binary"
	"time"
)

// DurationLookup reports how long a clip plays. The boolean is false when the
// value is an approximation rather than the result of inspecting the media.
type DurationLookup interface {
	Duration(clip *AudioClip, data []byte) (time.Duration, bool)
}

// HeaderDuration inspects RIFF/WAVE headers and otherwise returns Default.
// Compressed containers (webm, mp3, ogg) are not inspected: their duration is
// always reported as Default, an explicit approximation.
type HeaderDuration struct {
	Default time.Duration
}

func (h HeaderDuration) Duration(_ *AudioClip, data []byte) (time.Duration, bool) {
	if d, ok := wavDuration(data); ok {
		return d, true
	}
	return h.Default, false
}

func wavDuration(data []byte) (time.Duration, bool) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return 0, false
	}

	var byteRate uint32
	for offset := 12; offset+8 <= len(data); {
		id := string(data[offset : offset+4])
		size := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		body := offset + 8

		switch id {
		case "fmt ":
			if body+12 > len(data) {
				return 0, false
			}
			byteRate = binary.LittleEndian.Uint32(data[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, false
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), true
		}

		offset = body + int(size)
		if size%2 == 1 {
			offset++
		}
	}
	return 0, false
}

// SilentWAV builds a 16-bit mono PCM WAV of the given length filled with silence.
func SilentWAV(d time.Duration, sampleRate int) []byte {
	samples := int(d.Seconds() * float64(sampleRate))
	return WrapPCM(make([]byte, samples*2), sampleRate, 1, 16)
}

// WrapPCM prefixes raw little-endian PCM with a canonical 44-byte WAV header.
func WrapPCM(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(pcm)))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
