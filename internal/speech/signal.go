package speech

import (
	"bytes"
	"encoding/binary"
	"math"
)

// SignalError explains why a recording was rejected before transcription.
type SignalError struct {
	Reason string
}

func (e *SignalError) Error() string { return e.Reason }

const minDuration = 0.25 // seconds

// CheckSignal rejects WAV recordings that are empty, shorter than a quarter
// second, or effectively silent, so no paid STT call is made for them.
// Audio that is not parseable WAV passes; the transcriber decides.
func CheckSignal(audio []byte) error {
	f, ok := parseWAV(audio)
	if !ok {
		return nil
	}
	if f.width <= 0 || f.rate <= 0 || f.channels <= 0 || len(f.data) < f.width {
		return &SignalError{Reason: "Recorded audio was empty."}
	}

	frames := len(f.data) / (f.width * f.channels)
	if float64(frames)/float64(f.rate) < minDuration {
		return &SignalError{Reason: "Recording was too short. Hold recording a bit longer before stopping."}
	}
	if f.width > 4 {
		return nil
	}

	full := float64(int64(1)<<(8*f.width-1) - 1)
	var peak, sumSq float64
	n := len(f.data) / f.width
	for i := 0; i < n; i++ {
		v := math.Abs(float64(sample(f.data[i*f.width:], f.width)))
		peak = math.Max(peak, v)
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(n))
	if peak/full < 0.0002 && rms/full < 0.00005 {
		return &SignalError{Reason: "No speech detected in recording. Check input device and mic permissions."}
	}
	return nil
}

type wavFile struct {
	channels int
	rate     int
	width    int // bytes per sample
	data     []byte
}

func parseWAV(b []byte) (wavFile, bool) {
	var f wavFile
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return f, false
	}
	sawFmt, sawData := false, false
	for pos := 12; pos+8 <= len(b); {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := b[pos+8:]
		if size < len(body) {
			body = body[:size]
		}
		switch id {
		case "fmt ":
			if len(body) < 16 {
				return f, false
			}
			f.channels = int(binary.LittleEndian.Uint16(body[2:4]))
			f.rate = int(binary.LittleEndian.Uint32(body[4:8]))
			f.width = int(binary.LittleEndian.Uint16(body[14:16])) / 8
			sawFmt = true
		case "data":
			f.data = body
			sawData = true
		}
		pos += 8 + size + size%2
	}
	return f, sawFmt && sawData
}

// sample decodes one little-endian PCM sample; 8-bit audio is unsigned.
func sample(b []byte, width int) int64 {
	switch width {
	case 1:
		return int64(b[0]) - 128
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case 3:
		v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if v&0x800000 != 0 {
			v -= 1 << 24
		}
		return int64(v)
	default:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	}
}

// PCMToWAV wraps raw little-endian PCM in a WAV container.
func PCMToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	dataLen := len(pcm)

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
