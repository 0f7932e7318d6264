// Package audio sniffs audio containers and stores synthesized audio behind
// a URL the client can play.
package audio

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

// Format is an audio container name, also used as the file extension.
type Format string

const (
	FormatUnknown Format = ""
	FormatWebM    Format = "webm"
	FormatOgg     Format = "ogg"
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatMP4     Format = "mp4"
	FormatM4A     Format = "m4a"
	FormatFLAC    Format = "flac"
)

// DetectFormat identifies the container from its leading bytes.
func DetectFormat(data []byte) Format {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		if len(data) >= 11 && bytes.Equal(data[8:11], []byte("M4A")) {
			return FormatM4A
		}
		return FormatMP4
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	}
	return FormatUnknown
}

// FormatFromMIME maps a media type such as "audio/webm;codecs=opus" to a
// format.
func FormatFromMIME(mime string) Format {
	mediaType, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mime)), ";")
	switch strings.TrimSpace(mediaType) {
	case "audio/wav", "audio/wave", "audio/x-wav":
		return FormatWAV
	case "audio/mpeg", "audio/mp3":
		return FormatMP3
	case "audio/webm", "video/webm":
		return FormatWebM
	case "audio/ogg", "application/ogg":
		return FormatOgg
	case "audio/flac", "audio/x-flac":
		return FormatFLAC
	case "audio/mp4", "video/mp4":
		return FormatMP4
	case "audio/m4a", "audio/x-m4a":
		return FormatM4A
	}
	return FormatUnknown
}

// Resolve picks the container for an upload: sniffed bytes win over the
// client's hint, and browser recordings default to webm.
func Resolve(data []byte, mimeHint string) Format {
	if f := DetectFormat(data); f != FormatUnknown {
		return f
	}
	if f := FormatFromMIME(mimeHint); f != FormatUnknown {
		return f
	}
	return FormatWebM
}

// Alternate is the container to retry with when a provider rejects f. Only
// formats that browsers commonly mislabel have one.
func (f Format) Alternate() Format {
	switch f {
	case FormatWebM:
		return FormatOgg
	case FormatOgg:
		return FormatWebM
	case FormatMP4:
		return FormatM4A
	case FormatM4A:
		return FormatMP4
	}
	return FormatUnknown
}

// MIMEType returns the canonical media type of f.
func (f Format) MIMEType() string {
	switch f {
	case FormatWebM:
		return "audio/webm"
	case FormatOgg:
		return "audio/ogg"
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatMP4:
		return "audio/mp4"
	case FormatM4A:
		return "audio/x-m4a"
	case FormatFLAC:
		return "audio/flac"
	}
	return "application/octet-stream"
}

// Filename is the multipart filename providers use to infer the container.
func (f Format) Filename() string {
	if f == FormatUnknown {
		return "audio.webm"
	}
	return "audio." + string(f)
}

const (
	wavSampleRate    = 16000
	wavBitsPerSample = 16
	wavChannels      = 1
)

// SilentWAV returns a mono 16 kHz 16-bit PCM WAV of ms milliseconds of
// silence.
func SilentWAV(ms int) []byte {
	return pcmWAV(make([]int16, wavSampleRate*ms/1000))
}

// ToneWAV returns a mono 16 kHz sine tone of hz lasting ms milliseconds,
// faded in and out to avoid clicks.
func ToneWAV(hz float64, ms int) []byte {
	n := wavSampleRate * ms / 1000
	fade := min(n/10, wavSampleRate/100)

	samples := make([]int16, n)
	for i := range samples {
		gain := 0.4
		if i < fade {
			gain *= float64(i) / float64(fade)
		} else if n-i < fade {
			gain *= float64(n-i) / float64(fade)
		}
		samples[i] = int16(gain * math.MaxInt16 * math.Sin(2*math.Pi*hz*float64(i)/wavSampleRate))
	}
	return pcmWAV(samples)
}

func pcmWAV(samples []int16) []byte {
	dataLen := len(samples) * wavChannels * wavBitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataLen))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavChannels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(wavSampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(wavSampleRate*wavChannels*wavBitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavChannels*wavBitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(wavBitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	_ = binary.Write(buf, binary.LittleEndian, samples)
	return buf.Bytes()
}

// IsSilentPCM reports whether a WAV payload carries only zero samples, or
// no samples at all. Non-WAV input is never considered silent.
func IsSilentPCM(data []byte) bool {
	if DetectFormat(data) != FormatWAV || len(data) < 44 {
		return false
	}
	for _, b := range data[44:] {
		if b != 0 {
			return false
		}
	}
	return true
}
