package audio

import (
	"strconv"
	"strings"
)

const (
	// CaptureSampleRate is the rate the remote endpoint expects for user audio.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate the remote endpoint synthesizes speech at.
	PlaybackSampleRate = 24000
	// Channels is fixed to mono in both directions.
	Channels = 1

	CaptureMIMEType  = "audio/pcm;rate=16000"
	PlaybackMIMEType = "audio/pcm;rate=24000"
)

func GetCaptureEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: CaptureSampleRate, Format: EncodingLinear16}
}

func GetPlaybackEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: PlaybackSampleRate, Format: EncodingLinear16}
}

// GetMicrophoneEncodingInfo is what capture devices deliver before the
// samples are encoded for the wire.
func GetMicrophoneEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: CaptureSampleRate, Format: EncodingFloat32}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

// BytesPerFrame is the size of one frame across channels, or -1 for an
// unknown format.
func (e EncodingInfo) BytesPerFrame(channels int) int {
	size := e.Format.ByteSize()
	if size < 0 {
		return -1
	}
	return size * channels
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// MIMEType renders the encoding the way the remote endpoint labels media
// chunks. Only linear PCM is representable.
func (e EncodingInfo) MIMEType() string {
	if e.Format != EncodingLinear16 {
		return ""
	}
	return "audio/pcm;rate=" + strconv.Itoa(e.SampleRate)
}

// ParseMIMERate extracts the rate parameter from a PCM MIME type such as
// "audio/pcm;rate=24000". It reports false when the type is not PCM or has no
// usable rate.
func ParseMIMERate(mimeType string) (int, bool) {
	mediaType, params, _ := strings.Cut(mimeType, ";")
	if strings.TrimSpace(strings.ToLower(mediaType)) != "audio/pcm" {
		return 0, false
	}

	for _, param := range strings.Split(params, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || strings.ToLower(key) != "rate" {
			continue
		}
		rate, err := strconv.Atoi(value)
		if err != nil || rate <= 0 {
			return 0, false
		}
		return rate, true
	}
	return 0, false
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
