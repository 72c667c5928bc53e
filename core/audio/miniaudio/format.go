package miniaudio

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-live/core/audio"
)

// deviceFormat maps a mono encoding onto the malgo sample format and the
// size of one device frame.
func deviceFormat(encoding audio.EncodingInfo) (malgo.FormatType, int, error) {
	if encoding.IsZero() {
		return malgo.FormatUnknown, 0, fmt.Errorf("incomplete encoding %+v", encoding)
	}

	var format malgo.FormatType
	switch encoding.Format {
	case audio.EncodingLinear16:
		format = malgo.FormatS16
	case audio.EncodingFloat32:
		format = malgo.FormatF32
	default:
		return malgo.FormatUnknown, 0, fmt.Errorf("unsupported encoding %q", encoding.Format.Name())
	}

	return format, encoding.BytesPerFrame(audio.Channels), nil
}
