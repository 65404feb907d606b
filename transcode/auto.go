package transcode

import (
	"github.com/RyanBlaney/sonido-gusto/logging"
)

// NewAutoDecoder returns the ffmpeg decoder when ffmpeg and ffprobe are
// installed, otherwise the pure-Go MP3 decoder
func NewAutoDecoder(config *DecoderConfig) AudioDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}

	ffmpeg := NewDecoder(config)
	if err := ffmpeg.checkFFmpegAvailability(); err != nil {
		logging.Warn("ffmpeg unavailable, only MP3 input can be decoded", logging.Fields{
			"component": "audio_decoder",
			"reason":    err.Error(),
		})
		return NewMP3Decoder(config)
	}

	return ffmpeg
}
