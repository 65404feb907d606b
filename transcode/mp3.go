package transcode

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 files in pure Go, for hosts without ffmpeg.
// go-mp3 always emits 16-bit little-endian stereo, which is mixed to mono
// and resampled to the configured rate.
type MP3Decoder struct {
	config       *DecoderConfig
	interpolator *common.Interpolator
}

// NewMP3Decoder creates a pure-Go MP3 decoder
func NewMP3Decoder(config *DecoderConfig) *MP3Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}

	method := common.Linear
	if config.ResampleQuality == "high" {
		method = common.Cubic
	}

	return &MP3Decoder{
		config:       config,
		interpolator: common.NewInterpolator(method),
	}
}

// Decode reads at most MaxDuration of the file. Every failure wraps
// ErrDecodeFailed.
func (m *MP3Decoder) Decode(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "mp3_decoder",
		"function":  "Decode",
		"filename":  path,
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(bufio.NewReader(f))
	if err != nil {
		logger.Error(err, "Not a decodable MP3 stream")
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}

	sourceRate := decoder.SampleRate()
	maxFrames := -1
	if m.config.MaxDuration > 0 {
		maxFrames = int(m.config.MaxDuration.Seconds() * float64(sourceRate))
	}

	mono, err := readMonoPCM16(ctx, decoder, maxFrames)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}
	if len(mono) == 0 {
		return nil, fmt.Errorf("%w: %s: no audio samples decoded", ErrDecodeFailed, path)
	}

	samples := m.interpolator.ResampleSignal(mono, sourceRate, m.config.TargetSampleRate)

	logger.Debug("MP3 decode completed", logging.Fields{
		"source_sample_rate": sourceRate,
		"output_samples":     len(samples),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: m.config.TargetSampleRate,
		Channels:   1,
		Duration:   samplesDuration(len(samples), m.config.TargetSampleRate),
		Source:     path,
		Codec:      "mp3",
	}, nil
}

// readMonoPCM16 averages interleaved 16-bit stereo frames into [-1, 1)
// mono samples, stopping after maxFrames frames when maxFrames >= 0
func readMonoPCM16(ctx context.Context, r io.Reader, maxFrames int) ([]float64, error) {
	const frameBytes = 4

	var mono []float64
	buf := make([]byte, 16*1024)
	var carry []byte

	for maxFrames < 0 || len(mono) < maxFrames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			whole := len(data) / frameBytes * frameBytes

			for i := 0; i < whole; i += frameBytes {
				left := int16(binary.LittleEndian.Uint16(data[i:]))
				right := int16(binary.LittleEndian.Uint16(data[i+2:]))
				mono = append(mono, (float64(left)+float64(right))/2/32768.0)
				if maxFrames >= 0 && len(mono) == maxFrames {
					break
				}
			}
			carry = append(carry[:0:0], data[whole:]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}

	return mono, nil
}
