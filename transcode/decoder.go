package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-gusto/logging"
)

// ErrDecodeFailed is returned for corrupt, empty or undecodable audio
var ErrDecodeFailed = errors.New("decode failed")

// AudioData is a decoded, mono waveform ready for analysis
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"`
	Codec      string        `json:"codec,omitempty"`
}

// AudioDecoder turns a file on disk into analysis-ready PCM
type AudioDecoder interface {
	Decode(ctx context.Context, path string) (*AudioData, error)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"`
	TargetChannels   int           `json:"target_channels"`
	MaxDuration      time.Duration `json:"max_duration"`     // prefix of the file to decode, 0 = all
	ResampleQuality  string        `json:"resample_quality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // per ffmpeg invocation
	// Normalization options
	EnableNormalization bool    `json:"enable_normalization"`
	NormalizationMethod string  `json:"normalization_method"` // "loudnorm", "dynaudnorm"
	TargetLUFS          float64 `json:"target_lufs"`
	TargetPeak          float64 `json:"target_peak"`
	LoudnessRange       float64 `json:"loudness_range"`
}

// DefaultDecoderConfig decodes the first 30 seconds at 22050 Hz mono.
// Loudness normalization stays off so the RMS features see the real level.
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate:    22050,
		TargetChannels:      1,
		MaxDuration:         30 * time.Second,
		ResampleQuality:     "high",
		FFmpegPath:          "ffmpeg",
		FFprobePath:         "ffprobe",
		Timeout:             60 * time.Second,
		EnableNormalization: false,
		NormalizationMethod: "loudnorm",
		TargetLUFS:          -16.0,
		TargetPeak:          -1.0,
		LoudnessRange:       8.0,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// Decode probes and decodes a file. Every failure wraps ErrDecodeFailed.
func (d *Decoder) Decode(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Decode",
		"filename":  path,
	})

	logger.Debug("Starting audio file decode")

	metadata, err := d.probeAudioFile(ctx, path)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	args := append([]string{"-i", path}, d.buildFFmpegArgs(metadata)...)
	args = append(args, "pipe:1")

	output, err := d.run(ctx, d.config.FFmpegPath, args)
	if err != nil {
		logger.Error(err, "FFmpeg decode failed")
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, path, err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s: no audio samples decoded", ErrDecodeFailed, path)
	}

	audio := &AudioData{
		PCM:        samples,
		SampleRate: d.config.TargetSampleRate,
		Channels:   d.config.TargetChannels,
		Duration:   samplesDuration(len(samples)/d.config.TargetChannels, d.config.TargetSampleRate),
		Source:     path,
		Codec:      metadata.Codec,
	}

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_samples":  len(samples),
		"output_duration": audio.Duration.Seconds(),
	})

	return audio, nil
}

// run executes a command bounded by the configured timeout and returns
// its stdout, folding stderr into the error
func (d *Decoder) run(ctx context.Context, binary string, args []string) ([]byte, error) {
	if d.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%s failed: %w, stderr: %s", binary, err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("%s failed: %w", binary, err)
	}
	return output, nil
}

// probeAudioFile uses ffprobe to get audio information from a file
func (d *Decoder) probeAudioFile(ctx context.Context, filename string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		filename,
	}

	output, err := d.run(ctx, d.config.FFprobePath, args)
	if err != nil {
		return nil, err
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	// ffprobe reports numbers as strings; unparseable ones are left at zero
	sampleRate, _ := strconv.Atoi(stream.SampleRate)
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// buildFFmpegArgs builds the output side of the ffmpeg command line
func (d *Decoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-vn",
		"-f", "f64le",
		"-ac", strconv.Itoa(d.config.TargetChannels),
		"-ar", strconv.Itoa(d.config.TargetSampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	var filters []string
	if metadata != nil && metadata.SampleRate != d.config.TargetSampleRate {
		switch d.config.ResampleQuality {
		case "fast":
			filters = append(filters, "aresample=resampler=soxr:precision=16")
		case "medium":
			filters = append(filters, "aresample=resampler=soxr:precision=20")
		case "high":
			filters = append(filters, "aresample=resampler=soxr:precision=28")
		}
	}

	if d.config.EnableNormalization {
		if normFilter := d.buildNormalizationFilter(); normFilter != "" {
			filters = append(filters, normFilter)
		}
	}

	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	return append(args, "-v", "error")
}

func (d *Decoder) buildNormalizationFilter() string {
	switch d.config.NormalizationMethod {
	case "loudnorm":
		// EBU R128
		return fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f:LRA=%.1f",
			d.config.TargetLUFS,
			d.config.TargetPeak,
			d.config.LoudnessRange)
	case "dynaudnorm":
		return "dynaudnorm=p=0.95:m=10:s=12"
	default:
		return ""
	}
}

// bytesToFloat64 converts raw little-endian float64 bytes, dropping a
// trailing partial sample
func bytesToFloat64(data []byte) []float64 {
	sampleCount := len(data) / 8
	if sampleCount == 0 {
		return nil
	}

	samples := make([]float64, sampleCount)
	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

func samplesDuration(samplesPerChannel, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samplesPerChannel) * time.Second / time.Duration(sampleRate)
}

// ValidateConfig validates the decoder configuration and checks that the
// ffmpeg binaries can be run
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}

	if d.config.TargetChannels != 1 {
		return fmt.Errorf("analysis needs mono audio, got %d channels", d.config.TargetChannels)
	}

	if d.config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", d.config.Timeout)
	}

	return d.checkFFmpegAvailability()
}

func (d *Decoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}

	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}

	return nil
}
