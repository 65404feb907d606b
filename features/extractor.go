package features

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-gusto/algorithms/chroma"
	"github.com/RyanBlaney/sonido-gusto/algorithms/common"
	"github.com/RyanBlaney/sonido-gusto/algorithms/spectral"
	"github.com/RyanBlaney/sonido-gusto/algorithms/temporal"
	"github.com/RyanBlaney/sonido-gusto/algorithms/windowing"
	"github.com/RyanBlaney/sonido-gusto/logging"
	"github.com/RyanBlaney/sonido-gusto/transcode"
)

// ErrExtractionFailed covers every analysis failure: bad input, a panic in
// numeric code, or a non-finite feature. No partial record is returned.
var ErrExtractionFailed = errors.New("feature extraction failed")

// Extractor turns decoded audio into a Record matching its Schema.
// Algorithms cache per-size tables, so an Extractor is not safe for
// concurrent use; create one per goroutine.
type Extractor struct {
	config  *FeatureConfig
	schema  *Schema
	decoder transcode.AudioDecoder
	logger  logging.Logger

	window *windowing.Hann
	stft   *spectral.STFT

	// rhythm
	onsetDetection  *temporal.OnsetDetection
	tempoEstimation *temporal.TempoEstimation
	beatTracker     *temporal.BeatTracker

	// timbre and spectral shape
	mfcc              *spectral.MFCC
	spectralCentroid  *spectral.SpectralCentroid
	spectralBandwidth *spectral.SpectralBandwidth
	spectralRolloff   *spectral.SpectralRolloff
	spectralContrast  *spectral.SpectralContrast

	// harmony and energy
	chromaSTFT   *chroma.ChromaSTFT
	energy       *temporal.Energy
	zeroCrossing *spectral.ZeroCrossingRate
}

// NewExtractor builds an extractor. decoder is only needed by ExtractFile
// and may be nil when callers decode themselves.
func NewExtractor(config *FeatureConfig, decoder transcode.AudioDecoder) *Extractor {
	if config == nil {
		config = DefaultFeatureConfig()
	}

	sampleRate := config.SampleRate
	e := &Extractor{
		config:  config,
		schema:  NewSchema(config),
		decoder: decoder,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),

		window: windowing.NewPeriodicHann(config.WindowSize),
		stft:   spectral.NewSTFT(),

		onsetDetection:  temporal.NewOnsetDetection(sampleRate),
		tempoEstimation: temporal.NewTempoEstimation(sampleRate, config.HopSize),
		beatTracker:     temporal.NewBeatTracker(sampleRate, config.HopSize),

		mfcc: spectral.NewMFCCWithParams(sampleRate, spectral.MFCCParams{
			NumCoefficients: config.MFCCCoefficients,
			NumMelFilters:   config.MFCCMelFilters,
		}),
		spectralCentroid:  spectral.NewSpectralCentroid(sampleRate),
		spectralBandwidth: spectral.NewSpectralBandwidth(sampleRate),
		spectralRolloff:   spectral.NewSpectralRolloff(sampleRate),
		spectralContrast:  spectral.NewSpectralContrast(sampleRate, config.ContrastBands),

		chromaSTFT:   chroma.NewChromaSTFTDefault(sampleRate),
		energy:       temporal.NewEnergy(config.WindowSize, config.HopSize, sampleRate),
		zeroCrossing: spectral.NewZeroCrossingRateWithParams(sampleRate, config.WindowSize, config.HopSize),
	}

	return e
}

// Schema returns the schema every record from this extractor satisfies
func (e *Extractor) Schema() *Schema {
	return e.schema
}

// ExtractFile decodes path and extracts its features. The file is removed
// afterwards whether or not extraction succeeded, so each fetched file can
// be extracted exactly once.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (Record, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "ExtractFile",
		"filename": path,
	})

	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove source audio", logging.Fields{"error": err.Error()})
		}
	}()

	if e.decoder == nil {
		return nil, fmt.Errorf("%w: no decoder configured", transcode.ErrDecodeFailed)
	}

	audio, err := e.decoder.Decode(ctx, path)
	if err != nil {
		if !errors.Is(err, transcode.ErrDecodeFailed) {
			err = fmt.Errorf("%w: %w", transcode.ErrDecodeFailed, err)
		}
		logger.Error(err, "Decode failed")
		return nil, err
	}

	return e.Extract(audio)
}

// Extract computes the full feature record for one decoded buffer
func (e *Extractor) Extract(audio *transcode.AudioData) (record Record, err error) {
	if audio == nil || len(audio.PCM) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrExtractionFailed)
	}
	if audio.SampleRate != e.config.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, analysis expects %d", ErrExtractionFailed, audio.SampleRate, e.config.SampleRate)
	}
	if audio.Channels > 1 {
		return nil, fmt.Errorf("%w: %d channels, analysis expects mono", ErrExtractionFailed, audio.Channels)
	}
	if !common.AllFinite(audio.PCM) {
		return nil, fmt.Errorf("%w: non-finite samples", ErrExtractionFailed)
	}

	logger := e.logger.WithFields(logging.Fields{
		"function": "Extract",
		"samples":  len(audio.PCM),
	})

	defer func() {
		if r := recover(); r != nil {
			record = nil
			err = fmt.Errorf("%w: panic during analysis: %v", ErrExtractionFailed, r)
			logger.Error(err, "Recovered from analysis panic")
		}
	}()

	record, err = e.extract(audio.PCM)
	if err != nil {
		logger.Error(err, "Feature extraction failed")
		return nil, err
	}

	logger.Debug("Feature extraction completed", logging.Fields{
		"features": len(record),
		"tempo":    record["tempo"],
	})

	return record, nil
}

func (e *Extractor) extract(pcm []float64) (Record, error) {
	cfg := e.config
	record := make(Record, e.schema.Len())

	stftResult, err := e.stft.ComputeCentered(pcm, cfg.WindowSize, cfg.HopSize, cfg.SampleRate, e.window)
	if err != nil {
		return nil, fmt.Errorf("%w: STFT: %w", ErrExtractionFailed, err)
	}
	magnitude := stftResult.Magnitude
	power := stftResult.Power()

	// rhythm: one envelope feeds both tempo and beats
	onset := e.onsetDetection.StrengthFromPower(power)
	bpm := e.tempoEstimation.EstimateFromOnsets(onset)
	record["tempo"] = bpm

	beatTimes := e.beatTracker.BeatTimes(e.beatTracker.Track(onset, bpm))
	Summarize(record, "beat_interval", common.Diff(beatTimes))

	// timbre
	mfccFrames, err := e.mfcc.ComputeFrames(power)
	if err != nil {
		return nil, fmt.Errorf("%w: MFCC: %w", ErrExtractionFailed, err)
	}
	delta := temporal.DeltaFrames(mfccFrames, cfg.DeltaWidth)
	delta2 := temporal.DeltaFrames(delta, cfg.DeltaWidth)

	for i := range cfg.MFCCCoefficients {
		Summarize(record, fmt.Sprintf("mfcc_%d", i), column(mfccFrames, i))
		Summarize(record, fmt.Sprintf("mfcc_delta_%d", i), column(delta, i))
		Summarize(record, fmt.Sprintf("mfcc_delta2_%d", i), column(delta2, i))
	}

	// spectral shape
	centroids := e.spectralCentroid.ComputeFrames(magnitude)
	Summarize(record, "spectral_centroid", centroids)
	Summarize(record, "spectral_bandwidth", e.spectralBandwidth.ComputeFrames(magnitude, centroids))
	Summarize(record, "spectral_rolloff", e.spectralRolloff.ComputeFrames(magnitude, cfg.RolloffPercent))

	contrast := e.spectralContrast.ComputeFrames(magnitude)
	for b := range cfg.ContrastBands {
		Summarize(record, fmt.Sprintf("spectral_contrast_%d", b), column(contrast, b))
	}

	// harmony
	chromagram := e.chromaSTFT.ComputeFromPower(power)
	for k := range cfg.ChromaBins {
		Summarize(record, fmt.Sprintf("chroma_%d", k), column(chromagram, k))
	}

	// energy
	Summarize(record, "rms", e.energy.ComputeRMSCentered(pcm))
	Summarize(record, "zcr", e.zeroCrossing.ComputeFramesCentered(pcm))

	if err := e.schema.Validate(record); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	return record, nil
}
