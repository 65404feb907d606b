package features

// FeatureConfig fixes every analysis parameter that shapes the schema or
// the feature values. Changing any of them means a new schema version.
type FeatureConfig struct {
	// Framing
	SampleRate int `json:"sample_rate"`
	WindowSize int `json:"window_size"`
	HopSize    int `json:"hop_size"`

	// Family sizes
	MFCCCoefficients int `json:"mfcc_coefficients"`
	MFCCMelFilters   int `json:"mfcc_mel_filters"`
	DeltaWidth       int `json:"delta_width"` // regression half-width, in frames
	ContrastBands    int `json:"contrast_bands"`
	ChromaBins       int `json:"chroma_bins"`

	RolloffPercent float64 `json:"rolloff_percent"`
	SchemaVersion  string  `json:"schema_version"`
}

// DefaultFeatureConfig is the fixed v2 analysis setup: 22050 Hz mono,
// 2048-sample frames with a 512-sample hop, 13 MFCCs, 7 contrast bands
// and 12 chroma bins
func DefaultFeatureConfig() *FeatureConfig {
	return &FeatureConfig{
		SampleRate:       22050,
		WindowSize:       2048,
		HopSize:          512,
		MFCCCoefficients: 13,
		MFCCMelFilters:   40,
		DeltaWidth:       4,
		ContrastBands:    7,
		ChromaBins:       12,
		RolloffPercent:   0.85,
		SchemaVersion:    "v2",
	}
}
