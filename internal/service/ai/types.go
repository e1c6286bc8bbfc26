package ai

// ModelPreset represents the model usage preset
type ModelPreset string

const (
	PresetCreative ModelPreset = "creative" // free-text advice
	PresetPrecise  ModelPreset = "precise"  // structured classification
)

// ModelConfig holds per-preset sampling limits. Temperature comes from the
// request; the preset value is only a fallback.
type ModelConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// GenerateMetadata contains metadata about the generation
type GenerateMetadata struct {
	Provider     string
	Model        string
	UsedFallback bool
	Attempts     int
}

// PresetFor picks the preset matching a request's intent.
func PresetFor(jsonMode bool) ModelPreset {
	if jsonMode {
		return PresetPrecise
	}
	return PresetCreative
}

// GetPresetConfig returns the configuration for a preset
func GetPresetConfig(preset ModelPreset) ModelConfig {
	switch preset {
	case PresetPrecise:
		return ModelConfig{
			Temperature:     0.2,
			TopP:            0.9,
			TopK:            20,
			MaxOutputTokens: 512,
		}
	case PresetCreative:
		return ModelConfig{
			Temperature:     0.6,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 2048,
		}
	default:
		return GetPresetConfig(PresetCreative)
	}
}
