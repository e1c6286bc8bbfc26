package constants

import "time"

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,                // 3 consecutive failures open the circuit
	ResetTimeout:        30 * time.Second, // default wait before retrying
	RateLimitTimeout:    5 * time.Minute,  // 429 responses back off longer
	HealthCheckInterval: 1 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

// RetryConfig applies at the LLM and transcription boundaries only; the
// triage pipeline itself never retries.
var RetryConfig = struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}{
	MaxRetries: 2,
	BaseDelay:  500 * time.Millisecond,
}

var ModelDefaults = struct {
	OpenAIModel        string
	TranscriptionModel string
	GeminiModel        string
	CallTimeout        time.Duration
}{
	OpenAIModel:        "gpt-4o",
	TranscriptionModel: "whisper-1",
	GeminiModel:        "gemini-2.5-flash",
	CallTimeout:        45 * time.Second,
}

var CatalogConfig = struct {
	SnapshotKeyPrefix string
	SnapshotTTL       time.Duration
	LoadTimeout       time.Duration
}{
	SnapshotKeyPrefix: "nyaay:catalog:",
	SnapshotTTL:       6 * time.Hour,
	LoadTimeout:       30 * time.Second,
}

var ClassifierConfig = struct {
	HTTPTimeout time.Duration
}{
	HTTPTimeout: 10 * time.Second,
}

var HTTPLimits = struct {
	MaxAudioBytes  int64
	MaxQueryLength int
}{
	MaxAudioBytes:  25 << 20, // Whisper upload limit
	MaxQueryLength: 4000,
}
