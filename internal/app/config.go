package app

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	SentryDSN   string
	LogLevel    string

	// Voice AI providers
	DeepgramAPIKey   string
	OpenAIAPIKey     string
	GoogleTTSAPIKey  string
	ElevenLabsAPIKey string

	// STT settings
	STTLanguage      string
	STTModel         string
	STTSampleRate    int
	STTEndpointingMs int

	// TTS settings
	TTSVoice        string
	TTSSpeakingRate float64

	// LLM settings
	LLMModel string

	// Turn settings
	GracePeriodMs int

	// VAD tunables
	VADVolumeThreshold    float64
	VADTickIntervalMs     int
	VADSpeechRunLength    int
	VADSilenceRunLength   int
	VADSilenceThresholdMs int
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		// Voice AI providers
		DeepgramAPIKey:   getenv("DEEPGRAM_API_KEY", ""),
		OpenAIAPIKey:     getenv("OPENAI_API_KEY", ""),
		GoogleTTSAPIKey:  getenv("GOOGLE_TTS_API_KEY", ""),
		ElevenLabsAPIKey: getenv("ELEVENLABS_API_KEY", ""),

		// STT settings
		STTLanguage:      getenv("STT_LANGUAGE", "en-IN"),
		STTModel:         getenv("STT_MODEL", "nova-2"),
		STTSampleRate:    getenvInt("STT_SAMPLE_RATE", 16000),
		STTEndpointingMs: getenvIntClamped("STT_ENDPOINTING_MS", 800, 100, 5000),

		// TTS settings
		TTSVoice:        getenv("TTS_VOICE", "neural2_male_indian"),
		TTSSpeakingRate: getenvFloatClamped("TTS_SPEAKING_RATE", 0.9, 0.25, 4.0),

		// LLM settings
		LLMModel: getenv("LLM_MODEL", "gpt-4o-mini"),

		// Turn settings
		GracePeriodMs: getenvIntClamped("TURN_GRACE_PERIOD_MS", 500, 50, 5000),

		// VAD tunables
		VADVolumeThreshold:    getenvFloatClamped("VAD_VOLUME_THRESHOLD", 0.12, 0.0, 1.0),
		VADTickIntervalMs:     getenvIntClamped("VAD_TICK_INTERVAL_MS", 50, 10, 500),
		VADSpeechRunLength:    getenvIntClamped("VAD_SPEECH_RUN_LENGTH", 3, 1, 50),
		VADSilenceRunLength:   getenvIntClamped("VAD_SILENCE_RUN_LENGTH", 10, 1, 100),
		VADSilenceThresholdMs: getenvIntClamped("VAD_SILENCE_THRESHOLD_MS", 1500, 100, 10000),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvIntClamped(k string, def, min, max int) int {
	v := getenvInt(k, def)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func getenvFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvFloatClamped(k string, def, min, max float64) float64 {
	v := getenvFloat(k, def)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
