package costs

import (
	"testing"
)

func TestCalculateSessionCosts(t *testing.T) {
	tests := []struct {
		name    string
		metrics SessionMetrics
		want    SessionCosts
	}{
		{
			name: "typical 10 minute practice session",
			metrics: SessionMetrics{
				STTDurationSeconds: 600,
				LLMInputTokens:     5000,
				LLMOutputTokens:    2000,
				TTSCharacters:      4000,
			},
			// STT: 10 * 0.77 = 7.7 -> 8 cents
			// LLM: (5000/1000)*0.015 + (2000/1000)*0.06 = 0.195 -> 0 cents
			// TTS: (4000/1000)*1.6 = 6.4 -> 6 cents
			want: SessionCosts{
				STTCostCents:   8,
				LLMCostCents:   0,
				TTSCostCents:   6,
				TotalCostCents: 14,
			},
		},
		{
			name: "short profiling-only session",
			metrics: SessionMetrics{
				STTDurationSeconds: 90,
				TTSCharacters:      800,
			},
			// STT: 1.5 * 0.77 = 1.155 -> 1 cent
			// TTS: (800/1000)*1.6 = 1.28 -> 1 cent
			want: SessionCosts{
				STTCostCents:   1,
				TTSCostCents:   1,
				TotalCostCents: 2,
			},
		},
		{
			name: "fallback provider dominates tts cost",
			metrics: SessionMetrics{
				STTDurationSeconds: 120,
				TTSCharacters:      500,
				FallbackCharacters: 1000,
			},
			// STT: 2 * 0.77 = 1.54 -> 2 cents
			// TTS: (500/1000)*1.6 + (1000/1000)*18 = 0.8 + 18 = 18.8 -> 19 cents
			want: SessionCosts{
				STTCostCents:   2,
				TTSCostCents:   19,
				TotalCostCents: 21,
			},
		},
		{
			name:    "zero usage",
			metrics: SessionMetrics{},
			want:    SessionCosts{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateSessionCosts(tt.metrics)
			if got != tt.want {
				t.Errorf("CalculateSessionCosts() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRoundToInt(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{1.5, 2},
		{-0.5, -1},
		{-0.4, 0},
	}

	for _, tt := range tests {
		if got := roundToInt(tt.in); got != tt.want {
			t.Errorf("roundToInt(%f) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
