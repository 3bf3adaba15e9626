// Package tts converts coach prompts to speech audio.
package tts

import "context"

// Request is one synthesis job. Zero-valued tuning fields mean provider
// defaults.
type Request struct {
	Text         string
	Voice        string  // voice table key, empty for the provider default
	SpeakingRate float64 // 0.25-4.0
	Pitch        float64 // -20.0-20.0 semitone offset
	VolumeGainDB float64 // -96.0-16.0
}

// Client defines the interface for text-to-speech providers.
type Client interface {
	// Synthesize converts text to speech and returns encoded audio, MP3 for
	// both shipped providers.
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}
