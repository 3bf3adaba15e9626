// Package stt streams microphone audio to a speech-to-text provider and
// surfaces interim and final transcripts.
package stt

import "context"

// TranscriptResult is one transcription update from the provider.
type TranscriptResult struct {
	Text        string  // transcribed text, possibly empty on boundary-only events
	Confidence  float64 // provider confidence in [0,1]
	IsFinal     bool    // segment will not be revised further
	SpeechFinal bool    // provider detected the end of the utterance
}

// Client is a streaming speech-to-text session.
type Client interface {
	// StreamAudio forwards one chunk of audio in the encoding the session
	// was opened with.
	StreamAudio(ctx context.Context, audio []byte) error

	// Results returns the channel of transcription updates.
	Results() <-chan TranscriptResult

	// Errors returns the channel of stream errors.
	Errors() <-chan error

	// Close ends the session. Results and Errors are closed after the
	// provider's remaining messages drain.
	Close() error
}
