package audio

import (
	"math"
	"testing"
)

const testRate = 16000

// tonePCM renders a mono sine tone as 16-bit little-endian PCM.
func tonePCM(freq, amplitude float64, samples int) []byte {
	pcm := make([]byte, 2*samples)
	for i := 0; i < samples; i++ {
		v := amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate)
		s := int16(v * 32767)
		pcm[2*i] = byte(uint16(s))
		pcm[2*i+1] = byte(uint16(s) >> 8)
	}
	return pcm
}

func feedTone(a *Analyzer, freq, amplitude float64) {
	// Several chunks so the filter settles and smoothing converges.
	for i := 0; i < 20; i++ {
		a.Process(tonePCM(freq, amplitude, 800))
	}
}

func TestLevelUnavailableBeforeFirstChunk(t *testing.T) {
	a := NewAnalyzer(testRate)
	if _, ok := a.Level(); ok {
		t.Error("Level() ok = true before any audio")
	}
}

func TestSilenceReadsNearZero(t *testing.T) {
	a := NewAnalyzer(testRate)
	a.Process(make([]byte, 1600))
	level, ok := a.Level()
	if !ok {
		t.Fatal("Level() ok = false after a chunk")
	}
	if level > 0.01 {
		t.Errorf("level = %f for silence, want near zero", level)
	}
}

func TestSpeechBandToneReadsLoud(t *testing.T) {
	a := NewAnalyzer(testRate)
	feedTone(a, 1000, 0.5)
	level, ok := a.Level()
	if !ok {
		t.Fatal("Level() ok = false")
	}
	if level < 0.2 {
		t.Errorf("level = %f for a loud 1kHz tone, want well above threshold", level)
	}
}

func TestRumbleAttenuatedAgainstSpeechBand(t *testing.T) {
	speech := NewAnalyzer(testRate)
	feedTone(speech, 1000, 0.5)
	speechLevel, _ := speech.Level()

	rumble := NewAnalyzer(testRate)
	feedTone(rumble, 50, 0.5)
	rumbleLevel, _ := rumble.Level()

	if rumbleLevel >= speechLevel/4 {
		t.Errorf("50Hz level %f vs 1kHz level %f, want strong attenuation", rumbleLevel, speechLevel)
	}
}

func TestHighFrequencyAttenuated(t *testing.T) {
	speech := NewAnalyzer(testRate)
	feedTone(speech, 1000, 0.5)
	speechLevel, _ := speech.Level()

	hiss := NewAnalyzer(testRate)
	feedTone(hiss, 7500, 0.5)
	hissLevel, _ := hiss.Level()

	if hissLevel >= speechLevel/2 {
		t.Errorf("7.5kHz level %f vs 1kHz level %f, want attenuation", hissLevel, speechLevel)
	}
}

func TestOddAndEmptyChunks(t *testing.T) {
	a := NewAnalyzer(testRate)
	a.Process(nil)
	a.Process([]byte{0x01})
	if _, ok := a.Level(); ok {
		t.Error("Level() ok = true after only unusable chunks")
	}

	// A chunk with a trailing odd byte still contributes its whole samples.
	chunk := append(tonePCM(1000, 0.5, 400), 0x7f)
	a.Process(chunk)
	if _, ok := a.Level(); !ok {
		t.Error("Level() ok = false after a chunk with a trailing byte")
	}
}

func TestClose(t *testing.T) {
	a := NewAnalyzer(testRate)
	feedTone(a, 1000, 0.5)
	a.Close()
	if _, ok := a.Level(); ok {
		t.Error("Level() ok = true after Close")
	}
	// Process after Close is a no-op, not a panic.
	a.Process(tonePCM(1000, 0.5, 400))
}
