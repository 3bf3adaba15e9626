// Package audio turns raw microphone PCM into the normalized speech-band
// energy level the voice activity detector samples.
package audio

import (
	"math"
	"sync"
)

// Analyzer computes a smoothed, normalized [0,1] energy level from 16-bit
// little-endian PCM chunks. Samples pass through a band-pass filter centered
// on the speech band first, so keyboard thumps and low-frequency room noise
// don't read as speech.
//
// Process is called from the transport read loop and Level from the detector
// tick goroutine; both are safe concurrently.
type Analyzer struct {
	mu     sync.Mutex
	filter biquad
	level  float64
	seen   bool
	closed bool
}

// smoothing is the exponential moving average weight for new chunk levels.
// Higher values track the signal faster but flicker more at frame boundaries.
const smoothing = 0.35

// NewAnalyzer returns an analyzer for mono PCM at the given sample rate.
func NewAnalyzer(sampleRate int) *Analyzer {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Analyzer{filter: newSpeechBandFilter(sampleRate)}
}

// Process consumes one chunk of 16-bit little-endian mono PCM and folds its
// energy into the current level. Chunks shorter than one sample are ignored.
// A trailing odd byte is dropped.
func (a *Analyzer) Process(pcm []byte) {
	n := len(pcm) / 2
	if n == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	var sum float64
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		x := float64(s) / 32768.0
		y := a.filter.apply(x)
		sum += y * y
	}
	rms := math.Sqrt(sum / float64(n))
	if rms > 1 {
		rms = 1
	}

	if !a.seen {
		a.level = rms
		a.seen = true
	} else {
		a.level = a.level + smoothing*(rms-a.level)
	}
}

// Level implements vad.LevelSource. ok is false before the first chunk
// arrives and after Close, so the detector treats the source as unavailable
// rather than reading silence.
func (a *Analyzer) Level() (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || !a.seen {
		return 0, false
	}
	return a.level, true
}

// Close releases the analyzer. Further Process calls are dropped and Level
// reports unavailable.
func (a *Analyzer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

// biquad is a direct-form-I second-order IIR filter section.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// newSpeechBandFilter builds a band-pass section centered on the telephony
// speech band (roughly 300-3400Hz) for the given sample rate, using the
// cookbook constant-skirt-gain formulation.
func newSpeechBandFilter(sampleRate int) biquad {
	const (
		lowHz  = 300.0
		highHz = 3400.0
	)
	fs := float64(sampleRate)
	f0 := math.Sqrt(lowHz * highHz)
	bw := highHz - lowHz
	q := f0 / bw

	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)
	cosW0 := math.Cos(w0)

	a0 := 1 + alpha
	return biquad{
		b0: alpha / a0,
		b1: 0,
		b2: -alpha / a0,
		a1: -2 * cosW0 / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *biquad) apply(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}
