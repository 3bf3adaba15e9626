// Package vad implements energy-based voice activity detection over a live
// audio level source, with run-length debouncing on both edges.
package vad

import (
	"errors"
	"sync"
	"time"
)

// ErrNotInitialized is returned by Enable when the detector has no usable
// level source. Callers fall back to manual turn-taking.
var ErrNotInitialized = errors.New("vad: detector not initialized")

// Config holds the detector tunables.
type Config struct {
	// VolumeThreshold is the normalized [0,1] energy level above which a
	// frame counts as speech.
	VolumeThreshold float64

	// TickInterval is how often the level source is sampled.
	TickInterval time.Duration

	// SpeechRunLength is the number of consecutive above-threshold frames
	// required before a speech-start edge fires.
	SpeechRunLength int

	// SilenceRunLength is the number of consecutive below-threshold frames
	// required before a speech-end edge may fire.
	SilenceRunLength int

	// SilenceThreshold is the minimum wall-clock time since the last speech
	// frame before a speech-end edge fires. This is the dominant tunable:
	// low values clip trailing words, high values add turn latency.
	SilenceThreshold time.Duration
}

// DefaultConfig returns thresholds tuned for browser microphone levels
// sampled every 50ms.
func DefaultConfig() Config {
	return Config{
		VolumeThreshold:  0.12,
		TickInterval:     50 * time.Millisecond,
		SpeechRunLength:  3,
		SilenceRunLength: 10,
		SilenceThreshold: 1500 * time.Millisecond,
	}
}

// LevelSource exposes the current normalized speech-band energy of a live
// audio stream. ok is false when the underlying device is unavailable.
type LevelSource interface {
	Level() (level float64, ok bool)
}

// Events carries the edge callbacks. Either may be nil. Callbacks run on the
// detector's tick goroutine and must not block.
type Events struct {
	OnSpeechStart func()
	OnSpeechEnd   func()
}

// Detector classifies a live audio stream as speaking/silent and emits
// debounced edge events. A speech-start edge requires SpeechRunLength
// consecutive frames above threshold; a speech-end edge requires both
// SilenceRunLength consecutive frames below threshold and SilenceThreshold
// of wall-clock time since the last speech frame.
type Detector struct {
	cfg    Config
	source LevelSource
	events Events

	mu            sync.Mutex
	enabled       bool
	speaking      bool
	speechFrames  int
	silenceFrames int
	lastSpeech    time.Time
	stop          chan struct{}
	loopDone      chan struct{}
}

// New creates a detector over the given level source. A nil source yields a
// detector that fails closed: Initialized reports false and Enable returns
// ErrNotInitialized.
func New(source LevelSource, cfg Config, events Events) *Detector {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.SpeechRunLength <= 0 {
		cfg.SpeechRunLength = 3
	}
	if cfg.SilenceRunLength <= 0 {
		cfg.SilenceRunLength = 10
	}
	return &Detector{cfg: cfg, source: source, events: events}
}

// Initialized reports whether the detector has a usable level source.
func (d *Detector) Initialized() bool {
	return d.source != nil
}

// IsSpeaking returns the debounced output state.
func (d *Detector) IsSpeaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.speaking
}

// Enabled reports whether the tick loop is running.
func (d *Detector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Enable starts the tick loop. Counters always start from zero; edges from a
// previous enable period never carry over.
func (d *Detector) Enable() error {
	if d.source == nil {
		return ErrNotInitialized
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enabled {
		return nil
	}
	d.enabled = true
	d.speaking = false
	d.speechFrames = 0
	d.silenceFrames = 0
	d.stop = make(chan struct{})
	d.loopDone = make(chan struct{})
	go d.loop(d.stop, d.loopDone)
	return nil
}

// Disable stops the tick loop and resets all counters. It blocks until the
// loop has exited, so no event fires after Disable returns.
func (d *Detector) Disable() {
	d.mu.Lock()
	if !d.enabled {
		d.mu.Unlock()
		return
	}
	d.enabled = false
	stop := d.stop
	done := d.loopDone
	d.speaking = false
	d.speechFrames = 0
	d.silenceFrames = 0
	d.mu.Unlock()

	close(stop)
	<-done
}

func (d *Detector) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			level, ok := d.source.Level()
			if !ok {
				continue
			}
			d.step(level, time.Now())
		}
	}
}

// step advances the counters for one frame and fires edge callbacks.
// Separated from the loop so tests can feed synthetic frames.
func (d *Detector) step(level float64, now time.Time) {
	d.mu.Lock()

	if !d.enabled {
		d.speechFrames = 0
		d.silenceFrames = 0
		d.mu.Unlock()
		return
	}

	var fire func()

	if level > d.cfg.VolumeThreshold {
		d.speechFrames++
		d.silenceFrames = 0
		d.lastSpeech = now
		if !d.speaking && d.speechFrames >= d.cfg.SpeechRunLength {
			d.speaking = true
			fire = d.events.OnSpeechStart
		}
	} else {
		d.silenceFrames++
		d.speechFrames = 0
		if d.speaking && d.silenceFrames >= d.cfg.SilenceRunLength &&
			now.Sub(d.lastSpeech) >= d.cfg.SilenceThreshold {
			d.speaking = false
			fire = d.events.OnSpeechEnd
		}
	}

	d.mu.Unlock()

	if fire != nil {
		fire()
	}
}
