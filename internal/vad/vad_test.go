package vad

import (
	"testing"
	"time"
)

// harness drives a detector with synthetic frames via step, bypassing the
// tick loop so tests are deterministic.
type harness struct {
	d      *Detector
	now    time.Time
	starts int
	ends   int
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{now: time.Unix(1700000000, 0)}
	// The source reports unavailable so the real tick loop never steps;
	// frames come only from feed.
	h.d = New(quietSource{}, cfg, Events{
		OnSpeechStart: func() { h.starts++ },
		OnSpeechEnd:   func() { h.ends++ },
	})
	if err := h.d.Enable(); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}
	t.Cleanup(h.d.Disable)
	return h
}

// feed advances one tick with the given level.
func (h *harness) feed(level float64) {
	h.now = h.now.Add(50 * time.Millisecond)
	h.d.step(level, h.now)
}

func (h *harness) feedN(level float64, n int) {
	for i := 0; i < n; i++ {
		h.feed(level)
	}
}

// quietSource reports the device as unavailable so the tick loop skips
// every frame.
type quietSource struct{}

func (quietSource) Level() (float64, bool) { return 0, false }

func testConfig() Config {
	return Config{
		VolumeThreshold:  0.1,
		TickInterval:     50 * time.Millisecond,
		SpeechRunLength:  3,
		SilenceRunLength: 10,
		SilenceThreshold: 400 * time.Millisecond,
	}
}

func TestSpeechStartDebounce(t *testing.T) {
	h := newHarness(t, testConfig())

	// Two above-threshold frames then one below: run length not met.
	h.feed(0.5)
	h.feed(0.5)
	h.feed(0.01)
	if h.starts != 0 {
		t.Errorf("starts = %d, want 0 (run length not met)", h.starts)
	}
	if h.d.IsSpeaking() {
		t.Error("IsSpeaking() = true, want false")
	}

	// Three consecutive above-threshold frames: exactly one start edge.
	h.feedN(0.5, 3)
	if h.starts != 1 {
		t.Errorf("starts = %d, want 1", h.starts)
	}
	if !h.d.IsSpeaking() {
		t.Error("IsSpeaking() = false, want true")
	}

	// Further speech frames must not re-fire the edge.
	h.feedN(0.5, 20)
	if h.starts != 1 {
		t.Errorf("starts = %d, want 1 after sustained speech", h.starts)
	}
}

func TestSpeechEndHysteresis(t *testing.T) {
	h := newHarness(t, testConfig())
	h.feedN(0.5, 3)
	if h.starts != 1 {
		t.Fatalf("starts = %d, want 1", h.starts)
	}

	// A single below-threshold frame must not end speech.
	h.feed(0.01)
	if h.ends != 0 {
		t.Errorf("ends = %d, want 0 after one silent frame", h.ends)
	}
	if !h.d.IsSpeaking() {
		t.Error("IsSpeaking() = false, want true after one silent frame")
	}

	// A short dip followed by more speech resets the silence run.
	h.feedN(0.5, 2)
	h.feedN(0.01, 9)
	if h.ends != 0 {
		t.Errorf("ends = %d, want 0 (silence run length not met)", h.ends)
	}

	// Sustained silence meets both the frame count and the wall-clock gate.
	// 10 frames at 50ms = 500ms > 400ms SilenceThreshold.
	h.feedN(0.5, 1)
	h.feedN(0.01, 10)
	if h.ends != 1 {
		t.Errorf("ends = %d, want 1 after sustained silence", h.ends)
	}
	if h.d.IsSpeaking() {
		t.Error("IsSpeaking() = true after speech end")
	}
}

func TestSpeechEndRequiresWallClockSilence(t *testing.T) {
	cfg := testConfig()
	// Wall-clock gate far beyond the 10-frame run length (10*50ms = 500ms).
	cfg.SilenceThreshold = 2 * time.Second
	h := newHarness(t, cfg)

	h.feedN(0.5, 3)
	h.feedN(0.01, 10)
	if h.ends != 0 {
		t.Errorf("ends = %d, want 0 (wall-clock gate not met)", h.ends)
	}

	// 40 silent frames at 50ms = 2s since last speech.
	h.feedN(0.01, 30)
	if h.ends != 1 {
		t.Errorf("ends = %d, want 1 once wall clock catches up", h.ends)
	}
}

func TestSpeechCounterResetBySilence(t *testing.T) {
	h := newHarness(t, testConfig())

	// Alternating frames never accumulate a speech run.
	for i := 0; i < 10; i++ {
		h.feed(0.5)
		h.feed(0.01)
	}
	if h.starts != 0 {
		t.Errorf("starts = %d, want 0 for alternating frames", h.starts)
	}
}

func TestDisableResetsStateAndStopsEvents(t *testing.T) {
	h := newHarness(t, testConfig())
	h.feedN(0.5, 3)
	if !h.d.IsSpeaking() {
		t.Fatal("IsSpeaking() = false, want true")
	}

	h.d.Disable()
	if h.d.IsSpeaking() {
		t.Error("IsSpeaking() = true after Disable")
	}
	if h.d.Enabled() {
		t.Error("Enabled() = true after Disable")
	}

	// Frames after disable are no-ops: no edges, no counter growth.
	before := h.starts
	h.feedN(0.5, 10)
	if h.starts != before {
		t.Errorf("starts = %d, want %d after Disable", h.starts, before)
	}
}

func TestReEnableStartsFresh(t *testing.T) {
	h := newHarness(t, testConfig())
	h.feedN(0.5, 2)
	h.d.Disable()
	if err := h.d.Enable(); err != nil {
		t.Fatalf("Enable() error: %v", err)
	}

	// The two frames before the disable must not count toward the run.
	h.feedN(0.5, 2)
	if h.starts != 0 {
		t.Errorf("starts = %d, want 0 (previous run discarded)", h.starts)
	}
	h.feed(0.5)
	if h.starts != 1 {
		t.Errorf("starts = %d, want 1", h.starts)
	}
}

func TestNilSourceFailsClosed(t *testing.T) {
	d := New(nil, DefaultConfig(), Events{})
	if d.Initialized() {
		t.Error("Initialized() = true with nil source")
	}
	if err := d.Enable(); err != ErrNotInitialized {
		t.Errorf("Enable() error = %v, want ErrNotInitialized", err)
	}
	if d.Enabled() {
		t.Error("Enabled() = true after failed Enable")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SpeechRunLength != 3 {
		t.Errorf("SpeechRunLength = %d, want 3", cfg.SpeechRunLength)
	}
	if cfg.SilenceRunLength != 10 {
		t.Errorf("SilenceRunLength = %d, want 10", cfg.SilenceRunLength)
	}
	if cfg.VolumeThreshold <= 0 || cfg.VolumeThreshold >= 1 {
		t.Errorf("VolumeThreshold = %f, want within (0,1)", cfg.VolumeThreshold)
	}
	if cfg.SilenceThreshold <= 0 {
		t.Errorf("SilenceThreshold = %v, want > 0", cfg.SilenceThreshold)
	}
}
