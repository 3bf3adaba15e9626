package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prepvoice/interviewai/internal/audio"
	"github.com/prepvoice/interviewai/internal/costs"
	"github.com/prepvoice/interviewai/internal/eventlog"
	"github.com/prepvoice/interviewai/internal/interview"
	"github.com/prepvoice/interviewai/internal/profile"
	"github.com/prepvoice/interviewai/internal/profiling"
	"github.com/prepvoice/interviewai/internal/store"
	"github.com/prepvoice/interviewai/internal/stt"
	"github.com/prepvoice/interviewai/internal/tts"
	"github.com/prepvoice/interviewai/internal/vad"
)

// TurnState identifies where a session is in the turn cycle.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnRecording
	TurnAwaitingFinal
	TurnProcessing
	TurnSpeaking
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnRecording:
		return "recording"
	case TurnAwaitingFinal:
		return "awaiting_final"
	case TurnProcessing:
		return "processing"
	case TurnSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// Mode selects how turns begin and end.
type Mode string

const (
	ModeAuto   Mode = "auto"   // VAD drives speech start/end
	ModeManual Mode = "manual" // client start_turn/stop_turn events drive it
)

// Outbound is the client-facing side of the realtime transport. Calls come
// from the orchestrator's run goroutine and must not block for long.
type Outbound interface {
	SendTranscript(text string, isFinal bool)
	SendPrompt(text string)
	SendAudio(audio []byte)
	SendState(state string)
	SendSpeechStart()
	SendSpeechEnd()
	SendProfile(p profile.Profile)
	SendError(msg string)
}

// Config holds per-session orchestrator settings.
type Config struct {
	ID           string
	Mode         Mode
	GracePeriod  time.Duration // wait after a stop signal for trailing finals
	SampleRate   int           // inbound PCM sample rate, for STT seconds accounting
	Voice        string        // TTS voice table key
	SpeakingRate float64
}

// Deps bundles the collaborators the orchestrator drives. Store and Events
// may be nil (no persistence); FallbackTTS may be nil (no fallback path).
type Deps struct {
	Out         Outbound
	STT         stt.Client
	TTS         tts.Client
	FallbackTTS tts.Client
	Responder   interview.Responder
	Analyzer    *audio.Analyzer
	VADConfig   vad.Config
	Store       *store.Store
	Events      *eventlog.Logger
	Logger      *log.Logger
}

type eventKind int

const (
	evSpeechStart eventKind = iota
	evSpeechEnd
	evStartTurn
	evStopTurn
	evTranscript
	evGraceElapsed
	evReply
	evReplyError
	evPlaybackDone
	evPlaybackError
	evSetMode
	evTransport
)

// event is the closed union funneled into the run goroutine. All turn-state
// transitions happen there; nothing else mutates session state.
type event struct {
	kind        eventKind
	text        string
	confidence  float64
	isFinal     bool
	speechFinal bool
	err         error
	mode        Mode
	connected   bool
}

// Orchestrator runs the turn cycle for one voice session. Public methods are
// safe to call from transport goroutines; they post events into the funnel.
type Orchestrator struct {
	cfg      Config
	out      Outbound
	sttCli   stt.Client
	ttsCli   tts.Client
	fallback tts.Client
	resp     interview.Responder
	analyzer *audio.Analyzer
	detector *vad.Detector
	st       *store.Store
	events   *eventlog.Logger
	logger   *log.Logger

	inbox chan event
	quit  chan struct{}
	done  chan struct{}

	closeOnce sync.Once

	// Updated from transport and synthesis goroutines.
	sttBytes      atomic.Int64
	ttsChars      atomic.Int64
	fallbackChars atomic.Int64

	// Owned by the run goroutine.
	turn         TurnState
	mode         Mode
	connected    bool
	prof         *profiling.Session
	finals       []string
	lastInterim  string
	lastConf     float64
	turnStarted  time.Time
	graceTimer   *time.Timer
	history      []interview.Message
	utteranceSeq int
}

var errNoResponder = errors.New("no interview responder configured")

// New creates an orchestrator. Call Start to begin the session and Close to
// tear it down.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = 500 * time.Millisecond
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAuto
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	o := &Orchestrator{
		cfg:       cfg,
		out:       deps.Out,
		sttCli:    deps.STT,
		ttsCli:    deps.TTS,
		fallback:  deps.FallbackTTS,
		resp:      deps.Responder,
		analyzer:  deps.Analyzer,
		st:        deps.Store,
		events:    deps.Events,
		logger:    logger,
		inbox:     make(chan event, 64),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		mode:      cfg.Mode,
		connected: true,
		prof:      profiling.NewSession(),
	}

	// A nil analyzer must yield a fail-closed detector, not an interface
	// wrapping a nil pointer.
	var level vad.LevelSource
	if deps.Analyzer != nil {
		level = deps.Analyzer
	}

	// VAD callbacks run on the detector tick goroutine and must never block,
	// or Disable from the run goroutine would deadlock against a full inbox.
	o.detector = vad.New(level, deps.VADConfig, vad.Events{
		OnSpeechStart: func() { o.postAsync(event{kind: evSpeechStart}) },
		OnSpeechEnd:   func() { o.postAsync(event{kind: evSpeechEnd}) },
	})

	return o
}

// Start launches the run goroutine, records the session and speaks the
// greeting.
func (o *Orchestrator) Start() {
	if o.st != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = o.st.CreateSession(ctx, o.cfg.ID, string(o.mode), time.Now().UTC())
		cancel()
	}
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventSessionStarted, map[string]any{"mode": string(o.mode)})
	}

	go o.run()
	go o.pumpTranscripts()
}

// ProcessAudio consumes one inbound PCM chunk from the transport read loop.
// The single captured stream fans out here: energy analysis for the VAD and
// the STT forward path both read the same chunk.
func (o *Orchestrator) ProcessAudio(chunk []byte) {
	if o.analyzer != nil {
		o.analyzer.Process(chunk)
	}
	if o.sttCli != nil {
		if err := o.sttCli.StreamAudio(context.Background(), chunk); err == nil {
			o.sttBytes.Add(int64(len(chunk)))
		}
	}
}

// StartTurn begins recording (manual affordance; also honored in auto mode).
func (o *Orchestrator) StartTurn() { o.post(event{kind: evStartTurn}) }

// StopTurn ends recording and finalizes the utterance.
func (o *Orchestrator) StopTurn() { o.post(event{kind: evStopTurn}) }

// PlaybackDone signals that the client finished playing the coach's audio.
func (o *Orchestrator) PlaybackDone() { o.post(event{kind: evPlaybackDone}) }

// PlaybackError signals that client-side playback failed.
func (o *Orchestrator) PlaybackError(err error) {
	o.post(event{kind: evPlaybackError, err: err})
}

// SetMode switches between auto and manual turn-taking.
func (o *Orchestrator) SetMode(m Mode) { o.post(event{kind: evSetMode, mode: m}) }

// SetConnected reflects transport connectivity. Recording cannot start while
// disconnected; a disconnect mid-recording finalizes with whatever transcript
// already arrived.
func (o *Orchestrator) SetConnected(connected bool) {
	o.post(event{kind: evTransport, connected: connected})
}

// Close tears the session down: cancels timers, releases the audio stream,
// closes the STT session and persists the outcome. It blocks until the run
// goroutine has exited.
func (o *Orchestrator) Close(endedBy string) {
	o.closeOnce.Do(func() {
		close(o.quit)
		<-o.done

		if o.sttCli != nil {
			_ = o.sttCli.Close()
		}

		o.finishSession(endedBy)
	})
}

func (o *Orchestrator) post(ev event) {
	select {
	case o.inbox <- ev:
	case <-o.quit:
	}
}

// postAsync drops the event if the inbox is full. Only used for VAD edges,
// which are re-derivable from subsequent frames.
func (o *Orchestrator) postAsync(ev event) {
	select {
	case o.inbox <- ev:
	default:
	}
}

// pumpTranscripts forwards STT results and errors into the event funnel.
func (o *Orchestrator) pumpTranscripts() {
	if o.sttCli == nil {
		return
	}
	for {
		select {
		case <-o.quit:
			return
		case err, ok := <-o.sttCli.Errors():
			if !ok {
				return
			}
			o.logger.Printf("session %s: stt error: %v", o.cfg.ID, err)
		case result, ok := <-o.sttCli.Results():
			if !ok {
				return
			}
			o.post(event{
				kind:        evTranscript,
				text:        result.Text,
				confidence:  result.Confidence,
				isFinal:     result.IsFinal,
				speechFinal: result.SpeechFinal,
			})
		}
	}
}

func (o *Orchestrator) run() {
	defer close(o.done)
	defer o.stopGraceTimer()
	defer o.detector.Disable()
	defer func() {
		if o.analyzer != nil {
			o.analyzer.Close()
		}
	}()

	o.speakGreeting()

	for {
		select {
		case <-o.quit:
			// Drain whatever the transport posted before shutdown so a
			// disconnect mid-recording still lands its utterance.
			for {
				select {
				case ev := <-o.inbox:
					o.handle(ev)
				default:
					return
				}
			}
		case ev := <-o.inbox:
			o.handle(ev)
		}
	}
}

func (o *Orchestrator) handle(ev event) {
	switch ev.kind {
	case evSpeechStart:
		if o.mode != ModeAuto {
			return
		}
		o.out.SendSpeechStart()
		if o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventVADSpeechStarted, nil)
		}
		o.beginTurn()

	case evStartTurn:
		o.beginTurn()

	case evSpeechEnd:
		if o.mode != ModeAuto {
			return
		}
		o.out.SendSpeechEnd()
		if o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventVADSpeechEnded, nil)
		}
		o.endTurn()

	case evStopTurn:
		o.endTurn()

	case evTranscript:
		o.handleTranscript(ev)

	case evGraceElapsed:
		if o.turn != TurnAwaitingFinal {
			return
		}
		o.finalizeTurn("grace")

	case evReply:
		if o.turn != TurnProcessing {
			return
		}
		o.speak(ev.text)

	case evReplyError:
		if o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventLLMError, map[string]any{"error": ev.err.Error()})
		}
		o.logger.Printf("session %s: reply generation failed: %v", o.cfg.ID, ev.err)
		o.out.SendError("I couldn't come up with a response. Please try again.")
		o.toIdle()

	case evPlaybackDone:
		if o.turn != TurnSpeaking {
			return
		}
		o.toIdle()

	case evPlaybackError:
		if ev.err != nil {
			o.logger.Printf("session %s: playback failed: %v", o.cfg.ID, ev.err)
			o.out.SendError("Audio playback failed.")
		}
		if o.turn == TurnSpeaking {
			o.toIdle()
		}

	case evSetMode:
		if ev.mode == o.mode {
			return
		}
		o.mode = ev.mode
		if o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventModeChanged, map[string]any{"mode": string(ev.mode)})
		}
		if o.st != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = o.st.UpdateSessionMode(ctx, o.cfg.ID, string(ev.mode))
			cancel()
		}
		if o.mode == ModeAuto && o.turn == TurnIdle {
			o.armVAD()
		} else if o.mode == ModeManual {
			o.detector.Disable()
		}

	case evTransport:
		o.connected = ev.connected
		if !ev.connected && o.turn == TurnRecording {
			// Don't discard what the user already said; finalize with the
			// transcript that has arrived. No grace wait, the transport that
			// would deliver more finals is gone.
			o.stopGraceTimer()
			o.turn = TurnAwaitingFinal
			o.finalizeTurn("disconnect")
		}
	}
}

// beginTurn starts recording, gated on idle state, transport connectivity
// and the coach not currently speaking.
func (o *Orchestrator) beginTurn() {
	if o.turn != TurnIdle || !o.connected {
		return
	}
	o.finals = o.finals[:0]
	o.lastInterim = ""
	o.lastConf = 0
	o.turnStarted = time.Now().UTC()
	o.setTurn(TurnRecording)
}

func (o *Orchestrator) endTurn() {
	if o.turn != TurnRecording {
		return
	}
	o.setTurn(TurnAwaitingFinal)
	o.graceTimer = time.AfterFunc(o.cfg.GracePeriod, func() {
		o.post(event{kind: evGraceElapsed})
	})
}

func (o *Orchestrator) handleTranscript(ev event) {
	if o.turn != TurnRecording && o.turn != TurnAwaitingFinal {
		return
	}
	if ev.text != "" {
		if ev.isFinal {
			o.finals = append(o.finals, ev.text)
			o.lastConf = ev.confidence
		} else {
			// Interims are replaced wholesale; only the latest matters.
			o.lastInterim = ev.text
		}
		o.out.SendTranscript(ev.text, ev.isFinal)
	}
	if ev.isFinal && o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventSTTResult, map[string]any{
			"text":       ev.text,
			"confidence": ev.confidence,
		})
	}

	// The provider marking the utterance complete during the grace window
	// means no more finals are coming; don't wait out the rest of it.
	if ev.speechFinal && o.turn == TurnAwaitingFinal {
		o.finalizeTurn("speech_final")
	}
}

// finalizeTurn assembles the utterance and hands it to the profiling machine
// or, once profiling is complete, to the interview responder.
func (o *Orchestrator) finalizeTurn(trigger string) {
	o.stopGraceTimer()

	text := strings.TrimSpace(strings.Join(o.finals, " "))
	if text == "" {
		// Degraded but valid: no final arrived in time, use the last interim.
		text = strings.TrimSpace(o.lastInterim)
	}
	if text == "" {
		o.logger.Printf("session %s: empty transcript after grace period", o.cfg.ID)
		o.toIdle()
		return
	}

	o.setTurn(TurnProcessing)
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventTurnFinalized, map[string]any{
			"transcript": text,
			"trigger":    trigger,
		})
	}

	o.recordUtterance("user", text, &o.turnStarted, o.lastConf)

	if !o.prof.Completed() {
		res := o.prof.ProcessResponse(text)
		if res.Completed {
			p := o.prof.Profile()
			o.out.SendProfile(p)
			if o.st != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = o.st.SaveProfile(ctx, o.cfg.ID, p)
				cancel()
			}
			if o.events != nil {
				o.events.LogAsync(o.cfg.ID, eventlog.EventProfilingCompleted, map[string]any{
					"target_role":    p.TargetRole,
					"target_company": p.TargetCompany,
				})
			}
			// Seed the interview history so the model knows how the
			// conversation opened.
			o.history = append(o.history, interview.Message{Role: "assistant", Content: res.Prompt})
		}
		if res.Restarted && o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventProfilingRestarted, nil)
		}
		o.speak(res.Prompt)
		return
	}

	o.history = append(o.history, interview.Message{Role: "user", Content: text})
	o.generateReply()
}

// generateReply asks the interview responder for the next coach reply off
// the run goroutine and posts the outcome back into the funnel.
func (o *Orchestrator) generateReply() {
	if o.resp == nil {
		o.post(event{kind: evReplyError, err: errNoResponder})
		return
	}
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventLLMStarted, nil)
	}
	prof := o.prof.Profile()
	history := make([]interview.Message, len(o.history))
	copy(history, o.history)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		reply, err := o.resp.Respond(ctx, prof, history)
		if err != nil {
			o.post(event{kind: evReplyError, err: err})
			return
		}
		o.post(event{kind: evReply, text: reply})
	}()
}

// speak transitions to SPEAKING and synthesizes the prompt off the run
// goroutine. The VAD is disabled for the whole speaking phase so the
// detector never hears the coach's own voice.
func (o *Orchestrator) speak(text string) {
	o.detector.Disable()
	o.setTurn(TurnSpeaking)
	o.out.SendPrompt(text)

	if o.prof.Completed() {
		if len(o.history) == 0 || o.history[len(o.history)-1].Content != text {
			o.history = append(o.history, interview.Message{Role: "assistant", Content: text})
		}
	}
	now := time.Now().UTC()
	o.recordUtterance("coach", text, &now, 0)
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventTTSStarted, map[string]any{"chars": len(text)})
	}

	go o.synthesize(text)
}

// synthesize renders the prompt, falling back to the secondary provider on
// failure. Whatever happens, the orchestrator never stays stuck in SPEAKING:
// either audio goes out and the client reports playback completion, or a
// playback error event clears the state.
func (o *Orchestrator) synthesize(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	req := tts.Request{Text: text, Voice: o.cfg.Voice, SpeakingRate: o.cfg.SpeakingRate}

	audioBytes, err := o.ttsCli.Synthesize(ctx, req)
	if err != nil {
		o.logger.Printf("session %s: tts failed, trying fallback: %v", o.cfg.ID, err)
		if o.events != nil {
			o.events.LogAsync(o.cfg.ID, eventlog.EventTTSFallback, map[string]any{
				"primary_error": err.Error(),
				"chars":         len(text),
			})
		}
		if o.fallback == nil {
			o.post(event{kind: evPlaybackError, err: err})
			return
		}
		audioBytes, err = o.fallback.Synthesize(ctx, req)
		if err != nil {
			if o.events != nil {
				o.events.LogAsync(o.cfg.ID, eventlog.EventTTSError, map[string]any{"error": err.Error()})
			}
			o.post(event{kind: evPlaybackError, err: err})
			return
		}
		o.fallbackChars.Add(int64(len(text)))
	} else {
		o.ttsChars.Add(int64(len(text)))
	}

	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventTTSCompleted, map[string]any{"bytes": len(audioBytes)})
	}
	o.out.SendAudio(audioBytes)
}

func (o *Orchestrator) speakGreeting() {
	greeting := o.prof.Greeting()
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventPromptSpoken, map[string]any{"greeting": true})
	}
	o.speak(greeting)
}

// toIdle returns the turn cycle to IDLE and, in auto mode, re-arms the VAD.
// Re-arming only here is what keeps the detector from hearing the coach.
func (o *Orchestrator) toIdle() {
	o.setTurn(TurnIdle)
	if o.mode == ModeAuto {
		o.armVAD()
	}
}

func (o *Orchestrator) armVAD() {
	if !o.detector.Initialized() {
		return
	}
	if err := o.detector.Enable(); err != nil {
		o.logger.Printf("session %s: vad enable failed: %v", o.cfg.ID, err)
		o.out.SendError("Microphone analysis unavailable; use push-to-talk.")
	}
}

func (o *Orchestrator) setTurn(s TurnState) {
	o.turn = s
	o.out.SendState(s.String())
}

func (o *Orchestrator) stopGraceTimer() {
	if o.graceTimer != nil {
		o.graceTimer.Stop()
		o.graceTimer = nil
	}
}

func (o *Orchestrator) recordUtterance(speaker, text string, startedAt *time.Time, confidence float64) {
	o.utteranceSeq++
	if o.st == nil {
		return
	}
	now := time.Now().UTC()
	u := store.Utterance{
		Speaker:   speaker,
		Text:      text,
		Sequence:  o.utteranceSeq,
		StartedAt: startedAt,
		EndedAt:   &now,
	}
	if speaker == "user" && confidence > 0 {
		u.STTConfidence = &confidence
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.st.InsertUtterance(ctx, o.cfg.ID, u)
}

// finishSession persists the terminal state and usage costs.
func (o *Orchestrator) finishSession(endedBy string) {
	metrics := costs.SessionMetrics{
		// 16-bit mono PCM: two bytes per sample.
		STTDurationSeconds: int(o.sttBytes.Load() / int64(2*o.cfg.SampleRate)),
		TTSCharacters:      int(o.ttsChars.Load()),
		FallbackCharacters: int(o.fallbackChars.Load()),
	}

	status := "abandoned"
	if o.prof.Completed() {
		status = "completed"
	}

	if o.st != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.st.EndSession(ctx, o.cfg.ID, status, endedBy, time.Now().UTC())
		_ = o.st.UpdateSessionCosts(ctx, o.cfg.ID, costs.CalculateSessionCosts(metrics))
	}
	if o.events != nil {
		o.events.LogAsync(o.cfg.ID, eventlog.EventSessionEnded, map[string]any{
			"ended_by": endedBy,
			"status":   status,
		})
	}
	o.logger.Printf("session %s: ended (%s, by %s)", o.cfg.ID, status, endedBy)
}
