package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepvoice/interviewai/internal/audio"
	"github.com/prepvoice/interviewai/internal/interview"
	"github.com/prepvoice/interviewai/internal/profile"
	"github.com/prepvoice/interviewai/internal/session"
	"github.com/prepvoice/interviewai/internal/stt"
	"github.com/prepvoice/interviewai/internal/tts"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientEvent is the closed union of control messages a client may send over
// the session websocket. Audio normally arrives as binary frames; the base64
// payload form exists for clients that cannot send binary.
type clientEvent struct {
	Type    string `json:"type"` // audio, start_turn, stop_turn, playback_done, playback_error, set_mode, end_session
	Payload string `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// serverEvent is the union of messages the orchestrator pushes to the client.
type serverEvent struct {
	Type    string           `json:"type"` // transcript, prompt, audio, state, speech_start, speech_end, profile, error
	Text    string           `json:"text,omitempty"`
	IsFinal *bool            `json:"is_final,omitempty"`
	Payload string           `json:"payload,omitempty"` // base64 MP3
	State   string           `json:"state,omitempty"`
	Profile *profile.Profile `json:"profile,omitempty"`
	Message string           `json:"message,omitempty"`
}

// wsConn adapts a websocket connection to the orchestrator's outbound
// interface. gorilla permits one concurrent writer, so every send holds the
// write mutex.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(ev serverEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	_ = c.conn.WriteJSON(ev)
}

func (c *wsConn) SendTranscript(text string, isFinal bool) {
	c.send(serverEvent{Type: "transcript", Text: text, IsFinal: &isFinal})
}

func (c *wsConn) SendPrompt(text string) {
	c.send(serverEvent{Type: "prompt", Text: text})
}

func (c *wsConn) SendAudio(audioBytes []byte) {
	c.send(serverEvent{Type: "audio", Payload: base64.StdEncoding.EncodeToString(audioBytes)})
}

func (c *wsConn) SendState(state string) {
	c.send(serverEvent{Type: "state", State: state})
}

func (c *wsConn) SendSpeechStart() { c.send(serverEvent{Type: "speech_start"}) }
func (c *wsConn) SendSpeechEnd()   { c.send(serverEvent{Type: "speech_end"}) }

func (c *wsConn) SendProfile(p profile.Profile) {
	c.send(serverEvent{Type: "profile", Profile: &p})
}

func (c *wsConn) SendError(msg string) {
	c.send(serverEvent{Type: "error", Message: msg})
}

func (r *Router) handleSessionWS(w http.ResponseWriter, req *http.Request) {
	if r.cfg.DeepgramAPIKey == "" || r.cfg.OpenAIAPIKey == "" || r.cfg.GoogleTTSAPIKey == "" {
		r.logger.Printf("session_ws: missing API keys")
		captureError(req, fmt.Errorf("voice session not configured: missing API keys"), "session_ws: configuration error")
		http.Error(w, "voice session not configured", http.StatusServiceUnavailable)
		return
	}

	if r.registry != nil && !r.registry.Add() {
		http.Error(w, "server draining", http.StatusServiceUnavailable)
		return
	}
	if r.registry != nil {
		defer r.registry.Done()
	}

	mode := session.ModeAuto
	if req.URL.Query().Get("mode") == string(session.ModeManual) {
		mode = session.ModeManual
	}
	voice := req.URL.Query().Get("voice")
	if voice == "" {
		voice = r.cfg.TTSVoice
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("session_ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sampleRate := r.cfg.STTSampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	sttClient, err := stt.NewDeepgramClient(req.Context(), stt.DeepgramConfig{
		APIKey:         r.cfg.DeepgramAPIKey,
		Language:       r.cfg.STTLanguage,
		Model:          r.cfg.STTModel,
		SampleRate:     sampleRate,
		Encoding:       "linear16",
		Channels:       1,
		InterimResults: true,
		Endpointing:    r.cfg.STTEndpointingMs,
	}, r.logger)
	if err != nil {
		r.logger.Printf("session_ws: stt connect failed: %v", err)
		captureError(req, err, "session_ws: stt connect failed")
		_ = conn.WriteJSON(serverEvent{Type: "error", Message: "Speech recognition is unavailable right now."})
		return
	}

	var fallback tts.Client
	if r.cfg.ElevenLabsAPIKey != "" {
		fallback = tts.NewElevenLabsClient(tts.ElevenLabsConfig{
			APIKey:     r.cfg.ElevenLabsAPIKey,
			Stability:  -1,
			Similarity: -1,
			HTTPClient: r.cfg.HTTPClient,
		})
	}

	out := &wsConn{conn: conn}
	orch := session.New(session.Config{
		ID:           uuid.NewString(),
		Mode:         mode,
		GracePeriod:  time.Duration(r.cfg.GracePeriodMs) * time.Millisecond,
		SampleRate:   sampleRate,
		Voice:        voice,
		SpeakingRate: r.cfg.TTSSpeakingRate,
	}, session.Deps{
		Out:         out,
		STT:         sttClient,
		TTS:         r.ttsCli,
		FallbackTTS: fallback,
		Responder: interview.NewOpenAIClient(interview.OpenAIConfig{
			APIKey:     r.cfg.OpenAIAPIKey,
			Model:      r.cfg.LLMModel,
			HTTPClient: r.cfg.HTTPClient,
		}),
		Analyzer:  audio.NewAnalyzer(sampleRate),
		VADConfig: r.vadConfig(),
		Store:     r.store,
		Events:    r.eventLog,
		Logger:    r.logger,
	})
	orch.Start()

	endedBy := r.readLoop(req.Context(), conn, orch)
	orch.SetConnected(false)
	orch.Close(endedBy)
}

// readLoop pumps client frames into the orchestrator until the connection
// drops or the client ends the session. Returns who ended it.
func (r *Router) readLoop(ctx context.Context, conn *websocket.Conn, orch *session.Orchestrator) string {
	for {
		select {
		case <-ctx.Done():
			return "server"
		default:
		}

		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return "client"
			}
			r.logger.Printf("session_ws: read error: %v", err)
			return "disconnect"
		}

		if msgType == websocket.BinaryMessage {
			orch.ProcessAudio(msg)
			continue
		}

		var ev clientEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			r.logger.Printf("session_ws: malformed event: %v", err)
			continue
		}

		switch ev.Type {
		case "audio":
			chunk, err := base64.StdEncoding.DecodeString(ev.Payload)
			if err != nil {
				r.logger.Printf("session_ws: bad audio payload: %v", err)
				continue
			}
			orch.ProcessAudio(chunk)

		case "start_turn":
			orch.StartTurn()

		case "stop_turn":
			orch.StopTurn()

		case "playback_done":
			orch.PlaybackDone()

		case "playback_error":
			orch.PlaybackError(fmt.Errorf("client playback: %s", ev.Message))

		case "set_mode":
			switch session.Mode(ev.Mode) {
			case session.ModeAuto, session.ModeManual:
				orch.SetMode(session.Mode(ev.Mode))
			default:
				r.logger.Printf("session_ws: unknown mode %q", ev.Mode)
			}

		case "end_session":
			return "client"

		default:
			r.logger.Printf("session_ws: unknown event type %q", ev.Type)
		}
	}
}

var _ session.Outbound = (*wsConn)(nil)
