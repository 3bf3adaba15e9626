package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prepvoice/interviewai/internal/eventlog"
	"github.com/prepvoice/interviewai/internal/session"
	"github.com/prepvoice/interviewai/internal/store"
	"github.com/prepvoice/interviewai/internal/tts"
	"github.com/prepvoice/interviewai/internal/vad"
)

type RouterConfig struct {
	// Voice AI providers
	DeepgramAPIKey   string
	OpenAIAPIKey     string
	GoogleTTSAPIKey  string
	ElevenLabsAPIKey string

	// STT settings
	STTLanguage      string // e.g. "en-IN"
	STTModel         string // e.g. "nova-2"
	STTSampleRate    int    // browser linear PCM rate, e.g. 16000
	STTEndpointingMs int    // provider-side silence window before speech_final

	// TTS settings
	TTSVoice        string  // voice table key, e.g. "neural2_male_indian"
	TTSSpeakingRate float64 // 0 keeps the provider default

	// LLM settings
	LLMModel string // e.g. "gpt-4o-mini"

	// Turn settings
	GracePeriodMs int // wait after a stop signal for trailing finals

	// VAD tunables; zero values fall back to detector defaults
	VADVolumeThreshold    float64
	VADTickIntervalMs     int
	VADSpeechRunLength    int
	VADSilenceRunLength   int
	VADSilenceThresholdMs int

	// HTTPClient is shared across provider clients for connection reuse.
	HTTPClient *http.Client
}

type Router struct {
	cfg      RouterConfig
	logger   *log.Logger
	store    *store.Store
	eventLog *eventlog.Logger
	registry *session.Registry
	sessions *profilingSessions
	ttsCli   tts.Client
	mux      *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, s *store.Store, eventLog *eventlog.Logger, registry *session.Registry) http.Handler {
	r := &Router{
		cfg:      cfg,
		logger:   logger,
		store:    s,
		eventLog: eventLog,
		registry: registry,
		sessions: newProfilingSessions(),
		ttsCli: tts.NewGoogleClient(tts.GoogleConfig{
			APIKey:     cfg.GoogleTTSAPIKey,
			HTTPClient: cfg.HTTPClient,
		}, logger),
		mux:      http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health checks
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)
	r.mux.HandleFunc("GET /readyz", r.handleReadyz)

	// Realtime voice session
	r.mux.HandleFunc("GET /ws", r.handleSessionWS)

	// Text-mode profiling (same state machine, no audio)
	r.mux.HandleFunc("POST /api/profiling/start", r.handleProfilingStart)
	r.mux.HandleFunc("POST /api/profiling/message", r.handleProfilingMessage)
	r.mux.HandleFunc("GET /api/profiling/status/{id}", r.handleProfilingStatus)
	r.mux.HandleFunc("GET /api/profiling/sessions", r.handleProfilingSessions)
	r.mux.HandleFunc("GET /api/profiling/health", r.handleProfilingHealth)
	r.mux.HandleFunc("POST /api/profiling/cleanup", r.handleProfilingCleanup)

	// Standalone synthesis
	r.mux.HandleFunc("POST /api/tts", r.handleSynthesize)
	r.mux.HandleFunc("GET /api/tts/voices", r.handleVoices)

	// Session history
	r.mux.HandleFunc("GET /api/sessions", r.handleListSessions)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.handleGetSession)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz reports 503 once draining begins so the load balancer stops
// routing new sessions here while in-flight ones finish.
func (r *Router) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	if r.registry != nil && r.registry.IsDraining() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":          "draining",
			"active_sessions": r.registry.ActiveCount(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (r *Router) handleListSessions(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "persistence not configured"})
		return
	}
	sessions, err := r.store.ListSessions(req.Context(), 50)
	if err != nil {
		captureError(req, err, "sessions: list failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to list sessions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	if r.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "persistence not configured"})
		return
	}
	detail, err := r.store.GetSessionDetail(req.Context(), req.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// vadConfig translates the router's millisecond tunables into the detector's
// config.
func (r *Router) vadConfig() vad.Config {
	return vad.Config{
		VolumeThreshold:  r.cfg.VADVolumeThreshold,
		TickInterval:     time.Duration(r.cfg.VADTickIntervalMs) * time.Millisecond,
		SpeechRunLength:  r.cfg.VADSpeechRunLength,
		SilenceRunLength: r.cfg.VADSilenceRunLength,
		SilenceThreshold: time.Duration(r.cfg.VADSilenceThresholdMs) * time.Millisecond,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
