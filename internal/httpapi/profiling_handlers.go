package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prepvoice/interviewai/internal/profile"
	"github.com/prepvoice/interviewai/internal/profiling"
)

// textSessionTTL bounds how long an inactive text-mode profiling session is
// kept before cleanup removes it.
const textSessionTTL = 2 * time.Hour

type textTurn struct {
	Role    string `json:"role"` // user or coach
	Content string `json:"content"`
}

// textSession is a profiling conversation driven over REST instead of voice.
// It wraps the same state machine the voice orchestrator uses. mu serializes
// handler access; the machine itself is not safe for concurrent use.
type textSession struct {
	mu        sync.Mutex
	id        string
	sess      *profiling.Session
	history   []textTurn
	createdAt time.Time
	updatedAt time.Time
}

type profilingSessions struct {
	mu       sync.Mutex
	sessions map[string]*textSession
}

func newProfilingSessions() *profilingSessions {
	return &profilingSessions{sessions: make(map[string]*textSession)}
}

func (ps *profilingSessions) create() *textSession {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	now := time.Now().UTC()
	ts := &textSession{
		id:        uuid.NewString(),
		sess:      profiling.NewSession(),
		createdAt: now,
		updatedAt: now,
	}
	ts.history = append(ts.history, textTurn{Role: "coach", Content: ts.sess.Greeting()})
	ps.sessions[ts.id] = ts
	return ts
}

func (ps *profilingSessions) get(id string) (*textSession, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ts, ok := ps.sessions[id]
	return ts, ok
}

func (ps *profilingSessions) count() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.sessions)
}

// cleanup removes sessions idle past the TTL and returns how many were
// removed.
func (ps *profilingSessions) cleanup() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	cutoff := time.Now().UTC().Add(-textSessionTTL)
	removed := 0
	for id, ts := range ps.sessions {
		if ts.updatedAt.Before(cutoff) {
			delete(ps.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Router) handleProfilingStart(w http.ResponseWriter, req *http.Request) {
	ts := r.sessions.create()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": ts.id,
		"message":    ts.sess.Greeting(),
		"state":      ts.sess.State().String(),
	})
}

func (r *Router) handleProfilingMessage(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.SessionID == "" || strings.TrimSpace(body.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "session_id and message are required",
		})
		return
	}

	ts, ok := r.sessions.get(body.SessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "session not found",
		})
		return
	}

	ts.mu.Lock()
	res := ts.sess.ProcessResponse(body.Message)
	ts.history = append(ts.history,
		textTurn{Role: "user", Content: strings.TrimSpace(body.Message)},
		textTurn{Role: "coach", Content: res.Prompt},
	)
	ts.updatedAt = time.Now().UTC()
	state := ts.sess.State().String()
	prof := ts.sess.Profile()
	ts.mu.Unlock()

	resp := map[string]any{
		"success":   true,
		"message":   res.Prompt,
		"state":     state,
		"completed": res.Completed,
	}
	if res.Completed {
		resp["profile"] = prof
	}
	if res.Restarted {
		resp["restarted"] = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleProfilingStatus(w http.ResponseWriter, req *http.Request) {
	ts, ok := r.sessions.get(req.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   "session not found",
		})
		return
	}

	ts.mu.Lock()
	var prof *profile.Profile
	if ts.sess.Completed() {
		p := ts.sess.Profile()
		prof = &p
	}
	resp := map[string]any{
		"success":       true,
		"session_id":    ts.id,
		"state":         ts.sess.State().String(),
		"completed":     ts.sess.Completed(),
		"profile":       prof,
		"created_at":    ts.createdAt.Format(time.RFC3339),
		"message_count": len(ts.history),
		"history":       append([]textTurn(nil), ts.history...),
	}
	ts.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handleProfilingSessions(w http.ResponseWriter, _ *http.Request) {
	r.sessions.mu.Lock()
	infos := make([]map[string]any, 0, len(r.sessions.sessions))
	for id, ts := range r.sessions.sessions {
		ts.mu.Lock()
		infos = append(infos, map[string]any{
			"session_id":    id,
			"created_at":    ts.createdAt.Format(time.RFC3339),
			"completed":     ts.sess.Completed(),
			"state":         ts.sess.State().String(),
			"message_count": len(ts.history),
		})
		ts.mu.Unlock()
	}
	r.sessions.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"total_sessions": len(infos),
		"sessions":       infos,
	})
}

func (r *Router) handleProfilingHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"status":          "healthy",
		"active_sessions": r.sessions.count(),
	})
}

func (r *Router) handleProfilingCleanup(w http.ResponseWriter, _ *http.Request) {
	cleaned := r.sessions.cleanup()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"cleaned_sessions":   cleaned,
		"remaining_sessions": r.sessions.count(),
	})
}
