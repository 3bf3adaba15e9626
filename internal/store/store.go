// Package store persists voice sessions, their utterances and the collected
// profiles in Postgres.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepvoice/interviewai/internal/costs"
	"github.com/prepvoice/interviewai/internal/profile"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Session represents one voice coaching session.
type Session struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"` // active, completed, abandoned
	Mode      string     `json:"mode"`   // auto, manual
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	EndedBy   *string    `json:"ended_by,omitempty"` // user, server, timeout
}

// Utterance is one spoken turn within a session.
type Utterance struct {
	Speaker       string     `json:"speaker"` // user, coach
	Text          string     `json:"text"`
	Sequence      int        `json:"sequence"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	STTConfidence *float64   `json:"stt_confidence,omitempty"`
	Interrupted   bool       `json:"interrupted"`
}

// SessionDetail is a session with its profile and full transcript.
type SessionDetail struct {
	Session
	Profile    *profile.Profile `json:"profile,omitempty"`
	Utterances []Utterance      `json:"utterances"`
}

// CreateSession records a newly opened session.
func (s *Store) CreateSession(ctx context.Context, id, mode string, startedAt time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, status, mode, started_at)
		VALUES ($1, 'active', $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, id, mode, startedAt)
	return err
}

// EndSession closes a session with a terminal status.
func (s *Store) EndSession(ctx context.Context, id, status, endedBy string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET status = $1,
		    ended_at = COALESCE(ended_at, $2),
		    ended_by = $3
		WHERE id = $4
	`, status, at, endedBy, id)
	return err
}

// UpdateSessionMode records a mode switch (auto/manual) mid-session.
func (s *Store) UpdateSessionMode(ctx context.Context, id, mode string) error {
	_, err := s.db.Exec(ctx, `UPDATE sessions SET mode = $1 WHERE id = $2`, mode, id)
	return err
}

// InsertUtterance appends one turn to the session transcript.
func (s *Store) InsertUtterance(ctx context.Context, sessionID string, u Utterance) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO session_utterances (id, session_id, speaker, text, sequence, started_at, ended_at, stt_confidence, interrupted)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
	`, sessionID, u.Speaker, u.Text, u.Sequence, u.StartedAt, u.EndedAt, u.STTConfidence, u.Interrupted)
	return err
}

// SaveProfile upserts the profiling outcome for a session.
func (s *Store) SaveProfile(ctx context.Context, sessionID string, p profile.Profile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO session_profiles (session_id, role, experience_level, target_role, target_company, education_details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (session_id) DO UPDATE SET
			role = EXCLUDED.role,
			experience_level = EXCLUDED.experience_level,
			target_role = EXCLUDED.target_role,
			target_company = EXCLUDED.target_company,
			education_details = EXCLUDED.education_details
	`, sessionID, p.Role, p.ExperienceLevel, p.TargetRole, p.TargetCompany, p.EducationDetails)
	return err
}

// UpdateSessionCosts stores the calculated usage costs for a session.
func (s *Store) UpdateSessionCosts(ctx context.Context, sessionID string, c costs.SessionCosts) error {
	_, err := s.db.Exec(ctx, `
		UPDATE sessions
		SET stt_cost_cents = $1,
		    llm_cost_cents = $2,
		    tts_cost_cents = $3,
		    total_cost_cents = $4
		WHERE id = $5
	`, c.STTCostCents, c.LLMCostCents, c.TTSCostCents, c.TotalCostCents, sessionID)
	return err
}

// ListSessions returns the most recent sessions.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, status, mode, started_at, ended_at, ended_by
		FROM sessions
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Status, &sess.Mode, &sess.StartedAt, &sess.EndedAt, &sess.EndedBy); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// GetSessionDetail returns a session with its profile and transcript.
func (s *Store) GetSessionDetail(ctx context.Context, id string) (SessionDetail, error) {
	var out SessionDetail
	err := s.db.QueryRow(ctx, `
		SELECT id, status, mode, started_at, ended_at, ended_by
		FROM sessions
		WHERE id = $1
	`, id).Scan(&out.ID, &out.Status, &out.Mode, &out.StartedAt, &out.EndedAt, &out.EndedBy)
	if err != nil {
		return SessionDetail{}, err
	}

	// Profile (optional)
	{
		var p profile.Profile
		err := s.db.QueryRow(ctx, `
			SELECT role, experience_level, target_role, target_company, education_details
			FROM session_profiles
			WHERE session_id = $1
		`, id).Scan(&p.Role, &p.ExperienceLevel, &p.TargetRole, &p.TargetCompany, &p.EducationDetails)
		if err == nil {
			out.Profile = &p
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT speaker, text, sequence, started_at, ended_at, stt_confidence, interrupted
		FROM session_utterances
		WHERE session_id = $1
		ORDER BY sequence ASC
	`, id)
	if err != nil {
		return out, nil
	}
	defer rows.Close()

	for rows.Next() {
		var u Utterance
		if err := rows.Scan(&u.Speaker, &u.Text, &u.Sequence, &u.StartedAt, &u.EndedAt, &u.STTConfidence, &u.Interrupted); err != nil {
			return out, nil
		}
		out.Utterances = append(out.Utterances, u)
	}

	return out, nil
}
