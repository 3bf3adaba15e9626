// Package profiling implements the scripted onboarding conversation that
// gathers a user's role, experience, target role and target company before
// interview practice begins.
package profiling

import (
	"strings"

	"github.com/prepvoice/interviewai/internal/profile"
)

// State identifies the current profiling question.
type State int

// States advance monotonically in declaration order, with one exception:
// a rejected confirmation loops in StateConfirmation, and after
// maxRejections failed confirmations the machine restarts at
// StateCurrentRole with a cleared profile.
const (
	StateWelcome State = iota
	StateCurrentRole
	StateExperienceLevel
	StateTargetRole
	StateTargetCompany
	StateConfirmation
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateWelcome:
		return "welcome"
	case StateCurrentRole:
		return "current_role"
	case StateExperienceLevel:
		return "experience_level"
	case StateTargetRole:
		return "target_role"
	case StateTargetCompany:
		return "target_company"
	case StateConfirmation:
		return "confirmation"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// maxRejections bounds the confirmation retry loop. After this many
// rejections the machine clears the profile and re-asks from the top instead
// of looping forever.
const maxRejections = 3

// deferralPhrases in the welcome state postpone profiling.
var deferralPhrases = []string{"not ready", "maybe later", "not now", "not yet"}

// affirmationPhrases in the confirmation state accept the summarized profile.
var affirmationPhrases = []string{"yes", "correct", "right", "yeah", "yep", "perfect"}

// Session is a single profiling conversation. It is not safe for concurrent
// use; the orchestrator funnels all utterances through one goroutine.
type Session struct {
	state      State
	prof       profile.Profile
	completed  bool
	rejections int
}

// NewSession returns a session in the welcome state with an empty profile.
func NewSession() *Session {
	return &Session{state: StateWelcome}
}

// State returns the current profiling state.
func (s *Session) State() State { return s.state }

// Profile returns a copy of the profile collected so far.
func (s *Session) Profile() profile.Profile { return s.prof }

// Completed reports whether the user confirmed the profile.
func (s *Session) Completed() bool { return s.completed }

// Greeting returns the prompt that opens the conversation.
func (s *Session) Greeting() string { return promptWelcome }

// Reset returns the session to the welcome state and clears the profile.
func (s *Session) Reset() {
	*s = Session{state: StateWelcome}
}

// Result is the outcome of processing one utterance.
type Result struct {
	Prompt    string // what to say next; always corresponds to the new state, or a clarification for the same state
	Advanced  bool   // whether the state moved forward
	Completed bool   // profiling finished on this turn
	Restarted bool   // confirmation retries exhausted; profile cleared, re-collecting
}

// ProcessResponse consumes one non-empty user utterance and advances the
// machine at most one state. Empty utterances are rejected upstream by the
// caller and never reach this method.
func (s *Session) ProcessResponse(utterance string) Result {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	switch s.state {
	case StateWelcome:
		if isDeferral(lower) {
			return Result{Prompt: promptDeferral}
		}
		s.state = StateCurrentRole
		return Result{Prompt: promptCurrentRole, Advanced: true}

	case StateCurrentRole:
		s.prof.Role = profile.ExtractCurrentRole(utterance)
		if s.prof.IsStudent() {
			s.prof.EducationDetails = strings.TrimSpace(utterance)
		}
		s.state = StateExperienceLevel
		return Result{Prompt: promptExperienceLevel, Advanced: true}

	case StateExperienceLevel:
		s.prof.ExperienceLevel = profile.ExtractExperienceLevel(utterance)
		if s.prof.IsStudent() {
			s.prof.EducationDetails = appendDetail(s.prof.EducationDetails, utterance)
		}
		s.state = StateTargetRole
		return Result{Prompt: promptTargetRole, Advanced: true}

	case StateTargetRole:
		s.prof.TargetRole = profile.ExtractTargetRole(utterance)
		s.state = StateTargetCompany
		return Result{Prompt: promptTargetCompany, Advanced: true}

	case StateTargetCompany:
		s.prof.TargetCompany = profile.ExtractTargetCompany(utterance)
		s.state = StateConfirmation
		return Result{Prompt: confirmationPrompt(s.prof), Advanced: true}

	case StateConfirmation:
		if isAffirmation(lower) {
			s.completed = true
			s.state = StateCompleted
			return Result{Prompt: completionPrompt(s.prof), Advanced: true, Completed: true}
		}
		s.rejections++
		if s.rejections >= maxRejections {
			s.prof = profile.Profile{}
			s.rejections = 0
			s.state = StateCurrentRole
			return Result{Prompt: promptRestart, Restarted: true}
		}
		return Result{Prompt: promptClarification}

	default:
		// StateCompleted: utterances belong to the interview flow, which the
		// orchestrator routes elsewhere. Nothing to do here.
		return Result{}
	}
}

func isDeferral(lower string) bool {
	for _, p := range deferralPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	// A bare "no" defers too, but only as its own word so that "now" or
	// "I know" don't trip it.
	for _, w := range strings.Fields(lower) {
		if strings.Trim(w, ".,!?") == "no" {
			return true
		}
	}
	return false
}

func isAffirmation(lower string) bool {
	// A rejection wins over an affirmation in the same utterance
	// ("no, that's not right").
	for _, w := range strings.Fields(lower) {
		if strings.Trim(w, ".,!?") == "no" {
			return false
		}
	}
	if strings.Contains(lower, "not right") || strings.Contains(lower, "not correct") || strings.Contains(lower, "wrong") {
		return false
	}
	for _, p := range affirmationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func appendDetail(existing, addition string) string {
	addition = strings.TrimSpace(addition)
	if existing == "" {
		return addition
	}
	if addition == "" {
		return existing
	}
	return existing + ". " + addition
}
