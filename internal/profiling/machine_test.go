package profiling

import (
	"strings"
	"testing"

	"github.com/prepvoice/interviewai/internal/profile"
)

func TestNewSession(t *testing.T) {
	s := NewSession()
	if s.State() != StateWelcome {
		t.Errorf("State() = %v, want StateWelcome", s.State())
	}
	if s.Completed() {
		t.Error("Completed() = true for a fresh session")
	}
	if s.Profile() != (profile.Profile{}) {
		t.Errorf("Profile() = %+v, want empty", s.Profile())
	}
	if s.Greeting() == "" {
		t.Error("Greeting() is empty")
	}
}

func TestWelcomeDeferral(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		wantDefer bool
	}{
		{"bare no", "no", true},
		{"no with punctuation", "No, thanks.", true},
		{"not ready", "I'm not ready yet", true},
		{"maybe later", "maybe later please", true},
		{"now is not no", "now works for me", false},
		{"know is not no", "I know, let's go", false},
		{"ready", "yes, I'm ready to start!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			res := s.ProcessResponse(tt.utterance)
			if tt.wantDefer {
				if s.State() != StateWelcome {
					t.Errorf("State() = %v, want StateWelcome after deferral", s.State())
				}
				if res.Advanced {
					t.Error("Advanced = true, want false for deferral")
				}
			} else {
				if s.State() != StateCurrentRole {
					t.Errorf("State() = %v, want StateCurrentRole", s.State())
				}
				if !res.Advanced {
					t.Error("Advanced = false, want true")
				}
			}
			if res.Prompt == "" {
				t.Error("Prompt is empty")
			}
		})
	}
}

func TestStatesAdvanceExactlyOneStep(t *testing.T) {
	// Every state except CONFIRMATION advances exactly one step on any
	// non-empty utterance, never skipping or rewinding.
	order := []State{
		StateWelcome,
		StateCurrentRole,
		StateExperienceLevel,
		StateTargetRole,
		StateTargetCompany,
		StateConfirmation,
	}

	s := NewSession()
	answers := []string{
		"yes, ready",
		"software engineer",
		"3 years",
		"senior software engineer",
		"Google",
	}
	for i, answer := range answers {
		if s.State() != order[i] {
			t.Fatalf("before answer %d: State() = %v, want %v", i, s.State(), order[i])
		}
		res := s.ProcessResponse(answer)
		if !res.Advanced {
			t.Fatalf("answer %d (%q): Advanced = false", i, answer)
		}
		if s.State() != order[i+1] {
			t.Fatalf("after answer %d: State() = %v, want %v", i, s.State(), order[i+1])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	s := NewSession()

	s.ProcessResponse("yes, let's do it")
	s.ProcessResponse("I'm currently a software engineer at a startup")
	s.ProcessResponse("I have about 3 years of experience")
	s.ProcessResponse("I'm looking for a senior software engineer position")
	res := s.ProcessResponse("Google or Microsoft")

	if s.State() != StateConfirmation {
		t.Fatalf("State() = %v, want StateConfirmation", s.State())
	}
	// Confirmation prompt lists the collected values.
	for _, want := range []string{"Software Engineer", "3 years", "Senior Software Engineer", "Google"} {
		if !strings.Contains(res.Prompt, want) {
			t.Errorf("confirmation prompt missing %q: %s", want, res.Prompt)
		}
	}

	res = s.ProcessResponse("yes, that looks correct!")
	if !res.Completed {
		t.Error("Completed = false after confirmation")
	}
	if !s.Completed() {
		t.Error("Session.Completed() = false after confirmation")
	}
	if s.State() != StateCompleted {
		t.Errorf("State() = %v, want StateCompleted", s.State())
	}

	p := s.Profile()
	if p.Role != "Software Engineer" {
		t.Errorf("Role = %q", p.Role)
	}
	if p.ExperienceLevel != "3 years" {
		t.Errorf("ExperienceLevel = %q", p.ExperienceLevel)
	}
	if p.TargetRole != "Senior Software Engineer" {
		t.Errorf("TargetRole = %q", p.TargetRole)
	}
	if p.TargetCompany != "Google" {
		t.Errorf("TargetCompany = %q", p.TargetCompany)
	}
	if !p.Filled() {
		t.Error("Filled() = false after full round trip")
	}
}

func TestStudentFlow(t *testing.T) {
	s := NewSession()
	s.ProcessResponse("sure")
	s.ProcessResponse("I'm a computer science student")

	p := s.Profile()
	if p.Role != "Student" {
		t.Fatalf("Role = %q, want Student", p.Role)
	}
	if p.EducationDetails != "I'm a computer science student" {
		t.Errorf("EducationDetails = %q", p.EducationDetails)
	}

	// Experience answer for a student is appended to education details.
	s.ProcessResponse("I'm a third year BITS Pilani student")
	p = s.Profile()
	if p.ExperienceLevel != "I'm a third year BITS Pilani student" {
		t.Errorf("ExperienceLevel = %q, want verbatim institution answer", p.ExperienceLevel)
	}
	if !strings.HasPrefix(p.EducationDetails, "I'm a computer science student") ||
		!strings.Contains(p.EducationDetails, "BITS Pilani") {
		t.Errorf("EducationDetails = %q, want prior value plus appended utterance", p.EducationDetails)
	}
}

func TestConfirmationRejectionLoop(t *testing.T) {
	s := sessionAtConfirmation(t)
	before := s.Profile()

	res := s.ProcessResponse("no that's wrong")
	if s.State() != StateConfirmation {
		t.Errorf("State() = %v, want StateConfirmation", s.State())
	}
	if res.Advanced {
		t.Error("Advanced = true, want false on rejection")
	}
	if res.Prompt != promptClarification {
		t.Errorf("Prompt = %q, want clarification", res.Prompt)
	}
	if s.Profile() != before {
		t.Error("profile changed on rejection")
	}
}

func TestConfirmationRejectionBound(t *testing.T) {
	s := sessionAtConfirmation(t)

	s.ProcessResponse("no")
	s.ProcessResponse("no")
	res := s.ProcessResponse("no")

	if !res.Restarted {
		t.Error("Restarted = false after three rejections")
	}
	if s.State() != StateCurrentRole {
		t.Errorf("State() = %v, want StateCurrentRole after restart", s.State())
	}
	if s.Profile() != (profile.Profile{}) {
		t.Errorf("Profile() = %+v, want cleared", s.Profile())
	}
}

func TestCompletionPromptMentionsRoleAndCompany(t *testing.T) {
	s := sessionAtConfirmation(t)
	res := s.ProcessResponse("yes")
	if !strings.Contains(res.Prompt, "Senior Software Engineer") {
		t.Errorf("completion prompt missing role: %s", res.Prompt)
	}
	if !strings.Contains(res.Prompt, "Google") {
		t.Errorf("completion prompt missing company: %s", res.Prompt)
	}
}

func TestCompletionPromptOpenToOpportunities(t *testing.T) {
	s := NewSession()
	s.ProcessResponse("yes")
	s.ProcessResponse("backend developer")
	s.ProcessResponse("2 years")
	s.ProcessResponse("senior backend roles")
	s.ProcessResponse("no specific company")

	res := s.ProcessResponse("correct")
	if !res.Completed {
		t.Fatal("Completed = false")
	}
	if strings.Contains(res.Prompt, profile.OpenToOpportunities+" role") {
		t.Errorf("completion prompt reads the sentinel as a company: %s", res.Prompt)
	}
}

func TestReset(t *testing.T) {
	s := sessionAtConfirmation(t)
	s.Reset()
	if s.State() != StateWelcome {
		t.Errorf("State() = %v, want StateWelcome after Reset", s.State())
	}
	if s.Profile() != (profile.Profile{}) {
		t.Errorf("Profile() = %+v, want empty after Reset", s.Profile())
	}
	if s.Completed() {
		t.Error("Completed() = true after Reset")
	}
}

// sessionAtConfirmation drives a fresh session to the confirmation state.
func sessionAtConfirmation(t *testing.T) *Session {
	t.Helper()
	s := NewSession()
	s.ProcessResponse("yes, ready")
	s.ProcessResponse("software engineer")
	s.ProcessResponse("3 years of experience")
	s.ProcessResponse("senior software engineer")
	s.ProcessResponse("Google")
	if s.State() != StateConfirmation {
		t.Fatalf("setup: State() = %v, want StateConfirmation", s.State())
	}
	return s
}
