package profiling

import (
	"fmt"

	"github.com/prepvoice/interviewai/internal/profile"
)

// Question prompts for each profiling state. The welcome prompt doubles as
// the session greeting spoken when a voice session opens.
const (
	promptWelcome = "Hi! I'm your interview coach. Before we practice, I'd like to ask a few quick questions to personalize your session - it takes about two minutes. Ready to begin?"

	promptDeferral = "No problem at all. Whenever you're ready, just say so and we'll get started."

	promptCurrentRole = "Great! First, what's your current role or status? For example, Software Engineer, Product Manager, or student."

	promptExperienceLevel = "Got it. How many years of experience do you have? If you're a student, which year and college?"

	promptTargetRole = "Thanks. What role are you preparing for? Feel free to include seniority, like Senior Backend Engineer."

	promptTargetCompany = "And which company or companies are you targeting? It's fine to say you're open to opportunities."

	promptClarification = "Sorry about that - what should I correct? You can also just tell me the right details again."

	promptRestart = "Let's start over so we get it right. What's your current role or status?"
)

// confirmationPrompt summarizes the collected profile and asks the user to
// confirm it.
func confirmationPrompt(p profile.Profile) string {
	return fmt.Sprintf(
		"Let me make sure I have this right. You're a %s, %s, preparing for a %s role, targeting %s. Is that correct?",
		p.Role, p.Background(), p.TargetRole, p.TargetCompany,
	)
}

// completionPrompt closes profiling and invites the user into the interview.
func completionPrompt(p profile.Profile) string {
	if p.TargetCompany == profile.OpenToOpportunities {
		return fmt.Sprintf(
			"Perfect! I have everything I need. Let's get you ready for that %s role - we'll keep your options open on companies. Shall we begin your practice interview?",
			p.TargetRole,
		)
	}
	return fmt.Sprintf(
		"Perfect! I have everything I need. Let's get you ready for that %s role at %s. Shall we begin your practice interview?",
		p.TargetRole, p.TargetCompany,
	)
}
