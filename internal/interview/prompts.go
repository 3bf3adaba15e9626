package interview

import (
	"fmt"
	"strings"

	"github.com/prepvoice/interviewai/internal/profile"
)

// CoachPrompt is the base system prompt for the practice interviewer.
const CoachPrompt = `You are an experienced interview coach running a spoken mock interview.

YOUR TASK:
- Ask one interview question at a time, matched to the candidate's target role.
- After each answer, give one or two sentences of specific feedback, then ask the next question.
- Mix behavioral and role-specific technical questions.

RULES:
- Keep every reply under 60 words; it will be read aloud.
- Plain sentences only, no lists, no markdown, no emoji.
- Never break character or mention being an AI.`

// VoiceGuardrails keeps replies usable as synthesized speech.
const VoiceGuardrails = `Respond with text that sounds natural when spoken: contractions are fine, abbreviations and symbols are not.`

// profileContext renders the candidate profile for the system prompt.
func profileContext(p profile.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CANDIDATE:\n- Current role: %s\n", p.Role)
	fmt.Fprintf(&b, "- Background: %s\n", p.Background())
	fmt.Fprintf(&b, "- Target role: %s\n", p.TargetRole)
	if p.TargetCompany != "" && p.TargetCompany != profile.OpenToOpportunities {
		fmt.Fprintf(&b, "- Target company: %s\n", p.TargetCompany)
	}
	return b.String()
}
