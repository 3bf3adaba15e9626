package interview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prepvoice/interviewai/internal/profile"
)

func TestNewOpenAIClientDefaults(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{APIKey: "k"})
	if c.model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", c.model)
	}

	c = NewOpenAIClient(OpenAIConfig{APIKey: "k", Model: "gpt-4o"})
	if c.model != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", c.model)
	}
}

func TestRespond(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer k" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		var resp chatResponse
		resp.Choices = make([]struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}, 1)
		resp.Choices[0].Message.Content = "  Good answer. Next question: tell me about a conflict you resolved.  "
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	prof := profile.Profile{
		Role:            "Software Engineer",
		ExperienceLevel: "3 years",
		TargetRole:      "Senior Software Engineer",
		TargetCompany:   "Google",
	}
	history := []Message{
		{Role: "assistant", Content: "Tell me about yourself."},
		{Role: "user", Content: "I build backend services in Go."},
	}

	reply, err := c.Respond(context.Background(), prof, history)
	if err != nil {
		t.Fatalf("Respond() error: %v", err)
	}
	if strings.HasPrefix(reply, " ") || strings.HasSuffix(reply, " ") {
		t.Errorf("reply not trimmed: %q", reply)
	}
	if !strings.Contains(reply, "Next question") {
		t.Errorf("reply = %q", reply)
	}

	// System prompt leads and carries the profile context.
	if len(got.Messages) != 3 {
		t.Fatalf("len(messages) = %d, want 3", len(got.Messages))
	}
	if got.Messages[0].Role != "system" {
		t.Errorf("messages[0].Role = %q, want system", got.Messages[0].Role)
	}
	for _, want := range []string{"Senior Software Engineer", "Google", "3 years"} {
		if !strings.Contains(got.Messages[0].Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if got.Messages[2].Content != "I build backend services in Go." {
		t.Errorf("messages[2].Content = %q", got.Messages[2].Content)
	}
}

func TestRespondError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Respond(context.Background(), profile.Profile{}, nil); err == nil {
		t.Error("Respond() error = nil, want non-nil for non-200")
	}
}

func TestProfileContextOpenToOpportunities(t *testing.T) {
	p := profile.Profile{
		Role:            "Student",
		ExperienceLevel: "third year",
		TargetRole:      "Software Engineer",
		TargetCompany:   profile.OpenToOpportunities,
	}
	ctxStr := profileContext(p)
	if strings.Contains(ctxStr, "Target company") {
		t.Errorf("profile context names a target company for the open sentinel: %s", ctxStr)
	}
}

func TestResponderInterface(t *testing.T) {
	var _ Responder = (*OpenAIClient)(nil)
}
