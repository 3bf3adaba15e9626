package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prepvoice/interviewai/internal/tts"
)

type synthesizeRequest struct {
	Text         string  `json:"text"`
	Voice        string  `json:"voice,omitempty"`
	SpeakingRate float64 `json:"speaking_rate,omitempty"`
	Pitch        float64 `json:"pitch,omitempty"`
	VolumeGainDB float64 `json:"volume_gain_db,omitempty"`
	Format       string  `json:"format,omitempty"` // base64 (default) or binary
}

// handleSynthesize renders arbitrary text through the primary TTS provider.
// Used by clients for voice previews and accessibility playback outside a
// live session.
func (r *Router) handleSynthesize(w http.ResponseWriter, req *http.Request) {
	var body synthesizeRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "text is required"})
		return
	}
	if body.SpeakingRate != 0 && (body.SpeakingRate < 0.25 || body.SpeakingRate > 4.0) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "speaking_rate must be between 0.25 and 4.0"})
		return
	}
	if body.Pitch < -20.0 || body.Pitch > 20.0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "pitch must be between -20.0 and 20.0"})
		return
	}
	if body.VolumeGainDB < -96.0 || body.VolumeGainDB > 16.0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "volume_gain_db must be between -96.0 and 16.0"})
		return
	}

	format := body.Format
	if format == "" {
		format = "base64"
	}
	if format != "base64" && format != "binary" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": `format must be "base64" or "binary"`})
		return
	}

	voice := body.Voice
	if voice == "" {
		voice = r.cfg.TTSVoice
	}

	audio, err := r.ttsCli.Synthesize(req.Context(), tts.Request{
		Text:         body.Text,
		Voice:        voice,
		SpeakingRate: body.SpeakingRate,
		Pitch:        body.Pitch,
		VolumeGainDB: body.VolumeGainDB,
	})
	if err != nil {
		r.logger.Printf("tts: synthesis failed: %v", err)
		captureError(req, err, "tts: synthesis failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to synthesize speech"})
		return
	}

	if format == "binary" {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Disposition", `attachment; filename="speech.mp3"`)
		_, _ = w.Write(audio)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"audio_data":  base64.StdEncoding.EncodeToString(audio),
		"format":      "base64",
		"voice":       voice,
		"text_length": len(body.Text),
	})
}

func (r *Router) handleVoices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"voices":        tts.Voices(),
		"default_voice": tts.DefaultVoice,
	})
}
