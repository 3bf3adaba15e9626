package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

const googleTTSURL = "https://texttospeech.googleapis.com/v1/text:synthesize"

// DefaultVoice is the voice used when a request names none.
const DefaultVoice = "neural2_male_indian"

// defaultSpeakingRate slows delivery slightly below natural pace, which
// reads better for question prompts.
const defaultSpeakingRate = 0.9

// Voice describes one entry in the voice table.
type Voice struct {
	LanguageCode string `json:"language_code"`
	Name         string `json:"name"`
	Gender       string `json:"ssml_gender"`
}

// voiceTable maps friendly voice keys to Indian-accent English voices.
// Neural2 entries are the highest quality; Wavenet entries are cheaper.
var voiceTable = map[string]Voice{
	"wavenet_male_indian":     {LanguageCode: "en-IN", Name: "en-IN-Wavenet-A", Gender: "MALE"},
	"wavenet_female_indian":   {LanguageCode: "en-IN", Name: "en-IN-Wavenet-B", Gender: "FEMALE"},
	"wavenet_female_indian_2": {LanguageCode: "en-IN", Name: "en-IN-Wavenet-C", Gender: "FEMALE"},
	"wavenet_male_indian_2":   {LanguageCode: "en-IN", Name: "en-IN-Wavenet-D", Gender: "MALE"},
	"neural2_male_indian":     {LanguageCode: "en-IN", Name: "en-IN-Neural2-A", Gender: "MALE"},
	"neural2_female_indian":   {LanguageCode: "en-IN", Name: "en-IN-Neural2-B", Gender: "FEMALE"},
	"neural2_male_indian_2":   {LanguageCode: "en-IN", Name: "en-IN-Neural2-C", Gender: "MALE"},
	"neural2_female_indian_2": {LanguageCode: "en-IN", Name: "en-IN-Neural2-D", Gender: "FEMALE"},
}

// Voices returns a copy of the voice table for the voices endpoint.
func Voices() map[string]Voice {
	out := make(map[string]Voice, len(voiceTable))
	for k, v := range voiceTable {
		out[k] = v
	}
	return out
}

// GoogleClient implements Client over the Cloud Text-to-Speech REST API.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// GoogleConfig holds settings for the Google TTS client.
type GoogleConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint, for tests.
	BaseURL string

	// HTTPClient is shared with the rest of the app; nil uses a fresh client.
	HTTPClient *http.Client
}

// NewGoogleClient creates a Google Cloud TTS client.
func NewGoogleClient(cfg GoogleConfig, logger *log.Logger) *GoogleClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleTTSURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &GoogleClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type googleSynthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
		SSMLGender   string `json:"ssmlGender"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding    string   `json:"audioEncoding"`
		SpeakingRate     float64  `json:"speakingRate"`
		Pitch            float64  `json:"pitch"`
		VolumeGainDB     float64  `json:"volumeGainDb"`
		SampleRateHertz  int      `json:"sampleRateHertz"`
		EffectsProfileID []string `json:"effectsProfileId"`
	} `json:"audioConfig"`
}

type googleSynthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize renders the text as 24kHz MP3 tuned for headphone playback.
// Unknown voice keys fall back to the default voice rather than failing the
// turn.
func (c *GoogleClient) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	key := req.Voice
	if key == "" {
		key = DefaultVoice
	}
	voice, ok := voiceTable[key]
	if !ok {
		c.logger.Printf("tts: unknown voice %q, using %s", key, DefaultVoice)
		voice = voiceTable[DefaultVoice]
	}

	rate := req.SpeakingRate
	if rate == 0 {
		rate = defaultSpeakingRate
	}

	var body googleSynthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = voice.LanguageCode
	body.Voice.Name = voice.Name
	body.Voice.SSMLGender = voice.Gender
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = rate
	body.AudioConfig.Pitch = req.Pitch
	body.AudioConfig.VolumeGainDB = req.VolumeGainDB
	body.AudioConfig.SampleRateHertz = 24000
	body.AudioConfig.EffectsProfileID = []string{"headphone-class-device"}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create tts request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("google tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google tts error: %s - %s", resp.Status, string(respBody))
	}

	var out googleSynthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode tts audio: %w", err)
	}
	return audio, nil
}
