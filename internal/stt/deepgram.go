package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
)

const deepgramWSURL = "wss://api.deepgram.com/v1/listen"

// DeepgramConfig holds session parameters for the Deepgram streaming API.
type DeepgramConfig struct {
	APIKey     string
	Language   string // e.g. "en"
	Model      string // e.g. "nova-2"
	SampleRate int    // e.g. 16000 for browser linear PCM
	Encoding   string // e.g. "linear16"
	Channels   int

	// InterimResults asks for partial transcripts while the user is still
	// speaking. The orchestrator replaces interims wholesale and appends
	// finals, so they are safe to enable.
	InterimResults bool

	// Endpointing is the provider-side silence window in milliseconds before
	// a segment is marked speech_final. 0 keeps the provider default.
	Endpointing int
}

// DeepgramClient implements Client over Deepgram's listen websocket.
type DeepgramClient struct {
	conn      *websocket.Conn
	logger    *log.Logger
	results   chan TranscriptResult
	errors    chan error
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	wg        sync.WaitGroup
}

type deepgramResponse struct {
	Type    string `json:"type"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
	IsFinal     bool `json:"is_final"`
	SpeechFinal bool `json:"speech_final"`
}

// NewDeepgramClient opens a streaming session. The caller owns the session
// and must Close it when the voice session ends.
func NewDeepgramClient(ctx context.Context, cfg DeepgramConfig, logger *log.Logger) (*DeepgramClient, error) {
	if logger == nil {
		logger = log.Default()
	}

	q := url.Values{}
	q.Set("model", cfg.Model)
	q.Set("language", cfg.Language)
	q.Set("encoding", cfg.Encoding)
	q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	q.Set("channels", strconv.Itoa(cfg.Channels))
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if cfg.InterimResults {
		q.Set("interim_results", "true")
	}
	if cfg.Endpointing > 0 {
		q.Set("endpointing", strconv.Itoa(cfg.Endpointing))
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, deepgramWSURL+"?"+q.Encode(), headers)
	if err != nil {
		return nil, fmt.Errorf("connect to deepgram: %w", err)
	}

	c := &DeepgramClient{
		conn:    conn,
		logger:  logger,
		results: make(chan TranscriptResult, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c, nil
}

// StreamAudio forwards one binary audio chunk.
func (c *DeepgramClient) StreamAudio(ctx context.Context, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return fmt.Errorf("stt client is closed")
	default:
	}

	return c.conn.WriteMessage(websocket.BinaryMessage, audio)
}

func (c *DeepgramClient) Results() <-chan TranscriptResult {
	return c.results
}

func (c *DeepgramClient) Errors() <-chan error {
	return c.errors
}

// Close tells Deepgram to flush the stream, closes the socket and, once the
// read loop exits, closes both channels.
func (c *DeepgramClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		_ = c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type": "CloseStream"}`))
		c.mu.Unlock()

		err = c.conn.Close()

		c.wg.Wait()
		close(c.results)
		close(c.errors)
	})
	return err
}

func (c *DeepgramClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			case c.errors <- fmt.Errorf("deepgram read: %w", err):
			default:
			}
			return
		}

		var resp deepgramResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			c.logger.Printf("deepgram: unparseable response: %v", err)
			continue
		}
		if resp.Type != "Results" {
			continue
		}

		var transcript string
		var confidence float64
		if len(resp.Channel.Alternatives) > 0 {
			alt := resp.Channel.Alternatives[0]
			transcript = alt.Transcript
			confidence = alt.Confidence
		}

		result := TranscriptResult{
			Text:        transcript,
			Confidence:  confidence,
			IsFinal:     resp.IsFinal,
			SpeechFinal: resp.SpeechFinal,
		}

		// Boundary signals matter even without text; pure empty interims don't.
		if result.Text == "" && !result.IsFinal && !result.SpeechFinal {
			continue
		}

		select {
		case <-c.done:
			return
		case c.results <- result:
		}
	}
}
