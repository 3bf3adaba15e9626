package app

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepvoice/interviewai/internal/eventlog"
	"github.com/prepvoice/interviewai/internal/httpapi"
	"github.com/prepvoice/interviewai/internal/session"
	"github.com/prepvoice/interviewai/internal/store"
)

type App struct {
	cfg        Config
	logger     *log.Logger
	db         *pgxpool.Pool
	store      *store.Store
	eventLog   *eventlog.Logger
	httpClient *http.Client // Shared HTTP client with connection pooling for provider calls
}

// New wires the database and shared clients. The database is optional: with
// no DATABASE_URL the server runs without persistence, which suits local
// development against the voice providers alone.
func New(cfg Config, logger *log.Logger) (*App, error) {
	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		db = pool
	} else {
		logger.Printf("app: DATABASE_URL not set, running without persistence")
	}

	var s *store.Store
	if db != nil {
		s = store.New(db)
	}

	// Migrations are applied externally by the CI deploy job (docker exec psql).
	// No automatic migration runner at startup.

	// Keeps TCP connections alive to reduce latency for repeated synthesis
	// and completion calls.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		store:      s,
		eventLog:   eventlog.New(db),
		httpClient: httpClient,
	}, nil
}

func (a *App) Router(registry *session.Registry) http.Handler {
	routerCfg := httpapi.RouterConfig{
		DeepgramAPIKey:   a.cfg.DeepgramAPIKey,
		OpenAIAPIKey:     a.cfg.OpenAIAPIKey,
		GoogleTTSAPIKey:  a.cfg.GoogleTTSAPIKey,
		ElevenLabsAPIKey: a.cfg.ElevenLabsAPIKey,

		STTLanguage:      a.cfg.STTLanguage,
		STTModel:         a.cfg.STTModel,
		STTSampleRate:    a.cfg.STTSampleRate,
		STTEndpointingMs: a.cfg.STTEndpointingMs,

		TTSVoice:        a.cfg.TTSVoice,
		TTSSpeakingRate: a.cfg.TTSSpeakingRate,

		LLMModel: a.cfg.LLMModel,

		GracePeriodMs: a.cfg.GracePeriodMs,

		VADVolumeThreshold:    a.cfg.VADVolumeThreshold,
		VADTickIntervalMs:     a.cfg.VADTickIntervalMs,
		VADSpeechRunLength:    a.cfg.VADSpeechRunLength,
		VADSilenceRunLength:   a.cfg.VADSilenceRunLength,
		VADSilenceThresholdMs: a.cfg.VADSilenceThresholdMs,

		HTTPClient: a.httpClient,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.store, a.eventLog, registry)
}

func (a *App) Close() error {
	if a.db != nil {
		a.db.Close()
	}
	return nil
}
