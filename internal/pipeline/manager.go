package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"cadence/internal/config"
	"cadence/internal/extract"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/stage"
	"cadence/internal/tts"
	"cadence/internal/whisperx"
)

// Manager coordinates one book import across the extraction, synthesis, and
// alignment stages.
type Manager struct {
	cfg       *config.Config
	store     *library.Store
	logger    *slog.Logger
	extractor *extract.Extractor
	synth     stage.Handler
	align     stage.Handler
	closer    func()

	mu       sync.RWMutex
	progress library.Progress
}

// NewManager constructs a manager with the production stages: Calibre
// extraction, the configured TTS engine, and the WhisperX supervisor.
func NewManager(cfg *config.Config, store *library.Store, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	engine, err := tts.NewEngine(cfg.TTS)
	if err != nil {
		return nil, err
	}
	supervisor := whisperx.NewSupervisor(whisperx.FromConfig(cfg.WhisperX), logger)
	m := NewManagerWithStages(
		cfg,
		store,
		logger,
		extract.New(cfg, store, logger),
		tts.NewStage(cfg.TTS, engine, store, logger),
		whisperx.NewStage(cfg, supervisor, store, logger),
	)
	m.closer = supervisor.Close
	return m, nil
}

// NewManagerWithStages constructs a manager around explicit stage handlers
// (used in tests).
func NewManagerWithStages(cfg *config.Config, store *library.Store, logger *slog.Logger, extractor *extract.Extractor, synth, align stage.Handler) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		store:     store,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		extractor: extractor,
		synth:     synth,
		align:     align,
	}
}

// Close releases stage resources, shutting down the alignment worker when
// one is running.
func (m *Manager) Close() {
	if m.closer != nil {
		m.closer()
	}
}

// Health reports the readiness of the synthesis and alignment stages.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	return []stage.Health{
		m.synth.HealthCheck(ctx),
		m.align.HealthCheck(ctx),
	}
}

// Progress returns the current in-memory snapshot for the running import.
// UI layers poll this; it never blocks on stage work.
func (m *Manager) Progress() library.Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}
