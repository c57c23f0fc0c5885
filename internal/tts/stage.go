package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cadence/internal/config"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/services"
	"cadence/internal/stage"
)

// maxHalvingDepth bounds the recursive retry on transient backend failures.
const maxHalvingDepth = 3

// Stage synthesizes a chapter's narration into its WAV artifact.
type Stage struct {
	cfg    config.TTS
	engine Engine
	store  *library.Store
	logger *slog.Logger
}

// NewStage builds the synthesis stage around an engine and the library store.
func NewStage(cfg config.TTS, engine Engine, store *library.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:    cfg,
		engine: engine,
		store:  store,
		logger: logging.NewComponentLogger(logger, "tts"),
	}
}

// Prepare verifies the chapter's text artifact is in place.
func (s *Stage) Prepare(ctx context.Context, task *stage.Task) error {
	state := s.store.LoadState(ctx, task.Book, task.Ordinal)
	if !state.HasText {
		return services.Wrap(services.ErrValidation, "synthesize", "prepare",
			fmt.Sprintf("chapter %d has no text artifact", task.Ordinal), nil)
	}
	return nil
}

// Execute reads the chapter text, synthesizes it chunk by chunk, and writes
// the WAV artifact atomically. Committed state is untouched on failure.
func (s *Stage) Execute(ctx context.Context, task *stage.Task) error {
	log := logging.WithContext(ctx, s.logger)

	textPath := task.Book.TextPath(s.store.LibraryDir(), task.Ordinal)
	data, err := os.ReadFile(textPath)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "read text", textPath, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "read text",
			fmt.Sprintf("chapter %d text is empty", task.Ordinal), nil)
	}

	voice := task.Book.Voice
	if voice == "" {
		voice = s.cfg.Voice
	}

	chunks := SplitChunks(text, s.cfg.MaxChunkChars)
	log.Debug("synthesizing chapter",
		logging.Int("chunks", len(chunks)),
		logging.String("voice", voice),
		logging.String("engine", s.engine.Name()))

	clip := &Clip{SampleRate: s.cfg.SampleRate, Channels: s.cfg.Channels}
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		part, err := s.synthesizeChunk(ctx, log, chunk, voice, 0)
		if err != nil {
			return err
		}
		clip.PCM = append(clip.PCM, part.PCM...)
		if part.SampleRate > 0 {
			clip.SampleRate = part.SampleRate
			clip.Channels = part.Channels
		}
	}

	audioPath := task.Book.AudioPath(s.store.LibraryDir(), task.Ordinal)
	if err := WriteWAV(audioPath, clip); err != nil {
		return services.Wrap(services.ErrSynthesis, "synthesize", "write wav", audioPath, err)
	}
	log.Info("chapter audio written",
		logging.String("path", audioPath),
		logging.Float64("seconds", clip.DurationSeconds()))
	return nil
}

// synthesizeChunk retries transient backend failures by halving the chunk at
// a word boundary and synthesizing the halves independently.
func (s *Stage) synthesizeChunk(ctx context.Context, log *slog.Logger, chunk, voice string, depth int) (*Clip, error) {
	clip, err := s.engine.Synthesize(ctx, Request{Text: chunk, Voice: voice})
	if err == nil {
		return clip, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !errors.Is(err, services.ErrTransient) || depth >= maxHalvingDepth {
		return nil, err
	}
	left, right, ok := halveChunk(chunk)
	if !ok {
		return nil, err
	}
	log.Warn("transient synthesis failure; halving chunk",
		logging.Int("depth", depth+1),
		logging.Int("chars", len(chunk)),
		logging.Error(err))

	leftClip, err := s.synthesizeChunk(ctx, log, left, voice, depth+1)
	if err != nil {
		return nil, err
	}
	rightClip, err := s.synthesizeChunk(ctx, log, right, voice, depth+1)
	if err != nil {
		return nil, err
	}
	leftClip.PCM = append(leftClip.PCM, rightClip.PCM...)
	return leftClip, nil
}

// HealthCheck reports whether the synthesis backend is usable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.engine == nil {
		return stage.Unhealthy("tts", "no synthesis engine configured")
	}
	return stage.Healthy("tts")
}
