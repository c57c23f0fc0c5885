package whisperx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cadence/internal/align"
	"cadence/internal/config"
	"cadence/internal/library"
	"cadence/internal/logging"
	"cadence/internal/services"
	"cadence/internal/stage"
)

// Report is the per-chapter alignment report written next to the alignment
// artifact.
type Report struct {
	Model         string  `json:"whisper_model"`
	Mode          string  `json:"mode"`
	TotalSeconds  float64 `json:"total_seconds"`
	ASRWordCount  int     `json:"asr_words"`
	WordCount     int     `json:"final_words"`
	MatchedTokens bool    `json:"matched_tokens"`
}

// Stage aligns a chapter's audio against its text and writes the
// word-timestamp artifact.
type Stage struct {
	cfg        *config.Config
	supervisor *Supervisor
	store      *library.Store
	logger     *slog.Logger
}

// NewStage builds the alignment stage around a supervisor and the library
// store.
func NewStage(cfg *config.Config, supervisor *Supervisor, store *library.Store, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		cfg:        cfg,
		supervisor: supervisor,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "align"),
	}
}

// Prepare verifies the chapter's audio artifact is in place.
func (s *Stage) Prepare(ctx context.Context, task *stage.Task) error {
	state := s.store.LoadState(ctx, task.Book, task.Ordinal)
	if !state.HasAudio {
		return services.Wrap(services.ErrValidation, "align", "prepare",
			fmt.Sprintf("chapter %d has no audio artifact", task.Ordinal), nil)
	}
	return nil
}

// Execute runs ASR on the chapter audio, reconciles the token stream against
// the source text, and writes the alignment and report artifacts atomically.
func (s *Stage) Execute(ctx context.Context, task *stage.Task) error {
	log := logging.WithContext(ctx, s.logger)
	lib := s.store.LibraryDir()

	rawPath := filepath.Join(s.cfg.Paths.WorkDir,
		fmt.Sprintf("%s_ch_%03d.raw.json", task.Book.Folder, task.Ordinal))

	started := time.Now()
	tokens, err := s.supervisor.Align(ctx, AlignRequest{
		WAVPath:     task.Book.AudioPath(lib, task.Ordinal),
		TXTPath:     task.Book.TextPath(lib, task.Ordinal),
		RawJSONPath: rawPath,
	})
	if err != nil {
		return err
	}

	textPath := task.Book.TextPath(lib, task.Ordinal)
	data, err := os.ReadFile(textPath)
	if err != nil {
		return services.Wrap(services.ErrExtraction, "align", "read text", textPath, err)
	}
	words := align.Words(string(data), tokens)
	if len(words) == 0 {
		return services.Wrap(services.ErrValidation, "align", "reconcile",
			fmt.Sprintf("chapter %d text produced no tokens", task.Ordinal), nil)
	}

	alignmentPath := task.Book.AlignmentPath(lib, task.Ordinal)
	if err := library.WriteJSONAtomic(alignmentPath, words); err != nil {
		return services.Wrap(services.ErrExternalTool, "align", "write alignment", alignmentPath, err)
	}

	report := Report{
		Model:         s.supervisor.cfg.Model,
		Mode:          modeLabel(s.supervisor.State()),
		TotalSeconds:  time.Since(started).Seconds(),
		ASRWordCount:  len(tokens),
		WordCount:     len(words),
		MatchedTokens: len(tokens) > 0,
	}
	if err := library.WriteJSONAtomic(task.Book.ReportPath(lib, task.Ordinal), report); err != nil {
		log.Warn("report write failed", logging.Error(err))
	}

	log.Info("chapter aligned",
		logging.Int("asr_words", len(tokens)),
		logging.Int("final_words", len(words)),
		logging.String("mode", report.Mode))
	return nil
}

// HealthCheck reports whether alignment can run at all.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s.supervisor == nil {
		return stage.Unhealthy("align", "no supervisor configured")
	}
	if s.supervisor.cfg.Python == "" {
		return stage.Unhealthy("align", "python interpreter not configured")
	}
	if s.supervisor.cfg.WorkerScript == "" && s.supervisor.cfg.AlignScript == "" {
		return stage.Unhealthy("align", "no worker or fallback script configured")
	}
	return stage.Healthy("align")
}

func modeLabel(state State) string {
	if state == StateDegraded {
		return "fallback"
	}
	return "worker"
}
