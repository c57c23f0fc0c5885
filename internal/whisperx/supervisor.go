package whisperx

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"cadence/internal/align"
	"cadence/internal/logging"
	"cadence/internal/services"
)

// State describes the supervised worker's lifecycle.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	// StateDegraded means the persistent worker is out for the rest of the
	// run and every call uses the single-run fallback.
	StateDegraded State = "degraded"
	StateDead     State = "dead"
)

// AlignRequest names the artifacts for one chapter alignment call.
type AlignRequest struct {
	WAVPath string
	TXTPath string
	// RawJSONPath is where the raw ASR token list lands.
	RawJSONPath string
}

// Supervisor serializes alignment calls through one persistent worker,
// falling back to per-chapter CLI invocations when the worker is unusable.
// Demotion is permanent for the supervisor's lifetime and logged once.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	worker    *worker
	state     State
	restarted bool
}

// NewSupervisor builds a supervisor; the worker process starts lazily on the
// first Align call.
func NewSupervisor(cfg Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisperx"),
		state:  StateStarting,
	}
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Align obtains raw ASR tokens for one chapter. Calls are serialized; the
// underlying model cannot serve concurrent requests.
func (s *Supervisor) Align(ctx context.Context, req AlignRequest) ([]align.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.state == StateDegraded {
		return s.runFallback(ctx, req)
	}

	if err := s.ensureWorker(ctx); err != nil {
		// Startup failure demotes permanently; this chapter and all
		// following ones use the fallback path.
		s.demote(err)
		return s.runFallback(ctx, req)
	}

	err := s.worker.align(ctx, alignRequest{
		Cmd:     cmdAlign,
		WAV:     req.WAVPath,
		TXT:     req.TXTPath,
		RawJSON: req.RawJSONPath,
	}, s.cfg.ChapterTimeout)

	switch {
	case err == nil:
		return align.LoadTokens(req.RawJSONPath)

	case errors.Is(err, errWorkerDied):
		s.markDead()
		if s.restarted {
			s.demote(err)
			return s.runFallback(ctx, req)
		}
		s.restarted = true
		s.logger.Warn("alignment worker died; restarting once", logging.Error(err))
		if startErr := s.ensureWorker(ctx); startErr != nil {
			s.demote(startErr)
			return s.runFallback(ctx, req)
		}
		if retryErr := s.worker.align(ctx, alignRequest{
			Cmd:     cmdAlign,
			WAV:     req.WAVPath,
			TXT:     req.TXTPath,
			RawJSON: req.RawJSONPath,
		}, s.cfg.ChapterTimeout); retryErr != nil {
			switch {
			case errors.Is(retryErr, errWorkerDied):
				s.markDead()
				retryErr = services.Wrap(services.ErrExternalTool, "align", "worker",
					"worker died again after restart", retryErr)
			case errors.Is(retryErr, services.ErrAlignmentTimeout):
				// The replacement worker is stuck too; recycle it the same
				// way as a first-call timeout so the next chapter gets a
				// fresh worker instead of inheriting this one.
				s.recycle(req)
			}
			return nil, retryErr
		}
		return align.LoadTokens(req.RawJSONPath)

	case errors.Is(err, services.ErrAlignmentTimeout):
		s.recycle(req)
		return nil, err

	default:
		return nil, err
	}
}

// Close shuts the persistent worker down gracefully.
func (s *Supervisor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.worker != nil {
		s.worker.shutdown()
		s.worker = nil
	}
	if s.state != StateDegraded {
		s.state = StateDead
	}
}

func (s *Supervisor) ensureWorker(ctx context.Context) error {
	if s.worker != nil && s.worker.alive() && s.state == StateReady {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = StateStarting
	w, err := startWorker(s.cfg)
	if err != nil {
		return err
	}
	s.logger.Debug("alignment worker starting",
		logging.String("script", s.cfg.WorkerScript),
		logging.Duration("startup_timeout", s.cfg.StartupTimeout))
	if err := w.waitReady(s.cfg.StartupTimeout); err != nil {
		w.kill()
		return err
	}
	s.worker = w
	s.state = StateReady
	s.logger.Info("alignment worker ready", logging.String("model", s.cfg.Model))
	return nil
}

// recycle aborts the stuck call by killing the worker's process group. Only
// this chapter fails; the next call starts a fresh worker.
func (s *Supervisor) recycle(req AlignRequest) {
	s.logger.Warn("alignment call timed out; recycling worker",
		logging.String("wav", req.WAVPath),
		logging.Duration("timeout", s.cfg.ChapterTimeout))
	if s.worker != nil {
		s.worker.kill()
	}
	s.markDead()
}

func (s *Supervisor) markDead() {
	s.worker = nil
	s.state = StateDead
}

// demote switches permanently to the fallback path. Logged once here; the
// per-chapter calls stay quiet about it afterwards.
func (s *Supervisor) demote(cause error) {
	if s.worker != nil {
		s.worker.kill()
		s.worker = nil
	}
	s.state = StateDegraded
	s.logger.Warn("persistent alignment worker unavailable; using single-run fallback for the rest of this import",
		logging.Error(cause))
}
