package whisperx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"cadence/internal/align"
	"cadence/internal/logging"
	"cadence/internal/services"
)

// runFallback performs one alignment via a fresh process invocation. The
// model loads from scratch every call, so this path is slow but has no
// long-lived state to supervise.
func (s *Supervisor) runFallback(ctx context.Context, req AlignRequest) ([]align.Token, error) {
	if s.cfg.Python == "" || s.cfg.AlignScript == "" {
		return nil, services.Wrap(services.ErrConfiguration, "align", "fallback",
			"python interpreter or align script not configured", nil)
	}

	callCtx := ctx
	if s.cfg.ChapterTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.ChapterTimeout)
		defer cancel()
	}

	args := append([]string{s.cfg.AlignScript}, s.cfg.modelArgs()...)
	args = append(args,
		"--wav", req.WAVPath,
		"--txt", req.TXTPath,
		"--raw-json", req.RawJSONPath,
	)
	cmd := exec.CommandContext(callCtx, s.cfg.Python, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	s.logger.Debug("running fallback alignment", logging.String("wav", req.WAVPath))
	err := cmd.Run()
	if callCtx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
		return nil, services.Wrap(services.ErrAlignmentTimeout, "align", "fallback",
			"call exceeded chapter timeout", callCtx.Err())
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "align", "fallback",
			strings.TrimSpace(stderr.String()), err)
	}
	return align.LoadTokens(req.RawJSONPath)
}
