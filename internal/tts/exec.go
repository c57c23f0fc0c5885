package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"cadence/internal/services"
)

// execEngine shells out to an external synthesis command per request. The
// command reads a single JSON request on stdin and streams newline-delimited
// JSON chunks on stdout until a final chunk.
type execEngine struct {
	cmd        []string
	sampleRate int
	channels   int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// NewExecEngine parses the configured command shell-style and returns an
// engine that invokes it once per synthesis request.
func NewExecEngine(command string, sampleRate, channels int) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "parse command", command, err)
	}
	if len(args) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "parse command", "command is empty", nil)
	}
	return &execEngine{cmd: args, sampleRate: sampleRate, channels: channels}, nil
}

func (e *execEngine) Name() string { return "exec" }

func (e *execEngine) Voices() []string {
	cp := make([]string, len(DefaultVoices))
	copy(cp, DefaultVoices)
	return cp
}

func (e *execEngine) Synthesize(ctx context.Context, req Request) (*Clip, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := json.Marshal(execRequest{
		Text:       req.Text,
		Voice:      req.Voice,
		SampleRate: e.sampleRate,
		Channels:   e.channels,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "marshal request", "", err)
	}

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "stdout pipe", "", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "start command", base, err)
	}

	var pcm []byte
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanErr := func() error {
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var resp execResponse
			if err := json.Unmarshal(line, &resp); err != nil {
				return services.Wrap(services.ErrSynthesis, "tts", "decode chunk", string(line), err)
			}
			if resp.Error != "" {
				marker := services.ErrSynthesis
				if resp.Retryable {
					marker = services.ErrTransient
				}
				return services.Wrap(marker, "tts", "backend", resp.Error, nil)
			}
			if resp.PCMBase64 != "" {
				chunk, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
				if err != nil {
					return services.Wrap(services.ErrSynthesis, "tts", "decode pcm", "", err)
				}
				pcm = append(pcm, chunk...)
			}
			if resp.Final {
				break
			}
		}
		return scanner.Err()
	}()

	waitErr := cmd.Wait()
	if scanErr != nil {
		return nil, scanErr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		return nil, services.Wrap(services.ErrSynthesis, "tts", "command", detail, waitErr)
	}
	if len(pcm) == 0 {
		return nil, services.Wrap(services.ErrSynthesis, "tts", "command",
			fmt.Sprintf("%s produced no audio", base), nil)
	}
	return &Clip{PCM: pcm, SampleRate: e.sampleRate, Channels: e.channels}, nil
}
