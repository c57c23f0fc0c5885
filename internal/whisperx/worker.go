package whisperx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"cadence/internal/services"
)

var errWorkerDied = errors.New("alignment worker exited")

// waitFlushDelay bounds how long Wait may block on output pipes held open
// by worker subprocesses after the worker itself has exited.
const waitFlushDelay = 5 * time.Second

// worker owns one persistent alignment process. A reader goroutine decodes
// stdout lines into events; the channel closes when the process's stdout
// reaches EOF. The process runs in its own process group so aborting it
// also reaps any subprocesses it spawned.
type worker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan workerEvent
	stderr *tailBuffer
	done   chan struct{}
}

func startWorker(cfg Config) (*worker, error) {
	if cfg.Python == "" || cfg.WorkerScript == "" {
		return nil, services.Wrap(services.ErrConfiguration, "align", "start worker",
			"python interpreter or worker script not configured", nil)
	}

	args := append([]string{cfg.WorkerScript}, cfg.modelArgs()...)
	cmd := exec.Command(cfg.Python, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = waitFlushDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := newTailBuffer(4 * 1024)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "align", "start worker", cfg.Python, err)
	}

	w := &worker{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan workerEvent, 4),
		stderr: stderr,
		done:   make(chan struct{}),
	}
	go w.readLoop(stdout)
	go func() {
		_ = cmd.Wait()
		close(w.done)
	}()
	return w, nil
}

func (w *worker) readLoop(stdout io.Reader) {
	defer close(w.events)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev workerEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			ev = workerEvent{Event: eventError, Error: "undecodable worker output: " + string(line)}
		}
		w.events <- ev
	}
}

// waitReady blocks until the worker reports ready, exits, or the startup
// budget runs out.
func (w *worker) waitReady(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return services.Wrap(services.ErrAlignmentStartup, "align", "worker startup",
					w.exitDetail(), errWorkerDied)
			}
			switch ev.Event {
			case eventReady:
				return nil
			case eventError:
				return services.Wrap(services.ErrAlignmentStartup, "align", "worker startup", ev.Error, nil)
			}
		case <-timer.C:
			return services.Wrap(services.ErrAlignmentStartup, "align", "worker startup",
				fmt.Sprintf("no ready event within %s", timeout), nil)
		}
	}
}

// align submits one request and waits for its terminal event.
func (w *worker) align(ctx context.Context, req alignRequest, timeout time.Duration) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return services.Wrap(services.ErrProtocol, "align", "encode request", "", err)
	}
	if _, err := w.stdin.Write(append(payload, '\n')); err != nil {
		return errWorkerDied
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return errWorkerDied
			}
			switch ev.Event {
			case eventAligned:
				return nil
			case eventError:
				return services.Wrap(services.ErrExternalTool, "align", "worker", ev.Error, nil)
			default:
				// Late ready or informational events are ignored.
			}
		case <-timer.C:
			return services.Wrap(services.ErrAlignmentTimeout, "align", "worker",
				fmt.Sprintf("no response within %s", timeout), nil)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// alive reports whether the process is still running.
func (w *worker) alive() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}

// shutdown asks the worker to exit gracefully and waits for its bye event,
// then kills the process group if it lingers past the grace budget.
func (w *worker) shutdown() {
	payload, _ := json.Marshal(alignRequest{Cmd: cmdShutdown})
	_, _ = w.stdin.Write(append(payload, '\n'))
	_ = w.stdin.Close()

	grace := time.NewTimer(3 * time.Second)
	defer grace.Stop()
	for {
		select {
		case ev, ok := <-w.events:
			if !ok || ev.Event == eventBye {
				w.drain()
				select {
				case <-w.done:
				case <-grace.C:
					w.kill()
				}
				return
			}
		case <-grace.C:
			w.kill()
			return
		}
	}
}

// kill signals the worker's whole process group so stuck subprocesses die
// with it. It never waits for the reaper goroutine; a timed-out call must
// not stall the alignment channel on a process that refuses to exit.
func (w *worker) kill() {
	if w.cmd.Process != nil {
		_ = unix.Kill(-w.cmd.Process.Pid, unix.SIGKILL)
		_ = w.cmd.Process.Kill()
	}
	w.drain()
}

// drain unblocks the reader goroutine so it can observe EOF and exit.
func (w *worker) drain() {
	go func() {
		for range w.events {
		}
	}()
}

func (w *worker) exitDetail() string {
	detail := strings.TrimSpace(w.stderr.String())
	if detail == "" {
		return "worker exited before reporting ready"
	}
	return detail
}

// tailBuffer keeps the last cap bytes written to it. The process's Wait
// goroutine writes stderr here concurrently with supervisor reads, so
// access is locked.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
