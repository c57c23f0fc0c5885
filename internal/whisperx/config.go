package whisperx

import (
	"strconv"
	"time"

	"cadence/internal/config"
	"cadence/internal/deps"
)

// Config captures runtime settings for alignment execution.
type Config struct {
	// Python is the interpreter used to launch the alignment scripts.
	Python string
	// WorkerScript is the persistent worker entry point.
	WorkerScript string
	// AlignScript is the single-run fallback entry point.
	AlignScript string

	Model       string
	BatchSize   int
	ComputeType string
	Device      string

	// StartupTimeout bounds how long the worker may take to report ready.
	StartupTimeout time.Duration
	// ChapterTimeout bounds one alignment call.
	ChapterTimeout time.Duration
}

// FromConfig converts the application section into runtime settings.
func FromConfig(section config.WhisperX) Config {
	return Config{
		Python:         deps.ResolvePython(section.Python, section.WorkerScript),
		WorkerScript:   section.WorkerScript,
		AlignScript:    section.AlignScript,
		Model:          section.Model,
		BatchSize:      section.BatchSize,
		ComputeType:    section.ComputeType,
		Device:         section.Device,
		StartupTimeout: time.Duration(section.StartupTimeout) * time.Second,
		ChapterTimeout: time.Duration(section.ChapterTimeout) * time.Second,
	}
}

func (c Config) modelArgs() []string {
	args := []string{
		"--whisper-model", c.Model,
		"--whisper-compute-type", c.ComputeType,
		"--device", c.Device,
	}
	if c.BatchSize > 0 {
		args = append(args, "--whisper-batch-size", strconv.Itoa(c.BatchSize))
	}
	return args
}
