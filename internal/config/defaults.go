package config

const (
	defaultLibraryDir       = "~/.local/share/cadence/library"
	defaultLogDir           = "~/.local/share/cadence/logs"
	defaultWorkDir          = "~/.cache/cadence/work"
	defaultConverterBinary  = "ebook-convert"
	defaultExtractWorkers   = 4
	defaultMinDocumentBytes = 300
	defaultTTSEngine        = "exec"
	defaultVoice            = "M3"
	defaultMaxChunkChars    = 1600
	minMaxChunkChars        = 400
	defaultSynthWorkers     = 1
	defaultSampleRate       = 44100
	defaultChannels         = 1
	defaultWhisperXModel    = "small"
	defaultWhisperXBatch    = 16
	defaultComputeType      = "float16"
	defaultDevice           = "auto"
	defaultStartupTimeout   = 120
	defaultChapterTimeout   = 600
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			WorkDir:    defaultWorkDir,
		},
		Extraction: Extraction{
			ConverterBinary:  defaultConverterBinary,
			Workers:          defaultExtractWorkers,
			MinDocumentBytes: defaultMinDocumentBytes,
		},
		TTS: TTS{
			Engine:        defaultTTSEngine,
			Voice:         defaultVoice,
			MaxChunkChars: defaultMaxChunkChars,
			Workers:       defaultSynthWorkers,
			SampleRate:    defaultSampleRate,
			Channels:      defaultChannels,
		},
		WhisperX: WhisperX{
			Model:          defaultWhisperXModel,
			BatchSize:      defaultWhisperXBatch,
			ComputeType:    defaultComputeType,
			Device:         defaultDevice,
			StartupTimeout: defaultStartupTimeout,
			ChapterTimeout: defaultChapterTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
