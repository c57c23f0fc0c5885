package whisperx

// alignRequest is one line written to the worker's stdin.
type alignRequest struct {
	Cmd string `json:"cmd"`
	WAV string `json:"wav,omitempty"`
	TXT string `json:"txt,omitempty"`
	// RawJSON is where the worker writes the raw ASR token list.
	RawJSON string `json:"raw_json,omitempty"`
}

// workerEvent is one line read from the worker's stdout.
type workerEvent struct {
	Event  string `json:"event"`
	Error  string `json:"error,omitempty"`
	Device string `json:"device,omitempty"`
	WAV    string `json:"wav,omitempty"`
}

const (
	cmdAlign    = "align"
	cmdShutdown = "shutdown"

	eventReady   = "ready"
	eventAligned = "aligned"
	eventError   = "error"
	eventBye     = "bye"
)
