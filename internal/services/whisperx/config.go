package whisperx

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "large-v2").
	Model string
	// Device is "cuda" or "cpu".
	Device string
	// ComputeType is the inference precision ("float16", "int8", "float32").
	ComputeType string
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// BatchSize is passed through to whisperx; zero leaves its default.
	BatchSize int
	// OutputDir receives the raw JSON transcripts.
	OutputDir string
}

// WhisperX configuration constants.
const (
	DefaultModel       = "large-v2"
	CUDAIndexURL       = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL       = "https://pypi.org/simple"
	OutputFormat       = "json"
	SegmentResolution  = "sentence"
	CPUDevice          = "cpu"
	CUDADevice         = "cuda"
	CPUComputeType     = "float32"
	DefaultComputeType = "float16"
	VADMethodPyannote  = "pyannote"
	VADMethodSilero    = "silero"
)

// UVXCommand launches whisperx in an ephemeral environment.
const UVXCommand = "uvx"
