package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"vidsub/internal/captions"
	"vidsub/internal/logging"
	"vidsub/internal/services"
)

// Service provides WhisperX transcription capabilities.
type Service struct {
	cfg    Config
	logger *slog.Logger
	run    services.CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "whisperx"),
		run:    runWhisperX,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) {
	if s != nil && runner != nil {
		s.run = runner
	}
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe runs WhisperX on the request's audio file and returns the
// recognized segments tagged with the language whisperx reported.
func (s *Service) Transcribe(ctx context.Context, req services.TranscribeRequest) (captions.Sequence, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return captions.Sequence{}, services.Wrap(services.ErrTranscription, "whisperx", "transcribe", "audio path required", nil)
	}
	outputDir := s.cfg.OutputDir
	if outputDir == "" {
		outputDir = filepath.Dir(req.AudioPath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return captions.Sequence{}, services.Wrap(services.ErrTranscription, "whisperx", "ensure output dir", outputDir, err)
	}

	args := s.buildArgs(req, outputDir)
	s.logger.Debug("executing whisperx",
		logging.String("audio_path", req.AudioPath),
		logging.String("model", firstNonEmpty(req.Model, s.Model())),
		logging.String("device", firstNonEmpty(req.Device, s.cfg.Device, CUDADevice)),
	)
	if _, err := s.run(ctx, nil, UVXCommand, args...); err != nil {
		return captions.Sequence{}, services.Wrap(services.ErrTranscription, "whisperx", "run", "", err)
	}

	jsonPath := TranscriptPath(outputDir, req.AudioPath)
	transcript, err := LoadTranscript(jsonPath)
	if err != nil {
		return captions.Sequence{}, services.Wrap(services.ErrTranscription, "whisperx", "load transcript", jsonPath, err)
	}

	// The transcript's own language is what whisperx reported. The requested
	// language only fills in when the transcript omits it.
	seq, dropped := transcript.Sequence()
	if seq.Language == "" {
		seq.Language = strings.TrimSpace(req.Language)
	}
	if seq.Language == "" {
		return captions.Sequence{}, services.Wrap(services.ErrTranscription, "whisperx", "detect language", "transcript reports no language", nil)
	}

	s.logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("detected_language", seq.Language),
		logging.Int("segments", seq.Len()),
		logging.Int("dropped_segments", dropped),
	)
	return seq, nil
}

// TranscriptPath is where whisperx writes the JSON transcript for audioPath.
func TranscriptPath(outputDir, audioPath string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return filepath.Join(outputDir, base+".json")
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (s *Service) buildArgs(req services.TranscribeRequest, outputDir string) []string {
	device := firstNonEmpty(req.Device, s.cfg.Device, CUDADevice)
	computeType := firstNonEmpty(req.ComputeType, s.cfg.ComputeType)
	if computeType == "" {
		computeType = DefaultComputeType
		if device == CPUDevice {
			computeType = CPUComputeType
		}
	}

	args := make([]string, 0, 32)
	if device == CUDADevice {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		req.AudioPath,
		"--model", firstNonEmpty(req.Model, s.Model()),
		"--device", device,
		"--compute_type", computeType,
		"--output_format", OutputFormat,
		"--output_dir", outputDir,
		"--segment_resolution", SegmentResolution,
	)
	if s.cfg.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(s.cfg.BatchSize))
	}
	args = append(args, "--vad_method", firstNonEmpty(s.cfg.VADMethod, VADMethodSilero))
	if lang := strings.TrimSpace(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

// Segment represents a transcribed segment from WhisperX JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Transcript is the subset of the WhisperX JSON output vidsub consumes.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// LoadTranscript loads a WhisperX JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, err
	}
	var payload Transcript
	if err := json.Unmarshal(data, &payload); err != nil {
		return Transcript{}, fmt.Errorf("parse whisperx json: %w", err)
	}
	return payload, nil
}

// Sequence converts the transcript into a caption sequence and reports how
// many raw segments were discarded.
func (t Transcript) Sequence() (captions.Sequence, int) {
	seq := captions.Sequence{
		Language: strings.ToLower(strings.TrimSpace(t.Language)),
		Segments: make([]captions.Segment, 0, len(t.Segments)),
	}
	dropped := 0
	for _, raw := range t.Segments {
		seg := captions.Segment{Start: raw.Start, End: raw.End, Text: strings.TrimSpace(raw.Text)}
		if seg.Text == "" || seg.Validate() != nil {
			dropped++
			continue
		}
		seq.Segments = append(seq.Segments, seg)
	}
	return seq, dropped
}

// runWhisperX executes uvx with the torch checkpoint loading override.
func runWhisperX(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdin = stdin

	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
