package whisperx

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"vidsub/internal/services"
)

const sampleTranscript = `{
  "language": "es",
  "segments": [
    {"start": 0.0, "end": 1.2, "text": " Hola "},
    {"start": 1.2, "end": 1.2, "text": "zero length"},
    {"start": 1.5, "end": 3.0, "text": "   "},
    {"start": 3.0, "end": 4.5, "text": "Adiós"}
  ]
}`

func fakeRunner(t *testing.T, outputDir, payload string, captured *[]string) services.CommandRunner {
	t.Helper()
	return func(_ context.Context, _ io.Reader, name string, args ...string) ([]byte, error) {
		if name != UVXCommand {
			t.Fatalf("unexpected command %q", name)
		}
		*captured = append([]string(nil), args...)
		audio := args[slices.Index(args, "whisperx")+1]
		if err := os.WriteFile(TranscriptPath(outputDir, audio), []byte(payload), 0o644); err != nil {
			t.Fatalf("write transcript: %v", err)
		}
		return nil, nil
	}
}

func TestTranscribeParsesDetectedLanguage(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{Model: "large-v2", Device: "cuda", OutputDir: dir, BatchSize: 8}, nil)
	var args []string
	svc.WithCommandRunner(fakeRunner(t, dir, sampleTranscript, &args))

	seq, err := svc.Transcribe(context.Background(), services.TranscribeRequest{
		AudioPath:   filepath.Join(dir, "movie-audio.wav"),
		ComputeType: "int8",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seq.Language != "es" {
		t.Fatalf("language = %q, want es", seq.Language)
	}
	if seq.Len() != 2 {
		t.Fatalf("segments = %d, want 2 (%+v)", seq.Len(), seq.Segments)
	}
	if seq.Segments[0].Text != "Hola" || seq.Segments[1].Start != 3.0 {
		t.Fatalf("unexpected segments %+v", seq.Segments)
	}

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--model large-v2",
		"--device cuda",
		"--compute_type int8",
		"--output_format json",
		"--output_dir " + dir,
		"--batch_size 8",
		"--index-url " + CUDAIndexURL,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
	if slices.Contains(args, "--language") {
		t.Errorf("language should be detected, got args %v", args)
	}
}

func TestTranscribeForcedLanguage(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{OutputDir: dir}, nil)
	var args []string
	svc.WithCommandRunner(fakeRunner(t, dir, `{"segments":[{"start":0,"end":1,"text":"hi"}]}`, &args))

	seq, err := svc.Transcribe(context.Background(), services.TranscribeRequest{
		AudioPath: filepath.Join(dir, "a.wav"),
		Device:    "cpu",
		Language:  "en",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seq.Language != "en" {
		t.Fatalf("language = %q, want en", seq.Language)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--language en") {
		t.Errorf("expected forced language in %v", args)
	}
	if !strings.Contains(joined, "--compute_type "+CPUComputeType) {
		t.Errorf("expected cpu compute type in %v", args)
	}
}

func TestTranscribeKeepsReportedLanguageOverRequested(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{OutputDir: dir}, nil)
	var args []string
	svc.WithCommandRunner(fakeRunner(t, dir, `{"language":"pt","segments":[{"start":0,"end":1,"text":"oi"}]}`, &args))

	seq, err := svc.Transcribe(context.Background(), services.TranscribeRequest{
		AudioPath: filepath.Join(dir, "a.wav"),
		Language:  "es",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if seq.Language != "pt" {
		t.Fatalf("language = %q, want reported pt", seq.Language)
	}
	if !strings.Contains(strings.Join(args, " "), "--language es") {
		t.Errorf("expected requested language in %v", args)
	}
}

func TestTranscribeWithoutLanguageFails(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{OutputDir: dir}, nil)
	var args []string
	svc.WithCommandRunner(fakeRunner(t, dir, `{"segments":[]}`, &args))

	_, err := svc.Transcribe(context.Background(), services.TranscribeRequest{AudioPath: filepath.Join(dir, "a.wav")})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
}

func TestTranscribeToolFailure(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Config{OutputDir: dir}, nil)
	svc.WithCommandRunner(func(context.Context, io.Reader, string, ...string) ([]byte, error) {
		return nil, errors.New("CUDA out of memory")
	})

	_, err := svc.Transcribe(context.Background(), services.TranscribeRequest{AudioPath: filepath.Join(dir, "a.wav")})
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("cause missing from %v", err)
	}
}

func TestTranscribeRequiresAudio(t *testing.T) {
	svc := NewService(Config{}, nil)
	if _, err := svc.Transcribe(context.Background(), services.TranscribeRequest{}); err == nil {
		t.Fatal("expected error")
	}
}
