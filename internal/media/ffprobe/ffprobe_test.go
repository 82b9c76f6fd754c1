package ffprobe

import (
	"context"
	"errors"
	"io"
	"math"
	"reflect"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264"},
    {"index": 1, "codec_type": "audio", "codec_name": "eac3", "channels": 6,
     "tags": {"LANGUAGE": "spa", "title": "Castellano"}, "disposition": {"default": 1}},
    {"index": 2, "codec_type": "audio", "codec_name": "aac", "channels": 2,
     "tags": {"language": "eng", "handler_name": "Commentary"}},
    {"index": 3, "codec_type": "subtitle", "codec_name": "subrip"}
  ],
  "format": {"filename": "movie.mkv", "nb_streams": 4, "duration": "5400.250"}
}`

func TestParseResult(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 5400.25 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	audio := result.AudioStreams()
	if audio[0].Language() != "spa" || audio[0].Title() != "Castellano" || !audio[0].IsDefault() {
		t.Fatalf("unexpected first audio stream accessors: %+v", audio[0])
	}
	if audio[1].Language() != "eng" || audio[1].Title() != "Commentary" || audio[1].IsDefault() {
		t.Fatalf("unexpected second audio stream accessors: %+v", audio[1])
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	if got := (Result{}).DurationSeconds(); got != 0 {
		t.Fatalf("expected 0 for missing duration, got %v", got)
	}
	if got := (Result{Format: Format{Duration: "bad"}}).DurationSeconds(); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

func TestInspectInvokesFFprobe(t *testing.T) {
	prober := NewProber("")
	var gotName string
	var gotArgs []string
	prober.WithCommandRunner(func(_ context.Context, _ io.Reader, name string, args ...string) ([]byte, error) {
		gotName = name
		gotArgs = args
		return []byte(sampleJSON), nil
	})

	result, err := prober.Inspect(context.Background(), "/videos/movie.mkv")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if gotName != DefaultBinary {
		t.Fatalf("binary = %q", gotName)
	}
	want := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", "/videos/movie.mkv"}
	if !reflect.DeepEqual(gotArgs, want) {
		t.Fatalf("args = %v\nwant %v", gotArgs, want)
	}
	if len(result.Streams) != 4 {
		t.Fatalf("expected 4 streams, got %d", len(result.Streams))
	}
}

func TestInspectFailures(t *testing.T) {
	prober := NewProber("ffprobe")
	if _, err := prober.Inspect(context.Background(), " "); err == nil {
		t.Fatal("expected error for empty path")
	}

	prober.WithCommandRunner(func(context.Context, io.Reader, string, ...string) ([]byte, error) {
		return nil, errors.New("invalid data found")
	})
	if _, err := prober.Inspect(context.Background(), "movie.mkv"); err == nil {
		t.Fatal("expected runner failure to surface")
	}

	prober.WithCommandRunner(func(context.Context, io.Reader, string, ...string) ([]byte, error) {
		return []byte("not json"), nil
	})
	if _, err := prober.Inspect(context.Background(), "movie.mkv"); err == nil {
		t.Fatal("expected parse failure")
	}
}
