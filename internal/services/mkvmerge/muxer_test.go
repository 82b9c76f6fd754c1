package mkvmerge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"vidsub/internal/services"
)

func TestBuildArgs(t *testing.T) {
	req := services.MuxRequest{
		VideoPath:  "/path/to/video.mp4",
		OutputPath: "/path/to/video_with_subtitles.mkv",
		Tracks: []services.SubtitleTrack{
			{Language: "en", Path: "/work/subtitles.en.srt"},
			{Language: "de", Path: "/work/subtitles.de.srt"},
		},
	}
	got := BuildArgs(req, "/tmp/output.mkv")
	want := []string{
		"-o", "/tmp/output.mkv", "/path/to/video.mp4",
		"--language", "0:en", "--track-name", "0:English", "--default-track", "0:yes", "/work/subtitles.en.srt",
		"--language", "0:de", "--track-name", "0:German", "--default-track", "0:no", "/work/subtitles.de.srt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v\nwant %v", got, want)
	}
}

func TestBuildArgsKeepsCodesOutsideLanguageTable(t *testing.T) {
	req := services.MuxRequest{
		VideoPath:  "/path/to/video.mkv",
		OutputPath: "/path/to/video_with_subtitles.mkv",
		Tracks: []services.SubtitleTrack{
			{Language: "zt", Path: "/work/subtitles.zt.srt"},
			{Language: "pb", Path: "/work/subtitles.pb.srt"},
		},
	}
	got := BuildArgs(req, "/tmp/output.mkv")
	want := []string{
		"-o", "/tmp/output.mkv", "/path/to/video.mkv",
		"--language", "0:zt", "--track-name", "0:ZT", "--default-track", "0:yes", "/work/subtitles.zt.srt",
		"--language", "0:pb", "--track-name", "0:PB", "--default-track", "0:no", "/work/subtitles.pb.srt",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v\nwant %v", got, want)
	}
}

func TestMuxValidation(t *testing.T) {
	t.Run("nil muxer", func(t *testing.T) {
		var m *Muxer
		if err := m.Mux(context.Background(), services.MuxRequest{}); err == nil {
			t.Error("expected error for nil muxer")
		}
	})

	t.Run("missing video", func(t *testing.T) {
		m := NewMuxer("", nil)
		err := m.Mux(context.Background(), services.MuxRequest{
			VideoPath:  "/nonexistent/video.mkv",
			OutputPath: "/nonexistent/out.mkv",
			Tracks:     []services.SubtitleTrack{{Language: "en", Path: "/nonexistent/sub.srt"}},
		})
		if !errors.Is(err, services.ErrMux) {
			t.Errorf("expected mux error, got %v", err)
		}
	})
}

func TestMuxAtomicRename(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "video.mp4")
	srt := filepath.Join(dir, "subtitles.en.srt")
	for _, p := range []string{video, srt} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	out := filepath.Join(dir, "video_with_subtitles.mkv")

	m := NewMuxer("", nil)
	var gotName string
	m.WithCommandRunner(func(_ context.Context, _ io.Reader, name string, args ...string) ([]byte, error) {
		gotName = name
		return nil, os.WriteFile(args[1], []byte("mkv"), 0o644)
	})
	if err := m.Mux(context.Background(), services.MuxRequest{
		VideoPath:  video,
		OutputPath: out,
		Tracks:     []services.SubtitleTrack{{Language: "en", Path: srt}},
	}); err != nil {
		t.Fatalf("Mux: %v", err)
	}
	if gotName != DefaultBinary {
		t.Fatalf("binary = %q", gotName)
	}
	if data, err := os.ReadFile(out); err != nil || string(data) != "mkv" {
		t.Fatalf("output = %q, %v", data, err)
	}
}
