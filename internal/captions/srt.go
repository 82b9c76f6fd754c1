package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vidsub/internal/services"
)

// RenderSRT serializes a sequence as SubRip text: a 1-based index, the timing
// line, the text, and a blank separator per segment.
func RenderSRT(seq Sequence) string {
	var b strings.Builder
	for i, seg := range seq.Segments {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(FormatTimecode(seg.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimecode(seg.End))
		b.WriteByte('\n')
		b.WriteString(cueText(seg.Text))
		b.WriteString("\n\n")
	}
	return b.String()
}

// cueText drops blank lines so cue text never terminates its block early.
func cueText(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// TrackPath returns the deterministic caption file path for a language under dir.
func TrackPath(dir, lang string) string {
	return filepath.Join(dir, "subtitles."+lang+".srt")
}

// Writer writes caption tracks into a fixed directory.
type Writer struct {
	Dir string
}

// NewWriter constructs a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir}
}

// WriteTrack writes seq to TrackPath(Dir, seq.Language), creating the directory
// when needed and replacing any existing file.
func (w *Writer) WriteTrack(seq Sequence) (string, error) {
	if strings.TrimSpace(seq.Language) == "" {
		return "", services.Wrap(services.ErrSerialization, "captions", "write", "sequence has no language code", nil)
	}
	if strings.ContainsAny(seq.Language, `/\`) {
		return "", services.Wrap(services.ErrSerialization, "captions", "write", fmt.Sprintf("language code %q is not a valid file name", seq.Language), nil)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrSerialization, "captions", "mkdir", w.Dir, err)
	}
	path := TrackPath(w.Dir, seq.Language)
	if err := os.WriteFile(path, []byte(RenderSRT(seq)), 0o644); err != nil {
		return "", services.Wrap(services.ErrSerialization, "captions", "write", path, err)
	}
	return path, nil
}

// CountCues counts the cue blocks in an SRT file. Every block must carry a
// parseable "start --> end" timing line.
func CountCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(strings.ReplaceAll(string(data), "\r\n", "\n"))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		count++
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return 0, fmt.Errorf("cue %d: missing timing line", count)
		}
		start, end, ok := strings.Cut(lines[1], " --> ")
		if !ok {
			return 0, fmt.Errorf("cue %d: malformed timing line %q", count, lines[1])
		}
		if _, err := ParseTimecode(start); err != nil {
			return 0, fmt.Errorf("cue %d: %w", count, err)
		}
		if _, err := ParseTimecode(end); err != nil {
			return 0, fmt.Errorf("cue %d: %w", count, err)
		}
	}
	return count, nil
}
