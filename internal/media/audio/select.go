package audio

import (
	"strconv"
	"strings"

	"vidsub/internal/language"
	"vidsub/internal/media/ffprobe"
)

// Selection identifies the audio stream to transcribe.
type Selection struct {
	Stream ffprobe.Stream
	// Ordinal is the stream's position among audio streams (the N in
	// ffmpeg's 0:a:N), or -1 when the container has no audio.
	Ordinal int
	// LanguageMatch reports whether the stream's tag matched the preferred
	// language.
	LanguageMatch bool
}

// Found reports whether an audio stream was selected.
func (s Selection) Found() bool {
	return s.Ordinal >= 0
}

// Label returns a human-readable summary of the selected stream.
func (s Selection) Label() string {
	if !s.Found() {
		return ""
	}
	return formatStreamSummary(s.Stream)
}

// Select picks the stream most likely to carry the main dialogue. Candidates
// are ranked by:
//  1. Language tag matching preferred, when preferred is set
//  2. Not being a commentary or audio-description track
//  3. Default disposition
//  4. Channel count, then container order
func Select(streams []ffprobe.Stream, preferred string) Selection {
	candidates := buildCandidates(streams, preferred)
	if len(candidates) == 0 {
		return Selection{Ordinal: -1}
	}
	best := candidates[0]
	bestScore := score(best)
	for _, cand := range candidates[1:] {
		if s := score(cand); s > bestScore {
			best = cand
			bestScore = s
		}
	}
	return Selection{
		Stream:        best.stream,
		Ordinal:       best.ordinal,
		LanguageMatch: best.languageMatch,
	}
}

type candidate struct {
	stream         ffprobe.Stream
	ordinal        int
	languageMatch  bool
	secondary      bool
	defaultFlagged bool
	channels       int
}

func buildCandidates(streams []ffprobe.Stream, preferred string) []candidate {
	want := ""
	if p := strings.TrimSpace(preferred); p != "" {
		want = language.ToISO3(p)
	}
	var result []candidate
	ordinal := 0
	for _, stream := range streams {
		if !stream.IsAudio() {
			continue
		}
		cand := candidate{
			stream:         stream,
			ordinal:        ordinal,
			secondary:      isSecondaryTrack(stream),
			defaultFlagged: stream.IsDefault(),
			channels:       channelCount(stream),
		}
		if want != "" && want != "und" {
			if tag := stream.Language(); tag != "" && language.ToISO3(tag) == want {
				cand.languageMatch = true
			}
		}
		result = append(result, cand)
		ordinal++
	}
	return result
}

func score(cand candidate) float64 {
	s := 0.0
	if cand.languageMatch {
		s += 1000
	}
	if !cand.secondary {
		s += 500
	}
	if cand.defaultFlagged {
		s += 100
	}
	channels := cand.channels
	if channels > 8 {
		channels = 8
	}
	s += float64(channels) * 5
	s -= float64(cand.ordinal) * 0.1
	return s
}

var secondaryKeywords = []string{
	"commentary",
	"director",
	"description",
	"descriptive",
	"narration",
	"visually impaired",
}

func isSecondaryTrack(stream ffprobe.Stream) bool {
	if stream.Disposition["comment"] == 1 || stream.Disposition["visual_impaired"] == 1 {
		return true
	}
	title := strings.ToLower(stream.Title())
	for _, keyword := range secondaryKeywords {
		if strings.Contains(title, keyword) {
			return true
		}
	}
	return false
}

func channelCount(stream ffprobe.Stream) int {
	if stream.Channels > 0 {
		return stream.Channels
	}
	layout := strings.ToLower(strings.TrimSpace(stream.ChannelLayout))
	switch {
	case layout == "":
		return 0
	case layout == "mono":
		return 1
	case layout == "stereo":
		return 2
	case strings.HasPrefix(layout, "7.1"):
		return 8
	case strings.HasPrefix(layout, "5.1"):
		return 6
	}
	total := 0
	for _, part := range strings.Split(layout, ".") {
		part = strings.Trim(part, "abcdefghijklmnopqrstuvwxyz ()")
		if n, err := strconv.Atoi(part); err == nil {
			total += n
		}
	}
	return total
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	if lang := stream.Language(); lang != "" {
		parts = append(parts, lang)
	}
	codec := stream.CodecLong
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(stream.Channels)+"ch")
	}
	if title := stream.Title(); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
