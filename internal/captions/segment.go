package captions

import (
	"fmt"
	"math"
)

// Segment is one timed span of recognized or translated speech.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// Validate enforces 0 <= Start < End.
func (s Segment) Validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) {
		return fmt.Errorf("segment has NaN bounds")
	}
	if s.Start < 0 {
		return fmt.Errorf("segment start %.3f is negative", s.Start)
	}
	if s.Start >= s.End {
		return fmt.Errorf("segment start %.3f is not before end %.3f", s.Start, s.End)
	}
	return nil
}

// Sequence is an ordered list of segments sharing one language code.
type Sequence struct {
	Language string
	Segments []Segment
}

// Len returns the number of segments.
func (s Sequence) Len() int {
	return len(s.Segments)
}

// Clone returns an independent copy of the sequence.
func (s Sequence) Clone() Sequence {
	out := Sequence{Language: s.Language}
	if s.Segments != nil {
		out.Segments = make([]Segment, len(s.Segments))
		copy(out.Segments, s.Segments)
	}
	return out
}

// WithLanguage returns an independent copy tagged with another language code.
func (s Sequence) WithLanguage(lang string) Sequence {
	out := s.Clone()
	out.Language = lang
	return out
}

// Validate checks every segment and reports the first offending index.
func (s Sequence) Validate() error {
	for i, seg := range s.Segments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i+1, err)
		}
	}
	return nil
}

// TimingCongruent reports whether two sequences have the same length and
// identical start/end pairs at every index. Text and language are ignored.
func TimingCongruent(a, b Sequence) bool {
	if len(a.Segments) != len(b.Segments) {
		return false
	}
	for i := range a.Segments {
		if a.Segments[i].Start != b.Segments[i].Start || a.Segments[i].End != b.Segments[i].End {
			return false
		}
	}
	return true
}
