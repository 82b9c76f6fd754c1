package pipeline

import (
	"strings"
	"unicode"
)

// State is a position in the run's linear state machine.
type State string

// Run states in order.
const (
	StateStart             State = "start"
	StateAudioExtracted    State = "audio_extracted"
	StateTranscribed       State = "transcribed"
	StateLanguagesResolved State = "languages_resolved"
	StateTranslated        State = "translated"
	StateCaptionsWritten   State = "captions_written"
	StateMuxed             State = "muxed"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

var stateOrder = []State{
	StateStart,
	StateAudioExtracted,
	StateTranscribed,
	StateLanguagesResolved,
	StateTranslated,
	StateCaptionsWritten,
	StateMuxed,
	StateDone,
}

// States lists the non-terminal-failure states in execution order.
func States() []State {
	return append([]State(nil), stateOrder...)
}

// Label renders a display-friendly state name ("Audio Extracted").
func (s State) Label() string {
	if s == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(s), "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StageError records the state a run was moving to when it failed.
type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return string(e.State) + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
