// Package voice runs spoken conversations with the reading assistant over a
// WebSocket.
package voice

import (
	"errors"
	"fmt"

	"github.com/readmaster/read-master/internal/validate"
)

// MaxTranscriptLength bounds one spoken question.
const MaxTranscriptLength = 1000

// Mode is the state of a voice conversation.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeListening  Mode = "listening"
	ModeProcessing Mode = "processing"
	ModeSpeaking   Mode = "speaking"
	ModeError      Mode = "error"
)

// Event drives mode transitions.
type Event string

const (
	EventStart        Event = "start"
	EventStop         Event = "stop"
	EventTranscript   Event = "transcript"
	EventAnswer       Event = "answer"
	EventPlaybackDone Event = "playback_done"
	EventFail         Event = "fail"
	EventReset        Event = "reset"
)

// ErrInvalidTransition is returned for an event the current mode does not accept.
var ErrInvalidTransition = errors.New("invalid voice transition")

var transitions = map[Mode]map[Event]Mode{
	ModeIdle: {
		EventStart: ModeListening,
	},
	ModeListening: {
		EventTranscript: ModeProcessing,
		EventStop:       ModeIdle,
	},
	ModeProcessing: {
		EventAnswer: ModeSpeaking,
	},
	ModeSpeaking: {
		EventPlaybackDone: ModeIdle,
		EventStart:        ModeListening,
		EventStop:         ModeIdle,
	},
}

// Transition returns the mode after ev. Fail and reset are accepted in
// every mode.
func Transition(m Mode, ev Event) (Mode, error) {
	switch ev {
	case EventFail:
		return ModeError, nil
	case EventReset:
		return ModeIdle, nil
	}
	if next, ok := transitions[m][ev]; ok {
		return next, nil
	}
	return m, fmt.Errorf("%w: %s in %s", ErrInvalidTransition, ev, m)
}

// ValidateTranscript checks recognized speech before it is sent on.
func ValidateTranscript(text string) validate.Result {
	return validate.Text(text, "Transcript", MaxTranscriptLength)
}
