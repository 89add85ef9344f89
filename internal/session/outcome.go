package session

import (
	"time"
)

// OutcomeKind classifies how one push-to-talk cycle ended.
type OutcomeKind string

const (
	OutcomeTyped                OutcomeKind = "typed"
	OutcomeNothingCaptured      OutcomeKind = "nothing_captured"
	OutcomeNoSpeech             OutcomeKind = "no_speech"
	OutcomeDeviceUnavailable    OutcomeKind = "device_unavailable"
	OutcomeCaptureFailed        OutcomeKind = "capture_failed"
	OutcomeTranscriptionFailed  OutcomeKind = "transcription_failed"
	OutcomeTranscriptionTimeout OutcomeKind = "transcription_timeout"
	OutcomeInjectionFailed      OutcomeKind = "injection_failed"
	OutcomeAborted              OutcomeKind = "aborted"
)

// Failed reports whether the outcome should be surfaced to the operator as an error.
func (k OutcomeKind) Failed() bool {
	switch k {
	case OutcomeTyped, OutcomeNothingCaptured, OutcomeNoSpeech, OutcomeAborted:
		return false
	default:
		return true
	}
}

// Outcome is the terminal record of one session.
type Outcome struct {
	SessionID     string
	Kind          OutcomeKind
	Text          string
	Err           error
	AudioDuration time.Duration
	Frames        int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Summary is a copy of the controller bookkeeping, safe to serialize.
type Summary struct {
	Sessions int
	Outcomes map[OutcomeKind]int
	Last     *Outcome
}
