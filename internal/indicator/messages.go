package indicator

import (
	"github.com/rbright/voxtype/internal/session"
)

const (
	textRecording  = "Recording…"
	textProcessing = "Transcribing…"
)

// outcomeText is the operator-facing message for outcomes worth surfacing.
// Outcomes without an entry dismiss the indicator silently.
var outcomeText = map[session.OutcomeKind]string{
	session.OutcomeNoSpeech:             "No speech detected",
	session.OutcomeDeviceUnavailable:    "Microphone unavailable",
	session.OutcomeCaptureFailed:        "Recording failed",
	session.OutcomeTranscriptionFailed:  "Speech recognition failed",
	session.OutcomeTranscriptionTimeout: "Speech recognition timed out",
	session.OutcomeInjectionFailed:      "Could not type transcript (saved to log)",
}

func messageFor(kind session.OutcomeKind) (string, bool) {
	text, ok := outcomeText[kind]
	return text, ok
}
