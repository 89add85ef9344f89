package indicator

import (
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"

	"github.com/rbright/voxtype/internal/session"
)

const (
	cueRate = 16000
	cueGap  = 22 * time.Millisecond
)

type tone struct {
	hz     float64
	length time.Duration
	gain   float64
}

// cue is a short sequence of tones separated by cueGap.
type cue struct {
	name  string
	tones []tone
}

var (
	recordingCue = cue{name: "recording", tones: []tone{
		{hz: 880, length: 70 * time.Millisecond, gain: 0.18},
		{hz: 1175, length: 70 * time.Millisecond, gain: 0.18},
	}}
	processingCue = cue{name: "processing", tones: []tone{
		{hz: 620, length: 120 * time.Millisecond, gain: 0.18},
	}}
	typedCue = cue{name: "typed", tones: []tone{
		{hz: 740, length: 65 * time.Millisecond, gain: 0.18},
		{hz: 988, length: 90 * time.Millisecond, gain: 0.18},
	}}
	emptyCue = cue{name: "empty", tones: []tone{
		{hz: 480, length: 75 * time.Millisecond, gain: 0.18},
		{hz: 360, length: 90 * time.Millisecond, gain: 0.18},
	}}
	deviceCue = cue{name: "device", tones: []tone{
		{hz: 247, length: 220 * time.Millisecond, gain: 0.2},
	}}
	failureCue = cue{name: "failure", tones: []tone{
		{hz: 330, length: 110 * time.Millisecond, gain: 0.2},
		{hz: 330, length: 110 * time.Millisecond, gain: 0.2},
		{hz: 247, length: 160 * time.Millisecond, gain: 0.2},
	}}
)

// outcomeCues is what plays when a session finishes.
var outcomeCues = map[session.OutcomeKind]cue{
	session.OutcomeTyped:                typedCue,
	session.OutcomeNothingCaptured:      emptyCue,
	session.OutcomeNoSpeech:             emptyCue,
	session.OutcomeAborted:              emptyCue,
	session.OutcomeDeviceUnavailable:    deviceCue,
	session.OutcomeCaptureFailed:        deviceCue,
	session.OutcomeTranscriptionFailed:  failureCue,
	session.OutcomeTranscriptionTimeout: failureCue,
	session.OutcomeInjectionFailed:      failureCue,
}

func cueFor(kind session.OutcomeKind) cue {
	if c, ok := outcomeCues[kind]; ok {
		return c
	}
	if kind.Failed() {
		return failureCue
	}
	return emptyCue
}

func (c cue) render() []int16 {
	gap := make([]int16, samplesIn(cueGap))
	var pcm []int16
	for i, t := range c.tones {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = t.appendTo(pcm)
	}
	return pcm
}

// appendTo writes the tone with a linear attack and release of at most 5ms.
func (t tone) appendTo(pcm []int16) []int16 {
	n := samplesIn(t.length)
	if n == 0 || t.hz <= 0 || t.gain <= 0 {
		return pcm
	}
	ramp := max(1, min(n/10, cueRate/200))
	step := 2 * math.Pi * t.hz / cueRate
	for i := range n {
		env := math.Min(1, float64(min(i, n-1-i))/float64(ramp))
		pcm = append(pcm, int16(math.Round(math.Sin(step*float64(i))*t.gain*env*math.MaxInt16)))
	}
	return pcm
}

func samplesIn(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueRate))
}

// pulsePlayer plays cues over one pulse connection. The connection opens on
// first use and is dropped after a failure so the next cue reconnects.
type pulsePlayer struct {
	client *pulse.Client
}

func (p *pulsePlayer) play(pcm []int16) error {
	if len(pcm) == 0 {
		return nil
	}
	if p.client == nil {
		client, err := pulse.NewClient(
			pulse.ClientApplicationName("voxtype"),
			pulse.ClientApplicationIconName("audio-input-microphone"),
		)
		if err != nil {
			return fmt.Errorf("connect pulse server: %w", err)
		}
		p.client = client
	}

	stream, err := p.client.NewPlayback(
		pulse.Int16Reader(pcmReader(pcm)),
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("voxtype cue"),
	)
	if err != nil {
		p.close()
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		p.close()
		return fmt.Errorf("play cue stream: %w", err)
	}
	return nil
}

func (p *pulsePlayer) close() {
	if p.client != nil {
		p.client.Close()
		p.client = nil
	}
}

// pcmReader hands out pcm in pulse-sized chunks and reports EndOfData with
// the final chunk.
func pcmReader(pcm []int16) func([]int16) (int, error) {
	return func(buf []int16) (int, error) {
		n := copy(buf, pcm)
		pcm = pcm[n:]
		if len(pcm) == 0 {
			return n, pulse.EndOfData
		}
		return n, nil
	}
}
