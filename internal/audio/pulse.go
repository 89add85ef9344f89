// Package audio handles input discovery, capture backends, and sealed PCM buffers.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	pulseAppName  = "voxtype"
	fragmentBytes = 640 // 20ms @ 16kHz mono s16
)

// SourceInfo describes one Pulse input source.
type SourceInfo struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus optional fallback warning context.
type Selection struct {
	Source   SourceInfo
	Warning  string
	Fallback bool
}

func newPulseClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName(pulseAppName),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}

// ListSources returns Pulse input sources with default/availability metadata.
func ListSources(_ context.Context) ([]SourceInfo, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var replies pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &replies); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	sources := make([]SourceInfo, 0, len(replies))
	for _, source := range replies {
		if source == nil {
			continue
		}
		sources = append(sources, SourceInfo{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return sources, nil
}

// SelectSource resolves audio.input/audio.fallback preferences against live sources.
func SelectSource(ctx context.Context, input string, fallback string) (Selection, error) {
	sources, err := ListSources(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectSourceFromList(sources, input, fallback)
}

func selectSourceFromList(sources []SourceInfo, input string, fallback string) (Selection, error) {
	if len(sources) == 0 {
		return Selection{}, errors.New("no audio input sources found")
	}

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	var defaultSource, byInput, byFallback *SourceInfo
	for i := range sources {
		src := &sources[i]
		if src.Default {
			defaultSource = src
		}
		if byInput == nil && isNamed(input) && sourceMatches(*src, input) {
			byInput = src
		}
		if byFallback == nil && isNamed(fallback) && sourceMatches(*src, fallback) {
			byFallback = src
		}
	}

	var primary *SourceInfo
	switch {
	case !isNamed(input):
		if defaultSource == nil {
			return Selection{}, errors.New("default audio source is unavailable")
		}
		primary = defaultSource
	case byInput != nil:
		primary = byInput
	default:
		return Selection{}, fmt.Errorf("audio.input %q did not match any source", input)
	}
	if primary.Available && !primary.Muted {
		return Selection{Source: *primary}, nil
	}

	reason := "unavailable"
	if primary.Muted {
		reason = "muted"
	}

	alt := defaultSource
	if isNamed(fallback) {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, reason, fallback)
		}
		alt = byFallback
	} else if alt == nil {
		return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback", primary.ID, reason)
	}

	if !alt.Available {
		return Selection{}, fmt.Errorf("audio fallback source %q is not available", alt.ID)
	}
	if alt.Muted {
		return Selection{}, fmt.Errorf("audio fallback source %q is muted", alt.ID)
	}

	return Selection{
		Source:   *alt,
		Warning:  fmt.Sprintf("audio.input %q is %s; falling back to %q", primary.ID, reason, alt.ID),
		Fallback: primary.ID != alt.ID,
	}, nil
}

func isNamed(term string) bool {
	return term != "" && term != "default"
}

func sourceMatches(source SourceInfo, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(source.ID), term) ||
		strings.Contains(strings.ToLower(source.Description), term)
}

// PulseDevice records from a PulseAudio/PipeWire source chosen per session.
type PulseDevice struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

func (d *PulseDevice) Name() string { return "pulse" }

func (d *PulseDevice) Open(ctx context.Context, format Format, sink func([]int16)) (Stream, error) {
	selection, err := SelectSource(ctx, d.Input, d.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && d.Logger != nil {
		d.Logger.Warn("audio source fallback", "warning", selection.Warning)
	}

	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}
	source, err := client.SourceByID(selection.Source.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Source.ID, err)
	}

	s := &pulseStream{client: client, sink: sink}
	layout := pulse.RecordMono
	if format.Channels == 2 {
		layout = pulse.RecordStereo
	}
	stream, err := client.NewRecord(
		pulse.NewWriter(writerFunc(s.onPCM), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		layout,
		pulse.RecordSampleRate(format.SampleRate),
		pulse.RecordBufferFragmentSize(fragmentBytes*uint32(format.Channels)),
		pulse.RecordMediaName("voxtype dictation"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	s.stream = stream
	stream.Start()
	return s, nil
}

type pulseStream struct {
	client *pulse.Client
	stream *pulse.RecordStream
	sink   func([]int16)

	mu     sync.Mutex
	carry  []byte
	closed bool
}

// onPCM converts Pulse byte frames, holding back a split sample for the next call.
func (s *pulseStream) onPCM(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if len(b) == 0 {
		return 0, nil
	}

	data := b
	if len(s.carry) > 0 {
		data = append(s.carry, b...)
		s.carry = nil
	}
	if len(data)%2 == 1 {
		s.carry = []byte{data[len(data)-1]}
		data = data[:len(data)-1]
	}
	if len(data) > 0 {
		s.sink(decodeS16LE(data))
	}
	return len(b), nil
}

func (s *pulseStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
	}
	s.client.Close()
	return nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

// sourceStateString maps Pulse source state constants to human-readable values.
func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sourceAvailable maps Pulse source port availability to a simple boolean.
func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
