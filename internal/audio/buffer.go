package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrSealed is returned when samples arrive after the buffer was sealed.
var ErrSealed = errors.New("audio buffer is sealed")

// silenceFraction of full scale below which a buffer counts as silent.
const silenceFraction = 0.01

// Format describes interleaved signed 16-bit PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is what speech engines expect: 16kHz mono.
var DefaultFormat = Format{SampleRate: 16000, Channels: 1}

func (f Format) Validate() error {
	if f.SampleRate < 8000 || f.SampleRate > 48000 {
		return fmt.Errorf("sample rate %d out of range [8000,48000]", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", f.Channels)
	}
	return nil
}

// Buffer is a sealed, immutable recording handed from capture to transcription.
type Buffer struct {
	format  Format
	samples []int16
}

// NewBuffer returns a sealed buffer holding a copy of samples.
func NewBuffer(format Format, samples []int16) Buffer {
	return Buffer{format: format, samples: append([]int16(nil), samples...)}
}

func (b Buffer) Format() Format { return b.format }

// Frames is the number of complete sample frames.
func (b Buffer) Frames() int {
	if b.format.Channels <= 0 {
		return 0
	}
	return len(b.samples) / b.format.Channels
}

func (b Buffer) Empty() bool { return b.Frames() == 0 }

// Duration derives from the frame count, not wall-clock capture time.
func (b Buffer) Duration() time.Duration {
	if b.format.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.format.SampleRate)
}

// Samples returns a copy of the interleaved samples.
func (b Buffer) Samples() []int16 {
	return append([]int16(nil), b.samples...)
}

// PCM16LE encodes the samples as little-endian bytes.
func (b Buffer) PCM16LE() []byte {
	out := make([]byte, len(b.samples)*2)
	for i, s := range b.samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Peak returns the largest absolute sample value.
func (b Buffer) Peak() int {
	peak := 0
	for _, s := range b.samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Silent reports a peak below 1% of full scale.
func (b Buffer) Silent() bool {
	return float64(b.Peak()) < silenceFraction*32767
}

// WriteWAV frames the buffer as a 16-bit PCM WAV stream.
func (b Buffer) WriteWAV(w io.WriteSeeker) error {
	if err := b.format.Validate(); err != nil {
		return err
	}
	data := make([]int, len(b.samples))
	for i, s := range b.samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, b.format.SampleRate, 16, b.format.Channels, 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: b.format.Channels, SampleRate: b.format.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// accumulator collects samples while a capture session is live.
type accumulator struct {
	mu      sync.Mutex
	format  Format
	samples []int16
	sealed  bool
}

func newAccumulator(format Format) *accumulator {
	return &accumulator{
		format:  format,
		samples: make([]int16, 0, format.SampleRate*format.Channels*4),
	}
}

// append copies samples; backends may reuse their slice after the call.
func (a *accumulator) append(samples []int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return ErrSealed
	}
	a.samples = append(a.samples, samples...)
	return nil
}

// seal transfers ownership of the samples to the returned Buffer.
func (a *accumulator) seal() Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		return Buffer{format: a.format}
	}
	a.sealed = true
	buf := Buffer{format: a.format, samples: a.samples}
	a.samples = nil
	return buf
}

// decodeS16LE converts little-endian PCM bytes; a trailing odd byte is dropped.
func decodeS16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
