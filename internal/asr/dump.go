package asr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/voxtype/internal/audio"
)

// AudioDump wraps an Engine and writes each buffer it receives to a WAV
// file in dir before transcribing. Dump failures are logged and never fail
// the transcription.
type AudioDump struct {
	engine Engine
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

func NewAudioDump(engine Engine, dir string, logger *slog.Logger) *AudioDump {
	return &AudioDump{engine: engine, dir: dir, logger: logger, now: time.Now}
}

func (d *AudioDump) Name() string { return d.engine.Name() }

func (d *AudioDump) Transcribe(ctx context.Context, buf audio.Buffer) (string, error) {
	path, err := d.write(buf)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("unable to write debug audio dump", "error", err.Error())
		}
	} else if d.logger != nil {
		d.logger.Debug("debug audio dump written", "path", path, "audio_ms", buf.Duration().Milliseconds())
	}
	return d.engine.Transcribe(ctx, buf)
}

func (d *AudioDump) write(buf audio.Buffer) (string, error) {
	if err := os.MkdirAll(d.dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}
	name := fmt.Sprintf("audio-%s.wav", d.now().Format("20060102-150405.000"))
	path := filepath.Join(d.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug file %q: %w", path, err)
	}
	if err := buf.WriteWAV(f); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}

// DebugDir is $XDG_STATE_HOME/voxtype/debug, falling back to ~/.local/state.
func DebugDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxtype", "debug"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state", "voxtype", "debug"), nil
}
