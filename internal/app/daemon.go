package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/voxtype/internal/asr"
	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/config"
	"github.com/rbright/voxtype/internal/hotkey"
	"github.com/rbright/voxtype/internal/indicator"
	"github.com/rbright/voxtype/internal/inject"
	"github.com/rbright/voxtype/internal/ipc"
	"github.com/rbright/voxtype/internal/session"
	"github.com/rbright/voxtype/internal/transcript"
)

// shutdownGrace is added to the transcription timeout when waiting for an
// in-flight session on exit, so a transcript already on its way still types.
const shutdownGrace = 5 * time.Second

func (r Runner) commandRun(ctx context.Context, loaded config.Loaded, logger *slog.Logger) int {
	cfg, combo := loaded.Config, loaded.Combo

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	sock, err := ipc.Acquire(ctx, socketPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		if err := sock.Close(); err != nil {
			logger.Debug("close control socket", "error", err.Error())
		}
	}()

	d, err := buildDaemon(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("daemon setup failed", "error", err.Error())
		return 1
	}
	defer d.close(logger)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, sock, statusHandler(d.controller, combo))
	}()

	logger.Info("voxtype ready",
		"combo", combo.String(),
		"keys", cfg.Hotkey.Source,
		"audio", cfg.Audio.Backend,
		"asr", cfg.ASR.Backend,
		"inject", cfg.Inject.ResolveBackend(),
		"socket", sock.Path(),
	)

	monitor := hotkey.NewMonitor(combo, d.source, logger)
	runErr := monitor.Run(ctx, d.controller.HandleSignal)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Session.TranscriptionTimeout()+shutdownGrace)
	defer cancel()
	if err := d.controller.Shutdown(shutdownCtx); err != nil {
		logger.Warn("controller shutdown incomplete", "error", err.Error())
	}

	serverCancel()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	if runErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", runErr)
		return 1
	}
	logger.Info("voxtype stopped")
	return 0
}

// statusHandler serves controller requests and stamps the configured combo
// onto status snapshots.
func statusHandler(ctrl *session.Controller, combo hotkey.Combo) ipc.Handler {
	return ipc.HandlerFunc(func(ctx context.Context, req ipc.Request) ipc.Response {
		resp := ctrl.HandleRequest(ctx, req)
		if resp.Status != nil {
			resp.Status.Combo = combo.String()
		}
		return resp
	})
}

type daemon struct {
	source     hotkey.Source
	controller *session.Controller
	closers    []io.Closer
}

func (d *daemon) close(logger *slog.Logger) {
	if d.source != nil {
		if err := d.source.Close(); err != nil {
			logger.Debug("close key source", "error", err.Error())
		}
	}
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			logger.Debug("close backend", "error", err.Error())
		}
	}
}

// buildDaemon opens every backend named by cfg. On error nothing stays open.
func buildDaemon(ctx context.Context, cfg config.Config, logger *slog.Logger) (d *daemon, err error) {
	d = &daemon{}
	defer func() {
		if err != nil {
			d.close(logger)
			d = nil
		}
	}()

	transcriber, closer, err := buildTranscriber(ctx, cfg, logger)
	if err != nil {
		return d, err
	}
	if closer != nil {
		d.closers = append(d.closers, closer)
	}

	injector, err := buildInjector(cfg.Inject, logger)
	if err != nil {
		return d, err
	}

	notifier, err := indicator.New(indicator.Options{
		Backend:      cfg.Indicator.Backend,
		SoundEnable:  cfg.Indicator.SoundEnable,
		AppName:      cfg.Indicator.AppName,
		ErrorTimeout: time.Duration(cfg.Indicator.ErrorTimeoutMS) * time.Millisecond,
	}, logger)
	if err != nil {
		return d, err
	}
	d.closers = append(d.closers, notifier)

	device, err := buildDevice(cfg.Audio, logger)
	if err != nil {
		return d, err
	}
	format := audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}
	if err := format.Validate(); err != nil {
		return d, fmt.Errorf("audio format: %w", err)
	}
	recorder := audio.NewRecorder(device, format, cfg.Session.MinDuration(), logger)

	source, err := buildKeySource(cfg.Hotkey)
	if err != nil {
		return d, err
	}
	d.source = source

	d.controller = session.NewController(logger, session.AudioRecorder(recorder), transcriber, injector, notifier)
	return d, nil
}

func buildKeySource(cfg config.HotkeyConfig) (hotkey.Source, error) {
	switch cfg.Source {
	case "hook":
		return hotkey.OpenHook(), nil
	case "", "evdev":
		paths := cfg.Devices
		if len(paths) == 0 {
			found, err := hotkey.DiscoverKeyboards()
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, errors.New("no keyboard event devices found; set hotkey.devices or use hotkey.source=hook")
			}
			paths = found
		}
		return hotkey.OpenEvdev(paths)
	default:
		return nil, fmt.Errorf("unsupported hotkey source %q", cfg.Source)
	}
}

func buildDevice(cfg config.AudioConfig, logger *slog.Logger) (audio.Device, error) {
	switch cfg.Backend {
	case "", "pulse":
		return &audio.PulseDevice{Input: cfg.Input, Fallback: cfg.Fallback, Logger: logger}, nil
	case "malgo":
		return audio.MalgoDevice{}, nil
	case "portaudio":
		return audio.PortAudioDevice{Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported audio backend %q", cfg.Backend)
	}
}

func buildTranscriber(ctx context.Context, cfg config.Config, logger *slog.Logger) (*asr.Gateway, io.Closer, error) {
	engine, closer, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Log.AudioDump {
		dir, err := asr.DebugDir()
		if err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, nil, err
		}
		engine = asr.NewAudioDump(engine, dir, logger)
	}
	return asr.NewGateway(engine, cfg.Session.TranscriptionTimeout(), logger), closer, nil
}

func buildEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (asr.Engine, io.Closer, error) {
	opts := transcript.Options{
		TrailingSpace:    cfg.Transcript.TrailingSpace,
		StripAnnotations: cfg.Transcript.StripAnnotations,
	}

	switch cfg.ASR.Backend {
	case "", "openai":
		engine, err := asr.NewOpenAIEngine(asr.OpenAIConfig{
			APIKey:     strings.TrimSpace(os.Getenv(cfg.ASR.APIKeyEnv)),
			BaseURL:    cfg.ASR.BaseURL,
			Model:      cfg.ASR.Model,
			Language:   cfg.ASR.Language,
			Prompt:     cfg.ASR.Prompt,
			Transcript: opts,
			Logger:     logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return engine, nil, nil
	case "google":
		plan, _, err := config.BuildSpeechPhrases(cfg)
		if err != nil {
			return nil, nil, err
		}
		phrases := make([]asr.Phrase, 0, len(plan))
		for _, p := range plan {
			phrases = append(phrases, asr.Phrase{Text: p.Phrase, Boost: p.Boost})
		}
		if logger != nil {
			logger.Debug("speech context plan", "phrase_count", len(phrases))
		}

		engine, err := asr.NewGoogleEngine(ctx, asr.GoogleConfig{
			Endpoint:        cfg.ASR.Endpoint,
			Insecure:        cfg.ASR.Insecure,
			CredentialsFile: cfg.ASR.CredentialsFile,
			LanguageCode:    cfg.ASR.Language,
			Model:           cfg.ASR.Model,
			Punctuation:     cfg.ASR.AutomaticPunctuation,
			Phrases:         phrases,
			Transcript:      opts,
			Logger:          logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return engine, engine, nil
	default:
		return nil, nil, fmt.Errorf("unsupported asr backend %q", cfg.ASR.Backend)
	}
}

func buildInjector(cfg config.InjectConfig, logger *slog.Logger) (*inject.Gateway, error) {
	var uinput *inject.UinputTyper
	sharedUinput := func() *inject.UinputTyper {
		if uinput == nil {
			uinput = inject.NewUinputTyper()
		}
		return uinput
	}
	clipboardTyper := func() *inject.ClipboardTyper {
		var paster inject.Paster
		if cfg.Paste == "hypr" {
			paster = inject.HyprPaster{Shortcut: cfg.PasteShortcut}
		} else {
			paster = inject.NewKeyboardPaster(sharedUinput())
		}
		return inject.NewClipboardTyper(paster, cfg.RestoreClipboard)
	}

	var primary inject.Typer
	backend := cfg.ResolveBackend()
	switch backend {
	case "", "ydotool", "command":
		if len(cfg.Command.Argv) == 0 {
			return nil, errors.New("inject.command is empty")
		}
		primary = inject.CommandTyper{Argv: cfg.Command.Argv, Socket: cfg.YdotoolSocket}
	case "uinput":
		primary = sharedUinput()
	case "clipboard":
		primary = clipboardTyper()
	default:
		return nil, fmt.Errorf("unsupported inject backend %q", cfg.Backend)
	}
	if backend != cfg.Backend && logger != nil {
		logger.Debug("inject backend resolved", "configured", cfg.Backend, "backend", backend)
	}

	var opts []inject.Option
	if cfg.FallbackClipboard && backend != "clipboard" {
		opts = append(opts, inject.WithFallback(clipboardTyper()))
	}
	if cfg.RequireFocus {
		opts = append(opts, inject.WithFocusCheck(inject.HyprFocus{}))
	}
	return inject.NewGateway(primary, logger, opts...), nil
}
