package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/transcript"
)

// OpenAIConfig configures an OpenAI-compatible /audio/transcriptions engine.
// BaseURL points it at local servers (whisper.cpp, faster-whisper, speaches).
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Language   string
	Prompt     string
	TempDir    string
	Transcript transcript.Options
	Logger     *slog.Logger
}

type OpenAIEngine struct {
	client openai.Client
	cfg    OpenAIConfig
}

func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("openai engine requires a model")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai engine requires an api key unless asr.base_url is set")
	}

	opts := []option.RequestOption{option.WithMaxRetries(1)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else {
		// Local servers ignore the key but the client still sends a header.
		opts = append(opts, option.WithAPIKey("local"))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIEngine{client: openai.NewClient(opts...), cfg: cfg}, nil
}

func (e *OpenAIEngine) Name() string { return "openai" }

func (e *OpenAIEngine) Transcribe(ctx context.Context, buf audio.Buffer) (string, error) {
	f, err := os.CreateTemp(e.cfg.TempDir, "voxtype-"+uuid.NewString()+"-*.wav")
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}()

	if err := buf.WriteWAV(f); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload file: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(f, "speech.wav", "audio/wav"),
		Model: openai.AudioModel(e.cfg.Model),
	}
	if e.cfg.Language != "" {
		params.Language = openai.String(e.cfg.Language)
	}
	if e.cfg.Prompt != "" {
		params.Prompt = openai.String(e.cfg.Prompt)
	}

	resp, err := e.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai transcription: status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug("openai transcription response", "model", e.cfg.Model, "raw_length", len(resp.Text))
	}
	return transcript.Assemble([]string{resp.Text}, e.cfg.Transcript), nil
}
