package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/rbright/voxtype/internal/audio"
	"github.com/rbright/voxtype/internal/transcript"
)

// Phrase is one recognition hint with an optional boost.
type Phrase struct {
	Text  string
	Boost float32
}

// GoogleConfig configures Cloud Speech-to-Text v1 Recognize.
type GoogleConfig struct {
	// Endpoint overrides the API host. With Insecure it is dialed in
	// plaintext, which is how local emulators are reached.
	Endpoint        string
	Insecure        bool
	CredentialsFile string
	LanguageCode    string
	Model           string
	Punctuation     bool
	Phrases         []Phrase
	DialTimeout     time.Duration
	Transcript      transcript.Options
	Logger          *slog.Logger
}

type GoogleEngine struct {
	client *speech.Client
	conn   *grpc.ClientConn
	cfg    GoogleConfig
}

func NewGoogleEngine(ctx context.Context, cfg GoogleConfig) (*GoogleEngine, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)

	if cfg.Insecure {
		if endpoint == "" {
			return nil, errors.New("google engine: insecure transport requires asr.endpoint")
		}
		conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial speech grpc %q: %w", endpoint, err)
		}
		readyCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		conn.Connect()
		if err := waitForReady(readyCtx, conn); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("wait for speech grpc readiness: %w", err)
		}
		return newGoogleEngineWithConn(ctx, conn, cfg)
	}

	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleEngine{client: client, cfg: cfg}, nil
}

func newGoogleEngineWithConn(ctx context.Context, conn *grpc.ClientConn, cfg GoogleConfig) (*GoogleEngine, error) {
	client, err := speech.NewClient(ctx, option.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &GoogleEngine{client: client, conn: conn, cfg: cfg}, nil
}

func (e *GoogleEngine) Name() string { return "google" }

func (e *GoogleEngine) Transcribe(ctx context.Context, buf audio.Buffer) (string, error) {
	format := buf.Format()
	cfg := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            int32(format.SampleRate),
		AudioChannelCount:          int32(format.Channels),
		LanguageCode:               defaultString(e.cfg.LanguageCode, "en-US"),
		Model:                      strings.TrimSpace(e.cfg.Model),
		EnableAutomaticPunctuation: e.cfg.Punctuation,
	}
	for _, phrase := range e.cfg.Phrases {
		text := strings.TrimSpace(phrase.Text)
		if text == "" {
			continue
		}
		cfg.SpeechContexts = append(cfg.SpeechContexts, &speechpb.SpeechContext{Phrases: []string{text}, Boost: phrase.Boost})
	}

	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: buf.PCM16LE()}},
	})
	if err != nil {
		return "", classifyStatus(err)
	}

	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug("speech recognize response", "payload", protojson.Format(resp))
	}

	segments := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		segments = append(segments, alts[0].GetTranscript())
	}
	return transcript.Assemble(segments, e.cfg.Transcript), nil
}

func (e *GoogleEngine) Close() error {
	err := e.client.Close()
	if e.conn != nil {
		err = errors.Join(err, e.conn.Close())
	}
	return err
}

// classifyStatus maps gRPC deadline statuses onto the timeout sentinel.
func classifyStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("speech recognize: %w", err)
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: speech recognize: %s", ErrTranscriptionTimeout, st.Message())
	case codes.Canceled:
		return fmt.Errorf("speech recognize cancelled: %w", context.Canceled)
	default:
		return fmt.Errorf("speech recognize (%s): %s", st.Code(), st.Message())
	}
}

// waitForReady blocks until the connection is Ready or ctx ends.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
