package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	speech "google.golang.org/api/speech/v1"
)

// Recorder placeholders.
const (
	PlaceholderSeconds = "{seconds}"
	PlaceholderRate    = "{rate}"
)

// DefaultRecorder records raw 16-bit mono PCM to stdout.
const DefaultRecorder = "arecord -q -t raw -f S16_LE -c 1 -r {rate} -d {seconds}"

// GoogleConfig configures the Google Speech-to-Text engine.
type GoogleConfig struct {
	// Recorder is the command line that writes raw LINEAR16 audio to stdout.
	Recorder string

	SampleRate int
	Language   string

	// SilenceLevel is the peak amplitude below which a recording counts as
	// silence. Zero disables the check.
	SilenceLevel int

	// APIKey authenticates with an API key. When empty, CredentialsFile is
	// used, then Application Default Credentials.
	APIKey          string
	CredentialsFile string

	// ClientOptions, when set, replace the authentication options above.
	ClientOptions []option.ClientOption

	Logger *slog.Logger
}

// DefaultGoogleConfig returns defaults for a USB microphone on Linux.
func DefaultGoogleConfig() GoogleConfig {
	return GoogleConfig{
		Recorder:     DefaultRecorder,
		SampleRate:   16000,
		Language:     "en-US",
		SilenceLevel: 500,
	}
}

// GoogleCapturer records audio locally and transcribes it remotely.
type GoogleCapturer struct {
	svc      *speech.Service
	recorder []string
	cfg      GoogleConfig
	logger   *slog.Logger
}

// NewGoogleCapturer creates the speech client.
func NewGoogleCapturer(ctx context.Context, cfg GoogleConfig) (*GoogleCapturer, error) {
	recorder, err := shlex.Split(cfg.Recorder)
	if err != nil {
		return nil, fmt.Errorf("capture: parse recorder: %w", err)
	}
	if len(recorder) == 0 {
		return nil, errors.New("capture: recorder command required")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("capture: sample rate must be positive, got %d", cfg.SampleRate)
	}

	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := speech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("capture: create speech service: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &GoogleCapturer{
		svc:      svc,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.With("component", "capture.google"),
	}, nil
}

func clientOptions(ctx context.Context, cfg GoogleConfig) ([]option.ClientOption, error) {
	switch {
	case len(cfg.ClientOptions) > 0:
		return cfg.ClientOptions, nil

	case cfg.APIKey != "":
		return []option.ClientOption{option.WithAPIKey(cfg.APIKey)}, nil

	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("capture: read credentials: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, speech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("capture: parse credentials: %w", err)
		}
		return []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, creds.TokenSource))}, nil

	default:
		client, err := google.DefaultClient(ctx, speech.CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("capture: default credentials: %w", err)
		}
		return []option.ClientOption{option.WithHTTPClient(client)}, nil
	}
}

// Capture records for up to timeout and transcribes the audio.
func (g *GoogleCapturer) Capture(ctx context.Context, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	audio, err := g.record(ctx, timeout)
	if ctx.Err() != nil {
		return Interrupted(ctx.Err())
	}
	if err != nil {
		return Fatal(err)
	}
	if len(audio) == 0 || silent(audio, g.cfg.SilenceLevel) {
		return Timeout()
	}

	return g.Transcribe(ctx, audio)
}

// Transcribe sends LINEAR16 audio to the recognizer.
func (g *GoogleCapturer) Transcribe(ctx context.Context, audio []byte) Result {
	start := time.Now()

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: int64(g.cfg.SampleRate),
			LanguageCode:    g.cfg.Language,
			MaxAlternatives: 1,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return Interrupted(ctx.Err())
		}
		return Fatal(fmt.Errorf("capture: recognize: %w", err))
	}

	var parts []string
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}

	g.logger.Debug("recognized",
		"results", len(resp.Results),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if len(parts) == 0 {
		return Unintelligible()
	}
	return OK(strings.Join(parts, " "))
}

// record runs the recorder with placeholders filled in.
func (g *GoogleCapturer) record(ctx context.Context, timeout time.Duration) ([]byte, error) {
	seconds := int(math.Ceil(timeout.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	args := make([]string, len(g.recorder))
	for i, a := range g.recorder {
		a = strings.ReplaceAll(a, PlaceholderSeconds, strconv.Itoa(seconds))
		a = strings.ReplaceAll(a, PlaceholderRate, strconv.Itoa(g.cfg.SampleRate))
		args[i] = a
	}

	// Grace period for recorder startup and flush.
	ctx, cancel := context.WithTimeout(ctx, timeout+2*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stdout.Len() > 0 && ctx.Err() == context.DeadlineExceeded {
			return stdout.Bytes(), nil
		}
		return nil, fmt.Errorf("capture: recorder %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// silent reports whether every 16-bit little-endian sample is below level.
func silent(pcm []byte, level int) bool {
	if level <= 0 {
		return false
	}
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int(int16(binary.LittleEndian.Uint16(pcm[i:])))
		if s >= level || s <= -level {
			return false
		}
	}
	return true
}

var _ Capturer = (*GoogleCapturer)(nil)
