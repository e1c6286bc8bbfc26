package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/kapu/nyaay-triage-go/internal/constants"
	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// transcriptionAPI is the slice of the OpenAI client the transcriber uses.
type transcriptionAPI interface {
	New(ctx context.Context, body openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (string, error)
}

// openAITranscriptions adapts the SDK service to transcriptionAPI.
type openAITranscriptions struct {
	client *openai.Client
}

func (o openAITranscriptions) New(ctx context.Context, body openai.AudioTranscriptionNewParams, opts ...option.RequestOption) (string, error) {
	resp, err := o.client.Audio.Transcriptions.New(ctx, body, opts...)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// WhisperTranscriber sends audio to the OpenAI transcription endpoint.
type WhisperTranscriber struct {
	api         transcriptionAPI
	model       string
	retryPolicy util.RetryPolicy
	logger      *zap.Logger
}

type WhisperConfig struct {
	APIKey string
	Model  string
}

func NewWhisperTranscriber(cfg WhisperConfig, logger *zap.Logger, opts ...option.RequestOption) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for transcription")
	}
	if cfg.Model == "" {
		cfg.Model = constants.ModelDefaults.TranscriptionModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client := openai.NewClient(opts...)

	return newWhisperTranscriber(openAITranscriptions{client: &client}, cfg.Model, logger), nil
}

func newWhisperTranscriber(api transcriptionAPI, model string, logger *zap.Logger) *WhisperTranscriber {
	return &WhisperTranscriber{
		api:   api,
		model: model,
		retryPolicy: util.RetryPolicy{
			MaxRetries: constants.RetryConfig.MaxRetries,
			BaseDelay:  constants.RetryConfig.BaseDelay,
		},
		logger: logger,
	}
}

// Transcribe satisfies triage.Transcriber.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio domain.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", fmt.Errorf("audio is empty")
	}

	filename, contentType := uploadName(audio)

	w.logger.Debug("Transcribing audio",
		zap.String("model", w.model),
		zap.String("filename", filename),
		zap.Int("bytes", len(audio.Data)),
	)

	var text string
	err := util.Retry(ctx, w.retryPolicy, isTransientTranscriptionError, func(ctx context.Context) error {
		params := openai.AudioTranscriptionNewParams{
			File:  openai.File(bytes.NewReader(audio.Data), filename, contentType),
			Model: openai.AudioModel(w.model),
		}
		out, err := w.api.New(ctx, params)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", filename, err)
	}

	return strings.TrimSpace(text), nil
}

func isTransientTranscriptionError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "connection reset")
}

// uploadName derives a filename the API can infer the container from. The
// caller's filename wins; otherwise the bytes are sniffed.
func uploadName(audio domain.Audio) (string, string) {
	contentType := http.DetectContentType(audio.Data)

	if ext := strings.ToLower(filepath.Ext(audio.Filename)); ext != "" {
		return "audio" + ext, contentType
	}

	switch {
	case strings.HasPrefix(contentType, "audio/wave"), strings.HasPrefix(contentType, "audio/wav"):
		return "audio.wav", contentType
	case strings.HasPrefix(contentType, "audio/mpeg"):
		return "audio.mp3", contentType
	case strings.HasPrefix(contentType, "application/ogg"), strings.HasPrefix(contentType, "audio/ogg"):
		return "audio.ogg", contentType
	case strings.HasPrefix(contentType, "audio/mp4"), strings.HasPrefix(contentType, "video/mp4"):
		return "audio.m4a", contentType
	default:
		return "audio.webm", "audio/webm"
	}
}
