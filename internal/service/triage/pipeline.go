package triage

import (
	"context"
	"strings"
	"time"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/prompt"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"go.uber.org/zap"
)

type PipelineConfig struct {
	Remote              RemoteConfig
	RecommendationLimit int
}

// Pipeline turns a query into a TriageResult. It holds only the shared
// read-only Resources, so a single Pipeline serves concurrent requests.
type Pipeline struct {
	resources Resources
	local     *LocalTriage
	remote    *RemoteTriage
	ranker    *ReferralRanker
	logger    *zap.Logger
}

func NewPipeline(resources Resources, prompts *prompt.PromptBuilder, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resources: resources,
		local: NewLocalTriage(
			resources.BiasClassifier,
			resources.LegalIssueClassifier,
			resources.UrgencyClassifier,
			logger,
		),
		remote: NewRemoteTriage(resources.Model, prompts, cfg.Remote, logger),
		ranker: NewReferralRanker(cfg.RecommendationLimit),
		logger: logger,
	}
}

// Triage runs every stage in order and aborts on the first failure. The
// returned error is always a *errors.TriageError; a result is never partial.
func (p *Pipeline) Triage(ctx context.Context, query domain.Query) (*domain.TriageResult, error) {
	started := time.Now()

	if !query.HasText() && !query.HasAudio() {
		return nil, errors.NewEmptyQueryError()
	}

	text := query.Text
	source := domain.QuerySourceText

	// Audio wins over caller-supplied text when both are present.
	if query.HasAudio() {
		transcribed, err := p.transcribe(ctx, *query.Audio)
		if err != nil {
			return nil, err
		}
		text = transcribed
		source = domain.QuerySourceAudio
	}

	normalized := Normalize(text)

	labels, err := p.local.Classify(ctx, normalized)
	if err != nil {
		return nil, err
	}

	classification, err := p.remote.ClassifyGPT(ctx, text, labels.LegalIssue)
	if err != nil {
		return nil, err
	}

	advice, err := p.remote.GenerateAdvice(ctx, text, classification.LegalIssue, classification.Bias, classification.Urgency)
	if err != nil {
		return nil, err
	}
	classification.Advice = advice

	// Routing follows the local legal-issue label.
	lawyers := p.ranker.Rank(p.resources.Lawyers, labels.LegalIssue)
	ngos := p.ranker.Rank(p.resources.NGOs, labels.LegalIssue)

	p.logger.Info("Triage complete",
		zap.String("source", string(source)),
		zap.String("legal_issue", labels.LegalIssue),
		zap.String("gpt_legal_issue", classification.LegalIssue),
		zap.Int("lawyers", len(lawyers)),
		zap.Int("ngos", len(ngos)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &domain.TriageResult{
		Query:       text,
		Source:      source,
		LocalLabels: labels,
		Remote:      classification,
		Advice:      advice,
		Lawyers:     lawyers,
		NGOs:        ngos,
	}, nil
}

func (p *Pipeline) transcribe(ctx context.Context, audio domain.Audio) (string, error) {
	if p.resources.Transcriber == nil {
		return "", errors.NewTranscriptionError("no transcriber configured", nil)
	}

	text, err := p.resources.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		p.logger.Warn("Transcription failed",
			zap.String("filename", audio.Filename),
			zap.Int("bytes", len(audio.Data)),
			zap.Error(err),
		)
		if te, ok := errors.AsTriageError(err); ok {
			return "", te
		}
		return "", errors.NewTranscriptionError("audio transcription failed", err)
	}

	if strings.TrimSpace(text) == "" {
		return "", errors.NewTranscriptionError("transcription produced no text", nil)
	}

	p.logger.Debug("Audio transcribed", zap.Int("length", len(text)))
	return text, nil
}
