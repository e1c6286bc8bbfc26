package triage

import (
	"context"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/prompt"
	"github.com/kapu/nyaay-triage-go/internal/util"
	"github.com/kapu/nyaay-triage-go/pkg/errors"
	"go.uber.org/zap"
)

// Sampling temperatures used when none are configured.
const (
	DefaultClassifyTemperature float32 = 0.2
	DefaultAdviceTemperature   float32 = 0.6
)

type RemoteConfig struct {
	ClassifyTemperature float32
	AdviceTemperature   float32
}

// RemoteTriage asks the language model for its own classification and then
// for advice. The two calls are sequential: advice is conditioned on the
// classification.
type RemoteTriage struct {
	model               LanguageModel
	prompts             *prompt.PromptBuilder
	classifyTemperature float32
	adviceTemperature   float32
	logger              *zap.Logger
}

func NewRemoteTriage(model LanguageModel, prompts *prompt.PromptBuilder, cfg RemoteConfig, logger *zap.Logger) *RemoteTriage {
	if prompts == nil {
		prompts = prompt.DefaultPromptBuilder()
	}
	if cfg.ClassifyTemperature <= 0 {
		cfg.ClassifyTemperature = DefaultClassifyTemperature
	}
	if cfg.AdviceTemperature <= 0 {
		cfg.AdviceTemperature = DefaultAdviceTemperature
	}
	return &RemoteTriage{
		model:               model,
		prompts:             prompts,
		classifyTemperature: cfg.ClassifyTemperature,
		adviceTemperature:   cfg.AdviceTemperature,
		logger:              logger,
	}
}

// ClassifyGPT sends the raw query, with the local legal-issue label as a
// hint, and parses the structured answer.
func (rt *RemoteTriage) ClassifyGPT(ctx context.Context, query, localLegalIssue string) (domain.RemoteClassification, error) {
	rendered, err := rt.prompts.Render(prompt.TemplateClassify, prompt.ClassifyData{
		UserQuery:       query,
		LocalLegalIssue: localLegalIssue,
	})
	if err != nil {
		return domain.RemoteClassification{}, errors.NewModelUnavailableError(errors.StageRemoteClassify, err)
	}

	text, err := rt.complete(ctx, errors.StageRemoteClassify, domain.CompletionRequest{
		System:      rendered.System,
		Prompt:      rendered.User,
		Temperature: rt.classifyTemperature,
		JSON:        true,
	})
	if err != nil {
		return domain.RemoteClassification{}, err
	}

	classification, err := ParseClassification(text)
	if err != nil {
		rt.logger.Warn("Malformed classification from language model",
			zap.Error(err),
			zap.String("response_preview", util.Preview(text, 200)),
		)
		return domain.RemoteClassification{}, err
	}

	return classification, nil
}

// GenerateAdvice returns the model's advice text verbatim.
func (rt *RemoteTriage) GenerateAdvice(ctx context.Context, query, legalIssue, bias, urgency string) (string, error) {
	rendered, err := rt.prompts.Render(prompt.TemplateAdvice, prompt.AdviceData{
		UserQuery:  query,
		LegalIssue: legalIssue,
		Bias:       bias,
		Urgency:    urgency,
	})
	if err != nil {
		return "", errors.NewModelUnavailableError(errors.StageGenerateAdvice, err)
	}

	return rt.complete(ctx, errors.StageGenerateAdvice, domain.CompletionRequest{
		System:      rendered.System,
		Prompt:      rendered.User,
		Temperature: rt.adviceTemperature,
	})
}

func (rt *RemoteTriage) complete(ctx context.Context, stage errors.Stage, req domain.CompletionRequest) (string, error) {
	if rt.model == nil {
		return "", errors.NewModelUnavailableError(stage, nil)
	}

	text, err := rt.model.Complete(ctx, req)
	if err != nil {
		rt.logger.Warn("Language model call failed",
			zap.String("stage", string(stage)),
			zap.Error(err),
		)
		if te, ok := errors.AsTriageError(err); ok {
			return "", te
		}
		return "", errors.NewModelUnavailableError(stage, err)
	}
	return text, nil
}
