package app

import (
	"context"
	"fmt"

	"github.com/kapu/nyaay-triage-go/internal/config"
	"github.com/kapu/nyaay-triage-go/internal/prompt"
	"github.com/kapu/nyaay-triage-go/internal/server"
	"github.com/kapu/nyaay-triage-go/internal/service/ai"
	"github.com/kapu/nyaay-triage-go/internal/service/cache"
	"github.com/kapu/nyaay-triage-go/internal/service/catalog"
	"github.com/kapu/nyaay-triage-go/internal/service/classifier"
	"github.com/kapu/nyaay-triage-go/internal/service/database"
	"github.com/kapu/nyaay-triage-go/internal/service/speech"
	"github.com/kapu/nyaay-triage-go/internal/service/triage"
	"go.uber.org/zap"
)

// Container bundles the assembled services. Everything in it is read-only
// after Build returns and is shared by all requests.
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	Pipeline *triage.Pipeline
	Models   *ai.ModelManager

	closers []func()
}

// NewServer builds the HTTP front end around the pipeline.
func (c *Container) NewServer() (*server.Server, error) {
	if c == nil || c.Pipeline == nil {
		return nil, fmt.Errorf("pipeline not initialized")
	}
	return server.New(server.Config{
		Addr:               c.Config.Server.Addr,
		RequestTimeout:     c.Config.Server.RequestTimeout,
		MaxAudioBytes:      c.Config.Server.MaxAudioBytes,
		MaxQueryLength:     c.Config.Server.MaxQueryLength,
		CORSAllowedOrigins: c.Config.Server.CORSAllowedOrigins,
		RateLimitPerSecond: c.Config.Server.RateLimitPerSecond,
		RateLimitBurst:     c.Config.Server.RateLimitBurst,
	}, c.Pipeline, c.health, c.Logger), nil
}

func (c *Container) health() map[string]any {
	status := map[string]any{"status": "ok"}
	if c.Models != nil {
		status["language_model"] = c.Models.GetCircuitStatus()
	}
	return status
}

// Close releases connections opened during Build, newest first.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build loads every shared resource (prompts, classifiers, model clients and
// provider catalogs) and wires them into a triage pipeline. A failure here
// means the process must not start serving.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	prompts := prompt.DefaultPromptBuilder()
	if err := prompts.Preload(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	// AI stack
	primary := ai.NewOpenAIProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	if primary == nil {
		return nil, fmt.Errorf("OpenAI provider requires an API key")
	}

	mmCfg := ai.ModelManagerConfig{Primary: primary}
	if cfg.Gemini.EnableFallback {
		gemini, gErr := ai.NewGeminiProvider(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, logger)
		if gErr != nil {
			logger.Warn("Gemini fallback unavailable", zap.Error(gErr))
		} else if gemini != nil {
			mmCfg.Fallback = gemini
		}
	}

	modelManager, err := ai.NewModelManager(mmCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create model manager: %w", err)
	}

	transcriber, err := speech.NewWhisperTranscriber(speech.WhisperConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.TranscriptionModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	bias, legalIssue, urgency, err := buildClassifiers(cfg.Classifier, logger)
	if err != nil {
		return nil, err
	}

	// Catalogs
	source, sourceClosers, err := buildCatalogSource(ctx, cfg, logger)
	closers = append(closers, sourceClosers...)
	if err != nil {
		return nil, err
	}

	catalogs, err := catalog.LoadAll(ctx, source, catalog.NameLawyers, catalog.NameNGOs)
	if err != nil {
		return nil, fmt.Errorf("failed to load provider catalogs: %w", err)
	}
	lawyers := catalogs[catalog.NameLawyers]
	ngos := catalogs[catalog.NameNGOs]

	logger.Info("Provider catalogs loaded",
		zap.String("source", cfg.Catalog.Source),
		zap.Int("lawyers", lawyers.Len()),
		zap.String("lawyers_secondary_key", lawyers.SecondaryKey()),
		zap.Int("ngos", ngos.Len()),
		zap.String("ngos_secondary_key", ngos.SecondaryKey()),
	)

	pipeline := triage.NewPipeline(triage.Resources{
		BiasClassifier:       bias,
		LegalIssueClassifier: legalIssue,
		UrgencyClassifier:    urgency,
		Model:                modelManager,
		Transcriber:          transcriber,
		Lawyers:              lawyers,
		NGOs:                 ngos,
	}, prompts, triage.PipelineConfig{
		Remote: triage.RemoteConfig{
			ClassifyTemperature: cfg.Triage.ClassifyTemperature,
			AdviceTemperature:   cfg.Triage.AdviceTemperature,
		},
		RecommendationLimit: cfg.Triage.MaxRecommendations,
	}, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Pipeline: pipeline,
		Models:   modelManager,
		closers:  closers,
	}, nil
}

func buildClassifiers(cfg config.ClassifierConfig, logger *zap.Logger) (bias, legalIssue, urgency triage.LocalClassifier, err error) {
	switch cfg.Backend {
	case config.ClassifierBackendHTTP:
		client := classifier.NewClient(cfg.URL, nil, logger)
		logger.Info("Using remote classifier service", zap.String("url", cfg.URL))
		return client.For(triage.CategoryBias), client.For(triage.CategoryLegalIssue), client.For(triage.CategoryUrgency), nil

	case config.ClassifierBackendKeyword:
		var rules classifier.RuleSet
		if cfg.RulesFile != "" {
			rules, err = classifier.LoadRules(cfg.RulesFile)
		} else {
			rules, err = classifier.DefaultRuleSet()
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load classifier rules: %w", err)
		}

		out := make([]triage.LocalClassifier, 0, 3)
		for _, category := range []string{triage.CategoryBias, triage.CategoryLegalIssue, triage.CategoryUrgency} {
			kc, kErr := rules.Classifier(category)
			if kErr != nil {
				return nil, nil, nil, fmt.Errorf("failed to build %s classifier: %w", category, kErr)
			}
			out = append(out, kc)
		}
		logger.Info("Using keyword classifiers", zap.String("rules_file", cfg.RulesFile))
		return out[0], out[1], out[2], nil
	}

	return nil, nil, nil, fmt.Errorf("unknown classifier backend %q", cfg.Backend)
}

// buildCatalogSource returns the configured source, wrapped in a Redis
// snapshot when Redis is enabled. Closers are returned even on error.
func buildCatalogSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (catalog.Source, []func(), error) {
	var (
		source  catalog.Source
		closers []func()
	)

	switch cfg.Catalog.Source {
	case config.CatalogSourceCSV:
		source = catalog.NewCSVSource(map[string]string{
			catalog.NameLawyers: cfg.Catalog.LawyersCSV,
			catalog.NameNGOs:    cfg.Catalog.NGOsCSV,
		}, logger)

	case config.CatalogSourcePostgres:
		postgresSvc, err := database.NewPostgresService(ctx, database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return nil, closers, fmt.Errorf("failed to create postgres service: %w", err)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})
		source = catalog.NewPostgresSource(postgresSvc, map[string]string{
			catalog.NameLawyers: cfg.Catalog.LawyersTable,
			catalog.NameNGOs:    cfg.Catalog.NGOsTable,
		}, logger)

	default:
		return nil, closers, fmt.Errorf("unknown catalog source %q", cfg.Catalog.Source)
	}

	if !cfg.Redis.Enabled {
		return source, closers, nil
	}

	cacheSvc, err := cache.NewCacheService(ctx, cache.CacheConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		// The snapshot is an accelerator only.
		logger.Warn("Redis unavailable, loading catalogs without snapshot", zap.Error(err))
		return source, closers, nil
	}
	closers = append(closers, func() {
		_ = cacheSvc.Close()
	})

	return catalog.NewSnapshotSource(source, cacheSvc, cfg.Catalog.SnapshotTTL, logger), closers, nil
}
