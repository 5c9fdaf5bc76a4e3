package assistant

import (
	"context"
	"database/sql"

	"github.com/ZanzyTHEbar/siteops/siteops/assistant/adapters"
	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/config"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
	"github.com/rs/zerolog"
)

// Factory creates and wires assistant components from configuration.
type Factory struct {
	harnessConfig   *config.HarnessConfig
	inferenceConfig *config.InferenceConfig
	db              *sql.DB // Optional, for conversation store
	logger          zerolog.Logger
}

// NewFactory creates a new assistant factory.
func NewFactory(harnessConfig *config.HarnessConfig, inferenceConfig *config.InferenceConfig, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		harnessConfig:   harnessConfig,
		inferenceConfig: inferenceConfig,
		db:              db,
		logger:          logger,
	}
}

// CreateGateway creates the model runtime client.
func (f *Factory) CreateGateway() *inference.Client {
	defaults := inference.DefaultOptions()
	if f.inferenceConfig.Temperature > 0 {
		defaults.Temperature = f.inferenceConfig.Temperature
	}
	if f.inferenceConfig.TopP > 0 {
		defaults.TopP = f.inferenceConfig.TopP
	}
	if f.inferenceConfig.TopK > 0 {
		defaults.TopK = f.inferenceConfig.TopK
	}
	if f.inferenceConfig.NumPredict != 0 {
		defaults.NumPredict = f.inferenceConfig.NumPredict
	}

	return inference.NewClient(
		inference.WithBaseURL(f.inferenceConfig.BaseURL),
		inference.WithTimeout(f.inferenceConfig.Timeout),
		inference.WithLogger(f.logger.With().Str("component", "inference").Logger()),
		inference.WithCache(f.createCache(), f.harnessConfig.CacheTTLSeconds),
		inference.WithDefaults(defaults),
	)
}

// CreateDispatcher wires a dispatcher over registry.
func (f *Factory) CreateDispatcher(registry *Registry) *Dispatcher {
	concurrency := f.harnessConfig.ToolConcurrency
	if concurrency < 1 {
		concurrency = 1
		f.logger.Warn().Int("tool_concurrency", f.harnessConfig.ToolConcurrency).Msg("ToolConcurrency clamped to minimum of 1")
	}
	if concurrency > 32 {
		concurrency = 32
		f.logger.Warn().Int("tool_concurrency", f.harnessConfig.ToolConcurrency).Msg("ToolConcurrency clamped to maximum of 32")
	}

	return NewDispatcher(registry, f.CreateGuardrails(), f.createTracer(), f.logger.With().Str("component", "dispatcher").Logger(), concurrency)
}

// CreateOrchestrator creates a fully wired Orchestrator from config.
func (f *Factory) CreateOrchestrator(gateway ports.Gateway, registry *Registry) *Orchestrator {
	orchestrator := NewOrchestrator(
		gateway,
		f.CreateStore(),
		f.CreateDispatcher(registry),
		NewPromptBuilder(nil),
		adapters.NewHTTPMediaLoader(f.harnessConfig.MediaMaxBytes, f.harnessConfig.MediaAllowedHosts),
		f.createRateLimiter(),
		f.createTracer(),
		f.logger.With().Str("component", "orchestrator").Logger(),
	)
	return orchestrator.WithPolicy(f.CreatePolicy())
}

// CreateGuardrails creates guardrails from config.
func (f *Factory) CreateGuardrails() *Guardrails {
	return NewGuardrails(f.harnessConfig.AllowedTools, f.harnessConfig.EnableGuardrails)
}

// CreatePolicy creates a chat policy from config with validation.
func (f *Factory) CreatePolicy() *Policy {
	policy := DefaultPolicy()
	policy.NativeTools = f.harnessConfig.NativeTools

	switch {
	case f.harnessConfig.TitleLength < 1:
		f.logger.Warn().Int("title_length", f.harnessConfig.TitleLength).Msg("TitleLength below 1, using default")
	case f.harnessConfig.TitleLength > 200:
		policy.TitleLength = 200
		f.logger.Warn().Int("title_length", f.harnessConfig.TitleLength).Msg("TitleLength clamped to maximum of 200")
	default:
		policy.TitleLength = f.harnessConfig.TitleLength
	}

	return policy
}

// CreateStore creates a conversation store adapter from config.
func (f *Factory) CreateStore() ports.ConversationStore {
	if f.db == nil {
		f.logger.Warn().Msg("No database configured, conversations are kept in memory")
		return adapters.NewMemoryConversationStore()
	}
	return adapters.NewLibSQLConversationStore(f.db)
}

func (f *Factory) createCache() ports.Cache {
	if !f.harnessConfig.CacheEnabled {
		return &noOpCache{}
	}
	return adapters.NewLRUCache(f.harnessConfig.CacheCapacity)
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.harnessConfig.RateLimitEnabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(f.harnessConfig.RateLimitCapacity, f.harnessConfig.RateLimitRefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.harnessConfig.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

// noOpCache implements Cache interface with no-op behavior for disabled caching.
type noOpCache struct{}

func (c *noOpCache) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }
func (c *noOpCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return nil
}
func (c *noOpCache) Delete(ctx context.Context, key string) error { return nil }

// noOpRateLimiter implements RateLimiter interface with no-op behavior.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer implements Tracer interface with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var (
	_ ports.Cache       = (*noOpCache)(nil)
	_ ports.RateLimiter = (*noOpRateLimiter)(nil)
	_ ports.Tracer      = (*noOpTracer)(nil)
	_ inference.Cache   = ports.Cache(nil)
)
