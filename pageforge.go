// Package pageforge provides a high-level façade over the pipeline
// coordinator and its collaborators (model providers, retrieval, rate
// budgets and logging), turning natural-language instructions into nocode
// page definitions. Most applications interact with this package by:
//  1. Creating a PageForge via New() from a config.Config
//  2. Starting sessions with Start (streaming) or Generate (synchronous)
//  3. Consuming the ordered event stream and collecting the final artifact
//
// The façade delegates orchestration to coordinator.Coordinator while
// keeping setup ergonomics concise. Defaults are safe for local development;
// production deployments typically supply a Redis-backed budget and a
// structured logger.
package pageforge

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/pageforge-dev/pageforge/agent"
	"github.com/pageforge-dev/pageforge/artifact"
	"github.com/pageforge-dev/pageforge/budget"
	"github.com/pageforge-dev/pageforge/config"
	"github.com/pageforge-dev/pageforge/coordinator"
	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/logging"
	"github.com/pageforge-dev/pageforge/model"
	"github.com/pageforge-dev/pageforge/model/anthropic"
	"github.com/pageforge-dev/pageforge/model/openai"
	"github.com/pageforge-dev/pageforge/retry"
)

// Options configures the PageForge instance beyond what config.Config
// expresses.
type Options struct {
	// Invoker overrides the provider constructed from the config; tests
	// typically inject a model.MockInvoker here.
	Invoker model.Invoker

	// Retriever supplies the documentation index agents query for context.
	Retriever core.Retriever

	// Budget overrides the rate budget derived from the config.
	Budget core.RateBudget

	// Logger defaults to a text slog logger on stderr at the configured level.
	Logger logging.Logger

	// ArtifactStore, when set, archives final artifacts beyond the
	// coordinator's in-memory session map.
	ArtifactStore artifact.Store
}

// PageForge is the high-level façade aggregating the coordinator and its
// collaborators.
type PageForge struct {
	coord *coordinator.Coordinator
}

// New creates a PageForge from the configuration with optional overrides.
func New(cfg *config.Config, optFns ...func(o *Options)) (*PageForge, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, cfg.Logging.Format, parseLevel(cfg.Logging.Level))
	}

	invoker := opts.Invoker
	if invoker == nil {
		var err error
		if invoker, err = buildInvoker(cfg); err != nil {
			return nil, err
		}
	}

	rateBudget := opts.Budget
	if rateBudget == nil {
		rateBudget = buildBudget(cfg)
	}

	coord := coordinator.New(invoker,
		coordinator.WithRetriever(opts.Retriever),
		coordinator.WithBudget(rateBudget),
		coordinator.WithLogger(logger),
		coordinator.WithTiers(agent.Tiers{Fast: cfg.Models.Fast, Balanced: cfg.Models.Balanced}),
		coordinator.WithTopK(cfg.Retrieval.TopK),
		coordinator.WithRetryPolicy(retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
		}),
		coordinator.WithArtifactStore(opts.ArtifactStore),
	)
	return &PageForge{coord: coord}, nil
}

// Start begins an asynchronous generation session and returns its id.
func (p *PageForge) Start(ctx context.Context, req coordinator.Request) (string, error) {
	return p.coord.Start(ctx, req)
}

// Events subscribes to a session's ordered event stream from fromSeq.
func (p *PageForge) Events(ctx context.Context, sessionID string, fromSeq int64) (<-chan core.Event, error) {
	return p.coord.Events(ctx, sessionID, fromSeq)
}

// Result returns the final artifact without blocking; see
// coordinator.Coordinator.Result for the error contract.
func (p *PageForge) Result(sessionID string) (map[string]any, error) {
	return p.coord.Result(sessionID)
}

// Cancel requests cooperative cancellation of a running session.
func (p *PageForge) Cancel(sessionID string) error { return p.coord.Cancel(sessionID) }

// Status reports a session's lifecycle state.
func (p *PageForge) Status(sessionID string) (core.Status, error) { return p.coord.Status(sessionID) }

// Generate is the synchronous helper: it starts a session and blocks until
// the terminal state, returning the final artifact.
func (p *PageForge) Generate(ctx context.Context, req coordinator.Request) (map[string]any, error) {
	id, err := p.coord.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	return p.coord.Wait(ctx, id)
}

// buildInvoker constructs the provider adapter named by the config.
func buildInvoker(cfg *config.Config) (model.Invoker, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewInvoker(func(o *anthropic.Options) {
			o.DefaultModel = cfg.Models.Balanced
			o.APIKey = cfg.APIKey
		}), nil
	case "openai":
		return openai.NewInvoker(func(o *openai.Options) {
			o.DefaultModel = cfg.Models.Balanced
			o.APIKey = cfg.APIKey
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// buildBudget selects the Redis-backed budget when an address is configured,
// the in-process sliding window otherwise.
func buildBudget(cfg *config.Config) core.RateBudget {
	limits := budget.Limits{
		PerMinute: cfg.RateLimits.PerMinute,
		PerHour:   cfg.RateLimits.PerHour,
		MaxWait:   cfg.RateLimits.MaxWait,
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return budget.NewRedis(client, "pageforge:budget", limits)
	}
	return budget.NewInMemory(limits)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
