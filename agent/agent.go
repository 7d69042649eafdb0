// Package agent implements the seven specialist agents of the page
// generation pipeline and the shared contract they follow: build a bounded
// context from prior contributions plus retrieved reference material, issue
// one or more model calls, then parse and validate the output into a
// structured contribution. Control flow is identical across agents; only
// declared dependencies, retrieval usage, call count and payload schema
// vary.
package agent

import (
	"context"

	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/model"
)

// Agent names double as session state keys and event agent labels.
const (
	NameLayout    = "layout"
	NameComponent = "component"
	NameEvents    = "events"
	NameStyles    = "styles"
	NameAnimation = "animation"
	NameData      = "data"
	NameReview    = "review"
)

// Tiers names the model ids for the two-tier strategy: a fast model for
// analysis passes and simple agents, a balanced model for generation.
type Tiers struct {
	Fast     string
	Balanced string
}

// Input is the read-only view of session state an agent builds its context
// from. Prior holds only the contributions the agent declared as
// dependencies; agents never see or touch the session itself.
type Input struct {
	Instruction string
	Mode        core.Mode
	Existing    map[string]any
	Prior       map[string]core.Contribution
	// Merged is the pre-review page assembly, populated for the review
	// agent only.
	Merged map[string]any
	// CorrectionNote carries the review agent's revision note when a stage
	// is deliberately re-run.
	CorrectionNote string
}

// Context is the composed, bounded payload an agent feeds its model calls.
type Context struct {
	Input
	Snippets []core.RetrievalResult
}

// Agent is the uniform contract the coordinator drives. BuildContext must
// not mutate anything it is handed; all state changes flow through the
// returned Contribution.
type Agent interface {
	Name() string
	Dependencies() []string
	BuildContext(ctx context.Context, in Input, retriever core.Retriever) (*Context, error)
	Run(ctx context.Context, ac *Context, invoker model.Invoker) (*core.Contribution, error)
}

// PipelineOption adjusts configuration shared by every pipeline agent.
type PipelineOption func(a Agent)

// WithTopK overrides the retrieval depth of agents that query the index.
// Non-positive values keep the default.
func WithTopK(k int) PipelineOption {
	return func(a Agent) {
		if s, ok := a.(interface{ setTopK(k int) }); ok {
			s.setTopK(k)
		}
	}
}

// Pipeline returns the seven agents in their canonical order.
func Pipeline(tiers Tiers, optFns ...PipelineOption) []Agent {
	agents := []Agent{
		NewLayout(tiers),
		NewComponent(tiers),
		NewEvents(tiers),
		NewStyles(tiers),
		NewAnimation(tiers),
		NewData(tiers),
		NewReview(tiers),
	}
	for _, fn := range optFns {
		for _, a := range agents {
			fn(a)
		}
	}
	return agents
}
