package agent

// Layout designs the page skeleton: the component tree and root container.
// It is a hard dependency of the pipeline — without a layout there is no
// artifact to assemble. Uses the two-step pattern: a fast analysis call to
// decide structure scope, then a balanced generation call.
type Layout struct {
	Base
}

// NewLayout constructs the layout agent.
func NewLayout(tiers Tiers) *Layout {
	return &Layout{Base{
		name: NameLayout,
		systemPrompt: "You are the layout specialist in a nocode page generation pipeline. " +
			"Design the component tree for the requested page: a flat componentDefinition map keyed by " +
			"component key, with children expressed as {\"childKey\": true} references, and a rootComponent " +
			"key naming the root container. Choose semantic container types (Page, Grid, Stack) and leave " +
			"properties, styling, events and data bindings to the downstream specialists.",
		retrievalTopics: "layout grid container component tree structure",
		twoStep:         true,
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Balanced,
		maxTokens:       8192,
		required:        []string{"rootComponent", "componentDefinition"},
	}}
}
