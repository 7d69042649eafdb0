package agent

// Events wires user interactions: event function definitions plus the
// component property hooks (onClick and friends) that reference them.
// Soft dependency — a page without events still renders.
type Events struct {
	Base
}

// NewEvents constructs the events agent.
func NewEvents(tiers Tiers) *Events {
	return &Events{Base{
		name: NameEvents,
		deps: []string{NameLayout, NameComponent},
		systemPrompt: "You are the events specialist in a nocode page generation pipeline. " +
			"Define event functions for the interactions the request implies and reference them from " +
			"components. Output an \"eventFunctions\" map keyed by function key, and optionally a " +
			"\"componentEvents\" map binding component keys to {\"onClick\": {\"value\": functionKey}} style " +
			"hooks. Only reference component keys that exist.",
		retrievalTopics: "event function onclick navigation submit interaction",
		twoStep:         true,
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Balanced,
		maxTokens:       8192,
		required:        []string{"eventFunctions"},
	}}
}
