package agent

// Styles produces visual styling per component. Runs on the fast tier in a
// single call and may execute concurrently with the animation agent since
// neither reads the other's output. Soft dependency.
type Styles struct {
	Base
}

// NewStyles constructs the styles agent.
func NewStyles(tiers Tiers) *Styles {
	return &Styles{Base{
		name: NameStyles,
		deps: []string{NameComponent},
		systemPrompt: "You are the styling specialist in a nocode page generation pipeline. " +
			"Produce a \"componentStyles\" map keyed by component key; each entry holds resolution-scoped " +
			"style properties ({\"resolutions\": {\"ALL\": {...}}}). Favor a coherent palette and spacing " +
			"scale; do not change structure or properties.",
		retrievalTopics: "style color background padding font resolution theme",
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Fast,
		maxTokens:       8192,
		required:        []string{"componentStyles"},
	}}
}
