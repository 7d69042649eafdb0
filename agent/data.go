package agent

// Data binds components to page state: store initialization plus
// per-component binding paths. Fast tier, single call, soft dependency. It
// runs after the interaction and styling agents so bindings see the final
// component surface.
type Data struct {
	Base
}

// NewData constructs the data agent.
func NewData(tiers Tiers) *Data {
	return &Data{Base{
		name: NameData,
		deps: []string{NameLayout, NameComponent, NameEvents, NameStyles, NameAnimation},
		systemPrompt: "You are the data specialist in a nocode page generation pipeline. " +
			"Wire components to page state: output \"storeInitialization\" for initial store values and " +
			"\"componentBindings\" mapping component keys to binding paths (Page.<path>, LocalStore.<path>). " +
			"Bind only components that display or capture data.",
		retrievalTopics: "data binding store page localstore path",
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Fast,
		maxTokens:       4096,
		requireAny:      []string{"componentBindings", "storeInitialization"},
	}}
}
