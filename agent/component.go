package agent

// Component fills in concrete component choices and properties for the
// skeleton the layout agent produced. Hard dependency: downstream agents
// target the component keys it settles on.
type Component struct {
	Base
}

// NewComponent constructs the component agent.
func NewComponent(tiers Tiers) *Component {
	return &Component{Base{
		name: NameComponent,
		deps: []string{NameLayout},
		systemPrompt: "You are the component specialist in a nocode page generation pipeline. " +
			"Given the layout skeleton, choose concrete component types (Button, TextBox, Label, Image, " +
			"Form) and set their properties. Output a \"components\" map keyed by component key; each entry " +
			"carries the type and a properties object. Do not invent keys absent from the layout.",
		retrievalTopics: "component button textbox label form properties",
		twoStep:         true,
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Balanced,
		maxTokens:       8192,
		required:        []string{"components"},
	}}
}
