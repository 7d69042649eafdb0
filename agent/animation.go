package agent

// Animation layers motion on top of the styled page: per-component
// animation style properties and optional keyframe definitions. Fast tier,
// single call, soft dependency.
type Animation struct {
	Base
}

// NewAnimation constructs the animation agent.
func NewAnimation(tiers Tiers) *Animation {
	return &Animation{Base{
		name: NameAnimation,
		deps: []string{NameComponent},
		systemPrompt: "You are the animation specialist in a nocode page generation pipeline. " +
			"Add subtle, purposeful motion (200-500ms): a \"componentAnimations\" map keyed by component key " +
			"with animation style properties, and optionally \"keyframeAnimations\" mapping animation names " +
			"to @keyframes CSS. Less is more; never distract from content.",
		retrievalTopics: "animation transition keyframes fade slide hover",
		analysisModel:   tiers.Fast,
		generateModel:   tiers.Fast,
		maxTokens:       4096,
		requireAny:      []string{"componentAnimations", "keyframeAnimations"},
	}}
}
