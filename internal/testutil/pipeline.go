package testutil

import (
	"github.com/pageforge-dev/pageforge/agent"
	"github.com/pageforge-dev/pageforge/model"
)

// WirePipeline registers a coherent set of canned responses for all seven
// agents on a MockInvoker: a page with one container and one button. Returns
// the root and button keys for assertions.
func WirePipeline(m *model.MockInvoker) (root, button string) {
	root, button = "page_root", "btn_submit"
	m.AddResponse(TaskKey(agent.NameLayout), LayoutPayload(root, button))
	m.AddResponse(TaskKey(agent.NameComponent), ComponentPayload(map[string]string{
		root:   "Container",
		button: "Button",
	}))
	m.AddResponse(TaskKey(agent.NameEvents), EventsPayload("handleSubmit", button))
	m.AddResponse(TaskKey(agent.NameStyles), StylesPayload(root, button))
	m.AddResponse(TaskKey(agent.NameAnimation), AnimationPayload(button))
	m.AddResponse(TaskKey(agent.NameData), DataPayload(button))
	m.AddResponse(TaskKey(agent.NameReview), ReviewPayload(map[string]any{
		"rootComponent": root,
		"componentDefinition": map[string]any{
			root:   map[string]any{"key": root, "name": "Container", "children": []any{button}},
			button: map[string]any{"key": button, "name": "Button"},
		},
	}))
	return root, button
}
