package testutil

import (
	"encoding/json"
	"fmt"
)

// LayoutPayload returns a minimal valid layout agent response for a page
// with the given root key and child component keys.
func LayoutPayload(root string, children ...string) string {
	def := map[string]any{
		root: map[string]any{
			"key":      root,
			"name":     "Container",
			"children": children,
		},
	}
	for _, child := range children {
		def[child] = map[string]any{"key": child, "name": "Box"}
	}
	return MustJSON(map[string]any{
		"reasoning":           "single column layout",
		"rootComponent":       root,
		"componentDefinition": def,
	})
}

// ComponentPayload returns a component agent response assigning a component
// type to each given key.
func ComponentPayload(types map[string]string) string {
	comps := map[string]any{}
	for key, typ := range types {
		comps[key] = map[string]any{
			"name":       typ,
			"properties": map[string]any{"label": key},
		}
	}
	return MustJSON(map[string]any{"components": comps})
}

// EventsPayload returns an events agent response with one named function
// wired to the given component key.
func EventsPayload(fn, componentKey string) string {
	return MustJSON(map[string]any{
		"eventFunctions": map[string]any{
			fn: map[string]any{"body": "console.log('clicked')"},
		},
		"componentEvents": map[string]any{
			componentKey: map[string]any{"onClick": fn},
		},
	})
}

// StylesPayload returns a styles agent response for the given component keys.
func StylesPayload(keys ...string) string {
	cs := map[string]any{}
	for _, key := range keys {
		cs[key] = map[string]any{"backgroundColor": "#1e293b", "padding": "16px"}
	}
	return MustJSON(map[string]any{"componentStyles": cs})
}

// AnimationPayload returns an animation agent response with a keyframe block.
func AnimationPayload(keys ...string) string {
	ca := map[string]any{}
	for _, key := range keys {
		ca[key] = map[string]any{"animation": "fadeIn 0.3s ease-in"}
	}
	return MustJSON(map[string]any{
		"componentAnimations": ca,
		"keyframeAnimations": map[string]any{
			"fadeIn": "@keyframes fadeIn { from { opacity: 0; } to { opacity: 1; } }",
		},
	})
}

// DataPayload returns a data agent response binding the given component key.
func DataPayload(componentKey string) string {
	return MustJSON(map[string]any{
		"storeInitialization": map[string]any{"items": []any{}},
		"componentBindings": map[string]any{
			componentKey: "Page.items",
		},
	})
}

// ReviewPayload returns a review agent response passing the merged page
// through unchanged, optionally requesting revisions. Each revision is an
// "agent:note" pair.
func ReviewPayload(page map[string]any, revisions ...[2]string) string {
	out := map[string]any{"page": page}
	if len(revisions) > 0 {
		revs := make([]any, 0, len(revisions))
		for _, r := range revisions {
			revs = append(revs, map[string]any{"agent": r[0], "note": r[1]})
		}
		out["revisions"] = revs
	}
	return MustJSON(out)
}

// TaskKey returns the substring routing a canned MockInvoker response to one
// agent's generation call.
func TaskKey(agent string) string {
	return fmt.Sprintf("Generate the %s portion", agent)
}

// MustJSON marshals v, panicking on failure. Test-only.
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal: %v", err))
	}
	return string(data)
}
