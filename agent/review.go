package agent

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Revision is a review-requested re-run of an earlier agent, carrying the
// correction note appended to that agent's context.
type Revision struct {
	Agent string
	Note  string
}

// Review validates and improves the merged page. It always runs last, is
// the only agent allowed to request revision of earlier contributions, and
// its failure is non-fatal: the pipeline falls back to the merged page.
type Review struct {
	Base
}

// NewReview constructs the review agent. It needs the larger output window
// because it emits a complete page definition.
func NewReview(tiers Tiers) *Review {
	return &Review{Base{
		name: NameReview,
		deps: []string{NameLayout, NameComponent, NameEvents, NameStyles, NameAnimation, NameData},
		systemPrompt: "You are the review specialist in a nocode page generation pipeline. " +
			"Validate the merged page: every child reference resolves, the rootComponent exists, onClick " +
			"values name real event functions, bindings target real components. Output a \"page\" field with " +
			"the corrected complete page definition. If an earlier specialist must redo its part, add a " +
			"\"revisions\" array of {\"agent\": name, \"note\": what to fix} instead of fixing it yourself.",
		analysisModel: tiers.Fast,
		generateModel: tiers.Balanced,
		maxTokens:     16384,
		validate:      validateReview,
	}}
}

// validateReview checks the review payload shape including any revision
// requests, which must target known upstream agents.
func validateReview(doc gjson.Result) error {
	page := doc.Get("page")
	if !page.Exists() || !page.IsObject() {
		return fmt.Errorf("missing required object field %q", "page")
	}

	revisions := doc.Get("revisions")
	if !revisions.Exists() {
		return nil
	}
	if !revisions.IsArray() {
		return fmt.Errorf("field %q must be an array", "revisions")
	}
	known := map[string]bool{
		NameLayout: true, NameComponent: true, NameEvents: true,
		NameStyles: true, NameAnimation: true, NameData: true,
	}
	var bad error
	revisions.ForEach(func(_, item gjson.Result) bool {
		name := item.Get("agent").String()
		if !known[name] {
			bad = fmt.Errorf("revision targets unknown agent %q", name)
			return false
		}
		return true
	})
	return bad
}

// Revisions extracts the revision requests from a review payload. Unknown
// agents were already rejected at validation time.
func Revisions(payload map[string]any) []Revision {
	raw, ok := payload["revisions"].([]any)
	if !ok {
		return nil
	}
	out := make([]Revision, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["agent"].(string)
		note, _ := m["note"].(string)
		if name == "" {
			continue
		}
		out = append(out, Revision{Agent: name, Note: note})
	}
	return out
}

// ReviewedPage extracts the corrected page from a review payload.
func ReviewedPage(payload map[string]any) (map[string]any, bool) {
	page, ok := payload["page"].(map[string]any)
	return page, ok
}
