package coordinator

import (
	"strings"

	"github.com/pageforge-dev/pageforge/agent"
)

// stageState tracks one agent stage through the DAG.
type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateDone
	stateSkipped // soft failure: contribution absent, downstream proceeds
	stateFailed  // hard failure: session terminates
)

// stage is one scheduled execution of an agent within the plan.
type stage struct {
	agent agent.Agent
	// hard marks agents whose failure is fatal to the session.
	hard bool
}

// plan is the DAG of stages for one session. Dependencies are the agents'
// statically declared reads; stages whose dependencies are all settled run
// concurrently in the same wave.
type plan struct {
	stages []*stage
	byName map[string]*stage
}

// hardAgents are the contributions the final artifact cannot exist without.
var hardAgents = map[string]bool{
	agent.NameLayout:    true,
	agent.NameComponent: true,
}

// newPlan builds a plan over the given agents preserving their order.
func newPlan(agents []agent.Agent) *plan {
	p := &plan{byName: make(map[string]*stage, len(agents))}
	for _, a := range agents {
		st := &stage{agent: a, hard: hardAgents[a.Name()]}
		p.stages = append(p.stages, st)
		p.byName[a.Name()] = st
	}
	return p
}

// ready returns the next wave: pending stages whose dependencies are all
// settled. A dependency outside the plan (style-only fast path) counts as
// settled; a soft-failed dependency does too — the dependent agent simply
// sees a degraded context.
func (p *plan) ready(states map[string]stageState) []*stage {
	var wave []*stage
	for _, st := range p.stages {
		if states[st.agent.Name()] != statePending {
			continue
		}
		ok := true
		for _, dep := range st.agent.Dependencies() {
			if _, inPlan := p.byName[dep]; !inPlan {
				continue
			}
			if s := states[dep]; s != stateDone && s != stateSkipped {
				ok = false
				break
			}
		}
		if ok {
			wave = append(wave, st)
		}
	}
	return wave
}

// styleKeywords indicate purely visual intent; structuralKeywords indicate
// changes the full pipeline must handle. Both lists follow the original
// generation service's heuristic.
var styleKeywords = []string{
	"color", "background", "font", "size", "padding", "margin",
	"border", "shadow", "prominent", "bigger", "smaller", "larger",
	"bold", "italic", "opacity", "transparent", "dark", "light",
	"bright", "muted", "spacing", "align", "center", "rounded",
	"gradient", "hover", "animation", "animate", "fade", "slide",
	"look", "style", "appearance", "visual", "design", "theme",
	"highlight", "emphasize", "stand out", "pop", "subtle",
}

var structuralKeywords = []string{
	"add", "remove", "delete", "create", "insert", "move",
	"button", "form", "input", "text", "image", "grid", "layout",
	"component", "element", "section", "click", "event", "action",
	"navigate", "submit", "data", "bind", "store", "fetch",
}

// isStyleOnly reports whether an instruction only needs the styling agents:
// style vocabulary present, structural vocabulary absent.
func isStyleOnly(instruction string) bool {
	lower := strings.ToLower(instruction)
	styled := false
	for _, kw := range styleKeywords {
		if strings.Contains(lower, kw) {
			styled = true
			break
		}
	}
	if !styled {
		return false
	}
	for _, kw := range structuralKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}
