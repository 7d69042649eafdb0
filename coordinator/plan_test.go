package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageforge-dev/pageforge/agent"
)

func waveNames(wave []*stage) []string {
	out := make([]string, 0, len(wave))
	for _, st := range wave {
		out = append(out, st.agent.Name())
	}
	return out
}

func TestPlanWaveOrder(t *testing.T) {
	p := newPlan(agent.Pipeline(agent.Tiers{Fast: "f", Balanced: "b"}))
	states := map[string]stageState{}
	for name := range p.byName {
		states[name] = statePending
	}

	var waves [][]string
	for {
		wave := p.ready(states)
		if len(wave) == 0 {
			break
		}
		waves = append(waves, waveNames(wave))
		for _, st := range wave {
			states[st.agent.Name()] = stateDone
		}
	}

	require.Len(t, waves, 5)
	assert.Equal(t, []string{agent.NameLayout}, waves[0])
	assert.Equal(t, []string{agent.NameComponent}, waves[1])
	assert.ElementsMatch(t, []string{agent.NameEvents, agent.NameStyles, agent.NameAnimation}, waves[2])
	assert.Equal(t, []string{agent.NameData}, waves[3])
	assert.Equal(t, []string{agent.NameReview}, waves[4])
}

func TestPlanSoftFailureUnblocksDependents(t *testing.T) {
	p := newPlan(agent.Pipeline(agent.Tiers{Fast: "f", Balanced: "b"}))
	states := map[string]stageState{}
	for name := range p.byName {
		states[name] = statePending
	}
	states[agent.NameLayout] = stateDone
	states[agent.NameComponent] = stateDone
	states[agent.NameEvents] = stateDone
	states[agent.NameStyles] = stateSkipped // soft failure
	states[agent.NameAnimation] = stateDone

	wave := p.ready(states)
	assert.Equal(t, []string{agent.NameData}, waveNames(wave))
}

func TestPlanHardFailureBlocksDependents(t *testing.T) {
	p := newPlan(agent.Pipeline(agent.Tiers{Fast: "f", Balanced: "b"}))
	states := map[string]stageState{}
	for name := range p.byName {
		states[name] = statePending
	}
	states[agent.NameLayout] = stateDone
	states[agent.NameComponent] = stateFailed

	// Nothing downstream of the failed hard stage becomes ready.
	assert.Empty(t, p.ready(states))
}

func TestPlanDependencyOutsidePlanCountsSettled(t *testing.T) {
	agents := agent.Pipeline(agent.Tiers{Fast: "f", Balanced: "b"})
	var styling []agent.Agent
	for _, a := range agents {
		if a.Name() == agent.NameStyles || a.Name() == agent.NameAnimation {
			styling = append(styling, a)
		}
	}
	p := newPlan(styling)
	states := map[string]stageState{
		agent.NameStyles:    statePending,
		agent.NameAnimation: statePending,
	}

	wave := p.ready(states)
	assert.ElementsMatch(t, []string{agent.NameStyles, agent.NameAnimation}, waveNames(wave))
}

func TestIsStyleOnly(t *testing.T) {
	cases := map[string]struct {
		instruction string
		want        bool
	}{
		"pure styling":             {"make the header background darker", true},
		"styling with emphasis":    {"the title should stand out more", true},
		"structural add":           {"add a button below the form", false},
		"structural with styling":  {"make the new button blue", false},
		"data wording":             {"bind the table to the store", false},
		"no style vocabulary":      {"I want something different", false},
		"case insensitive styling": {"Make The Font BIGGER", true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, isStyleOnly(tc.instruction))
		})
	}
}
