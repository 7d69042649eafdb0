// Package coordinator implements the pipeline coordinator: it owns the DAG
// of agent stages, the shared session state, the ordered event stream and
// the failure policy that decides whether a stage failure degrades or
// terminates a session.
//
// Scheduling is wave based: every stage whose declared dependencies are
// settled runs concurrently in the current wave (styles and animation share
// the component prerequisite and overlap), dependent stages block on their
// prerequisites. Agent invocations are the only suspension points.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pageforge-dev/pageforge/agent"
	"github.com/pageforge-dev/pageforge/artifact"
	"github.com/pageforge-dev/pageforge/core"
	"github.com/pageforge-dev/pageforge/logging"
	"github.com/pageforge-dev/pageforge/model"
	"github.com/pageforge-dev/pageforge/retry"
)

// Request is the validated inbound generation request, independent of
// transport.
type Request struct {
	Instruction string
	Mode        string
	Existing    map[string]any
}

// Coordinator drives sessions from creation to a terminal state. All public
// methods are safe for concurrent use.
type Coordinator struct {
	invoker   model.Invoker // budget + retry composed chain
	retriever core.Retriever
	budget    core.RateBudget
	policy    retry.Policy
	logger    logging.Logger
	tiers     agent.Tiers
	topK      int
	agents    []agent.Agent
	archive   artifact.Store

	mu       sync.RWMutex
	sessions map[string]*core.Session
	cancels  map[string]context.CancelFunc
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRetriever injects the retrieval collaborator. Without one, agents
// generate without retrieved context.
func WithRetriever(r core.Retriever) Option { return func(c *Coordinator) { c.retriever = r } }

// WithBudget injects the shared model-call budget.
func WithBudget(b core.RateBudget) Option { return func(c *Coordinator) { c.budget = b } }

// WithRetryPolicy overrides the retry policy shared by all model call sites.
func WithRetryPolicy(p retry.Policy) Option { return func(c *Coordinator) { c.policy = p } }

// WithLogger injects a structured logger.
func WithLogger(l logging.Logger) Option { return func(c *Coordinator) { c.logger = l } }

// WithTiers sets the model ids for the fast/balanced strategy.
func WithTiers(t agent.Tiers) Option { return func(c *Coordinator) { c.tiers = t } }

// WithArtifactStore archives final artifacts for retrieval beyond the
// session map's lifetime.
func WithArtifactStore(s artifact.Store) Option { return func(c *Coordinator) { c.archive = s } }

// WithAgents replaces the default pipeline, primarily for tests.
func WithAgents(agents ...agent.Agent) Option { return func(c *Coordinator) { c.agents = agents } }

// WithTopK sets the retrieval depth for the default pipeline's agents.
// It has no effect when WithAgents supplies a custom pipeline.
func WithTopK(k int) Option { return func(c *Coordinator) { c.topK = k } }

// New builds a Coordinator around a raw model invoker. The invoker is
// wrapped with the rate budget and the shared retry policy so every agent
// call site inherits the same failure-escalation rules.
func New(invoker model.Invoker, opts ...Option) *Coordinator {
	c := &Coordinator{
		budget:   core.UnlimitedBudget{},
		policy:   retry.DefaultPolicy(),
		logger:   logging.NoOpLogger{},
		tiers:    agent.Tiers{Fast: "claude-3-5-haiku-latest", Balanced: "claude-3-5-sonnet-latest"},
		sessions: map[string]*core.Session{},
		cancels:  map[string]context.CancelFunc{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.agents == nil {
		c.agents = agent.Pipeline(c.tiers, agent.WithTopK(c.topK))
	}
	c.invoker = retry.NewInvoker(&budgetInvoker{inner: invoker, budget: c.budget}, c.policy)
	return c
}

// Start validates the request, creates a pending session and schedules its
// execution. It returns immediately with the session id; no session exists
// and no events are ever emitted when validation fails.
func (c *Coordinator) Start(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return "", core.NewValidationError("instruction", "must not be empty")
	}
	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		return "", err
	}
	if mode != core.ModeCreate && req.Existing == nil {
		return "", core.NewValidationError("existing_definition",
			fmt.Sprintf("required when mode is %q", mode))
	}
	if mode == core.ModeCreate && req.Existing != nil {
		return "", core.NewValidationError("existing_definition",
			"must be omitted when mode is \"create\"")
	}

	sess := core.NewSession(strings.TrimSpace(req.Instruction), mode, req.Existing)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.mu.Lock()
	c.sessions[sess.ID] = sess
	c.cancels[sess.ID] = cancel
	c.mu.Unlock()

	c.logger.Info("session accepted", "session_id", sess.ID, "mode", string(mode))
	go c.run(runCtx, sess)
	return sess.ID, nil
}

// Events subscribes to a session's stream from the given sequence number.
// The channel replays the backlog, follows live events and closes after the
// terminal done event (or when ctx is cancelled).
func (c *Coordinator) Events(ctx context.Context, sessionID string, fromSeq int64) (<-chan core.Event, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Log().Subscribe(ctx, fromSeq), nil
}

// Result returns the final artifact without blocking: core.ErrNotReady
// before the terminal state, the recorded failure for failed sessions,
// core.ErrCancelled for cancelled ones.
func (c *Coordinator) Result(sessionID string) (map[string]any, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Artifact()
}

// Wait blocks until the session reaches a terminal state, then behaves like
// Result.
func (c *Coordinator) Wait(ctx context.Context, sessionID string) (map[string]any, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	for ev := range sess.Log().Subscribe(ctx, int64(sess.Log().Len())) {
		if ev.IsTerminal() {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sess.Artifact()
}

// Cancel requests cooperative cancellation: the in-flight model call may
// finish, backoff waits abort immediately, and no further stages start.
// Cancelling a finished session is a no-op.
func (c *Coordinator) Cancel(sessionID string) error {
	c.mu.RLock()
	cancel, ok := c.cancels[sessionID]
	c.mu.RUnlock()
	if !ok {
		if _, err := c.session(sessionID); err != nil {
			return err
		}
		return nil // already finished
	}
	cancel()
	return nil
}

// Status reports the session lifecycle state.
func (c *Coordinator) Status(sessionID string) (core.Status, error) {
	sess, err := c.session(sessionID)
	if err != nil {
		return "", err
	}
	return sess.Status(), nil
}

func (c *Coordinator) session(sessionID string) (*core.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return sess, nil
}

// stageResult carries one stage outcome back to the wave loop.
type stageResult struct {
	name string
	err  error
}

// run executes the session's plan to a terminal state. It is the single
// writer of session state and the event log.
func (c *Coordinator) run(ctx context.Context, sess *core.Session) {
	defer func() {
		c.mu.Lock()
		if cancel, ok := c.cancels[sess.ID]; ok {
			cancel()
			delete(c.cancels, sess.ID)
		}
		c.mu.Unlock()
	}()

	sess.SetRunning()
	p := c.planFor(sess)

	states := make(map[string]stageState, len(p.stages))
	for name := range p.byName {
		states[name] = statePending
	}
	failures := map[string]string{}
	var hardErr *core.StageError

	for hardErr == nil {
		if ctx.Err() != nil {
			c.finishCancelled(sess)
			return
		}
		wave := p.ready(states)
		if len(wave) == 0 {
			break
		}

		results := make(chan stageResult, len(wave))
		for _, st := range wave {
			states[st.agent.Name()] = stateRunning
			go func(st *stage) {
				results <- stageResult{name: st.agent.Name(), err: c.runStage(ctx, sess, st, "")}
			}(st)
		}

		for range wave {
			res := <-results
			if res.err == nil {
				states[res.name] = stateDone
				continue
			}
			if ctx.Err() != nil {
				continue // cancellation surfaces after the wave drains
			}
			failures[res.name] = res.err.Error()
			st := p.byName[res.name]
			if st.hard {
				states[res.name] = stateFailed
				hardErr = &core.StageError{Agent: res.name, Hard: true, Err: res.err}
			} else {
				states[res.name] = stateSkipped
			}
		}
	}

	if ctx.Err() != nil {
		c.finishCancelled(sess)
		return
	}
	if hardErr != nil {
		c.finishFailed(sess, hardErr)
		return
	}
	c.finishSucceeded(ctx, sess, p, states, failures)
}

// runStage executes one agent stage end to end: start event, context build
// (with retrieval summary), model calls, merge, completion event. Failures
// emit stage_failed with the error kind before returning; cancellation
// emits nothing and returns the context error.
func (c *Coordinator) runStage(ctx context.Context, sess *core.Session, st *stage, correction string) error {
	a := st.agent
	c.emit(sess, core.NewEvent(core.EventStageStarted, a.Name(), map[string]any{
		"message": fmt.Sprintf("Starting %s...", a.Name()),
	}))

	ac, err := a.BuildContext(ctx, c.inputFor(sess, a, correction), c.retriever)
	if err == nil {
		if len(ac.Snippets) > 0 {
			c.emit(sess, core.NewEvent(core.EventRetrievalPerformed, a.Name(), snippetSummary(ac.Snippets)))
		}
		var contrib *core.Contribution
		if contrib, err = a.Run(ctx, ac, c.invoker); err == nil {
			if err = sess.MergeContribution(*contrib); err == nil {
				c.emit(sess, core.NewEvent(core.EventStageCompleted, a.Name(), map[string]any{
					"model":         contrib.Model,
					"duration_ms":   contrib.Duration.Milliseconds(),
					"input_tokens":  contrib.Usage.InputTokens,
					"output_tokens": contrib.Usage.OutputTokens,
				}))
				c.logger.Info("stage completed", "session_id", sess.ID, "agent", a.Name(),
					"duration", contrib.Duration)
				return nil
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.emit(sess, core.NewEvent(core.EventStageFailed, a.Name(), map[string]any{
		"kind":    errKind(err),
		"message": err.Error(),
	}))
	c.logger.Warn("stage failed", "session_id", sess.ID, "agent", a.Name(), "error", err)
	return err
}

// inputFor snapshots the read-only view an agent is allowed to see: its
// declared dependencies only, plus the merged page for review.
func (c *Coordinator) inputFor(sess *core.Session, a agent.Agent, correction string) agent.Input {
	contribs := sess.Contributions()
	prior := map[string]core.Contribution{}
	for _, dep := range a.Dependencies() {
		if cb, ok := contribs[dep]; ok {
			prior[dep] = cb
		}
	}
	in := agent.Input{
		Instruction:    sess.Instruction,
		Mode:           sess.Mode,
		Existing:       sess.Existing,
		Prior:          prior,
		CorrectionNote: correction,
	}
	if a.Name() == agent.NameReview {
		in.Merged = agent.MergeOutputs(contribs, sess.Existing)
	}
	return in
}

// planFor picks the execution plan: the full seven-agent DAG, or the
// styles+animation fast path for purely visual modifications.
func (c *Coordinator) planFor(sess *core.Session) *plan {
	if sess.Mode == core.ModeModify && isStyleOnly(sess.Instruction) {
		var styling []agent.Agent
		for _, a := range c.agents {
			if a.Name() == agent.NameStyles || a.Name() == agent.NameAnimation {
				styling = append(styling, a)
			}
		}
		if len(styling) > 0 {
			c.logger.Info("style-only instruction, using fast path", "session_id", sess.ID)
			return newPlan(styling)
		}
	}
	return newPlan(c.agents)
}

// finishSucceeded runs the bounded revision pass, assembles the final
// artifact and closes the stream.
func (c *Coordinator) finishSucceeded(ctx context.Context, sess *core.Session, p *plan, states map[string]stageState, failures map[string]string) {
	revised := false
	if rc, ok := sess.Contribution(agent.NameReview); ok && rc.Valid {
		seen := map[string]bool{}
		for _, rev := range agent.Revisions(rc.Payload) {
			if seen[rev.Agent] || sess.Reruns(rev.Agent) > 0 {
				continue
			}
			st, ok := p.byName[rev.Agent]
			if !ok || states[rev.Agent] != stateDone {
				continue
			}
			seen[rev.Agent] = true
			if ctx.Err() != nil {
				c.finishCancelled(sess)
				return
			}
			// A failed revision keeps the prior contribution; merge happens
			// only on success.
			if err := c.runStage(ctx, sess, st, rev.Note); err != nil {
				if ctx.Err() != nil {
					c.finishCancelled(sess)
					return
				}
				failures[rev.Agent] = fmt.Sprintf("revision failed: %v", err)
				continue
			}
			revised = true
		}
	}

	artifact := map[string]any{
		"page":      c.finalPage(sess, revised),
		"agentLogs": buildAgentLogs(p, states, failures, sess),
		"usage":     sess.Usage(),
	}
	if err := sess.Finalize(core.StatusSucceeded, artifact, nil); err != nil {
		return
	}
	if c.archive != nil {
		if err := c.archive.Save(sess.ID, artifact); err != nil {
			c.logger.Warn("artifact archive failed", "session_id", sess.ID, "error", err)
		}
	}
	c.emit(sess, core.NewEvent(core.EventArtifactReady, "", artifact))
	c.emit(sess, core.NewEvent(core.EventDone, "", nil))
	c.logger.Info("session succeeded", "session_id", sess.ID)
}

// finalPage picks the artifact body: the review agent's corrected page when
// it ran and no revision superseded parts of it, otherwise a fresh merge of
// the accumulated contributions.
func (c *Coordinator) finalPage(sess *core.Session, revised bool) map[string]any {
	contribs := sess.Contributions()
	if !revised {
		if rc, ok := contribs[agent.NameReview]; ok && rc.Valid {
			if page, ok := agent.ReviewedPage(rc.Payload); ok {
				return page
			}
		}
	}
	return agent.MergeOutputs(contribs, sess.Existing)
}

func (c *Coordinator) finishFailed(sess *core.Session, se *core.StageError) {
	failure := &core.SessionError{Stage: se.Agent, Err: se.Err}
	if err := sess.Finalize(core.StatusFailed, nil, failure); err != nil {
		return
	}
	c.emit(sess, core.NewEvent(core.EventError, se.Agent, map[string]any{
		"kind":    errKind(se.Err),
		"message": se.Err.Error(),
		"stage":   se.Agent,
	}))
	c.emit(sess, core.NewEvent(core.EventDone, "", nil))
	c.logger.Warn("session failed", "session_id", sess.ID, "stage", se.Agent, "error", se.Err)
}

func (c *Coordinator) finishCancelled(sess *core.Session) {
	if err := sess.Finalize(core.StatusCancelled, nil, core.ErrCancelled); err != nil {
		return
	}
	c.emit(sess, core.NewEvent(core.EventCancelled, "", map[string]any{
		"message": "generation cancelled",
	}))
	c.emit(sess, core.NewEvent(core.EventDone, "", nil))
	c.logger.Info("session cancelled", "session_id", sess.ID)
}

func (c *Coordinator) emit(sess *core.Session, ev core.Event) {
	sess.Log().Append(ev)
}

// buildAgentLogs assembles the per-agent execution record attached to the
// final artifact.
func buildAgentLogs(p *plan, states map[string]stageState, failures map[string]string, sess *core.Session) map[string]any {
	logs := map[string]any{}
	for _, st := range p.stages {
		name := st.agent.Name()
		entry := map[string]any{}
		if contrib, ok := sess.Contribution(name); ok {
			entry["status"] = "success"
			entry["model"] = contrib.Model
			if contrib.Reasoning != "" {
				entry["reasoning"] = contrib.Reasoning
			}
		} else {
			entry["status"] = "error"
		}
		if msg, ok := failures[name]; ok {
			entry["errors"] = []string{msg}
		}
		logs[name] = entry
	}
	return logs
}

// snippetSummary is the compact audit record of a retrieval query; full
// snippet bodies never reach the event stream.
func snippetSummary(snippets []core.RetrievalResult) map[string]any {
	sources := make([]string, 0, len(snippets))
	var docs, examples int
	for _, s := range snippets {
		sources = append(sources, s.Source)
		switch s.Category {
		case core.CategoryExample:
			examples++
		default:
			docs++
		}
	}
	summary := map[string]any{
		"count":         len(snippets),
		"sources":       sources,
		"documentation": docs,
		"examples":      examples,
	}
	if len(snippets) > 0 {
		summary["top_score"] = snippets[0].Score
	}
	return summary
}

// errKind maps the error taxonomy onto the wire labels used in events.
func errKind(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return "validation"
	}
	var rl *model.RateLimitedError
	if errors.As(err, &rl) {
		return "rate_limited"
	}
	var te *model.TimeoutError
	if errors.As(err, &te) {
		return "timeout"
	}
	var se *model.ServiceError
	if errors.As(err, &se) {
		return "service"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return "error"
}

// budgetInvoker enforces the shared rate budget before every dispatch. It
// sits inside the retry wrapper so a budget timeout (a retryable rate limit
// error) follows the same escalation path as provider throttling.
type budgetInvoker struct {
	inner  model.Invoker
	budget core.RateBudget
}

func (b *budgetInvoker) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	if err := b.budget.Acquire(ctx); err != nil {
		return nil, err
	}
	return b.inner.Invoke(ctx, req)
}
