// internal/agent/orchestrator.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot/api/schemas"
	"github.com/xkilldash9x/webpilot/internal/config"
	"github.com/xkilldash9x/webpilot/internal/observability"
	"github.com/xkilldash9x/webpilot/internal/tools"
)

// RunState is the phase of the turn loop.
type RunState string

const (
	StateIdle          RunState = "IDLE"
	StateRunning       RunState = "RUNNING"
	StateAwaitingModel RunState = "AWAITING_MODEL"
	StateAwaitingTool  RunState = "AWAITING_TOOL"
	StateDone          RunState = "DONE"              // The model answered without calling a tool.
	StateMaxSteps      RunState = "MAX_STEPS_REACHED" // The step ceiling was hit first.
	StateAborted       RunState = "ABORTED"           // An error escaped the loop body.
)

// Terminal reports whether the loop has stopped for good.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateMaxSteps || s == StateAborted
}

const (
	// NoAnswerMessage is shown when a run stops without any answer text.
	NoAnswerMessage = "Task execution ended without final answer"
	maxStepsMessage = "Reached maximum steps (%d) without a final answer."
)

// Result is what a run hands back to its caller.
type Result struct {
	RunID   string
	Status  RunState
	Answer  string // Final answer, set only when Status is DONE.
	Partial string // Latest reasoning text, kept for aborted and capped runs.
	Steps   int
	Err     error // The error that aborted the run, if any.
}

// Text is the user-facing outcome: the answer, the max-steps notice, or the
// generic marker. An aborted run surfaces its partial text when it has any.
func (r Result) Text() string {
	switch r.Status {
	case StateDone:
		if strings.TrimSpace(r.Answer) != "" {
			return r.Answer
		}
	case StateMaxSteps:
		return fmt.Sprintf(maxStepsMessage, r.Steps)
	case StateAborted:
		if strings.TrimSpace(r.Partial) != "" {
			return r.Partial
		}
	}
	return NoAnswerMessage
}

// -- Collaborators --

// ToolDispatcher is the tool layer as seen by the loop. Satisfied by
// *tools.Registry.
type ToolDispatcher interface {
	Specs() []schemas.ToolSpec
	Dispatch(ctx context.Context, call schemas.ToolUse) tools.Outcome
}

var _ ToolDispatcher = (*tools.Registry)(nil)

// Observer is told about the progress of a run. Calls happen on the loop's
// goroutine, in order.
type Observer interface {
	StepStarted(step, maxSteps int)
	Reasoning(step int, text string)
	ToolCalled(step int, call schemas.ToolUse)
	ToolFinished(step int, call schemas.ToolUse, out tools.Outcome)
	HistoryTrimmed(dropped, remaining int)
	Finished(res Result)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) StepStarted(int, int)                             {}
func (NopObserver) Reasoning(int, string)                            {}
func (NopObserver) ToolCalled(int, schemas.ToolUse)                  {}
func (NopObserver) ToolFinished(int, schemas.ToolUse, tools.Outcome) {}
func (NopObserver) HistoryTrimmed(int, int)                          {}
func (NopObserver) Finished(Result)                                  {}

// -- Orchestrator --

// Orchestrator drives the conversation between the model and the tools.
// One Orchestrator runs one task at a time.
type Orchestrator struct {
	model    schemas.ModelClient
	tools    ToolDispatcher
	cfg      config.AgentConfig
	observer Observer
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu    sync.Mutex
	state RunState
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver routes run events to obs.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithMetrics records steps, model latency and run outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// NewOrchestrator builds the loop around a model client and a tool layer.
func NewOrchestrator(model schemas.ModelClient, dispatcher ToolDispatcher, cfg config.Interface, logger *zap.Logger, opts ...Option) (*Orchestrator, error) {
	if model == nil {
		return nil, errors.New("orchestrator requires a model client")
	}
	if dispatcher == nil {
		return nil, errors.New("orchestrator requires a tool dispatcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	agentCfg := cfg.Agent()
	if agentCfg.MaxSteps <= 0 {
		return nil, fmt.Errorf("max_steps must be positive, got %d", agentCfg.MaxSteps)
	}

	o := &Orchestrator{
		model:    model,
		tools:    dispatcher,
		cfg:      agentCfg,
		observer: NopObserver{},
		logger:   logger.Named("orchestrator"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// State returns the current phase of the loop.
func (o *Orchestrator) State() RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(next RunState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == next {
		return
	}
	o.logger.Debug("Run state transition", zap.String("from", string(o.state)), zap.String("to", string(next)))
	o.state = next
}

// Run executes the task until the model answers, the step ceiling is hit,
// or an error escapes an iteration. It never returns an error: failures are
// reported through Result.Status and Result.Err.
func (o *Orchestrator) Run(ctx context.Context, task string) (res Result) {
	res.RunID = uuid.New().String()[:8]
	logger := o.logger.With(zap.String("run_id", res.RunID))
	logger.Info("Agent run starting.", zap.String("task", task), zap.Int("max_steps", o.cfg.MaxSteps))

	history := NewHistory(schemas.NewUserText(TaskPrompt(task)), o.cfg.MaxHistoryMessages, o.cfg.HistoryKeepMessages)
	o.setState(StateRunning)

	defer func() {
		o.setState(res.Status)
		o.metrics.ObserveRun(string(res.Status))
		o.observer.Finished(res)
		logger.Info("Agent run finished.",
			zap.String("state", string(res.Status)),
			zap.Int("steps", res.Steps),
			zap.Error(res.Err))
	}()

	for res.Steps < o.cfg.MaxSteps {
		res.Steps++
		answer, done, err := o.iterate(ctx, res.Steps, history, &res.Partial, logger)
		if err != nil {
			logger.Error("Aborting run.", zap.Int("step", res.Steps), zap.Error(err))
			res.Status = StateAborted
			res.Err = err
			return res
		}
		if done {
			res.Status = StateDone
			res.Answer = answer
			return res
		}
	}

	logger.Warn("Step ceiling reached before a final answer.", zap.Int("step", res.Steps))
	res.Status = StateMaxSteps
	return res
}

// iterate runs one turn: model request, tool dispatch, history upkeep. A
// panic anywhere in the turn is converted into an error and aborts the run.
func (o *Orchestrator) iterate(ctx context.Context, step int, history *History, partial *string, logger *zap.Logger) (answer string, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in agent loop.", zap.Any("panic_reason", r), zap.Stack("stack"))
			err = fmt.Errorf("agent loop panicked: %v", r)
		}
	}()

	o.setState(StateRunning)
	o.metrics.ObserveStep()
	o.observer.StepStarted(step, o.cfg.MaxSteps)

	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("run cancelled: %w", err)
	}
	if err := history.ValidatePairing(); err != nil {
		return "", false, err
	}

	o.setState(StateAwaitingModel)
	req := schemas.ModelRequest{
		Messages:    history.Messages(),
		Tools:       o.tools.Specs(),
		Temperature: 0,
		MaxTokens:   o.cfg.LLM.MaxTokens,
	}
	start := time.Now()
	resp, err := o.model.Complete(ctx, req)
	if err != nil {
		o.metrics.ObserveModelRequest("error", time.Since(start))
		return "", false, fmt.Errorf("model request failed: %w", err)
	}
	o.metrics.ObserveModelRequest("ok", time.Since(start))
	if resp == nil {
		return "", false, errors.New("model returned an empty response")
	}
	logger.Debug("Model turn received.",
		zap.Int("step", step),
		zap.Int("blocks", len(resp.Content)),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	turn := schemas.Message{Role: schemas.RoleAssistant, Content: resp.Content}
	history.Append(turn)

	texts := turn.Texts()
	for _, text := range texts {
		if strings.TrimSpace(text) != "" {
			o.observer.Reasoning(step, text)
		}
	}
	if joined := strings.TrimSpace(strings.Join(texts, " ")); joined != "" {
		*partial = joined
	}

	calls := turn.ToolUses()
	if len(calls) == 0 {
		return strings.Join(texts, " "), true, nil
	}

	o.setState(StateAwaitingTool)
	results := make([]schemas.ContentBlock, 0, len(calls))
	for _, call := range calls {
		o.observer.ToolCalled(step, call)
		logger.Info("Dispatching tool.", zap.Int("step", step), zap.String("tool", call.Name))
		out := o.tools.Dispatch(ctx, call)
		o.observer.ToolFinished(step, call, out)
		results = append(results, schemas.ToolResultBlock(out.ToolResult(call.ID, o.cfg.MaxToolResultChars)))
	}
	history.Append(schemas.Message{Role: schemas.RoleUser, Content: results})

	dropped := history.Trim()
	o.metrics.ObserveHistory(history.Len(), dropped > 0)
	if dropped > 0 {
		logger.Info("Trimmed conversation history.", zap.Int("dropped", dropped), zap.Int("remaining", history.Len()))
		o.observer.HistoryTrimmed(dropped, history.Len())
	}
	return "", false, nil
}
