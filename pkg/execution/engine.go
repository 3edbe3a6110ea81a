package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/funcmodel/funcmodel/pkg/eventbus"
	"github.com/funcmodel/funcmodel/pkg/events"
	"github.com/funcmodel/funcmodel/pkg/log"
	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/result"
	"github.com/funcmodel/funcmodel/pkg/tracer"
)

// Engine plans executions of published models and is the single writer of
// step transitions. It performs no work itself and holds no locks; callers
// issuing concurrent Advance calls must serialize them per action id.
type Engine struct {
	logger *slog.Logger
	bus    eventbus.EventBus
	tracer trace.Tracer
	clock  models.Clock
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithEventBus makes the engine publish lifecycle events.
func WithEventBus(bus eventbus.EventBus) EngineOption {
	return func(e *Engine) {
		e.bus = bus
	}
}

// WithTracer makes the engine record spans.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithEngineClock injects a time source.
func WithEngineClock(clock models.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// NewEngine creates an engine. Bus and tracer are optional.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: log.WithModule("execution_engine"),
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// PlanOption customizes a single plan.
type PlanOption func(*planConfig)

type planConfig struct {
	variables map[string]any
	dryRun    bool
}

// WithVariables seeds the plan variables used by conditional guards.
func WithVariables(vars map[string]any) PlanOption {
	return func(c *planConfig) {
		c.variables = vars
	}
}

// WithDryRun plans and advances identically but publishes no events and
// marks the summary synthetic.
func WithDryRun() PlanOption {
	return func(c *planConfig) {
		c.dryRun = true
	}
}

// Plan computes an execution plan for a published model: containers in
// topological dependency order, actions within a container ordered by
// execution order, then priority (higher first), then creation time.
func (e *Engine) Plan(ctx context.Context, model *models.FunctionModel, opts ...PlanOption) result.Result[*ExecutionPlan] {
	cfg := planConfig{variables: map[string]any{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, span := e.startSpan(ctx, "execution.plan",
		attribute.String(tracer.ModelIDKey, model.ID().String()),
		attribute.Bool(tracer.DryRunKey, cfg.dryRun),
	)
	defer span.End()

	if model.Status() != models.ModelStatusPublished {
		err := fmt.Errorf("model %s is %s, only published models execute: %w",
			model.ID(), model.Status(), models.ErrConflict)
		tracer.SetError(span, err)

		return result.Err[*ExecutionPlan](err)
	}

	ordered, err := topologicalContainers(model)
	if err != nil {
		tracer.SetError(span, err)

		return result.Err[*ExecutionPlan](err)
	}

	plan := &ExecutionPlan{
		ID:         uuid.New().String(),
		ModelID:    model.ID(),
		ModelName:  model.Name().String(),
		State:      PlanRunning,
		DryRun:     cfg.dryRun,
		Variables:  cfg.variables,
		StartedAt:  e.clock(),
		steps:      make(map[string]*ActionStep),
		containers: make(map[string]*ContainerStage),
	}

	index := 0

	for _, node := range ordered {
		stage, err := e.buildStage(model, node, cfg.variables, &index)
		if err != nil {
			tracer.SetError(span, err)

			return result.Err[*ExecutionPlan](err)
		}

		plan.Containers = append(plan.Containers, stage)
		plan.containers[stage.ContainerID.String()] = stage

		for _, step := range stage.Steps {
			plan.steps[step.ActionID.String()] = step
		}
	}

	e.logger.Info("planned execution",
		"model_id", model.ID().String(),
		"plan_id", plan.ID,
		"containers", len(plan.Containers),
		"steps", len(plan.steps),
		"dry_run", cfg.dryRun,
	)

	e.publish(ctx, plan, events.ExecutionStarted{
		BaseEvent: e.baseEvent(events.ExecutionStartedEvent, plan.ModelID),
		PlanID:    plan.ID,
		DryRun:    plan.DryRun,
	})

	// A model whose actions were all skipped by guards finishes immediately.
	e.finalizeIfDone(ctx, plan)

	return result.Ok(plan)
}

func (e *Engine) buildStage(model *models.FunctionModel, node models.Node, vars map[string]any, index *int) (*ContainerStage, error) {
	base := node.Base()

	stage := &ContainerStage{
		ContainerID: base.ID,
		Name:        base.Name,
		deps:        base.Dependencies,
	}

	if stageNode, ok := node.(*models.StageNode); ok {
		stage.Parallel = stageNode.ParallelExecution
	}

	actions := model.ActionsOf(base.ID)

	steps := make([]*ActionStep, 0, len(actions))

	for _, action := range actions {
		actionBase := action.Base()

		step := &ActionStep{
			ActionID:       actionBase.ID,
			ContainerID:    base.ID,
			Name:           actionBase.Name,
			ActionType:     action.ActionType(),
			Mode:           actionBase.ExecutionMode,
			State:          StepPending,
			MaxRetries:     actionBase.RetryPolicy.MaxRetries,
			executionOrder: actionBase.ExecutionOrder,
			priority:       actionBase.Priority,
			createdAt:      actionBase.CreatedAt,
			index:          *index,
		}
		*index++

		if actionBase.ExecutionMode == models.ExecutionModeConditional {
			guard, err := parseGuard(actionBase.ActionData)
			if err != nil {
				return nil, fmt.Errorf("action %s: %w", actionBase.ID, err)
			}

			scheduled, err := guard.Evaluate(vars)
			if err != nil {
				return nil, fmt.Errorf("action %s: %w", actionBase.ID, err)
			}

			if !scheduled {
				step.State = StepSkipped
			}
		}

		steps = append(steps, step)
	}

	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]

		if a.executionOrder != b.executionOrder {
			return a.executionOrder < b.executionOrder
		}

		if a.priority != b.priority {
			return a.priority > b.priority
		}

		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.Before(b.createdAt)
		}

		return a.index < b.index
	})

	stage.Steps = steps

	return stage, nil
}

// topologicalContainers orders containers with Kahn's algorithm over the
// dependency edges, keeping insertion order among unconstrained containers.
func topologicalContainers(model *models.FunctionModel) ([]models.Node, error) {
	nodes := model.Nodes()

	indegree := make(map[string]int, len(nodes))
	for _, node := range nodes {
		indegree[node.NodeID().String()] = len(node.Base().Dependencies)
	}

	emitted := make(map[string]bool, len(nodes))
	ordered := make([]models.Node, 0, len(nodes))

	for len(ordered) < len(nodes) {
		progressed := false

		for _, node := range nodes {
			key := node.NodeID().String()
			if emitted[key] || indegree[key] != 0 {
				continue
			}

			emitted[key] = true
			ordered = append(ordered, node)
			progressed = true

			for _, other := range nodes {
				if other.Base().HasDependency(node.NodeID()) && !emitted[other.NodeID().String()] {
					indegree[other.NodeID().String()]--
				}
			}
		}

		if !progressed {
			return nil, fmt.Errorf("container dependencies: %w", models.ErrCyclicDependency)
		}
	}

	return ordered, nil
}

// Advance records the observed outcome for one action. It is the only way a
// step changes state.
func (e *Engine) Advance(ctx context.Context, plan *ExecutionPlan, actionID models.NodeID, outcome Outcome) result.Result[*ExecutionPlan] {
	ctx, span := e.startSpan(ctx, "execution.advance",
		attribute.String(tracer.PlanIDKey, plan.ID),
		attribute.String(tracer.ActionIDKey, actionID.String()),
		attribute.String(tracer.OutcomeKey, string(outcome)),
	)
	defer span.End()

	if !outcome.IsValid() {
		return e.fail(span, fmt.Errorf("unknown outcome %q: %w", outcome, models.ErrValidation))
	}

	if plan.State.IsTerminal() {
		return e.fail(span, fmt.Errorf("plan %s is %s: %w", plan.ID, plan.State, models.ErrConflict))
	}

	step, ok := plan.Step(actionID)
	if !ok {
		return e.fail(span, fmt.Errorf("action %s not in plan %s: %w", actionID, plan.ID, models.ErrNotFound))
	}

	container := plan.containers[step.ContainerID.String()]

	if !plan.dependenciesTerminal(container) {
		return e.fail(span, fmt.Errorf("action %s is blocked by container dependencies: %w", actionID, models.ErrConflict))
	}

	eligible := false

	for i, candidate := range container.Steps {
		if candidate == step {
			eligible = plan.stepEligible(container, i, step)

			break
		}
	}

	if !eligible {
		return e.fail(span, fmt.Errorf("action %s is not eligible in state %s: %w", actionID, step.State, models.ErrConflict))
	}

	from := step.State

	switch outcome {
	case OutcomeSuccess:
		step.State = StepCompleted
	case OutcomeSkipped:
		step.State = StepSkipped
	case OutcomeFailure, OutcomeTimeout:
		if step.RetryCount < step.MaxRetries {
			step.RetryCount++
			step.State = StepRetrying
		} else {
			step.State = StepFailed
		}
	}

	e.logger.Debug("advanced action",
		"plan_id", plan.ID,
		"action_id", actionID.String(),
		"from", string(from),
		"to", string(step.State),
		"retry_count", step.RetryCount,
	)

	e.publish(ctx, plan, events.ActionTransitioned{
		BaseEvent:  e.baseEvent(events.ActionTransitionedEvent, plan.ModelID),
		PlanID:     plan.ID,
		ActionID:   actionID.String(),
		From:       string(from),
		To:         string(step.State),
		RetryCount: step.RetryCount,
	})

	e.finalizeIfDone(ctx, plan)

	return result.Ok(plan)
}

// Stop cancels the plan. Every non-terminal step becomes cancelled and any
// further Advance fails with a conflict.
func (e *Engine) Stop(ctx context.Context, plan *ExecutionPlan) result.Result[*ExecutionPlan] {
	ctx, span := e.startSpan(ctx, "execution.stop",
		attribute.String(tracer.PlanIDKey, plan.ID),
	)
	defer span.End()

	if plan.State.IsTerminal() {
		return e.fail(span, fmt.Errorf("plan %s is already %s: %w", plan.ID, plan.State, models.ErrConflict))
	}

	for _, container := range plan.Containers {
		for _, step := range container.Steps {
			if !step.State.IsTerminal() {
				step.State = StepCancelled
			}
		}
	}

	plan.State = PlanCancelled
	now := e.clock()
	plan.FinishedAt = &now

	e.logger.Info("cancelled execution", "plan_id", plan.ID)

	e.publish(ctx, plan, events.ExecutionCancelled{
		BaseEvent: e.baseEvent(events.ExecutionCancelledEvent, plan.ModelID),
		PlanID:    plan.ID,
	})

	return result.Ok(plan)
}

func (e *Engine) finalizeIfDone(ctx context.Context, plan *ExecutionPlan) {
	if plan.State.IsTerminal() || !plan.allStepsTerminal() {
		return
	}

	summary := plan.Summary()

	if summary.Failed > 0 {
		plan.State = PlanFailed
	} else {
		plan.State = PlanCompleted
	}

	now := e.clock()
	plan.FinishedAt = &now

	e.logger.Info("finished execution",
		"plan_id", plan.ID,
		"state", string(plan.State),
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	if plan.State == PlanFailed {
		e.publish(ctx, plan, events.ExecutionFailed{
			BaseEvent: e.baseEvent(events.ExecutionFailedEvent, plan.ModelID),
			PlanID:    plan.ID,
			Error:     fmt.Sprintf("%d of %d actions failed", summary.Failed, summary.Total),
		})

		return
	}

	e.publish(ctx, plan, events.ExecutionCompleted{
		BaseEvent: e.baseEvent(events.ExecutionCompletedEvent, plan.ModelID),
		PlanID:    plan.ID,
		Completed: summary.Completed,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Duration:  e.clock().Sub(plan.StartedAt),
	})
}

func (e *Engine) publish(ctx context.Context, plan *ExecutionPlan, event eventbus.Event) {
	if e.bus == nil || plan.DryRun {
		return
	}

	if err := e.bus.Publish(ctx, plan.ModelID.String(), event); err != nil {
		e.logger.Error("failed to publish event",
			"event_type", string(event.GetType()),
			"plan_id", plan.ID,
			"error", err,
		)
	}
}

func (e *Engine) baseEvent(eventType events.EventType, modelID models.ModelID) events.BaseEvent {
	id := uuid.New().String()
	if e.bus != nil {
		id = e.bus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: e.clock(),
		ModelID:   modelID.String(),
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if e.tracer == nil {
		return noop.NewTracerProvider().Tracer("").Start(ctx, name)
	}

	return tracer.StartSpan(ctx, e.tracer, name, attrs...)
}

func (e *Engine) fail(span trace.Span, err error) result.Result[*ExecutionPlan] {
	tracer.SetError(span, err)

	return result.Err[*ExecutionPlan](err)
}
