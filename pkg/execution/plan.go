package execution

import (
	"time"

	"github.com/funcmodel/funcmodel/pkg/models"
)

// Outcome is what the external executor observed for one action attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeSkipped Outcome = "skipped"
	OutcomeTimeout Outcome = "timeout"
)

// IsValid reports whether o is a known outcome.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeSuccess, OutcomeFailure, OutcomeSkipped, OutcomeTimeout:
		return true
	default:
		return false
	}
}

// StepState tracks one action within a plan. It extends the action status
// machine with the scheduling-only states skipped and cancelled.
type StepState string

const (
	StepPending   StepState = "pending"
	StepRetrying  StepState = "retrying"
	StepCompleted StepState = "completed"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
	StepCancelled StepState = "cancelled"
)

// IsTerminal reports whether the step can no longer change.
func (s StepState) IsTerminal() bool {
	switch s {
	case StepCompleted, StepFailed, StepSkipped, StepCancelled:
		return true
	default:
		return false
	}
}

// PlanState is the aggregate state of a plan.
type PlanState string

const (
	PlanRunning   PlanState = "running"
	PlanCompleted PlanState = "completed"
	PlanFailed    PlanState = "failed"
	PlanCancelled PlanState = "cancelled"
)

// IsTerminal reports whether the plan accepts further Advance calls.
func (s PlanState) IsTerminal() bool {
	return s != PlanRunning
}

// ActionStep is one schedulable action inside a plan.
type ActionStep struct {
	ActionID    models.NodeID
	ContainerID models.NodeID
	Name        string
	ActionType  models.ActionType
	Mode        models.ExecutionMode
	State       StepState
	RetryCount  int
	MaxRetries  int

	executionOrder int
	priority       int
	createdAt      time.Time
	index          int // registration order, last tie-break
}

// ContainerStage is a container with its ordered steps; plan containers are
// stored in topological order.
type ContainerStage struct {
	ContainerID models.NodeID
	Name        string
	Parallel    bool
	Steps       []*ActionStep

	deps []models.NodeID
}

// State derives the container's aggregate state from its steps. A container
// is terminal only once every child is terminal.
func (c *ContainerStage) State() StepState {
	failed := false

	for _, step := range c.Steps {
		if !step.State.IsTerminal() {
			return StepPending
		}

		if step.State == StepFailed || step.State == StepCancelled {
			failed = true
		}
	}

	if failed {
		return StepFailed
	}

	return StepCompleted
}

// ExecutionPlan is a scheduled run of one published model. All mutation goes
// through the engine's Advance and Stop; callers running sibling actions
// concurrently must serialize Advance calls per action id.
type ExecutionPlan struct {
	ID         string
	ModelID    models.ModelID
	ModelName  string
	State      PlanState
	DryRun     bool
	Containers []*ContainerStage
	Variables  map[string]any
	StartedAt  time.Time
	FinishedAt *time.Time

	steps      map[string]*ActionStep
	containers map[string]*ContainerStage
}

// Step returns the step for the given action id.
func (p *ExecutionPlan) Step(actionID models.NodeID) (*ActionStep, bool) {
	step, ok := p.steps[actionID.String()]

	return step, ok
}

// Container returns the stage for the given container id.
func (p *ExecutionPlan) Container(containerID models.NodeID) (*ContainerStage, bool) {
	container, ok := p.containers[containerID.String()]

	return container, ok
}

// OrderedActionIDs returns every action id in plan order; execution order
// within a container is the slice order.
func (p *ExecutionPlan) OrderedActionIDs() []models.NodeID {
	var ids []models.NodeID

	for _, container := range p.Containers {
		for _, step := range container.Steps {
			ids = append(ids, step.ActionID)
		}
	}

	return ids
}

// NextActions returns the ids of every step eligible to run right now, in
// plan order. Equal-priority parallel siblings surface in registration order.
func (p *ExecutionPlan) NextActions() []models.NodeID {
	if p.State.IsTerminal() {
		return nil
	}

	var ready []models.NodeID

	for _, container := range p.Containers {
		if !p.dependenciesTerminal(container) {
			continue
		}

		for i, step := range container.Steps {
			if p.stepEligible(container, i, step) {
				ready = append(ready, step.ActionID)
			}
		}
	}

	return ready
}

func (p *ExecutionPlan) dependenciesTerminal(container *ContainerStage) bool {
	for _, depID := range container.deps {
		dep, ok := p.containers[depID.String()]
		if ok && !dep.State().IsTerminal() {
			return false
		}
	}

	return true
}

// stepEligible applies the execution-mode semantics: parallel steps run
// alongside their siblings, sequential steps wait for every earlier sibling
// to reach a terminal state.
func (p *ExecutionPlan) stepEligible(container *ContainerStage, index int, step *ActionStep) bool {
	if step.State != StepPending && step.State != StepRetrying {
		return false
	}

	if container.Parallel || step.Mode == models.ExecutionModeParallel {
		return true
	}

	for _, earlier := range container.Steps[:index] {
		if !earlier.State.IsTerminal() {
			return false
		}
	}

	return true
}

// Summary reports per-state counts; for dry runs Synthetic is true.
type Summary struct {
	PlanID    string    `json:"plan_id"`
	State     PlanState `json:"state"`
	Total     int       `json:"total"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Cancelled int       `json:"cancelled"`
	Pending   int       `json:"pending"`
	Retrying  int       `json:"retrying"`
	Synthetic bool      `json:"synthetic"`
}

// Summary tallies the current step states.
func (p *ExecutionPlan) Summary() Summary {
	s := Summary{PlanID: p.ID, State: p.State, Synthetic: p.DryRun}

	for _, container := range p.Containers {
		for _, step := range container.Steps {
			s.Total++

			switch step.State {
			case StepCompleted:
				s.Completed++
			case StepFailed:
				s.Failed++
			case StepSkipped:
				s.Skipped++
			case StepCancelled:
				s.Cancelled++
			case StepRetrying:
				s.Retrying++
			case StepPending:
				s.Pending++
			}
		}
	}

	return s
}

func (p *ExecutionPlan) allStepsTerminal() bool {
	for _, container := range p.Containers {
		for _, step := range container.Steps {
			if !step.State.IsTerminal() {
				return false
			}
		}
	}

	return true
}
