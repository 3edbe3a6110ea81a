package models

import (
	"time"
)

// ActionType discriminates the closed set of action node variants.
type ActionType string

const (
	ActionTypeTether         ActionType = "tether"
	ActionTypeKBReference    ActionType = "kb_reference"
	ActionTypeModelContainer ActionType = "model_container"
)

// BackoffStrategy names how retry delays grow between attempts.
type BackoffStrategy string

const (
	BackoffImmediate   BackoffStrategy = "immediate"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy bounds how often a failed action is retried. The engine keeps
// the retry count; the policy only declares the limits.
type RetryPolicy struct {
	MaxRetries   int             `json:"max_retries"   validate:"min=0,max=10"`
	Strategy     BackoffStrategy `json:"strategy"      validate:"required,oneof=immediate linear exponential"`
	BackoffDelay time.Duration   `json:"backoff_delay" validate:"min=0"`
}

// DefaultRetryPolicy is no retries with immediate backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Strategy: BackoffImmediate}
}

// DelayFor returns the wait before the given retry attempt (1-based).
func (p RetryPolicy) DelayFor(attempt int) time.Duration {
	switch p.Strategy {
	case BackoffLinear:
		return time.Duration(attempt) * p.BackoffDelay
	case BackoffExponential:
		delay := p.BackoffDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		return delay
	default:
		return 0
	}
}

// RACIAssignment records who is responsible, accountable, consulted, and
// informed for an action.
type RACIAssignment struct {
	Responsible []string `json:"responsible,omitempty"`
	Accountable []string `json:"accountable,omitempty"`
	Consulted   []string `json:"consulted,omitempty"`
	Informed    []string `json:"informed,omitempty"`
}

// Roles returns the parties assigned to the given role.
func (r RACIAssignment) Roles(role RACIRole) []string {
	switch role {
	case RACIResponsible:
		return r.Responsible
	case RACIAccountable:
		return r.Accountable
	case RACIConsulted:
		return r.Consulted
	case RACIInformed:
		return r.Informed
	default:
		return nil
	}
}

// ActionNode is the contract shared by executable action nodes. Like Node,
// the implementation set is closed.
type ActionNode interface {
	ActionID() NodeID
	ActionType() ActionType
	Base() *ActionBase

	isActionNode()
}

// ActionBase carries the attributes common to all action nodes.
type ActionBase struct {
	ID                NodeID
	ModelID           ModelID
	ParentNodeID      NodeID // owning container, must exist in the same model
	Name              string `validate:"required,min=1,max=200"`
	Description       string
	ExecutionMode     ExecutionMode `validate:"required,oneof=sequential parallel conditional"`
	Status            ActionStatus
	ExecutionOrder    int `validate:"min=0"`
	Priority          int `validate:"min=1,max=10"`
	EstimatedDuration time.Duration
	RetryPolicy       RetryPolicy
	RACI              RACIAssignment
	Metadata          map[string]any
	ActionData        map[string]any // interpreted by the external executor
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (b *ActionBase) ActionID() NodeID {
	return b.ID
}

func (b *ActionBase) Base() *ActionBase {
	return b
}

func (b *ActionBase) isActionNode() {}

// NodeStatus derives the coarse status from the fine-grained ActionStatus.
func (b *ActionBase) NodeStatus() NodeStatus {
	return b.Status.DeriveNodeStatus()
}

// TransitionTo moves the action to the target status if the transition is
// legal, updating the timestamp.
func (b *ActionBase) TransitionTo(target ActionStatus, now time.Time) error {
	if !b.Status.CanTransition(target) {
		return errTransition(string(b.Status), string(target))
	}

	b.Status = target
	b.UpdatedAt = now

	return nil
}

// TetherNode is an action delegating work to an external tether execution.
type TetherNode struct {
	ActionBase
}

func (n *TetherNode) ActionType() ActionType {
	return ActionTypeTether
}

// KBNode is an action referencing a knowledge-base entry.
type KBNode struct {
	ActionBase
}

func (n *KBNode) ActionType() ActionType {
	return ActionTypeKBReference
}

// ModelContainerNode is an action nesting another function model.
type ModelContainerNode struct {
	ActionBase

	NestedModelID ModelID
}

func (n *ModelContainerNode) ActionType() ActionType {
	return ActionTypeModelContainer
}
