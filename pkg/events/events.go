// Package events defines event types published on model lifecycle and
// execution transitions.
package events

import (
	"time"
)

type EventType string

// Topic carries every funcmodel event.
const Topic = "funcmodel.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Model lifecycle events.
	ModelCreatedEvent   EventType = "model.created"
	ModelPublishedEvent EventType = "model.published"
	ModelArchivedEvent  EventType = "model.archived"

	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionCancelledEvent EventType = "execution.cancelled"

	// Per-action transition events.
	ActionTransitionedEvent EventType = "execution.action.transitioned"
)

// Event is implemented by every published event.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ModelID   string         `json:"model_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type ModelCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (e ModelCreated) GetType() EventType {
	return ModelCreatedEvent
}

type ModelPublished struct {
	BaseEvent

	Version string `json:"version"`
}

func (e ModelPublished) GetType() EventType {
	return ModelPublishedEvent
}

type ModelArchived struct {
	BaseEvent
}

func (e ModelArchived) GetType() EventType {
	return ModelArchivedEvent
}

type ExecutionStarted struct {
	BaseEvent

	PlanID string `json:"plan_id"`
	DryRun bool   `json:"dry_run"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	PlanID    string        `json:"plan_id"`
	Completed int           `json:"completed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	PlanID string `json:"plan_id"`
	Error  string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionCancelled struct {
	BaseEvent

	PlanID string `json:"plan_id"`
}

func (e ExecutionCancelled) GetType() EventType {
	return ExecutionCancelledEvent
}

type ActionTransitioned struct {
	BaseEvent

	PlanID     string `json:"plan_id"`
	ActionID   string `json:"action_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	RetryCount int    `json:"retry_count"`
}

func (e ActionTransitioned) GetType() EventType {
	return ActionTransitionedEvent
}
