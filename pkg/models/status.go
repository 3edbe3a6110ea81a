package models

// ModelStatus represents the lifecycle state of a function model.
type ModelStatus string

const (
	ModelStatusDraft     ModelStatus = "draft"     // Editable, not executable
	ModelStatusPublished ModelStatus = "published" // Executable, structurally frozen
	ModelStatusArchived  ModelStatus = "archived"  // Terminal, immutable
)

// modelTransitions lists every legal model status transition. Archived is
// terminal: nothing leaves it.
var modelTransitions = map[ModelStatus][]ModelStatus{
	ModelStatusDraft:     {ModelStatusPublished, ModelStatusArchived},
	ModelStatusPublished: {ModelStatusArchived},
	ModelStatusArchived:  {},
}

// CanTransition reports whether from -> to is a legal model transition.
func (s ModelStatus) CanTransition(to ModelStatus) bool {
	for _, allowed := range modelTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// NodeStatus is the coarse status shared by all nodes.
type NodeStatus string

const (
	NodeStatusActive     NodeStatus = "active"
	NodeStatusInactive   NodeStatus = "inactive"
	NodeStatusDraft      NodeStatus = "draft"
	NodeStatusConfigured NodeStatus = "configured"
	NodeStatusArchived   NodeStatus = "archived"
	NodeStatusError      NodeStatus = "error"
)

// ActionStatus is the fine-grained execution status of an action node.
// NodeStatus for an action node is always derived from it, never stored
// independently.
type ActionStatus string

const (
	ActionStatusDraft      ActionStatus = "draft"
	ActionStatusConfigured ActionStatus = "configured"
	ActionStatusActive     ActionStatus = "active"
	ActionStatusInactive   ActionStatus = "inactive"
	ActionStatusExecuting  ActionStatus = "executing"
	ActionStatusCompleted  ActionStatus = "completed"
	ActionStatusFailed     ActionStatus = "failed"
	ActionStatusRetrying   ActionStatus = "retrying"
	ActionStatusArchived   ActionStatus = "archived"
	ActionStatusError      ActionStatus = "error"
)

var actionTransitions = map[ActionStatus][]ActionStatus{
	ActionStatusDraft:      {ActionStatusConfigured, ActionStatusActive, ActionStatusArchived},
	ActionStatusConfigured: {ActionStatusActive, ActionStatusInactive, ActionStatusArchived},
	ActionStatusActive:     {ActionStatusInactive, ActionStatusExecuting, ActionStatusArchived},
	ActionStatusInactive:   {ActionStatusActive, ActionStatusArchived},
	ActionStatusExecuting:  {ActionStatusCompleted, ActionStatusFailed, ActionStatusError},
	ActionStatusFailed:     {ActionStatusRetrying, ActionStatusArchived},
	ActionStatusRetrying:   {ActionStatusExecuting, ActionStatusFailed, ActionStatusError},
	ActionStatusCompleted:  {ActionStatusArchived},
	ActionStatusError:      {ActionStatusArchived},
	ActionStatusArchived:   {},
}

// CanTransition reports whether from -> to is a legal action transition.
func (s ActionStatus) CanTransition(to ActionStatus) bool {
	for _, allowed := range actionTransitions[s] {
		if allowed == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether the status ends an execution attempt.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionStatusCompleted, ActionStatusFailed, ActionStatusError, ActionStatusArchived:
		return true
	default:
		return false
	}
}

// DeriveNodeStatus maps an action's fine-grained status onto the coarse
// NodeStatus vocabulary.
func (s ActionStatus) DeriveNodeStatus() NodeStatus {
	switch s {
	case ActionStatusDraft:
		return NodeStatusDraft
	case ActionStatusConfigured:
		return NodeStatusConfigured
	case ActionStatusActive, ActionStatusExecuting, ActionStatusRetrying, ActionStatusCompleted:
		return NodeStatusActive
	case ActionStatusInactive:
		return NodeStatusInactive
	case ActionStatusFailed, ActionStatusError:
		return NodeStatusError
	case ActionStatusArchived:
		return NodeStatusArchived
	default:
		return NodeStatusError
	}
}

// ExecutionMode governs scheduling of sibling actions within a container.
type ExecutionMode string

const (
	ExecutionModeSequential  ExecutionMode = "sequential"
	ExecutionModeParallel    ExecutionMode = "parallel"
	ExecutionModeConditional ExecutionMode = "conditional"
)

// LinkType classifies an edge between two nodes.
type LinkType string

const (
	LinkTypeDocuments  LinkType = "documents"
	LinkTypeImplements LinkType = "implements"
	LinkTypeReferences LinkType = "references"
	LinkTypeSupports   LinkType = "supports"
	LinkTypeNested     LinkType = "nested"
	LinkTypeTriggers   LinkType = "triggers"
	LinkTypeConsumes   LinkType = "consumes"
	LinkTypeProduces   LinkType = "produces"
	LinkTypeDependency LinkType = "dependency"
	LinkTypeReference  LinkType = "reference"
)

var linkTypes = map[LinkType]bool{
	LinkTypeDocuments:  true,
	LinkTypeImplements: true,
	LinkTypeReferences: true,
	LinkTypeSupports:   true,
	LinkTypeNested:     true,
	LinkTypeTriggers:   true,
	LinkTypeConsumes:   true,
	LinkTypeProduces:   true,
	LinkTypeDependency: true,
	LinkTypeReference:  true,
}

// IsValid reports whether t is one of the known link types.
func (t LinkType) IsValid() bool {
	return linkTypes[t]
}

// RACIRole names a responsibility slot on an action node.
type RACIRole string

const (
	RACIResponsible RACIRole = "responsible"
	RACIAccountable RACIRole = "accountable"
	RACIConsulted   RACIRole = "consulted"
	RACIInformed    RACIRole = "informed"
)
