package models

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// validate is shared across constructors; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New()

// NodeType discriminates the closed set of node variants.
type NodeType string

const (
	NodeTypeIO             NodeType = "io"
	NodeTypeStage          NodeType = "stage"
	NodeTypeTether         NodeType = "tether"
	NodeTypeKB             NodeType = "kb"
	NodeTypeModelContainer NodeType = "model_container"
)

// IsContainer reports whether the type is a structural container that can
// own action nodes.
func (t NodeType) IsContainer() bool {
	return t == NodeTypeIO || t == NodeTypeStage
}

// IsAction reports whether the type is an executable action node.
func (t NodeType) IsAction() bool {
	return t == NodeTypeTether || t == NodeTypeKB || t == NodeTypeModelContainer
}

// Node is the contract shared by every node variant. The set of
// implementations is closed; isNode keeps external packages from adding
// variants so switches over NodeType stay exhaustive.
type Node interface {
	NodeID() NodeID
	Type() NodeType
	Base() *NodeBase

	isNode()
}

// NodeBase carries the attributes common to all nodes. Concrete variants
// embed it.
type NodeBase struct {
	ID               NodeID
	ModelID          ModelID
	Name             string `validate:"required,min=1,max=200"`
	Description      string
	Position         Position
	Dependencies     []NodeID
	ExecutionMode    ExecutionMode `validate:"required,oneof=sequential parallel conditional"`
	Status           NodeStatus
	Timeout          time.Duration
	Metadata         map[string]any
	VisualProperties map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (b *NodeBase) NodeID() NodeID {
	return b.ID
}

func (b *NodeBase) Base() *NodeBase {
	return b
}

func (b *NodeBase) isNode() {}

// HasDependency reports whether the node already depends on id.
func (b *NodeBase) HasDependency(id NodeID) bool {
	for _, dep := range b.Dependencies {
		if dep.Equals(id) {
			return true
		}
	}

	return false
}

// AddDependency records a dependency on id; duplicates are ignored.
func (b *NodeBase) AddDependency(id NodeID) {
	if !b.HasDependency(id) {
		b.Dependencies = append(b.Dependencies, id)
	}
}

// RemoveDependency drops the dependency on id if present.
func (b *NodeBase) RemoveDependency(id NodeID) {
	for i, dep := range b.Dependencies {
		if dep.Equals(id) {
			b.Dependencies = append(b.Dependencies[:i], b.Dependencies[i+1:]...)

			return
		}
	}
}

// IOBoundary distinguishes input from output boundary nodes.
type IOBoundary string

const (
	IOBoundaryInput  IOBoundary = "input"
	IOBoundaryOutput IOBoundary = "output"
)

// IOData describes the data contract of an IO boundary node.
type IOData struct {
	BoundaryType    IOBoundary     `json:"boundary_type"  validate:"required,oneof=input output"`
	DataType        string         `json:"data_type"      validate:"required"`
	Schema          map[string]any `json:"schema,omitempty"`
	IsRequired      bool           `json:"is_required"`
	ValidationRules map[string]any `json:"validation_rules,omitempty"`
	DefaultValue    any            `json:"default_value,omitempty"`
}

// IONode is a container node marking a data boundary of the model.
type IONode struct {
	NodeBase

	IOData IOData
}

func (n *IONode) Type() NodeType {
	return NodeTypeIO
}

// StageData describes the goals and requirements of a stage.
type StageData struct {
	StageType            string         `json:"stage_type"         validate:"required"`
	CompletionCriteria   map[string]any `json:"completion_criteria,omitempty"`
	StageGoals           []string       `json:"stage_goals,omitempty"`
	ResourceRequirements map[string]any `json:"resource_requirements,omitempty"`
}

// StageNode is a container node grouping an ordered list of action nodes.
type StageNode struct {
	NodeBase

	StageData         StageData
	ParallelExecution bool
	ActionIDs         []NodeID // insertion order, used for tie-breaking
	Configuration     map[string]any
}

func (n *StageNode) Type() NodeType {
	return NodeTypeStage
}

// OwnsAction reports whether the stage owns the action with the given id.
func (n *StageNode) OwnsAction(id NodeID) bool {
	for _, actionID := range n.ActionIDs {
		if actionID.Equals(id) {
			return true
		}
	}

	return false
}

func (n *StageNode) addAction(id NodeID) {
	if !n.OwnsAction(id) {
		n.ActionIDs = append(n.ActionIDs, id)
	}
}

func (n *StageNode) removeAction(id NodeID) {
	for i, actionID := range n.ActionIDs {
		if actionID.Equals(id) {
			n.ActionIDs = append(n.ActionIDs[:i], n.ActionIDs[i+1:]...)

			return
		}
	}
}

func validateStruct(v any) result.Result[result.Void] {
	if err := validate.Struct(v); err != nil {
		return result.Errf[result.Void]("%v: %w", err, ErrValidation)
	}

	return result.OkVoid()
}
