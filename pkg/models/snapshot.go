package models

import (
	"fmt"
	"time"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// ModelSnapshot is the serializable form of a FunctionModel. Node variants
// are flattened with a type tag; ids, enums, and positions use the stable
// wire vocabulary so any transport can carry a snapshot without loss.
type ModelSnapshot struct {
	ID             string           `json:"id"              validate:"required,uuid"`
	Name           string           `json:"name"            validate:"required"`
	Description    string           `json:"description,omitempty"`
	Version        string           `json:"version"         validate:"required"`
	CurrentVersion string           `json:"current_version" validate:"required"`
	Status         ModelStatus      `json:"status"          validate:"required,oneof=draft published archived"`
	Permissions    Permissions      `json:"permissions"`
	Metadata       map[string]any   `json:"metadata,omitempty"`
	Nodes          []NodeSnapshot   `json:"nodes"`
	Actions        []ActionSnapshot `json:"actions"`
	Edges          []EdgeSnapshot   `json:"edges"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	PublishedAt    *time.Time       `json:"published_at,omitempty"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

// NodeSnapshot is the serializable form of a container node.
type NodeSnapshot struct {
	ID                string         `json:"id"   validate:"required,uuid"`
	Type              NodeType       `json:"type" validate:"required,oneof=io stage"`
	Name              string         `json:"name" validate:"required"`
	Description       string         `json:"description,omitempty"`
	Position          Position       `json:"position"`
	Dependencies      []string       `json:"dependencies,omitempty"`
	ExecutionMode     ExecutionMode  `json:"execution_mode"`
	Status            NodeStatus     `json:"status"`
	Timeout           time.Duration  `json:"timeout,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	VisualProperties  map[string]any `json:"visual_properties,omitempty"`
	IOData            *IOData        `json:"io_data,omitempty"`
	StageData         *StageData     `json:"stage_data,omitempty"`
	ParallelExecution bool           `json:"parallel_execution,omitempty"`
	ActionIDs         []string       `json:"action_ids,omitempty"`
	Configuration     map[string]any `json:"configuration,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ActionSnapshot is the serializable form of an action node.
type ActionSnapshot struct {
	ID                string         `json:"id"             validate:"required,uuid"`
	Type              ActionType     `json:"type"           validate:"required,oneof=tether kb_reference model_container"`
	ParentNodeID      string         `json:"parent_node_id" validate:"required,uuid"`
	Name              string         `json:"name"           validate:"required"`
	Description       string         `json:"description,omitempty"`
	ExecutionMode     ExecutionMode  `json:"execution_mode"`
	Status            ActionStatus   `json:"status"`
	ExecutionOrder    int            `json:"execution_order"`
	Priority          int            `json:"priority"`
	EstimatedDuration time.Duration  `json:"estimated_duration,omitempty"`
	RetryPolicy       RetryPolicy    `json:"retry_policy"`
	RACI              RACIAssignment `json:"raci"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	ActionData        map[string]any `json:"action_data,omitempty"`
	NestedModelID     string         `json:"nested_model_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// EdgeSnapshot is the serializable form of an edge.
type EdgeSnapshot struct {
	ID            string         `json:"id"        validate:"required,uuid"`
	SourceID      string         `json:"source_id" validate:"required,uuid"`
	TargetID      string         `json:"target_id" validate:"required,uuid"`
	LinkType      LinkType       `json:"link_type" validate:"required"`
	LinkStrength  float64        `json:"link_strength"`
	Bidirectional bool           `json:"bidirectional,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Snapshot captures the full state of the model for persistence or transport.
func (m *FunctionModel) Snapshot() *ModelSnapshot {
	snap := &ModelSnapshot{
		ID:             m.id.String(),
		Name:           m.name.String(),
		Description:    m.description,
		Version:        m.version.String(),
		CurrentVersion: m.currentVersion.String(),
		Status:         m.status,
		Permissions:    m.permissions,
		Metadata:       copyMap(m.metadata),
		Nodes:          make([]NodeSnapshot, 0, len(m.nodeOrder)),
		Actions:        make([]ActionSnapshot, 0, len(m.actionOrder)),
		Edges:          make([]EdgeSnapshot, 0, len(m.edges)),
		CreatedAt:      m.createdAt,
		UpdatedAt:      m.updatedAt,
		PublishedAt:    m.publishedAt,
		DeletedAt:      m.deletedAt,
	}

	for _, node := range m.Nodes() {
		snap.Nodes = append(snap.Nodes, snapshotNode(node))
	}

	for _, action := range m.Actions() {
		snap.Actions = append(snap.Actions, snapshotAction(action))
	}

	for _, edge := range m.edges {
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			ID:            edge.ID.String(),
			SourceID:      edge.SourceID.String(),
			TargetID:      edge.TargetID.String(),
			LinkType:      edge.LinkType,
			LinkStrength:  edge.LinkStrength,
			Bidirectional: edge.Bidirectional,
			Context:       edge.Context,
			Metadata:      edge.Metadata,
			CreatedAt:     edge.CreatedAt,
		})
	}

	return snap
}

func snapshotNode(node Node) NodeSnapshot {
	base := node.Base()

	snap := NodeSnapshot{
		ID:               base.ID.String(),
		Type:             node.Type(),
		Name:             base.Name,
		Description:      base.Description,
		Position:         base.Position,
		Dependencies:     idStrings(base.Dependencies),
		ExecutionMode:    base.ExecutionMode,
		Status:           base.Status,
		Timeout:          base.Timeout,
		Metadata:         base.Metadata,
		VisualProperties: base.VisualProperties,
		CreatedAt:        base.CreatedAt,
		UpdatedAt:        base.UpdatedAt,
	}

	switch n := node.(type) {
	case *IONode:
		data := n.IOData
		snap.IOData = &data
	case *StageNode:
		data := n.StageData
		snap.StageData = &data
		snap.ParallelExecution = n.ParallelExecution
		snap.ActionIDs = idStrings(n.ActionIDs)
		snap.Configuration = n.Configuration
	}

	return snap
}

func snapshotAction(action ActionNode) ActionSnapshot {
	base := action.Base()

	snap := ActionSnapshot{
		ID:                base.ID.String(),
		Type:              action.ActionType(),
		ParentNodeID:      base.ParentNodeID.String(),
		Name:              base.Name,
		Description:       base.Description,
		ExecutionMode:     base.ExecutionMode,
		Status:            base.Status,
		ExecutionOrder:    base.ExecutionOrder,
		Priority:          base.Priority,
		EstimatedDuration: base.EstimatedDuration,
		RetryPolicy:       base.RetryPolicy,
		RACI:              base.RACI,
		Metadata:          base.Metadata,
		ActionData:        base.ActionData,
		CreatedAt:         base.CreatedAt,
		UpdatedAt:         base.UpdatedAt,
	}

	if container, ok := action.(*ModelContainerNode); ok {
		snap.NestedModelID = container.NestedModelID.String()
	}

	return snap
}

// ModelFromSnapshot rehydrates an aggregate, re-checking ids and referential
// integrity so a tampered snapshot cannot produce an invalid model.
func ModelFromSnapshot(snap *ModelSnapshot, opts ...ModelOption) result.Result[*FunctionModel] {
	if v := validateStruct(snap); v.IsFailure() {
		return result.Err[*FunctionModel](v.Error())
	}

	modelID := ParseModelID(snap.ID)
	if modelID.IsFailure() {
		return result.Err[*FunctionModel](modelID.Error())
	}

	name := NewModelName(snap.Name)
	if name.IsFailure() {
		return result.Err[*FunctionModel](name.Error())
	}

	version := ParseVersion(snap.Version)
	if version.IsFailure() {
		return result.Err[*FunctionModel](version.Error())
	}

	currentVersion := ParseVersion(snap.CurrentVersion)
	if currentVersion.IsFailure() {
		return result.Err[*FunctionModel](currentVersion.Error())
	}

	m := &FunctionModel{
		id:             modelID.Value(),
		name:           name.Value(),
		description:    snap.Description,
		version:        version.Value(),
		currentVersion: currentVersion.Value(),
		status:         snap.Status,
		nodes:          make(map[string]Node, len(snap.Nodes)),
		actions:        make(map[string]ActionNode, len(snap.Actions)),
		permissions:    snap.Permissions,
		metadata:       copyMap(snap.Metadata),
		createdAt:      snap.CreatedAt,
		updatedAt:      snap.UpdatedAt,
		publishedAt:    snap.PublishedAt,
		deletedAt:      snap.DeletedAt,
		clock:          time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	for i := range snap.Nodes {
		node, err := nodeFromSnapshot(&snap.Nodes[i], m.id)
		if err != nil {
			return result.Err[*FunctionModel](err)
		}

		m.nodes[node.NodeID().String()] = node
		m.nodeOrder = append(m.nodeOrder, node.NodeID())
	}

	for i := range snap.Actions {
		action, err := actionFromSnapshot(&snap.Actions[i], m.id)
		if err != nil {
			return result.Err[*FunctionModel](err)
		}

		parentID := action.Base().ParentNodeID
		if _, ok := m.nodes[parentID.String()]; !ok {
			return result.Errf[*FunctionModel]("action %s: %w", action.ActionID(), ErrOrphanedAction)
		}

		m.actions[action.ActionID().String()] = action
		m.actionOrder = append(m.actionOrder, action.ActionID())
	}

	for i := range snap.Edges {
		edge, err := edgeFromSnapshot(&snap.Edges[i], m)
		if err != nil {
			return result.Err[*FunctionModel](err)
		}

		m.edges = append(m.edges, edge)
	}

	return result.Ok(m)
}

func nodeFromSnapshot(snap *NodeSnapshot, modelID ModelID) (Node, error) {
	id := ParseNodeID(snap.ID)
	if id.IsFailure() {
		return nil, id.Error()
	}

	deps, err := parseIDs(snap.Dependencies)
	if err != nil {
		return nil, err
	}

	base := NodeBase{
		ID:               id.Value(),
		ModelID:          modelID,
		Name:             snap.Name,
		Description:      snap.Description,
		Position:         snap.Position,
		Dependencies:     deps,
		ExecutionMode:    snap.ExecutionMode,
		Status:           snap.Status,
		Timeout:          snap.Timeout,
		Metadata:         snap.Metadata,
		VisualProperties: snap.VisualProperties,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
	}

	switch snap.Type {
	case NodeTypeIO:
		if snap.IOData == nil {
			return nil, fmt.Errorf("io node %s missing io data: %w", snap.ID, ErrValidation)
		}

		return &IONode{NodeBase: base, IOData: *snap.IOData}, nil
	case NodeTypeStage:
		if snap.StageData == nil {
			return nil, fmt.Errorf("stage node %s missing stage data: %w", snap.ID, ErrValidation)
		}

		actionIDs, err := parseIDs(snap.ActionIDs)
		if err != nil {
			return nil, err
		}

		return &StageNode{
			NodeBase:          base,
			StageData:         *snap.StageData,
			ParallelExecution: snap.ParallelExecution,
			ActionIDs:         actionIDs,
			Configuration:     snap.Configuration,
		}, nil
	default:
		return nil, fmt.Errorf("unknown node type %q: %w", snap.Type, ErrValidation)
	}
}

func actionFromSnapshot(snap *ActionSnapshot, modelID ModelID) (ActionNode, error) {
	id := ParseNodeID(snap.ID)
	if id.IsFailure() {
		return nil, id.Error()
	}

	parentID := ParseNodeID(snap.ParentNodeID)
	if parentID.IsFailure() {
		return nil, parentID.Error()
	}

	base := ActionBase{
		ID:                id.Value(),
		ModelID:           modelID,
		ParentNodeID:      parentID.Value(),
		Name:              snap.Name,
		Description:       snap.Description,
		ExecutionMode:     snap.ExecutionMode,
		Status:            snap.Status,
		ExecutionOrder:    snap.ExecutionOrder,
		Priority:          snap.Priority,
		EstimatedDuration: snap.EstimatedDuration,
		RetryPolicy:       snap.RetryPolicy,
		RACI:              snap.RACI,
		Metadata:          snap.Metadata,
		ActionData:        snap.ActionData,
		CreatedAt:         snap.CreatedAt,
		UpdatedAt:         snap.UpdatedAt,
	}

	switch snap.Type {
	case ActionTypeTether:
		return &TetherNode{ActionBase: base}, nil
	case ActionTypeKBReference:
		return &KBNode{ActionBase: base}, nil
	case ActionTypeModelContainer:
		nested := ParseModelID(snap.NestedModelID)
		if nested.IsFailure() {
			return nil, nested.Error()
		}

		return &ModelContainerNode{ActionBase: base, NestedModelID: nested.Value()}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q: %w", snap.Type, ErrValidation)
	}
}

func edgeFromSnapshot(snap *EdgeSnapshot, m *FunctionModel) (*Edge, error) {
	id := ParseNodeID(snap.ID)
	if id.IsFailure() {
		return nil, id.Error()
	}

	source := ParseNodeID(snap.SourceID)
	if source.IsFailure() {
		return nil, source.Error()
	}

	target := ParseNodeID(snap.TargetID)
	if target.IsFailure() {
		return nil, target.Error()
	}

	if !m.nodeExists(source.Value()) || !m.nodeExists(target.Value()) {
		return nil, fmt.Errorf("edge %s references unknown endpoint: %w", snap.ID, ErrValidation)
	}

	return &Edge{
		ID:            id.Value(),
		SourceID:      source.Value(),
		TargetID:      target.Value(),
		LinkType:      snap.LinkType,
		LinkStrength:  snap.LinkStrength,
		Bidirectional: snap.Bidirectional,
		Context:       snap.Context,
		Metadata:      snap.Metadata,
		CreatedAt:     snap.CreatedAt,
	}, nil
}

func idStrings(ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}

	return out
}

func parseIDs(raw []string) ([]NodeID, error) {
	ids := make([]NodeID, 0, len(raw))

	for _, s := range raw {
		id := ParseNodeID(s)
		if id.IsFailure() {
			return nil, id.Error()
		}

		ids = append(ids, id.Value())
	}

	return ids, nil
}
