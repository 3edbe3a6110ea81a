package models

import (
	"fmt"
	"time"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// Permissions records who may view or edit a model.
type Permissions struct {
	Owner   string   `json:"owner"   validate:"required"`
	Editors []string `json:"editors,omitempty"`
	Viewers []string `json:"viewers,omitempty"`
}

// CanEdit reports whether user may modify the model.
func (p Permissions) CanEdit(user string) bool {
	if user == p.Owner {
		return true
	}

	for _, editor := range p.Editors {
		if editor == user {
			return true
		}
	}

	return false
}

// CanView reports whether user may read the model.
func (p Permissions) CanView(user string) bool {
	if p.CanEdit(user) {
		return true
	}

	for _, viewer := range p.Viewers {
		if viewer == user {
			return true
		}
	}

	return false
}

// Clock supplies the current time; injected so tests control timestamps.
type Clock func() time.Time

// DefaultClock is the wall clock.
var DefaultClock Clock = time.Now

// FunctionModel is the aggregate root owning nodes, action nodes, and edges
// of one workflow graph. All mutators return a Result and leave the model
// unchanged on failure.
type FunctionModel struct {
	id             ModelID
	name           ModelName
	description    string
	version        Version
	currentVersion Version
	status         ModelStatus
	nodes          map[string]Node       // keyed by canonical NodeID
	nodeOrder      []NodeID              // insertion order
	actions        map[string]ActionNode // keyed by canonical NodeID
	actionOrder    []NodeID
	edges          []*Edge
	permissions    Permissions
	metadata       map[string]any
	createdAt      time.Time
	updatedAt      time.Time
	publishedAt    *time.Time
	deletedAt      *time.Time
	clock          Clock
}

// ModelOption customizes construction.
type ModelOption func(*FunctionModel)

// WithClock injects a time source.
func WithClock(clock Clock) ModelOption {
	return func(m *FunctionModel) {
		m.clock = clock
	}
}

// WithDescription sets the initial description.
func WithDescription(description string) ModelOption {
	return func(m *FunctionModel) {
		m.description = description
	}
}

// WithModelID sets an explicit id instead of a generated one; used when
// rehydrating from a snapshot.
func WithModelID(id ModelID) ModelOption {
	return func(m *FunctionModel) {
		m.id = id
	}
}

// NewFunctionModel creates a draft model owned by owner.
func NewFunctionModel(name ModelName, owner string, opts ...ModelOption) result.Result[*FunctionModel] {
	if owner == "" {
		return result.Errf[*FunctionModel]("model owner cannot be empty: %w", ErrValidation)
	}

	m := &FunctionModel{
		id:             NewModelID(),
		name:           name,
		version:        InitialVersion(),
		currentVersion: InitialVersion(),
		status:         ModelStatusDraft,
		nodes:          make(map[string]Node),
		actions:        make(map[string]ActionNode),
		permissions:    Permissions{Owner: owner},
		metadata:       make(map[string]any),
		clock:          time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	now := m.clock()
	m.createdAt = now
	m.updatedAt = now

	return result.Ok(m)
}

// Read accessors. Collections are returned as copies in insertion order so
// callers cannot bypass the invariant checks.

func (m *FunctionModel) ID() ModelID              { return m.id }
func (m *FunctionModel) Name() ModelName          { return m.name }
func (m *FunctionModel) Description() string      { return m.description }
func (m *FunctionModel) Status() ModelStatus      { return m.status }
func (m *FunctionModel) Version() Version         { return m.version }
func (m *FunctionModel) CurrentVersion() Version  { return m.currentVersion }
func (m *FunctionModel) Permissions() Permissions { return m.permissions }
func (m *FunctionModel) CreatedAt() time.Time     { return m.createdAt }
func (m *FunctionModel) UpdatedAt() time.Time     { return m.updatedAt }
func (m *FunctionModel) PublishedAt() *time.Time  { return m.publishedAt }
func (m *FunctionModel) IsDeleted() bool          { return m.deletedAt != nil }

// Metadata returns a copy of the model metadata.
func (m *FunctionModel) Metadata() map[string]any {
	return copyMap(m.metadata)
}

// Node returns the container node with the given id.
func (m *FunctionModel) Node(id NodeID) (Node, bool) {
	node, ok := m.nodes[id.String()]

	return node, ok
}

// Action returns the action node with the given id.
func (m *FunctionModel) Action(id NodeID) (ActionNode, bool) {
	action, ok := m.actions[id.String()]

	return action, ok
}

// Nodes returns all container nodes in insertion order.
func (m *FunctionModel) Nodes() []Node {
	nodes := make([]Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		nodes = append(nodes, m.nodes[id.String()])
	}

	return nodes
}

// Actions returns all action nodes in insertion order.
func (m *FunctionModel) Actions() []ActionNode {
	actions := make([]ActionNode, 0, len(m.actionOrder))
	for _, id := range m.actionOrder {
		actions = append(actions, m.actions[id.String()])
	}

	return actions
}

// ActionsOf returns the actions owned by the given container in that
// container's declared order, falling back to insertion order for non-stage
// containers.
func (m *FunctionModel) ActionsOf(containerID NodeID) []ActionNode {
	if stage, ok := m.nodes[containerID.String()].(*StageNode); ok {
		actions := make([]ActionNode, 0, len(stage.ActionIDs))
		for _, id := range stage.ActionIDs {
			if action, ok := m.actions[id.String()]; ok {
				actions = append(actions, action)
			}
		}

		return actions
	}

	var actions []ActionNode

	for _, id := range m.actionOrder {
		action := m.actions[id.String()]
		if action.Base().ParentNodeID.Equals(containerID) {
			actions = append(actions, action)
		}
	}

	return actions
}

// Edges returns a copy of the edge list.
func (m *FunctionModel) Edges() []*Edge {
	edges := make([]*Edge, len(m.edges))
	copy(edges, m.edges)

	return edges
}

// EdgeCount returns the number of edges.
func (m *FunctionModel) EdgeCount() int {
	return len(m.edges)
}

func (m *FunctionModel) structurallyMutable() error {
	if m.deletedAt != nil {
		return errDeleted()
	}

	if m.status != ModelStatusDraft {
		return ErrModelNotMutable
	}

	return nil
}

func (m *FunctionModel) editable() error {
	if m.deletedAt != nil {
		return errDeleted()
	}

	if m.status == ModelStatusArchived {
		return ErrModelArchived
	}

	return nil
}

func (m *FunctionModel) touch() {
	m.updatedAt = m.clock()
}

// AddIONodeRequest describes a new IO boundary node.
type AddIONodeRequest struct {
	Name     string
	Position Position
	IOData   IOData
	Timeout  time.Duration
	Metadata map[string]any
}

// AddIONode adds an input/output container node.
func (m *FunctionModel) AddIONode(req AddIONodeRequest) result.Result[*IONode] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[*IONode](err)
	}

	node := &IONode{
		NodeBase: m.newNodeBase(req.Name, req.Position, req.Timeout, req.Metadata),
		IOData:   req.IOData,
	}

	if v := validateStruct(&node.NodeBase); v.IsFailure() {
		return result.Err[*IONode](v.Error())
	}

	if v := validateStruct(&node.IOData); v.IsFailure() {
		return result.Err[*IONode](v.Error())
	}

	if err := ValidateIODefault(node.IOData); err != nil {
		return result.Err[*IONode](err)
	}

	m.insertNode(node)

	return result.Ok(node)
}

// AddStageNodeRequest describes a new stage container node.
type AddStageNodeRequest struct {
	Name              string
	Position          Position
	StageData         StageData
	ParallelExecution bool
	Configuration     map[string]any
	Timeout           time.Duration
	Metadata          map[string]any
}

// AddStageNode adds a stage container node.
func (m *FunctionModel) AddStageNode(req AddStageNodeRequest) result.Result[*StageNode] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[*StageNode](err)
	}

	node := &StageNode{
		NodeBase:          m.newNodeBase(req.Name, req.Position, req.Timeout, req.Metadata),
		StageData:         req.StageData,
		ParallelExecution: req.ParallelExecution,
		Configuration:     req.Configuration,
	}

	if req.ParallelExecution {
		node.ExecutionMode = ExecutionModeParallel
	}

	if v := validateStruct(&node.NodeBase); v.IsFailure() {
		return result.Err[*StageNode](v.Error())
	}

	if v := validateStruct(&node.StageData); v.IsFailure() {
		return result.Err[*StageNode](v.Error())
	}

	m.insertNode(node)

	return result.Ok(node)
}

func (m *FunctionModel) newNodeBase(name string, position Position, timeout time.Duration, metadata map[string]any) NodeBase {
	now := m.clock()

	if metadata == nil {
		metadata = make(map[string]any)
	}

	return NodeBase{
		ID:            NewNodeID(),
		ModelID:       m.id,
		Name:          name,
		Position:      position,
		ExecutionMode: ExecutionModeSequential,
		Status:        NodeStatusDraft,
		Timeout:       timeout,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (m *FunctionModel) insertNode(node Node) {
	m.nodes[node.NodeID().String()] = node
	m.nodeOrder = append(m.nodeOrder, node.NodeID())
	m.touch()
}

// AddActionNodeRequest describes a new action node under a container.
type AddActionNodeRequest struct {
	ParentNodeID      NodeID
	ActionType        ActionType
	Name              string
	Description       string
	ExecutionMode     ExecutionMode
	ExecutionOrder    int
	Priority          int
	EstimatedDuration time.Duration
	RetryPolicy       *RetryPolicy
	RACI              RACIAssignment
	Metadata          map[string]any
	ActionData        map[string]any
	NestedModelID     ModelID // model container actions only
}

// AddActionNode adds an action node owned by an existing container.
func (m *FunctionModel) AddActionNode(req AddActionNodeRequest) result.Result[ActionNode] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[ActionNode](err)
	}

	parent, ok := m.nodes[req.ParentNodeID.String()]
	if !ok {
		return result.Errf[ActionNode]("parent %s: %w", req.ParentNodeID, ErrNodeNotFound)
	}

	if !parent.Type().IsContainer() {
		return result.Errf[ActionNode]("parent %s is not a container: %w", req.ParentNodeID, ErrValidation)
	}

	base := m.newActionBase(req)

	var action ActionNode

	switch req.ActionType {
	case ActionTypeTether:
		action = &TetherNode{ActionBase: base}
	case ActionTypeKBReference:
		action = &KBNode{ActionBase: base}
	case ActionTypeModelContainer:
		if req.NestedModelID.IsZero() {
			return result.Errf[ActionNode]("model container action requires a nested model id: %w", ErrValidation)
		}

		action = &ModelContainerNode{ActionBase: base, NestedModelID: req.NestedModelID}
	default:
		return result.Errf[ActionNode]("unknown action type %q: %w", req.ActionType, ErrValidation)
	}

	if v := validateStruct(action.Base()); v.IsFailure() {
		return result.Err[ActionNode](v.Error())
	}

	if v := validateStruct(&action.Base().RetryPolicy); v.IsFailure() {
		return result.Err[ActionNode](v.Error())
	}

	if err := ValidateActionData(req.ActionType, base.ActionData); err != nil {
		return result.Err[ActionNode](err)
	}

	m.actions[base.ID.String()] = action
	m.actionOrder = append(m.actionOrder, base.ID)

	if stage, ok := parent.(*StageNode); ok {
		stage.addAction(base.ID)
	}

	m.touch()

	return result.Ok(action)
}

func (m *FunctionModel) newActionBase(req AddActionNodeRequest) ActionBase {
	now := m.clock()

	mode := req.ExecutionMode
	if mode == "" {
		mode = ExecutionModeSequential
	}

	priority := req.Priority
	if priority == 0 {
		priority = 5
	}

	policy := DefaultRetryPolicy()
	if req.RetryPolicy != nil {
		policy = *req.RetryPolicy
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}

	actionData := req.ActionData
	if actionData == nil {
		actionData = make(map[string]any)
	}

	return ActionBase{
		ID:                NewNodeID(),
		ModelID:           m.id,
		ParentNodeID:      req.ParentNodeID,
		Name:              req.Name,
		Description:       req.Description,
		ExecutionMode:     mode,
		Status:            ActionStatusDraft,
		ExecutionOrder:    req.ExecutionOrder,
		Priority:          priority,
		EstimatedDuration: req.EstimatedDuration,
		RetryPolicy:       policy,
		RACI:              req.RACI,
		Metadata:          metadata,
		ActionData:        actionData,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RemoveNode removes a container or action node. Removing a container
// cascades to its owned actions and every edge touching it.
func (m *FunctionModel) RemoveNode(id NodeID) result.Result[result.Void] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[result.Void](err)
	}

	if _, ok := m.nodes[id.String()]; ok {
		m.removeContainer(id)
		m.touch()

		return result.OkVoid()
	}

	if action, ok := m.actions[id.String()]; ok {
		m.removeAction(action)
		m.touch()

		return result.OkVoid()
	}

	return result.Errf[result.Void]("%s: %w", id, ErrNodeNotFound)
}

func (m *FunctionModel) removeContainer(id NodeID) {
	for _, actionID := range m.actionOrder {
		action, ok := m.actions[actionID.String()]
		if ok && action.Base().ParentNodeID.Equals(id) {
			delete(m.actions, actionID.String())
			m.dropEdgesTouching(actionID)
		}
	}

	m.actionOrder = filterIDs(m.actionOrder, func(actionID NodeID) bool {
		_, ok := m.actions[actionID.String()]

		return ok
	})

	delete(m.nodes, id.String())

	m.nodeOrder = filterIDs(m.nodeOrder, func(nodeID NodeID) bool {
		return !nodeID.Equals(id)
	})

	m.dropEdgesTouching(id)

	for _, node := range m.nodes {
		node.Base().RemoveDependency(id)
	}
}

func (m *FunctionModel) removeAction(action ActionNode) {
	id := action.ActionID()

	delete(m.actions, id.String())

	m.actionOrder = filterIDs(m.actionOrder, func(actionID NodeID) bool {
		return !actionID.Equals(id)
	})

	parentID := action.Base().ParentNodeID
	if stage, ok := m.nodes[parentID.String()].(*StageNode); ok {
		stage.removeAction(id)
	}

	m.dropEdgesTouching(id)
}

func (m *FunctionModel) dropEdgesTouching(id NodeID) {
	kept := m.edges[:0]

	for _, edge := range m.edges {
		if !edge.Touches(id) {
			kept = append(kept, edge)
		}
	}

	m.edges = kept
}

// CreateEdgeRequest describes a new edge between two existing nodes.
type CreateEdgeRequest struct {
	SourceID      NodeID
	TargetID      NodeID
	LinkType      LinkType
	LinkStrength  float64
	Bidirectional bool
	Context       map[string]any
	Metadata      map[string]any
}

// CreateEdge links two nodes. Dependency edges between containers also
// record a dependency on the target node and may not introduce a cycle.
func (m *FunctionModel) CreateEdge(req CreateEdgeRequest) result.Result[*Edge] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[*Edge](err)
	}

	if !req.LinkType.IsValid() {
		return result.Errf[*Edge]("unknown link type %q: %w", req.LinkType, ErrValidation)
	}

	if req.LinkStrength < 0 || req.LinkStrength > 1 {
		return result.Errf[*Edge]("link strength %v outside [0,1]: %w", req.LinkStrength, ErrValidation)
	}

	if req.SourceID.Equals(req.TargetID) {
		return result.Errf[*Edge]("%s: %w", req.SourceID, ErrSelfLoop)
	}

	if !m.nodeExists(req.SourceID) {
		return result.Errf[*Edge]("source %s: %w", req.SourceID, ErrNodeNotFound)
	}

	if !m.nodeExists(req.TargetID) {
		return result.Errf[*Edge]("target %s: %w", req.TargetID, ErrNodeNotFound)
	}

	for _, edge := range m.edges {
		if edge.LinkType == req.LinkType && edge.Connects(req.SourceID, req.TargetID) {
			return result.Errf[*Edge]("%s -> %s (%s): %w", req.SourceID, req.TargetID, req.LinkType, ErrDuplicateEdge)
		}
	}

	dependencyEdge := req.LinkType == LinkTypeDependency && m.isContainer(req.SourceID) && m.isContainer(req.TargetID)

	if dependencyEdge && m.wouldCycle(req.SourceID, req.TargetID) {
		return result.Errf[*Edge]("%s -> %s: %w", req.SourceID, req.TargetID, ErrCyclicDependency)
	}

	edge := &Edge{
		ID:            NewNodeID(),
		SourceID:      req.SourceID,
		TargetID:      req.TargetID,
		LinkType:      req.LinkType,
		LinkStrength:  req.LinkStrength,
		Bidirectional: req.Bidirectional,
		Context:       req.Context,
		Metadata:      req.Metadata,
		CreatedAt:     m.clock(),
	}

	m.edges = append(m.edges, edge)

	if dependencyEdge {
		m.nodes[req.TargetID.String()].Base().AddDependency(req.SourceID)
	}

	m.touch()

	return result.Ok(edge)
}

// RemoveEdge deletes the edge with the given id.
func (m *FunctionModel) RemoveEdge(id NodeID) result.Result[result.Void] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[result.Void](err)
	}

	for i, edge := range m.edges {
		if edge.ID.Equals(id) {
			if edge.LinkType == LinkTypeDependency {
				if node, ok := m.nodes[edge.TargetID.String()]; ok {
					node.Base().RemoveDependency(edge.SourceID)
				}
			}

			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			m.touch()

			return result.OkVoid()
		}
	}

	return result.Errf[result.Void]("edge %s: %w", id, ErrNotFound)
}

func (m *FunctionModel) nodeExists(id NodeID) bool {
	if _, ok := m.nodes[id.String()]; ok {
		return true
	}

	_, ok := m.actions[id.String()]

	return ok
}

func (m *FunctionModel) isContainer(id NodeID) bool {
	_, ok := m.nodes[id.String()]

	return ok
}

// wouldCycle checks whether adding source -> target to the container
// dependency graph closes a cycle: true when source is reachable from target.
func (m *FunctionModel) wouldCycle(source, target NodeID) bool {
	visited := make(map[string]bool)

	var walk func(id NodeID) bool

	walk = func(id NodeID) bool {
		if id.Equals(source) {
			return true
		}

		if visited[id.String()] {
			return false
		}

		visited[id.String()] = true

		for _, edge := range m.edges {
			if edge.LinkType == LinkTypeDependency && edge.SourceID.Equals(id) && m.isContainer(edge.TargetID) {
				if walk(edge.TargetID) {
					return true
				}
			}
		}

		return false
	}

	return walk(target)
}

// UpdateName renames the model. Allowed while draft or published.
func (m *FunctionModel) UpdateName(name ModelName) result.Result[result.Void] {
	if err := m.editable(); err != nil {
		return result.Err[result.Void](err)
	}

	m.name = name
	m.touch()

	return result.OkVoid()
}

// UpdateDescription changes the description. Allowed while draft or published.
func (m *FunctionModel) UpdateDescription(description string) result.Result[result.Void] {
	if err := m.editable(); err != nil {
		return result.Err[result.Void](err)
	}

	m.description = description
	m.touch()

	return result.OkVoid()
}

// SetMetadata stores a metadata entry. Allowed while draft or published.
func (m *FunctionModel) SetMetadata(key string, value any) result.Result[result.Void] {
	if err := m.editable(); err != nil {
		return result.Err[result.Void](err)
	}

	m.metadata[key] = value
	m.touch()

	return result.OkVoid()
}

// AddEditor grants edit permission.
func (m *FunctionModel) AddEditor(user string) result.Result[result.Void] {
	if err := m.editable(); err != nil {
		return result.Err[result.Void](err)
	}

	if user == "" {
		return result.Errf[result.Void]("editor cannot be empty: %w", ErrValidation)
	}

	if !m.permissions.CanEdit(user) {
		m.permissions.Editors = append(m.permissions.Editors, user)
		m.touch()
	}

	return result.OkVoid()
}

// AddViewer grants view permission.
func (m *FunctionModel) AddViewer(user string) result.Result[result.Void] {
	if err := m.editable(); err != nil {
		return result.Err[result.Void](err)
	}

	if user == "" {
		return result.Errf[result.Void]("viewer cannot be empty: %w", ErrValidation)
	}

	if !m.permissions.CanView(user) {
		m.permissions.Viewers = append(m.permissions.Viewers, user)
		m.touch()
	}

	return result.OkVoid()
}

// Publish freezes the structure and makes the model executable. Fails when
// the graph has no containers or an action whose parent no longer exists.
func (m *FunctionModel) Publish() result.Result[result.Void] {
	if m.deletedAt != nil {
		return result.Err[result.Void](errDeleted())
	}

	if !m.status.CanTransition(ModelStatusPublished) {
		return result.Err[result.Void](errTransition(string(m.status), string(ModelStatusPublished)))
	}

	if len(m.nodes) == 0 {
		return result.Err[result.Void](ErrNoContainerNodes)
	}

	for _, action := range m.actions {
		parentID := action.Base().ParentNodeID
		if _, ok := m.nodes[parentID.String()]; !ok {
			return result.Errf[result.Void]("action %s: %w", action.ActionID(), ErrOrphanedAction)
		}
	}

	now := m.clock()
	m.status = ModelStatusPublished
	m.currentVersion = m.version
	m.publishedAt = &now

	for _, action := range m.actions {
		base := action.Base()
		if base.Status == ActionStatusDraft || base.Status == ActionStatusConfigured {
			base.Status = ActionStatusActive
			base.UpdatedAt = now
		}
	}

	m.touch()

	return result.OkVoid()
}

// Archive retires the model permanently. No transition leaves archived.
func (m *FunctionModel) Archive() result.Result[result.Void] {
	if m.deletedAt != nil {
		return result.Err[result.Void](errDeleted())
	}

	if !m.status.CanTransition(ModelStatusArchived) {
		return result.Err[result.Void](errTransition(string(m.status), string(ModelStatusArchived)))
	}

	now := m.clock()
	m.status = ModelStatusArchived

	for _, action := range m.actions {
		base := action.Base()
		if base.Status.CanTransition(ActionStatusArchived) {
			base.Status = ActionStatusArchived
			base.UpdatedAt = now
		}
	}

	for _, node := range m.nodes {
		node.Base().Status = NodeStatusArchived
		node.Base().UpdatedAt = now
	}

	m.touch()

	return result.OkVoid()
}

// SoftDelete hides the model without destroying it.
func (m *FunctionModel) SoftDelete() result.Result[result.Void] {
	if m.deletedAt != nil {
		return result.Errf[result.Void]("model already deleted: %w", ErrConflict)
	}

	now := m.clock()
	m.deletedAt = &now
	m.touch()

	return result.OkVoid()
}

// Restore undoes a soft delete.
func (m *FunctionModel) Restore() result.Result[result.Void] {
	if m.deletedAt == nil {
		return result.Errf[result.Void]("model is not deleted: %w", ErrConflict)
	}

	m.deletedAt = nil
	m.touch()

	return result.OkVoid()
}

// BumpVersion raises the draft version.
func (m *FunctionModel) BumpVersion(next Version) result.Result[result.Void] {
	if err := m.structurallyMutable(); err != nil {
		return result.Err[result.Void](err)
	}

	if !next.IsGreaterThan(m.version) {
		return result.Errf[result.Void]("version %s is not greater than %s: %w", next, m.version, ErrValidation)
	}

	m.version = next
	m.touch()

	return result.OkVoid()
}

func errDeleted() error {
	return fmt.Errorf("model is deleted: %w", ErrConflict)
}

func filterIDs(ids []NodeID, keep func(NodeID) bool) []NodeID {
	kept := ids[:0]

	for _, id := range ids {
		if keep(id) {
			kept = append(kept, id)
		}
	}

	return kept
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}

	return dst
}
