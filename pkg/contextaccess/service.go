package contextaccess

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/funcmodel/funcmodel/pkg/log"
	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/result"
)

// DefaultMaxDepth bounds ancestor-chain walks against pathological nesting.
const DefaultMaxDepth = 100

type nodeEntry struct {
	id       models.NodeID
	nodeType models.NodeType
	parentID models.NodeID
	level    int
	children []models.NodeID
}

// Service owns every context and mediates access to them. All operations are
// safe for concurrent use.
type Service struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	clock    models.Clock
	maxDepth int

	nodes        map[string]*nodeEntry
	contexts     map[string]*HierarchicalContext
	nodeContexts map[string][]string
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(clock models.Clock) ServiceOption {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithMaxDepth(depth int) ServiceOption {
	return func(s *Service) {
		if depth > 0 {
			s.maxDepth = depth
		}
	}
}

func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger:       log.WithModule("contextaccess"),
		clock:        models.DefaultClock,
		maxDepth:     DefaultMaxDepth,
		nodes:        make(map[string]*nodeEntry),
		contexts:     make(map[string]*HierarchicalContext),
		nodeContexts: make(map[string][]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type RegisterNodeRequest struct {
	NodeID         models.NodeID
	NodeType       models.NodeType
	ParentNodeID   models.NodeID
	ContextData    map[string]any
	HierarchyLevel int
}

// RegisterNode establishes a node's place in the context tree. When initial
// context data is given, an execution-scope context is created for the node.
func (s *Service) RegisterNode(req RegisterNodeRequest) result.Result[result.Void] {
	if req.NodeID.IsZero() {
		return result.Errf[result.Void]("node id is required: %w", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := req.NodeID.String()
	if _, exists := s.nodes[key]; exists {
		return result.Errf[result.Void]("node %s: %w", req.NodeID, ErrAlreadyRegistered)
	}

	if !req.ParentNodeID.IsZero() {
		parent, ok := s.nodes[req.ParentNodeID.String()]
		if !ok {
			return result.Errf[result.Void]("parent %s: %w", req.ParentNodeID, ErrNodeNotRegistered)
		}

		parent.children = append(parent.children, req.NodeID)
	}

	s.nodes[key] = &nodeEntry{
		id:       req.NodeID,
		nodeType: req.NodeType,
		parentID: req.ParentNodeID,
		level:    req.HierarchyLevel,
	}

	if req.ContextData != nil {
		s.storeContext(&HierarchicalContext{
			ContextID:   uuid.NewString(),
			NodeID:      req.NodeID,
			Scope:       ScopeExecution,
			AccessLevel: AccessRead,
			Data:        deepCopyMap(req.ContextData),
			CreatedAt:   s.clock(),
			UpdatedAt:   s.clock(),
		})
	}

	s.logger.Debug("node registered",
		"node_id", req.NodeID.String(), "type", string(req.NodeType), "level", req.HierarchyLevel)

	return result.OkVoid()
}

type BuildContextRequest struct {
	NodeID          models.NodeID
	Data            map[string]any
	Scope           Scope
	ParentContextID string
	Rules           []InheritanceRule
}

// BuildContext creates a context for a registered node. With a parent, the
// child inherits the parent's effective data unless the parent is isolated;
// rules narrow inheritance to the named properties, and override:false locks
// an inherited property against later writes at the child.
func (s *Service) BuildContext(req BuildContextRequest) result.Result[*HierarchicalContext] {
	if !req.Scope.IsValid() {
		return result.Errf[*HierarchicalContext]("%q: %w", req.Scope, ErrInvalidScope)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[req.NodeID.String()]; !ok {
		return result.Errf[*HierarchicalContext]("node %s: %w", req.NodeID, ErrNodeNotRegistered)
	}

	ctx := &HierarchicalContext{
		ContextID:   uuid.NewString(),
		NodeID:      req.NodeID,
		Scope:       req.Scope,
		AccessLevel: AccessRead,
		Data:        deepCopyMap(req.Data),
		CreatedAt:   s.clock(),
		UpdatedAt:   s.clock(),
	}

	if req.ParentContextID != "" {
		parent, ok := s.contexts[req.ParentContextID]
		if !ok {
			return result.Errf[*HierarchicalContext]("parent context %s: %w", req.ParentContextID, ErrContextNotFound)
		}

		ctx.ParentContextID = parent.ContextID

		if parent.Scope != ScopeIsolated {
			inheritInto(ctx, parent, req.Rules)
		}
	}

	s.storeContext(ctx)

	s.logger.Debug("context built",
		"context_id", ctx.ContextID, "node_id", req.NodeID.String(), "scope", string(req.Scope))

	return result.Ok(ctx)
}

// inheritInto copies parent data into the child's inherited layer. With no
// rules every parent property is inherited and may be shadowed; with rules
// only inherit:true properties flow, and override:false locks them.
func inheritInto(child, parent *HierarchicalContext, rules []InheritanceRule) {
	source := parent.Effective()

	if child.InheritedData == nil {
		child.InheritedData = make(map[string]any)
	}

	if len(rules) == 0 {
		for key, value := range source {
			child.InheritedData[key] = deepCopyValue(value)
		}

		return
	}

	for _, rule := range rules {
		if !rule.Inherit {
			continue
		}

		value, ok := source[rule.Property]
		if !ok {
			continue
		}

		child.InheritedData[rule.Property] = deepCopyValue(value)

		if !rule.Override {
			child.lock(rule.Property)
		}
	}
}

// GetNodeContext returns the node's current (most recent) context.
func (s *Service) GetNodeContext(nodeID models.NodeID) result.Result[*HierarchicalContext] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[nodeID.String()]; !ok {
		return result.Errf[*HierarchicalContext]("node %s: %w", nodeID, ErrNodeNotRegistered)
	}

	ctx := s.currentContext(nodeID)
	if ctx == nil {
		return result.Errf[*HierarchicalContext]("node %s: %w", nodeID, ErrContextNotFound)
	}

	return result.Ok(ctx)
}

// GetHierarchicalContext returns the ancestor chain, self first. Isolated
// ancestor contexts are excluded; the walk stops at the configured depth and
// reports MaxDepthReached when it does.
func (s *Service) GetHierarchicalContext(nodeID models.NodeID) result.Result[*ContextChain] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.nodes[nodeID.String()]
	if !ok {
		return result.Errf[*ContextChain]("node %s: %w", nodeID, ErrNodeNotRegistered)
	}

	chain := &ContextChain{NodeID: nodeID}

	for depth := 0; entry != nil; depth++ {
		if depth >= s.maxDepth {
			chain.MaxDepthReached = true

			break
		}

		chain.Levels++

		if ctx := s.currentContext(entry.id); ctx != nil {
			if depth == 0 || ctx.Scope != ScopeIsolated {
				chain.Contexts = append(chain.Contexts, ctx)
			}
		}

		if entry.parentID.IsZero() {
			break
		}

		entry = s.nodes[entry.parentID.String()]
	}

	return result.Ok(chain)
}

// PropagateContext copies properties from a source context to the target
// node's current context, creating one when the target has none. Only
// inherit:true rules flow; override:false preserves an existing value at the
// target and locks the property there.
func (s *Service) PropagateContext(sourceContextID string, targetNodeID models.NodeID, rules []InheritanceRule) result.Result[result.Void] {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.contexts[sourceContextID]
	if !ok {
		return result.Errf[result.Void]("source context %s: %w", sourceContextID, ErrContextNotFound)
	}

	if _, ok := s.nodes[targetNodeID.String()]; !ok {
		return result.Errf[result.Void]("target node %s: %w", targetNodeID, ErrNodeNotRegistered)
	}

	target := s.currentContext(targetNodeID)
	if target == nil {
		target = &HierarchicalContext{
			ContextID:   uuid.NewString(),
			NodeID:      targetNodeID,
			Scope:       ScopeExecution,
			AccessLevel: AccessRead,
			CreatedAt:   s.clock(),
		}
		s.storeContext(target)
	}

	effective := source.Effective()

	if target.InheritedData == nil {
		target.InheritedData = make(map[string]any)
	}

	for _, rule := range rules {
		if !rule.Inherit {
			continue
		}

		value, ok := effective[rule.Property]
		if !ok {
			continue
		}

		if !rule.Override {
			target.lock(rule.Property)

			if _, taken := target.Data[rule.Property]; taken {
				continue
			}

			if _, taken := target.InheritedData[rule.Property]; taken {
				continue
			}

			target.InheritedData[rule.Property] = deepCopyValue(value)

			continue
		}

		delete(target.Data, rule.Property)
		target.InheritedData[rule.Property] = deepCopyValue(value)
	}

	target.UpdatedAt = s.clock()

	s.logger.Debug("context propagated",
		"source_context_id", sourceContextID, "target_node_id", targetNodeID.String(), "rules", len(rules))

	return result.OkVoid()
}

// ValidateContextAccess checks whether the requesting node may access the
// context node's data at the given level. The owner is fully granted,
// ancestors read, descendants read, and siblings only under a global scope;
// write access outside the owner requires a global scope.
func (s *Service) ValidateContextAccess(contextNodeID, requestingNodeID models.NodeID, level AccessLevel, properties []string) result.Result[*ValidationResult] {
	if !level.IsValid() {
		return result.Errf[*ValidationResult]("%q: %w", level, ErrInvalidAccess)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[contextNodeID.String()]; !ok {
		return result.Errf[*ValidationResult]("context node %s: %w", contextNodeID, ErrNodeNotRegistered)
	}

	if _, ok := s.nodes[requestingNodeID.String()]; !ok {
		return result.Errf[*ValidationResult]("requesting node %s: %w", requestingNodeID, ErrNodeNotRegistered)
	}

	ctx := s.currentContext(contextNodeID)
	if ctx == nil {
		return result.Errf[*ValidationResult]("node %s: %w", contextNodeID, ErrContextNotFound)
	}

	granted := &ValidationResult{Granted: true, AccessLevel: string(level)}

	// The owner, and a node requesting access to itself, is always fully
	// granted.
	if contextNodeID.Equals(requestingNodeID) {
		granted.Accessible = append(granted.Accessible, properties...)

		return result.Ok(granted)
	}

	if ctx.Scope == ScopeGlobal {
		granted.Accessible, granted.Restricted = splitProperties(ctx, properties)

		return result.Ok(granted)
	}

	if level == AccessWrite {
		return result.Err[*ValidationResult](errDenied(
			fmt.Sprintf("write access to %s requires ownership or a global scope", contextNodeID)))
	}

	switch {
	case s.isAncestor(requestingNodeID, contextNodeID):
		// Ancestors read their descendants' contexts.
	case s.isAncestor(contextNodeID, requestingNodeID):
		// Descendants are inside the context's boundary, isolated included.
	default:
		if ctx.Scope == ScopeIsolated {
			return result.Err[*ValidationResult](errDenied(
				fmt.Sprintf("context of %s is isolated", contextNodeID)))
		}

		return result.Err[*ValidationResult](errDenied(
			fmt.Sprintf("sibling access to %s requires a global scope", contextNodeID)))
	}

	granted.Accessible, granted.Restricted = splitProperties(ctx, properties)

	return result.Ok(granted)
}

func splitProperties(ctx *HierarchicalContext, properties []string) (accessible, restricted []string) {
	effective := ctx.Effective()

	for _, property := range properties {
		if _, ok := effective[property]; ok {
			accessible = append(accessible, property)
		} else {
			restricted = append(restricted, property)
		}
	}

	return accessible, restricted
}

// UpdateContextData writes properties into a context's own data. A property
// locked by an override:false rule rejects the whole update.
func (s *Service) UpdateContextData(contextID string, updates map[string]any) result.Result[result.Void] {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, ok := s.contexts[contextID]
	if !ok {
		return result.Errf[result.Void]("context %s: %w", contextID, ErrContextNotFound)
	}

	for key := range updates {
		if ctx.Locked(key) {
			return result.Errf[result.Void]("%q: %w", key, ErrPropertyLocked)
		}
	}

	if ctx.Data == nil {
		ctx.Data = make(map[string]any, len(updates))
	}

	for key, value := range updates {
		ctx.Data[key] = deepCopyValue(value)
	}

	ctx.UpdatedAt = s.clock()

	return result.OkVoid()
}

type cloneOptions struct {
	includeInherited bool
}

type CloneOption func(*cloneOptions)

// WithoutInheritedData clones only the source's own data layer.
func WithoutInheritedData() CloneOption {
	return func(o *cloneOptions) {
		o.includeInherited = false
	}
}

// CloneContextScope deep-copies a context onto the target node under a new
// scope and returns the clone's id. The source is never mutated and later
// source mutations do not reach the clone.
func (s *Service) CloneContextScope(sourceContextID string, targetNodeID models.NodeID, newScope Scope, opts ...CloneOption) result.Result[string] {
	if !newScope.IsValid() {
		return result.Errf[string]("%q: %w", newScope, ErrInvalidScope)
	}

	options := cloneOptions{includeInherited: true}
	for _, opt := range opts {
		opt(&options)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.contexts[sourceContextID]
	if !ok {
		return result.Errf[string]("source context %s: %w", sourceContextID, ErrContextNotFound)
	}

	if _, ok := s.nodes[targetNodeID.String()]; !ok {
		return result.Errf[string]("target node %s: %w", targetNodeID, ErrNodeNotRegistered)
	}

	clone := &HierarchicalContext{
		ContextID:   uuid.NewString(),
		NodeID:      targetNodeID,
		Scope:       newScope,
		AccessLevel: source.AccessLevel,
		Data:        deepCopyMap(source.Data),
		CreatedAt:   s.clock(),
		UpdatedAt:   s.clock(),
	}

	if options.includeInherited {
		clone.InheritedData = deepCopyMap(source.InheritedData)

		for property := range source.locked {
			clone.lock(property)
		}
	}

	s.storeContext(clone)

	s.logger.Debug("context cloned",
		"source_context_id", sourceContextID, "clone_context_id", clone.ContextID,
		"target_node_id", targetNodeID.String())

	return result.Ok(clone.ContextID)
}

type mergeOptions struct {
	lastWins bool
}

type MergeOption func(*mergeOptions)

// WithLastWins makes later sources overwrite earlier ones on key conflicts.
// The default keeps the first value seen.
func WithLastWins() MergeOption {
	return func(o *mergeOptions) {
		o.lastWins = true
	}
}

// MergeContextScopes folds the sources' effective data into a new context on
// the target node and returns its id. Sources are never mutated.
func (s *Service) MergeContextScopes(sourceContextIDs []string, targetNodeID models.NodeID, targetScope Scope, opts ...MergeOption) result.Result[string] {
	if len(sourceContextIDs) == 0 {
		return result.Err[string](ErrNoSourceContexts)
	}

	if !targetScope.IsValid() {
		return result.Errf[string]("%q: %w", targetScope, ErrInvalidScope)
	}

	options := mergeOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[targetNodeID.String()]; !ok {
		return result.Errf[string]("target node %s: %w", targetNodeID, ErrNodeNotRegistered)
	}

	merged := make(map[string]any)

	for _, id := range sourceContextIDs {
		source, ok := s.contexts[id]
		if !ok {
			return result.Errf[string]("source context %s: %w", id, ErrContextNotFound)
		}

		for key, value := range source.Effective() {
			if _, taken := merged[key]; taken && !options.lastWins {
				continue
			}

			merged[key] = deepCopyValue(value)
		}
	}

	ctx := &HierarchicalContext{
		ContextID:   uuid.NewString(),
		NodeID:      targetNodeID,
		Scope:       targetScope,
		AccessLevel: AccessRead,
		Data:        merged,
		CreatedAt:   s.clock(),
		UpdatedAt:   s.clock(),
	}

	s.storeContext(ctx)

	s.logger.Debug("contexts merged",
		"sources", len(sourceContextIDs), "merge_context_id", ctx.ContextID,
		"target_node_id", targetNodeID.String())

	return result.Ok(ctx.ContextID)
}

// ClearNodeContext removes every context of the node and of its descendants.
// Clearing a node that has no contexts succeeds.
func (s *Service) ClearNodeContext(nodeID models.NodeID) result.Result[result.Void] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[nodeID.String()]; !ok {
		return result.Errf[result.Void]("node %s: %w", nodeID, ErrNodeNotRegistered)
	}

	cleared := 0

	for _, id := range s.subtree(nodeID) {
		key := id.String()
		for _, contextID := range s.nodeContexts[key] {
			delete(s.contexts, contextID)
			cleared++
		}

		delete(s.nodeContexts, key)
	}

	s.logger.Debug("node context cleared", "node_id", nodeID.String(), "contexts", cleared)

	return result.OkVoid()
}

func (s *Service) storeContext(ctx *HierarchicalContext) {
	s.contexts[ctx.ContextID] = ctx

	key := ctx.NodeID.String()
	s.nodeContexts[key] = append(s.nodeContexts[key], ctx.ContextID)
}

func (s *Service) currentContext(nodeID models.NodeID) *HierarchicalContext {
	ids := s.nodeContexts[nodeID.String()]
	if len(ids) == 0 {
		return nil
	}

	return s.contexts[ids[len(ids)-1]]
}

// isAncestor reports whether candidate is a strict ancestor of node.
func (s *Service) isAncestor(candidate, node models.NodeID) bool {
	entry, ok := s.nodes[node.String()]
	if !ok {
		return false
	}

	for depth := 0; depth < s.maxDepth; depth++ {
		if entry.parentID.IsZero() {
			return false
		}

		if entry.parentID.Equals(candidate) {
			return true
		}

		entry, ok = s.nodes[entry.parentID.String()]
		if !ok {
			return false
		}
	}

	return false
}

// subtree returns the node and all its registered descendants.
func (s *Service) subtree(nodeID models.NodeID) []models.NodeID {
	out := []models.NodeID{nodeID}

	entry, ok := s.nodes[nodeID.String()]
	if !ok {
		return out
	}

	for _, child := range entry.children {
		out = append(out, s.subtree(child)...)
	}

	return out
}
