package contextaccess

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funcmodel/funcmodel/pkg/models"
)

func register(t *testing.T, s *Service, parent models.NodeID) models.NodeID {
	t.Helper()

	id := models.NewNodeID()
	level := 0

	if !parent.IsZero() {
		level = 1
	}

	r := s.RegisterNode(RegisterNodeRequest{
		NodeID:         id,
		NodeType:       models.NodeTypeStage,
		ParentNodeID:   parent,
		HierarchyLevel: level,
	})
	require.True(t, r.IsSuccess(), "register: %v", r)

	return id
}

func build(t *testing.T, s *Service, req BuildContextRequest) *HierarchicalContext {
	t.Helper()

	r := s.BuildContext(req)
	require.True(t, r.IsSuccess(), "build context: %v", r)

	return r.Value()
}

func TestRegisterNode(t *testing.T) {
	s := NewService()
	root := register(t, s, models.NodeID{})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		r := s.RegisterNode(RegisterNodeRequest{NodeID: root, NodeType: models.NodeTypeStage})
		require.True(t, r.IsFailure())
		assert.True(t, models.IsConflict(r.Error()))
	})

	t.Run("unknown parent is not found", func(t *testing.T) {
		r := s.RegisterNode(RegisterNodeRequest{
			NodeID:       models.NewNodeID(),
			NodeType:     models.NodeTypeTether,
			ParentNodeID: models.NewNodeID(),
		})
		require.True(t, r.IsFailure())
		assert.True(t, models.IsNotFound(r.Error()))
	})

	t.Run("initial context data seeds a context", func(t *testing.T) {
		id := models.NewNodeID()
		require.True(t, s.RegisterNode(RegisterNodeRequest{
			NodeID:      id,
			NodeType:    models.NodeTypeTether,
			ContextData: map[string]any{"seed": true},
		}).IsSuccess())

		ctx := s.GetNodeContext(id)
		require.True(t, ctx.IsSuccess())
		assert.Equal(t, true, ctx.Value().Data["seed"])
	})
}

// A child context inherits the parent property under an override:false rule;
// the inherited value is visible next to the child's own data and cannot be
// overwritten at the child.
func TestBuildContext_InheritanceWithOverrideLock(t *testing.T) {
	s := NewService()
	nodeA := register(t, s, models.NodeID{})
	nodeB := register(t, s, nodeA)

	ctxA := build(t, s, BuildContextRequest{
		NodeID: nodeA,
		Data:   map[string]any{"x": 1},
		Scope:  ScopeExecution,
	})

	ctxB := build(t, s, BuildContextRequest{
		NodeID:          nodeB,
		Data:            map[string]any{"y": 2},
		Scope:           ScopeExecution,
		ParentContextID: ctxA.ContextID,
		Rules:           []InheritanceRule{{Property: "x", Inherit: true, Override: false}},
	})

	got := s.GetNodeContext(nodeB)
	require.True(t, got.IsSuccess())

	effective := got.Value().Effective()
	assert.Equal(t, 1, effective["x"], "x inherited from parent")
	assert.Equal(t, 2, effective["y"], "own data preserved")

	r := s.UpdateContextData(ctxB.ContextID, map[string]any{"x": 99})
	require.True(t, r.IsFailure())
	assert.True(t, models.IsConflict(r.Error()))
	assert.ErrorIs(t, r.Error(), ErrPropertyLocked)

	// The rejected update leaves the context untouched.
	assert.Equal(t, 1, s.GetNodeContext(nodeB).Value().Effective()["x"])
}

func TestBuildContext_DefaultInheritsEverything(t *testing.T) {
	s := NewService()
	parent := register(t, s, models.NodeID{})
	child := register(t, s, parent)

	ctxP := build(t, s, BuildContextRequest{
		NodeID: parent,
		Data:   map[string]any{"a": 1, "b": 2},
		Scope:  ScopeExecution,
	})

	ctxC := build(t, s, BuildContextRequest{
		NodeID:          child,
		Data:            map[string]any{"b": 20},
		Scope:           ScopeExecution,
		ParentContextID: ctxP.ContextID,
	})

	effective := ctxC.Effective()
	assert.Equal(t, 1, effective["a"])
	assert.Equal(t, 20, effective["b"], "own data shadows inherited")
	assert.False(t, ctxC.Locked("a"), "default inheritance does not lock")
}

func TestBuildContext_IsolatedParentNotInherited(t *testing.T) {
	s := NewService()
	parent := register(t, s, models.NodeID{})
	child := register(t, s, parent)

	ctxP := build(t, s, BuildContextRequest{
		NodeID: parent,
		Data:   map[string]any{"secret": "hidden"},
		Scope:  ScopeIsolated,
	})

	ctxC := build(t, s, BuildContextRequest{
		NodeID:          child,
		Scope:           ScopeExecution,
		ParentContextID: ctxP.ContextID,
	})

	_, found := ctxC.Effective()["secret"]
	assert.False(t, found)
}

func TestBuildContext_Failures(t *testing.T) {
	s := NewService()
	node := register(t, s, models.NodeID{})

	r := s.BuildContext(BuildContextRequest{NodeID: node, Scope: Scope("bogus")})
	require.True(t, r.IsFailure())
	assert.True(t, models.IsValidation(r.Error()))

	r = s.BuildContext(BuildContextRequest{NodeID: models.NewNodeID(), Scope: ScopeExecution})
	require.True(t, r.IsFailure())
	assert.True(t, models.IsNotFound(r.Error()))

	r = s.BuildContext(BuildContextRequest{NodeID: node, Scope: ScopeExecution, ParentContextID: "missing"})
	require.True(t, r.IsFailure())
	assert.True(t, models.IsNotFound(r.Error()))
}

func TestGetHierarchicalContext(t *testing.T) {
	s := NewService()
	root := register(t, s, models.NodeID{})
	mid := register(t, s, root)
	leaf := register(t, s, mid)

	build(t, s, BuildContextRequest{NodeID: root, Data: map[string]any{"level": "root"}, Scope: ScopeExecution})
	build(t, s, BuildContextRequest{NodeID: mid, Data: map[string]any{"level": "mid"}, Scope: ScopeIsolated})
	build(t, s, BuildContextRequest{NodeID: leaf, Data: map[string]any{"level": "leaf"}, Scope: ScopeExecution})

	chain := s.GetHierarchicalContext(leaf)
	require.True(t, chain.IsSuccess())

	got := chain.Value()
	assert.Equal(t, 3, got.Levels)
	assert.False(t, got.MaxDepthReached)

	// The isolated mid context is excluded from the descendant's chain.
	require.Len(t, got.Contexts, 2)
	assert.Equal(t, "leaf", got.Contexts[0].Data["level"])
	assert.Equal(t, "root", got.Contexts[1].Data["level"])
}

func TestGetHierarchicalContext_MaxDepth(t *testing.T) {
	s := NewService(WithMaxDepth(3))

	parent := models.NodeID{}
	var last models.NodeID

	for i := 0; i < 5; i++ {
		last = register(t, s, parent)
		parent = last
	}

	chain := s.GetHierarchicalContext(last)
	require.True(t, chain.IsSuccess())
	assert.True(t, chain.Value().MaxDepthReached)
	assert.Equal(t, 3, chain.Value().Levels)
}

func TestPropagateContext(t *testing.T) {
	s := NewService()
	source := register(t, s, models.NodeID{})
	target := register(t, s, models.NodeID{})

	ctxS := build(t, s, BuildContextRequest{
		NodeID: source,
		Data:   map[string]any{"region": "eu", "tier": "gold"},
		Scope:  ScopeExecution,
	})
	ctxT := build(t, s, BuildContextRequest{
		NodeID: target,
		Data:   map[string]any{"tier": "silver"},
		Scope:  ScopeExecution,
	})

	r := s.PropagateContext(ctxS.ContextID, target, []InheritanceRule{
		{Property: "region", Inherit: true, Override: true},
		{Property: "tier", Inherit: true, Override: false},
	})
	require.True(t, r.IsSuccess())

	effective := s.GetNodeContext(target).Value().Effective()
	assert.Equal(t, "eu", effective["region"])
	assert.Equal(t, "silver", effective["tier"], "override:false preserves the existing value")

	locked := s.UpdateContextData(ctxT.ContextID, map[string]any{"tier": "bronze"})
	require.True(t, locked.IsFailure())
	assert.ErrorIs(t, locked.Error(), ErrPropertyLocked)
}

func TestPropagateContext_CreatesTargetContext(t *testing.T) {
	s := NewService()
	source := register(t, s, models.NodeID{})
	target := register(t, s, models.NodeID{})

	ctxS := build(t, s, BuildContextRequest{
		NodeID: source,
		Data:   map[string]any{"k": "v"},
		Scope:  ScopeExecution,
	})

	require.True(t, s.PropagateContext(ctxS.ContextID, target, []InheritanceRule{
		{Property: "k", Inherit: true, Override: true},
	}).IsSuccess())

	got := s.GetNodeContext(target)
	require.True(t, got.IsSuccess())
	assert.Equal(t, "v", got.Value().Effective()["k"])
}

func TestValidateContextAccess(t *testing.T) {
	s := NewService()
	root := register(t, s, models.NodeID{})
	child := register(t, s, root)
	siblingA := register(t, s, child)
	siblingB := register(t, s, child)

	build(t, s, BuildContextRequest{
		NodeID: siblingA,
		Data:   map[string]any{"present": 1},
		Scope:  ScopeExecution,
	})

	t.Run("self access always fully granted", func(t *testing.T) {
		r := s.ValidateContextAccess(siblingA, siblingA, AccessWrite, []string{"present", "missing"})
		require.True(t, r.IsSuccess())
		assert.True(t, r.Value().Granted)
		assert.ElementsMatch(t, []string{"present", "missing"}, r.Value().Accessible)
	})

	t.Run("ancestor reads, missing properties restricted", func(t *testing.T) {
		r := s.ValidateContextAccess(siblingA, root, AccessRead, []string{"present", "missing"})
		require.True(t, r.IsSuccess())
		assert.ElementsMatch(t, []string{"present"}, r.Value().Accessible)
		assert.ElementsMatch(t, []string{"missing"}, r.Value().Restricted)
	})

	t.Run("ancestor write denied", func(t *testing.T) {
		r := s.ValidateContextAccess(siblingA, root, AccessWrite, []string{"present"})
		require.True(t, r.IsFailure())
		assert.True(t, models.IsAccessDenied(r.Error()))
	})

	t.Run("descendant reads within boundary", func(t *testing.T) {
		build(t, s, BuildContextRequest{NodeID: child, Data: map[string]any{"up": 1}, Scope: ScopeIsolated})

		r := s.ValidateContextAccess(child, siblingA, AccessRead, []string{"up"})
		require.True(t, r.IsSuccess())
		assert.ElementsMatch(t, []string{"up"}, r.Value().Accessible)
	})

	t.Run("sibling denied outside global scope", func(t *testing.T) {
		r := s.ValidateContextAccess(siblingA, siblingB, AccessRead, []string{"present"})
		require.True(t, r.IsFailure())
		assert.True(t, models.IsAccessDenied(r.Error()))
		assert.False(t, models.IsNotFound(r.Error()))
	})

	t.Run("global scope grants siblings, write included", func(t *testing.T) {
		build(t, s, BuildContextRequest{
			NodeID: siblingA,
			Data:   map[string]any{"shared": 1},
			Scope:  ScopeGlobal,
		})

		r := s.ValidateContextAccess(siblingA, siblingB, AccessWrite, []string{"shared"})
		require.True(t, r.IsSuccess())
		assert.ElementsMatch(t, []string{"shared"}, r.Value().Accessible)
	})

	t.Run("nonexistent node is not found, not access denied", func(t *testing.T) {
		r := s.ValidateContextAccess(models.NewNodeID(), root, AccessRead, nil)
		require.True(t, r.IsFailure())
		assert.True(t, models.IsNotFound(r.Error()))
		assert.False(t, models.IsAccessDenied(r.Error()))
	})

	t.Run("unknown access level rejected", func(t *testing.T) {
		r := s.ValidateContextAccess(siblingA, root, AccessLevel("admin"), nil)
		require.True(t, r.IsFailure())
		assert.True(t, models.IsValidation(r.Error()))
	})
}

// Clone returns data equal to the source at clone time, and later source
// mutations do not reach the clone.
func TestCloneContextScope_DeepCopyLaw(t *testing.T) {
	s := NewService()
	source := register(t, s, models.NodeID{})
	target := register(t, s, models.NodeID{})

	ctxS := build(t, s, BuildContextRequest{
		NodeID: source,
		Data:   map[string]any{"nested": map[string]any{"count": 1}, "list": []any{"a"}},
		Scope:  ScopeExecution,
	})

	cloned := s.CloneContextScope(ctxS.ContextID, target, ScopeSession)
	require.True(t, cloned.IsSuccess())

	before := s.GetNodeContext(target).Value().Effective()
	assert.Empty(t, cmp.Diff(ctxS.Effective(), before))

	require.True(t, s.UpdateContextData(ctxS.ContextID, map[string]any{
		"nested": map[string]any{"count": 2},
	}).IsSuccess())

	after := s.GetNodeContext(target).Value().Effective()
	assert.Empty(t, cmp.Diff(before, after), "clone unaffected by source mutation")
	assert.Equal(t, ScopeSession, s.GetNodeContext(target).Value().Scope)
}

func TestMergeContextScopes(t *testing.T) {
	s := NewService()
	nodeA := register(t, s, models.NodeID{})
	nodeB := register(t, s, models.NodeID{})
	target := register(t, s, models.NodeID{})

	ctxA := build(t, s, BuildContextRequest{
		NodeID: nodeA,
		Data:   map[string]any{"k": "first", "a": 1},
		Scope:  ScopeExecution,
	})
	ctxB := build(t, s, BuildContextRequest{
		NodeID: nodeB,
		Data:   map[string]any{"k": "second", "b": 2},
		Scope:  ScopeExecution,
	})

	t.Run("first wins by default", func(t *testing.T) {
		r := s.MergeContextScopes([]string{ctxA.ContextID, ctxB.ContextID}, target, ScopeExecution)
		require.True(t, r.IsSuccess())

		merged := s.contexts[r.Value()].Effective()
		assert.Equal(t, "first", merged["k"])
		assert.Equal(t, 1, merged["a"])
		assert.Equal(t, 2, merged["b"])
	})

	t.Run("last wins on request", func(t *testing.T) {
		r := s.MergeContextScopes([]string{ctxA.ContextID, ctxB.ContextID}, target, ScopeExecution, WithLastWins())
		require.True(t, r.IsSuccess())
		assert.Equal(t, "second", s.contexts[r.Value()].Effective()["k"])
	})

	t.Run("sources are not mutated", func(t *testing.T) {
		assert.Equal(t, "first", ctxA.Data["k"])
		assert.Equal(t, "second", ctxB.Data["k"])
	})

	t.Run("empty source list rejected", func(t *testing.T) {
		r := s.MergeContextScopes(nil, target, ScopeExecution)
		require.True(t, r.IsFailure())
		assert.True(t, models.IsValidation(r.Error()))
	})
}

func TestClearNodeContext_IdempotentCascade(t *testing.T) {
	s := NewService()
	root := register(t, s, models.NodeID{})
	child := register(t, s, root)
	grandchild := register(t, s, child)
	outsider := register(t, s, models.NodeID{})

	build(t, s, BuildContextRequest{NodeID: child, Data: map[string]any{"c": 1}, Scope: ScopeExecution})
	build(t, s, BuildContextRequest{NodeID: grandchild, Data: map[string]any{"g": 1}, Scope: ScopeExecution})
	build(t, s, BuildContextRequest{NodeID: outsider, Data: map[string]any{"o": 1}, Scope: ScopeExecution})

	require.True(t, s.ClearNodeContext(child).IsSuccess())

	assert.True(t, s.GetNodeContext(child).IsFailure())
	assert.True(t, s.GetNodeContext(grandchild).IsFailure(), "cascade reaches descendants")
	assert.True(t, s.GetNodeContext(outsider).IsSuccess(), "unrelated nodes untouched")

	// Second clear on the same id succeeds with identical observable state.
	require.True(t, s.ClearNodeContext(child).IsSuccess())
	assert.True(t, s.GetNodeContext(grandchild).IsFailure())

	r := s.ClearNodeContext(models.NewNodeID())
	require.True(t, r.IsFailure())
	assert.True(t, models.IsNotFound(r.Error()))
}
