// Package contextaccess mediates what contextual data a node may read or
// write relative to its position in the model's container hierarchy. Contexts
// live in a flat registry keyed by context id; hierarchy is expressed through
// parent ids, never through shared ownership.
package contextaccess

import (
	"time"

	"github.com/funcmodel/funcmodel/pkg/models"
)

// Scope governs the visibility breadth of a context.
type Scope string

const (
	ScopeExecution Scope = "execution"
	ScopeSession   Scope = "session"
	ScopeGlobal    Scope = "global"
	ScopeIsolated  Scope = "isolated"
)

func (s Scope) IsValid() bool {
	switch s {
	case ScopeExecution, ScopeSession, ScopeGlobal, ScopeIsolated:
		return true
	}

	return false
}

// AccessLevel is the kind of access a node requests on a context.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

func (a AccessLevel) IsValid() bool {
	return a == AccessRead || a == AccessWrite
}

// HierarchicalContext is a node's contextual data at one point in the
// hierarchy. Own data shadows inherited data; properties inherited under an
// override:false rule are locked against later writes.
type HierarchicalContext struct {
	ContextID       string         `json:"context_id"`
	NodeID          models.NodeID  `json:"node_id"`
	Scope           Scope          `json:"scope"`
	AccessLevel     AccessLevel    `json:"access_level"`
	Data            map[string]any `json:"data,omitempty"`
	InheritedData   map[string]any `json:"inherited_data,omitempty"`
	ParentContextID string         `json:"parent_context_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	locked map[string]bool
}

// Effective merges inherited and own data, own values shadowing inherited.
func (c *HierarchicalContext) Effective() map[string]any {
	merged := make(map[string]any, len(c.InheritedData)+len(c.Data))

	for key, value := range c.InheritedData {
		merged[key] = value
	}

	for key, value := range c.Data {
		merged[key] = value
	}

	return merged
}

// Locked reports whether the property was inherited under override:false and
// may not be shadowed by this context.
func (c *HierarchicalContext) Locked(property string) bool {
	return c.locked[property]
}

func (c *HierarchicalContext) lock(property string) {
	if c.locked == nil {
		c.locked = make(map[string]bool)
	}

	c.locked[property] = true
}

// InheritanceRule controls per-property propagation between contexts.
// Inherit selects the property; Override=false preserves an existing value at
// the target and locks the property there.
type InheritanceRule struct {
	Property string `json:"property"`
	Inherit  bool   `json:"inherit"`
	Override bool   `json:"override"`
}

// ContextChain is the ancestor chain for a node, self first.
type ContextChain struct {
	NodeID          models.NodeID          `json:"node_id"`
	Contexts        []*HierarchicalContext `json:"contexts"`
	Levels          int                    `json:"levels"`
	MaxDepthReached bool                   `json:"max_depth_reached"`
}

// ValidationResult is the per-property outcome of an access check.
type ValidationResult struct {
	Granted     bool     `json:"granted"`
	AccessLevel string   `json:"access_level"`
	Accessible  []string `json:"accessible,omitempty"`
	Restricted  []string `json:"restricted,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// deepCopyValue copies nested maps and slices so clones never alias their
// source.
func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		return v
	}
}

func deepCopyMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}

	out := make(map[string]any, len(src))
	for key, value := range src {
		out[key] = deepCopyValue(value)
	}

	return out
}
