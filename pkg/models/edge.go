package models

import (
	"time"
)

// Edge links two nodes of a model. Edges are created and removed only
// through the aggregate, which enforces endpoint existence, duplicate, and
// cycle rules.
type Edge struct {
	ID            NodeID         `json:"id"`
	SourceID      NodeID         `json:"source_id"`
	TargetID      NodeID         `json:"target_id"`
	LinkType      LinkType       `json:"link_type"`
	LinkStrength  float64        `json:"link_strength"` // 0..1 weight
	Bidirectional bool           `json:"bidirectional"`
	Context       map[string]any `json:"context,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Connects reports whether the edge joins the given pair in the given
// direction, or either direction when bidirectional.
func (e *Edge) Connects(source, target NodeID) bool {
	if e.SourceID.Equals(source) && e.TargetID.Equals(target) {
		return true
	}

	return e.Bidirectional && e.SourceID.Equals(target) && e.TargetID.Equals(source)
}

// Touches reports whether the edge has id as either endpoint.
func (e *Edge) Touches(id NodeID) bool {
	return e.SourceID.Equals(id) || e.TargetID.Equals(id)
}
