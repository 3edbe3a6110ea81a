package models

import (
	"math"

	"github.com/funcmodel/funcmodel/pkg/result"
)

// Position is a node's location on the design surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition validates that both coordinates are finite numbers.
func NewPosition(x, y float64) result.Result[Position] {
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return result.Errf[Position]("position coordinates must be finite: %w", ErrValidation)
	}

	return result.Ok(Position{X: x, Y: y})
}

// Translate returns a new Position shifted by (dx, dy).
func (p Position) Translate(dx, dy float64) result.Result[Position] {
	return NewPosition(p.X+dx, p.Y+dy)
}

// Equals reports exact coordinate equality.
func (p Position) Equals(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}
