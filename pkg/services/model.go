// Package services coordinates aggregate operations with persistence and
// event publication.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/funcmodel/funcmodel/pkg/eventbus"
	"github.com/funcmodel/funcmodel/pkg/events"
	"github.com/funcmodel/funcmodel/pkg/log"
	"github.com/funcmodel/funcmodel/pkg/models"
	"github.com/funcmodel/funcmodel/pkg/persistence"
)

// Model drives the model lifecycle: it loads snapshots, applies aggregate
// operations, persists the result, and announces the change on the bus.
type Model struct {
	persistence persistence.Persistence
	bus         eventbus.EventBus
	logger      *slog.Logger
	clock       models.Clock
}

// ModelOption customizes a Model service.
type ModelOption func(*Model)

// WithEventBus makes the service publish lifecycle events.
func WithEventBus(bus eventbus.EventBus) ModelOption {
	return func(s *Model) {
		s.bus = bus
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ModelOption {
	return func(s *Model) {
		s.logger = logger
	}
}

// WithClock injects a time source.
func WithClock(clock models.Clock) ModelOption {
	return func(s *Model) {
		s.clock = clock
	}
}

// NewModel creates a model service. The bus is optional; without one the
// service only persists.
func NewModel(p persistence.Persistence, opts ...ModelOption) *Model {
	s := &Model{
		persistence: p,
		logger:      log.WithModule("model_service"),
		clock:       models.DefaultClock,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateRequest describes a new model.
type CreateRequest struct {
	Name        string
	Description string
	Owner       string
}

// Create builds a draft model, persists it, and publishes ModelCreated.
func (s *Model) Create(ctx context.Context, req CreateRequest) (*models.FunctionModel, error) {
	name := models.NewModelName(req.Name)
	if name.IsFailure() {
		return nil, name.Error()
	}

	created := models.NewFunctionModel(name.Value(), req.Owner,
		models.WithDescription(req.Description),
		models.WithClock(s.clock),
	)
	if created.IsFailure() {
		return nil, created.Error()
	}

	m := created.Value()

	if err := s.persistence.SaveModel(ctx, m.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	s.publish(ctx, m.ID(), events.ModelCreated{
		BaseEvent: s.baseEvent(events.ModelCreatedEvent, m.ID()),
		Name:      m.Name().String(),
	})

	return m, nil
}

// Publish transitions a stored model to published and announces it.
func (s *Model) Publish(ctx context.Context, id string) (*models.FunctionModel, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if r := m.Publish(); r.IsFailure() {
		return nil, r.Error()
	}

	if err := s.persistence.SaveModel(ctx, m.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	s.publish(ctx, m.ID(), events.ModelPublished{
		BaseEvent: s.baseEvent(events.ModelPublishedEvent, m.ID()),
		Version:   m.Version().String(),
	})

	return m, nil
}

// Archive transitions a stored model to archived and announces it. Archival
// is terminal.
func (s *Model) Archive(ctx context.Context, id string) (*models.FunctionModel, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if r := m.Archive(); r.IsFailure() {
		return nil, r.Error()
	}

	if err := s.persistence.SaveModel(ctx, m.Snapshot()); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	s.publish(ctx, m.ID(), events.ModelArchived{
		BaseEvent: s.baseEvent(events.ModelArchivedEvent, m.ID()),
	})

	return m, nil
}

func (s *Model) load(ctx context.Context, id string) (*models.FunctionModel, error) {
	snapshot, err := s.persistence.ModelByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}

	rehydrated := models.ModelFromSnapshot(snapshot, models.WithClock(s.clock))
	if rehydrated.IsFailure() {
		return nil, rehydrated.Error()
	}

	return rehydrated.Value(), nil
}

func (s *Model) publish(ctx context.Context, modelID models.ModelID, event eventbus.Event) {
	if s.bus == nil {
		return
	}

	if err := s.bus.Publish(ctx, modelID.String(), event); err != nil {
		s.logger.Error("failed to publish event",
			"event_type", string(event.GetType()),
			"model_id", modelID.String(),
			"error", err,
		)
	}
}

func (s *Model) baseEvent(eventType events.EventType, modelID models.ModelID) events.BaseEvent {
	id := uuid.New().String()
	if s.bus != nil {
		id = s.bus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: s.clock(),
		ModelID:   modelID.String(),
	}
}
