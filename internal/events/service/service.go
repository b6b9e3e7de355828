package service

import (
	"context"
	"errors"
	"fmt"

	"ms-events/internal/events/db"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// ErrEventNotFound is returned when the requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

type EventDBLayer interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	CreateEvent(ctx context.Context, event *models.Event) error
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
}

// ChangeNotifier is told about every committed change. Failures are
// logged and never undo the change.
type ChangeNotifier interface {
	PublishEventCreated(ctx context.Context, event models.Event) error
	PublishEventUpdated(ctx context.Context, event models.Event) error
	PublishEventDeleted(ctx context.Context, id int64) error
}

type EventService struct {
	DB       EventDBLayer
	Notifier ChangeNotifier
	Logger   *logger.Logger
}

func NewEventService(db EventDBLayer, notifier ChangeNotifier, log *logger.Logger) *EventService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventService{DB: db, Notifier: notifier, Logger: log}
}

// List returns all events in ascending date order.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.DB.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err, "get", id)
	}
	return event, nil
}

// Create validates the form and stores a new event. Nothing is written
// when validation fails.
func (s *EventService) Create(ctx context.Context, form EventForm) (*models.Event, error) {
	event, err := form.ToModel()
	if err != nil {
		return nil, err
	}

	if err := s.DB.CreateEvent(ctx, &event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.Logger.LogEvent("CREATE", event.ID, fmt.Sprintf("created %q on %s", event.Name, event.Date))

	if s.Notifier != nil {
		if err := s.Notifier.PublishEventCreated(ctx, event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish creation of event %d: %v", event.ID, err))
		}
	}
	return &event, nil
}

// Update replaces every field of event id with the submitted form. It is
// a full overwrite: empty optional fields clear the stored values.
func (s *EventService) Update(ctx context.Context, id int64, form EventForm) (*models.Event, error) {
	event, err := form.ToModel()
	if err != nil {
		return nil, err
	}
	event.ID = id

	if err := s.DB.UpdateEvent(ctx, event); err != nil {
		return nil, s.wrap(err, "update", id)
	}
	s.Logger.LogEvent("UPDATE", id, fmt.Sprintf("updated %q on %s", event.Name, event.Date))

	if s.Notifier != nil {
		if err := s.Notifier.PublishEventUpdated(ctx, event); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish update of event %d: %v", id, err))
		}
	}
	return &event, nil
}

func (s *EventService) Delete(ctx context.Context, id int64) error {
	if err := s.DB.DeleteEvent(ctx, id); err != nil {
		return s.wrap(err, "delete", id)
	}
	s.Logger.LogEvent("DELETE", id, "deleted")

	if s.Notifier != nil {
		if err := s.Notifier.PublishEventDeleted(ctx, id); err != nil {
			s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish deletion of event %d: %v", id, err))
		}
	}
	return nil
}

func (s *EventService) wrap(err error, op string, id int64) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("event %d: %w", id, ErrEventNotFound)
	}
	return fmt.Errorf("failed to %s event %d: %w", op, id, err)
}
