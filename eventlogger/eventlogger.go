package eventlogger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is an audit record of one diary mutation.
type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		for k, v := range metadata {
			e.Metadata[k] = v
		}
	}
}

// WithDate tags the event with the diary day it touched.
func WithDate(date string) EventOption {
	return func(e *Event) {
		if date != "" {
			e.Metadata["date"] = date
		}
	}
}

func WithTime(t time.Time) EventOption {
	return func(e *Event) {
		e.CreatedAt = t
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// EventLogger is a sink events are saved to.
type EventLogger interface {
	Save(ctx context.Context, e Event) error
}

// MultiLogger saves every event to each of its sinks. A failing sink does
// not stop the others.
type MultiLogger []EventLogger

func (m MultiLogger) Save(ctx context.Context, e Event) error {
	var errs []error
	for _, l := range m {
		if err := l.Save(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Save(context.Context, Event) error { return nil }
