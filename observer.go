// Package hostcore provides Observer pattern interfaces for lifecycle
// notifications. Events use the CloudEvents specification for a standardized
// format that outer layers (persistence, notification components) can consume
// without coupling to the core's types.
package hostcore

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// Observer is notified of application lifecycle events. Observers should
// handle events quickly; the application dispatches notifications on
// dedicated goroutines so a slow observer cannot stall the event loop.
type Observer interface {
	// OnEvent is called when an event the observer subscribed to occurs.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer, used for
	// registration tracking.
	ObserverID() string
}

// Subject emits lifecycle events to registered observers. StdApplication
// implements it.
type Subject interface {
	// RegisterObserver adds an observer, optionally filtered by event
	// type. An empty filter receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Idempotent.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all interested observers without
	// blocking the caller.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// Observers returns information about registered observers.
	Observers() []ObserverInfo
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// CloudEvent types emitted by the core, in reverse domain notation.
const (
	// Component lifecycle events
	EventTypeComponentLoaded       = "com.hostcore.component.loaded"
	EventTypeComponentRegistered   = "com.hostcore.component.registered"
	EventTypeComponentUnregistered = "com.hostcore.component.unregistered"
	EventTypeComponentLibraryFound = "com.hostcore.component.library_found"

	// Application lifecycle events
	EventTypeApplicationStarted = "com.hostcore.application.started"
	EventTypeApplicationStopped = "com.hostcore.application.stopped"
	EventTypeApplicationFailed  = "com.hostcore.application.failed"
)

// NewCloudEvent builds a CloudEvent with the required attributes set.
func NewCloudEvent(eventType, source string, data any) cloudevents.Event {
	event := cloudevents.NewEvent()
	event.SetID(newEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	return event
}

// newEventID generates a time-ordered unique identifier (UUIDv7, falling back
// to v4).
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

func validateCloudEvent(event cloudevents.Event) error {
	if event.ID() == "" || event.Source() == "" || event.Type() == "" {
		return fmt.Errorf("%w: id, source and type are required", ErrInvalidCloudEvent)
	}
	return nil
}

// FunctionalObserver wraps a handler function as an Observer, for quick
// observer creation without a dedicated struct.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates an observer that delegates to handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent implements Observer.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements Observer.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}
