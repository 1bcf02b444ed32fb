package hostcore

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// observerRegistration holds a registered observer and its event-type filter.
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// RegisterObserver adds an observer to receive lifecycle notifications,
// optionally filtered by event type. An empty filter receives all events.
func (app *StdApplication) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	filter := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		filter[eventType] = true
	}

	app.observerMu.Lock()
	app.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   filter,
		registeredAt: time.Now(),
	}
	app.observerMu.Unlock()

	app.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. Idempotent: unknown observers are
// ignored.
func (app *StdApplication) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	app.observerMu.Lock()
	delete(app.observers, observer.ObserverID())
	app.observerMu.Unlock()

	return nil
}

// NotifyObservers sends a CloudEvent to every interested observer. Delivery
// happens on per-observer goroutines so the caller, usually the main thread,
// is never blocked; observer errors and panics are logged and contained.
func (app *StdApplication) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}

	if err := validateCloudEvent(event); err != nil {
		app.logger.Error("Invalid cloud event", "eventType", event.Type(), "error", err)
		return err
	}

	app.observerMu.RLock()
	defer app.observerMu.RUnlock()

	for _, registration := range app.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}

		registration := registration
		go func() {
			defer func() {
				if r := recover(); r != nil {
					app.logger.Error("Observer panicked",
						"observerID", registration.observer.ObserverID(),
						"event", event.Type(), "panic", r)
				}
			}()

			if err := registration.observer.OnEvent(ctx, event); err != nil {
				app.logger.Error("Observer error",
					"observerID", registration.observer.ObserverID(),
					"event", event.Type(), "error", err)
			}
		}()
	}

	return nil
}

// Observers returns information about the currently registered observers.
func (app *StdApplication) Observers() []ObserverInfo {
	app.observerMu.RLock()
	defer app.observerMu.RUnlock()

	infos := make([]ObserverInfo, 0, len(app.observers))
	for _, registration := range app.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		infos = append(infos, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return infos
}

// emitEvent builds and dispatches a lifecycle CloudEvent sourced from the
// application.
func (app *StdApplication) emitEvent(ctx context.Context, eventType string, data map[string]any) {
	event := NewCloudEvent(eventType, "application", data)
	if err := app.NotifyObservers(ctx, event); err != nil {
		app.logger.Debug("Failed to notify observers", "eventType", eventType, "error", err)
	}
}
