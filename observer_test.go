package hostcore

import (
	"context"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver collects received events behind a channel so tests can
// wait for asynchronous delivery.
type recordingObserver struct {
	id string

	mu       sync.Mutex
	received []cloudevents.Event
	notify   chan struct{}
}

func newRecordingObserver(id string) *recordingObserver {
	return &recordingObserver{id: id, notify: make(chan struct{}, 16)}
}

func (o *recordingObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	o.mu.Lock()
	o.received = append(o.received, event)
	o.mu.Unlock()
	o.notify <- struct{}{}
	return nil
}

func (o *recordingObserver) ObserverID() string { return o.id }

func (o *recordingObserver) waitForEvent(t *testing.T) cloudevents.Event {
	t.Helper()

	select {
	case <-o.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("observer did not receive an event")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	return o.received[len(o.received)-1]
}

func (o *recordingObserver) eventCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.received)
}

func TestRegisterObserverNil(t *testing.T) {
	app := newTestApp(t, nil)

	assert.ErrorIs(t, app.RegisterObserver(nil), ErrObserverNil)
	assert.ErrorIs(t, app.UnregisterObserver(nil), ErrObserverNil)
}

func TestNotifyObserversDeliversToAll(t *testing.T) {
	app := newTestApp(t, nil)

	first := newRecordingObserver("first")
	second := newRecordingObserver("second")
	require.NoError(t, app.RegisterObserver(first))
	require.NoError(t, app.RegisterObserver(second))

	event := NewCloudEvent(EventTypeComponentRegistered, "test", map[string]any{"component": "checker"})
	require.NoError(t, app.NotifyObservers(context.Background(), event))

	got := first.waitForEvent(t)
	assert.Equal(t, EventTypeComponentRegistered, got.Type())
	got = second.waitForEvent(t)
	assert.Equal(t, event.ID(), got.ID())
}

func TestNotifyObserversHonorsEventTypeFilter(t *testing.T) {
	app := newTestApp(t, nil)

	filtered := newRecordingObserver("filtered")
	require.NoError(t, app.RegisterObserver(filtered, EventTypeApplicationStopped))

	require.NoError(t, app.NotifyObservers(context.Background(),
		NewCloudEvent(EventTypeComponentRegistered, "test", nil)))
	require.NoError(t, app.NotifyObservers(context.Background(),
		NewCloudEvent(EventTypeApplicationStopped, "test", nil)))

	got := filtered.waitForEvent(t)
	assert.Equal(t, EventTypeApplicationStopped, got.Type())
	assert.Equal(t, 1, filtered.eventCount())
}

func TestNotifyObserversRejectsIncompleteEvent(t *testing.T) {
	app := newTestApp(t, nil)

	var empty cloudevents.Event
	assert.ErrorIs(t, app.NotifyObservers(context.Background(), empty), ErrInvalidCloudEvent)
}

func TestNotifyObserversSetsMissingTimestamp(t *testing.T) {
	app := newTestApp(t, nil)

	observer := newRecordingObserver("timestamps")
	require.NoError(t, app.RegisterObserver(observer))

	event := cloudevents.NewEvent()
	event.SetID("fixed-id")
	event.SetSource("test")
	event.SetType(EventTypeComponentLoaded)
	require.NoError(t, app.NotifyObservers(context.Background(), event))

	got := observer.waitForEvent(t)
	assert.False(t, got.Time().IsZero())
}

func TestUnregisterObserverStopsDelivery(t *testing.T) {
	app := newTestApp(t, nil)

	observer := newRecordingObserver("transient")
	require.NoError(t, app.RegisterObserver(observer))
	require.NoError(t, app.UnregisterObserver(observer))

	require.NoError(t, app.NotifyObservers(context.Background(),
		NewCloudEvent(EventTypeComponentRegistered, "test", nil)))

	select {
	case <-observer.notify:
		t.Fatal("unregistered observer still received an event")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserversReportsRegistrations(t *testing.T) {
	app := newTestApp(t, nil)

	require.NoError(t, app.RegisterObserver(newRecordingObserver("all-events")))
	require.NoError(t, app.RegisterObserver(newRecordingObserver("scoped"), EventTypeComponentLoaded))

	infos := app.Observers()
	require.Len(t, infos, 2)

	byID := make(map[string]ObserverInfo, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}
	assert.Empty(t, byID["all-events"].EventTypes)
	assert.Equal(t, []string{EventTypeComponentLoaded}, byID["scoped"].EventTypes)
	assert.False(t, byID["scoped"].RegisteredAt.IsZero())
}

func TestRegisterComponentEmitsLifecycleEvent(t *testing.T) {
	observer := newRecordingObserver("lifecycle")

	app := newTestApp(t, func([]string) (int, error) {
		inst := GetInstance()
		err := inst.RegisterComponent(context.Background(), &funcComponent{name: "checker"})
		require.NoError(t, err)
		return ExitSuccess, nil
	}, WithObserver(observer, EventTypeComponentRegistered))

	app.Run([]string{"monitord"})

	got := observer.waitForEvent(t)
	assert.Equal(t, EventTypeComponentRegistered, got.Type())
	assert.Contains(t, string(got.Data()), "checker")
}

func TestFunctionalObserver(t *testing.T) {
	called := make(chan cloudevents.Event, 1)
	observer := NewFunctionalObserver("fn", func(_ context.Context, event cloudevents.Event) error {
		called <- event
		return nil
	})

	assert.Equal(t, "fn", observer.ObserverID())

	event := NewCloudEvent(EventTypeApplicationStarted, "test", nil)
	require.NoError(t, observer.OnEvent(context.Background(), event))
	assert.Equal(t, event.ID(), (<-called).ID())
}
