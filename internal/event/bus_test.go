package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, cancelFirst := bus.Subscribe()
	second, cancelSecond := bus.Subscribe()
	defer cancelSecond()

	e, err := New("u1", model.NotificationFolderCreated, "Folder created", "notes", model.Folder{ID: "f1"})
	require.NoError(t, err)
	bus.Publish(e)

	got := <-first
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "folder", got.Notification.Icon)
	assert.NotEmpty(t, got.Notification.ID)

	var folder model.Folder
	require.NoError(t, json.Unmarshal(got.Notification.Payload, &folder))
	assert.Equal(t, "f1", folder.ID)

	assert.Equal(t, e.Notification.ID, (<-second).Notification.ID)

	cancelFirst()
	_, open := <-first
	assert.False(t, open)
	cancelFirst()
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var dropped int
	bus.OnDrop(func(Event) { dropped++ })

	_, cancel := bus.Subscribe()
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		bus.Publish(Event{UserID: "u1"})
	}
	assert.Equal(t, 5, dropped)
}
