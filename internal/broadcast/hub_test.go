package broadcast

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boostbuddy/boostline/internal/history"
)

func msg(content string) history.Message {
	return history.Message{Content: content, Kind: history.KindText, Sender: history.SenderCustomer}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub(slog.Default())
	hub.Publish("923000000001", msg("nobody listening"))
	assert.Equal(t, 0, hub.SubscriberCount("923000000001"))
}

func TestPerAddressOrderPreserved(t *testing.T) {
	hub := NewHub(slog.Default())
	sub := hub.Subscribe("923000000002")
	defer sub.Close()

	for i := 0; i < 5; i++ {
		hub.Publish("923000000002", msg(fmt.Sprintf("m%d", i)))
	}
	for i := 0; i < 5; i++ {
		event := <-sub.C
		assert.Equal(t, fmt.Sprintf("m%d", i), event.Message.Content)
	}
}

func TestEventsScopedToAddress(t *testing.T) {
	hub := NewHub(slog.Default())
	a := hub.Subscribe("addr-a")
	defer a.Close()
	b := hub.Subscribe("addr-b")
	defer b.Close()

	hub.Publish("addr-a", msg("for a"))

	require.Len(t, a.C, 1)
	assert.Len(t, b.C, 0)
	event := <-a.C
	assert.Equal(t, "addr-a", event.Address)
}

func TestCloseRemovesSubscriber(t *testing.T) {
	hub := NewHub(slog.Default())
	sub := hub.Subscribe("addr-c")
	require.Equal(t, 1, hub.SubscriberCount("addr-c"))

	sub.Close()
	assert.Equal(t, 0, hub.SubscriberCount("addr-c"))

	_, open := <-sub.C
	assert.False(t, open)

	// Double close must not panic.
	sub.Close()
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	hub := NewHub(slog.Default())
	sub := hub.Subscribe("addr-d")
	defer sub.Close()

	for i := 0; i < subscriberBuffer+3; i++ {
		hub.Publish("addr-d", msg(fmt.Sprintf("m%d", i)))
	}
	// Oldest events were dropped; the newest survives.
	var last Event
	for len(sub.C) > 0 {
		last = <-sub.C
	}
	assert.Equal(t, fmt.Sprintf("m%d", subscriberBuffer+2), last.Message.Content)
}
