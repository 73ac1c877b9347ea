package events

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAuditLogsPublishedEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	bus := NewEventBus()
	RegisterAudit(bus, &logger)

	payload := BookingEventPayload{BookingID: 5, CustomerID: 1, Status: "approved"}
	require.NoError(t, bus.PublishJSON(EventBookingApproved, payload))

	out := buf.String()
	assert.Contains(t, out, EventBookingApproved)
	assert.Contains(t, out, `"booking_id":5`)
	assert.Contains(t, out, "workflow event")
}

func TestRegisterAuditCoversAllEventTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	bus := NewEventBus()
	RegisterAudit(bus, &logger)

	for _, eventType := range knownEvents {
		buf.Reset()
		require.NoError(t, bus.PublishJSON(eventType, map[string]int64{"id": 1}))
		assert.Contains(t, buf.String(), eventType)
	}
}
