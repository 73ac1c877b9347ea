package events

import "github.com/rs/zerolog"

// knownEvents lists every event type the services publish.
var knownEvents = []string{
	EventBookingCreated,
	EventBookingApproved,
	EventBookingRejected,
	EventBookingConfirmed,
	EventBookingCancelled,
	EventBookingRescheduled,
	EventMechanicAssigned,
	EventJobCardCreated,
	EventJobCardStarted,
	EventJobCardProgress,
	EventJobCardCompleted,
	EventJobCardCancelled,
	EventInvoiceGenerated,
	EventInvoicePaid,
}

// RegisterAudit subscribes a structured-log handler to every known event
// type, giving the workflow an audit trail of state changes.
func RegisterAudit(bus *EventBus, logger *zerolog.Logger) {
	for _, eventType := range knownEvents {
		et := eventType
		bus.Subscribe(et, func(event *Event) error {
			logger.Info().
				Str("event", et).
				RawJSON("payload", event.Payload).
				Time("occurred_at", event.CreatedAt).
				Msg("workflow event")
			return nil
		})
	}
}
