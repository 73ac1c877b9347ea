package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated     = "booking_created"
	EventBookingApproved    = "booking_approved"
	EventBookingRejected    = "booking_rejected"
	EventBookingConfirmed   = "booking_confirmed"
	EventBookingCancelled   = "booking_cancelled"
	EventBookingRescheduled = "booking_rescheduled"
	EventMechanicAssigned   = "mechanic_assigned"
	EventJobCardCreated     = "job_card_created"
	EventJobCardStarted     = "job_card_started"
	EventJobCardProgress    = "job_card_progress"
	EventJobCardCompleted   = "job_card_completed"
	EventJobCardCancelled   = "job_card_cancelled"
	EventInvoiceGenerated   = "invoice_generated"
	EventInvoicePaid        = "invoice_paid"
)

// BookingEventPayload describes the minimal booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	CustomerID  int64     `json:"customer_id"`
	MechanicID  int64     `json:"mechanic_id,omitempty"`
	ServiceType string    `json:"service_type"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
	ChangedByID int64     `json:"changed_by_id,omitempty"`
}

// JobCardEventPayload describes a job card change for event consumers.
type JobCardEventPayload struct {
	JobCardID       int64  `json:"job_card_id"`
	BookingID       int64  `json:"booking_id,omitempty"`
	MechanicID      int64  `json:"mechanic_id,omitempty"`
	Status          string `json:"status"`
	PercentComplete int    `json:"percent_complete,omitempty"`
	TotalCost       string `json:"total_cost,omitempty"`
	ChangedByID     int64  `json:"changed_by_id,omitempty"`
}

// InvoiceEventPayload describes an invoice change for event consumers.
type InvoiceEventPayload struct {
	InvoiceID  int64  `json:"invoice_id"`
	Number     string `json:"number"`
	JobCardID  int64  `json:"job_card_id"`
	CustomerID int64  `json:"customer_id"`
	GrandTotal string `json:"grand_total"`
	Status     string `json:"status"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
