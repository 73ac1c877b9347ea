package models

// Booking lifecycle statuses.
const (
	BookingPending    = "pending"
	BookingApproved   = "approved"
	BookingConfirmed  = "confirmed"
	BookingAssigned   = "assigned"
	BookingInProgress = "in_progress"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
	BookingRejected   = "rejected"
)

// Job card lifecycle statuses.
const (
	JobCardPending    = "pending"
	JobCardInProgress = "in_progress"
	JobCardCompleted  = "completed"
	JobCardCancelled  = "cancelled"
)

// Invoice statuses.
const (
	InvoiceUnpaid    = "unpaid"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
)

// Task statuses on a job card.
const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
)

// Principal roles. Issued by the identity provider, trusted by the core.
const (
	RoleCustomer = "customer"
	RoleMechanic = "mechanic"
	RoleAdmin    = "admin"
)

// Entity kinds used by the authorization guard, event payloads and the
// sync queue.
const (
	EntityBooking = "booking"
	EntityJobCard = "job_card"
	EntityInvoice = "invoice"
)

const (
	// WorkerQueueSize is the in-memory buffer of the sheets sync worker.
	WorkerQueueSize = 1000

	// RateLimitRequests is the per-principal request budget per window.
	RateLimitRequests = 60

	// RateLimitWindow in seconds.
	RateLimitWindow = 60

	// PartsCacheTTL controls how long catalog prices live in the cache, seconds.
	PartsCacheTTL = 5 * 60
)
