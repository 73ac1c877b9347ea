// Package authz is the authorization guard for workflow transitions.
// It is a pure lookup over per-entity transition tables: no side effects,
// no storage access. Callers translate a false result into 403.
package authz

import "garage/internal/models"

// Relation carries the ownership facts the guard needs beyond the role.
type Relation struct {
	// IsOwner is true when the actor is the booking's customer.
	IsOwner bool
	// IsAssignedMechanic is true when the actor is the mechanic assigned
	// to the booking or job card.
	IsAssignedMechanic bool
}

type edge struct {
	from string
	to   string
}

// permit allows a role to take an edge, optionally requiring an ownership
// relation on top of the role.
type permit struct {
	role          string
	needsOwner    bool
	needsAssigned bool
}

var bookingEdges = map[edge][]permit{
	{models.BookingPending, models.BookingApproved}: {
		{role: models.RoleAdmin},
		{role: models.RoleMechanic},
	},
	{models.BookingPending, models.BookingRejected}: {
		{role: models.RoleAdmin},
		{role: models.RoleMechanic},
	},
	{models.BookingApproved, models.BookingConfirmed}: {
		{role: models.RoleCustomer, needsOwner: true},
	},
	// Assignment goes through the assignment coordinator; the guard only
	// answers whether the actor may trigger it.
	{models.BookingApproved, models.BookingAssigned}: {
		{role: models.RoleAdmin},
	},
	{models.BookingConfirmed, models.BookingAssigned}: {
		{role: models.RoleAdmin},
	},
	{models.BookingAssigned, models.BookingInProgress}: {
		{role: models.RoleMechanic, needsAssigned: true},
	},
	{models.BookingInProgress, models.BookingCompleted}: {
		{role: models.RoleMechanic, needsAssigned: true},
		{role: models.RoleAdmin},
	},
	{models.BookingPending, models.BookingCancelled}: {
		{role: models.RoleCustomer, needsOwner: true},
		{role: models.RoleAdmin},
	},
	{models.BookingApproved, models.BookingCancelled}: {
		{role: models.RoleCustomer, needsOwner: true},
		{role: models.RoleAdmin},
	},
	{models.BookingConfirmed, models.BookingCancelled}: {
		{role: models.RoleCustomer, needsOwner: true},
		{role: models.RoleAdmin},
	},
	{models.BookingAssigned, models.BookingCancelled}: {
		{role: models.RoleCustomer, needsOwner: true},
		{role: models.RoleAdmin},
	},
	{models.BookingInProgress, models.BookingCancelled}: {
		{role: models.RoleCustomer, needsOwner: true},
		{role: models.RoleAdmin},
	},
}

var jobCardEdges = map[edge][]permit{
	{models.JobCardPending, models.JobCardInProgress}: {
		{role: models.RoleMechanic, needsAssigned: true},
		{role: models.RoleAdmin},
	},
	{models.JobCardInProgress, models.JobCardCompleted}: {
		{role: models.RoleMechanic, needsAssigned: true},
		{role: models.RoleAdmin},
	},
	{models.JobCardPending, models.JobCardCancelled}: {
		{role: models.RoleMechanic, needsAssigned: true},
		{role: models.RoleAdmin},
	},
	{models.JobCardInProgress, models.JobCardCancelled}: {
		{role: models.RoleMechanic, needsAssigned: true},
		{role: models.RoleAdmin},
	},
}

// CanTransition reports whether role may move an entity of kind from one
// status to another given the actor's relation to it. Unknown kinds and
// edges absent from the tables are denied.
func CanTransition(role, entityKind, from, to string, rel Relation) bool {
	var permits []permit
	switch entityKind {
	case models.EntityBooking:
		permits = bookingEdges[edge{from, to}]
	case models.EntityJobCard:
		permits = jobCardEdges[edge{from, to}]
	default:
		return false
	}

	for _, p := range permits {
		if p.role != role {
			continue
		}
		if p.needsOwner && !rel.IsOwner {
			continue
		}
		if p.needsAssigned && !rel.IsAssignedMechanic {
			continue
		}
		return true
	}
	return false
}

// EdgeExists reports whether the transition is present in the entity's
// state machine for any role. A missing edge is a malformed request, not
// a permission failure.
func EdgeExists(entityKind, from, to string) bool {
	switch entityKind {
	case models.EntityBooking:
		_, ok := bookingEdges[edge{from, to}]
		return ok
	case models.EntityJobCard:
		_, ok := jobCardEdges[edge{from, to}]
		return ok
	}
	return false
}

// ValidBookingStatus reports whether status is a known booking status; used
// to distinguish malformed input (400) from an illegal transition (403).
func ValidBookingStatus(status string) bool {
	switch status {
	case models.BookingPending, models.BookingApproved, models.BookingConfirmed,
		models.BookingAssigned, models.BookingInProgress, models.BookingCompleted,
		models.BookingCancelled, models.BookingRejected:
		return true
	}
	return false
}

// ValidJobCardStatus reports whether status is a known job card status.
func ValidJobCardStatus(status string) bool {
	switch status {
	case models.JobCardPending, models.JobCardInProgress,
		models.JobCardCompleted, models.JobCardCancelled:
		return true
	}
	return false
}
