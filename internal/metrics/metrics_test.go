package metrics

import "testing"

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register() // must not panic on double registration

	IncHTTP("/api/v1/bookings", "200")
	IncTransition("booking", "approved")
	IncConflict("job_card")
	IncInvoiceGenerated()
}
