package donation

import "time"

// RequestCommand asks a donor for blood of a given group. An empty group
// means the requester's own.
type RequestCommand struct {
	DonorID     string
	RequesterID string
	BloodGroup  string
}

type ConfirmCommand struct {
	DonorID     string
	RequesterID string
}

// CancelCommand withdraws a pending request. The actor may be either side.
type CancelCommand struct {
	ActorID       string
	CounterpartID string
}

type FulfillCommand struct {
	DonorID     string
	RequesterID string
}

// LogCommand records a donation that happened outside a request
type LogCommand struct {
	DonorID     string
	RecipientID string
	Date        time.Time
	Notes       string
}
