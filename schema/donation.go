package schema

import "time"

const (
	DonationCollection = "donations"
)

const (
	DonationPending   = "pending"
	DonationAccepted  = "accepted"
	DonationFulfilled = "fulfilled"
	DonationCancelled = "cancelled"
)

// LiveDonationStatuses block a new request for the same pair
var LiveDonationStatuses = []string{DonationPending, DonationAccepted}

// MatchedDonationStatuses link a pair for chatting. Logged records never
// do, whatever their status.
var MatchedDonationStatuses = []string{DonationAccepted, DonationFulfilled}

// Donation is the match record between one donor and one requester
type Donation struct {
	ID          string    `json:"id" bson:"_id"`
	DonorID     string    `json:"donorId" bson:"donor_id"`
	RequesterID string    `json:"requesterId" bson:"requester_id"`
	BloodGroup  string    `json:"bloodGroup" bson:"blood_group"`
	Status      string    `json:"status" bson:"status"`
	Notes       string    `json:"notes,omitempty" bson:"notes,omitempty"`
	Logged      bool      `json:"logged,omitempty" bson:"logged,omitempty"`
	Date        time.Time `json:"date" bson:"date"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}
