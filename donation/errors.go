package donation

import (
	"errors"
	"fmt"
)

var (
	ErrSelfRequest         = errors.New("cannot send a request to yourself")
	ErrDonorNotFound       = errors.New("donor not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrDuplicateRequest    = errors.New("a live request already exists for this donor")
	ErrRequestNotFound     = errors.New("no matching request found")
	ErrInvalidBloodGroup   = errors.New("invalid blood group")
	ErrInvalidDonationDate = errors.New("donation date is in the future")
)

// IncompatibleBloodGroupError rejects a confirmation whose donor group
// cannot give to the requested group
type IncompatibleBloodGroupError struct {
	DonorBloodGroup     string
	RequestedBloodGroup string
}

func (e *IncompatibleBloodGroupError) Error() string {
	return fmt.Sprintf("blood group %s cannot donate to %s", e.DonorBloodGroup, e.RequestedBloodGroup)
}
