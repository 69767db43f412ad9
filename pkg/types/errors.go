package types

import "errors"

// Domain errors for type validation
var (
	// ErrInvalidPlan is returned when a SearchPlan fails validation. It is fatal
	// for a run and is reported before any remote call is made.
	ErrInvalidPlan = errors.New("invalid search plan")

	// Item validation errors
	ErrMissingItemID  = errors.New("item id is required")
	ErrMissingURL     = errors.New("item url is required")
	ErrForeignURL     = errors.New("item url does not point at the source platform")
	ErrOrphanReply    = errors.New("reply parent does not match item")
	ErrMissingReplyID = errors.New("reply id is required")
)
