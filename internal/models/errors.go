package models

import "errors"

var (
	// ErrLookup is returned when a message or relay identity no longer exists.
	// Under the create/update race this is expected.
	ErrLookup = errors.New("lookup failed")

	// ErrFetch is returned when a product page could not be fetched or parsed.
	ErrFetch = errors.New("product fetch failed")

	// ErrProvision is returned when no relay identity could be found or created.
	ErrProvision = errors.New("relay provisioning failed")

	// ErrSend is returned when a relay repost is rejected.
	ErrSend = errors.New("relay send failed")

	// ErrEdit is returned when replacing a message's cards is rejected.
	ErrEdit = errors.New("card edit failed")

	// ErrAlreadyClaimed is returned when a message id is already being processed.
	ErrAlreadyClaimed = errors.New("message already in flight")
)
