package guide

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced guide does not exist. Callers fall back to
	// the home view instead of keeping the dangling id.
	ErrNotFound = errors.New("guide not found")

	// ErrEmptyResponse: the generator answered with no places.
	ErrEmptyResponse = errors.New("no places were found for this search, try a broader query")

	// ErrGeneration: the generator call itself failed (network, quota).
	ErrGeneration = errors.New("guide generation failed")

	// ErrMalformedResponse: the answer was not a JSON array of complete place
	// records. It is a kind of ErrGeneration.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrGeneration)

	// ErrPersistence: a store write failed after generation succeeded; the
	// places only live in the session.
	//
	// Known race: two sessions that miss the lookup for the same search key at
	// the same time both call the generator. The unique search_key index makes
	// the second CreateGuide adopt the first guide's id, so only one guide is
	// stored, but the second generation is wasted.
	ErrPersistence = errors.New("guide could not be saved")

	// ErrTransactionConflict: a like or comment transaction lost its guide,
	// usually because the guide no longer exists. Not retried automatically.
	ErrTransactionConflict = errors.New("guide changed during update")

	// ErrInvalidParams: the search has no city or carries text that is not
	// valid UTF-8.
	ErrInvalidParams = errors.New("invalid search parameters")

	// ErrUnauthenticated: the operation needs a signed-in identity.
	ErrUnauthenticated = errors.New("sign in required")
)
