package port

import "errors"

var (
	// ErrValidation marks malformed requests and event payloads. They are
	// rejected before touching any state.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an instance or a claimable lease does not exist.
	ErrNotFound = errors.New("not found")
	// ErrLeaseConflict rejects lease operations from a non-owning claimant.
	ErrLeaseConflict = errors.New("lease held by another claimant")
	// ErrVersionConflict is returned by DocumentStore.Save when the stored
	// version moved since it was loaded.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrUnexpectedEvent rejects an event the instance is not waiting for.
	ErrUnexpectedEvent = errors.New("instance is not waiting for this event")
	// ErrInstanceTerminal rejects events raised against a completed or failed instance.
	ErrInstanceTerminal = errors.New("instance is in a terminal state")
	// ErrDuplicateRecord is returned by repositories on a key collision.
	ErrDuplicateRecord = errors.New("duplicate record")
)
