package usecase

import (
	"errors"
	"fmt"

	"campaign-fulfillment/internal/core/domain"
)

// FulfillmentFault is returned when an instance failed. The hosting runtime
// marks the instance failed when it sees one.
type FulfillmentFault struct {
	InstanceID string
	Stage      domain.Stage
	Err        error
}

func (f *FulfillmentFault) Error() string {
	return fmt.Sprintf("instance %s failed in %s: %v", f.InstanceID, f.Stage, f.Err)
}

func (f *FulfillmentFault) Unwrap() error { return f.Err }

// IsFault reports whether err carries a FulfillmentFault.
func IsFault(err error) bool {
	var fault *FulfillmentFault
	return errors.As(err, &fault)
}

// errorType names the innermost error of a wrap chain for the error log.
func errorType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
