package port

import (
	"context"
	"encoding/json"

	"campaign-fulfillment/internal/core/domain"
)

// FulfillmentUseCase drives a single instance through the fulfillment
// workflow. The host guarantees calls for one instance never overlap.
type FulfillmentUseCase interface {
	// Start persists the request and advances the new instance as far as
	// the system-of-record allows.
	Start(ctx context.Context, instanceID string, req domain.CampaignRequest) (domain.InstanceState, error)
	// Resume applies an external event and advances the instance.
	Resume(ctx context.Context, instanceID string, event domain.Operation, payload json.RawMessage) (domain.InstanceState, error)
	// State returns the reconciled state of an instance.
	State(ctx context.Context, instanceID string) (domain.InstanceState, error)
}

// LeaseUseCase lets external workers claim one instance at a time.
type LeaseUseCase interface {
	// ClaimNext claims the first unleased instance among running and
	// returns its status, or ErrNotFound when none is free.
	ClaimNext(ctx context.Context, running []InstanceStatus, c domain.Claimant) (InstanceStatus, error)
	Renew(ctx context.Context, instanceID string, c domain.Claimant) (domain.InstanceState, error)
	Release(ctx context.Context, instanceID string, c domain.Claimant) (domain.InstanceState, error)
}

// Notifier delivers an operator notification.
type Notifier interface {
	Notify(ctx context.Context, subject string, body []byte) error
}

// CreativeInspector validates a creative URL and returns its content hash.
type CreativeInspector interface {
	Fingerprint(ctx context.Context, creativeURL string) (string, error)
}
