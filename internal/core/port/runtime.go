package port

import (
	"context"
	"encoding/json"
	"time"

	"campaign-fulfillment/internal/core/domain"
)

// WorkflowFulfillment is the only workflow name the host knows how to start.
const WorkflowFulfillment = "fulfillment"

// ReservedInstancePrefix marks system-internal instances that workers must
// never claim.
const ReservedInstancePrefix = "@"

// RuntimeStatus is the hosting runtime's view of an instance.
type RuntimeStatus string

const (
	RuntimeRunning   RuntimeStatus = "Running"
	RuntimeCompleted RuntimeStatus = "Completed"
	RuntimeFailed    RuntimeStatus = "Failed"
)

// InstanceStatus is the metadata the host keeps per instance. CustomStatus
// mirrors the workflow stage.
type InstanceStatus struct {
	InstanceID      string        `json:"instanceId"`
	Name            string        `json:"name"`
	RuntimeStatus   RuntimeStatus `json:"runtimeStatus"`
	CreatedTime     time.Time     `json:"createdTime"`
	LastUpdatedTime time.Time     `json:"lastUpdatedTime"`
	CustomStatus    string        `json:"customStatus"`
}

// Runtime is the orchestration host that starts instances and delivers
// events to them, one at a time per instance.
type Runtime interface {
	// StartInstance starts workflow with the given input. An empty
	// instanceID asks the host to generate one.
	StartInstance(ctx context.Context, workflow, instanceID string, req domain.CampaignRequest) (string, error)
	RaiseEvent(ctx context.Context, instanceID string, event domain.Operation, payload json.RawMessage) error
	RunningInstances(ctx context.Context) ([]InstanceStatus, error)
	Status(ctx context.Context, instanceID string) (*InstanceStatus, error)
}

// InstanceRegistry persists the host's instance metadata.
type InstanceRegistry interface {
	CreateInstance(ctx context.Context, st InstanceStatus) error
	UpdateInstance(ctx context.Context, instanceID string, status RuntimeStatus, custom string, at time.Time) error
	// GetInstance returns nil when the instance is unknown.
	GetInstance(ctx context.Context, instanceID string) (*InstanceStatus, error)
	ListRunning(ctx context.Context) ([]InstanceStatus, error)
}
