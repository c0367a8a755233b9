package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"campaign-fulfillment/internal/adapter/usecase"
	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"github.com/google/uuid"
)

// Host runs fulfillment instances in-process. Calls for one instance are
// serialized; different instances proceed in parallel. Instance metadata
// lives in the registry so any host process sharing it sees the same
// instances.
type Host struct {
	engine   port.FulfillmentUseCase
	registry port.InstanceRegistry
	clock    port.Clock
	newID    func() string
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*instanceLock
}

type instanceLock struct {
	sync.Mutex
	refs int
}

var _ port.Runtime = (*Host)(nil)

// Option customizes a Host.
type Option func(*Host)

// WithClock overrides the clock used for status timestamps.
func WithClock(c port.Clock) Option {
	return func(h *Host) { h.clock = c }
}

// WithIDGenerator overrides how instance ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(h *Host) { h.newID = fn }
}

func New(engine port.FulfillmentUseCase, registry port.InstanceRegistry, logger *slog.Logger, opts ...Option) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		engine:   engine,
		registry: registry,
		clock:    port.SystemClock{},
		newID:    uuid.NewString,
		logger:   logger.With(slog.String("module", "host")),
		locks:    make(map[string]*instanceLock),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// StartInstance registers a new instance and runs it until it waits for
// its first event. A failed instance is not an error for the caller; its
// status says Failed.
func (h *Host) StartInstance(ctx context.Context, workflow, instanceID string, req domain.CampaignRequest) (string, error) {
	if workflow != port.WorkflowFulfillment {
		return "", fmt.Errorf("%w: unknown workflow %q", port.ErrValidation, workflow)
	}
	if instanceID == "" {
		instanceID = h.newID()
	}

	unlock := h.lock(instanceID)
	defer unlock()

	known, err := h.registry.GetInstance(ctx, instanceID)
	if err != nil {
		return "", fmt.Errorf("get instance %s: %w", instanceID, err)
	}
	if known != nil {
		return "", fmt.Errorf("instance %s: %w", instanceID, port.ErrDuplicateRecord)
	}

	now := h.clock.Now()
	err = h.registry.CreateInstance(ctx, port.InstanceStatus{
		InstanceID:      instanceID,
		Name:            workflow,
		RuntimeStatus:   port.RuntimeRunning,
		CreatedTime:     now,
		LastUpdatedTime: now,
	})
	if err != nil {
		return "", fmt.Errorf("create instance %s: %w", instanceID, err)
	}

	s, err := h.engine.Start(ctx, instanceID, req)
	return instanceID, h.record(ctx, instanceID, s, err)
}

// RaiseEvent delivers event to a running instance.
func (h *Host) RaiseEvent(ctx context.Context, instanceID string, event domain.Operation, payload json.RawMessage) error {
	unlock := h.lock(instanceID)
	defer unlock()

	st, err := h.registry.GetInstance(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("get instance %s: %w", instanceID, err)
	}
	if st == nil {
		return fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	if st.RuntimeStatus != port.RuntimeRunning {
		return fmt.Errorf("instance %s is %s: %w", instanceID, st.RuntimeStatus, port.ErrInstanceTerminal)
	}

	s, err := h.engine.Resume(ctx, instanceID, event, payload)
	return h.record(ctx, instanceID, s, err)
}

func (h *Host) RunningInstances(ctx context.Context) ([]port.InstanceStatus, error) {
	return h.registry.ListRunning(ctx)
}

// Status returns the instance metadata, or nil for an unknown instance.
func (h *Host) Status(ctx context.Context, instanceID string) (*port.InstanceStatus, error) {
	return h.registry.GetInstance(ctx, instanceID)
}

// record mirrors the outcome of one engine call into the registry. Faults
// are absorbed into the Failed status; rejections are returned.
func (h *Host) record(ctx context.Context, instanceID string, s domain.InstanceState, runErr error) error {
	if runErr != nil && !usecase.IsFault(runErr) {
		return runErr
	}

	status := port.RuntimeRunning
	switch {
	case runErr != nil, s.Stage == domain.StageFailed:
		status = port.RuntimeFailed
	case s.Stage == domain.StageComplete:
		status = port.RuntimeCompleted
	}

	if err := h.registry.UpdateInstance(ctx, instanceID, status, string(s.Stage), h.clock.Now()); err != nil {
		return errors.Join(fmt.Errorf("update instance %s: %w", instanceID, err), runErr)
	}
	if status != port.RuntimeRunning {
		h.logger.Info("instance finished",
			slog.String("instance_id", instanceID),
			slog.String("status", string(status)),
		)
	}
	return nil
}

// lock serializes work on one instance and returns the release func.
func (h *Host) lock(instanceID string) func() {
	h.mu.Lock()
	l, ok := h.locks[instanceID]
	if !ok {
		l = &instanceLock{}
		h.locks[instanceID] = l
	}
	l.refs++
	h.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, instanceID)
		}
		h.mu.Unlock()
	}
}
