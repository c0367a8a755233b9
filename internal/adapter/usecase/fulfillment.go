package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/metrics"
)

// Engine is the fulfillment state machine. An instance waits for its
// advertiser, then its creative, then drives campaign and flight
// registration until no gaps remain. Stage and awaited event are persisted
// in the instance document, so any host can resume it.
type Engine struct {
	store    *Reconciler
	ops      *Handlers
	notifier port.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

var _ port.FulfillmentUseCase = (*Engine)(nil)

func NewEngine(store *Reconciler, ops *Handlers, notifier port.Notifier, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		ops:      ops,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Start stores req as the request of a new instance and advances it.
func (e *Engine) Start(ctx context.Context, instanceID string, req domain.CampaignRequest) (domain.InstanceState, error) {
	err := e.store.mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		if stored.Request != nil {
			return fmt.Errorf("instance %s: %w", instanceID, port.ErrDuplicateRecord)
		}
		*stored = domain.InstanceState{
			Request: &req,
			Lease:   stored.Lease,
			Stage:   domain.StageAwaitingAdvertiser,
		}
		return nil
	})
	if err != nil {
		return domain.InstanceState{}, fmt.Errorf("start instance %s: %w", instanceID, err)
	}
	e.metrics.Transition(string(domain.StageAwaitingAdvertiser))
	e.logger.Info("instance started",
		slog.String("instance_id", instanceID),
		slog.String("tenant", req.Advertiser.Tenant.String()),
		slog.Int("months", req.DateRange.Months),
	)
	return e.advance(ctx, instanceID)
}

// Resume applies event to the instance and advances it. Events the
// instance is not waiting for and malformed payloads are rejected without
// touching the instance; every other failure fails the instance.
func (e *Engine) Resume(ctx context.Context, instanceID string, event domain.Operation, payload json.RawMessage) (domain.InstanceState, error) {
	s, err := e.State(ctx, instanceID)
	if err != nil {
		return s, err
	}
	if s.Stage.Terminal() {
		return s, fmt.Errorf("instance %s is %s: %w", instanceID, s.Stage, port.ErrInstanceTerminal)
	}
	if !event.Waitable() || event != s.Awaiting {
		e.metrics.Event(string(event), "unexpected")
		return s, fmt.Errorf("instance %s awaits %q, got %q: %w", instanceID, s.Awaiting, event, port.ErrUnexpectedEvent)
	}

	next, err := e.ops.Apply(ctx, instanceID, s, event, payload)
	if err != nil {
		if errors.Is(err, port.ErrValidation) {
			e.metrics.Event(string(event), "rejected")
			return s, err
		}
		e.metrics.Event(string(event), "fault")
		return e.fail(ctx, instanceID, s.Stage, err)
	}
	e.metrics.Event(string(event), "applied")
	e.logger.Debug("event applied",
		slog.String("instance_id", instanceID),
		slog.String("event", string(event)),
		slog.Int("campaigns", len(next.Existing.Campaigns)),
		slog.Int("flights", len(next.Existing.Flights)),
	)
	return e.advance(ctx, instanceID)
}

// State returns the reconciled state of a known instance.
func (e *Engine) State(ctx context.Context, instanceID string) (domain.InstanceState, error) {
	s, err := e.store.Read(ctx, instanceID)
	if err != nil {
		return s, err
	}
	if s.Request == nil {
		return s, fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	return s, nil
}

// advance moves the instance through every stage whose condition already
// holds and parks it on the first one that needs an external event.
func (e *Engine) advance(ctx context.Context, instanceID string) (domain.InstanceState, error) {
	s, err := e.store.Read(ctx, instanceID)
	if err != nil {
		return e.fail(ctx, instanceID, "", err)
	}

	stage := s.Stage
	for {
		var wait domain.Operation
		switch stage {
		case domain.StageAwaitingAdvertiser:
			if s.Existing.Advertiser == nil {
				wait = domain.OpAdvertiser
			}
		case domain.StageAwaitingCreative:
			if s.MD5 == "" {
				if s, err = e.ops.CreativeMD5(ctx, instanceID, s); err != nil {
					return e.fail(ctx, instanceID, stage, err)
				}
			}
			if s.Existing.Creative == nil {
				wait = domain.OpCreative
			}
		case domain.StageAwaitingCampaigns:
			if len(domain.MissingCampaignPeriods(s)) > 0 {
				wait = domain.OpCampaign
			}
		case domain.StageAwaitingFlights:
			if len(domain.MissingFlightPeriods(s)) > 0 {
				wait = domain.OpFlight
			}
		case domain.StageComplete:
			return e.settle(ctx, instanceID, stage, "")
		default:
			return e.fail(ctx, instanceID, stage, fmt.Errorf("cannot advance from stage %q", stage))
		}

		if wait != "" {
			return e.settle(ctx, instanceID, stage, wait)
		}
		stage = nextStage(stage)
		e.metrics.Transition(string(stage))
		e.logger.Info("instance advanced",
			slog.String("instance_id", instanceID),
			slog.String("stage", string(stage)),
		)
	}
}

// settle persists the stage the instance rests in and what it waits for.
func (e *Engine) settle(ctx context.Context, instanceID string, stage domain.Stage, wait domain.Operation) (domain.InstanceState, error) {
	s, err := e.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		stored.Stage = stage
		stored.Awaiting = wait
		return nil
	})
	if err != nil {
		return e.fail(ctx, instanceID, stage, err)
	}
	if stage == domain.StageComplete {
		e.logger.Info("instance complete",
			slog.String("instance_id", instanceID),
			slog.Int("campaigns", len(s.Existing.Campaigns)),
			slog.Int("flights", len(s.Existing.Flights)),
		)
	}
	return s, nil
}

// fail records cause in the instance's error log, marks it Failed, notifies
// operators and returns a FulfillmentFault for the host.
func (e *Engine) fail(ctx context.Context, instanceID string, stage domain.Stage, cause error) (domain.InstanceState, error) {
	fault := &FulfillmentFault{InstanceID: instanceID, Stage: stage, Err: cause}
	logger := e.logger.With(slog.String("instance_id", instanceID), slog.String("stage", string(stage)))
	logger.Error("instance failed", slog.Any("error", cause))
	e.metrics.Fault(string(stage))

	entry := domain.ErrorEntry{
		Type:    errorType(cause),
		Message: cause.Error(),
		Trace:   string(debug.Stack()),
	}
	s, err := e.ops.Error(ctx, instanceID, entry)
	if err != nil {
		logger.Error("record error entry", slog.Any("error", err))
	}

	failed, err := e.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		stored.Stage = domain.StageFailed
		stored.Awaiting = ""
		return nil
	})
	if err != nil {
		logger.Error("persist failed stage", slog.Any("error", err))
	} else {
		s = failed
	}
	e.metrics.Transition(string(domain.StageFailed))

	body, err := json.Marshal(s)
	if err != nil {
		logger.Error("encode state for notification", slog.Any("error", err))
	}
	subject := fmt.Sprintf("campaign fulfillment %s failed", instanceID)
	if err = e.notifier.Notify(ctx, subject, body); err != nil {
		logger.Error("notify failure", slog.Any("error", err))
	}
	return s, fault
}

func nextStage(s domain.Stage) domain.Stage {
	switch s {
	case domain.StageAwaitingAdvertiser:
		return domain.StageAwaitingCreative
	case domain.StageAwaitingCreative:
		return domain.StageAwaitingCampaigns
	case domain.StageAwaitingCampaigns:
		return domain.StageAwaitingFlights
	default:
		return domain.StageComplete
	}
}
