package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// maxCASAttempts bounds how often a document write is retried after a
// version conflict before the conflict is returned to the caller.
const maxCASAttempts = 8

// flightFanOut caps concurrent flight lookups during one reconciliation.
const flightFanOut = 8

// Repositories groups the storage the engine depends on.
type Repositories struct {
	Documents   port.DocumentStore
	Advertisers port.AdvertiserRepository
	Creatives   port.CreativeRepository
	Campaigns   port.CampaignRepository
	Flights     port.FlightRepository
}

// Reconciler reads and writes instance documents. Every Read rebuilds the
// existing sub-state from the system-of-record and writes it through, so
// the document never drifts from the tables even when a handler failed
// halfway.
type Reconciler struct {
	repos   Repositories
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewReconciler returns a Reconciler over repos. A nil logger falls back to
// slog.Default.
func NewReconciler(repos Repositories, m *metrics.Metrics, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{repos: repos, metrics: m, logger: logger}
}

// Read loads the instance document, replaces its existing section with a
// fresh view of the system-of-record, persists the result and returns it.
// Only the existing section is ever changed by a read.
func (r *Reconciler) Read(ctx context.Context, instanceID string) (domain.InstanceState, error) {
	for attempt := 1; ; attempt++ {
		doc, err := r.repos.Documents.Load(ctx, instanceID)
		if err != nil {
			return domain.InstanceState{}, fmt.Errorf("load document %s: %w", instanceID, err)
		}

		state := doc.State
		state.Existing = r.rebuild(ctx, instanceID, state)
		state.Normalize()

		_, err = r.repos.Documents.Save(ctx, instanceID, state, doc.Version)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, port.ErrVersionConflict) || attempt >= maxCASAttempts {
			return domain.InstanceState{}, fmt.Errorf("persist document %s: %w", instanceID, err)
		}
		r.metrics.CASRetry()
	}
}

// Write stores s as the instance document. The lease field is left as
// stored because only the lease coordinator may change it.
func (r *Reconciler) Write(ctx context.Context, instanceID string, s domain.InstanceState) error {
	return r.mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		lease := stored.Lease
		*stored = s
		stored.Lease = lease
		return nil
	})
}

// Mutate applies fn to the freshest stored document, saves it with a
// compare-and-swap on the document version and returns the reconciled
// result. fn may run more than once and must only depend on its argument.
func (r *Reconciler) Mutate(ctx context.Context, instanceID string, fn func(*domain.InstanceState) error) (domain.InstanceState, error) {
	if err := r.mutate(ctx, instanceID, fn); err != nil {
		return domain.InstanceState{}, err
	}
	s, err := r.Read(ctx, instanceID)
	if errors.Is(err, port.ErrVersionConflict) {
		// The mutation is stored; only the write-through lost the race.
		return r.view(ctx, instanceID)
	}
	return s, err
}

// view returns the reconciled document without persisting it.
func (r *Reconciler) view(ctx context.Context, instanceID string) (domain.InstanceState, error) {
	doc, err := r.repos.Documents.Load(ctx, instanceID)
	if err != nil {
		return domain.InstanceState{}, fmt.Errorf("load document %s: %w", instanceID, err)
	}
	state := doc.State
	state.Existing = r.rebuild(ctx, instanceID, state)
	state.Normalize()
	return state, nil
}

func (r *Reconciler) mutate(ctx context.Context, instanceID string, fn func(*domain.InstanceState) error) error {
	for attempt := 1; ; attempt++ {
		doc, err := r.repos.Documents.Load(ctx, instanceID)
		if err != nil {
			return fmt.Errorf("load document %s: %w", instanceID, err)
		}
		state := doc.State
		if err = fn(&state); err != nil {
			return err
		}
		state.Normalize()

		_, err = r.repos.Documents.Save(ctx, instanceID, state, doc.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, port.ErrVersionConflict) || attempt >= maxCASAttempts {
			return fmt.Errorf("persist document %s: %w", instanceID, err)
		}
		r.metrics.CASRetry()
	}
}

// rebuild queries the system-of-record for everything registered for the
// instance. Missing records are normal; lookup failures are logged and
// leave the affected slot empty.
func (r *Reconciler) rebuild(ctx context.Context, instanceID string, s domain.InstanceState) domain.Existing {
	ex := domain.Existing{
		Campaigns: []domain.CampaignRecord{},
		Flights:   []domain.FlightRecord{},
	}
	if s.Request == nil {
		return ex
	}
	logger := r.logger.With(slog.String("instance_id", instanceID))

	adv := s.Request.Advertiser
	advertiser, err := r.repos.Advertisers.FindAdvertiser(ctx, adv.Tenant, adv.ExternalID)
	if err != nil {
		logger.Warn("advertiser lookup failed", slog.Any("error", err))
		return ex
	}
	if advertiser == nil {
		return ex
	}
	ex.Advertiser = advertiser

	if s.MD5 != "" {
		creative, err := r.repos.Creatives.FindCreative(ctx, advertiser.RowKey, s.MD5)
		if err != nil {
			logger.Warn("creative lookup failed", slog.Any("error", err))
		}
		ex.Creative = creative
	}

	campaigns, err := r.repos.Campaigns.ListCampaigns(ctx, advertiser.RowKey, instanceID)
	if err != nil {
		logger.Warn("campaign lookup failed", slog.Any("error", err))
		return ex
	}
	if campaigns != nil {
		ex.Campaigns = campaigns
	}

	perCampaign := make([][]domain.FlightRecord, len(campaigns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(flightFanOut)
	for i, c := range campaigns {
		i, c := i, c
		g.Go(func() error {
			flights, err := r.repos.Flights.ListFlights(gctx, c.ExternalCampaignID)
			if err != nil {
				logger.Warn("flight lookup failed",
					slog.String("campaign_id", c.ExternalCampaignID),
					slog.Any("error", err),
				)
				return nil
			}
			perCampaign[i] = flights
			return nil
		})
	}
	_ = g.Wait()

	for _, flights := range perCampaign {
		ex.Flights = append(ex.Flights, flights...)
	}
	return ex
}
