package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/core/validate"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// LeaseTTL is how long a lease stays valid after it was taken or renewed,
// unless overridden with WithLeaseTTL.
const LeaseTTL = 5 * time.Minute

var errNoAdvertiser = errors.New("advertiser is not registered")

// Handlers applies named operations to an instance. Every handler mutates
// the system-of-record or the document and then returns a freshly
// reconciled state. Registration handlers are safe to repeat.
type Handlers struct {
	store     *Reconciler
	repos     Repositories
	inspector port.CreativeInspector
	clock     port.Clock
	leaseTTL  time.Duration
	newKey    func() uuid.UUID
	logger    *slog.Logger
}

// HandlersOption customizes Handlers.
type HandlersOption func(*Handlers)

// WithClock overrides the wall clock used for lease expiry.
func WithClock(c port.Clock) HandlersOption {
	return func(h *Handlers) { h.clock = c }
}

// WithLeaseTTL overrides LeaseTTL. Non-positive values are ignored.
func WithLeaseTTL(ttl time.Duration) HandlersOption {
	return func(h *Handlers) {
		if ttl > 0 {
			h.leaseTTL = ttl
		}
	}
}

// WithKeyGenerator overrides how row keys are generated.
func WithKeyGenerator(fn func() uuid.UUID) HandlersOption {
	return func(h *Handlers) { h.newKey = fn }
}

func NewHandlers(store *Reconciler, inspector port.CreativeInspector, logger *slog.Logger, opts ...HandlersOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		store:     store,
		repos:     store.repos,
		inspector: inspector,
		clock:     port.SystemClock{},
		leaseTTL:  LeaseTTL,
		newKey:    uuid.New,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Apply parses payload for op and runs the matching handler against the
// reconciled state s. Malformed payloads fail with port.ErrValidation.
func (h *Handlers) Apply(ctx context.Context, instanceID string, s domain.InstanceState, op domain.Operation, payload json.RawMessage) (domain.InstanceState, error) {
	switch op {
	case domain.OpAdvertiser:
		ev, err := validate.AdvertiserEvent(payload)
		if err != nil {
			return s, err
		}
		return h.Advertiser(ctx, instanceID, s, ev)
	case domain.OpCreativeMD5:
		return h.CreativeMD5(ctx, instanceID, s)
	case domain.OpCreative:
		ev, err := validate.CreativeEvent(payload)
		if err != nil {
			return s, err
		}
		return h.Creative(ctx, instanceID, s, ev)
	case domain.OpCampaign:
		ev, err := validate.CampaignEvent(payload)
		if err != nil {
			return s, err
		}
		return h.Campaign(ctx, instanceID, s, ev)
	case domain.OpFlight:
		ev, err := validate.FlightEvent(payload)
		if err != nil {
			return s, err
		}
		return h.Flight(ctx, instanceID, s, ev)
	case domain.OpLease:
		c, err := validate.Claimant(payload)
		if err != nil {
			return s, err
		}
		return h.Lease(ctx, instanceID, c, false)
	case domain.OpBreak:
		c, err := validate.Claimant(payload)
		if err != nil {
			return s, err
		}
		return h.Break(ctx, instanceID, c)
	case domain.OpError:
		entry, err := validate.ErrorEntry(payload)
		if err != nil {
			return s, err
		}
		return h.Error(ctx, instanceID, entry)
	default:
		return s, fmt.Errorf("%w: unknown operation %q", port.ErrValidation, op)
	}
}

// Advertiser replaces the advertiser record of the request: any record for
// (tenant, externalAdvertiserId) is deleted and a fresh one created.
func (h *Handlers) Advertiser(ctx context.Context, instanceID string, s domain.InstanceState, ev domain.AdvertiserEvent) (domain.InstanceState, error) {
	if s.Request == nil {
		return s, fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	info := s.Request.Advertiser
	if ev.ExternalAdvertiserID != "" && ev.ExternalAdvertiserID != info.ExternalID {
		return s, fmt.Errorf("%w: externalAdvertiserId %q does not match request %q",
			port.ErrValidation, ev.ExternalAdvertiserID, info.ExternalID)
	}

	if err := h.repos.Advertisers.DeleteAdvertiser(ctx, info.Tenant, info.ExternalID); err != nil {
		return s, fmt.Errorf("delete advertiser: %w", err)
	}
	rec := domain.AdvertiserRecord{
		PartitionKey:         info.Tenant,
		RowKey:               h.newKey(),
		ExternalOrgID:        ev.ExternalOrgID,
		ExternalAdvertiserID: info.ExternalID,
		Name:                 info.Name,
		Domain:               info.Domain,
		Category:             info.Category,
	}
	if err := h.repos.Advertisers.CreateAdvertiser(ctx, rec); err != nil {
		return s, fmt.Errorf("create advertiser: %w", err)
	}
	h.logger.Info("advertiser registered",
		slog.String("instance_id", instanceID),
		slog.String("advertiser_id", rec.RowKey.String()),
	)
	return h.store.Read(ctx, instanceID)
}

// CreativeMD5 validates the request's creative URL, stores its hash and
// reconciles, which looks up an existing creative under the new hash.
func (h *Handlers) CreativeMD5(ctx context.Context, instanceID string, s domain.InstanceState) (domain.InstanceState, error) {
	if s.Request == nil {
		return s, fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	sum, err := h.inspector.Fingerprint(ctx, s.Request.Creative)
	if err != nil {
		return s, fmt.Errorf("fingerprint creative: %w", err)
	}
	return h.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		stored.MD5 = sum
		return nil
	})
}

// Creative registers the creative unless its external id is already known
// anywhere in the table.
func (h *Handlers) Creative(ctx context.Context, instanceID string, s domain.InstanceState, ev domain.CreativeEvent) (domain.InstanceState, error) {
	adv := s.Existing.Advertiser
	if adv == nil {
		return s, errNoAdvertiser
	}
	if s.MD5 == "" {
		return s, errors.New("creative hash is not set")
	}

	known, err := h.repos.Creatives.FindCreativeByExternalID(ctx, ev.ExternalCreativeID)
	if err != nil {
		return s, fmt.Errorf("find creative: %w", err)
	}
	if known == nil {
		rec := domain.CreativeRecord{
			PartitionKey:       adv.RowKey,
			RowKey:             s.MD5,
			ExternalCreativeID: ev.ExternalCreativeID,
			LandingPage:        s.Request.LandingPage,
		}
		if err = h.repos.Creatives.CreateCreative(ctx, rec); err != nil {
			return s, fmt.Errorf("create creative: %w", err)
		}
	}
	return h.store.Read(ctx, instanceID)
}

// Campaign registers the next uncovered yearly slice under the given
// external campaign id. A campaign id that already exists is a no-op.
func (h *Handlers) Campaign(ctx context.Context, instanceID string, s domain.InstanceState, ev domain.CampaignEvent) (domain.InstanceState, error) {
	adv := s.Existing.Advertiser
	if adv == nil {
		return s, errNoAdvertiser
	}

	known, err := h.repos.Campaigns.FindCampaignByExternalID(ctx, ev.ExternalCampaignID)
	if err != nil {
		return s, fmt.Errorf("find campaign: %w", err)
	}
	gaps := domain.MissingCampaignPeriods(s)
	if known == nil && len(gaps) > 0 {
		req := s.Request
		start, end := domain.CampaignSlice(req.DateRange, gaps[0])
		rec := domain.CampaignRecord{
			PartitionKey:       adv.RowKey,
			RowKey:             h.newKey(),
			InstanceID:         instanceID,
			ExternalCampaignID: ev.ExternalCampaignID,
			CPMClient:          req.Budget.CPMClient,
			CPMTenant:          req.Budget.CPMTenant,
			MonthlyImpressions: req.Budget.MonthlyImpressions,
			Start:              start,
			End:                end,
		}
		if err = h.repos.Campaigns.CreateCampaign(ctx, rec); err != nil {
			return s, fmt.Errorf("create campaign: %w", err)
		}
		h.logger.Info("campaign registered",
			slog.String("instance_id", instanceID),
			slog.String("campaign_id", ev.ExternalCampaignID),
			slog.String("start", start.String()),
			slog.String("end", end.String()),
		)
	}
	return h.store.Read(ctx, instanceID)
}

// Flight registers one monthly slice of a campaign owned by the instance.
// A flight with the same campaign and slice is replaced.
func (h *Handlers) Flight(ctx context.Context, instanceID string, s domain.InstanceState, ev domain.FlightEvent) (domain.InstanceState, error) {
	if s.Request == nil {
		return s, fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	campaign := s.Existing.CampaignByExternalID(ev.ExternalCampaignID)
	if campaign == nil {
		return s, fmt.Errorf("%w: campaign %q does not belong to instance", port.ErrValidation, ev.ExternalCampaignID)
	}

	start, err := h.flightStart(s, *campaign, ev.Start)
	if err != nil {
		return s, err
	}
	start, end := domain.FlightSlice(s.Request.DateRange, *campaign, start)

	if err = h.repos.Flights.DeleteFlights(ctx, campaign.ExternalCampaignID, start, end); err != nil {
		return s, fmt.Errorf("delete flights: %w", err)
	}
	rec := domain.FlightRecord{
		PartitionKey:     campaign.ExternalCampaignID,
		RowKey:           h.newKey(),
		ExternalFlightID: ev.ExternalFlightID,
		Start:            start,
		End:              end,
	}
	if err = h.repos.Flights.CreateFlight(ctx, rec); err != nil {
		return s, fmt.Errorf("create flight: %w", err)
	}
	return h.store.Read(ctx, instanceID)
}

func (h *Handlers) flightStart(s domain.InstanceState, c domain.CampaignRecord, requested *civil.Date) (civil.Date, error) {
	if requested != nil {
		if !domain.IsFlightPeriod(s.Request.DateRange, *requested) || !c.Covers(*requested) {
			return civil.Date{}, fmt.Errorf("%w: %s is not a month of campaign %q", port.ErrValidation, requested, c.ExternalCampaignID)
		}
		return *requested, nil
	}
	for _, p := range domain.MissingFlightPeriods(s) {
		if c.Covers(p) {
			return p, nil
		}
	}
	return civil.Date{}, fmt.Errorf("%w: campaign %q has no uncovered month", port.ErrValidation, c.ExternalCampaignID)
}

// Lease takes or extends the lease for c. It fails with
// port.ErrLeaseConflict while another claimant holds an active lease; with
// onlyIfFree it also fails when c itself already holds one.
func (h *Handlers) Lease(ctx context.Context, instanceID string, c domain.Claimant, onlyIfFree bool) (domain.InstanceState, error) {
	return h.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		if stored.Request == nil {
			return fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
		}
		now := h.clock.Now()
		if stored.Lease.Active(now) && (onlyIfFree || !stored.Lease.HeldBy(c)) {
			return port.ErrLeaseConflict
		}
		stored.Lease = &domain.Lease{
			Expires:  now.Add(h.leaseTTL),
			Provider: c.Provider,
			AccessID: c.AccessID,
		}
		return nil
	})
}

// Break releases the lease held by c.
func (h *Handlers) Break(ctx context.Context, instanceID string, c domain.Claimant) (domain.InstanceState, error) {
	return h.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		if stored.Request == nil {
			return fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
		}
		if !stored.Lease.Active(h.clock.Now()) || !stored.Lease.HeldBy(c) {
			return port.ErrLeaseConflict
		}
		stored.Lease = nil
		return nil
	})
}

// Error appends entry to the instance's error log.
func (h *Handlers) Error(ctx context.Context, instanceID string, entry domain.ErrorEntry) (domain.InstanceState, error) {
	return h.store.Mutate(ctx, instanceID, func(stored *domain.InstanceState) error {
		stored.Errors = append(stored.Errors, entry)
		return nil
	})
}
