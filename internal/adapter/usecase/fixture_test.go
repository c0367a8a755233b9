package usecase

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"campaign-fulfillment/internal/adapter/memory"
	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port/mocks"

	"cloud.google.com/go/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const creativeHash = "9e107d9d372bb6826bd81d3542a419d6"

var tenant = uuid.MustParse("5b0e7c3e-2f4a-4d2c-9a61-3f0f6a1d2b11")

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *memory.Store
	repos    Repositories
	recon    *Reconciler
	ops      *Handlers
	engine   *Engine
	leases   *LeaseCoordinator
	clock    *fakeClock
	notifier *mocks.MockNotifier
}

// newFixture wires the engine over an in-memory store. override may swap
// individual repositories, e.g. for failure injection.
func newFixture(t *testing.T, override func(*Repositories)) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := Repositories{
		Documents:   store,
		Advertisers: store,
		Creatives:   store,
		Campaigns:   store,
		Flights:     store,
	}
	if override != nil {
		override(&repos)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	inspector := mocks.NewMockCreativeInspector(t)
	inspector.EXPECT().Fingerprint(mock.Anything, mock.Anything).Return(creativeHash, nil).Maybe()
	notifier := mocks.NewMockNotifier(t)

	recon := NewReconciler(repos, nil, logger)
	ops := NewHandlers(recon, inspector, logger, WithClock(clock))
	return &fixture{
		store:    store,
		repos:    repos,
		recon:    recon,
		ops:      ops,
		engine:   NewEngine(recon, ops, notifier, nil, logger),
		leases:   NewLeaseCoordinator(recon, ops, nil, logger),
		clock:    clock,
		notifier: notifier,
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func testRequest(months int) domain.CampaignRequest {
	return testRequestFrom(date(2024, time.January, 1), months)
}

func testRequestFrom(start civil.Date, months int) domain.CampaignRequest {
	return domain.CampaignRequest{
		Advertiser: domain.AdvertiserInfo{
			Tenant:     tenant,
			ExternalID: "adv-42",
			Name:       "Acme",
			Domain:     "acme.example.com",
			Category:   "retail",
		},
		DateRange: domain.DateRange{Start: start, End: domain.AddMonths(start, months), Months: months},
		Budget: domain.Budget{
			MonthlyImpressions: 100000,
			CPMClient:          decimal.RequireFromString("12.50"),
			CPMTenant:          decimal.RequireFromString("9.10"),
		},
		Creative:    "https://cdn.example.com/ad.mp4",
		LandingPage: "https://acme.example.com/",
		Targeting:   []domain.TargetingRule{{Type: "geo", Values: []string{"US"}}},
	}
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func (f *fixture) start(t *testing.T, id string, months int) domain.InstanceState {
	t.Helper()
	return f.startRequest(t, id, testRequest(months))
}

func (f *fixture) startRequest(t *testing.T, id string, req domain.CampaignRequest) domain.InstanceState {
	t.Helper()
	s, err := f.engine.Start(context.Background(), id, req)
	require.NoError(t, err)
	return s
}

func (f *fixture) resume(t *testing.T, id string, op domain.Operation, v any) domain.InstanceState {
	t.Helper()
	s, err := f.engine.Resume(context.Background(), id, op, payload(t, v))
	require.NoError(t, err)
	return s
}

// startCampaigning brings an instance to AwaitingCampaigns.
func (f *fixture) startCampaigning(t *testing.T, id string, months int) domain.InstanceState {
	t.Helper()
	f.start(t, id, months)
	f.resume(t, id, domain.OpAdvertiser, domain.AdvertiserEvent{ExternalOrgID: "org-1"})
	s := f.resume(t, id, domain.OpCreative, domain.CreativeEvent{ExternalCreativeID: "cr-" + id})
	require.Equal(t, domain.StageAwaitingCampaigns, s.Stage)
	return s
}
