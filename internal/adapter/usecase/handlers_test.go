package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvertiserRegisteredTwiceKeepsNewest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.start(t, "i1", 3)

	s, err := f.ops.Advertiser(ctx, "i1", s, domain.AdvertiserEvent{ExternalOrgID: "org-1"})
	require.NoError(t, err)
	require.NotNil(t, s.Existing.Advertiser)
	first := s.Existing.Advertiser.RowKey

	s, err = f.ops.Advertiser(ctx, "i1", s, domain.AdvertiserEvent{ExternalOrgID: "org-2", ExternalAdvertiserID: "adv-42"})
	require.NoError(t, err)

	records := f.store.AdvertiserRecords()
	require.Len(t, records, 1)
	assert.NotEqual(t, first, records[0].RowKey)
	assert.Equal(t, records[0], *s.Existing.Advertiser)
	assert.Equal(t, "org-2", s.Existing.Advertiser.ExternalOrgID)
	assert.Equal(t, tenant, s.Existing.Advertiser.PartitionKey)
}

func TestAdvertiserRejectsForeignExternalID(t *testing.T) {
	f := newFixture(t, nil)
	s := f.start(t, "i1", 3)

	_, err := f.ops.Advertiser(context.Background(), "i1", s, domain.AdvertiserEvent{ExternalOrgID: "org", ExternalAdvertiserID: "other"})
	assert.ErrorIs(t, err, port.ErrValidation)
	assert.Empty(t, f.store.AdvertiserRecords())
}

func TestCreativeKnownElsewhereIsNotDuplicated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.start(t, "i1", 3)
	s := f.resume(t, "i1", domain.OpAdvertiser, domain.AdvertiserEvent{ExternalOrgID: "org"})
	require.Equal(t, creativeHash, s.MD5)

	require.NoError(t, f.store.CreateCreative(ctx, domain.CreativeRecord{
		PartitionKey:       tenant,
		RowKey:             "another-hash",
		ExternalCreativeID: "cr-1",
	}))

	s, err := f.ops.Creative(ctx, "i1", s, domain.CreativeEvent{ExternalCreativeID: "cr-1"})
	require.NoError(t, err)
	assert.Nil(t, s.Existing.Creative)

	s, err = f.ops.Creative(ctx, "i1", s, domain.CreativeEvent{ExternalCreativeID: "cr-2"})
	require.NoError(t, err)
	require.NotNil(t, s.Existing.Creative)
	assert.Equal(t, creativeHash, s.Existing.Creative.RowKey)
	assert.Equal(t, "https://acme.example.com/", s.Existing.Creative.LandingPage)
}

func TestCampaignSlicesFollowGapsAndClip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.startCampaigning(t, "i1", 14)

	s, err := f.ops.Campaign(ctx, "i1", s, domain.CampaignEvent{ExternalCampaignID: "c1"})
	require.NoError(t, err)
	s, err = f.ops.Campaign(ctx, "i1", s, domain.CampaignEvent{ExternalCampaignID: "c1"})
	require.NoError(t, err)
	require.Len(t, s.Existing.Campaigns, 1, "repeating an external id is a no-op")

	s, err = f.ops.Campaign(ctx, "i1", s, domain.CampaignEvent{ExternalCampaignID: "c2"})
	require.NoError(t, err)
	require.Len(t, s.Existing.Campaigns, 2)

	c1, c2 := s.Existing.Campaigns[0], s.Existing.Campaigns[1]
	assert.Equal(t, date(2024, time.January, 1), c1.Start)
	assert.Equal(t, date(2025, time.January, 1), c1.End)
	assert.Equal(t, date(2025, time.January, 1), c2.Start)
	assert.Equal(t, date(2025, time.March, 1), c2.End)
	assert.Equal(t, "i1", c2.InstanceID)
	assert.True(t, c2.CPMClient.Equal(testRequest(14).Budget.CPMClient))
	assert.Empty(t, domain.MissingCampaignPeriods(s))
}

func TestFlightReplacesSameSlice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.startCampaigning(t, "i1", 3)
	s := f.resume(t, "i1", domain.OpCampaign, domain.CampaignEvent{ExternalCampaignID: "c1"})
	require.Equal(t, domain.StageAwaitingFlights, s.Stage)

	feb := date(2024, time.February, 1)
	s, err := f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "c1", ExternalFlightID: "f1", Start: &feb})
	require.NoError(t, err)
	s, err = f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "c1", ExternalFlightID: "f2", Start: &feb})
	require.NoError(t, err)

	require.Len(t, s.Existing.Flights, 1)
	assert.Equal(t, "f2", s.Existing.Flights[0].ExternalFlightID)
	assert.Equal(t, date(2024, time.March, 1), s.Existing.Flights[0].End)

	s, err = f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "c1", ExternalFlightID: "f3"})
	require.NoError(t, err)
	require.Len(t, s.Existing.Flights, 2)
	assert.Equal(t, date(2024, time.January, 1), s.Existing.Flights[0].Start, "defaults to the first uncovered month")
}

func TestFlightRejections(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.startCampaigning(t, "i1", 3)
	s := f.resume(t, "i1", domain.OpCampaign, domain.CampaignEvent{ExternalCampaignID: "c1"})

	_, err := f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "nope", ExternalFlightID: "f"})
	assert.ErrorIs(t, err, port.ErrValidation)

	mid := date(2024, time.February, 15)
	_, err = f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "c1", ExternalFlightID: "f", Start: &mid})
	assert.ErrorIs(t, err, port.ErrValidation)

	outside := date(2024, time.April, 1)
	_, err = f.ops.Flight(ctx, "i1", s, domain.FlightEvent{ExternalCampaignID: "c1", ExternalFlightID: "f", Start: &outside})
	assert.ErrorIs(t, err, port.ErrValidation)
}

func TestApplyDispatchesAndValidates(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	s := f.start(t, "i1", 3)

	_, err := f.ops.Apply(ctx, "i1", s, domain.OpAdvertiser, json.RawMessage(`{}`))
	assert.ErrorIs(t, err, port.ErrValidation)

	s, err = f.ops.Apply(ctx, "i1", s, domain.OpError, json.RawMessage(`{"type":"Manual","message":"operator note","trace":""}`))
	require.NoError(t, err)
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "Manual", s.Errors[0].Type)

	s, err = f.ops.Apply(ctx, "i1", s, domain.OpLease, json.RawMessage(`{"provider":"p","accessId":"a"}`))
	require.NoError(t, err)
	require.NotNil(t, s.Lease)

	s, err = f.ops.Apply(ctx, "i1", s, domain.OpBreak, json.RawMessage(`{"provider":"p","accessId":"a"}`))
	require.NoError(t, err)
	assert.Nil(t, s.Lease)

	_, err = f.ops.Apply(ctx, "i1", s, domain.Operation("bogus"), nil)
	assert.ErrorIs(t, err, port.ErrValidation)
}
