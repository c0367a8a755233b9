package port

import (
	"context"

	"campaign-fulfillment/internal/core/domain"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// Lookups in this file return (nil, nil) when nothing matches. Not finding
// a record is a normal outcome during reconciliation, never an error.

// AdvertiserRepository stores advertiser records keyed by tenant and
// external advertiser id.
type AdvertiserRepository interface {
	FindAdvertiser(ctx context.Context, tenant uuid.UUID, externalAdvertiserID string) (*domain.AdvertiserRecord, error)
	CreateAdvertiser(ctx context.Context, rec domain.AdvertiserRecord) error
	// DeleteAdvertiser removes every record for the key. Deleting nothing is not an error.
	DeleteAdvertiser(ctx context.Context, tenant uuid.UUID, externalAdvertiserID string) error
}

// CreativeRepository stores creatives keyed by advertiser and creative hash.
type CreativeRepository interface {
	FindCreative(ctx context.Context, advertiser uuid.UUID, md5 string) (*domain.CreativeRecord, error)
	// FindCreativeByExternalID searches across all advertisers.
	FindCreativeByExternalID(ctx context.Context, externalCreativeID string) (*domain.CreativeRecord, error)
	CreateCreative(ctx context.Context, rec domain.CreativeRecord) error
}

// CampaignRepository stores the yearly campaigns of every instance.
type CampaignRepository interface {
	// ListCampaigns returns the campaigns of one instance ordered by start.
	ListCampaigns(ctx context.Context, advertiser uuid.UUID, instanceID string) ([]domain.CampaignRecord, error)
	FindCampaignByExternalID(ctx context.Context, externalCampaignID string) (*domain.CampaignRecord, error)
	CreateCampaign(ctx context.Context, rec domain.CampaignRecord) error
}

// FlightRepository stores the monthly flights of every campaign.
type FlightRepository interface {
	// ListFlights returns the flights of one campaign ordered by start.
	ListFlights(ctx context.Context, externalCampaignID string) ([]domain.FlightRecord, error)
	// DeleteFlights removes every flight matching the exact slice.
	DeleteFlights(ctx context.Context, externalCampaignID string, start, end civil.Date) error
	CreateFlight(ctx context.Context, rec domain.FlightRecord) error
}

// Document is a stored instance state together with its version. Version 0
// means the document does not exist yet.
type Document struct {
	State   domain.InstanceState
	Version int64
}

// DocumentStore persists one versioned document per instance.
type DocumentStore interface {
	Load(ctx context.Context, instanceID string) (Document, error)
	// Save writes state only if the stored version still equals version,
	// returning the new version or ErrVersionConflict.
	Save(ctx context.Context, instanceID string, state domain.InstanceState, version int64) (int64, error)
}
