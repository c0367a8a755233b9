package domain

import "cloud.google.com/go/civil"

// AdvertiserEvent reports that the advertiser was registered externally.
// ExternalAdvertiserID is optional and must match the request when given.
type AdvertiserEvent struct {
	ExternalOrgID        string `json:"externalOrgId" validate:"required"`
	ExternalAdvertiserID string `json:"externalAdvertiserId,omitempty"`
}

// CreativeEvent reports that the creative was registered externally.
type CreativeEvent struct {
	ExternalCreativeID string `json:"externalCreativeId" validate:"required"`
}

// CampaignEvent reports that the next yearly campaign was registered.
type CampaignEvent struct {
	ExternalCampaignID string `json:"externalCampaignId" validate:"required"`
}

// FlightEvent reports a monthly flight registered under a campaign. When
// Start is nil the first uncovered month inside the campaign is used.
type FlightEvent struct {
	ExternalCampaignID string      `json:"externalCampaignId" validate:"required"`
	ExternalFlightID   string      `json:"externalFlightId" validate:"required"`
	Start              *civil.Date `json:"start,omitempty"`
}
