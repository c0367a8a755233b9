package domain

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

// FlightRecord covers one monthly slice [Start, End) of a campaign.
// PartitionKey is the owning campaign's ExternalCampaignID.
type FlightRecord struct {
	PartitionKey     string     `json:"partitionKey"`
	RowKey           uuid.UUID  `json:"rowKey"`
	ExternalFlightID string     `json:"externalFlightId"`
	Start            civil.Date `json:"start"`
	End              civil.Date `json:"end"`
}
