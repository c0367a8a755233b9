package domain

import "github.com/google/uuid"

// AdvertiserRecord is the system-of-record row for a registered advertiser.
// It is unique per (PartitionKey, ExternalAdvertiserID).
type AdvertiserRecord struct {
	PartitionKey         uuid.UUID `json:"partitionKey"`
	RowKey               uuid.UUID `json:"rowKey"`
	ExternalOrgID        string    `json:"externalOrgId"`
	ExternalAdvertiserID string    `json:"externalAdvertiserId"`
	Name                 string    `json:"name"`
	Domain               string    `json:"domain"`
	Category             string    `json:"category"`
}
