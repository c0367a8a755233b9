package domain

import "github.com/google/uuid"

// CreativeRecord is a creative registered for an advertiser. PartitionKey is
// the advertiser's RowKey and RowKey is the md5 of the creative URL.
type CreativeRecord struct {
	PartitionKey       uuid.UUID `json:"partitionKey"`
	RowKey             string    `json:"rowKey"`
	ExternalCreativeID string    `json:"externalCreativeId"`
	LandingPage        string    `json:"landingPage"`
}
