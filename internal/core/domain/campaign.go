package domain

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignRecord covers one yearly slice [Start, End) of a request's date
// range. PartitionKey is the advertiser's RowKey.
type CampaignRecord struct {
	PartitionKey       uuid.UUID       `json:"partitionKey"`
	RowKey             uuid.UUID       `json:"rowKey"`
	InstanceID         string          `json:"instanceId"`
	ExternalCampaignID string          `json:"externalCampaignId"`
	CPMClient          decimal.Decimal `json:"cpmClient"`
	CPMTenant          decimal.Decimal `json:"cpmTenant"`
	MonthlyImpressions int64           `json:"monthlyImpressions"`
	Start              civil.Date      `json:"start"`
	End                civil.Date      `json:"end"`
}

// Covers reports whether d falls inside the campaign's span.
func (c CampaignRecord) Covers(d civil.Date) bool {
	return !d.Before(c.Start) && d.Before(c.End)
}
