package domain

import (
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignRequest is the accepted, normalized order for one fulfillment
// instance. It is written once when the instance starts and never changed.
type CampaignRequest struct {
	Advertiser  AdvertiserInfo  `json:"advertiser"`
	DateRange   DateRange       `json:"dateRange"`
	Budget      Budget          `json:"budget"`
	Creative    string          `json:"creative"`
	LandingPage string          `json:"landingPage"`
	Targeting   []TargetingRule `json:"targeting"`
}

// AdvertiserInfo identifies the advertiser the campaign is bought for.
type AdvertiserInfo struct {
	Tenant     uuid.UUID `json:"tenant"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name"`
	Domain     string    `json:"domain"`
	Category   string    `json:"category"`
}

// MaxMonths bounds the length of a request's date range.
const MaxMonths = 120

// DateRange is the flight window of a request. After normalization
// End == AddMonths(Start, Months) always holds; End is exclusive.
type DateRange struct {
	Start  civil.Date `json:"start"`
	End    civil.Date `json:"end"`
	Months int        `json:"months"`
}

// Budget carries delivery volume and prices per thousand impressions.
type Budget struct {
	MonthlyImpressions int64           `json:"monthlyImpressions"`
	CPMClient          decimal.Decimal `json:"cpmClient"`
	CPMTenant          decimal.Decimal `json:"cpmTenant"`
}
