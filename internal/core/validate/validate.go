// Package validate parses raw JSON documents into the typed request and
// event structures, rejecting anything malformed with port.ErrValidation.
package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind names a document shape accepted by Parse.
type Kind string

const (
	KindRequest    Kind = "request"
	KindAdvertiser Kind = Kind(domain.OpAdvertiser)
	KindCreative   Kind = Kind(domain.OpCreative)
	KindCampaign   Kind = Kind(domain.OpCampaign)
	KindFlight     Kind = Kind(domain.OpFlight)
	KindLease      Kind = Kind(domain.OpLease)
	KindError      Kind = Kind(domain.OpError)
)

var structs = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Parse validates raw as a document of the given kind and returns the
// normalized value: domain.CampaignRequest, one of the domain event types,
// domain.Claimant or domain.ErrorEntry.
func Parse(kind Kind, raw []byte) (any, error) {
	switch kind {
	case KindRequest:
		return Request(raw)
	case KindAdvertiser:
		return decodeStruct[domain.AdvertiserEvent](raw)
	case KindCreative:
		return decodeStruct[domain.CreativeEvent](raw)
	case KindCampaign:
		return decodeStruct[domain.CampaignEvent](raw)
	case KindFlight:
		return decodeStruct[domain.FlightEvent](raw)
	case KindLease:
		return decodeStruct[domain.Claimant](raw)
	case KindError:
		return decodeStruct[domain.ErrorEntry](raw)
	default:
		return nil, fmt.Errorf("%w: unknown document kind %q", port.ErrValidation, kind)
	}
}

// AdvertiserEvent parses an advertiser registration payload.
func AdvertiserEvent(raw []byte) (domain.AdvertiserEvent, error) {
	return decodeStruct[domain.AdvertiserEvent](raw)
}

// CreativeEvent parses a creative registration payload.
func CreativeEvent(raw []byte) (domain.CreativeEvent, error) {
	return decodeStruct[domain.CreativeEvent](raw)
}

// CampaignEvent parses a campaign registration payload.
func CampaignEvent(raw []byte) (domain.CampaignEvent, error) {
	return decodeStruct[domain.CampaignEvent](raw)
}

// FlightEvent parses a flight registration payload.
func FlightEvent(raw []byte) (domain.FlightEvent, error) {
	return decodeStruct[domain.FlightEvent](raw)
}

// Claimant parses the identity of a lease claimant.
func Claimant(raw []byte) (domain.Claimant, error) {
	return decodeStruct[domain.Claimant](raw)
}

// ErrorEntry parses a recorded fault.
func ErrorEntry(raw []byte) (domain.ErrorEntry, error) {
	return decodeStruct[domain.ErrorEntry](raw)
}

type requestInput struct {
	Advertiser struct {
		Tenant     string `json:"tenant" validate:"required,uuid"`
		ExternalID string `json:"externalId" validate:"required"`
		Name       string `json:"name" validate:"required"`
		Domain     string `json:"domain" validate:"required,fqdn"`
		Category   string `json:"category" validate:"required"`
	} `json:"advertiser"`
	DateRange struct {
		Start  *civil.Date `json:"start" validate:"required"`
		End    *civil.Date `json:"end"`
		Months *int        `json:"months"`
	} `json:"dateRange"`
	Budget struct {
		MonthlyImpressions int64            `json:"monthlyImpressions" validate:"gt=0"`
		CPMClient          *decimal.Decimal `json:"cpmClient" validate:"required"`
		CPMTenant          *decimal.Decimal `json:"cpmTenant" validate:"required"`
	} `json:"budget"`
	Creative    string                 `json:"creative" validate:"required,http_url"`
	LandingPage string                 `json:"landingPage" validate:"required,http_url"`
	Targeting   []domain.TargetingRule `json:"targeting" validate:"dive"`
}

// Request parses and normalizes a campaign request. The date range must be
// given as start+end or start+months; when all three are present they must
// agree.
func Request(raw []byte) (domain.CampaignRequest, error) {
	in, err := decodeStruct[requestInput](raw)
	if err != nil {
		return domain.CampaignRequest{}, err
	}

	dr, err := normalizeDateRange(*in.DateRange.Start, in.DateRange.End, in.DateRange.Months)
	if err != nil {
		return domain.CampaignRequest{}, err
	}
	if in.Budget.CPMClient.IsNegative() || in.Budget.CPMTenant.IsNegative() {
		return domain.CampaignRequest{}, fmt.Errorf("%w: budget cpm must not be negative", port.ErrValidation)
	}

	targeting := in.Targeting
	if targeting == nil {
		targeting = []domain.TargetingRule{}
	}
	return domain.CampaignRequest{
		Advertiser: domain.AdvertiserInfo{
			Tenant:     uuid.MustParse(in.Advertiser.Tenant),
			ExternalID: in.Advertiser.ExternalID,
			Name:       in.Advertiser.Name,
			Domain:     strings.ToLower(in.Advertiser.Domain),
			Category:   in.Advertiser.Category,
		},
		DateRange: dr,
		Budget: domain.Budget{
			MonthlyImpressions: in.Budget.MonthlyImpressions,
			CPMClient:          *in.Budget.CPMClient,
			CPMTenant:          *in.Budget.CPMTenant,
		},
		Creative:    in.Creative,
		LandingPage: in.LandingPage,
		Targeting:   targeting,
	}, nil
}

func normalizeDateRange(start civil.Date, end *civil.Date, months *int) (domain.DateRange, error) {
	if !start.IsValid() {
		return domain.DateRange{}, fmt.Errorf("%w: dateRange.start is not a valid date", port.ErrValidation)
	}
	if months != nil && (*months < 1 || *months > domain.MaxMonths) {
		return domain.DateRange{}, fmt.Errorf("%w: dateRange.months must be between 1 and %d", port.ErrValidation, domain.MaxMonths)
	}

	var dr domain.DateRange
	switch {
	case end == nil && months == nil:
		return domain.DateRange{}, fmt.Errorf("%w: dateRange needs end or months", port.ErrValidation)
	case end != nil && months == nil:
		if !end.IsValid() || !start.Before(*end) {
			return domain.DateRange{}, fmt.Errorf("%w: dateRange.end must be after start", port.ErrValidation)
		}
		n, exact := domain.MonthsBetween(start, *end)
		if !exact {
			return domain.DateRange{}, fmt.Errorf("%w: dateRange.end must be a whole number of months after start", port.ErrValidation)
		}
		if n > domain.MaxMonths {
			return domain.DateRange{}, fmt.Errorf("%w: dateRange spans more than %d months", port.ErrValidation, domain.MaxMonths)
		}
		dr = domain.DateRange{Start: start, End: *end, Months: n}
	case end == nil:
		dr = domain.DateRange{Start: start, End: domain.AddMonths(start, *months), Months: *months}
	default:
		if derived := domain.AddMonths(start, *months); derived != *end {
			return domain.DateRange{}, fmt.Errorf("%w: dateRange.end %s disagrees with start+months %s", port.ErrValidation, end, derived)
		}
		dr = domain.DateRange{Start: start, End: *end, Months: *months}
	}
	// Dates are stored as YYYY-MM-DD.
	if dr.Start.Year < 1 || dr.End.Year > 9999 {
		return domain.DateRange{}, fmt.Errorf("%w: dateRange must fall within years 0001-9999", port.ErrValidation)
	}
	return dr, nil
}

func decodeStruct[T any](raw []byte) (T, error) {
	var out T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %v", port.ErrValidation, err)
	}
	if err := structs.Struct(&out); err != nil {
		return out, fmt.Errorf("%w: %s", port.ErrValidation, describe(err))
	}
	return out, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		parts = append(parts, fmt.Sprintf("%s failed %q", field, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
