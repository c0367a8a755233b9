package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository implements the system-of-record ports on top of PostgreSQL
// using pgxpool.
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ port.AdvertiserRepository = (*Repository)(nil)
	_ port.CreativeRepository   = (*Repository)(nil)
	_ port.CampaignRepository   = (*Repository)(nil)
	_ port.FlightRepository     = (*Repository)(nil)
)

// NewRepository returns a new repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindAdvertiser returns the advertiser for tenant and external id.
func (r *Repository) FindAdvertiser(ctx context.Context, tenant uuid.UUID, externalAdvertiserID string) (*domain.AdvertiserRecord, error) {
	var a domain.AdvertiserRecord
	err := r.pool.QueryRow(ctx, `SELECT partition_key, row_key, external_org_id, external_advertiser_id, name, domain, category
FROM advertisers WHERE partition_key = $1 AND external_advertiser_id = $2
ORDER BY created_at DESC LIMIT 1`, tenant, externalAdvertiserID).
		Scan(&a.PartitionKey, &a.RowKey, &a.ExternalOrgID, &a.ExternalAdvertiserID, &a.Name, &a.Domain, &a.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAdvertiser inserts rec.
func (r *Repository) CreateAdvertiser(ctx context.Context, rec domain.AdvertiserRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO advertisers
(row_key, partition_key, external_org_id, external_advertiser_id, name, domain, category)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.RowKey, rec.PartitionKey, rec.ExternalOrgID, rec.ExternalAdvertiserID, rec.Name, rec.Domain, rec.Category)
	return err
}

// DeleteAdvertiser removes every advertiser row for tenant and external id.
func (r *Repository) DeleteAdvertiser(ctx context.Context, tenant uuid.UUID, externalAdvertiserID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM advertisers WHERE partition_key = $1 AND external_advertiser_id = $2`,
		tenant, externalAdvertiserID)
	return err
}

// FindCreative returns the creative registered for advertiser under md5.
func (r *Repository) FindCreative(ctx context.Context, advertiser uuid.UUID, md5 string) (*domain.CreativeRecord, error) {
	return r.findCreative(ctx, `SELECT partition_key, row_key, external_creative_id, landing_page
FROM creatives WHERE partition_key = $1 AND row_key = $2`, advertiser, md5)
}

// FindCreativeByExternalID searches creatives of all advertisers.
func (r *Repository) FindCreativeByExternalID(ctx context.Context, externalCreativeID string) (*domain.CreativeRecord, error) {
	return r.findCreative(ctx, `SELECT partition_key, row_key, external_creative_id, landing_page
FROM creatives WHERE external_creative_id = $1 ORDER BY created_at LIMIT 1`, externalCreativeID)
}

func (r *Repository) findCreative(ctx context.Context, query string, args ...any) (*domain.CreativeRecord, error) {
	var c domain.CreativeRecord
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&c.PartitionKey, &c.RowKey, &c.ExternalCreativeID, &c.LandingPage)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCreative inserts rec. A second creative with the same advertiser
// and hash fails with port.ErrDuplicateRecord.
func (r *Repository) CreateCreative(ctx context.Context, rec domain.CreativeRecord) error {
	tag, err := r.pool.Exec(ctx, `INSERT INTO creatives (partition_key, row_key, external_creative_id, landing_page)
VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
		rec.PartitionKey, rec.RowKey, rec.ExternalCreativeID, rec.LandingPage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("creative %s/%s: %w", rec.PartitionKey, rec.RowKey, port.ErrDuplicateRecord)
	}
	return nil
}

const campaignColumns = `partition_key, row_key, instance_id, external_campaign_id,
cpm_client::text, cpm_tenant::text, monthly_impressions, start_date, end_date`

// ListCampaigns returns the campaigns created by one instance.
func (r *Repository) ListCampaigns(ctx context.Context, advertiser uuid.UUID, instanceID string) ([]domain.CampaignRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+campaignColumns+`
FROM campaigns WHERE partition_key = $1 AND instance_id = $2
ORDER BY start_date, row_key`, advertiser, instanceID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CampaignRecord, error) {
		return scanCampaign(row)
	})
}

// FindCampaignByExternalID returns the campaign with the given external id
// regardless of owner.
func (r *Repository) FindCampaignByExternalID(ctx context.Context, externalCampaignID string) (*domain.CampaignRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+campaignColumns+`
FROM campaigns WHERE external_campaign_id = $1 ORDER BY created_at LIMIT 1`, externalCampaignID)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCampaign inserts rec.
func (r *Repository) CreateCampaign(ctx context.Context, rec domain.CampaignRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO campaigns
(row_key, partition_key, instance_id, external_campaign_id, cpm_client, cpm_tenant, monthly_impressions, start_date, end_date)
VALUES ($1,$2,$3,$4,$5::numeric,$6::numeric,$7,$8,$9)`,
		rec.RowKey, rec.PartitionKey, rec.InstanceID, rec.ExternalCampaignID,
		rec.CPMClient.String(), rec.CPMTenant.String(), rec.MonthlyImpressions,
		dateValue(rec.Start), dateValue(rec.End))
	return err
}

// ListFlights returns the flights of one campaign.
func (r *Repository) ListFlights(ctx context.Context, externalCampaignID string) ([]domain.FlightRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT partition_key, row_key, external_flight_id, start_date, end_date
FROM flights WHERE partition_key = $1 ORDER BY start_date, row_key`, externalCampaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.FlightRecord, error) {
		var (
			f          domain.FlightRecord
			start, end time.Time
		)
		err := row.Scan(&f.PartitionKey, &f.RowKey, &f.ExternalFlightID, &start, &end)
		f.Start, f.End = civil.DateOf(start), civil.DateOf(end)
		return f, err
	})
}

// DeleteFlights removes the flights of a campaign covering exactly
// [start, end).
func (r *Repository) DeleteFlights(ctx context.Context, externalCampaignID string, start, end civil.Date) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM flights WHERE partition_key = $1 AND start_date = $2 AND end_date = $3`,
		externalCampaignID, dateValue(start), dateValue(end))
	return err
}

// CreateFlight inserts rec.
func (r *Repository) CreateFlight(ctx context.Context, rec domain.FlightRecord) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO flights (row_key, partition_key, external_flight_id, start_date, end_date)
VALUES ($1,$2,$3,$4,$5)`,
		rec.RowKey, rec.PartitionKey, rec.ExternalFlightID, dateValue(rec.Start), dateValue(rec.End))
	return err
}

func scanCampaign(row pgx.Row) (domain.CampaignRecord, error) {
	var (
		c              domain.CampaignRecord
		client, tenant string
		start, end     time.Time
	)
	err := row.Scan(&c.PartitionKey, &c.RowKey, &c.InstanceID, &c.ExternalCampaignID,
		&client, &tenant, &c.MonthlyImpressions, &start, &end)
	if err != nil {
		return c, err
	}
	if c.CPMClient, err = decimal.NewFromString(client); err != nil {
		return c, fmt.Errorf("campaign %s cpm_client: %w", c.RowKey, err)
	}
	if c.CPMTenant, err = decimal.NewFromString(tenant); err != nil {
		return c, fmt.Errorf("campaign %s cpm_tenant: %w", c.RowKey, err)
	}
	c.Start, c.End = civil.DateOf(start), civil.DateOf(end)
	return c, nil
}

// dateValue maps a calendar date to the midnight UTC timestamp pgx encodes
// as a date.
func dateValue(d civil.Date) time.Time {
	return d.In(time.UTC)
}
