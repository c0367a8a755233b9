package db

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedTenant owns the demo advertisers inserted by Seed.
var SeedTenant = uuid.MustParse("00000000-0000-4000-8000-00000000d3a0")

// Seed inserts demo advertisers with one creative each. Row keys are derived
// from the external ids so running it twice changes nothing.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	categories := []string{"retail", "auto", "travel"}
	for i := 1; i <= 3; i++ {
		externalID := fmt.Sprintf("demo-advertiser-%d", i)
		rowKey := uuid.NewSHA1(SeedTenant, []byte(externalID))
		domain := fmt.Sprintf("advertiser%d.example.com", i)
		_, err := db.Exec(ctx, `INSERT INTO advertisers
(row_key, partition_key, external_org_id, external_advertiser_id, name, domain, category)
VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT DO NOTHING`,
			rowKey, SeedTenant, fmt.Sprintf("demo-org-%d", i), externalID,
			fmt.Sprintf("Demo Advertiser %d", i), domain, categories[i-1])
		if err != nil {
			return err
		}

		creativeURL := fmt.Sprintf("https://cdn.example.com/demo/%d.mp4", i)
		sum := md5.Sum([]byte(creativeURL))
		_, err = db.Exec(ctx, `INSERT INTO creatives (partition_key, row_key, external_creative_id, landing_page)
VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
			rowKey, hex.EncodeToString(sum[:]), fmt.Sprintf("demo-creative-%d", i), "https://"+domain+"/")
		if err != nil {
			return err
		}
	}
	return nil
}
