package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-fulfillment/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InstanceRegistry stores the host's instance metadata.
type InstanceRegistry struct {
	pool *pgxpool.Pool
}

var _ port.InstanceRegistry = (*InstanceRegistry)(nil)

func NewInstanceRegistry(pool *pgxpool.Pool) *InstanceRegistry {
	return &InstanceRegistry{pool: pool}
}

const uniqueViolation = "23505"

// CreateInstance registers a new instance. Reusing an id fails with
// port.ErrDuplicateRecord.
func (r *InstanceRegistry) CreateInstance(ctx context.Context, st port.InstanceStatus) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO instances
(instance_id, name, runtime_status, custom_status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		st.InstanceID, st.Name, string(st.RuntimeStatus), st.CustomStatus, st.CreatedTime, st.LastUpdatedTime)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("instance %s: %w", st.InstanceID, port.ErrDuplicateRecord)
	}
	return err
}

// UpdateInstance records the runtime status and stage of an instance.
func (r *InstanceRegistry) UpdateInstance(ctx context.Context, instanceID string, status port.RuntimeStatus, custom string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE instances SET runtime_status = $2, custom_status = $3, updated_at = $4
WHERE instance_id = $1`, instanceID, string(status), custom, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("instance %s: %w", instanceID, port.ErrNotFound)
	}
	return nil
}

// GetInstance returns the instance metadata or nil when it is unknown.
func (r *InstanceRegistry) GetInstance(ctx context.Context, instanceID string) (*port.InstanceStatus, error) {
	row := r.pool.QueryRow(ctx, `SELECT instance_id, name, runtime_status, custom_status, created_at, updated_at
FROM instances WHERE instance_id = $1`, instanceID)
	st, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListRunning returns running instances, oldest first.
func (r *InstanceRegistry) ListRunning(ctx context.Context) ([]port.InstanceStatus, error) {
	rows, err := r.pool.Query(ctx, `SELECT instance_id, name, runtime_status, custom_status, created_at, updated_at
FROM instances WHERE runtime_status = $1 ORDER BY created_at, instance_id`, string(port.RuntimeRunning))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.InstanceStatus, error) {
		return scanInstance(row)
	})
}

func scanInstance(row pgx.Row) (port.InstanceStatus, error) {
	var (
		st     port.InstanceStatus
		status string
	)
	err := row.Scan(&st.InstanceID, &st.Name, &status, &st.CustomStatus, &st.CreatedTime, &st.LastUpdatedTime)
	st.RuntimeStatus = port.RuntimeStatus(status)
	st.CreatedTime = st.CreatedTime.UTC()
	st.LastUpdatedTime = st.LastUpdatedTime.UTC()
	return st, err
}
