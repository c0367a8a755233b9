package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentStore keeps one versioned JSON document per instance.
type DocumentStore struct {
	pool *pgxpool.Pool
}

var _ port.DocumentStore = (*DocumentStore)(nil)

func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Load returns the stored document, or an empty one with version 0.
func (s *DocumentStore) Load(ctx context.Context, instanceID string) (port.Document, error) {
	var (
		body    []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, `SELECT body, version FROM instance_documents WHERE instance_id = $1`, instanceID).
		Scan(&body, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return port.Document{}, nil
	}
	if err != nil {
		return port.Document{}, err
	}

	state, err := domain.DecodeState(body)
	if err != nil {
		return port.Document{}, fmt.Errorf("decode document %s: %w", instanceID, err)
	}
	return port.Document{State: state, Version: version}, nil
}

// Save inserts the document when version is 0 and otherwise updates it only
// if the stored version is unchanged.
func (s *DocumentStore) Save(ctx context.Context, instanceID string, state domain.InstanceState, version int64) (int64, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("encode document %s: %w", instanceID, err)
	}

	var query string
	args := []any{instanceID, body}
	if version == 0 {
		query = `INSERT INTO instance_documents (instance_id, body, version, updated_at)
VALUES ($1, $2, 1, now()) ON CONFLICT (instance_id) DO NOTHING`
	} else {
		query = `UPDATE instance_documents SET body = $2, version = version + 1, updated_at = now()
WHERE instance_id = $1 AND version = $3`
		args = append(args, version)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("document %s at version %d: %w", instanceID, version, port.ErrVersionConflict)
	}
	return version + 1, nil
}
