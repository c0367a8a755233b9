package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"campaign-fulfillment/internal/core/domain"
	"campaign-fulfillment/internal/core/port"
	"campaign-fulfillment/internal/metrics"
)

// LeaseCoordinator hands out time-boxed claims on running instances so that
// independent polling workers never operate on the same instance at once.
// Every lease change is a compare-and-swap on the instance document.
type LeaseCoordinator struct {
	store   *Reconciler
	ops     *Handlers
	metrics *metrics.Metrics
	logger  *slog.Logger
}

var _ port.LeaseUseCase = (*LeaseCoordinator)(nil)

func NewLeaseCoordinator(store *Reconciler, ops *Handlers, m *metrics.Metrics, logger *slog.Logger) *LeaseCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaseCoordinator{store: store, ops: ops, metrics: m, logger: logger}
}

// ClaimNext claims the first running instance without an active lease.
// Instances that get leased by someone else between the read and the
// claim, or whose document stays contended, are skipped.
func (l *LeaseCoordinator) ClaimNext(ctx context.Context, running []port.InstanceStatus, c domain.Claimant) (port.InstanceStatus, error) {
	for _, st := range running {
		if strings.HasPrefix(st.InstanceID, port.ReservedInstancePrefix) || st.RuntimeStatus != port.RuntimeRunning {
			continue
		}
		s, err := l.store.Read(ctx, st.InstanceID)
		if errors.Is(err, port.ErrVersionConflict) {
			l.metrics.Lease("claim", "lost_race")
			continue
		}
		if err != nil {
			return port.InstanceStatus{}, err
		}
		if s.Request == nil || s.Lease.Active(l.ops.clock.Now()) {
			continue
		}

		_, err = l.ops.Lease(ctx, st.InstanceID, c, true)
		switch {
		case err == nil:
			l.metrics.Lease("claim", "ok")
			l.logger.Info("lease claimed",
				slog.String("instance_id", st.InstanceID),
				slog.String("provider", c.Provider),
				slog.String("access_id", c.AccessID),
			)
			return st, nil
		case errors.Is(err, port.ErrLeaseConflict), errors.Is(err, port.ErrNotFound), errors.Is(err, port.ErrVersionConflict):
			l.metrics.Lease("claim", "lost_race")
			continue
		default:
			return port.InstanceStatus{}, err
		}
	}
	l.metrics.Lease("claim", "none")
	return port.InstanceStatus{}, fmt.Errorf("no claimable instance: %w", port.ErrNotFound)
}

// Renew extends the lease of c, or takes it when the instance is unleased.
func (l *LeaseCoordinator) Renew(ctx context.Context, instanceID string, c domain.Claimant) (domain.InstanceState, error) {
	s, err := l.ops.Lease(ctx, instanceID, c, false)
	l.metrics.Lease("renew", leaseResult(err))
	return s, err
}

// Release drops the lease held by c.
func (l *LeaseCoordinator) Release(ctx context.Context, instanceID string, c domain.Claimant) (domain.InstanceState, error) {
	s, err := l.ops.Break(ctx, instanceID, c)
	l.metrics.Lease("release", leaseResult(err))
	if err == nil {
		l.logger.Info("lease released",
			slog.String("instance_id", instanceID),
			slog.String("provider", c.Provider),
		)
	}
	return s, err
}

func leaseResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, port.ErrLeaseConflict):
		return "rejected"
	default:
		return "error"
	}
}
