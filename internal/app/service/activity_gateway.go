package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danghamo/stride/internal/domain/account"
	"github.com/danghamo/stride/internal/domain/activity"
	"github.com/danghamo/stride/internal/domain/shared"
	"github.com/danghamo/stride/pkg/logger"
)

// ActivityGateway persists activities and, once the record exists, bumps the
// owner's all-time counters. It does not retry.
type ActivityGateway struct {
	activities activity.Repository
	accounts   account.Repository
	logger     *logger.Logger
}

// NewActivityGateway creates a new activity gateway
func NewActivityGateway(activities activity.Repository, accounts account.Repository, logger *logger.Logger) *ActivityGateway {
	return &ActivityGateway{
		activities: activities,
		accounts:   accounts,
		logger:     logger.WithComponent("activity-gateway"),
	}
}

// Save stores the activity then increments the owner's totals. A record
// that already exists is treated as stored so a retried save only redoes
// the counter update.
func (g *ActivityGateway) Save(ctx context.Context, a *activity.Activity) error {
	if err := g.activities.Save(ctx, a); err != nil {
		if !shared.HasCode(err, shared.ErrCodeAlreadyExists) {
			return fmt.Errorf("save activity %s: %w", a.ID, err)
		}
		g.logger.Debug("Activity already stored, resuming totals update", zap.String("activity_id", a.ID.String()))
	}

	if a.IsAnonymous() {
		return nil
	}

	delta := account.Totals{
		TotalActivities:      1,
		TotalDistanceKm:      a.DistanceKm,
		TotalDurationSeconds: a.DurationSeconds,
	}
	if err := g.accounts.IncrementTotals(ctx, account.UserID(a.OwnerID), delta); err != nil {
		return fmt.Errorf("increment totals for %s: %w", a.OwnerID, err)
	}

	return nil
}
