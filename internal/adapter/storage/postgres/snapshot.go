package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
)

// RuleStore serves the pricing engine's read side: consistent rule
// snapshots and subscription discounts.
type RuleStore struct {
	store *SQLStore
}

func NewRuleStore(store *SQLStore) *RuleStore {
	return &RuleStore{store: store}
}

// Snapshot resolves the spot and loads both rule tiers inside one
// repeatable-read transaction, so a concurrent rule edit can never leak
// a half-updated rule set into a single pricing computation.
func (s *RuleStore) Snapshot(ctx context.Context, spotID uuid.UUID) (domain.RuleSnapshot, error) {
	var snap domain.RuleSnapshot

	err := s.store.ExecSnapshotTx(ctx, func(q Querier) error {
		spot, err := q.GetSpot(ctx, spotID)
		if err != nil {
			return err
		}
		snap.SpotID = spot.ID
		snap.ZoneID = spot.ZoneID

		if snap.SpotRules, err = q.ListSpotRules(ctx, spot.ID); err != nil {
			return err
		}
		snap.ZoneRules, err = q.ListZoneRules(ctx, spot.ZoneID)
		return err
	})
	if err != nil {
		return domain.RuleSnapshot{}, err
	}

	// Queries already order by priority and creation; Normalize keeps
	// the guarantee independent of the storage layer.
	snap.Normalize()
	return snap, nil
}

// ActiveDiscount returns the discount percent of the user's active
// subscription. A user without one is not an error.
func (s *RuleStore) ActiveDiscount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, bool, error) {
	sub, err := s.store.GetActiveSubscription(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	if !sub.ActiveAt(time.Now()) {
		return decimal.Zero, false, nil
	}
	return sub.DiscountPercent, true, nil
}
