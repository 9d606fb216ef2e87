package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
)

// RuleSource yields one consistent snapshot of every rule that can apply
// to the spot. Implementations must not mix rule states from different
// points in time within one snapshot.
type RuleSource interface {
	Snapshot(ctx context.Context, spotID uuid.UUID) (domain.RuleSnapshot, error)
}

// HolidayCalendar answers whether a calendar date in the reference
// timezone is a holiday. Lookup only; loading happens elsewhere.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// DiscountSource resolves the discount percent of the user's active
// subscription, if any.
type DiscountSource interface {
	ActiveDiscount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, bool, error)
}
