package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a read-only projection of a user's subscription and
// its plan discount. The billing subsystem owns the lifecycle.
type Subscription struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          SubscriptionStatus
	StartDate       time.Time
	EndDate         time.Time
	DiscountPercent decimal.Decimal
}

func (s Subscription) ActiveAt(now time.Time) bool {
	return s.Status == SubscriptionActive && !now.Before(s.StartDate) && !now.After(s.EndDate)
}
