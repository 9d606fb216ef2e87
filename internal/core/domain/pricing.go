package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleSnapshot is an immutable view of every tariff rule that can apply
// to one spot, captured at a single consistent point in time. Both tiers
// are ordered by descending priority, ties broken by creation order, so
// first-match resolution is deterministic.
type RuleSnapshot struct {
	SpotID    uuid.UUID
	ZoneID    uuid.UUID
	SpotRules []TariffRule
	ZoneRules []TariffRule
}

// Normalize sorts both tiers into resolution order.
func (s *RuleSnapshot) Normalize() {
	sortRules(s.SpotRules)
	sortRules(s.ZoneRules)
}

func sortRules(rules []TariffRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
}

// Rules returns both tiers in resolution order, spot rules first.
func (s RuleSnapshot) Rules() []TariffRule {
	out := make([]TariffRule, 0, len(s.SpotRules)+len(s.ZoneRules))
	out = append(out, s.SpotRules...)
	out = append(out, s.ZoneRules...)
	return out
}

// PriceSegment is one audit-trail entry: a sub-interval of the
// reservation priced at a single hourly rate. RuleID is nil when the
// segment fell back to the default price. Rate is pre-discount.
type PriceSegment struct {
	Start  time.Time       `json:"start"`
	End    time.Time       `json:"end"`
	RuleID *uuid.UUID      `json:"rule_id"`
	Rate   decimal.Decimal `json:"hourly_rate"`
	Cost   decimal.Decimal `json:"cost"`
}

// RuleRef renders the applied rule for logs and API payloads.
func (s PriceSegment) RuleRef() string {
	if s.RuleID == nil {
		return "default"
	}
	return s.RuleID.String()
}

func (s PriceSegment) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

type PricingResult struct {
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Segments        []PriceSegment  `json:"segments"`
}
