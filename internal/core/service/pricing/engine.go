package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/port"
)

var hundred = decimal.NewFromInt(100)

// Engine prices a reservation interval for a spot. All tariff windows
// are evaluated in the configured reference timezone; the computation is
// pure over one rule snapshot and safe to run concurrently.
type Engine struct {
	rules     port.RuleSource
	calendar  port.HolidayCalendar
	discounts port.DiscountSource

	loc         *time.Location
	defaultRate decimal.Decimal
	currency    string
	log         *zap.Logger
}

func NewEngine(
	rules port.RuleSource,
	calendar port.HolidayCalendar,
	discounts port.DiscountSource,
	loc *time.Location,
	defaultRate decimal.Decimal,
	currency string,
	log *zap.Logger,
) *Engine {
	return &Engine{
		rules:       rules,
		calendar:    calendar,
		discounts:   discounts,
		loc:         loc,
		defaultRate: defaultRate,
		currency:    currency,
		log:         log,
	}
}

// ComputePrice prices [start, end) for the spot and applies the user's
// subscription discount, if any, once to the total. userID may be nil
// for anonymous previews. The result carries an audit trail with one
// entry per rule-invariant segment; segment rates are pre-discount.
func (e *Engine) ComputePrice(ctx context.Context, spotID uuid.UUID, start, end time.Time, userID *uuid.UUID) (domain.PricingResult, error) {
	if !end.After(start) {
		return domain.PricingResult{}, domain.ErrInvalidInterval
	}

	snap, err := e.rules.Snapshot(ctx, spotID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownSpot) {
			return domain.PricingResult{}, err
		}
		return domain.PricingResult{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	boundaries := e.segmentBoundaries(start, end, snap)

	total := decimal.Zero
	segments := make([]domain.PriceSegment, 0, len(boundaries)-1)
	for i := 0; i+1 < len(boundaries); i++ {
		segStart, segEnd := boundaries[i], boundaries[i+1]

		// The segment start is representative: boundaries are cut at
		// every instant where the match can change.
		inst := e.classify(segStart)

		rate := e.defaultRate
		var ruleID *uuid.UUID
		if rule, ok := matchRule(inst, snap); ok {
			rate = rule.PricePerHour
			id := rule.ID
			ruleID = &id
		}

		cost := perHourCost(rate, segEnd.Sub(segStart))
		total = total.Add(cost)
		segments = append(segments, domain.PriceSegment{
			Start:  segStart,
			End:    segEnd,
			RuleID: ruleID,
			Rate:   rate,
			Cost:   cost,
		})
	}

	discount := decimal.Zero
	if userID != nil && e.discounts != nil {
		d, ok, err := e.discounts.ActiveDiscount(ctx, *userID)
		if err != nil {
			return domain.PricingResult{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		if ok {
			discount = d
		}
	}

	final := total
	if discount.IsPositive() {
		final = total.Mul(hundred.Sub(discount)).Div(hundred)
	}
	// Half-up to the minor currency unit, applied once to the total.
	final = final.Round(2)

	if e.log != nil {
		e.log.Debug("priced reservation",
			zap.String("spot_id", spotID.String()),
			zap.Int("segments", len(segments)),
			zap.String("total", final.String()),
		)
	}

	return domain.PricingResult{
		Total:           final,
		Currency:        e.currency,
		DiscountPercent: discount,
		Segments:        segments,
	}, nil
}

// classify converts a UTC instant into its reference-timezone weekday,
// holiday status and wall-clock time.
func (e *Engine) classify(t time.Time) domain.Instant {
	local := t.In(e.loc)
	return domain.Instant{
		Time:      t,
		Weekday:   local.Weekday(),
		IsHoliday: e.calendar.IsHoliday(local),
		Clock:     domain.ClockTimeOf(local),
	}
}

// matchRule returns the single best-matching rule: spot tier first, then
// zone tier, first match within a tier. Specificity outranks priority;
// priority and creation order are already baked into tier ordering.
func matchRule(inst domain.Instant, snap domain.RuleSnapshot) (domain.TariffRule, bool) {
	for _, tier := range [2][]domain.TariffRule{snap.SpotRules, snap.ZoneRules} {
		for _, rule := range tier {
			if rule.AppliesTo(inst) {
				return rule, true
			}
		}
	}
	return domain.TariffRule{}, false
}

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// perHourCost is rate × duration in fractional hours, no rounding.
// Computed from nanoseconds so sub-second reservation bounds are billed.
func perHourCost(rate decimal.Decimal, d time.Duration) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(d))).Div(nanosPerHour)
}
