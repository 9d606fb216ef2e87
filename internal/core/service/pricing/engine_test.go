package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/port"
)

type MockRuleSource struct {
	mock.Mock
}

func (m *MockRuleSource) Snapshot(ctx context.Context, spotID uuid.UUID) (domain.RuleSnapshot, error) {
	args := m.Called(ctx, spotID)
	return args.Get(0).(domain.RuleSnapshot), args.Error(1)
}

type MockDiscountSource struct {
	mock.Mock
}

func (m *MockDiscountSource) ActiveDiscount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

// stubCalendar marks dates (YYYY-MM-DD) as holidays.
type stubCalendar map[string]bool

func (c stubCalendar) IsHoliday(date time.Time) bool {
	return c[date.Format(time.DateOnly)]
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(src *MockRuleSource, cal stubCalendar, disc port.DiscountSource) *Engine {
	return NewEngine(src, cal, disc, time.UTC, d("100.00"), "KZT", nil)
}

func zoneRule(zoneID uuid.UUID, rate string, priority int, period domain.TimePeriod, days domain.DayType) domain.TariffRule {
	return domain.TariffRule{
		ID:           uuid.New(),
		Name:         "zone rule",
		Scope:        domain.ZoneScope(zoneID),
		PricePerHour: d(rate),
		Priority:     priority,
		Period:       period,
		Days:         days,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func spotRule(spotID uuid.UUID, rate string, priority int, period domain.TimePeriod, days domain.DayType) domain.TariffRule {
	return domain.TariffRule{
		ID:           uuid.New(),
		Name:         "spot rule",
		Scope:        domain.SpotScope(spotID),
		PricePerHour: d(rate),
		Priority:     priority,
		Period:       period,
		Days:         days,
		CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEngine_ComputePrice_SingleZoneRule(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	rule := zoneRule(zoneID, "500.00", 0, domain.AllDay(), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{rule},
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	// Monday 2025-06-02, 10:00-12:00.
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(2*time.Hour), nil)

	assert.NoError(t, err)
	assert.Equal(t, "1000.00", result.Total.StringFixed(2))
	assert.Equal(t, "KZT", result.Currency)
	assert.Len(t, result.Segments, 1)
	assert.Equal(t, rule.ID.String(), result.Segments[0].RuleRef())
	assert.Equal(t, "500.00", result.Segments[0].Rate.StringFixed(2))
	src.AssertExpectations(t)
}

func TestEngine_ComputePrice_CrossesWindowBoundary(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	base := zoneRule(zoneID, "500.00", 0, domain.AllDay(), domain.AllDays())
	evening := spotRule(spotID, "800.00", 10, domain.NamedPeriod(domain.PeriodEvening), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		SpotRules: []domain.TariffRule{evening},
		ZoneRules: []domain.TariffRule{base},
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	// 16:30-18:00: half an hour at the zone rate, one hour at the
	// evening spot rate.
	start := time.Date(2025, 6, 2, 16, 30, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(90*time.Minute), nil)

	assert.NoError(t, err)
	assert.Equal(t, "1050.00", result.Total.StringFixed(2))
	assert.Len(t, result.Segments, 2)

	assert.Equal(t, base.ID.String(), result.Segments[0].RuleRef())
	assert.Equal(t, "250", result.Segments[0].Cost.String())
	assert.Equal(t, evening.ID.String(), result.Segments[1].RuleRef())
	assert.Equal(t, "800", result.Segments[1].Cost.String())
}

func TestEngine_ComputePrice_SpotBeatsZoneRegardlessOfPriority(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	weakSpot := spotRule(spotID, "300.00", 0, domain.AllDay(), domain.AllDays())
	strongZone := zoneRule(zoneID, "900.00", 100, domain.AllDay(), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		SpotRules: []domain.TariffRule{weakSpot},
		ZoneRules: []domain.TariffRule{strongZone},
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)

	assert.NoError(t, err)
	assert.Equal(t, "300.00", result.Total.StringFixed(2))
	assert.Equal(t, weakSpot.ID.String(), result.Segments[0].RuleRef())
}

func TestEngine_ComputePrice_PriorityAndCreationOrderWithinTier(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	older := zoneRule(zoneID, "400.00", 5, domain.AllDay(), domain.AllDays())
	newer := zoneRule(zoneID, "600.00", 5, domain.AllDay(), domain.AllDays())
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)
	top := zoneRule(zoneID, "700.00", 9, domain.AllDay(), domain.AllDays())

	snap := domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{newer, older, top},
	}
	snap.Normalize()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(snap, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)
	assert.NoError(t, err)
	assert.Equal(t, top.ID.String(), result.Segments[0].RuleRef())

	// Repeated calls stay deterministic.
	again, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)
	assert.NoError(t, err)
	assert.Equal(t, result.Total.String(), again.Total.String())

	// With the top rule out of the picture, equal priorities resolve by
	// creation order.
	tieSnap := domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{newer, older},
	}
	tieSnap.Normalize()
	tieSrc := new(MockRuleSource)
	tieSrc.On("Snapshot", mock.Anything, spotID).Return(tieSnap, nil)

	tieEngine := newTestEngine(tieSrc, stubCalendar{}, nil)
	tieResult, err := tieEngine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)
	assert.NoError(t, err)
	assert.Equal(t, older.ID.String(), tieResult.Segments[0].RuleRef())
}

func TestEngine_ComputePrice_DefaultPriceFallback(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID: spotID,
		ZoneID: zoneID,
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(90*time.Minute), nil)

	assert.NoError(t, err)
	assert.Equal(t, "150.00", result.Total.StringFixed(2))
	assert.Len(t, result.Segments, 1)
	assert.Equal(t, "default", result.Segments[0].RuleRef())
}

func TestEngine_ComputePrice_HolidayOverridesWeekday(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	weekday := zoneRule(zoneID, "500.00", 5, domain.AllDay(), domain.NamedDays(domain.DaysWeekdays))
	holiday := zoneRule(zoneID, "900.00", 0, domain.AllDay(), domain.NamedDays(domain.DaysHolidays))

	snap := domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{weekday, holiday},
	}
	snap.Normalize()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(snap, nil)

	// Monday 2025-06-02 is a holiday.
	engine := newTestEngine(src, stubCalendar{"2025-06-02": true}, nil)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)

	assert.NoError(t, err)
	assert.Equal(t, holiday.ID.String(), result.Segments[0].RuleRef())
	assert.Equal(t, "900.00", result.Total.StringFixed(2))
}

func TestEngine_ComputePrice_NightWindowWrapsMidnight(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	night := zoneRule(zoneID, "200.00", 5, domain.NamedPeriod(domain.PeriodNight), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{night},
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	// 05:00-07:00: one hour of night rate, one hour of default price.
	start := time.Date(2025, 6, 2, 5, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(2*time.Hour), nil)

	assert.NoError(t, err)
	assert.Len(t, result.Segments, 2)
	assert.Equal(t, night.ID.String(), result.Segments[0].RuleRef())
	assert.Equal(t, "default", result.Segments[1].RuleRef())
	assert.Equal(t, "300.00", result.Total.StringFixed(2))
}

func TestEngine_ComputePrice_DiscountAppliedOnceToTotal(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	userID := uuid.New()
	rule := zoneRule(zoneID, "500.00", 0, domain.AllDay(), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{rule},
	}, nil)

	disc := new(MockDiscountSource)
	disc.On("ActiveDiscount", mock.Anything, userID).Return(d("10"), true, nil)

	engine := newTestEngine(src, stubCalendar{}, disc)

	// 54 minutes at 500/hr = 450; 10% off = 405.
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(54*time.Minute), &userID)

	assert.NoError(t, err)
	assert.Equal(t, "405.00", result.Total.StringFixed(2))
	assert.Equal(t, "10", result.DiscountPercent.String())
	// Audit rates stay pre-discount.
	assert.Equal(t, "500.00", result.Segments[0].Rate.StringFixed(2))
	disc.AssertExpectations(t)
}

func TestEngine_ComputePrice_TotalRoundingBeatsPerSegmentRounding(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	userID := uuid.New()
	morning := zoneRule(zoneID, "200.01", 5, domain.NamedPeriod(domain.PeriodMorning), domain.AllDays())
	afternoon := zoneRule(zoneID, "200.01", 5, domain.NamedPeriod(domain.PeriodAfternoon), domain.AllDays())
	afternoon.CreatedAt = morning.CreatedAt.Add(time.Minute)

	snap := domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{morning, afternoon},
	}
	snap.Normalize()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(snap, nil)

	disc := new(MockDiscountSource)
	disc.On("ActiveDiscount", mock.Anything, userID).Return(d("10"), true, nil)

	engine := newTestEngine(src, stubCalendar{}, disc)

	// 11:30-12:30 crosses the noon boundary: two segments of 100.005
	// each. Discounting the 200.01 total gives 180.009 -> 180.01;
	// rounding per segment first would give 90.00 + 90.00 = 180.00.
	start := time.Date(2025, 6, 2, 11, 30, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), &userID)

	assert.NoError(t, err)
	assert.Len(t, result.Segments, 2)
	assert.Equal(t, "180.01", result.Total.StringFixed(2))

	naive := decimal.Zero
	discount := d("0.9")
	for _, seg := range result.Segments {
		naive = naive.Add(seg.Cost.Mul(discount).Round(2))
	}
	assert.NotEqual(t, naive.StringFixed(2), result.Total.StringFixed(2))
}

func TestEngine_ComputePrice_NoActiveSubscription(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	userID := uuid.New()
	rule := zoneRule(zoneID, "500.00", 0, domain.AllDay(), domain.AllDays())

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{rule},
	}, nil)

	disc := new(MockDiscountSource)
	disc.On("ActiveDiscount", mock.Anything, userID).Return(decimal.Zero, false, nil)

	engine := newTestEngine(src, stubCalendar{}, disc)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), &userID)

	assert.NoError(t, err)
	assert.Equal(t, "500.00", result.Total.StringFixed(2))
	assert.True(t, result.DiscountPercent.IsZero())
}

func TestPerHourCost_FractionalHours(t *testing.T) {
	assert.Equal(t, "250", perHourCost(d("500"), 30*time.Minute).String())
	assert.Equal(t, "500", perHourCost(d("500"), time.Hour).String())
	// Sub-second bounds still bill; nothing is truncated away.
	assert.Equal(t, "0.5", perHourCost(d("3600"), 500*time.Millisecond).String())
	assert.Equal(t, "500.05", perHourCost(d("500"), time.Hour+360*time.Millisecond).String())
}

func TestEngine_ComputePrice_InvalidInterval(t *testing.T) {
	engine := newTestEngine(new(MockRuleSource), stubCalendar{}, nil)
	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	_, err := engine.ComputePrice(context.Background(), uuid.New(), start, start, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	_, err = engine.ComputePrice(context.Background(), uuid.New(), start, start.Add(-time.Minute), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestEngine_ComputePrice_UnknownSpot(t *testing.T) {
	spotID := uuid.New()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{}, domain.ErrUnknownSpot)

	engine := newTestEngine(src, stubCalendar{}, nil)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	_, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)

	assert.ErrorIs(t, err, domain.ErrUnknownSpot)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestEngine_ComputePrice_StoreFailure(t *testing.T) {
	spotID := uuid.New()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{}, errors.New("connection refused"))

	engine := newTestEngine(src, stubCalendar{}, nil)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	_, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(time.Hour), nil)

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestEngine_ComputePrice_SegmentsCoverIntervalExactly(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	rules := []domain.TariffRule{
		zoneRule(zoneID, "300.00", 5, domain.AllDay(), domain.NamedDays(domain.DaysWeekdays)),
		zoneRule(zoneID, "450.00", 5, domain.AllDay(), domain.NamedDays(domain.DaysWeekends)),
		zoneRule(zoneID, "150.00", 9, domain.NamedPeriod(domain.PeriodNight), domain.AllDays()),
	}
	snap := domain.RuleSnapshot{SpotID: spotID, ZoneID: zoneID, ZoneRules: rules}
	snap.Normalize()

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(snap, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	// Friday 22:00 through Sunday 03:00 crosses window edges, midnights
	// and a weekday/weekend flip.
	start := time.Date(2025, 6, 6, 22, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 8, 3, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, end, nil)

	assert.NoError(t, err)
	assert.NotEmpty(t, result.Segments)

	assert.True(t, result.Segments[0].Start.Equal(start))
	assert.True(t, result.Segments[len(result.Segments)-1].End.Equal(end))

	var covered time.Duration
	for i, seg := range result.Segments {
		assert.True(t, seg.End.After(seg.Start), "segment %d is empty", i)
		if i > 0 {
			assert.True(t, seg.Start.Equal(result.Segments[i-1].End), "gap before segment %d", i)
		}
		covered += seg.Duration()
	}
	assert.Equal(t, end.Sub(start), covered)
}

func TestEngine_ComputePrice_RuleExpiryMidReservation(t *testing.T) {
	spotID, zoneID := uuid.New(), uuid.New()
	expiry := time.Date(2025, 6, 2, 11, 0, 0, 0, time.UTC)
	expiring := zoneRule(zoneID, "500.00", 0, domain.AllDay(), domain.AllDays())
	expiring.ValidTo = &expiry

	src := new(MockRuleSource)
	src.On("Snapshot", mock.Anything, spotID).Return(domain.RuleSnapshot{
		SpotID:    spotID,
		ZoneID:    zoneID,
		ZoneRules: []domain.TariffRule{expiring},
	}, nil)

	engine := newTestEngine(src, stubCalendar{}, nil)

	start := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result, err := engine.ComputePrice(context.Background(), spotID, start, start.Add(2*time.Hour), nil)

	assert.NoError(t, err)
	assert.Len(t, result.Segments, 2)
	assert.Equal(t, expiring.ID.String(), result.Segments[0].RuleRef())
	assert.Equal(t, "default", result.Segments[1].RuleRef())
	assert.Equal(t, "600.00", result.Total.StringFixed(2))
}
