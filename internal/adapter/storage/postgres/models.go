package postgres

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
)

type CreateZoneParams struct {
	Name string
}

type CreateSpotParams struct {
	ZoneID uuid.UUID
	Name   string
}

type CreateRuleParams struct {
	Name         string
	ZoneID       uuid.UUID
	SpotID       pgtype.UUID
	PricePerHour decimal.Decimal
	Priority     int32
	TimePeriod   string
	CustomStart  pgtype.Int4
	CustomEnd    pgtype.Int4
	DayType      string
	CustomDays   pgtype.Text
	ValidFrom    pgtype.Timestamptz
	ValidTo      pgtype.Timestamptz
}

// UpdateRuleParams carries every mutable rule attribute. Scope
// (zone_id/spot_id) and created_at are fixed at creation: created_at
// feeds the within-tier tie-break, so an edit must not reset it.
type UpdateRuleParams struct {
	ID           uuid.UUID
	Name         string
	PricePerHour decimal.Decimal
	Priority     int32
	TimePeriod   string
	CustomStart  pgtype.Int4
	CustomEnd    pgtype.Int4
	DayType      string
	CustomDays   pgtype.Text
	ValidFrom    pgtype.Timestamptz
	ValidTo      pgtype.Timestamptz
	IsActive     bool
}

type TariffRuleRow struct {
	ID           uuid.UUID
	Name         string
	ZoneID       uuid.UUID
	SpotID       pgtype.UUID
	PricePerHour string
	Priority     int32
	TimePeriod   string
	CustomStart  pgtype.Int4
	CustomEnd    pgtype.Int4
	DayType      string
	CustomDays   pgtype.Text
	ValidFrom    pgtype.Timestamptz
	ValidTo      pgtype.Timestamptz
	IsActive     bool
	CreatedAt    time.Time
}

type AdminUserRow struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
}

// ruleFromRow maps a stored rule into the domain representation. Scope
// is derived from the spot column: a rule with a spot is spot-scoped,
// otherwise it covers its zone.
func ruleFromRow(row TariffRuleRow) (domain.TariffRule, error) {
	price, err := decimal.NewFromString(row.PricePerHour)
	if err != nil {
		return domain.TariffRule{}, err
	}

	scope := domain.ZoneScope(row.ZoneID)
	if row.SpotID.Valid {
		scope = domain.SpotScope(uuid.UUID(row.SpotID.Bytes))
	}

	period := domain.TimePeriod{Kind: domain.PeriodKind(row.TimePeriod)}
	if period.Kind == domain.PeriodCustom {
		period.Start = domain.ClockTime(row.CustomStart.Int32)
		period.End = domain.ClockTime(row.CustomEnd.Int32)
	}

	days := domain.DayType{Kind: domain.DayKind(row.DayType)}
	if days.Kind == domain.DaysCustom {
		days.Days = parseCustomDays(row.CustomDays.String)
	}

	rule := domain.TariffRule{
		ID:           row.ID,
		Name:         row.Name,
		Scope:        scope,
		PricePerHour: price,
		Priority:     int(row.Priority),
		Period:       period,
		Days:         days,
		CreatedAt:    row.CreatedAt,
	}
	if row.ValidFrom.Valid {
		rule.ValidFrom = row.ValidFrom.Time
	}
	if row.ValidTo.Valid {
		t := row.ValidTo.Time
		rule.ValidTo = &t
	}
	return rule, nil
}

// parseCustomDays reads the comma-separated ISO weekday list (1 is
// Monday, 7 is Sunday) the admin subsystem stores.
func parseCustomDays(s string) []time.Weekday {
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > 7 {
			continue
		}
		days = append(days, time.Weekday(n%7))
	}
	return days
}

// FormatCustomDays is the inverse of parseCustomDays.
func FormatCustomDays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		n := int(d)
		if n == 0 {
			n = 7
		}
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ",")
}
