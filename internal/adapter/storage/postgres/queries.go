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

type Querier interface {
	GetSpot(ctx context.Context, id uuid.UUID) (domain.ParkingSpot, error)
	CreateSpot(ctx context.Context, arg CreateSpotParams) (domain.ParkingSpot, error)
	CreateZone(ctx context.Context, arg CreateZoneParams) (domain.Zone, error)
	GetZone(ctx context.Context, id uuid.UUID) (domain.Zone, error)
	ListZones(ctx context.Context) ([]domain.Zone, error)
	CreateRule(ctx context.Context, arg CreateRuleParams) (domain.TariffRule, error)
	UpdateRule(ctx context.Context, arg UpdateRuleParams) (domain.TariffRule, uuid.UUID, error)
	DeleteRule(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListRules(ctx context.Context, zoneID uuid.UUID) ([]domain.TariffRule, error)
	ListSpotRules(ctx context.Context, spotID uuid.UUID) ([]domain.TariffRule, error)
	ListZoneRules(ctx context.Context, zoneID uuid.UUID) ([]domain.TariffRule, error)
	ListHolidays(ctx context.Context) ([]time.Time, error)
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (domain.Subscription, error)
	GetAdminByEmail(ctx context.Context, email string) (AdminUserRow, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const getSpot = `
SELECT id, zone_id, name, created_at
FROM parking_spots
WHERE id = $1
`

func (q *Queries) GetSpot(ctx context.Context, id uuid.UUID) (domain.ParkingSpot, error) {
	var spot domain.ParkingSpot
	err := q.db.QueryRow(ctx, getSpot, id).Scan(&spot.ID, &spot.ZoneID, &spot.Name, &spot.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ParkingSpot{}, domain.ErrUnknownSpot
	}
	return spot, err
}

const createSpot = `
INSERT INTO parking_spots (zone_id, name)
VALUES ($1, $2)
RETURNING id, zone_id, name, created_at
`

func (q *Queries) CreateSpot(ctx context.Context, arg CreateSpotParams) (domain.ParkingSpot, error) {
	var spot domain.ParkingSpot
	err := q.db.QueryRow(ctx, createSpot, arg.ZoneID, arg.Name).
		Scan(&spot.ID, &spot.ZoneID, &spot.Name, &spot.CreatedAt)
	return spot, err
}

const createZone = `
INSERT INTO tariff_zones (name)
VALUES ($1)
RETURNING id, name, created_at
`

func (q *Queries) CreateZone(ctx context.Context, arg CreateZoneParams) (domain.Zone, error) {
	var zone domain.Zone
	err := q.db.QueryRow(ctx, createZone, arg.Name).Scan(&zone.ID, &zone.Name, &zone.CreatedAt)
	return zone, err
}

const getZone = `
SELECT id, name, created_at
FROM tariff_zones
WHERE id = $1
`

func (q *Queries) GetZone(ctx context.Context, id uuid.UUID) (domain.Zone, error) {
	var zone domain.Zone
	err := q.db.QueryRow(ctx, getZone, id).Scan(&zone.ID, &zone.Name, &zone.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Zone{}, domain.ErrZoneNotFound
	}
	return zone, err
}

const listZones = `
SELECT id, name, created_at
FROM tariff_zones
ORDER BY created_at
`

func (q *Queries) ListZones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := q.db.Query(ctx, listZones)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.Zone
	for rows.Next() {
		var zone domain.Zone
		if err := rows.Scan(&zone.ID, &zone.Name, &zone.CreatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

const createRule = `
INSERT INTO tariff_rules (
    name, zone_id, spot_id, price_per_hour, priority,
    time_period, custom_start, custom_end, day_type, custom_days,
    valid_from, valid_to
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + ruleColumns

const ruleColumns = `id, name, zone_id, spot_id, price_per_hour::text, priority,
    time_period, custom_start, custom_end, day_type, custom_days,
    valid_from, valid_to, is_active, created_at`

func (q *Queries) CreateRule(ctx context.Context, arg CreateRuleParams) (domain.TariffRule, error) {
	row := q.db.QueryRow(ctx, createRule,
		arg.Name, arg.ZoneID, arg.SpotID, arg.PricePerHour.String(), arg.Priority,
		arg.TimePeriod, arg.CustomStart, arg.CustomEnd, arg.DayType, arg.CustomDays,
		arg.ValidFrom, arg.ValidTo,
	)
	return scanRule(row)
}

const updateRule = `
UPDATE tariff_rules
SET name = $2, price_per_hour = $3, priority = $4,
    time_period = $5, custom_start = $6, custom_end = $7,
    day_type = $8, custom_days = $9,
    valid_from = $10, valid_to = $11, is_active = $12
WHERE id = $1
RETURNING ` + ruleColumns

// UpdateRule rewrites the rule's mutable attributes in place. Scope and
// created_at are untouched, so an edited rule keeps its position in the
// within-tier tie-break. The zone is reported for cache invalidation.
func (q *Queries) UpdateRule(ctx context.Context, arg UpdateRuleParams) (domain.TariffRule, uuid.UUID, error) {
	row := q.db.QueryRow(ctx, updateRule,
		arg.ID, arg.Name, arg.PricePerHour.String(), arg.Priority,
		arg.TimePeriod, arg.CustomStart, arg.CustomEnd, arg.DayType, arg.CustomDays,
		arg.ValidFrom, arg.ValidTo, arg.IsActive,
	)
	r, err := scanRuleRow(row)
	if err != nil {
		return domain.TariffRule{}, uuid.Nil, err
	}
	rule, err := ruleFromRow(r)
	return rule, r.ZoneID, err
}

const deleteRule = `
DELETE FROM tariff_rules
WHERE id = $1
RETURNING zone_id
`

// DeleteRule removes the rule and reports the zone it belonged to, so
// callers can invalidate that zone's cached snapshots.
func (q *Queries) DeleteRule(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var zoneID uuid.UUID
	err := q.db.QueryRow(ctx, deleteRule, id).Scan(&zoneID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrRuleNotFound
	}
	return zoneID, err
}

const listRules = `
SELECT ` + ruleColumns + `
FROM tariff_rules
WHERE zone_id = $1
ORDER BY priority DESC, created_at
`

func (q *Queries) ListRules(ctx context.Context, zoneID uuid.UUID) ([]domain.TariffRule, error) {
	return q.queryRules(ctx, listRules, zoneID)
}

const listSpotRules = `
SELECT ` + ruleColumns + `
FROM tariff_rules
WHERE spot_id = $1 AND is_active
ORDER BY priority DESC, created_at
`

func (q *Queries) ListSpotRules(ctx context.Context, spotID uuid.UUID) ([]domain.TariffRule, error) {
	return q.queryRules(ctx, listSpotRules, spotID)
}

const listZoneRules = `
SELECT ` + ruleColumns + `
FROM tariff_rules
WHERE zone_id = $1 AND spot_id IS NULL AND is_active
ORDER BY priority DESC, created_at
`

func (q *Queries) ListZoneRules(ctx context.Context, zoneID uuid.UUID) ([]domain.TariffRule, error) {
	return q.queryRules(ctx, listZoneRules, zoneID)
}

func (q *Queries) queryRules(ctx context.Context, query string, arg any) ([]domain.TariffRule, error) {
	rows, err := q.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.TariffRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRuleRow(row pgx.Row) (TariffRuleRow, error) {
	var r TariffRuleRow
	err := row.Scan(
		&r.ID, &r.Name, &r.ZoneID, &r.SpotID, &r.PricePerHour, &r.Priority,
		&r.TimePeriod, &r.CustomStart, &r.CustomEnd, &r.DayType, &r.CustomDays,
		&r.ValidFrom, &r.ValidTo, &r.IsActive, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return TariffRuleRow{}, domain.ErrRuleNotFound
	}
	return r, err
}

func scanRule(row pgx.Row) (domain.TariffRule, error) {
	r, err := scanRuleRow(row)
	if err != nil {
		return domain.TariffRule{}, err
	}
	return ruleFromRow(r)
}

const listHolidays = `
SELECT holiday_date
FROM holidays
ORDER BY holiday_date
`

func (q *Queries) ListHolidays(ctx context.Context) ([]time.Time, error) {
	rows, err := q.db.Query(ctx, listHolidays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

const getActiveSubscription = `
SELECT s.id, s.user_id, s.status, s.start_date, s.end_date, p.discount_percentage::text
FROM user_subscriptions s
JOIN subscription_plans p ON p.id = s.plan_id
WHERE s.user_id = $1
  AND s.status = 'active'
  AND s.start_date <= now()
  AND s.end_date >= now()
ORDER BY p.discount_percentage DESC
LIMIT 1
`

// GetActiveSubscription picks the user's currently active subscription
// with the best plan discount.
func (q *Queries) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (domain.Subscription, error) {
	var sub domain.Subscription
	var raw string
	err := q.db.QueryRow(ctx, getActiveSubscription, userID).
		Scan(&sub.ID, &sub.UserID, &sub.Status, &sub.StartDate, &sub.EndDate, &raw)
	if err != nil {
		return domain.Subscription{}, err
	}
	sub.DiscountPercent, err = decimal.NewFromString(raw)
	return sub, err
}

const getAdminByEmail = `
SELECT id, email, password_hash
FROM admin_users
WHERE email = $1
`

func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (AdminUserRow, error) {
	var admin AdminUserRow
	err := q.db.QueryRow(ctx, getAdminByEmail, email).Scan(&admin.ID, &admin.Email, &admin.PasswordHash)
	return admin, err
}
