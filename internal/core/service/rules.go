package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Tamerlan-hash/diploma-backend/internal/adapter/storage/postgres"
	redisadapter "github.com/Tamerlan-hash/diploma-backend/internal/adapter/storage/redis"
	"github.com/Tamerlan-hash/diploma-backend/internal/core/domain"
)

// RuleService is the admin write side of the tariff store. Every
// mutation invalidates the affected zone's cached snapshots and
// publishes a rule-change event for downstream listeners.
type RuleService struct {
	store postgres.Store
	cache *redisadapter.SnapshotCache
	log   *zap.Logger
}

func NewRuleService(store postgres.Store, cache *redisadapter.SnapshotCache, log *zap.Logger) *RuleService {
	return &RuleService{store: store, cache: cache, log: log}
}

type CreateRuleCommand struct {
	Name         string
	ZoneID       uuid.UUID
	SpotID       *uuid.UUID
	PricePerHour decimal.Decimal
	Priority     int
	Period       domain.TimePeriod
	Days         domain.DayType
	ValidFrom    *time.Time
	ValidTo      *time.Time
}

func (c CreateRuleCommand) validate() error {
	return validateRuleAttrs(c.Name, c.PricePerHour, c.Period, c.Days, c.ValidFrom, c.ValidTo)
}

func validateRuleAttrs(name string, price decimal.Decimal, period domain.TimePeriod, days domain.DayType, validFrom, validTo *time.Time) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidRule)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price per hour must be non-negative", domain.ErrInvalidRule)
	}
	switch period.Kind {
	case domain.PeriodAllDay, domain.PeriodMorning, domain.PeriodAfternoon,
		domain.PeriodEvening, domain.PeriodNight:
	case domain.PeriodCustom:
		if period.Start < 0 || period.Start >= domain.MinutesPerDay ||
			period.End < 0 || period.End >= domain.MinutesPerDay {
			return fmt.Errorf("%w: custom period out of clock range", domain.ErrInvalidRule)
		}
		if period.Start == period.End {
			return fmt.Errorf("%w: custom period is empty, use ALL_DAY for a full-day rule", domain.ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown time period %q", domain.ErrInvalidRule, period.Kind)
	}
	switch days.Kind {
	case domain.DaysAll, domain.DaysWeekdays, domain.DaysWeekends, domain.DaysHolidays:
	case domain.DaysCustom:
		if len(days.Days) == 0 {
			return fmt.Errorf("%w: custom day set is empty", domain.ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown day type %q", domain.ErrInvalidRule, days.Kind)
	}
	if validFrom != nil && validTo != nil && !validTo.After(*validFrom) {
		return fmt.Errorf("%w: validity window is empty", domain.ErrInvalidRule)
	}
	return nil
}

func (s *RuleService) CreateRule(ctx context.Context, cmd CreateRuleCommand) (domain.TariffRule, error) {
	if err := cmd.validate(); err != nil {
		return domain.TariffRule{}, err
	}

	params := postgres.CreateRuleParams{
		Name:         cmd.Name,
		ZoneID:       cmd.ZoneID,
		PricePerHour: cmd.PricePerHour,
		Priority:     int32(cmd.Priority),
		TimePeriod:   string(cmd.Period.Kind),
		DayType:      string(cmd.Days.Kind),
	}
	if cmd.Period.Kind == domain.PeriodCustom {
		params.CustomStart = pgtype.Int4{Int32: int32(cmd.Period.Start), Valid: true}
		params.CustomEnd = pgtype.Int4{Int32: int32(cmd.Period.End), Valid: true}
	}
	if cmd.Days.Kind == domain.DaysCustom {
		params.CustomDays = pgtype.Text{String: postgres.FormatCustomDays(cmd.Days.Days), Valid: true}
	}
	if cmd.ValidFrom != nil {
		params.ValidFrom = pgtype.Timestamptz{Time: *cmd.ValidFrom, Valid: true}
	}
	if cmd.ValidTo != nil {
		params.ValidTo = pgtype.Timestamptz{Time: *cmd.ValidTo, Valid: true}
	}

	var rule domain.TariffRule
	err := s.store.ExecTx(ctx, func(q postgres.Querier) error {
		if cmd.SpotID != nil {
			spot, err := q.GetSpot(ctx, *cmd.SpotID)
			if err != nil {
				return err
			}
			if spot.ZoneID != cmd.ZoneID {
				return fmt.Errorf("%w: spot belongs to another zone", domain.ErrInvalidRule)
			}
			params.SpotID = pgtype.UUID{Bytes: *cmd.SpotID, Valid: true}
		}

		var err error
		rule, err = q.CreateRule(ctx, params)
		return err
	})
	if err != nil {
		return domain.TariffRule{}, err
	}

	s.afterRuleChange(ctx, cmd.ZoneID, rule.ID, "created")
	return rule, nil
}

// UpdateRuleCommand rewrites a rule's mutable attributes. Scope stays
// fixed: moving a rule between zones or spots is a delete and recreate.
type UpdateRuleCommand struct {
	RuleID       uuid.UUID
	Name         string
	PricePerHour decimal.Decimal
	Priority     int
	Period       domain.TimePeriod
	Days         domain.DayType
	ValidFrom    *time.Time
	ValidTo      *time.Time
	IsActive     bool
}

func (c UpdateRuleCommand) validate() error {
	return validateRuleAttrs(c.Name, c.PricePerHour, c.Period, c.Days, c.ValidFrom, c.ValidTo)
}

// UpdateRule edits the rule in place, keeping its creation timestamp so
// the within-tier tie-break order is stable across edits.
func (s *RuleService) UpdateRule(ctx context.Context, cmd UpdateRuleCommand) (domain.TariffRule, error) {
	if err := cmd.validate(); err != nil {
		return domain.TariffRule{}, err
	}

	params := postgres.UpdateRuleParams{
		ID:           cmd.RuleID,
		Name:         cmd.Name,
		PricePerHour: cmd.PricePerHour,
		Priority:     int32(cmd.Priority),
		TimePeriod:   string(cmd.Period.Kind),
		DayType:      string(cmd.Days.Kind),
		IsActive:     cmd.IsActive,
	}
	if cmd.Period.Kind == domain.PeriodCustom {
		params.CustomStart = pgtype.Int4{Int32: int32(cmd.Period.Start), Valid: true}
		params.CustomEnd = pgtype.Int4{Int32: int32(cmd.Period.End), Valid: true}
	}
	if cmd.Days.Kind == domain.DaysCustom {
		params.CustomDays = pgtype.Text{String: postgres.FormatCustomDays(cmd.Days.Days), Valid: true}
	}
	if cmd.ValidFrom != nil {
		params.ValidFrom = pgtype.Timestamptz{Time: *cmd.ValidFrom, Valid: true}
	}
	if cmd.ValidTo != nil {
		params.ValidTo = pgtype.Timestamptz{Time: *cmd.ValidTo, Valid: true}
	}

	rule, zoneID, err := s.store.UpdateRule(ctx, params)
	if err != nil {
		return domain.TariffRule{}, err
	}

	s.afterRuleChange(ctx, zoneID, rule.ID, "updated")
	return rule, nil
}

func (s *RuleService) DeleteRule(ctx context.Context, ruleID uuid.UUID) error {
	zoneID, err := s.store.DeleteRule(ctx, ruleID)
	if err != nil {
		return err
	}
	s.afterRuleChange(ctx, zoneID, ruleID, "deleted")
	return nil
}

func (s *RuleService) ListRules(ctx context.Context, zoneID uuid.UUID) ([]domain.TariffRule, error) {
	return s.store.ListRules(ctx, zoneID)
}

func (s *RuleService) CreateZone(ctx context.Context, name string) (domain.Zone, error) {
	if name == "" {
		return domain.Zone{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRule)
	}
	return s.store.CreateZone(ctx, postgres.CreateZoneParams{Name: name})
}

func (s *RuleService) ListZones(ctx context.Context) ([]domain.Zone, error) {
	return s.store.ListZones(ctx)
}

func (s *RuleService) CreateSpot(ctx context.Context, zoneID uuid.UUID, name string) (domain.ParkingSpot, error) {
	if name == "" {
		return domain.ParkingSpot{}, fmt.Errorf("%w: name is required", domain.ErrInvalidRule)
	}
	if _, err := s.store.GetZone(ctx, zoneID); err != nil {
		return domain.ParkingSpot{}, err
	}
	return s.store.CreateSpot(ctx, postgres.CreateSpotParams{ZoneID: zoneID, Name: name})
}

func (s *RuleService) afterRuleChange(ctx context.Context, zoneID, ruleID uuid.UUID, action string) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidateZone(ctx, zoneID)
	s.cache.PublishRuleChange(ctx, redisadapter.RuleChange{
		ZoneID: zoneID,
		RuleID: ruleID,
		Action: action,
	})
	s.log.Info("tariff rules changed",
		zap.String("zone_id", zoneID.String()),
		zap.String("rule_id", ruleID.String()),
		zap.String("action", action),
	)
}
