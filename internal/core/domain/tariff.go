package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Zone struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// ParkingSpot belongs to exactly one zone. Zone membership is fixed for
// pricing purposes; reassignment happens in the admin subsystem.
type ParkingSpot struct {
	ID        uuid.UUID
	ZoneID    uuid.UUID
	Name      string
	CreatedAt time.Time
}

type ScopeKind string

const (
	ScopeZone ScopeKind = "ZONE"
	ScopeSpot ScopeKind = "SPOT"
)

// Scope targets either a whole zone or one specific spot, never both.
type Scope struct {
	Kind     ScopeKind
	TargetID uuid.UUID
}

func ZoneScope(zoneID uuid.UUID) Scope {
	return Scope{Kind: ScopeZone, TargetID: zoneID}
}

func SpotScope(spotID uuid.UUID) Scope {
	return Scope{Kind: ScopeSpot, TargetID: spotID}
}

// ClockTime is a wall-clock instant expressed as minutes since local
// midnight, in [0, 1440).
type ClockTime int

const MinutesPerDay = 24 * 60

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// ClockRange is a half-open [Start, End) window within a single day.
// End may be MinutesPerDay to reach end of day; ranges never wrap.
type ClockRange struct {
	Start ClockTime
	End   ClockTime
}

func (r ClockRange) Contains(c ClockTime) bool {
	return c >= r.Start && c < r.End
}

type PeriodKind string

const (
	PeriodAllDay    PeriodKind = "ALL_DAY"
	PeriodMorning   PeriodKind = "MORNING"
	PeriodAfternoon PeriodKind = "AFTERNOON"
	PeriodEvening   PeriodKind = "EVENING"
	PeriodNight     PeriodKind = "NIGHT"
	PeriodCustom    PeriodKind = "CUSTOM"
)

// Canonical windows for the named periods.
var namedPeriods = map[PeriodKind]ClockRange{
	PeriodMorning:   {Start: NewClockTime(6, 0), End: NewClockTime(12, 0)},
	PeriodAfternoon: {Start: NewClockTime(12, 0), End: NewClockTime(17, 0)},
	PeriodEvening:   {Start: NewClockTime(17, 0), End: NewClockTime(21, 0)},
	PeriodNight:     {Start: NewClockTime(21, 0), End: NewClockTime(6, 0)},
}

// TimePeriod is a recurring daily wall-clock window. Start/End are only
// meaningful for PeriodCustom; End < Start means the window wraps past
// midnight.
type TimePeriod struct {
	Kind  PeriodKind
	Start ClockTime
	End   ClockTime
}

func AllDay() TimePeriod {
	return TimePeriod{Kind: PeriodAllDay}
}

func NamedPeriod(kind PeriodKind) TimePeriod {
	return TimePeriod{Kind: kind}
}

func CustomPeriod(start, end ClockTime) TimePeriod {
	return TimePeriod{Kind: PeriodCustom, Start: start, End: end}
}

func (p TimePeriod) window() (ClockTime, ClockTime, bool) {
	switch p.Kind {
	case PeriodAllDay:
		return 0, 0, false
	case PeriodCustom:
		return p.Start, p.End, true
	default:
		w, ok := namedPeriods[p.Kind]
		return w.Start, w.End, ok
	}
}

// Ranges expands the window into non-wrapping sub-ranges. A window with
// end before start spans midnight and yields two ranges.
func (p TimePeriod) Ranges() []ClockRange {
	start, end, ok := p.window()
	if !ok {
		return []ClockRange{{Start: 0, End: MinutesPerDay}}
	}
	if end > start {
		return []ClockRange{{Start: start, End: end}}
	}
	if end == start {
		// Degenerate custom window matches nothing; AllDay covers the
		// full-day case.
		return nil
	}
	return []ClockRange{
		{Start: start, End: MinutesPerDay},
		{Start: 0, End: end},
	}
}

func (p TimePeriod) Contains(c ClockTime) bool {
	if p.Kind == PeriodAllDay {
		return true
	}
	for _, r := range p.Ranges() {
		if r.Contains(c) {
			return true
		}
	}
	return false
}

// Edges lists the clock instants at which containment can flip. AllDay
// has none.
func (p TimePeriod) Edges() []ClockTime {
	start, end, ok := p.window()
	if !ok {
		return nil
	}
	return []ClockTime{start, end}
}

type DayKind string

const (
	DaysAll      DayKind = "ALL"
	DaysWeekdays DayKind = "WEEKDAYS"
	DaysWeekends DayKind = "WEEKENDS"
	DaysHolidays DayKind = "HOLIDAYS"
	DaysCustom   DayKind = "CUSTOM"
)

// DayType is a recurring calendar-day category. Days is only meaningful
// for DaysCustom.
type DayType struct {
	Kind DayKind
	Days []time.Weekday
}

func AllDays() DayType {
	return DayType{Kind: DaysAll}
}

func NamedDays(kind DayKind) DayType {
	return DayType{Kind: kind}
}

func CustomDays(days ...time.Weekday) DayType {
	return DayType{Kind: DaysCustom, Days: days}
}

// Matches reports whether a day with the given weekday and holiday
// status falls into the category. A holiday weekday is not a "weekday";
// holiday status is otherwise ignored.
func (d DayType) Matches(weekday time.Weekday, holiday bool) bool {
	switch d.Kind {
	case DaysAll:
		return true
	case DaysWeekdays:
		return weekday >= time.Monday && weekday <= time.Friday && !holiday
	case DaysWeekends:
		return weekday == time.Saturday || weekday == time.Sunday
	case DaysHolidays:
		return holiday
	case DaysCustom:
		for _, w := range d.Days {
			if w == weekday {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Instant is a classified point in time: the UTC instant plus its
// weekday, holiday status and wall-clock time in the reference timezone.
type Instant struct {
	Time      time.Time
	Weekday   time.Weekday
	IsHoliday bool
	Clock     ClockTime
}

type TariffRule struct {
	ID           uuid.UUID
	Name         string
	Scope        Scope
	PricePerHour decimal.Decimal
	Priority     int
	Period       TimePeriod
	Days         DayType

	// Optional validity bounds, half-open [ValidFrom, ValidTo). The zero
	// ValidFrom and nil ValidTo mean unbounded.
	ValidFrom time.Time
	ValidTo   *time.Time

	CreatedAt time.Time
}

// AppliesTo reports whether the rule is active at the classified instant:
// inside its validity bounds with both the day type and time period
// matching.
func (r TariffRule) AppliesTo(inst Instant) bool {
	if !r.ValidFrom.IsZero() && inst.Time.Before(r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && !inst.Time.Before(*r.ValidTo) {
		return false
	}
	if !r.Days.Matches(inst.Weekday, inst.IsHoliday) {
		return false
	}
	return r.Period.Contains(inst.Clock)
}
