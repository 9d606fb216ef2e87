package postgres

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HolidayCalendar keeps the holiday date set in memory so IsHoliday is a
// pure lookup on the pricing path. The set is reloaded on an interval;
// pricing tolerates bounded staleness as long as each computation sees
// one consistent set.
type HolidayCalendar struct {
	store *SQLStore
	log   *zap.Logger

	mu    sync.RWMutex
	dates map[string]struct{}
}

func NewHolidayCalendar(ctx context.Context, store *SQLStore, log *zap.Logger) (*HolidayCalendar, error) {
	c := &HolidayCalendar{
		store: store,
		log:   log,
		dates: make(map[string]struct{}),
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	key := date.Format(time.DateOnly)
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.dates[key]
	return ok
}

func (c *HolidayCalendar) Reload(ctx context.Context) error {
	days, err := c.store.ListHolidays(ctx)
	if err != nil {
		return err
	}
	dates := make(map[string]struct{}, len(days))
	for _, d := range days {
		dates[d.Format(time.DateOnly)] = struct{}{}
	}

	c.mu.Lock()
	c.dates = dates
	c.mu.Unlock()
	return nil
}

// Run refreshes the calendar until ctx is cancelled.
func (c *HolidayCalendar) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Reload(ctx); err != nil {
				c.log.Warn("holiday calendar refresh failed", zap.Error(err))
			}
		}
	}
}
