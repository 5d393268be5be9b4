package linkedinpublic

import (
	"sync"
	"time"

	"leadscout/internal/errors"
)

// DailyCounter caps requests per calendar day. It belongs to one Scraper;
// nothing about it is process-wide.
type DailyCounter struct {
	mu    sync.Mutex
	limit int
	count int
	day   string
	now   func() time.Time
}

func NewDailyCounter(limit int, now func() time.Time) *DailyCounter {
	if now == nil {
		now = time.Now
	}
	return &DailyCounter{limit: limit, now: now, day: now().Format(time.DateOnly)}
}

// Rollover resets the count when the local date has changed since the last
// reset. Scrape calls it once at the start of every run.
func (c *DailyCounter) Rollover() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	today := c.now().Format(time.DateOnly)
	if today == c.day {
		return false
	}
	c.day = today
	c.count = 0
	return true
}

// Take reserves one request, or fails with ErrDailyLimit.
func (c *DailyCounter) Take() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count >= c.limit {
		return errors.Mark(errors.Newf("linkedin_public: %d requests already made today", c.count), errors.ErrDailyLimit)
	}
	c.count++
	return nil
}

func (c *DailyCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func (c *DailyCounter) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(c.limit-c.count, 0)
}
