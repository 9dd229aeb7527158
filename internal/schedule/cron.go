package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bakkerme/subsync/internal/core"
)

// Cron fires on a standard five-field cron expression. Ticks that arrive
// while the previous one is still being handled are dropped.
type Cron struct {
	spec     string
	timezone string
	cron     *cron.Cron
	events   chan core.TriggerEvent
}

func NewCron(spec, timezone string) *Cron {
	return &Cron{spec: spec, timezone: timezone}
}

func (c *Cron) Spec() string {
	return c.spec
}

func (c *Cron) Validate() error {
	if c.spec == "" {
		return fmt.Errorf("cron schedule is required")
	}
	if _, err := c.location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.spec, err)
	}
	return nil
}

func (c *Cron) location() (*time.Location, error) {
	if c.timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}
	return loc, nil
}

// Next reports when the schedule fires after t.
func (c *Cron) Next(t time.Time) (time.Time, error) {
	loc, err := c.location()
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cron.ParseStandard(c.spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron schedule %q: %w", c.spec, err)
	}
	return sched.Next(t.In(loc)), nil
}

// Start begins firing. The channel is closed once ctx is done.
func (c *Cron) Start(ctx context.Context) (<-chan core.TriggerEvent, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	loc, _ := c.location()

	c.events = make(chan core.TriggerEvent, 1)
	c.cron = cron.New(cron.WithLocation(loc))
	if _, err := c.cron.AddFunc(c.spec, func() {
		select {
		case c.events <- core.TriggerEvent{Timestamp: time.Now().UTC()}:
		default:
		}
	}); err != nil {
		return nil, err
	}
	c.cron.Start()

	go func() {
		<-ctx.Done()
		c.stop()
	}()

	return c.events, nil
}

func (c *Cron) stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	if c.events != nil {
		close(c.events)
	}
}
