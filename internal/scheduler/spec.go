package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// schedule computes the next run time after a reference instant.
type schedule interface {
	Next(time.Time) time.Time
}

var specParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// parseSpec accepts a plain Go duration ("2h"), a cron descriptor
// ("@hourly", "@every 2h"), or a 5-field cron expression ("0 1 * * *").
func parseSpec(raw string) (schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("empty schedule spec")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule interval must be positive: %q", raw)
		}
		return cron.Every(d), nil
	}
	sch, err := specParser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", raw, err)
	}
	return sch, nil
}
