package tools

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"
)

const timeLayout = "2006-01-02 15:04:05"

type TimezoneTool struct {
	now func() time.Time
}

// NewTimezoneTool creates the tool. now may be nil to use time.Now.
func NewTimezoneTool(now func() time.Time) *TimezoneTool {
	if now == nil {
		now = time.Now
	}
	return &TimezoneTool{now: now}
}

func (t *TimezoneTool) Name() string {
	return "get_current_time_in_timezone"
}

func (t *TimezoneTool) Description() string {
	return "Fetches the current local time in a specified timezone."
}

func (t *TimezoneTool) Parameters() map[string]any {
	return stringParams(param{"timezone", "A valid IANA timezone, e.g. 'America/New_York'."})
}

// Invoke reports unknown zones in the returned text rather than as an
// error, so an agent can read and correct its input.
func (t *TimezoneTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	zone, err := readString(args, "timezone")
	if err != nil {
		return "", err
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return fmt.Sprintf("Error fetching time for timezone '%s': %v", zone, err), nil
	}
	return fmt.Sprintf("The current local time in %s is: %s", zone, t.now().In(loc).Format(timeLayout)), nil
}
