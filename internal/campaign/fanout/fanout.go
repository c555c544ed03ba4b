// Package fanout expands a campaign definition into scheduled drops and
// send jobs. It performs no I/O; callers persist the plan atomically.
package fanout

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/campaign/domain"
)

// Spec is a fully resolved campaign definition.
type Spec struct {
	StartDate Date
	// EndDate is inclusive. When nil the campaign runs ContentCount days.
	EndDate      *Date
	ContentCount int
	SendTime     TimeOfDay
	Location     *time.Location
	Channels     []string
	Recipients   []snowflake.ID
	Rotation     []snowflake.ID
	// MaxDays bounds the number of drops; zero means unbounded.
	MaxDays int
}

type Drop struct {
	Position int
	Date     Date
	// RotationIndex is Position mod len(Rotation).
	RotationIndex int
	PublishAtUTC  time.Time
	ContentItemID snowflake.ID
}

type Job struct {
	DropPosition int
	Position     int
	UserID       snowflake.ID
	Channel      string
}

// Plan holds drops in day order and jobs in day, recipient, channel order.
type Plan struct {
	Drops []Drop
	Jobs  []Job
}

// JobsFor returns the jobs of the drop at position.
func (p Plan) JobsFor(position int) []Job {
	if len(p.Drops) == 0 {
		return nil
	}
	perDrop := len(p.Jobs) / len(p.Drops)
	start := position * perDrop
	if position < 0 || start+perDrop > len(p.Jobs) {
		return nil
	}
	return p.Jobs[start : start+perDrop]
}

// Days enumerates the campaign's calendar days.
func Days(spec Spec) ([]Date, error) {
	count, err := dayCount(spec)
	if err != nil {
		return nil, err
	}
	days := make([]Date, 0, count)
	for i := 0; i < count; i++ {
		days = append(days, spec.StartDate.AddDays(i))
	}
	return days, nil
}

// Expand validates spec and computes every drop and send job.
func Expand(spec Spec) (Plan, error) {
	verr := &domain.ValidationError{}

	channels := uniqueChannels(spec.Channels)
	if len(channels) == 0 {
		verr.Add("channels", "required", "at least one channel is required")
	}
	recipients := uniqueIDs(spec.Recipients)
	if len(recipients) == 0 {
		verr.Add("user_ids", "required", "at least one recipient is required")
	}
	if len(spec.Rotation) == 0 {
		verr.Add("content_items", "required", "at least one content item is required")
	}
	if spec.Location == nil {
		verr.Add("timezone", "required", "timezone is required")
	}

	days, err := Days(spec)
	var dayErr *domain.ValidationError
	if errors.As(err, &dayErr) {
		verr.Violations = append(verr.Violations, dayErr.Violations...)
	}
	if err := verr.Err(); err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Drops: make([]Drop, 0, len(days)),
		Jobs:  make([]Job, 0, len(days)*len(recipients)*len(channels)),
	}
	for i, day := range days {
		slot := i % len(spec.Rotation)
		plan.Drops = append(plan.Drops, Drop{
			Position:      i,
			Date:          day,
			RotationIndex: slot,
			PublishAtUTC:  Localize(day, spec.SendTime, spec.Location),
			ContentItemID: spec.Rotation[slot],
		})
		position := 0
		for _, userID := range recipients {
			for _, channel := range channels {
				plan.Jobs = append(plan.Jobs, Job{
					DropPosition: i,
					Position:     position,
					UserID:       userID,
					Channel:      channel,
				})
				position++
			}
		}
	}
	return plan, nil
}

func dayCount(spec Spec) (int, error) {
	verr := &domain.ValidationError{}
	var count int
	switch {
	case spec.EndDate != nil:
		if spec.EndDate.Before(spec.StartDate) {
			verr.Add("end_date", "before_start", "end_date must not be before start_date")
			return 0, verr
		}
		count = spec.StartDate.DaysUntil(*spec.EndDate) + 1
	case spec.ContentCount >= 1:
		count = spec.ContentCount
	default:
		verr.Add("end_date", "required", "end_date is required without content_count")
		return 0, verr
	}
	if spec.MaxDays > 0 && count > spec.MaxDays {
		verr.Add("end_date", "too_long", "campaign exceeds the maximum number of days")
		return 0, verr
	}
	return count, nil
}

func uniqueChannels(channels []string) []string {
	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))
	for _, channel := range channels {
		channel = strings.ToLower(strings.TrimSpace(channel))
		if channel == "" {
			continue
		}
		if _, ok := seen[channel]; ok {
			continue
		}
		seen[channel] = struct{}{}
		out = append(out, channel)
	}
	return out
}

func uniqueIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
