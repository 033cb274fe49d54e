package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidFrequency = errors.New("invalid rotation frequency")

// Frequency is the rotation cadence of a schedule.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
}

func (f Frequency) String() string {
	return string(f)
}

// Next returns the rotation due time that follows from.
//
// Monthly advances one calendar month with the day-of-month clamped to the
// last day of the shorter target month (Jan 31 -> Feb 28). Quarterly is a
// fixed 90 day offset, not calendar-quarter arithmetic; the drift against
// true quarters is accepted documented behavior.
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addCalendarMonth(from)
	case FrequencyQuarterly:
		return from.AddDate(0, 0, 90)
	default:
		return from
	}
}

func addCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := time.Date(firstOfNext.Year(), firstOfNext.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// RotationSchedule holds the rotation cadence and bookkeeping for one
// (provider, tier) pool.
type RotationSchedule struct {
	Provider           string
	Tier               Tier
	Enabled            bool
	Frequency          Frequency
	LastRotationAt     *time.Time
	NextRotationAt     *time.Time
	NotifyOnRotation   bool
	NotificationTarget string
}

// IsDue reports whether a rotation is due at now. A nil or disabled schedule
// is never due; a schedule that has never rotated is due immediately.
func (s *RotationSchedule) IsDue(now time.Time) bool {
	if s == nil || !s.Enabled {
		return false
	}
	if s.NextRotationAt == nil {
		return true
	}
	return !now.Before(*s.NextRotationAt)
}

// RecordSuccess advances the schedule bookkeeping after a successful
// rotation at now. The caller persists the schedule.
func (s *RotationSchedule) RecordSuccess(now time.Time) {
	s.LastRotationAt = &now
	next := s.Frequency.Next(now)
	s.NextRotationAt = &next
}

// ScheduleRepository defines storage for rotation schedules.
type ScheduleRepository interface {
	Get(ctx context.Context, provider string, tier Tier) (*RotationSchedule, error)
	Upsert(ctx context.Context, s *RotationSchedule) error
	List(ctx context.Context) ([]*RotationSchedule, error)
	ListDue(ctx context.Context, now time.Time) ([]*RotationSchedule, error)
}
