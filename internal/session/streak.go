package session

import (
	"time"

	"github.com/vytor/learner/internal/models"
)

// CalendarDay returns the calendar date of t in loc as UTC midnight.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// AdvanceStreak returns the streak after a session completed at completedAt.
// Completing again on the same day only counts the session; the next day
// extends the streak; any longer gap starts over at 1.
func AdvanceStreak(s models.Streak, completedAt time.Time, loc *time.Location) models.Streak {
	today := CalendarDay(completedAt, loc)

	switch {
	case s.LastSessionDate == nil || s.CurrentStreak == 0:
		s.CurrentStreak = 1
	default:
		last := CalendarDay(*s.LastSessionDate, time.UTC)
		switch gap := daysBetween(last, today); {
		case gap <= 0:
			// same day, or a clock that went backwards
		case gap == 1:
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	if s.LastSessionDate == nil || today.After(*s.LastSessionDate) {
		s.LastSessionDate = &today
	}
	s.TotalSessions++
	s.UpdatedAt = completedAt.UTC()
	return s
}

// StreakAtRisk reports whether the streak lapses unless a session is completed today.
func StreakAtRisk(s models.Streak, now time.Time, loc *time.Location) bool {
	if s.LastSessionDate == nil || s.CurrentStreak == 0 {
		return false
	}
	return daysBetween(CalendarDay(*s.LastSessionDate, time.UTC), CalendarDay(now, loc)) >= 1
}

// Info renders a stored streak for callers.
func Info(s *models.Streak, now time.Time, loc *time.Location) models.StreakInfo {
	if s == nil {
		return models.StreakInfo{}
	}
	return models.StreakInfo{
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		LastSessionDate: s.LastSessionDate,
		TotalSessions:   s.TotalSessions,
		AtRisk:          StreakAtRisk(*s, now, loc),
	}
}
