package session

import (
	"time"

	apperr "github.com/Hadesalive/smart-attendace-tracking-sub005/pkg/errors"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05"}

// parseClock parses HH:MM or HH:MM:SS.
func parseClock(v string) (time.Time, bool) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Window combines the session's naive date and times into instants in loc.
func Window(s Session, loc *time.Location) (start, end time.Time, err error) {
	day, err := time.ParseInLocation(dateLayout, s.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.NewValidationError("date", "must be YYYY-MM-DD")
	}
	st, ok := parseClock(s.StartTime)
	if !ok {
		return time.Time{}, time.Time{}, apperr.NewValidationError("start_time", "must be HH:MM or HH:MM:SS")
	}
	et, ok := parseClock(s.EndTime)
	if !ok {
		return time.Time{}, time.Time{}, apperr.NewValidationError("end_time", "must be HH:MM or HH:MM:SS")
	}
	start = time.Date(day.Year(), day.Month(), day.Day(), st.Hour(), st.Minute(), st.Second(), 0, loc)
	end = time.Date(day.Year(), day.Month(), day.Day(), et.Hour(), et.Minute(), et.Second(), 0, loc)
	return start, end, nil
}

// ResolveStatus derives the lifecycle state of s at now. The naive date and
// times are read in now's location. It never returns StatusCancelled.
func ResolveStatus(s Session, now time.Time) (Status, error) {
	start, end, err := Window(s, now.Location())
	if err != nil {
		return "", err
	}
	switch {
	case now.Before(start):
		return StatusScheduled, nil
	case now.After(end):
		return StatusCompleted, nil
	default:
		return StatusActive, nil
	}
}

// EffectiveStatus is ResolveStatus with the manual cancellation override applied.
func EffectiveStatus(s Session, now time.Time) (Status, error) {
	if s.Cancelled {
		return StatusCancelled, nil
	}
	return ResolveStatus(s, now)
}

// Annotate attaches the effective status to every session. Rows whose
// date or times cannot be parsed fall back to their stored status.
func Annotate(sessions []Session, now time.Time) []View {
	out := make([]View, 0, len(sessions))
	for _, s := range sessions {
		st, err := EffectiveStatus(s, now)
		if err != nil {
			st = s.Status
		}
		out = append(out, View{Session: s, Effective: st})
	}
	return out
}
