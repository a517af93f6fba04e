package usecase

import (
	"time"

	errwrap "github.com/pkg/errors"
)

const (
	dateLayout   = "2006-01-02"
	windowLayout = "2006-01-02 15:04:05"

	// cacheGuardInterval widens cursor-cache windows by one minute on each
	// side. last_active_time moves at sampling granularity, so an exact
	// window can exclude rows the caller meant to see. AWR and ASH store
	// exact timestamps and are never widened.
	cacheGuardInterval = time.Minute
)

// Window is a resolved begin/end instant pair a tier query is scoped to.
type Window struct {
	Begin time.Time
	End   time.Time
}

// ResolveWindow converts a calendar date plus optional HH:MM wall-clock
// bounds into a concrete window. Date only: [date 00:00, date+1 00:00).
// With times: [date+start, date+end].
func ResolveWindow(date, startTime, endTime string) (Window, error) {
	funcName := "usecase.ResolveWindow"

	day, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return Window{}, errwrap.Wrap(err, funcName)
	}

	if startTime == "" && endTime == "" {
		return Window{Begin: day, End: day.AddDate(0, 0, 1)}, nil
	}

	begin := day
	if startTime != "" {
		t, err := time.Parse("15:04", startTime)
		if err != nil {
			return Window{}, errwrap.Wrap(err, funcName)
		}
		begin = day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}

	end := day.Add(23*time.Hour + 59*time.Minute)
	if endTime != "" {
		t, err := time.Parse("15:04", endTime)
		if err != nil {
			return Window{}, errwrap.Wrap(err, funcName)
		}
		end = day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
	}

	return Window{Begin: begin, End: end}, nil
}

// Widened pushes both bounds out by d.
func (w Window) Widened(d time.Duration) Window {
	return Window{Begin: w.Begin.Add(-d), End: w.End.Add(d)}
}

// BeginString formats the begin bound for TO_DATE binds.
func (w Window) BeginString() string {
	return w.Begin.Format(windowLayout)
}

// EndString formats the end bound for TO_DATE binds.
func (w Window) EndString() string {
	return w.End.Format(windowLayout)
}

// DayGap is the number of calendar days between now's date and the requested
// date. 0 means today, 1 yesterday. Future dates report 0 so they are still
// window-filtered.
func DayGap(now time.Time, date string) int {
	day, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	gap := int(today.Sub(day).Hours() / 24)
	if gap < 0 {
		return 0
	}
	return gap
}
