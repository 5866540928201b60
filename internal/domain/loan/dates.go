package loan

import "time"

// EffectiveReturnDate is the date every due-date computation uses: the
// requested date of the last approved extension, else the planned return
// date, else the use date, else the submission time.
func EffectiveReturnDate(l *Loan) *time.Time {
	if e := l.Extends().LastApproved(); e != nil && e.RequestedReturnDate != nil {
		return cloneTime(e.RequestedReturnDate)
	}
	for _, t := range []*time.Time{l.ReturnDate, l.UseDate, l.SubmittedAt} {
		if t != nil {
			return cloneTime(t)
		}
	}
	return nil
}

// DaysUntil is the signed number of calendar days from today to due, both
// taken as calendar days in loc. Positive while due, zero on the due day,
// negative once overdue.
func DaysUntil(due, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	d := calendarDay(due.In(loc))
	n := calendarDay(now.In(loc))
	hours := d.Sub(n).Hours()
	days := int(hours / 24)
	if float64(days)*24 > hours {
		days--
	}
	return days
}

// calendarDay pins the date to UTC midnight so DST shifts never produce a
// fractional day.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
