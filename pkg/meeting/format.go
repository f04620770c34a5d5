package meeting

import (
	"fmt"
	"time"
)

// DateLayout renders dates as "Jan 2, 2006, 03:04 PM".
const DateLayout = "Jan 2, 2006, 03:04 PM"

// FormatDate renders t in loc for display. A nil loc means local time.
func FormatDate(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// FormatDuration renders seconds as m:ss. Negative values render as 0:00.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
