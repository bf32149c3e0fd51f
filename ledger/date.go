package ledger

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateID formats t as YYYY-MM-DD in t's own location.
func DateID(t time.Time) string {
	return t.Format(dateLayout)
}

func ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	return t, nil
}

func ShiftDate(date string, days int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return DateID(t.AddDate(0, 0, days)), nil
}
