package strategy

import "time"

// DateFormat is the timestamp layout shared by every strategy:
// four-digit year, month, day, then 24-hour hour and minute.
const DateFormat = "2006-01-02 15:04"

// FormatTime renders t with DateFormat. The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateFormat)
}

// ParseTime parses s with DateFormat, interpreting it in UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}
