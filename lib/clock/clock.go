package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// MonthDay formats a time as MM-DD, the key used for birthday lookups.
func MonthDay(t time.Time) string {
	return t.Format("01-02")
}

// ParseMonthDay canonicalizes user input like "7-9" or "07-09" to MM-DD.
// Feb 29 is accepted so leap-day birthdays stay storable.
func ParseMonthDay(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return "", fmt.Errorf("not a MM-DD date: %s", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("not a MM-DD date: %s", s)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("not a MM-DD date: %s", s)
	}
	canonical := fmt.Sprintf("%02d-%02d", month, day)
	if _, err = time.Parse("01-02", canonical); err != nil {
		return "", fmt.Errorf("not a valid calendar date: %s", s)
	}
	return canonical, nil
}
