package utils

import (
	"fmt"
	"math"
	"time"
)

// FormatDate formats a time.Time as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatProcessingTime formats whole seconds as "Ns" below a minute and
// "Mm Ss" from a minute up
func FormatProcessingTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// RoundSeconds converts a duration to seconds, rounded to 1 decimal place
func RoundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*10) / 10
}
