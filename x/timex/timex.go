package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// Seconds converts a whole-second setting to a Duration; values below one
// are coerced to min.
func Seconds(s int, min time.Duration) time.Duration {
	if s < 1 {
		return min
	}
	return time.Duration(s) * time.Second
}
