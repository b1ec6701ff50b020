package timex

import (
	"testing"
	"time"
)

func TestSeconds(t *testing.T) {
	if got := Seconds(5, time.Minute); got != 5*time.Second {
		t.Fatalf("Seconds(5) = %v", got)
	}
	if got := Seconds(0, time.Minute); got != time.Minute {
		t.Fatalf("Seconds(0) = %v, want fallback", got)
	}
}

func TestNowMs(t *testing.T) {
	before := time.Now().UnixMilli()
	if got := NowMs(); got < before {
		t.Fatalf("NowMs went backwards: %d < %d", got, before)
	}
}
