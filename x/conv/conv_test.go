package conv

import "testing"

func TestUtoa(t *testing.T) {
	var buf [20]byte
	cases := map[uint64]string{0: "0", 7: "7", 10: "10", 240: "240", 18446744073709551615: "18446744073709551615"}
	for n, want := range cases {
		if got := string(Utoa(buf[:], n)); got != want {
			t.Fatalf("Utoa(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestHex16(t *testing.T) {
	var buf [4]byte
	cases := map[uint16]string{0: "0000", 0x0402: "0402", 0xBEEF: "beef"}
	for n, want := range cases {
		if got := string(Hex16(buf[:], n)); got != want {
			t.Fatalf("Hex16(%#x) = %q, want %q", n, got, want)
		}
	}
	if got := Hex16(buf[:2], 1); len(got) != 0 {
		t.Fatalf("short buffer should yield empty slice, got %q", got)
	}
}
