package conv

// Hex16 writes n as 4-digit lowercase hex without 0x, zero-padded.
// buf must be at least 4 bytes.
func Hex16(buf []byte, n uint16) []byte {
	if len(buf) < 4 {
		return buf[:0]
	}
	const hexd = "0123456789abcdef"
	i := len(buf)
	for j := 0; j < 4; j++ {
		i--
		buf[i] = hexd[n&0xF]
		n >>= 4
	}
	return buf[i:]
}
