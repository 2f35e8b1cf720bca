package tx

// appendShortvec appends n in the compact-u16 ("shortvec") encoding used
// by the transaction wire format: 7 bits per byte, high bit set while
// more bytes follow.
func appendShortvec(buf []byte, n int) []byte {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}
