package model

import "fmt"

// Flags is a set of TCP control bits in wire order.
type Flags uint8

const (
	FlagFIN Flags = 1 << iota
	FlagSYN
	FlagRST
	FlagPSH
	FlagACK
	FlagURG
	FlagECE
	FlagCWR
)

// flagOrder is the column order of the text bitmap, most significant first.
var flagOrder = [8]struct {
	flag Flags
	char byte
}{
	{FlagCWR, 'C'},
	{FlagECE, 'E'},
	{FlagURG, 'U'},
	{FlagACK, 'A'},
	{FlagPSH, 'P'},
	{FlagRST, 'R'},
	{FlagSYN, 'S'},
	{FlagFIN, 'F'},
}

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String renders the 8-char CEUAPRSF bitmap, '.' for unset bits.
func (f Flags) String() string {
	var b [8]byte
	for i, fc := range flagOrder {
		if f.Has(fc.flag) {
			b[i] = fc.char
		} else {
			b[i] = '.'
		}
	}
	return string(b[:])
}

// ParseFlags is the inverse of Flags.String. Any character other than '.'
// marks its position as set.
func ParseFlags(s string) (Flags, error) {
	if len(s) != len(flagOrder) {
		return 0, fmt.Errorf("flag bitmap %q must be %d characters", s, len(flagOrder))
	}
	var f Flags
	for i, fc := range flagOrder {
		if s[i] != '.' {
			f |= fc.flag
		}
	}
	return f, nil
}
