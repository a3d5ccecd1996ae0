package helpers

import (
	"encoding/hex"
	"strconv"

	"github.com/juju/errors"
)

func MustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// IsHex reports whether s is non-empty and contains only hex digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// ParseHexByte accepts "0x27", "0X27", "27".
func ParseHexByte(s string) (byte, error) {
	digits := s
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		digits = s[2:]
	}
	if !IsHex(digits) || len(digits) > 2 {
		return 0, errors.NotValidf("hex byte '%s'", s)
	}
	u, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		return 0, errors.Annotatef(err, "hex byte '%s'", s)
	}
	return byte(u), nil
}
