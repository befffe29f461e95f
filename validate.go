package expkeys

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	keyRE     = regexp.MustCompile(`^[A-Za-z_]\w*(?:\.[A-Za-z_]\w*)*$`)
	numericRE = regexp.MustCompile(`^(?:0|[1-9][0-9]*)(?:\.[0-9]+)?$`)
)

// validateUTF8 returns the 1-indexed line and column of the first invalid
// byte and a message, or an empty message if src is valid.
func validateUTF8(src string) (int, int, string) {
	line, col := 1, 1
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		if r == utf8.RuneError && size == 1 {
			return line, col, fmt.Sprintf("invalid UTF-8 byte at position %d", i)
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col += size
		}
		i += size
	}
	return 0, 0, ""
}

// isNumericLiteral reports whether s is an unsigned decimal literal that
// decodes as a number. Signed and exponent forms stay text.
func isNumericLiteral(s string) bool {
	return numericRE.MatchString(s)
}

// validKey reports whether name can follow the statement prefix.
func validKey(name string) bool {
	return keyRE.MatchString(name)
}

func isControlChar(r rune) bool {
	return (r >= 0 && r <= 0x1F) || r == 0x7F
}

// needsDoubleQuotes reports whether text can only be written as an escaped
// double-quoted string.
func needsDoubleQuotes(text string) bool {
	for _, r := range text {
		if isControlChar(r) {
			return true
		}
	}
	return false
}
