package workspace

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strings"
)

var (
	pinLetters = "ABCDEFGHJKLMNPQRSTUVWXYZ" // no I/O, they read as 1/0
	pinDigits  = "0123456789"
	pinRegex   = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)
	pinSepRe   = regexp.MustCompile(`[\s._-]+`)
)

// GeneratePIN returns a random PIN of the form "ABCD-1234".
func GeneratePIN() (string, error) {
	var b strings.Builder
	b.Grow(9)
	for i := 0; i < 8; i++ {
		if i == 4 {
			b.WriteByte('-')
		}
		alphabet := pinLetters
		if i >= 4 {
			alphabet = pinDigits
		}
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizePIN upper-cases a PIN and drops whitespace and separators, so "abcd 1234"
// resolves to "ABCD-1234". Input that does not compact to 8 characters is only
// trimmed and upper-cased.
func NormalizePIN(pin string) string {
	pin = strings.ToUpper(strings.TrimSpace(pin))
	compact := pinSepRe.ReplaceAllString(pin, "")
	if len(compact) != 8 {
		return pin
	}
	return compact[:4] + "-" + compact[4:]
}

func validPIN(pin string) bool {
	return pinRegex.MatchString(pin)
}
