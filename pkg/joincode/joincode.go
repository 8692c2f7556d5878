// Package joincode generates and normalizes the short codes participants use
// to attach to a running session.
package joincode

import (
	"math/rand/v2"
	"strings"
)

// Alphabet is A-Z and 2-9 without the visually ambiguous 0, O, 1, I and L.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Length is the number of symbols in a join code.
const Length = 6

// Generator produces join codes.
type Generator func() string

// Generate returns a random join code. Codes are not secrets; uniqueness
// among open sessions is checked by the caller.
func Generate() string {
	var b strings.Builder

	b.Grow(Length)

	for range Length {
		b.WriteByte(Alphabet[rand.IntN(len(Alphabet))])
	}

	return b.String()
}

// Normalize trims and upper-cases user input so codes match case-insensitively.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code, once normalized, could have been generated.
func Valid(code string) bool {
	code = Normalize(code)
	if len(code) != Length {
		return false
	}

	for i := range len(code) {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}

	return true
}
