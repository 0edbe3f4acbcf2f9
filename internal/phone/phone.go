// Package phone normalizes free-form phone numbers for identity matching.
package phone

import "strings"

const (
	// TailLength is how many trailing digits identify a number, which makes
	// country-code prefixes like "+1" irrelevant.
	TailLength = 10
	// MinDigits guards against matching on very short inputs.
	MinDigits = 7
)

// Digits strips every non-digit character.
func Digits(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Tail returns the last TailLength digits of raw. ok is false when fewer than
// MinDigits digits remain.
func Tail(raw string) (tail string, ok bool) {
	d := Digits(raw)
	if len(d) < MinDigits {
		return "", false
	}
	if len(d) > TailLength {
		d = d[len(d)-TailLength:]
	}
	return d, true
}

// Tails splits a stored value on commas and returns the tail of every
// eligible number, in order, without duplicates.
func Tails(stored string) []string {
	var out []string
	seen := map[string]bool{}
	for _, part := range strings.Split(stored, ",") {
		t, ok := Tail(part)
		if !ok || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Matches reports whether any number in stored has the given tail.
func Matches(stored, tail string) bool {
	for _, t := range Tails(stored) {
		if t == tail {
			return true
		}
	}
	return false
}

// Overlap returns the first tail shared by a and b.
func Overlap(a, b string) (string, bool) {
	bt := Tails(b)
	for _, t := range Tails(a) {
		for _, u := range bt {
			if t == u {
				return t, true
			}
		}
	}
	return "", false
}
