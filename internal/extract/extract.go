package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"referral-engine/internal/domain"
)

// Digits and whitespace are Unicode-aware: any decimal digit (Nd) counts,
// and whitespace includes NBSP, U+202F and the other Z separators.
//   - line:     [DD/MM/YY, H:MM AM] Sender: Text
//   - business: one or more Capitalized words separated by whitespace
//
// Phone numbers are matched by phoneAt.
const space = `[\t\n\v\f\r\x1c-\x1f\x{85}\p{Z}]`

var (
	lineRe     = regexp.MustCompile(`\[\p{Nd}{2}/\p{Nd}{2}/\p{Nd}{2}, \p{Nd}{1,2}:\p{Nd}{2} [APM]{2}\] (.*?): (.*)`)
	businessRe = regexp.MustCompile(`[A-Z][a-z]+(?:` + space + `[A-Z][a-z]+)*`)
)

var keywords = []string{
	"recommend",
	"try",
	"call",
	"great",
	"looking for",
	"know a good",
	"fixed my",
	"super reliable",
}

// ErrDecode is matched by every DecodeError.
var ErrDecode = errors.New("transcript is not valid UTF-8")

type DecodeError struct {
	Name   string
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: invalid UTF-8 at byte %d", e.Name, e.Offset)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// Referrals decodes a transcript and returns its referrals in line order.
// Undecodable input fails as a whole; name only labels the error.
func Referrals(name string, b []byte) ([]domain.Referral, error) {
	if off := firstInvalid(b); off >= 0 {
		return nil, &DecodeError{Name: name, Offset: off}
	}
	return FromText(string(b)), nil
}

func FromText(text string) []domain.Referral {
	var out []domain.Referral
	for _, line := range splitLines(text) {
		if r, ok := ParseLine(line); ok {
			out = append(out, r)
		}
	}
	return out
}

// ParseLine reports whether a single transcript line is a referral.
func ParseLine(line string) (domain.Referral, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return domain.Referral{}, false
	}
	sender, message := m[1], m[2]
	if !HasKeyword(message) {
		return domain.Referral{}, false
	}
	return domain.Referral{
		Sender:       sender,
		BusinessName: BusinessName(message),
		Contact:      Contact(message),
		Message:      message,
	}, true
}

func HasKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Contact returns the first phone-number-shaped run, separators intact: three
// digits, an optional separator, three digits, an optional separator and four
// digits, not touching a letter, digit or underscore on either side.
func Contact(message string) string {
	rs := []rune(message)
	for i := range rs {
		if i > 0 && isWord(rs[i-1]) {
			continue
		}
		if end, ok := phoneAt(rs, i); ok {
			return string(rs[i:end])
		}
	}
	return domain.NoContact
}

// phoneAt reports where a phone number starting at rs[i] ends. A separator
// is preferred over its absence at each position, so "555-1234567" matches.
func phoneAt(rs []rune, i int) (int, bool) {
	j, ok := digits(rs, i, 3)
	if !ok {
		return 0, false
	}
	for _, sep1 := range []bool{true, false} {
		k, ok := optSep(rs, j, sep1)
		if !ok {
			continue
		}
		if k, ok = digits(rs, k, 3); !ok {
			continue
		}
		for _, sep2 := range []bool{true, false} {
			m, ok := optSep(rs, k, sep2)
			if !ok {
				continue
			}
			end, ok := digits(rs, m, 4)
			if ok && (end == len(rs) || !isWord(rs[end])) {
				return end, true
			}
		}
	}
	return 0, false
}

func digits(rs []rune, i, n int) (int, bool) {
	if i+n > len(rs) {
		return 0, false
	}
	for _, r := range rs[i : i+n] {
		if !unicode.IsDigit(r) {
			return 0, false
		}
	}
	return i + n, true
}

func optSep(rs []rune, i int, want bool) (int, bool) {
	if !want {
		return i, true
	}
	if i < len(rs) && (rs[i] == '-' || rs[i] == '.' || isSpace(rs[i])) {
		return i + 1, true
	}
	return 0, false
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isSpace(r rune) bool {
	switch {
	case r >= '\t' && r <= '\r', r >= 0x1c && r <= 0x1f, r == 0x85:
		return true
	}
	return unicode.In(r, unicode.Zs, unicode.Zl, unicode.Zp)
}

func BusinessName(message string) string {
	if s := businessRe.FindString(message); s != "" {
		return s
	}
	return domain.UnknownBusiness
}

// splitLines follows universal-newline reading: \r\n, \r and \n all end a line.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func firstInvalid(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}
