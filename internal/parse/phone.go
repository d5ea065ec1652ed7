package parse

import (
	"fmt"
	"regexp"
	"strings"
)

var nonDigitRe = regexp.MustCompile(`\D+`)

const defaultCountryCode = "55"

// Phone is a Brazilian phone number split into its parts.
type Phone struct {
	CountryCode string
	AreaCode    string
	Number      string
}

// Digits returns the national number (area code + subscriber number) as stored.
func (p Phone) Digits() string {
	return p.AreaCode + p.Number
}

// String formats the number the way it is written on order slips, e.g. "(11) 98765-4321".
// Numbers too short to split are returned as plain digits.
func (p Phone) String() string {
	if len(p.Number) < 5 {
		return p.Digits()
	}
	split := len(p.Number) - 4
	return fmt.Sprintf("(%s) %s-%s", p.AreaCode, p.Number[:split], p.Number[split:])
}

// DigitsOnly strips everything but digits. Used for partial phone searches.
func DigitsOnly(raw string) string {
	return nonDigitRe.ReplaceAllString(raw, "")
}

// ParsePhone normalizes the many ways a phone number gets typed at the counter:
// "(11) 98765-4321", "+55 11 98765 4321", "011 3456-7890", "11987654321".
func ParsePhone(raw string) (Phone, error) {
	s := strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(s, "+")
	digits := DigitsOnly(s)

	// 1) Drop the country code when present.
	if (hasPlus || len(digits) > 11) && strings.HasPrefix(digits, defaultCountryCode) && len(digits) >= 12 {
		digits = digits[len(defaultCountryCode):]
	} else if hasPlus {
		return Phone{}, fmt.Errorf("unsupported country code in phone: %q", raw)
	}

	// 2) Drop the long-distance trunk prefix "0".
	if strings.HasPrefix(digits, "0") && (len(digits) == 11 || len(digits) == 12) {
		digits = digits[1:]
	}

	// 3) What remains must be area code + 8 or 9 digit number.
	if len(digits) != 10 && len(digits) != 11 {
		return Phone{}, fmt.Errorf("unable to parse phone: %q", raw)
	}
	area, number := digits[:2], digits[2:]
	if area[0] == '0' {
		return Phone{}, fmt.Errorf("invalid area code in phone: %q", raw)
	}
	if len(number) == 9 && number[0] != '9' {
		return Phone{}, fmt.Errorf("nine digit numbers must start with 9: %q", raw)
	}

	return Phone{CountryCode: defaultCountryCode, AreaCode: area, Number: number}, nil
}
