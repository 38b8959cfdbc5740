// Package boleto builds and decodes the 44-digit boleto barcode and its
// linha digitável (FEBRABAN bank slip).
//
// Everything here is pure: same input, same output, no I/O.
package boleto

import (
	"fmt"
	"strings"
	"time"
)

// fatorBase is the day zero of the due date factor.
var fatorBase = time.Date(1997, time.October, 7, 0, 0, 0, 0, time.UTC)

// Mod11 returns the overall barcode check digit. Weights 2..9 cycle from
// the rightmost digit. Non-digit bytes are ignored.
func Mod11(digits string) int {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			continue
		}
		sum += int(c-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}

	switch r := sum % 11; r {
	case 0, 1:
		return 0
	case 10:
		return 1
	default:
		return 11 - r
	}
}

// Mod10 returns the check digit of one linha digitável block. Weights
// alternate 2,1 from the rightmost digit; products above 9 have their
// digits summed. Non-digit bytes are ignored.
func Mod10(digits string) int {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			continue
		}
		p := int(c-'0') * weight
		if p > 9 {
			p = p/10 + p%10
		}
		sum += p
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return (10 - sum%10) % 10
}

// FatorVencimento encodes a due date as the number of days since
// 1997-10-07 modulo 10000. A zero time (no due date) yields "0000".
//
// Known limitation: the modulo makes the factor repeat every 10000 days
// (2025-02-22 encodes as "0000" again). It is kept as is.
func FatorVencimento(due time.Time) string {
	if due.IsZero() {
		return "0000"
	}
	days := civilDays(due)
	return fmt.Sprintf("%04d", ((days%10000)+10000)%10000)
}

// civilDays counts whole days between the base date and the calendar date
// of t, ignoring its clock and location.
func civilDays(t time.Time) int {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(fatorBase).Hours() / 24)
}

// dateFromFator is the inverse used when decoding typed barcodes. The
// factor is read from the base date; wrapped factors are not disambiguated.
func dateFromFator(fator int) time.Time {
	return fatorBase.AddDate(0, 0, fator)
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// FitDigits keeps the digits of s, left pads them with zeros and keeps the
// rightmost n.
func FitDigits(s string, n int) string {
	d := Digits(s)
	if len(d) < n {
		return strings.Repeat("0", n-len(d)) + d
	}
	return d[len(d)-n:]
}
