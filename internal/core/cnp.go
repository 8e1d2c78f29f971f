package core

import (
	"fmt"
	"time"
)

const cnpLength = 13

// ValidCNP reports whether s has the shape of a personal numeric code.
func ValidCNP(s string) bool {
	if len(s) != cnpLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// BirthYearFromCNP reads the birth year from digits 2-3; a leading 1 or 2 places it
// in the 1900s, anything else in the 2000s.
func BirthYearFromCNP(cnp string) (int, error) {
	if !ValidCNP(cnp) {
		return 0, invalid("cnp", fmt.Sprintf("must be exactly %d digits", cnpLength))
	}
	yy := int(cnp[1]-'0')*10 + int(cnp[2]-'0')
	century := 2000
	if cnp[0] == '1' || cnp[0] == '2' {
		century = 1900
	}
	return century + yy, nil
}

// AgeFromCNP is the calendar-year difference between now and the encoded birth year.
func AgeFromCNP(cnp string, now time.Time) (int, error) {
	year, err := BirthYearFromCNP(cnp)
	if err != nil {
		return 0, err
	}
	return now.Year() - year, nil
}
