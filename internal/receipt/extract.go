// Package receipt pulls the grand total out of OCR'd receipt text.
package receipt

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	totalWord = regexp.MustCompile(`(?i)\btotal\b`)

	// Last number on the line: nothing but non-digits may follow it.
	lastNumber = regexp.MustCompile(`(\d+\.\d{2}|\d+)\D*$`)
)

// ExtractTotal scans text line by line. The first line that contains "RM" or
// the word "total" is the candidate; the last number on it is the total,
// formatted with two decimals. found is false when there is no candidate line
// or the candidate has no number.
func ExtractTotal(text string) (total string, found bool) {
	for _, line := range strings.Split(text, "\n") {
		if !isCandidate(line) {
			continue
		}
		m := lastNumber.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		d, err := decimal.NewFromString(m[1])
		if err != nil {
			return "", false
		}
		return d.StringFixed(2), true
	}
	return "", false
}

func isCandidate(line string) bool {
	return strings.Contains(line, "RM") || totalWord.MatchString(line)
}
