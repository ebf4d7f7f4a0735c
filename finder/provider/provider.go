package provider

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Error kinds. Wrap one of them with fmt.Errorf("%w: ...") so callers can
// classify a failure with errors.Is and still print a readable message.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrDataSource    = errors.New("data source error")
	ErrCatalog       = errors.New("catalog error")
)

// ParsePrice converts a raw price string from a pricing source into a
// nullable decimal. Missing values and anything that isn't a finite number
// (e.g. "NaN", "Inf", "") come back with Valid set to false.
func ParsePrice(raw *string) decimal.NullDecimal {
	if raw == nil {
		return decimal.NullDecimal{}
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Contains reports whether v is present in elems.
func Contains(elems []string, v string) bool {
	for _, s := range elems {
		if v == s {
			return true
		}
	}
	return false
}

// IsMatchAny reports whether text matches any of the regular expressions.
// An empty list matches everything.
func IsMatchAny(regexList []*regexp.Regexp, text string) bool {
	if len(regexList) == 0 {
		return true
	}
	for _, regex := range regexList {
		if regex.MatchString(text) {
			return true
		}
	}
	return false
}
