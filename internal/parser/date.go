package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownMonth is returned for a month name outside the genitive list.
var ErrUnknownMonth = errors.New("unknown month")

var russianMonths = []string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// ParseRussianDate parses dates written like "24 апреля 2017".
func ParseRussianDate(s string) (time.Time, error) {
	parts := strings.Fields(s)
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("parse date %q: expected day, month and year", s)
	}
	month := -1
	name := strings.ToLower(parts[1])
	for i, m := range russianMonths {
		if m == name {
			month = i + 1
			break
		}
	}
	if month < 0 {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, ErrUnknownMonth)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: day: %w", s, err)
	}
	year, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSuffix(parts[2], "."), "г"))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: year: %w", s, err)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}
