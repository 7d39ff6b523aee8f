package parser

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrTimetableLayout is returned when a timetable page lacks the expected tables.
var ErrTimetableLayout = errors.New("unexpected timetable layout")

const asOfMarker = "по состоянию"

// Timetable is the part of a route timetable page the sync uses.
type Timetable struct {
	// Days lists the weekdays (1..7) the page offers schedules for.
	Days []int
	// AsOf is the raw "last updated" annotation, empty when absent.
	AsOf string
	// Stops are the column headers of the schedule table in page order.
	Stops []string
}

// AsOfDate parses the last-updated annotation. An empty annotation yields
// the zero time and no error.
func (t *Timetable) AsOfDate() (time.Time, error) {
	if t.AsOf == "" {
		return time.Time{}, nil
	}
	return ParseRussianDate(t.AsOf)
}

func ParseTimetable(r io.Reader) (*Timetable, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse timetable page: %w", err)
	}

	top := doc.Find("table.top").First()
	if top.Length() == 0 {
		return nil, fmt.Errorf("missing table.top: %w", ErrTimetableLayout)
	}
	tt := doc.Find("table.t").First()
	if tt.Length() == 0 {
		return nil, fmt.Errorf("missing table.t: %w", ErrTimetableLayout)
	}

	res := &Timetable{}

	// The navigation table switches between weekday, weekend and special-day
	// schedules; its links carry the variant as a code suffix.
	top.Find(`table[align="center"] a`).Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		switch {
		case strings.Contains(href, "_r"):
			res.Days = append(res.Days, 1)
		case strings.Contains(href, "_v"), strings.Contains(href, "_s"):
			if slices.Contains(res.Days, 6) {
				res.Days = append(res.Days, 7)
			} else {
				res.Days = append(res.Days, 6)
			}
		}
	})

	rows := top.Find("tr")
	if rows.Length() > 5 {
		rows = rows.Slice(0, 5)
	}
	rows.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		td := tr.Find(`td[align="center"]`).First()
		if td.Length() == 0 || !strings.Contains(td.Text(), asOfMarker) {
			return true
		}
		res.AsOf = strings.TrimSpace(td.Find("font").First().Text())
		return false
	})

	tt.Find("tr").First().ChildrenFiltered("td").Each(func(_ int, td *goquery.Selection) {
		res.Stops = append(res.Stops, strings.TrimSpace(td.Text()))
	})
	if len(res.Stops) == 0 {
		return nil, fmt.Errorf("no stop headers in table.t: %w", ErrTimetableLayout)
	}
	return res, nil
}
