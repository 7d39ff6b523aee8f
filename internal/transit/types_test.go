package transit

import (
	"testing"
	"time"
)

func TestParseEnums(t *testing.T) {
	if rt, err := ParseRouteType("trolleybus"); err != nil || rt != Trolleybus {
		t.Errorf("ParseRouteType = %q, %v", rt, err)
	}
	if _, err := ParseRouteType("tram"); err == nil {
		t.Error("ParseRouteType should reject tram")
	}
	if d, err := ParseDirection("circular"); err != nil || d != Circular {
		t.Errorf("ParseDirection = %q, %v", d, err)
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Error("ParseDirection should reject sideways")
	}
	if p, err := ParseProviderType("2gis_route_api"); err != nil || p != TwoGISRouteAPI {
		t.Errorf("ParseProviderType = %q, %v", p, err)
	}
	if Bus.Label() != "Автобус" || Backward.Label() != "Назад" || RoutesHTMLPage.Label() != "Routes HTML-page" {
		t.Error("unexpected labels")
	}
}

func TestStopSame(t *testing.T) {
	p := &Platform{Name: "Вокзал"}
	q := &Platform{Name: "Вокзал"}
	a := &Stop{Platform: p, Lon: 31.1, Lat: 58.5}
	b := &Stop{Platform: q, Lon: 31.1, Lat: 58.5}
	if !a.Same(b) {
		t.Error("unsaved stops with equal platform name and coords should match")
	}
	c := &Stop{Platform: &Platform{Name: "Рынок"}, Lon: 31.1, Lat: 58.5}
	if a.Same(c) {
		t.Error("stops of different platforms should not match")
	}
	d := &Stop{ID: 1, Platform: p, Lon: 1, Lat: 1}
	e := &Stop{ID: 1, Platform: c.Platform, Lon: 2, Lat: 2}
	if !d.Same(e) {
		t.Error("stored stops compare by ID")
	}
}

func TestSamePlatform(t *testing.T) {
	if !SamePlatform(&Platform{ID: 3, Name: "a"}, &Platform{ID: 3, Name: "b"}) {
		t.Error("same ID should match")
	}
	if SamePlatform(&Platform{ID: 3, Name: "a"}, &Platform{ID: 4, Name: "a"}) {
		t.Error("different IDs should not match")
	}
	if SamePlatform(nil, &Platform{}) {
		t.Error("nil should not match")
	}
}

func TestNewDateDimension(t *testing.T) {
	// 2017-04-24 was a Monday in ISO week 17.
	dd := NewDateDimension(time.Date(2017, time.April, 24, 15, 4, 0, 0, time.UTC))
	if dd.Year != 2017 || dd.Month != 4 || dd.Day != 24 || dd.WeekOfYear != 17 {
		t.Errorf("unexpected dimension %+v", dd)
	}
	if dd.Week.Weekday != 1 || dd.Week.Weekend {
		t.Errorf("unexpected week bucket %+v", dd.Week)
	}
	if dd.Date.Hour() != 0 {
		t.Errorf("date should be truncated, got %v", dd.Date)
	}

	sun := NewDateDimension(time.Date(2017, time.April, 30, 0, 0, 0, 0, time.UTC))
	if sun.Week.Weekday != 7 || !sun.Week.Weekend {
		t.Errorf("sunday bucket = %+v", sun.Week)
	}
}

func TestScheduleVariant(t *testing.T) {
	week := &WeekDimension{ID: 2}
	date := &DateDimension{Week: WeekDimension{ID: 5}}
	if got := (ScheduleVariant{Week: week}).WeekDimensionID(); got != 2 {
		t.Errorf("week variant = %d", got)
	}
	if got := (ScheduleVariant{Week: week, Date: date}).WeekDimensionID(); got != 5 {
		t.Errorf("date variant = %d", got)
	}
	if got := (ScheduleVariant{}).WeekDimensionID(); got != 0 {
		t.Errorf("empty variant = %d", got)
	}
}

func TestRoutePointClock(t *testing.T) {
	rp := RoutePoint{Time: 3*time.Hour + 7*time.Minute + 9*time.Second}
	if rp.Clock() != "03:07:09" {
		t.Errorf("Clock = %q", rp.Clock())
	}
}
