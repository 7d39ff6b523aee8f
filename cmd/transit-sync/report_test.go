package main

import (
	"bytes"
	"strings"
	"testing"

	"transit-sync/internal/syncer"
	"transit-sync/internal/transit"
)

func TestPrintRouteStats(t *testing.T) {
	var buf bytes.Buffer
	printRouteStats(&buf, syncer.RouteStats{
		Type:          transit.Bus,
		Parsed:        []transit.ParsedRoute{{Code: "12", Name: "12"}},
		Added:         []string{"12"},
		Existing:      []string{"1", "2"},
		Canceled:      []string{"3"},
		CanceledTotal: []string{"3", "4"},
	}, true)

	want := "Автобус routes:\n12\t12\n" +
		"Sync bus routes DONE\n" +
		"\tadded: 1\n\tupdated: 0\n\texists: 2\n\tcanceled: 1\n\tcanceled total: 2\n"
	if buf.String() != want {
		t.Errorf("output =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPrintScheduleStats(t *testing.T) {
	var buf bytes.Buffer
	printScheduleStats(&buf, syncer.ScheduleRunStats{
		Type:   transit.Trolleybus,
		Routes: 2,
		PerRoute: []syncer.ScheduleStats{
			{Matched: 3, Unmatched: 1},
			{Matched: 1, Aliased: 1, Aborted: true},
		},
	})
	out := buf.String()
	for _, want := range []string{"Sync trolleybus week schedule STOPPED", "\tmatched: 4\n", "\taliased: 1\n", "\tunmatched: 1\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseTypes(t *testing.T) {
	got, err := parseTypes("all")
	if err != nil || len(got) != 2 {
		t.Errorf("parseTypes(all) = %v, %v", got, err)
	}
	got, err = parseTypes("trolleybus")
	if err != nil || len(got) != 1 || got[0] != transit.Trolleybus {
		t.Errorf("parseTypes(trolleybus) = %v, %v", got, err)
	}
	if _, err := parseTypes("tram"); err == nil {
		t.Error("parseTypes(tram) succeeded")
	}
}
