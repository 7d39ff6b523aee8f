package main

import (
	"fmt"
	"io"

	"transit-sync/internal/providers"
	"transit-sync/internal/syncer"
)

func printRouteStats(w io.Writer, st syncer.RouteStats, verbose bool) {
	if verbose {
		fmt.Fprintf(w, "%s routes:\n", st.Type.Label())
		for _, r := range st.Parsed {
			fmt.Fprintf(w, "%s\t%s\n", r.Code, r.Name)
		}
	}
	fmt.Fprintf(w, "Sync %s routes DONE\n", st.Type)
	fmt.Fprintf(w, "\tadded: %d\n\tupdated: %d\n\texists: %d\n\tcanceled: %d\n\tcanceled total: %d\n",
		len(st.Added), len(st.Updated), len(st.Existing), len(st.Canceled), len(st.CanceledTotal))
}

func printProviderStats(w io.Writer, st providers.ApplyStats) {
	fmt.Fprintln(w, "Seed data providers DONE")
	fmt.Fprintf(w, "\tcreated: %d\n\tupdated: %d\n\tbound: %d\n", st.Created, st.Updated, st.Bound)
}

func printPlatformStats(w io.Writer, st syncer.PlatformStats) {
	platforms, stops, points := st.Created()
	fmt.Fprintf(w, "Sync %s routes platforms DONE\n", st.Type)
	fmt.Fprintf(w, "\troutes: %d\n\tsynced: %d\n\tskipped: %d\n\tfailed: %d\n", st.Routes, st.Synced, st.Skipped, st.Failed)
	fmt.Fprintf(w, "\tplatforms created: %d\n\tstops created: %d\n\tpoints created: %d\n", platforms, stops, points)
}

func printScheduleStats(w io.Writer, st syncer.ScheduleRunStats) {
	var matched, aliased, ambiguous, unmatched int
	for _, r := range st.PerRoute {
		matched += r.Matched
		aliased += r.Aliased
		ambiguous += r.Ambiguous
		unmatched += r.Unmatched
	}
	status := "DONE"
	if st.Aborted() {
		status = "STOPPED"
	}
	fmt.Fprintf(w, "Sync %s week schedule %s\n", st.Type, status)
	fmt.Fprintf(w, "\troutes: %d\n\tfailed: %d\n", st.Routes, st.Failed)
	fmt.Fprintf(w, "\tmatched: %d\n\taliased: %d\n\tambiguous: %d\n\tunmatched: %d\n", matched, aliased, ambiguous, unmatched)
}
