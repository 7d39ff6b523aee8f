package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"transit-sync/internal/syncer"
	"transit-sync/internal/transit"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	msgs []published
	err  error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakeConn) Drain() error { return nil }
func (f *fakeConn) Close()       {}

type countingMetrics struct {
	published, errs int
}

func (m *countingMetrics) NATSPublishedInc()            { m.published++ }
func (m *countingMetrics) NATSPublishErrInc()           { m.errs++ }
func (m *countingMetrics) PublishObserve(time.Duration) {}
func (m *countingMetrics) NATSSetConnected(bool)        {}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"12":    "12",
		" 2a ":  "2a",
		"1.5":   "1_5",
		"A B":   "A_B",
		"x>*/y": "x___y",
		"":      "_",
		"\t":    "_",
	}
	for in, want := range tests {
		if got := subjectToken(in); got != want {
			t.Errorf("subjectToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRoutesReconciled(t *testing.T) {
	fc := &fakeConn{}
	m := &countingMetrics{}
	p := newPublisher(fc, "transit.sync.", false, m)

	err := p.RoutesReconciled(context.Background(), "run-1", syncer.RouteStats{
		Type:  transit.Bus,
		Added: []string{"12", "2a"},
		Bound: 2,
	})
	if err != nil {
		t.Fatalf("RoutesReconciled failed: %v", err)
	}
	if len(fc.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(fc.msgs))
	}
	if fc.msgs[0].subject != "transit.sync.routes.bus" {
		t.Errorf("subject = %q", fc.msgs[0].subject)
	}
	var msg RoutesMessage
	if err := json.Unmarshal(fc.msgs[0].data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.RunID != "run-1" || len(msg.Added) != 2 || msg.Canceled == nil || msg.Bound != 2 {
		t.Errorf("message = %+v", msg)
	}
	if m.published != 1 {
		t.Errorf("published counter = %d", m.published)
	}
}

func TestRouteAndScheduleSubjects(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "ts", false, nil)
	route := transit.Route{ID: 7, Code: "1.5", Type: transit.Trolleybus}
	ctx := context.Background()

	if err := p.RouteSynced(ctx, "r", syncer.RouteSyncStats{Route: route, Stops: 4}); err != nil {
		t.Fatal(err)
	}
	if err := p.ScheduleMatched(ctx, "r", syncer.ScheduleStats{Route: route, Days: []int{1, 2}}); err != nil {
		t.Fatal(err)
	}
	want := []string{"ts.platforms.1_5", "ts.schedule.1_5"}
	for i, w := range want {
		if fc.msgs[i].subject != w {
			t.Errorf("subject %d = %q, want %q", i, fc.msgs[i].subject, w)
		}
	}
	var sm map[string]any
	if err := json.Unmarshal(fc.msgs[1].data, &sm); err != nil {
		t.Fatal(err)
	}
	if _, ok := sm["asOf"]; ok {
		t.Error("asOf present for a page without a date")
	}
}

func TestPublishError(t *testing.T) {
	fc := &fakeConn{err: errors.New("nats: connection closed")}
	m := &countingMetrics{}
	p := newPublisher(fc, "ts", true, m)
	if err := p.RouteSynced(context.Background(), "r", syncer.RouteSyncStats{}); err == nil {
		t.Fatal("expected error")
	}
	if m.errs != 1 {
		t.Errorf("error counter = %d, want 1", m.errs)
	}
}
