package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"transit-sync/internal/transit"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatal(err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.RoutesReconciled(transit.Bus, 3, 1)
	c.RoutesReconciled(transit.Bus, 2, 0)
	c.RouteSkipped("platforms", "no_data")
	c.PointsUpserted(6, 2)
	c.RunObserve("routes", time.Second, errors.New("boom"))
	c.NATSSetConnected(true)

	if got := value(t, c.RoutesAdded.WithLabelValues("bus")); got != 5 {
		t.Errorf("routes added = %v, want 5", got)
	}
	if got := value(t, c.RoutesCanceled.WithLabelValues("bus")); got != 1 {
		t.Errorf("routes canceled = %v, want 1", got)
	}
	if got := value(t, c.RoutesSkipped.WithLabelValues("platforms", "no_data")); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := value(t, c.PointsCreated); got != 6 {
		t.Errorf("points created = %v, want 6", got)
	}
	if got := value(t, c.RunFailures.WithLabelValues("routes")); got != 1 {
		t.Errorf("run failures = %v, want 1", got)
	}
	if got := value(t, c.NATSConnected); got != 1 {
		t.Errorf("nats connected = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	c.RouteSynced("platforms", 200*time.Millisecond)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `transit_sync_routes_synced_total{kind="platforms"} 1`) {
		t.Errorf("metric missing from output:\n%s", body)
	}
}
