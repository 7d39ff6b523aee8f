package syncer

import (
	"context"
	"fmt"
	"testing"

	"transit-sync/internal/memstore"
	"transit-sync/internal/transit"
)

// fakeFetcher serves canned bodies by URL.
type fakeFetcher struct {
	pages    map[string]string
	requests []string
}

func (f *fakeFetcher) Get(_ context.Context, url string) ([]byte, error) {
	f.requests = append(f.requests, url)
	body, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: unexpected status 404", url)
	}
	return []byte(body), nil
}

func (f *fakeFetcher) GetText(ctx context.Context, url, _ string) (string, error) {
	b, err := f.Get(ctx, url)
	return string(b), err
}

func mustProvider(t *testing.T, repo *memstore.Store, p transit.DataProvider) transit.DataProvider {
	t.Helper()
	stored, _, err := repo.UpsertProvider(context.Background(), p)
	if err != nil {
		t.Fatalf("UpsertProvider failed: %v", err)
	}
	return stored
}

func mustRoute(t *testing.T, repo *memstore.Store, code string, rt transit.RouteType) transit.Route {
	t.Helper()
	ctx := context.Background()
	if err := repo.CreateRoutes(ctx, []transit.Route{{Name: "Route " + code, Code: code, Type: rt}}); err != nil {
		t.Fatalf("CreateRoutes failed: %v", err)
	}
	r, err := repo.RouteByCode(ctx, code)
	if err != nil {
		t.Fatalf("RouteByCode failed: %v", err)
	}
	return r
}

func platformJSON(name string, lon, lat float64) string {
	return fmt.Sprintf(`{"name":%q,"geometry":{"centroid":"POINT(%v %v)"}}`, name, lon, lat)
}

const routePayload = `{"result":{"items":[{"directions":[
 {"type":"backward","platforms":[` + `%s` + `]},
 {"type":"forward","platforms":[` + `%s` + `]}
]}]}}`

func twoDirectionPayload() string {
	forward := platformJSON("Вокзал", 31.25, 58.52) + "," +
		platformJSON("Ленина", 31.26, 58.53) + "," +
		platformJSON("Кремль", 31.27, 58.52)
	backward := platformJSON("Кремль", 31.27, 58.521) + "," +
		platformJSON("Ленина", 31.26, 58.53) + "," +
		platformJSON("Вокзал (по требованию)", 31.25, 58.521)
	return fmt.Sprintf(routePayload, backward, forward)
}
