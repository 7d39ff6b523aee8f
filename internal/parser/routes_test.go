package parser

import (
	"errors"
	"strings"
	"testing"

	"transit-sync/internal/transit"
)

const routesPage = `<html><body>
<form>
<select class='sel' name='avt' onchange='go(this)'>
  <option value=''>Выберите маршрут</option>
  <option value='1_r'> 1 </option>
  <option value='12_r'>Route 12</option>
  <option value='12_v'>Route 12</option>
  <option value='7а'>7а</option>
</select>
<select name='trol'>
  <option value='2_r'>2</option>
</select>
</form>
</body></html>`

func TestRoutesPage(t *testing.T) {
	page, err := LoadRoutesPage(strings.NewReader(routesPage))
	if err != nil {
		t.Fatalf("LoadRoutesPage failed: %v", err)
	}

	bus, err := page.BusRoutes()
	if err != nil {
		t.Fatalf("BusRoutes failed: %v", err)
	}
	want := []transit.ParsedRoute{
		{Code: "1_r", Name: "1"},
		{Code: "12_r", Name: "Route 12"},
		{Code: "12_v", Name: "Route 12"},
		{Code: "7а", Name: "7а"},
	}
	if len(bus) != len(want) {
		t.Fatalf("got %d bus routes, want %d: %v", len(bus), len(want), bus)
	}
	for i := range want {
		if bus[i] != want[i] {
			t.Errorf("bus[%d] = %+v, want %+v", i, bus[i], want[i])
		}
	}

	trol, err := page.RoutesFor(transit.Trolleybus)
	if err != nil {
		t.Fatalf("RoutesFor(trolleybus) failed: %v", err)
	}
	if len(trol) != 1 || trol[0].Code != "2_r" {
		t.Errorf("unexpected trolleybus routes %v", trol)
	}
}

func TestRoutesPageSingleRoute(t *testing.T) {
	html := `<select name='avt'><option value='12_r'>Route 12</option></select><select name='trol'></select>`
	page, err := LoadRoutesPage(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	bus, err := page.BusRoutes()
	if err != nil {
		t.Fatal(err)
	}
	if len(bus) != 1 || bus[0] != (transit.ParsedRoute{Code: "12_r", Name: "Route 12"}) {
		t.Errorf("bus = %v", bus)
	}
	trol, err := page.TrolleybusRoutes()
	if err != nil {
		t.Fatal(err)
	}
	if len(trol) != 0 {
		t.Errorf("trol = %v, want none", trol)
	}
}

func TestRoutesPageSelectCount(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"missing", `<select name='trol'></select>`},
		{"duplicated", `<select name='avt'></select><select name='avt'></select>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, err := LoadRoutesPage(strings.NewReader(tc.html))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := page.BusRoutes(); !errors.Is(err, ErrSelectCount) {
				t.Errorf("err = %v, want ErrSelectCount", err)
			}
		})
	}
}
