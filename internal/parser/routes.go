package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"transit-sync/internal/transit"
)

// Select names on the route-list page.
const (
	BusSelect        = "avt"
	TrolleybusSelect = "trol"
)

// ErrSelectCount is returned when a route select is missing or duplicated.
var ErrSelectCount = errors.New("wrong input data")

// RoutesPage is a parsed route-list page.
type RoutesPage struct {
	doc *goquery.Document
}

func LoadRoutesPage(r io.Reader) (*RoutesPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse routes page: %w", err)
	}
	return &RoutesPage{doc: doc}, nil
}

// Routes extracts the (code, name) options of the named select. Codes keep
// their direction suffix; canonicalization happens during reconciliation.
func (p *RoutesPage) Routes(selectName string) ([]transit.ParsedRoute, error) {
	sel := p.doc.Find(fmt.Sprintf("select[name=%q]", selectName))
	if sel.Length() != 1 {
		return nil, fmt.Errorf("select %q: found %d: %w", selectName, sel.Length(), ErrSelectCount)
	}
	var routes []transit.ParsedRoute
	sel.Find("option").Each(func(_ int, opt *goquery.Selection) {
		code := strings.TrimSpace(opt.AttrOr("value", ""))
		if code == "" {
			return
		}
		routes = append(routes, transit.ParsedRoute{
			Code: code,
			Name: strings.TrimSpace(opt.Text()),
		})
	})
	return routes, nil
}

func (p *RoutesPage) BusRoutes() ([]transit.ParsedRoute, error) { return p.Routes(BusSelect) }

func (p *RoutesPage) TrolleybusRoutes() ([]transit.ParsedRoute, error) {
	return p.Routes(TrolleybusSelect)
}

// RoutesFor returns the routes of the select that lists the given type.
func (p *RoutesPage) RoutesFor(t transit.RouteType) ([]transit.ParsedRoute, error) {
	switch t {
	case transit.Bus:
		return p.BusRoutes()
	case transit.Trolleybus:
		return p.TrolleybusRoutes()
	}
	return nil, fmt.Errorf("no route select for type %q", t)
}
