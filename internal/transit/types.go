package transit

import (
	"fmt"
	"time"

	"transit-sync/internal/geo"
)

type RouteType string

const (
	Bus        RouteType = "bus"
	Trolleybus RouteType = "trolleybus"
)

// RouteTypes lists the transport types in processing order.
var RouteTypes = []RouteType{Bus, Trolleybus}

var routeTypeLabels = map[RouteType]string{
	Bus:        "Автобус",
	Trolleybus: "Троллейбус",
}

func (t RouteType) Label() string { return routeTypeLabels[t] }

func ParseRouteType(s string) (RouteType, error) {
	t := RouteType(s)
	if _, ok := routeTypeLabels[t]; !ok {
		return "", fmt.Errorf("unknown route type %q", s)
	}
	return t, nil
}

type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Circular Direction = "circular"
)

// Directions is the order in which direction groups are walked.
var Directions = []Direction{Forward, Backward, Circular}

var directionLabels = map[Direction]string{
	Forward:  "Вперёд",
	Backward: "Назад",
	Circular: "Кольцевой",
}

func (d Direction) Label() string { return directionLabels[d] }

func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if _, ok := directionLabels[d]; !ok {
		return "", fmt.Errorf("unknown direction %q", s)
	}
	return d, nil
}

type ProviderType string

const (
	TwoGISRouteAPI ProviderType = "2gis_route_api"
	RoutesHTMLPage ProviderType = "routes_html_page"
	RouteHTMLPage  ProviderType = "route_html_page"
)

var providerTypeLabels = map[ProviderType]string{
	TwoGISRouteAPI: "2GIS route API",
	RoutesHTMLPage: "Routes HTML-page",
	RouteHTMLPage:  "Route HTML-page",
}

func (t ProviderType) Label() string { return providerTypeLabels[t] }

func ParseProviderType(s string) (ProviderType, error) {
	t := ProviderType(s)
	if _, ok := providerTypeLabels[t]; !ok {
		return "", fmt.Errorf("unknown provider type %q", s)
	}
	return t, nil
}

// Platform is a named cluster of stops. Name is the lookup key.
type Platform struct {
	ID           int64
	Name         string
	FullName     string
	Description  string
	GeoDirection geo.Octant // empty when unknown
}

func (p *Platform) String() string { return p.Name }

// SamePlatform reports whether a and b denote the same platform: by ID once
// both are stored, by name otherwise.
func SamePlatform(a, b *Platform) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.ID != 0 && b.ID != 0 {
		return a.ID == b.ID
	}
	return a.Name == b.Name
}

// PlatformAlias is an alternate spelling of a platform, bound to at most one stop.
type PlatformAlias struct {
	ID         int64
	Name       string
	PlatformID int64
	// StopID is the stop the alias is bound to, 0 when unbound.
	StopID   int64
	platform *Platform
}

// NewAlias returns an unsaved alias owned by p. The platform ID is taken from
// p when the alias is stored, so p itself may still be unsaved.
func NewAlias(name string, p *Platform) *PlatformAlias {
	return &PlatformAlias{Name: name, PlatformID: p.ID, platform: p}
}

// Owner returns the platform the alias was created for, if known.
func (a *PlatformAlias) Owner() *Platform { return a.platform }

// Stop is one physical location under a platform.
type Stop struct {
	ID       int64
	Platform *Platform
	Lon      float64
	Lat      float64
	Alias    *PlatformAlias
}

func (s *Stop) Point() geo.Point { return geo.Point{Lon: s.Lon, Lat: s.Lat} }

// Same reports structural equality for unsaved stops and identity otherwise.
func (s *Stop) Same(o *Stop) bool {
	if s.ID != 0 && o.ID != 0 {
		return s.ID == o.ID
	}
	return SamePlatform(s.Platform, o.Platform) && s.Lon == o.Lon && s.Lat == o.Lat
}

func (s *Stop) String() string {
	name := ""
	if s.Platform != nil {
		name = s.Platform.Name
	}
	return fmt.Sprintf("%s %s", name, s.Point())
}

type Route struct {
	ID       int64
	Name     string
	Code     string
	Type     RouteType
	Canceled *time.Time
}

func (r Route) String() string { return fmt.Sprintf("%s (%s)", r.Name, r.Type) }

// ParsedRoute is a route as seen on the route-list page, before reconciliation.
type ParsedRoute struct {
	Code string
	Name string
}

// DataProvider binds a route, or a route code before the route exists, to an
// external resource.
type DataProvider struct {
	ID        int64
	Link      string
	Type      ProviderType
	Coding    string
	RouteID   *int64
	RouteCode string
}

const DefaultCoding = "utf-8"

type WeekDimension struct {
	ID      int64
	Weekday int // 1..7, Monday first
	Weekend bool
}

func (w WeekDimension) String() string {
	if w.Weekend {
		return fmt.Sprintf("day: %d we", w.Weekday)
	}
	return fmt.Sprintf("day: %d", w.Weekday)
}

// DefaultWeekday is the bucket the 2GIS sync writes into.
const DefaultWeekday = 1

// DateDimension narrows a week bucket down to one calendar date.
type DateDimension struct {
	ID   int64
	Week WeekDimension
	Date time.Time
	Year int
	// ISO week number.
	WeekOfYear int
	Month      int
	Day        int
}

func NewDateDimension(d time.Time) DateDimension {
	y, m, day := d.Date()
	_, isoWeek := d.ISOWeek()
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return DateDimension{
		Week:       WeekDimension{Weekday: wd, Weekend: wd >= 6},
		Date:       time.Date(y, m, day, 0, 0, 0, 0, d.Location()),
		Year:       y,
		WeekOfYear: isoWeek,
		Month:      int(m),
		Day:        day,
	}
}

// ScheduleVariant scopes a route point to either a week bucket or a single date.
type ScheduleVariant struct {
	Week *WeekDimension
	Date *DateDimension
}

// WeekDimensionID returns the week bucket the variant resolves to.
func (v ScheduleVariant) WeekDimensionID() int64 {
	switch {
	case v.Date != nil:
		return v.Date.Week.ID
	case v.Week != nil:
		return v.Week.ID
	}
	return 0
}

type RoutePoint struct {
	ID           int64
	RouteID      int64
	Stop         *Stop
	Variant      ScheduleVariant
	Time         time.Duration // offset from midnight
	Order        int
	Lap          int
	LapStart     bool
	Skip         bool
	Direction    Direction
	GeoDirection geo.Octant
	Angle        float64
	OnDemand     bool
}

// Clock formats Time as HH:MM:SS.
func (rp RoutePoint) Clock() string {
	s := int(rp.Time / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}
