package transit

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by single-row lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

type RouteStore interface {
	RouteCodes(ctx context.Context, t RouteType) ([]string, error)
	CanceledRouteCodes(ctx context.Context, t RouteType) ([]string, error)
	// CreateRoutes inserts all routes or none of them.
	CreateRoutes(ctx context.Context, routes []Route) error
	// CancelRoutes sets the cancellation date on the given codes.
	CancelRoutes(ctx context.Context, t RouteType, codes []string, on time.Time) (int64, error)
	Routes(ctx context.Context, t RouteType, includeCanceled bool) ([]Route, error)
	RouteByCode(ctx context.Context, code string) (Route, error)
}

type ProviderStore interface {
	// ProviderByType returns the first provider of the type not bound to a route.
	ProviderByType(ctx context.Context, t ProviderType) (DataProvider, error)
	RouteProvider(ctx context.Context, routeID int64, t ProviderType) (DataProvider, error)
	// UpsertProvider is keyed by (type, route code).
	UpsertProvider(ctx context.Context, p DataProvider) (DataProvider, bool, error)
	// BindProviders sets the route on providers waiting for its code.
	BindProviders(ctx context.Context, r Route) (int64, error)
}

type NetworkStore interface {
	PlatformByName(ctx context.Context, name string) (*Platform, error)
	// AliasByName returns the alias together with its owning platform.
	AliasByName(ctx context.Context, name string) (*PlatformAlias, *Platform, error)
	CreatePlatform(ctx context.Context, p *Platform) error
	CreateAlias(ctx context.Context, a *PlatformAlias) error
	// StopByCoords looks a stop up by coordinates alone; the platform is
	// loaded from storage.
	StopByCoords(ctx context.Context, lon, lat float64) (*Stop, error)
	CreateStop(ctx context.Context, s *Stop) error
	SetStopAlias(ctx context.Context, stopID, aliasID int64) error
	// StopsByAlias returns stops among ids whose alias name is in names.
	StopsByAlias(ctx context.Context, ids []int64, names []string) ([]*Stop, error)
}

type ScheduleStore interface {
	// WeekDimension gets or creates the bucket; the bool reports creation.
	WeekDimension(ctx context.Context, weekday int, weekend bool) (WeekDimension, bool, error)
	// UpsertRoutePoint is keyed by (route, stop, week dimension, lap, order);
	// the bool reports whether a new row was created.
	UpsertRoutePoint(ctx context.Context, rp *RoutePoint) (bool, error)
	// RoutePoints returns the points of one lap ordered by order.
	RoutePoints(ctx context.Context, routeID int64, lap int) ([]RoutePoint, error)
}

// Repository is the storage the sync core works against.
type Repository interface {
	RouteStore
	ProviderStore
	NetworkStore
	ScheduleStore
}
