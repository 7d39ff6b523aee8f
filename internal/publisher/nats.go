package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"transit-sync/internal/syncer"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher publishes sync results as JSON under a subject prefix:
// <prefix>.routes.<type>, <prefix>.platforms.<route code> and
// <prefix>.schedule.<route code>.
type NATSPublisher struct {
	nc          conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
}

var _ syncer.Events = (*NATSPublisher)(nil)

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("transit-sync"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			slog.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			slog.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			slog.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return newPublisher(nc, prefix, logSubjects, m), nil
}

func newPublisher(nc conn, prefix string, logSubjects bool, m PublisherMetrics) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: strings.Trim(prefix, "."), logSubjects: logSubjects, metrics: m}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type RoutesMessage struct {
	RunID         string    `json:"runId"`
	Timestamp     time.Time `json:"timestamp"`
	Type          string    `json:"type"`
	Added         []string  `json:"added"`
	Updated       []string  `json:"updated"`
	Existing      []string  `json:"existing"`
	Canceled      []string  `json:"canceled"`
	CanceledTotal []string  `json:"canceledTotal"`
	Bound         int64     `json:"providersBound"`
}

type RouteMessage struct {
	RunID         string    `json:"runId"`
	Timestamp     time.Time `json:"timestamp"`
	RouteID       int64     `json:"routeId"`
	RouteCode     string    `json:"routeCode"`
	Type          string    `json:"type"`
	Platforms     int       `json:"platformsCreated"`
	Stops         int       `json:"stopsCreated"`
	Aliased       int       `json:"stopsAliased"`
	PointsCreated int       `json:"pointsCreated"`
	PointsUpdated int       `json:"pointsUpdated"`
}

type ScheduleMessage struct {
	RunID     string     `json:"runId"`
	Timestamp time.Time  `json:"timestamp"`
	RouteID   int64      `json:"routeId"`
	RouteCode string     `json:"routeCode"`
	Days      []int      `json:"days"`
	AsOf      *time.Time `json:"asOf,omitempty"`
	Headers   int        `json:"headers"`
	Matched   int        `json:"matched"`
	Aliased   int        `json:"aliased"`
	Ambiguous int        `json:"ambiguous"`
	Unmatched int        `json:"unmatched"`
	Aborted   bool       `json:"aborted"`
}

func (p *NATSPublisher) RoutesReconciled(ctx context.Context, runID string, st syncer.RouteStats) error {
	return p.publish(ctx, p.subject("routes", string(st.Type)), RoutesMessage{
		RunID:         runID,
		Timestamp:     time.Now().UTC(),
		Type:          string(st.Type),
		Added:         nonNil(st.Added),
		Updated:       nonNil(st.Updated),
		Existing:      nonNil(st.Existing),
		Canceled:      nonNil(st.Canceled),
		CanceledTotal: nonNil(st.CanceledTotal),
		Bound:         st.Bound,
	})
}

func (p *NATSPublisher) RouteSynced(ctx context.Context, runID string, st syncer.RouteSyncStats) error {
	return p.publish(ctx, p.subject("platforms", st.Route.Code), RouteMessage{
		RunID:         runID,
		Timestamp:     time.Now().UTC(),
		RouteID:       st.Route.ID,
		RouteCode:     st.Route.Code,
		Type:          string(st.Route.Type),
		Platforms:     st.Platforms,
		Stops:         st.Stops,
		Aliased:       st.Aliased,
		PointsCreated: st.Points.Created,
		PointsUpdated: st.Points.Updated,
	})
}

func (p *NATSPublisher) ScheduleMatched(ctx context.Context, runID string, st syncer.ScheduleStats) error {
	msg := ScheduleMessage{
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		RouteID:   st.Route.ID,
		RouteCode: st.Route.Code,
		Days:      st.Days,
		Headers:   st.Headers,
		Matched:   st.Matched,
		Aliased:   st.Aliased,
		Ambiguous: st.Ambiguous,
		Unmatched: st.Unmatched,
		Aborted:   st.Aborted,
	}
	if !st.AsOf.IsZero() {
		asOf := st.AsOf
		msg.AsOf = &asOf
	}
	return p.publish(ctx, p.subject("schedule", st.Route.Code), msg)
}

func (p *NATSPublisher) subject(kind, key string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, kind, subjectToken(key))
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, msg any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if p.logSubjects {
		slog.Info("nats publish", "subject", subject)
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
