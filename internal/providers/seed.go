// Package providers loads data provider definitions from a YAML seed file
// into the repository.
package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"transit-sync/internal/transit"
)

type Seed struct {
	Providers []Entry `yaml:"providers" validate:"required,min=1,dive"`
}

// Entry is one provider. RouteCode is required for the per-route types and
// binds the provider to the route with that code once it exists.
type Entry struct {
	Type      string `yaml:"type" validate:"required,oneof=2gis_route_api routes_html_page route_html_page"`
	Link      string `yaml:"link" validate:"required,url"`
	Coding    string `yaml:"coding"`
	RouteCode string `yaml:"route_code" validate:"required_unless=Type routes_html_page"`
}

func (e Entry) provider() (transit.DataProvider, error) {
	t, err := transit.ParseProviderType(e.Type)
	if err != nil {
		return transit.DataProvider{}, err
	}
	return transit.DataProvider{Link: e.Link, Type: t, Coding: e.Coding, RouteCode: e.RouteCode}, nil
}

func Load(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Seed, error) {
	var s Seed
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}
	return &s, nil
}

type Store interface {
	transit.ProviderStore
	RouteByCode(ctx context.Context, code string) (transit.Route, error)
}

type ApplyStats struct {
	Created int
	Updated int
	Bound   int // entries whose route already exists
}

// Apply upserts every entry, keyed by (type, route code).
func Apply(ctx context.Context, repo Store, s *Seed) (ApplyStats, error) {
	var st ApplyStats
	for _, e := range s.Providers {
		p, err := e.provider()
		if err != nil {
			return st, err
		}
		if p.RouteCode != "" {
			r, err := repo.RouteByCode(ctx, p.RouteCode)
			switch {
			case err == nil:
				id := r.ID
				p.RouteID = &id
				st.Bound++
			case !errors.Is(err, transit.ErrNotFound):
				return st, fmt.Errorf("query route %q: %w", p.RouteCode, err)
			}
		}
		_, created, err := repo.UpsertProvider(ctx, p)
		if err != nil {
			return st, err
		}
		if created {
			st.Created++
		} else {
			st.Updated++
		}
	}
	return st, nil
}
