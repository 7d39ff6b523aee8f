package twogis

import (
	"encoding/json"
	"errors"
	"fmt"

	"transit-sync/internal/geo"
	"transit-sync/internal/transit"
)

// ErrMalformedPayload is returned when a route response lacks the expected shape.
var ErrMalformedPayload = errors.New("malformed 2gis payload")

type response struct {
	Result *struct {
		Items []struct {
			Directions []direction `json:"directions"`
		} `json:"items"`
	} `json:"result"`
}

type direction struct {
	Type      string     `json:"type"`
	Platforms []platform `json:"platforms"`
}

type platform struct {
	Name     string `json:"name"`
	Geometry struct {
		Centroid string `json:"centroid"`
	} `json:"geometry"`
}

// Platform is one stop of a direction as reported by the API.
type Platform struct {
	Name  string
	Point geo.Point
}

// Direction is an ordered platform list of one route direction.
type Direction struct {
	Type      transit.Direction
	Platforms []Platform
}

// Decode extracts the directions of the first item of a route response.
func Decode(data []byte) ([]Direction, error) {
	var resp response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if resp.Result == nil || len(resp.Result.Items) == 0 || resp.Result.Items[0].Directions == nil {
		return nil, fmt.Errorf("%w: missing result.items[0].directions", ErrMalformedPayload)
	}

	raw := resp.Result.Items[0].Directions
	dirs := make([]Direction, 0, len(raw))
	for i, d := range raw {
		dt, err := transit.ParseDirection(d.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: direction %d: %v", ErrMalformedPayload, i, err)
		}
		out := Direction{Type: dt, Platforms: make([]Platform, 0, len(d.Platforms))}
		for j, p := range d.Platforms {
			pt, err := geo.ParseWKT(p.Geometry.Centroid)
			if err != nil {
				return nil, fmt.Errorf("%w: direction %d platform %d: %v", ErrMalformedPayload, i, j, err)
			}
			out.Platforms = append(out.Platforms, Platform{Name: p.Name, Point: pt})
		}
		dirs = append(dirs, out)
	}
	return dirs, nil
}
