package api

import (
	"fmt"
	"math"
	"net/http"

	"santatrack/internal/catalog"
	"santatrack/internal/model"
)

const maxPathSegments = 500

type pathRequest struct {
	From, To         model.PathPoint
	FromName, ToName string
	Segments         int
}

// parsePathRequest reads either from/to destination names or raw
// fromLat/fromLng/toLat/toLng coordinates.
func (s *Server) parsePathRequest(r *http.Request) (pathRequest, error) {
	q := r.URL.Query()
	req := pathRequest{}
	var err error
	if req.Segments, err = queryInt(r, "segments", s.Config.PathSegments); err != nil {
		return req, err
	}
	if req.Segments < 1 || req.Segments > maxPathSegments {
		return req, fmt.Errorf("segments must be in [1, %d]", maxPathSegments)
	}
	if q.Get("from") != "" || q.Get("to") != "" {
		from, ok := catalog.ByName(s.Tracker.Catalog(), q.Get("from"))
		if !ok {
			return req, fmt.Errorf("unknown destination %q", q.Get("from"))
		}
		to, ok := catalog.ByName(s.Tracker.Catalog(), q.Get("to"))
		if !ok {
			return req, fmt.Errorf("unknown destination %q", q.Get("to"))
		}
		req.From, req.To = from.Point(), to.Point()
		req.FromName, req.ToName = from.Name, to.Name
		return req, nil
	}
	coords := map[string]*float64{"fromLat": &req.From.Lat, "fromLng": &req.From.Lng, "toLat": &req.To.Lat, "toLng": &req.To.Lng}
	for key, dst := range coords {
		v, ok, err := queryFloat(r, key)
		if err != nil {
			return req, err
		}
		if !ok {
			return req, fmt.Errorf("%s is required (or use from/to names)", key)
		}
		*dst = v
	}
	if err := validatePoint(req.From); err != nil {
		return req, fmt.Errorf("from: %w", err)
	}
	if err := validatePoint(req.To); err != nil {
		return req, fmt.Errorf("to: %w", err)
	}
	return req, nil
}

func validatePoint(p model.PathPoint) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("coordinates must be finite")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("lat %v out of range [-90, 90]", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("lng %v out of range [-180, 180]", p.Lng)
	}
	return nil
}
