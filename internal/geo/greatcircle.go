// Package geo does great-circle math on latitude/longitude points.
package geo

import (
	"math"

	"santatrack/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for distances.
const EarthRadiusKm = 6371.0

// Below this the great circle through the two points is undefined (same or
// antipodal points) and sin(d) must not be divided by.
const degenerateSin = 1e-9

// Interpolate returns segments+1 points along the shortest arc from -> to.
// The first point is from and the last is to, exactly. segments below 1 is
// treated as 1.
func Interpolate(from, to model.PathPoint, segments int) []model.PathPoint {
	if segments < 1 {
		segments = 1
	}
	out := make([]model.PathPoint, segments+1)

	lat1, lng1 := toRad(from.Lat), toRad(from.Lng)
	lat2, lng2 := toRad(to.Lat), toRad(to.Lng)
	d := AngularDistance(from, to)
	sinD := math.Sin(d)

	if from == to || math.Abs(sinD) < degenerateSin {
		for i := range out {
			out[i] = from
		}
		// antipodal: no unique arc, jump at the end
		if from != to && d > math.Pi/2 {
			out[segments] = to
		}
		return out
	}

	for i := 0; i <= segments; i++ {
		f := float64(i) / float64(segments)
		a := math.Sin((1-f)*d) / sinD
		b := math.Sin(f*d) / sinD

		x := a*math.Cos(lat1)*math.Cos(lng1) + b*math.Cos(lat2)*math.Cos(lng2)
		y := a*math.Cos(lat1)*math.Sin(lng1) + b*math.Cos(lat2)*math.Sin(lng2)
		z := a*math.Sin(lat1) + b*math.Sin(lat2)

		out[i] = model.PathPoint{
			Lat: toDeg(math.Atan2(z, math.Sqrt(x*x+y*y))),
			Lng: toDeg(math.Atan2(y, x)),
		}
	}
	out[0] = from
	out[segments] = to
	return out
}

// AngularDistance is the central angle between a and b in radians, using the
// spherical law of cosines.
func AngularDistance(a, b model.PathPoint) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLng := toRad(b.Lng - a.Lng)
	c := math.Sin(lat1)*math.Sin(lat2) + math.Cos(lat1)*math.Cos(lat2)*math.Cos(dLng)
	// rounding can push c just outside [-1, 1]
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b model.PathPoint) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Along picks n evenly spaced points from path for decorations such as the
// reindeer markers drawn on a flight path.
func Along(path []model.PathPoint, n int) []model.PathPoint {
	if n <= 0 || len(path) == 0 {
		return nil
	}
	out := make([]model.PathPoint, 0, n)
	for i := 0; i < n; i++ {
		idx := len(path) * (i + 1) / (n + 1)
		if idx >= len(path) {
			continue
		}
		out = append(out, path[idx])
	}
	return out
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

func toDeg(rad float64) float64 { return rad * 180 / math.Pi }
