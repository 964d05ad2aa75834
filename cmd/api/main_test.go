package main

import "testing"

func TestRouteLabel(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"/v1/tracker", "/v1/tracker"},
		{"/v1/tracker/advance", "/v1/tracker/advance"},
		{"/v1/tracker/xyz", "other"},
		{"/v1/destinations", "/v1/destinations"},
		{"/v1/destinations/Paris", "/v1/destinations/{name}"},
		{"/v1/destinations/Paris/extra", "other"},
		{"/v1/destinations/", "other"},
		{"/v1/webhooks/deliveries", "/v1/webhooks/deliveries"},
		{"/v1/webhooks/deliveries/abc/retry", "/v1/webhooks/deliveries/{id}/retry"},
		{"/v1/webhooks/deliveries/abc", "other"},
		{"/metrics", "/metrics"},
		{"/foo123", "other"},
		{"/", "other"},
	}
	for _, c := range cases {
		if got := routeLabel(c.path); got != c.want {
			t.Fatalf("routeLabel(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}
