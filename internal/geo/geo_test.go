package geo

import (
	"math"
	"net/url"
	"testing"

	"markers-api/internal/platform/apperr"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBoundingBox_Equator(t *testing.T) {
	b := BoundingBox(0, 0, 111)
	if !near(b.MinLat, -1) || !near(b.MaxLat, 1) || !near(b.MinLng, -1) || !near(b.MaxLng, 1) {
		t.Errorf("box = %+v, want ±1 degree", b)
	}
}

func TestBoundingBox_LongitudeWidensWithLatitude(t *testing.T) {
	b := BoundingBox(60, 30, 111)
	// cos(60°) = 0.5, so the longitude span doubles.
	if !near(b.MaxLng-b.MinLng, 4) {
		t.Errorf("lng span = %v, want 4", b.MaxLng-b.MinLng)
	}
	if !near(b.MaxLat-b.MinLat, 2) {
		t.Errorf("lat span = %v, want 2", b.MaxLat-b.MinLat)
	}
}

func TestBoundingBox_Pole(t *testing.T) {
	b := BoundingBox(90, 10, 5)
	if b.MinLng != -180 || b.MaxLng != 180 {
		t.Errorf("pole box lng = [%v, %v], want full range", b.MinLng, b.MaxLng)
	}
}

func TestBoundingBox_Kyiv(t *testing.T) {
	// Maidan and the Golden Gate are about 1 km apart; the Lavra is about 4 km away.
	b := BoundingBox(50.4501, 30.5234, 2)
	if !b.Contains(50.4488, 30.5135) {
		t.Error("Golden Gate should be inside a 2 km box around Maidan")
	}
	if b.Contains(50.4344, 30.5571) {
		t.Error("Lavra should be outside a 2 km box around Maidan")
	}
}

func TestFromQuery(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantNil   bool
		wantField string
	}{
		{"absent", "page=2", true, ""},
		{"complete", "lat=50.45&lng=30.52&radius=5", false, ""},
		{"missing radius", "lat=50.45&lng=30.52", false, "radius"},
		{"missing lat", "lng=30.52&radius=5", false, "lat"},
		{"lat out of range", "lat=91&lng=0&radius=5", false, "lat"},
		{"lng out of range", "lat=0&lng=-181&radius=5", false, "lng"},
		{"lat not a number", "lat=abc&lng=0&radius=5", false, "lat"},
		{"zero radius", "lat=0&lng=0&radius=0", false, "radius"},
		{"negative radius", "lat=0&lng=0&radius=-3", false, "radius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			box, err := FromQuery(q)
			if tt.wantField != "" {
				if apperr.Status(err) != 422 || apperr.Field(err) != tt.wantField {
					t.Fatalf("err = %v (status %d field %q), want 422 on %s", err, apperr.Status(err), apperr.Field(err), tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromQuery: %v", err)
			}
			if (box == nil) != tt.wantNil {
				t.Errorf("box = %+v, wantNil %v", box, tt.wantNil)
			}
		})
	}
}
