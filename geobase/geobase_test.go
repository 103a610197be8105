package geobase_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/panyam/accounts/geobase"
)

func newFakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		switch r.URL.Query().Get("geocode") {
		case "Chelyabinsk":
			fmt.Fprint(w, `{"country": "Russia", "province": "Chelyabinsk Oblast",
				"locality": "Chelyabinsk", "timezone": "Asia/Yekaterinburg",
				"latitude": 55.1644, "longitude": 61.4368}`)
		case "Atlantis":
			fmt.Fprint(w, `{}`)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/ip", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ip") != "93.158.134.3" {
			fmt.Fprint(w, `{}`)
			return
		}
		fmt.Fprint(w, `{"country": "Russia", "locality": "Moscow",
			"timezone": "Europe/Moscow", "latitude": 55.7558, "longitude": 37.6173}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T) *geobase.Client {
	server := newFakeProvider(t)
	return geobase.NewClient(server.URL+"/geocode", server.URL+"/ip", "test-key")
}

func TestGeocode(t *testing.T) {
	client := newTestClient(t)

	loc, err := client.Geocode(context.Background(), "Chelyabinsk")
	if err != nil {
		t.Fatalf("Geocode failed: %v", err)
	}
	if loc.Country != "Russia" || loc.Province != "Chelyabinsk Oblast" || loc.Locality != "Chelyabinsk" {
		t.Errorf("unexpected location: %+v", loc)
	}
	if loc.Timezone != "Asia/Yekaterinburg" {
		t.Errorf("timezone = %q", loc.Timezone)
	}
	if loc.Latitude < 55 || loc.Latitude > 56 {
		t.Errorf("latitude = %v", loc.Latitude)
	}
}

func TestGeocodeNoMatch(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Geocode(context.Background(), "Atlantis"); err == nil {
		t.Error("expected an error for an empty provider response")
	}
}

func TestGeocodeProviderError(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Geocode(context.Background(), "Anywhere"); err == nil {
		t.Error("expected an error for a 5xx provider response")
	}
}

func TestGeocodeBadKey(t *testing.T) {
	server := newFakeProvider(t)
	client := geobase.NewClient(server.URL+"/geocode", server.URL+"/ip", "wrong-key")
	if _, err := client.Geocode(context.Background(), "Chelyabinsk"); err == nil {
		t.Error("expected an error for a rejected key")
	}
}

func TestDetectByIP(t *testing.T) {
	client := newTestClient(t)

	loc, err := client.DetectByIP(context.Background(), "93.158.134.3")
	if err != nil {
		t.Fatalf("DetectByIP failed: %v", err)
	}
	if loc.Country != "Russia" || loc.Locality != "Moscow" {
		t.Errorf("unexpected location: %+v", loc)
	}
	// Province may legitimately be empty for federal cities
	if loc.Province != "" {
		t.Errorf("province = %q, want empty", loc.Province)
	}
	if loc.String() != "Russia, Moscow" {
		t.Errorf("String() = %q", loc.String())
	}
}

func TestDetectByIPNoMatch(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.DetectByIP(context.Background(), "127.0.0.1"); err == nil {
		t.Error("expected an error for an unknown address")
	}
}

func TestUnconfiguredClient(t *testing.T) {
	client := geobase.NewClient("", "", "")
	if _, err := client.Geocode(context.Background(), "Moscow"); err == nil {
		t.Error("expected an error from an unconfigured geocoder")
	}
	if _, err := client.DetectByIP(context.Background(), "127.0.0.1"); err == nil {
		t.Error("expected an error from unconfigured ip geolocation")
	}
}
