package openweather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto_dash/internal/infra"
)

func TestClient_Current(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/weather" && q.Get("q") == "London":
			w.Write([]byte(`{"name":"London","main":{"temp":281.5}}`))
		case r.URL.Path == "/weather" && q.Get("lat") == "51.5" && q.Get("lon") == "-0.1":
			w.Write([]byte(`{"name":"City of London"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewWithREST(infra.NewRESTClient(Service, server.URL, nil), "key")

	t.Run("By address", func(t *testing.T) {
		raw, err := c.Current(context.Background(), Query{Address: "London"})
		if err != nil {
			t.Fatalf("Current failed: %v", err)
		}
		if string(raw) != `{"name":"London","main":{"temp":281.5}}` {
			t.Errorf("payload not passed through: %s", raw)
		}
	})

	t.Run("By coordinates", func(t *testing.T) {
		if _, err := c.Current(context.Background(), Query{Lat: "51.5", Lon: "-0.1"}); err != nil {
			t.Fatalf("Current failed: %v", err)
		}
	})

	t.Run("Unknown city is not transient", func(t *testing.T) {
		_, err := c.Current(context.Background(), Query{Address: "Atlantis"})
		if err == nil || infra.IsTransient(err) {
			t.Errorf("Expected non-transient error, got %v", err)
		}
	})

	t.Run("Missing location", func(t *testing.T) {
		if _, err := c.Current(context.Background(), Query{Lat: "1"}); !errors.Is(err, infra.ErrMissingParameter) {
			t.Errorf("Expected ErrMissingParameter, got %v", err)
		}
	})
}

func TestClient_NoAPIKey(t *testing.T) {
	c := New("http://127.0.0.1:0", "")
	if _, err := c.Forecast(context.Background(), "Paris"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
	if _, err := c.Forecast(context.Background(), ""); !errors.Is(err, infra.ErrMissingParameter) {
		t.Errorf("Expected ErrMissingParameter, got %v", err)
	}
}
