package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestRESTClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.URL.Query().Get("ids") != "bitcoin" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"value":42}`))
		case "/busy":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer server.Close()

	c := NewRESTClient("test", server.URL+"/", nil)

	t.Run("Decodes body", func(t *testing.T) {
		var out struct{ Value int }
		if err := c.GetJSON(context.Background(), "/ok", url.Values{"ids": {"bitcoin"}}, &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out.Value != 42 {
			t.Errorf("Expected 42, got %d", out.Value)
		}
	})

	t.Run("Status maps to UpstreamError", func(t *testing.T) {
		var out struct{}
		err := c.GetJSON(context.Background(), "/busy", nil, &out)
		var ue *UpstreamError
		if !errors.As(err, &ue) || ue.Status != http.StatusTooManyRequests || !ue.Transient() {
			t.Errorf("Expected transient 429, got %v", err)
		}
	})

	t.Run("Bad payload is not transient", func(t *testing.T) {
		var out struct{}
		err := c.GetJSON(context.Background(), "/garbage", nil, &out)
		if err == nil || IsTransient(err) {
			t.Errorf("Expected non-transient decode error, got %v", err)
		}
	})
}

func TestRESTClient_SendsUserAgent(t *testing.T) {
	prev := GetUserAgent()
	defer SetUserAgent(prev)
	SetUserAgent(UserAgentFor("crypto-dash", "0.1.0"))

	got := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var out struct{}
	if err := NewRESTClient("test", server.URL, nil).GetJSON(context.Background(), "/", nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ua := <-got; !strings.HasPrefix(ua, "crypto-dash/0.1.0 (") {
		t.Errorf("Expected crypto-dash/0.1.0 user agent, got %q", ua)
	}
}
