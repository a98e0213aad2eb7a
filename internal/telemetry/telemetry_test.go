package telemetry

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCurrentRAAndDECReturnBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/t/status/currentRA":
			fmt.Fprint(w, "10:00:00")
		case "/t/status/currentDEC":
			fmt.Fprint(w, "+20:00:00")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	ra, err := c.CurrentRA()
	if err != nil || ra != "10:00:00" {
		t.Fatalf("unexpected RA: %q, %v", ra, err)
	}
	dec, err := c.CurrentDEC()
	if err != nil || dec != "+20:00:00" {
		t.Fatalf("unexpected DEC: %q, %v", dec, err)
	}
}

func TestCurrentEQParsesFloat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "2000.0")
	}))
	defer srv.Close()

	c := New(srv.URL)
	eq, err := c.CurrentEQ()
	if err != nil || eq != 2000.0 {
		t.Fatalf("unexpected EQ: %v, %v", eq, err)
	}
}

func TestUnavailableServiceReturnsError(t *testing.T) {
	c := New("http://127.0.0.1:1") // nothing listens here
	if _, err := c.CurrentRA(); err == nil {
		t.Fatal("expected error for unreachable telemetry service")
	}
}

func TestNon2xxStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.CurrentRA(); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
