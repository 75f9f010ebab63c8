package rika

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const loggedInPage = `<html><body>
<a href="/web/logout">Log out</a>
<ul id="stoveList">
  <li><a href="/web/stove/12345678">Living room</a></li>
</ul>
</body></html>`

const statusPayload = `{
  "sensors": {
    "inputRoomTemperature": "19.6",
    "parameterFeedRateTotal": 1234.5,
    "parameterRuntimePellets": 567,
    "statusMainState": 4
  },
  "controls": {
    "targetTemperature": "21"
  }
}`

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(baseURL string) *Client {
	return NewClient(Options{
		BaseURL:  baseURL,
		Email:    "user@example.com",
		Password: "secret",
		Timeout:  time.Second,
	}, noopLogger())
}

func TestEnsureSessionDiscoversStove(t *testing.T) {
	var gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse login form: %v", err)
		}
		gotEmail = r.PostFormValue("email")
		_, _ = w.Write([]byte(loggedInPage))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	stoveID, err := client.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}
	if stoveID != "12345678" {
		t.Fatalf("stove id = %q, want 12345678", stoveID)
	}
	if gotEmail != "user@example.com" {
		t.Fatalf("login email = %q", gotEmail)
	}

	// The session is cached; a second call must not hit the portal again.
	srv.Close()
	again, err := client.EnsureSession(context.Background())
	if err != nil {
		t.Fatalf("cached EnsureSession returned error: %v", err)
	}
	if again != "12345678" {
		t.Fatalf("cached stove id = %q", again)
	}
}

func TestEnsureSessionRejectedCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>Please log in</body></html>`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.EnsureSession(context.Background()); err == nil {
		t.Fatal("rejected login must return an error")
	}
}

func TestEnsureSessionNoStoveListed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a>Log out</a><ul id="stoveList"></ul></body></html>`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.EnsureSession(context.Background()); err == nil {
		t.Fatal("missing stove entry must return an error")
	}
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != clientAPIPath+"12345678/status" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statusPayload))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	status, err := client.FetchStatus(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("FetchStatus returned error: %v", err)
	}

	if status.RoomTemperature != 19.6 {
		t.Fatalf("room temperature = %v, want 19.6", status.RoomTemperature)
	}
	if status.ThermostatTarget != 21 {
		t.Fatalf("thermostat target = %v, want 21", status.ThermostatTarget)
	}
	if !status.IsBurning {
		t.Fatal("main state 4 means burning")
	}
	if !status.FuelCounterKg.Equal(decimal.NewFromFloat(1234.5)) {
		t.Fatalf("fuel counter = %s, want 1234.5", status.FuelCounterKg)
	}
	if !status.RuntimeCounterHours.Equal(decimal.NewFromInt(567)) {
		t.Fatalf("runtime counter = %s, want 567", status.RuntimeCounterHours)
	}
}

func TestFetchStatusNotBurning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sensors": {
				"inputRoomTemperature": 18,
				"parameterFeedRateTotal": 10,
				"parameterRuntimePellets": 5,
				"statusMainState": 2
			},
			"controls": {"targetTemperature": 20}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	status, err := client.FetchStatus(context.Background(), "1")
	if err != nil {
		t.Fatalf("FetchStatus returned error: %v", err)
	}
	if status.IsBurning {
		t.Fatal("main state 2 is not a burning state")
	}
}

func TestFetchStatusHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.FetchStatus(context.Background(), "1"); err == nil {
		t.Fatal("HTTP 401 must return an error")
	}
}

func TestFetchStatusMissingCounter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"sensors": {
				"inputRoomTemperature": 18,
				"statusMainState": 4
			},
			"controls": {"targetTemperature": 20}
		}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.FetchStatus(context.Background(), "1"); err == nil {
		t.Fatal("missing counter fields must return an error")
	}
}

func TestResetForcesRelogin(t *testing.T) {
	logins := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins++
		_, _ = w.Write([]byte(loggedInPage))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession returned error: %v", err)
	}
	client.Reset()
	if _, err := client.EnsureSession(context.Background()); err != nil {
		t.Fatalf("EnsureSession after Reset returned error: %v", err)
	}
	if logins != 2 {
		t.Fatalf("login count = %d, want 2", logins)
	}
}
