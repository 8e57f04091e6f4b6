package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestAPIError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want int
	}{
		{"invalid input maps to 400", NewInvalidInputError("bad zip"), http.StatusBadRequest},
		{"not found maps to 404", NewNotFoundError("nws", "no grid"), http.StatusNotFound},
		{"rate limit maps to 500", NewRateLimitError("nws", "throttled"), http.StatusInternalServerError},
		{"server error maps to 500", NewUpstreamServerError("nws", 502, "bad gateway", nil), http.StatusInternalServerError},
		{"network error maps to 500", NewNetworkError("geocode", "timeout", nil), http.StatusInternalServerError},
		{"invalid upstream data maps to 500", NewInvalidUpstreamDataError("geocode", "out of bounds"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAPIError_ToJSON_HidesInternalDetail(t *testing.T) {
	err := NewUpstreamServerError("nws", 503, "upstream said: database on fire", nil)
	body := err.ToJSON()

	inner, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %v", body)
	}
	if inner["message"] == "upstream said: database on fire" {
		t.Error("internal error message leaked to client payload")
	}
}

func TestAPIError_ToJSON_KeepsClientDetail(t *testing.T) {
	err := NewInvalidInputError("invalid ZIP code \"abc\"")
	inner := err.ToJSON()["error"].(map[string]interface{})
	if inner["message"] != "invalid ZIP code \"abc\"" {
		t.Errorf("client-facing message changed: %v", inner["message"])
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("nws", "dial failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}

	var apiErr *APIError
	if !errors.As(error(err), &apiErr) {
		t.Error("expected errors.As to match *APIError")
	}
}

func TestNormalizeZIP(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"75454", "75454", false},
		{"  75454  ", "75454", false},
		{"7545", "", true},
		{"754545", "", true},
		{"7545a", "", true},
		{"", "", true},
		{"ABCDE", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeZIP(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeZIP(%q): expected error", tt.in)
				continue
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Type != ErrorTypeInvalidInput {
				t.Errorf("NormalizeZIP(%q): expected invalid_input error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeZIP(%q): unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeZIP(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCoordKey_Rounding(t *testing.T) {
	// Logically equal requests must normalize to the same key.
	a := CoordKey(33.15672891, -96.63492212)
	b := CoordKey(33.15670000, -96.63490000)
	if a != b {
		t.Errorf("keys differ after rounding: %q vs %q", a, b)
	}
	if a != "33.1567,-96.6349" {
		t.Errorf("unexpected key format: %q", a)
	}
}

func TestGridPoint_Key(t *testing.T) {
	gp := GridPoint{Office: "FWD", GridX: 80, GridY: 108}
	if gp.Key() != "FWD/80,108" {
		t.Errorf("GridPoint.Key() = %q", gp.Key())
	}
}
