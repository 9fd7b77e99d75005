package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/litescript/ls-nightsky/internal/astro"
	"github.com/litescript/ls-nightsky/internal/ephem"
	"github.com/litescript/ls-nightsky/internal/eop"
	"github.com/litescript/ls-nightsky/internal/nighttime"
	"github.com/litescript/ls-nightsky/internal/riseset"
	"github.com/litescript/ls-nightsky/internal/state"
	"github.com/litescript/ls-nightsky/internal/timescale"
)

var vienna = astro.ObserverInfo{
	Name:        "Vienna",
	Latitude:    48.2082,
	Longitude:   16.3738,
	Elevation:   190,
	Pressure:    1013.25,
	Temperature: 10,
	Humidity:    50,
}

func newTestRouter(t *testing.T, mgr *state.Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, err := ephem.NewMeeusBackend("")
	if err != nil {
		t.Fatal(err)
	}
	solver := riseset.NewSolver(timescale.NewConverter(nil, backend), backend)
	return SetupRouter(Deps{
		Solver:            solver,
		Calculator:        nighttime.NewCalculator(solver),
		Backend:           backend,
		Observer:          vienna,
		Location:          time.UTC,
		WavelengthMicrons: 0.55,
		RefractionSearch:  astro.DefaultRefractionSearch(),
		State:             mgr,
		EOP:               eop.NewTable([]eop.Entry{{MJD: 60629, UT1MinusUTC: 0.04}}),
	}, nil, nil)
}

func get(t *testing.T, router *gin.Engine, url string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: decode %q: %v", url, w.Body.String(), err)
	}
	return w.Code, body
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, nil)
	code, body := get(t, router, "/health")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" || body["ephemeris"] != "Meeus" {
		t.Errorf("body = %v", body)
	}
	if body["eop_entries"] != float64(1) {
		t.Errorf("eop_entries = %v", body["eop_entries"])
	}
}

func TestGetNighttime(t *testing.T) {
	router := newTestRouter(t, nil)

	code, body := get(t, router, "/v1/nighttime?lat=48.2082&lon=16.3738&date=2024-11-15")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	if !strings.HasPrefix(body["reference_date"].(string), "2024-11-15T12:00:00") {
		t.Errorf("reference_date = %v", body["reference_date"])
	}
	// Mid-November astronomical night in Vienna lasts about 11.5 hours.
	if secs := body["night_seconds"].(float64); secs < 10*3600 || secs > 13*3600 {
		t.Errorf("night_seconds = %v", secs)
	}
	if _, ok := body["moon_phase"].(string); !ok {
		t.Errorf("moon_phase = %v, want a name", body["moon_phase"])
	}
	if body["dusk"] == nil || body["dawn"] == nil {
		t.Errorf("dusk/dawn missing: %v", body)
	}
}

func TestGetNighttime_BadRequests(t *testing.T) {
	router := newTestRouter(t, nil)
	tests := []struct {
		name string
		url  string
	}{
		{"latitude out of range", "/v1/nighttime?lat=100&lon=0"},
		{"latitude alone", "/v1/nighttime?lat=10"},
		{"bad longitude", "/v1/nighttime?lat=10&lon=east"},
		{"bad date", "/v1/nighttime?date=15.11.2024"},
		{"NaN latitude", "/v1/nighttime?lat=NaN&lon=0"},
		{"infinite longitude", "/v1/nighttime?lat=10&lon=-Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, router, tt.url)
			if code != http.StatusBadRequest || body["error"] == nil {
				t.Errorf("status = %d, body = %v", code, body)
			}
		})
	}
}

func TestGetRiseSet(t *testing.T) {
	router := newTestRouter(t, nil)
	tests := []struct {
		name     string
		url      string
		wantCode int
	}{
		{"star", "/v1/riseset?target=Sirius&date=2024-11-15", http.StatusOK},
		{"threshold", "/v1/riseset?target=Sirius&date=2024-11-15&threshold=10", http.StatusOK},
		{"twilight", "/v1/riseset?target=twilight&kind=nautical&date=2024-11-15", http.StatusOK},
		{"bad twilight kind", "/v1/riseset?target=twilight&kind=golden", http.StatusBadRequest},
		{"bad threshold", "/v1/riseset?target=Sirius&threshold=high", http.StatusBadRequest},
		{"missing target", "/v1/riseset", http.StatusBadRequest},
		{"unknown target", "/v1/riseset?target=Tatooine", http.StatusNotFound},
		{"unavailable body", "/v1/riseset?target=Mars", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, router, tt.url)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %v", code, tt.wantCode, body)
			}
			if code != http.StatusOK {
				return
			}
			events := body["events"].(map[string]any)
			if events["rise"] == nil || events["set"] == nil || events["no_crossing"] != false {
				t.Errorf("events = %v", events)
			}
		})
	}
}

func TestGetRiseSet_Circumpolar(t *testing.T) {
	router := newTestRouter(t, nil)
	// Dubhe (Dec +61.8) never sets from Vienna.
	code, body := get(t, router, "/v1/riseset?target=Dubhe&date=2024-11-15")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	events := body["events"].(map[string]any)
	if events["no_crossing"] != true || events["rise"] != nil || events["transit"] == nil {
		t.Errorf("events = %v", events)
	}
}

func TestGetPosition(t *testing.T) {
	router := newTestRouter(t, nil)

	code, body := get(t, router, "/v1/position?target=Sun&time=2024-06-21T11:00:00Z&refraction=true")
	if code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", code, body)
	}
	alt := body["altitude"].(float64)
	if alt < 60 || alt > 67 {
		t.Errorf("solar altitude at noon near solstice = %v", alt)
	}
	refracted, ok := body["refracted_altitude"].(float64)
	if !ok {
		t.Fatal("refracted_altitude missing")
	}
	// About half an arcminute at 65°.
	if d := (refracted - alt) * 3600; d < 10 || d > 60 {
		t.Errorf("refraction = %v arcsec", d)
	}
	if dec := body["dec_degrees"].(float64); dec < 23.3 || dec > 23.5 {
		t.Errorf("dec_degrees = %v", dec)
	}
}

func TestGetPosition_Errors(t *testing.T) {
	router := newTestRouter(t, nil)
	tests := []struct {
		url      string
		wantCode int
	}{
		{"/v1/position", http.StatusBadRequest},
		{"/v1/position?target=Vega&time=yesterday", http.StatusBadRequest},
		{"/v1/position?target=Tatooine", http.StatusNotFound},
		{"/v1/position?target=Sun&lat=NaN&lon=0", http.StatusBadRequest},
		{"/v1/position?target=Sun&lat=10&lon=Inf", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if code, body := get(t, router, tt.url); code != tt.wantCode {
			t.Errorf("GET %s = %d, want %d; body = %v", tt.url, code, tt.wantCode, body)
		}
	}
}

func TestGetPosition_RefractionBelowHorizon(t *testing.T) {
	router := newTestRouter(t, nil)
	code, body := get(t, router, "/v1/position?target=Sun&time=2024-06-21T23:00:00Z&refraction=true")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if _, ok := body["refracted_altitude"]; ok {
		t.Errorf("refracted_altitude should be omitted below the horizon: %v", body)
	}
}

func TestGetViewportContains(t *testing.T) {
	router := newTestRouter(t, nil)
	tests := []struct {
		name     string
		url      string
		wantCode int
		contains bool
	}{
		{"target inside", "/v1/viewport/contains?ra=18.62&dec=38.8&vfov=5&target=Vega", http.StatusOK, true},
		{"point outside", "/v1/viewport/contains?ra=18.62&dec=38.8&vfov=5&point_ra=6&point_dec=0", http.StatusOK, false},
		{"across RA zero", "/v1/viewport/contains?ra=23.95&dec=0&vfov=4&point_ra=0.05&point_dec=0.5", http.StatusOK, true},
		{"missing vfov", "/v1/viewport/contains?ra=1&dec=1&target=Vega", http.StatusBadRequest, false},
		{"invalid vfov", "/v1/viewport/contains?ra=1&dec=1&vfov=200&target=Vega", http.StatusBadRequest, false},
		{"no point", "/v1/viewport/contains?ra=1&dec=1&vfov=2", http.StatusBadRequest, false},
		{"NaN centre", "/v1/viewport/contains?ra=NaN&dec=1&vfov=2&target=Vega", http.StatusBadRequest, false},
		{"NaN point", "/v1/viewport/contains?ra=1&dec=1&vfov=2&point_ra=1&point_dec=NaN", http.StatusBadRequest, false},
		{"infinite rotation", "/v1/viewport/contains?ra=1&dec=1&vfov=2&rotation=Inf&target=Vega", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, router, tt.url)
			if code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %v", code, tt.wantCode, body)
			}
			if code == http.StatusOK && body["contains"] != tt.contains {
				t.Errorf("contains = %v, want %v", body["contains"], tt.contains)
			}
		})
	}
}

func TestGetState(t *testing.T) {
	code, _ := get(t, newTestRouter(t, nil), "/v1/state")
	if code != http.StatusServiceUnavailable {
		t.Errorf("without state: status = %d", code)
	}

	mgr := state.NewManager(state.DefaultConfig())
	ref := time.Date(2024, 11, 15, 12, 0, 0, 0, time.UTC)
	mgr.Update(vienna, &nighttime.Data{ReferenceDate: ref}, []state.TargetStatus{{
		Name:        "Vega",
		Position:    astro.TopocentricCoordinates{Altitude: astro.ByDegree(42), Azimuth: astro.ByDegree(290)},
		MaxAltitude: 80.6,
	}}, time.Millisecond, nil)

	code, body := get(t, newTestRouter(t, mgr), "/v1/state")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	targets := body["targets"].([]any)
	if len(targets) != 1 || targets[0].(map[string]any)["name"] != "Vega" {
		t.Errorf("targets = %v", targets)
	}
	if body["observer"] != "Vienna" {
		t.Errorf("observer = %v", body["observer"])
	}
}

func TestCORS(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.org")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
