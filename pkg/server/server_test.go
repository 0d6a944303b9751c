package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/factorial/trendline/pkg/buildinfo"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/motion"
	"github.com/factorial/trendline/pkg/pipeline"
)

func newTestServer(metrics http.Handler) *httptest.Server {
	logger := log.New(&bytes.Buffer{})
	runner := pipeline.NewRunner(nil, nil, logger)
	s := New(runner, logger, Config{Defaults: pipeline.DefaultOptions(), Metrics: metrics})
	return httptest.NewServer(s.Handler())
}

func get(t *testing.T, ts *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatal(err)
	}
	return resp, buf.String()
}

func TestChartSVG(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/chart.svg?steps=3&initial=100&drift=0&volatility=0&dt=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(body, `d="M 0 50 L 10 50 L 20 50"`) {
		t.Errorf("unexpected svg:\n%s", body)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("unseeded Cache-Control = %q, want no-store", cc)
	}
}

func TestChartSVGSeeded(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	_, a := get(t, ts, "/chart.svg?seed=42&curves=2")
	resp, b := get(t, ts, "/chart.svg?seed=42&curves=2")
	if a != b {
		t.Error("seeded charts should be identical")
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.HasPrefix(cc, "public") {
		t.Errorf("seeded Cache-Control = %q", cc)
	}
	if strings.Count(b, "<path") != 2 {
		t.Errorf("want 2 paths:\n%s", b)
	}
}

func TestChartSVGFallback(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/chart.svg?volatility=-1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 empty chart", resp.StatusCode)
	}
	if resp.Header.Get(ErrorHeader) == "" {
		t.Errorf("missing %s header", ErrorHeader)
	}
	if !strings.HasPrefix(body, "<svg") || strings.Contains(body, "<path") {
		t.Errorf("fallback should be an empty svg:\n%s", body)
	}
}

func TestChartJSONError(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/chart.json?volatility=-1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var e errorBody
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	if e.Code != errors.ErrCodeInvalidParameter || e.Message == "" {
		t.Errorf("error body = %+v", e)
	}
}

func TestChartJSON(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/chart.json?steps=5&seed=3&easing=linear&duration=2s")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var doc struct {
		Seed      uint64 `json:"seed"`
		Animation struct {
			DurationMS int64  `json:"duration_ms"`
			Easing     string `json:"easing"`
		} `json:"animation"`
		Curves []struct {
			Points []json.RawMessage `json:"points"`
		} `json:"curves"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Seed != 3 || doc.Animation.DurationMS != 2000 || doc.Animation.Easing != "linear" {
		t.Errorf("doc = %+v", doc)
	}
	if len(doc.Curves) != 1 || len(doc.Curves[0].Points) != 5 {
		t.Errorf("curves = %+v", doc.Curves)
	}
}

func TestChartPNG(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/chart.png?steps=20&seed=1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "image/png" || !strings.HasPrefix(body, "\x89PNG") {
		t.Error("expected a PNG image")
	}
}

func TestChartBadQuery(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	tests := []struct {
		query string
		code  errors.Code
	}{
		{"steps=many", errors.ErrCodeInvalidInput},
		{"drift=up", errors.ErrCodeInvalidInput},
		{"seed=-1", errors.ErrCodeInvalidInput},
		{"duration=later", errors.ErrCodeInvalidInput},
		{"static=maybe", errors.ErrCodeInvalidInput},
		{"easing=bounce", errors.ErrCodeInvalidEasing},
		{"curves=100", errors.ErrCodeInvalidInput},
		{"width=-5", errors.ErrCodeInvalidParameter},
		{"width=1e19", errors.ErrCodeInvalidInput},
		{"steps=0&width=3e9&height=1", errors.ErrCodeInvalidInput},
		{"height=5000", errors.ErrCodeInvalidInput},
		{"steps=1000000&curves=64", errors.ErrCodeInvalidInput},
		{"steps=9223372036854775807", errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		resp, body := get(t, ts, "/chart.svg?"+tt.query)
		if resp.Header.Get(ErrorHeader) != "" {
			t.Errorf("%s: rejected queries must not fall back", tt.query)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.query, resp.StatusCode)
			continue
		}
		var e errorBody
		_ = json.Unmarshal([]byte(body), &e)
		if e.Code != tt.code {
			t.Errorf("%s: code = %s, want %s", tt.query, e.Code, tt.code)
		}
	}
}

func TestChartOversizePNG(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	for _, query := range []string{"width=1e19", "steps=0&width=3e9&height=1", "width=4097&height=4097"} {
		resp, body := get(t, ts, "/chart.png?"+query)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 (%s)", query, resp.StatusCode, body)
		}
	}
}

func TestChartScaledOverflow(t *testing.T) {
	defaults := pipeline.DefaultOptions()
	defaults.Scale.VerticalScale = 100
	logger := log.New(&bytes.Buffer{})
	ts := httptest.NewServer(New(pipeline.NewRunner(nil, nil, logger), logger, Config{Defaults: defaults}).Handler())
	defer ts.Close()

	q := "/chart.svg?steps=3&initial=1e307&volatility=0&drift=0"
	resp, body := get(t, ts, q)
	if resp.StatusCode != http.StatusOK || resp.Header.Get(ErrorHeader) == "" {
		t.Errorf("svg: status = %d, %s = %q; want 200 with fallback", resp.StatusCode, ErrorHeader, resp.Header.Get(ErrorHeader))
	}
	if strings.Contains(body, "Inf") || strings.Contains(body, "NaN") || strings.Contains(body, "<path") {
		t.Errorf("svg fallback is not an empty finite chart:\n%s", body)
	}

	resp, body = get(t, ts, strings.Replace(q, "chart.svg", "chart.json", 1))
	var e errorBody
	_ = json.Unmarshal([]byte(body), &e)
	if resp.StatusCode != http.StatusBadRequest || e.Code != errors.ErrCodeInvalidParameter {
		t.Errorf("json: status = %d, code = %s; want 400 INVALID_PARAMETER", resp.StatusCode, e.Code)
	}
}

func TestChartMaxPoints(t *testing.T) {
	h := New(pipeline.NewRunner(nil, nil, log.New(&bytes.Buffer{})), log.New(&bytes.Buffer{}), Config{
		Defaults:  pipeline.DefaultOptions(),
		MaxPoints: 100,
	}).Handler()
	ts := httptest.NewServer(h)
	defer ts.Close()

	if resp, _ := get(t, ts, "/chart.svg?steps=50&curves=2"); resp.StatusCode != http.StatusOK {
		t.Errorf("100 points: status = %d, want 200", resp.StatusCode)
	}
	if resp, _ := get(t, ts, "/chart.svg?steps=51&curves=2"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("102 points: status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthAndVersion(t *testing.T) {
	ts := newTestServer(nil)
	defer ts.Close()

	resp, body := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, body = get(t, ts, "/version")
	var info buildinfo.Info
	if err := json.Unmarshal([]byte(body), &info); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("version = %d %q (%v)", resp.StatusCode, body, err)
	}
	if info.Version != buildinfo.Version {
		t.Errorf("version = %q, want %q", info.Version, buildinfo.Version)
	}

	resp, _ = get(t, ts, "/metrics")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", resp.StatusCode)
	}
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metric 1\n"))
	})
	ts := newTestServer(metrics)
	defer ts.Close()

	if _, body := get(t, ts, "/metrics"); body != "metric 1\n" {
		t.Errorf("/metrics = %q", body)
	}
}

func TestParseQuery(t *testing.T) {
	base := pipeline.DefaultOptions()
	base.Palette = []string{"#fff"}
	q := url.Values{
		"steps":      {"10"},
		"initial":    {"50"},
		"drift":      {"0.1"},
		"volatility": {"0.3"},
		"dt":         {"0.5"},
		"curves":     {"4"},
		"seed":       {"99"},
		"duration":   {"1500"},
		"fade":       {"250ms"},
		"easing":     {"easeIn"},
		"width":      {"300"},
		"height":     {"100"},
		"static":     {"true"},
	}

	opts, err := parseQuery(q, base)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Params.Steps != 10 || opts.Params.InitialValue != 50 || opts.Params.Drift != 0.1 ||
		opts.Params.Volatility != 0.3 || opts.Params.Dt != 0.5 {
		t.Errorf("params = %+v", opts.Params)
	}
	if opts.Curves != 4 || opts.Seed != 99 || opts.Width != 300 || opts.Height != 100 || !opts.Static {
		t.Errorf("opts = %+v", opts)
	}
	if opts.Animation.Duration != 1500*time.Millisecond || opts.Animation.FadeDuration != 250*time.Millisecond {
		t.Errorf("animation = %+v", opts.Animation)
	}
	if opts.Animation.Easing != motion.EaseIn {
		t.Errorf("easing = %q", opts.Animation.Easing)
	}

	opts.Palette[0] = "#000"
	if base.Palette[0] != "#fff" {
		t.Error("parseQuery must not alias the base palette")
	}

	empty, err := parseQuery(url.Values{}, base)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Params != base.Params || empty.Seed != 0 {
		t.Error("empty query should keep defaults")
	}
}
