package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/factorial/trendline/pkg/cache"
	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/errors"
	"github.com/factorial/trendline/pkg/gbm"
	"github.com/factorial/trendline/pkg/render/sink"
)

// memCache is an in-memory cache.Cache that counts writes.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func (c *memCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(&bytes.Buffer{}))
}

func TestExecuteFlatScenario(t *testing.T) {
	opts := DefaultOptions()
	opts.Params = gbm.Params{Steps: 3, InitialValue: 100, Drift: 0, Volatility: 0, Dt: 1}
	opts.Formats = []string{FormatPath, FormatSVG, FormatJSON}

	res, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	wantSeries := gbm.Series{{Index: 0, Value: 100}, {Index: 1, Value: 100}, {Index: 2, Value: 100}}
	if len(res.Series) != 1 || len(res.Series[0]) != 3 {
		t.Fatalf("Series = %v", res.Series)
	}
	for i, p := range res.Series[0] {
		if p != wantSeries[i] {
			t.Errorf("series[%d] = %v, want %v", i, p, wantSeries[i])
		}
	}

	wantPoints := []curve.Point{{X: 0, Y: 50}, {X: 10, Y: 50}, {X: 20, Y: 50}}
	for i, p := range res.Curves[0].Points {
		if p != wantPoints[i] {
			t.Errorf("curve[%d] = %v, want %v", i, p, wantPoints[i])
		}
	}

	if got := string(res.Artifacts[FormatPath]); got != "M 0 50 L 10 50 L 20 50\n" {
		t.Errorf("path artifact = %q", got)
	}
	if !strings.Contains(string(res.Artifacts[FormatSVG]), `d="M 0 50 L 10 50 L 20 50"`) {
		t.Errorf("svg missing path data:\n%s", res.Artifacts[FormatSVG])
	}
	if len(res.Artifacts[FormatJSON]) == 0 {
		t.Error("json artifact missing")
	}

	if res.Stats.Curves != 1 || res.Stats.Points != 3 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.CacheInfo.Cacheable {
		t.Error("unseeded run should not be cacheable")
	}
}

func TestExecuteSeededCaching(t *testing.T) {
	c := newMemCache()
	r := quietRunner(c)
	opts := DefaultOptions()
	opts.Seed = 42
	opts.Curves = 3
	opts.Formats = []string{FormatSVG, FormatJSON}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.GenerateHit || first.CacheInfo.RenderHit {
		t.Errorf("first run should miss: %+v", first.CacheInfo)
	}
	if c.len() != 3 {
		t.Errorf("cache entries = %d, want 3 (series + 2 artifacts)", c.len())
	}

	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.GenerateHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run should hit: %+v", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("seeded SVG should be identical across runs")
	}
	if len(second.Curves) != 3 {
		t.Errorf("curves on cache hit = %d, want 3", len(second.Curves))
	}
}

func TestExecuteSeededIsDeterministicWithoutCache(t *testing.T) {
	opts := DefaultOptions()
	opts.Seed = 7

	a, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Artifacts[FormatSVG], b.Artifacts[FormatSVG]) {
		t.Error("same seed should produce identical SVG")
	}
}

func TestExecuteUnseededBypassesCache(t *testing.T) {
	c := newMemCache()
	if _, err := quietRunner(c).Execute(context.Background(), DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if c.sets != 0 {
		t.Errorf("unseeded run wrote %d cache entries", c.sets)
	}
}

func TestExecuteRefresh(t *testing.T) {
	c := newMemCache()
	r := quietRunner(c)
	opts := DefaultOptions()
	opts.Seed = 9

	if _, err := r.Execute(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	opts.Refresh = true
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.GenerateHit || res.CacheInfo.RenderHit {
		t.Errorf("refresh should skip cache reads: %+v", res.CacheInfo)
	}
	if c.sets != 4 {
		t.Errorf("sets = %d, want 4 (refresh writes back)", c.sets)
	}
}

func TestExecuteFallback(t *testing.T) {
	c := newMemCache()
	r := quietRunner(c)
	opts := DefaultOptions()
	opts.Seed = 3
	opts.Params.Volatility = -0.2
	opts.Formats = []string{FormatSVG, FormatPath}

	if _, err := r.Execute(context.Background(), opts); !errors.Is(err, errors.ErrCodeInvalidParameter) {
		t.Fatalf("without fallback err = %v, want INVALID_PARAMETER", err)
	}

	opts.Fallback = true
	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !errors.Is(res.Fallback, errors.ErrCodeInvalidParameter) {
		t.Errorf("Fallback = %v, want INVALID_PARAMETER", res.Fallback)
	}
	svg := string(res.Artifacts[FormatSVG])
	if !strings.HasPrefix(svg, "<svg") || strings.Contains(svg, "<path") {
		t.Errorf("fallback should be an empty chart:\n%s", svg)
	}
	if got := string(res.Artifacts[FormatPath]); got != "\n" {
		t.Errorf("fallback path data = %q", got)
	}
	if c.sets != 0 {
		t.Errorf("fallback chart was cached (%d sets)", c.sets)
	}
}

func TestExecuteScaledOverflow(t *testing.T) {
	opts := DefaultOptions()
	opts.Params = gbm.Params{Steps: 3, InitialValue: 1e307, Drift: 0, Volatility: 0, Dt: 1}
	opts.Scale = curve.Scale{HorizontalScale: 10, VerticalOffset: 100, VerticalScale: 100}
	opts.Formats = []string{FormatSVG, FormatJSON, FormatPath}

	if _, err := quietRunner(nil).Execute(context.Background(), opts); !errors.Is(err, errors.ErrCodeInvalidParameter) {
		t.Fatalf("without fallback err = %v, want INVALID_PARAMETER", err)
	}

	opts.Fallback = true
	res, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	if !errors.Is(res.Fallback, errors.ErrCodeInvalidParameter) {
		t.Errorf("Fallback = %v, want INVALID_PARAMETER", res.Fallback)
	}
	for format, data := range res.Artifacts {
		if strings.Contains(string(data), "Inf") || strings.Contains(string(data), "NaN") {
			t.Errorf("%s artifact contains a non-finite number:\n%s", format, data)
		}
	}
	if strings.Contains(string(res.Artifacts[FormatSVG]), "<path") {
		t.Error("fallback SVG should have no path")
	}
}

func TestExecuteRejectsMisshapenCachedSeries(t *testing.T) {
	c := newMemCache()
	r := quietRunner(c)
	opts := DefaultOptions()
	opts.Seed = 11
	opts.Params.Steps = 5
	opts.SetRenderDefaults()

	key := r.Keyer.SeriesKey(opts.SeriesKeyOpts())
	short := []byte(`[[{"index":0,"value":100},{"index":1,"value":101}]]`)
	if err := c.Set(context.Background(), key, short, 0); err != nil {
		t.Fatal(err)
	}

	res, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.GenerateHit {
		t.Error("truncated cached series should be a miss")
	}
	if len(res.Series) != 1 || len(res.Series[0]) != 5 {
		t.Errorf("series shape = %d curves x %d points, want 1 x 5", len(res.Series), len(res.Series[0]))
	}
}

func TestExecuteFallbackKeepsPresentationErrors(t *testing.T) {
	opts := DefaultOptions()
	opts.Fallback = true
	opts.Formats = []string{"gif"}

	if _, err := quietRunner(nil).Execute(context.Background(), opts); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("err = %v, want INVALID_FORMAT", err)
	}
}

func TestExecuteZeroSteps(t *testing.T) {
	opts := DefaultOptions()
	opts.Params.Steps = 0
	opts.Formats = []string{FormatSVG, FormatPNG}

	res, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Series[0]) != 0 || !res.Curves[0].Empty() {
		t.Error("zero steps should produce an empty curve")
	}
	if strings.Contains(string(res.Artifacts[FormatSVG]), "<path") {
		t.Error("empty curve should not render a path")
	}
	if !bytes.HasPrefix(res.Artifacts[FormatPNG], []byte("\x89PNG")) {
		t.Error("png artifact should still be a PNG image")
	}
}

func TestExecuteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Fallback = true
	if _, err := quietRunner(nil).Execute(ctx, opts); err == nil {
		t.Error("cancelled context should fail even with fallback")
	}
}

func TestMultiCurvePalette(t *testing.T) {
	opts := DefaultOptions()
	opts.Curves = 3
	opts.Seed = 1

	res, err := quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(res.Artifacts[FormatSVG])
	for _, color := range sink.DefaultPalette[:3] {
		if !strings.Contains(svg, `stroke="`+color+`"`) {
			t.Errorf("svg missing palette colour %s", color)
		}
	}

	opts.Stroke = "#000000"
	res, err = quietRunner(nil).Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(res.Artifacts[FormatSVG]), `stroke="#000000"`); got != 3 {
		t.Errorf("explicit stroke used on %d curves, want 3", got)
	}
}
