package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
)

// mockPresetStore is a mock implementation of PresetStore for testing
type mockPresetStore struct {
	presets map[string]*preset.Preset
	def     *preset.Preset
}

func (m *mockPresetStore) LoadPreset(name string) (*preset.Preset, error) {
	p, ok := m.presets[name]
	if !ok {
		return nil, preset.ErrPresetNotFound
	}
	return p, nil
}

func (m *mockPresetStore) ListPresets() ([]*preset.Info, error) {
	var infos []*preset.Info
	for id, p := range m.presets {
		infos = append(infos, &preset.Info{PresetID: id, Name: p.Name})
	}
	return infos, nil
}

func (m *mockPresetStore) GetDefault() *preset.Preset {
	return m.def
}

func newTestStore() *mockPresetStore {
	center := &preset.Preset{
		Name:   "Center Block",
		Layout: []string{"S..", ".#.", "..E"},
	}
	return &mockPresetStore{
		presets: map[string]*preset.Preset{
			"center_block": center,
			"blocked":      {Name: "Blocked", Layout: []string{"S#E"}},
		},
		def: center,
	}
}

func newTestService(t *testing.T, opts ...Option) PathService {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	return NewPathService(newTestStore(), append([]Option{WithLogger(logger)}, opts...)...)
}

func coordPtr(row, col int) *grid.Coord {
	return &grid.Coord{Row: row, Col: col}
}

func TestFindPath_Layout(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.FindPath(context.Background(), &FindPathRequest{
		Layout:  []string{"S..", ".#.", "..E"},
		Channel: "demo",
	})
	require.NoError(t, err)

	assert.True(t, result.PathFound)
	assert.Equal(t, MessagePathFound, result.Message)
	require.NotNil(t, result.Distance)
	assert.Equal(t, 4, *result.Distance)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, 3, result.Cols)
	assert.Equal(t, "demo", result.Channel)
	assert.Equal(t, 8, result.FinalizedCells)

	assert.Equal(t, []grid.CellView{
		{Row: 0, Col: 0, Type: grid.Start},
		{Row: 1, Col: 0, Type: grid.Empty},
		{Row: 2, Col: 0, Type: grid.Empty},
		{Row: 2, Col: 1, Type: grid.Empty},
		{Row: 2, Col: 2, Type: grid.End},
	}, result.ShortestPath)
	assert.Equal(t, []grid.Coord{{Row: 0, Col: 0}, {Row: 1, Col: 0}, {Row: 2, Col: 0}, {Row: 2, Col: 1}, {Row: 2, Col: 2}}, result.Path())
	assert.Equal(t, []string{"S..", "*#.", "**E"}, result.Rendered)

	require.Len(t, result.VisualizationSteps, 16)
	last := result.VisualizationSteps[len(result.VisualizationSteps)-1]
	assert.Equal(t, search.ActionPathFound, last.Action)
}

func TestFindPath_Cells(t *testing.T) {
	svc := newTestService(t)

	cells := [][]grid.CellView{
		{{Row: 0, Col: 0, Type: grid.Start}, {Row: 0, Col: 1, Type: grid.Obstacle}, {Row: 0, Col: 2, Type: grid.End}},
	}

	t.Run("no path", func(t *testing.T) {
		result, err := svc.FindPath(context.Background(), &FindPathRequest{
			Grid:  cells,
			Start: coordPtr(0, 0),
			End:   coordPtr(0, 2),
		})
		require.NoError(t, err)
		assert.False(t, result.PathFound)
		assert.Equal(t, MessageNoPath, result.Message)
		assert.Nil(t, result.Distance)
		assert.NotNil(t, result.ShortestPath)
		assert.Empty(t, result.ShortestPath)
		assert.Len(t, result.VisualizationSteps, 1)
	})

	t.Run("endpoints from START and END cells", func(t *testing.T) {
		open := [][]grid.CellView{
			{{Row: 0, Col: 0, Type: grid.Empty}, {Row: 0, Col: 1, Type: grid.End}},
			{{Row: 1, Col: 0, Type: grid.Start}, {Row: 1, Col: 1, Type: grid.Empty}},
		}
		result, err := svc.FindPath(context.Background(), &FindPathRequest{Grid: open})
		require.NoError(t, err)
		assert.Equal(t, grid.Coord{Row: 1, Col: 0}, result.Start)
		assert.Equal(t, grid.Coord{Row: 0, Col: 1}, result.End)
		require.NotNil(t, result.Distance)
		assert.Equal(t, 2, *result.Distance)
	})

	t.Run("missing endpoints", func(t *testing.T) {
		noEnd := [][]grid.CellView{{{Row: 0, Col: 0, Type: grid.Start}, {Row: 0, Col: 1, Type: grid.Empty}}}
		_, err := svc.FindPath(context.Background(), &FindPathRequest{Grid: noEnd})
		assert.ErrorIs(t, err, ErrInvalidRequest)

		twoStarts := [][]grid.CellView{{{Row: 0, Col: 0, Type: grid.Start}, {Row: 0, Col: 1, Type: grid.Start}}}
		_, err = svc.FindPath(context.Background(), &FindPathRequest{Grid: twoStarts, End: coordPtr(0, 1)})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	t.Run("mismatched cell coordinates", func(t *testing.T) {
		shifted := [][]grid.CellView{{{Row: 0, Col: 0, Type: grid.Start}, {Row: 0, Col: 5, Type: grid.End}}}
		_, err := svc.FindPath(context.Background(), &FindPathRequest{Grid: shifted})
		assert.ErrorIs(t, err, grid.ErrMalformedGrid)
	})

	t.Run("obstacle endpoint", func(t *testing.T) {
		_, err := svc.FindPath(context.Background(), &FindPathRequest{
			Grid:  cells,
			Start: coordPtr(0, 0),
			End:   coordPtr(0, 1),
		})
		assert.ErrorIs(t, err, search.ErrObstacleEndpoint)
	})

	t.Run("out of bounds", func(t *testing.T) {
		_, err := svc.FindPath(context.Background(), &FindPathRequest{
			Grid:  cells,
			Start: coordPtr(0, 0),
			End:   coordPtr(3, 3),
		})
		assert.ErrorIs(t, err, grid.ErrOutOfBounds)
	})

	t.Run("ragged grid", func(t *testing.T) {
		_, err := svc.FindPath(context.Background(), &FindPathRequest{
			Grid:  [][]grid.CellView{{{}, {}}, {{}}},
			Start: coordPtr(0, 0),
			End:   coordPtr(0, 1),
		})
		assert.ErrorIs(t, err, grid.ErrMalformedGrid)
	})
}

func TestFindPath_InvalidRequests(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.FindPath(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.FindPath(context.Background(), &FindPathRequest{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S.."}})
	assert.ErrorIs(t, err, grid.ErrMalformedGrid)
}

func TestFindPath_LayoutEndpointOverride(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.FindPath(context.Background(), &FindPathRequest{
		Layout: []string{"S...E"},
		End:    coordPtr(0, 2),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Distance)
	assert.Equal(t, 2, *result.Distance)
	assert.Equal(t, grid.Coord{Row: 0, Col: 2}, result.End)
}

func TestFindPath_GridTooLarge(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	svc := newTestService(t, WithMaxCells(8), WithMetrics(metrics))

	_, err := svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S..", ".#.", "..E"}})
	assert.ErrorIs(t, err, ErrGridTooLarge)

	_, err = svc.FindPath(context.Background(), &FindPathRequest{
		Grid:  [][]grid.CellView{make([]grid.CellView, 9)},
		Start: coordPtr(0, 0),
		End:   coordPtr(0, 8),
	})
	assert.ErrorIs(t, err, ErrGridTooLarge)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.searches.WithLabelValues(OutcomeRejected)))

	// At the cap is fine
	_, err = svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S..E", "...."}})
	assert.NoError(t, err)
}

func TestFindPath_Timeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	logger, hook := logtest.NewNullLogger()
	svc := NewPathService(nil, WithTimeout(time.Nanosecond), WithMetrics(metrics), WithLogger(logger))

	layout := make([]string, 200)
	for i := range layout {
		layout[i] = strings.Repeat(".", 200)
	}
	layout[0] = "S" + layout[0][1:]
	layout[199] = layout[199][:199] + "E"

	_, err := svc.FindPath(context.Background(), &FindPathRequest{Layout: layout})
	require.ErrorIs(t, err, ErrSearchTimeout)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searches.WithLabelValues(OutcomeTimeout)))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "search failed", entry.Message)
}

func TestFindPath_CanceledContext(t *testing.T) {
	svc := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.FindPath(ctx, &FindPathRequest{Layout: []string{"S.E"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSearchTimeout)
}

func TestFindPath_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	svc := newTestService(t, WithMetrics(metrics))

	_, err := svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S..", ".#.", "..E"}})
	require.NoError(t, err)
	_, err = svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S#E"}})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searches.WithLabelValues(OutcomeFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.searches.WithLabelValues(OutcomeNotFound)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.finalized, "gridpath_finalized_cells"))

	count, err := testutil.GatherAndCount(registry, "gridpath_searches_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFindPath_Span(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	svc := newTestService(t, WithTracer(tp.Tracer("test")))

	_, err := svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S..", ".#.", "..E"}})
	require.NoError(t, err)
	_, err = svc.FindPath(context.Background(), &FindPathRequest{Layout: []string{"S#E"}, End: coordPtr(0, 1)})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "pathfinding.FindShortestPath", ok.Name)
	attrs := attributeMap(ok.Attributes)
	assert.Equal(t, int64(3), attrs["grid.rows"].AsInt64())
	assert.Equal(t, "(0,0)", attrs["path.start"].AsString())
	assert.True(t, attrs["path.found"].AsBool())
	assert.Equal(t, int64(4), attrs["path.length"].AsInt64())
	assert.Equal(t, int64(16), attrs["trace.steps"].AsInt64())

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status.Code)
	assert.NotEmpty(t, failed.Events, "error should be recorded as a span event")
}

func attributeMap(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestSolvePreset(t *testing.T) {
	svc := newTestService(t)

	t.Run("named preset", func(t *testing.T) {
		result, err := svc.SolvePreset(context.Background(), "center_block")
		require.NoError(t, err)
		assert.True(t, result.PathFound)
		assert.Equal(t, "center_block", result.Preset)
	})

	t.Run("default preset", func(t *testing.T) {
		result, err := svc.SolvePreset(context.Background(), "")
		require.NoError(t, err)
		assert.True(t, result.PathFound)
		assert.Equal(t, "default", result.Preset)
	})

	t.Run("unsolvable preset", func(t *testing.T) {
		result, err := svc.SolvePreset(context.Background(), "blocked")
		require.NoError(t, err)
		assert.False(t, result.PathFound)
		assert.Equal(t, MessageNoPath, result.Message)
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := svc.SolvePreset(context.Background(), "missing")
		assert.ErrorIs(t, err, preset.ErrPresetNotFound)
	})

	t.Run("no store", func(t *testing.T) {
		_, err := NewPathService(nil).SolvePreset(context.Background(), "center_block")
		assert.ErrorIs(t, err, preset.ErrPresetNotFound)
	})
}

func TestGetPreset(t *testing.T) {
	svc := newTestService(t)

	detail, err := svc.GetPreset(context.Background(), "center_block")
	require.NoError(t, err)
	assert.Equal(t, "center_block", detail.PresetID)
	assert.Equal(t, "Center Block", detail.Name)
	assert.Equal(t, 3, detail.Rows)
	assert.Equal(t, 3, detail.Cols)
	assert.Equal(t, grid.Coord{Row: 0, Col: 0}, detail.Start)
	assert.Equal(t, grid.Coord{Row: 2, Col: 2}, detail.End)
	require.Len(t, detail.Grid, 3)
	assert.Equal(t, grid.Obstacle, detail.Grid[1][1].Type)

	_, err = svc.GetPreset(context.Background(), "missing")
	assert.ErrorIs(t, err, preset.ErrPresetNotFound)
}

func TestListPresets(t *testing.T) {
	svc := newTestService(t)

	infos, err := svc.ListPresets(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	infos, err = NewPathService(nil).ListPresets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestFindPath_Concurrent(t *testing.T) {
	svc := newTestService(t)
	req := &FindPathRequest{Layout: []string{
		"S....#....",
		".##..#.##.",
		"....#.....",
		".#......#E",
	}}

	expected, err := svc.FindPath(context.Background(), req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*FindPathResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.FindPath(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, expected.ShortestPath, r.ShortestPath)
		assert.Equal(t, expected.VisualizationSteps, r.VisualizationSteps)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch(&search.Result{}, 1, time.Millisecond)
		m.ObserveFailure(OutcomeError, time.Millisecond)
	})
}
