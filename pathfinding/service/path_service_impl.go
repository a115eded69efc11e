package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/preset"
	"github.com/wricardo/gridpath/pathfinding/search"
)

const (
	// DefaultMaxCells caps grid size (500x500).
	DefaultMaxCells = 250_000
	// DefaultTimeout bounds a single search.
	DefaultTimeout = 10 * time.Second

	tracerName = "github.com/wricardo/gridpath/pathfinding/service"
)

// Option configures a PathService
type Option func(*pathServiceImpl)

// WithMaxCells sets the largest grid accepted; n <= 0 disables the cap.
func WithMaxCells(n int) Option {
	return func(s *pathServiceImpl) { s.maxCells = n }
}

// WithTimeout sets the per-search deadline; d <= 0 disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *pathServiceImpl) { s.timeout = d }
}

// WithMetrics records searches into m.
func WithMetrics(m *Metrics) Option {
	return func(s *pathServiceImpl) { s.metrics = m }
}

// WithTracer sets the tracer used for search spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *pathServiceImpl) { s.tracer = t }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *pathServiceImpl) { s.logger = l }
}

// pathServiceImpl implements the PathService interface
type pathServiceImpl struct {
	presets  PresetStore
	maxCells int
	timeout  time.Duration
	metrics  *Metrics
	tracer   trace.Tracer
	logger   logrus.FieldLogger
}

// NewPathService creates a new path service instance
func NewPathService(presets PresetStore, opts ...Option) PathService {
	s := &pathServiceImpl{
		presets:  presets,
		maxCells: DefaultMaxCells,
		timeout:  DefaultTimeout,
		tracer:   otel.Tracer(tracerName),
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindPath validates the request and runs a search on it
func (s *pathServiceImpl) FindPath(ctx context.Context, req *FindPathRequest) (*FindPathResult, error) {
	g, start, end, err := s.buildGrid(req)
	if err != nil {
		s.metrics.ObserveFailure(OutcomeRejected, 0)
		return nil, err
	}

	result, err := s.solve(ctx, g, start, end)
	if err != nil {
		return nil, err
	}
	result.Channel = req.Channel
	return result, nil
}

// SolvePreset runs a search on a named preset; an empty name uses the default
func (s *pathServiceImpl) SolvePreset(ctx context.Context, name string) (*FindPathResult, error) {
	p, id, err := s.loadPreset(name)
	if err != nil {
		return nil, err
	}

	layout, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", preset.ErrInvalidPreset, err)
	}
	if err := s.checkSize(layout.Grid.Rows(), layout.Grid.Cols()); err != nil {
		s.metrics.ObserveFailure(OutcomeRejected, 0)
		return nil, err
	}

	result, err := s.solve(ctx, layout.Grid, layout.Start, layout.End)
	if err != nil {
		return nil, err
	}
	result.Preset = id
	return result, nil
}

// ListPresets returns all available presets
func (s *pathServiceImpl) ListPresets(ctx context.Context) ([]*preset.Info, error) {
	if s.presets == nil {
		return []*preset.Info{}, nil
	}
	infos, err := s.presets.ListPresets()
	if err != nil {
		return nil, err
	}
	if infos == nil {
		infos = []*preset.Info{}
	}
	return infos, nil
}

// GetPreset returns a preset expanded into cells
func (s *pathServiceImpl) GetPreset(ctx context.Context, name string) (*PresetDetail, error) {
	p, id, err := s.loadPreset(name)
	if err != nil {
		return nil, err
	}

	layout, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", preset.ErrInvalidPreset, err)
	}

	return &PresetDetail{
		PresetID:    id,
		Name:        p.Name,
		Description: p.Description,
		Layout:      p.Layout,
		Grid:        layout.Grid.Views(),
		Start:       layout.Start,
		End:         layout.End,
		Rows:        layout.Grid.Rows(),
		Cols:        layout.Grid.Cols(),
	}, nil
}

func (s *pathServiceImpl) loadPreset(name string) (*preset.Preset, string, error) {
	if s.presets == nil {
		return nil, "", preset.ErrPresetNotFound
	}
	if name == "" {
		p := s.presets.GetDefault()
		if p == nil {
			return nil, "", preset.ErrPresetNotFound
		}
		return p, "default", nil
	}

	p, err := s.presets.LoadPreset(name)
	if err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			return nil, "", fmt.Errorf("preset '%s': %w", name, err)
		}
		return nil, "", fmt.Errorf("failed to load preset %s: %w", name, err)
	}
	return p, name, nil
}

// buildGrid turns a request into a grid and endpoints. Missing endpoints
// default to the START and END cells.
func (s *pathServiceImpl) buildGrid(req *FindPathRequest) (*grid.Grid, grid.Coord, grid.Coord, error) {
	var none grid.Coord
	if req == nil {
		return nil, none, none, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}

	switch {
	case len(req.Grid) > 0:
		if err := s.checkSize(len(req.Grid), widestRow(req.Grid)); err != nil {
			return nil, none, none, err
		}
		g, err := grid.Load(req.Grid)
		if err != nil {
			return nil, none, none, err
		}
		start, err := endpoint(g, req.Start, grid.Start)
		if err != nil {
			return nil, none, none, err
		}
		end, err := endpoint(g, req.End, grid.End)
		if err != nil {
			return nil, none, none, err
		}
		return g, start, end, nil

	case len(req.Layout) > 0:
		width := 0
		for _, line := range req.Layout {
			width = max(width, utf8.RuneCountInString(line))
		}
		if err := s.checkSize(len(req.Layout), width); err != nil {
			return nil, none, none, err
		}
		layout, err := grid.ParseLayout(req.Layout)
		if err != nil {
			return nil, none, none, err
		}
		start, end := layout.Start, layout.End
		if req.Start != nil {
			start = *req.Start
		}
		if req.End != nil {
			end = *req.End
		}
		return layout.Grid, start, end, nil
	}

	return nil, none, none, fmt.Errorf("%w: grid or layout is required", ErrInvalidRequest)
}

// endpoint returns the explicit coordinate, or the only cell in state.
func endpoint(g *grid.Grid, explicit *grid.Coord, state grid.State) (grid.Coord, error) {
	if explicit != nil {
		return *explicit, nil
	}
	found := g.Find(state)
	if len(found) != 1 {
		return grid.Coord{}, fmt.Errorf("%w: %s coordinate is required (grid has %d %s cells)",
			ErrInvalidRequest, strings.ToLower(string(state)), len(found), state)
	}
	return found[0], nil
}

func (s *pathServiceImpl) checkSize(rows, cols int) error {
	if s.maxCells > 0 && rows*cols > s.maxCells {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrGridTooLarge, rows, cols, s.maxCells)
	}
	return nil
}

func widestRow(rows [][]grid.CellView) int {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width
}

// solve runs the search under a span, records metrics and builds the envelope
func (s *pathServiceImpl) solve(ctx context.Context, g *grid.Grid, start, end grid.Coord) (*FindPathResult, error) {
	ctx, span := s.tracer.Start(ctx, "pathfinding.FindShortestPath", trace.WithAttributes(
		attribute.Int("grid.rows", g.Rows()),
		attribute.Int("grid.cols", g.Cols()),
		attribute.String("path.start", formatCoord(start)),
		attribute.String("path.end", formatCoord(end)),
	))
	defer span.End()

	began := time.Now()
	res, err := s.run(ctx, g, start, end)
	elapsed := time.Since(began)

	fields := logrus.Fields{
		"rows":     g.Rows(),
		"cols":     g.Cols(),
		"start":    formatCoord(start),
		"end":      formatCoord(end),
		"duration": elapsed,
	}

	if err != nil {
		s.metrics.ObserveFailure(failureOutcome(err), elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithFields(fields).WithError(err).Warn("search failed")
		return nil, err
	}

	s.metrics.ObserveSearch(res, g.Size(), elapsed)
	span.SetAttributes(
		attribute.Bool("path.found", res.Found),
		attribute.Int("path.length", res.PathLength()),
		attribute.Int("trace.steps", len(res.Trace)),
		attribute.Int("cells.finalized", res.Finalized),
	)

	fields["found"] = res.Found
	fields["path_len"] = res.PathLength()
	fields["steps"] = len(res.Trace)
	s.logger.WithFields(fields).Debug("search complete")

	return newFindPathResult(g, start, end, res), nil
}

// run executes the search on its own goroutine so the caller can give up on
// it. An abandoned search finishes in the background and its result is dropped.
func (s *pathServiceImpl) run(ctx context.Context, g *grid.Grid, start, end grid.Coord) (*search.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type outcome struct {
		res *search.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := search.FindShortestPath(g, start, end)
		done <- outcome{res, err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrSearchTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, ErrSearchTimeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.Is(err, grid.ErrOutOfBounds), errors.Is(err, search.ErrObstacleEndpoint):
		return OutcomeRejected
	}
	return OutcomeError
}

func newFindPathResult(g *grid.Grid, start, end grid.Coord, res *search.Result) *FindPathResult {
	result := &FindPathResult{
		ShortestPath:       make([]grid.CellView, 0, len(res.Path)),
		VisualizationSteps: res.Trace,
		Message:            MessageNoPath,
		PathFound:          res.Found,
		FinalizedCells:     res.Finalized,
		Rows:               g.Rows(),
		Cols:               g.Cols(),
		Start:              start,
		End:                end,
		Rendered:           grid.Render(g, res.Path),
	}

	// Path cells keep their input type, the trace carries the PATH tagging.
	for _, c := range res.Path {
		if cell, err := g.Locate(c); err == nil {
			result.ShortestPath = append(result.ShortestPath, cell.View(cell.State))
		}
	}

	if res.Found {
		result.Message = MessagePathFound
		distance := res.PathLength()
		result.Distance = &distance
	}
	return result
}

func formatCoord(c grid.Coord) string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}
