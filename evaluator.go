// Package ppbind computes star ratings and performance points for plays in
// all four osu! rulesets from sparse play records.
//
// A play record only carries the fields the caller knows; see package score.
// Every evaluation loads its chart fresh, resolves the record and runs the
// difficulty model, so an Evaluator can be shared between goroutines.
package ppbind

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ppbind/difficulty"
	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

type (
	ChartLoadError  = dotosu.ChartLoadError
	ChartParseError = dotosu.ChartParseError
)

// ChartProvider loads a chart by path. Callers wanting a chart cache can
// put one behind this interface.
type ChartProvider interface {
	Load(path string) (*dotosu.Beatmap, error)
}

type ChartProviderFunc func(path string) (*dotosu.Beatmap, error)

func (f ChartProviderFunc) Load(path string) (*dotosu.Beatmap, error) { return f(path) }

// Model rates charts and plays. Performance.Stars must equal Stars scoped to
// the same passed objects.
type Model interface {
	Stars(chart *dotosu.Beatmap, m mods.Mods, mode dotosu.Mode, passedObjects *int) (float64, error)
	Osu(chart *dotosu.Beatmap, m mods.Mods, state score.StdState) (difficulty.Performance, error)
	Taiko(chart *dotosu.Beatmap, m mods.Mods, state score.TaikoState) (difficulty.Performance, error)
	Mania(chart *dotosu.Beatmap, m mods.Mods, state score.ManiaState) (difficulty.Performance, error)
	Catch(chart *dotosu.Beatmap, m mods.Mods, state score.CatchState) (difficulty.Performance, error)
}

var _ Model = difficulty.Calculator{}

type Evaluator struct {
	charts ChartProvider
	model  Model
	logger *zap.Logger
}

type Option func(*Evaluator)

func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = l }
}

func WithChartProvider(p ChartProvider) Option {
	return func(e *Evaluator) { e.charts = p }
}

func WithModel(m Model) Option {
	return func(e *Evaluator) { e.model = m }
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		charts: ChartProviderFunc(dotosu.Load),
		model:  difficulty.Calculator{},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Std evaluates an osu!standard play twice: once as played, and once as
// the zero-miss play at the potential accuracy, which gives MaxPP.
func (e *Evaluator) Std(path string, m mods.Mods, in score.Std) (*StdResult, error) {
	chart, err := e.charts.Load(path)
	if err != nil {
		return nil, err
	}
	st := in.Resolve()

	var total float64
	var actual, potential difficulty.Performance
	var g errgroup.Group
	g.Go(func() (err error) {
		total, err = e.model.Stars(chart, m, dotosu.ModeStandard, nil)
		return err
	})
	g.Go(func() (err error) {
		actual, err = e.model.Osu(chart, m, st.Actual)
		return err
	})
	if st.NeedsPotential {
		g.Go(func() (err error) {
			potential, err = e.model.Osu(chart, m, st.Potential)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", path, err)
	}

	res := aggregateStd(total, actual, potential)
	e.logger.Debug("evaluated play",
		zap.String("mode", dotosu.ModeStandard.String()),
		zap.String("path", path),
		zap.Stringer("mods", m),
		zap.Float64("stars", res.TotalStars),
		zap.Float64("pp", res.PP),
		zap.Float64("max_pp", res.MaxPP),
	)
	return res, nil
}

func (e *Evaluator) Taiko(path string, m mods.Mods, in score.Taiko) (*TaikoResult, error) {
	st := in.Resolve()
	total, p, err := e.single(path, m, dotosu.ModeTaiko, func(chart *dotosu.Beatmap) (difficulty.Performance, error) {
		return e.model.Taiko(chart, m, st.Actual)
	})
	if err != nil {
		return nil, err
	}
	return aggregateTaiko(total, p), nil
}

func (e *Evaluator) Mania(path string, m mods.Mods, in score.Mania) (*ManiaResult, error) {
	st := in.Resolve()
	total, p, err := e.single(path, m, dotosu.ModeMania, func(chart *dotosu.Beatmap) (difficulty.Performance, error) {
		return e.model.Mania(chart, m, st.Actual)
	})
	if err != nil {
		return nil, err
	}
	return aggregateMania(total, p), nil
}

func (e *Evaluator) Catch(path string, m mods.Mods, in score.Catch) (*CatchResult, error) {
	st := in.Resolve()
	total, p, err := e.single(path, m, dotosu.ModeCatch, func(chart *dotosu.Beatmap) (difficulty.Performance, error) {
		return e.model.Catch(chart, m, st.Actual)
	})
	if err != nil {
		return nil, err
	}
	return aggregateCatch(total, p), nil
}

// single loads the chart and runs one play evaluation next to the unscoped
// star rating.
func (e *Evaluator) single(path string, m mods.Mods, mode dotosu.Mode, eval func(*dotosu.Beatmap) (difficulty.Performance, error)) (float64, difficulty.Performance, error) {
	chart, err := e.charts.Load(path)
	if err != nil {
		return 0, difficulty.Performance{}, err
	}

	var total float64
	var p difficulty.Performance
	var g errgroup.Group
	g.Go(func() (err error) {
		total, err = e.model.Stars(chart, m, mode, nil)
		return err
	})
	g.Go(func() (err error) {
		p, err = eval(chart)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, difficulty.Performance{}, fmt.Errorf("evaluate %s: %w", path, err)
	}

	e.logger.Debug("evaluated play",
		zap.String("mode", mode.String()),
		zap.String("path", path),
		zap.Stringer("mods", m),
		zap.Float64("stars", total),
		zap.Float64("pp", p.PP),
	)
	return total, p, nil
}

var defaultEvaluator = New()

// StdPP evaluates an osu!standard play with the default evaluator.
func StdPP(path string, m mods.Mods, in score.Std) (*StdResult, error) {
	return defaultEvaluator.Std(path, m, in)
}

func TaikoPP(path string, m mods.Mods, in score.Taiko) (*TaikoResult, error) {
	return defaultEvaluator.Taiko(path, m, in)
}

func ManiaPP(path string, m mods.Mods, in score.Mania) (*ManiaResult, error) {
	return defaultEvaluator.Mania(path, m, in)
}

func CatchPP(path string, m mods.Mods, in score.Catch) (*CatchResult, error) {
	return defaultEvaluator.Catch(path, m, in)
}
