// Package difficulty rates charts and plays: star rating from per-object
// strain, and performance points from a resolved play state.
package difficulty

import (
	"errors"
	"fmt"
	"math"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

// Performance is the outcome of rating one play. Stars covers only the
// objects the play reached.
type Performance struct {
	PP         float64
	Stars      float64
	MaxCombo   int
	Attributes mods.Attributes
}

// Calculator rates plays on any chart in any of the four rulesets,
// converting charts from osu!standard where needed. The zero value is ready
// to use and safe for concurrent use.
type Calculator struct{}

// Stars is the star rating of the chart under m, limited to the first
// passedObjects objects when that is set.
func (Calculator) Stars(chart *dotosu.Beatmap, m mods.Mods, mode dotosu.Mode, passedObjects *int) (float64, error) {
	if chart == nil {
		return 0, errNilChart
	}
	var stars float64
	switch mode {
	case dotosu.ModeStandard:
		stars = osuDifficulty(chart, m, passedObjects).Stars
	case dotosu.ModeTaiko:
		stars = taikoDifficulty(chart, m, passedObjects).Stars
	case dotosu.ModeMania:
		stars = maniaDifficulty(chart, m, passedObjects).Stars
	case dotosu.ModeCatch:
		stars = catchDifficulty(chart, m, passedObjects).Stars
	default:
		return 0, fmt.Errorf("difficulty: unknown mode %d", mode)
	}
	if !finite(stars) {
		return 0, errNotFinite
	}
	return stars, nil
}

func (Calculator) Osu(chart *dotosu.Beatmap, m mods.Mods, state score.StdState) (Performance, error) {
	if chart == nil {
		return Performance{}, errNilChart
	}
	d := osuDifficulty(chart, m, state.PassedObjects)
	return checked(Performance{
		PP:         osuPerformance(d, m, state),
		Stars:      d.Stars,
		MaxCombo:   d.MaxCombo,
		Attributes: d.Map,
	})
}

func (Calculator) Taiko(chart *dotosu.Beatmap, m mods.Mods, state score.TaikoState) (Performance, error) {
	if chart == nil {
		return Performance{}, errNilChart
	}
	d := taikoDifficulty(chart, m, state.PassedObjects)
	return checked(Performance{
		PP:         taikoPerformance(d, m, state),
		Stars:      d.Stars,
		MaxCombo:   d.MaxCombo,
		Attributes: d.Map,
	})
}

func (Calculator) Mania(chart *dotosu.Beatmap, m mods.Mods, state score.ManiaState) (Performance, error) {
	if chart == nil {
		return Performance{}, errNilChart
	}
	d := maniaDifficulty(chart, m, state.PassedObjects)
	return checked(Performance{
		PP:         maniaPerformance(d, m, state),
		Stars:      d.Stars,
		MaxCombo:   d.MaxCombo,
		Attributes: d.Map,
	})
}

func (Calculator) Catch(chart *dotosu.Beatmap, m mods.Mods, state score.CatchState) (Performance, error) {
	if chart == nil {
		return Performance{}, errNilChart
	}
	d := catchDifficulty(chart, m, state.PassedObjects)
	return checked(Performance{
		PP:         catchPerformance(d, m, state),
		Stars:      d.Stars,
		MaxCombo:   d.MaxCombo,
		Attributes: d.Map,
	})
}

var (
	errNilChart  = errors.New("difficulty: nil chart")
	errNotFinite = errors.New("difficulty: chart produced a non-finite rating")
)

// checked rejects a rating that went NaN or infinite, so callers never see
// one as a result.
func checked(p Performance) (Performance, error) {
	if !finite(p.PP) || !finite(p.Stars) {
		return Performance{}, errNotFinite
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
