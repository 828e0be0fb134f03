package difficulty

import (
	"math"
	"sort"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

const (
	maniaStarScaling  = 0.018
	individualDecay   = 0.125
	overallDecay      = 0.3
	maxManiaKeys      = 18
	defaultManiaScore = 1_000_000
)

type maniaNote struct {
	Time, End float64
	Column    int
}

type maniaAttributes struct {
	Stars    float64
	MaxCombo int
	Notes    int
	Keys     int
	// BaseOD is the chart OD before mods; mania windows scale on their own.
	BaseOD float64
	Map    mods.Attributes
}

var keyMods = []struct {
	mod  mods.Mods
	keys int
}{
	{mods.Key1, 1}, {mods.Key2, 2}, {mods.Key3, 3}, {mods.Key4, 4}, {mods.Key5, 5},
	{mods.Key6, 6}, {mods.Key7, 7}, {mods.Key8, 8}, {mods.Key9, 9},
}

// maniaKeys is the column count of the chart, or of its mania conversion.
func maniaKeys(b *dotosu.Beatmap, m mods.Mods) int {
	if b.General.Mode == dotosu.ModeMania {
		return clampInt(int(math.Round(b.Difficulty.CircleSize)), 1, maxManiaKeys)
	}
	for _, k := range keyMods {
		if m.Active(k.mod) {
			return k.keys
		}
	}

	cs := math.Round(b.Difficulty.CircleSize)
	od := math.Round(b.Difficulty.OverallDifficulty)
	special := 0
	for _, ho := range b.HitObjects {
		if k := ho.Kind(); k == dotosu.KindSlider || k == dotosu.KindSpinner {
			special++
		}
	}
	ratio := float64(special) / float64(max(1, len(b.HitObjects)))
	switch {
	case ratio < 0.2:
		return 7
	case ratio < 0.3 || cs >= 5:
		if od > 5 {
			return 7
		}
		return 6
	case ratio > 0.6:
		if od > 4 {
			return 5
		}
		return 4
	default:
		return max(4, min(int(od)+1, 7))
	}
}

func maniaNotes(objects []object, keys int) []maniaNote {
	notes := make([]maniaNote, 0, len(objects))
	for _, o := range objects {
		col := clampInt(int(math.Floor(o.Pos.X*float64(keys)/512)), 0, keys-1)
		n := maniaNote{Time: o.Time, End: o.Time, Column: col}
		if o.Kind != dotosu.KindCircle {
			n.End = o.EndTime
		}
		notes = append(notes, n)
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Time < notes[j].Time })
	return notes
}

func maniaDifficulty(b *dotosu.Beatmap, m mods.Mods, passed *int) maniaAttributes {
	attrs := m.Attributes(b.Difficulty, dotosu.ModeMania)
	keys := maniaKeys(b, m)
	notes := maniaNotes(scope(expandObjects(b), passed), keys)

	d := maniaAttributes{
		Map:    attrs,
		Keys:   keys,
		Notes:  len(notes),
		BaseOD: b.Difficulty.OverallDifficulty,
	}
	for _, n := range notes {
		d.MaxCombo++
		if n.End > n.Time {
			d.MaxCombo++
		}
	}
	if len(notes) == 0 {
		return d
	}

	rate := attrs.ClockRate
	individual := make([]float64, keys)
	holdEnds := make([]float64, keys)
	overall := 0.0
	var sections sectionPeaks

	prevTime := notes[0].Time / rate
	prevCol := notes[0].Column
	holdEnds[prevCol] = notes[0].End / rate

	for _, n := range notes[1:] {
		t, end := n.Time/rate, n.End/rate
		dt := t - prevTime

		holdFactor, holdAddition := 1.0, 0.0
		for c := range holdEnds {
			if holdEnds[c] > t && holdEnds[c] < end {
				holdAddition = 1
			}
			if holdEnds[c] > end {
				holdFactor = 1.25
			}
		}

		sections.advance(t, func(boundary float64) float64 {
			since := (boundary - prevTime) / 1000
			return individual[prevCol]*math.Pow(individualDecay, since) + overall*math.Pow(overallDecay, since)
		})

		decay := math.Pow(individualDecay, dt/1000)
		for c := range individual {
			individual[c] *= decay
		}
		individual[n.Column] += 2 * holdFactor
		overall = overall*math.Pow(overallDecay, dt/1000) + (1+holdAddition)*holdFactor
		holdEnds[n.Column] = end

		sections.observe(individual[n.Column] + overall)
		prevTime, prevCol = t, n.Column
	}

	d.Stars = sections.value() * maniaStarScaling
	return d
}

func maniaPerformance(d maniaAttributes, m mods.Mods, st score.ManiaState) float64 {
	if d.Notes == 0 {
		return 0
	}
	mult := m.ScoreMultiplier(dotosu.ModeMania)
	if mult <= 0 {
		return 0
	}
	sc := float64(defaultManiaScore)
	if st.Score != nil {
		sc = float64(*st.Score)
	}
	sc = min(sc/mult, defaultManiaScore)

	strain := math.Pow(5*max(1, d.Stars/0.2)-4, 2.2) / 135
	strain *= 1 + 0.1*min(1, float64(d.Notes)/1500)
	switch {
	case sc <= 500000:
		strain = 0
	case sc <= 600000:
		strain *= (sc - 500000) / 100000 * 0.3
	case sc <= 700000:
		strain *= 0.3 + (sc-600000)/100000*0.25
	case sc <= 800000:
		strain *= 0.55 + (sc-700000)/100000*0.2
	case sc <= 900000:
		strain *= 0.75 + (sc-800000)/100000*0.15
	default:
		strain *= 0.9 + (sc-900000)/100000*0.1
	}

	window := mods.ManiaPerfectWindow(d.BaseOD)
	if m.Active(mods.HardRock) {
		window /= 1.4
	} else if m.Active(mods.Easy) {
		window *= 1.4
	}
	window /= d.Map.ClockRate
	accValue := max(0, 0.2-(window-34)*0.006667) * strain * math.Pow(max(0, sc-960000)/40000, 1.1)

	multiplier := 0.8
	if m.Active(mods.NoFail) {
		multiplier *= 0.9
	}
	if m.Active(mods.Easy) {
		multiplier *= 0.5
	}
	return PowSum(1.1, strain, accValue) * multiplier
}
