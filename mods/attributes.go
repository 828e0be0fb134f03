package mods

import "ppbind/dotosu"

// Attributes are the chart difficulty settings after the mods are applied.
// AR and OD are reported as if played at 1x speed.
type Attributes struct {
	AR        float64 `json:"ar"`
	CS        float64 `json:"cs"`
	OD        float64 `json:"od"`
	HP        float64 `json:"hp"`
	ClockRate float64 `json:"clock_rate"`
}

// Attributes applies HR/EZ scaling and the clock rate to the chart settings
// for the given ruleset.
func (m Mods) Attributes(d dotosu.Difficulty, mode dotosu.Mode) Attributes {
	rate := m.ClockRate()

	scale := 1.0
	if m.Active(HardRock) {
		scale = 1.4
	}
	if m.Active(Easy) {
		scale = 0.5
	}

	cs := d.CircleSize
	if mode != dotosu.ModeMania {
		if m.Active(HardRock) {
			cs = min(cs*1.3, 10)
		}
		if m.Active(Easy) {
			cs = cs / 2
		}
	}

	ar := min(d.ApproachRate*scale, 10)
	od := min(d.OverallDifficulty*scale, 10)
	hp := min(d.HPDrainRate*scale, 10)

	switch mode {
	case dotosu.ModeStandard:
		ar = PreemptToAR(ApproachRateToPreempt(ar) / rate)
		od = (80 - StandardGreatWindow(od)/rate) / 6
	case dotosu.ModeTaiko:
		od = (50 - TaikoGreatWindow(od)/rate) / 3
	case dotosu.ModeCatch:
		ar = PreemptToAR(ApproachRateToPreempt(ar) / rate)
		od = (80 - StandardGreatWindow(od)/rate) / 6
	}

	return Attributes{
		AR:        ar,
		CS:        cs,
		OD:        od,
		HP:        hp,
		ClockRate: rate,
	}
}

func ApproachRateToPreempt(ar float64) float64 {
	if ar < 5 {
		return 1200 + 120*(5-ar)
	} else if ar == 5 {
		return 1200
	} else {
		return 1200 - 150*(ar-5)
	}
}

func PreemptToAR(preempt float64) float64 {
	if preempt > 1200 {
		return 5 - (preempt-1200)/120
	} else if preempt == 1200 {
		return 5
	} else {
		return 5 + (1200-preempt)/150
	}
}

// StandardGreatWindow is the +- window of a 300 in osu!standard, in ms.
func StandardGreatWindow(od float64) float64 {
	return 80 - 6*od
}

// TaikoGreatWindow is the +- window of a GREAT in osu!taiko, in ms.
func TaikoGreatWindow(od float64) float64 {
	return DifficultyRange(od, 50, 35, 20)
}

// ManiaPerfectWindow is the +- window of a 300 in osu!mania at 1x speed
// without HR/EZ, in ms.
func ManiaPerfectWindow(od float64) float64 {
	return 34 + 3*min(10, max(0, 10-od))
}

// DifficultyRange maps a 0..10 setting onto min/mid/max at 0, 5 and 10.
func DifficultyRange(v, lo, mid, hi float64) float64 {
	if v > 5 {
		return mid + (hi-mid)*(v-5)/5
	}
	if v < 5 {
		return mid - (mid-lo)*(5-v)/5
	}
	return mid
}

// ScoreMultiplier is the score multiplier of the difficulty-reducing mods,
// used to normalise mania scores.
func (m Mods) ScoreMultiplier(mode dotosu.Mode) float64 {
	mult := 1.0
	if mode != dotosu.ModeMania {
		return mult
	}
	if m.Active(NoFail) {
		mult *= 0.5
	}
	if m.Active(Easy) {
		mult *= 0.5
	}
	if m.Active(HalfTime) {
		mult *= 0.5
	}
	return mult
}
