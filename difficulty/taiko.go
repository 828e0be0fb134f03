package difficulty

import (
	"math"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

const (
	taikoStarScaling  = 0.04125
	taikoDecay        = 0.3
	colourChangeBonus = 0.75
	rhythmChangeBonus = 0.2
)

type taikoAttributes struct {
	Stars    float64
	MaxCombo int
	Hits     int
	Map      mods.Attributes
}

// isRim reports whether a hit is a kat (blue) note.
func isRim(s dotosu.HitSoundFlags) bool {
	return s&(dotosu.HitSoundWhistle|dotosu.HitSoundClap) != 0
}

func taikoDifficulty(b *dotosu.Beatmap, m mods.Mods, passed *int) taikoAttributes {
	attrs := m.Attributes(b.Difficulty, dotosu.ModeTaiko)
	var hits []object
	for _, o := range scope(expandObjects(b), passed) {
		if o.Kind == dotosu.KindCircle {
			hits = append(hits, o)
		}
	}
	d := taikoAttributes{Map: attrs, Hits: len(hits), MaxCombo: len(hits)}

	rate := attrs.ClockRate
	skill := newStrainSkill(1, taikoDecay)
	runLength, prevRunLength := 1, 0
	prevDelta := 0.0
	for i := 1; i < len(hits); i++ {
		cur, prev := hits[i], hits[i-1]
		delta := (cur.Time - prev.Time) / rate

		addition := 1.0
		if isRim(cur.Sound) != isRim(prev.Sound) {
			// a run of one colour ended
			if prevRunLength > 0 && runLength%2 != prevRunLength%2 {
				addition += colourChangeBonus
			}
			prevRunLength, runLength = runLength, 1
		} else {
			runLength++
		}
		if delta < 1000 && prevDelta > 0 && delta > 0 {
			if math.Abs(math.Log(delta/prevDelta)) > 0.2 {
				addition += rhythmChangeBonus
			}
		}
		if delta >= 1000 {
			addition = 1
		}

		factor := 1.0
		if delta < 50 {
			factor = 0.4 + 0.6*delta/50
		}
		skill.process(cur.Time/rate, addition*factor)
		prevDelta = delta
	}

	d.Stars = skill.difficultyValue() * taikoStarScaling
	return d
}

type taikoHits struct {
	N300, N100, Misses int
}

func (h taikoHits) accuracy() float64 {
	total := h.N300 + h.N100 + h.Misses
	if total == 0 {
		return 0
	}
	return (float64(h.N300) + float64(h.N100)/2) / float64(total)
}

func resolveTaikoHits(total int, st score.TaikoState) taikoHits {
	misses := clampInt(st.Misses, 0, total)
	remaining := total - misses
	h := taikoHits{Misses: misses}

	switch {
	case st.N300 != nil || st.N100 != nil:
		h.N100 = clampInt(intOr(st.N100, 0), 0, remaining)
		h.N300 = remaining - h.N100
		if st.N300 != nil {
			h.N300 = clampInt(*st.N300, 0, h.N300)
		}
	case st.Accuracy != nil:
		acc := NormalizeAccuracy(*st.Accuracy)
		n100 := math.Round(2 * (float64(remaining) - acc*float64(total)))
		h.N100 = clampInt(int(n100), 0, remaining)
		h.N300 = remaining - h.N100
	default:
		h.N300 = remaining
	}
	return h
}

func taikoPerformance(d taikoAttributes, m mods.Mods, st score.TaikoState) float64 {
	if d.Hits == 0 {
		return 0
	}
	h := resolveTaikoHits(d.Hits, st)
	acc := h.accuracy()
	n := float64(d.Hits)

	strain := math.Pow(5*max(1, d.Stars/0.0075)-4, 2) / 100000
	lengthBonus := 1 + 0.1*min(1, n/1500)
	strain *= lengthBonus
	strain *= math.Pow(0.985, float64(h.Misses))
	if st.Combo != nil && d.MaxCombo > 0 {
		strain *= min(1, math.Sqrt(float64(clampInt(*st.Combo, 0, d.MaxCombo))/float64(d.MaxCombo)))
	}
	if m.Active(mods.Hidden) {
		strain *= 1.025
	}
	if m.Active(mods.Flashlight) {
		strain *= 1.05 * lengthBonus
	}
	strain *= acc

	accValue := 0.0
	window := mods.TaikoGreatWindow(d.Map.OD)
	if window > 0 {
		accValue = math.Pow(150/window, 1.1) * math.Pow(acc, 15) * 22
		accValue *= min(1.15, math.Pow(n/1500, 0.3))
	}

	multiplier := 1.1
	if m.Active(mods.NoFail) {
		multiplier *= 0.9
	}
	if m.Active(mods.Hidden) {
		multiplier *= 1.1
	}
	return PowSum(1.1, strain, accValue) * multiplier
}
