package difficulty

import (
	"math"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

const (
	osuStarScaling   = 0.0675
	normalisedRadius = 52.0

	aimMultiplier   = 26.25
	aimDecay        = 0.15
	speedMultiplier = 1400.0
	speedDecay      = 0.3

	singleSpacing        = 125.0
	minSpeedBonus        = 75.0
	speedBalancingFactor = 40.0
	minStrainTime        = 50.0
)

type osuAttributes struct {
	Stars, Aim, Speed float64

	MaxCombo int
	Objects  int
	Circles  int
	Sliders  int
	Spinners int

	Map mods.Attributes
}

// circleRadius is the osu!pixel radius of a circle at the given CS.
func circleRadius(cs float64) float64 {
	return 54.4 - 4.48*cs
}

func osuDifficulty(b *dotosu.Beatmap, m mods.Mods, passed *int) osuAttributes {
	attrs := m.Attributes(b.Difficulty, dotosu.ModeStandard)
	objects := scope(expandObjects(b), passed)

	d := osuAttributes{Map: attrs, Objects: len(objects)}
	for _, o := range objects {
		d.MaxCombo += o.combo()
		switch o.Kind {
		case dotosu.KindSlider:
			d.Sliders++
		case dotosu.KindSpinner:
			d.Spinners++
		default:
			d.Circles++
		}
	}

	rate := attrs.ClockRate
	radius := circleRadius(attrs.CS)
	scale := normalisedRadius / radius
	if radius < 30 {
		scale *= 1 + min(30-radius, 5)/50
	}

	aim := newStrainSkill(aimMultiplier, aimDecay)
	speed := newStrainSkill(speedMultiplier, speedDecay)
	for i := 1; i < len(objects); i++ {
		cur, prev := objects[i], objects[i-1]
		time := cur.Time / rate
		strainTime := max(minStrainTime, (cur.Time-prev.Time)/rate)

		var jump, travel float64
		if cur.Kind != dotosu.KindSpinner && prev.Kind != dotosu.KindSpinner {
			jump = cur.Pos.Dist(prev.EndPos) * scale
			travel = prev.Travel * scale
		}
		aim.process(time, aimStrain(jump, travel, strainTime))
		speed.process(time, speedStrain(jump+travel, strainTime))
	}

	d.Aim = math.Sqrt(aim.difficultyValue()) * osuStarScaling
	d.Speed = math.Sqrt(speed.difficultyValue()) * osuStarScaling
	d.Stars = d.Aim + d.Speed + math.Abs(d.Aim-d.Speed)/2
	return d
}

func aimStrain(jump, travel, strainTime float64) float64 {
	j := math.Pow(jump, 0.99)
	t := math.Pow(travel, 0.99)
	return (j + t + math.Sqrt(j*t)) / strainTime
}

func speedStrain(distance, strainTime float64) float64 {
	distance = min(distance, singleSpacing)
	bonus := 1.0
	if strainTime < minSpeedBonus {
		bonus += math.Pow((minSpeedBonus-strainTime)/speedBalancingFactor, 2)
	}
	return (1 + (bonus-1)*0.75) * (0.95 + bonus*math.Pow(distance/singleSpacing, 3.5)) / strainTime
}

type osuHits struct {
	N300, N100, N50, Misses int
}

func (h osuHits) total() int { return h.N300 + h.N100 + h.N50 + h.Misses }

func (h osuHits) accuracy() float64 {
	if h.total() == 0 {
		return 0
	}
	return float64(6*h.N300+2*h.N100+h.N50) / float64(6*h.total())
}

// resolveOsuHits fills in the judgement counts of a play over total
// objects. Explicit counts win over accuracy; with neither, every object
// that was not missed is a 300.
func resolveOsuHits(total int, st score.StdState) osuHits {
	misses := clampInt(st.Misses, 0, total)
	remaining := total - misses
	h := osuHits{Misses: misses}

	switch {
	case st.N300 != nil || st.N100 != nil || st.N50 != nil:
		h.N100 = clampInt(intOr(st.N100, 0), 0, remaining)
		h.N50 = clampInt(intOr(st.N50, 0), 0, remaining-h.N100)
		h.N300 = remaining - h.N100 - h.N50
		if st.N300 != nil {
			h.N300 = clampInt(*st.N300, 0, h.N300)
		}

	case st.Accuracy != nil:
		target := NormalizeAccuracy(*st.Accuracy) * 6 * float64(total)
		n100 := math.Round((6*float64(remaining) - target) / 4)
		if n100 > float64(remaining) {
			// too low for 300s and 100s alone
			h.N100 = clampInt(int(math.Round(target))-remaining, 0, remaining)
			h.N50 = remaining - h.N100
		} else {
			h.N100 = clampInt(int(n100), 0, remaining)
			h.N300 = remaining - h.N100
		}

	default:
		h.N300 = remaining
	}
	return h
}

func osuPerformance(d osuAttributes, m mods.Mods, st score.StdState) float64 {
	total := d.Objects
	if total == 0 {
		return 0
	}
	h := resolveOsuHits(total, st)
	acc := h.accuracy()
	combo := d.MaxCombo
	if st.Combo != nil {
		combo = clampInt(*st.Combo, 0, d.MaxCombo)
	}

	ar, od := d.Map.AR, d.Map.OD
	n := float64(total)

	lengthBonus := 0.95 + 0.4*min(1, n/2000)
	if total > 2000 {
		lengthBonus += math.Log10(n/2000) * 0.5
	}
	missPenalty := math.Pow(0.97, float64(h.Misses))
	comboScale := 1.0
	if d.MaxCombo > 0 {
		comboScale = min(1, math.Pow(float64(combo), 0.8)/math.Pow(float64(d.MaxCombo), 0.8))
	}

	aim := strainToPerformance(d.Aim)
	aim *= lengthBonus * missPenalty * comboScale
	arFactor := 1.0
	if ar > 10.33 {
		arFactor += 0.3 * (ar - 10.33)
	} else if ar < 8 {
		arFactor += 0.01 * (8 - ar)
	}
	aim *= arFactor
	if m.Active(mods.Hidden) {
		aim *= 1 + 0.04*(12-ar)
	}
	if m.Active(mods.Flashlight) {
		fl := 1 + 0.35*min(1, n/200)
		if total > 200 {
			fl += 0.3 * min(1, (n-200)/300)
		}
		if total > 500 {
			fl += (n - 500) / 1200
		}
		aim *= fl
	}
	aim *= 0.5 + acc/2
	aim *= 0.98 + od*od/2500

	speed := strainToPerformance(d.Speed)
	speed *= lengthBonus * missPenalty * comboScale
	if ar > 10.33 {
		speed *= 1 + 0.3*(ar-10.33)
	}
	if m.Active(mods.Hidden) {
		speed *= 1 + 0.04*(12-ar)
	}
	speed *= 0.02 + acc
	speed *= 0.96 + od*od/1600

	better := 0.0
	if d.Circles > 0 {
		better = float64((h.N300-(total-d.Circles))*6+h.N100*2+h.N50) / float64(d.Circles*6)
	}
	better = max(0, better)
	accValue := math.Pow(1.52163, od) * math.Pow(better, 24) * 2.83
	accValue *= min(1.15, math.Pow(float64(d.Circles)/1000, 0.3))
	if m.Active(mods.Hidden) {
		accValue *= 1.08
	}
	if m.Active(mods.Flashlight) {
		accValue *= 1.02
	}

	multiplier := 1.12
	if m.Active(mods.NoFail) {
		multiplier *= 0.9
	}
	if m.Active(mods.SpunOut) {
		multiplier *= 1 - math.Pow(float64(d.Spinners)/n, 0.85)
	}
	return PowSum(1.1, aim, speed, accValue) * multiplier
}

func strainToPerformance(stars float64) float64 {
	return math.Pow(5*max(1, stars/osuStarScaling)-4, 3) / 100000
}
