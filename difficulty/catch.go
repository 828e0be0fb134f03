package difficulty

import (
	"math"
	"sort"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

const (
	catchStarScaling      = 0.153
	movementMultiplier    = 900.0
	movementDecay         = 0.2
	catcherBaseSize       = 106.75
	catcherAllowance      = 0.8
	normalizedFruitRadius = 41.0
	positioningError      = 16.0
	directionChangeBonus  = 21.0
	minCatchStrainTime    = 40.0
	maxTinyInterval       = 100.0
	maxTinyPerGap         = 1024
)

type fruit struct {
	X       float64
	Time    float64
	Droplet bool
}

type catchAttributes struct {
	Stars        float64
	MaxCombo     int
	Fruits       int
	Droplets     int
	TinyDroplets int
	Map          mods.Attributes
}

// catchObjects flattens the chart into the palpable objects a catcher has to
// reach, returning the tiny droplet count alongside.
func catchObjects(objects []object) ([]fruit, int) {
	var out []fruit
	tiny := 0
	for _, o := range objects {
		switch o.Kind {
		case dotosu.KindCircle:
			out = append(out, fruit{X: o.Pos.X, Time: o.Time})
		case dotosu.KindSlider:
			out = append(out, fruit{X: o.Pos.X, Time: o.Time})
			last := o.Time
			for _, n := range o.Nested {
				tiny += tinyDropletsBetween(n.Time - last)
				last = n.Time
				out = append(out, fruit{X: n.Pos.X, Time: n.Time, Droplet: n.Kind == nestedTick})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, tiny
}

func tinyDropletsBetween(gap float64) int {
	if !(gap > 0) || math.IsInf(gap, 1) {
		return 0
	}
	interval := gap
	for interval > maxTinyInterval {
		interval /= 2
	}
	return int(clampFloat(math.Round(gap/interval)-1, 0, maxTinyPerGap))
}

func catchDifficulty(b *dotosu.Beatmap, m mods.Mods, passed *int) catchAttributes {
	attrs := m.Attributes(b.Difficulty, dotosu.ModeCatch)
	fruits, tiny := catchObjects(scope(expandObjects(b), passed))

	d := catchAttributes{Map: attrs, TinyDroplets: tiny}
	for _, f := range fruits {
		if f.Droplet {
			d.Droplets++
		} else {
			d.Fruits++
		}
	}
	d.MaxCombo = d.Fruits + d.Droplets
	if len(fruits) == 0 {
		return d
	}

	rate := attrs.ClockRate
	halfCatcher := catcherBaseSize * (1 - 0.7*(attrs.CS-5)/5) / 2 * catcherAllowance
	scaling := normalizedFruitRadius / halfCatcher
	reach := normalizedFruitRadius - positioningError

	skill := newStrainSkill(movementMultiplier, movementDecay)
	playerPos := fruits[0].X * scaling
	lastMoved, lastStrainTime := 0.0, 0.0
	for i := 1; i < len(fruits); i++ {
		cur, prev := fruits[i], fruits[i-1]
		x := cur.X * scaling
		strainTime := max(minCatchStrainTime, (cur.Time-prev.Time)/rate)
		weighted := strainTime + 13 + 3/rate

		next := clampFloat(playerPos, x-reach, x+reach)
		moved := next - playerPos
		addition := math.Pow(math.Abs(moved), 1.3) / 510

		if math.Abs(moved) > 0.1 && math.Abs(lastMoved) > 0.1 && math.Signbit(moved) != math.Signbit(lastMoved) {
			bonus := min(50, math.Abs(moved)-positioningError) / 50
			antiflow := max(min(70, math.Abs(lastMoved)-positioningError)/70, 0.38)
			addition += directionChangeBonus / math.Sqrt(lastStrainTime+16) * max(0, bonus) * antiflow
		}

		skill.process(cur.Time/rate, addition/weighted)
		playerPos = next
		lastMoved, lastStrainTime = moved, strainTime
	}

	d.Stars = math.Sqrt(skill.difficultyValue()) * catchStarScaling
	return d
}

type catchHits struct {
	Fruits, Droplets, TinyDroplets, TinyMisses, Misses int
}

func (h catchHits) accuracy() float64 {
	hit := h.Fruits + h.Droplets + h.TinyDroplets
	total := hit + h.Misses + h.TinyMisses
	if total == 0 {
		return 1
	}
	return float64(hit) / float64(total)
}

// resolveCatchHits fills in counts the play left out. Misses are taken from
// fruits first and then from droplets.
func resolveCatchHits(d catchAttributes, st score.CatchState) catchHits {
	misses := clampInt(st.Misses, 0, d.Fruits+d.Droplets)
	h := catchHits{Misses: misses}

	fruitMisses := min(misses, d.Fruits)
	h.Fruits = d.Fruits - fruitMisses
	if st.Fruits != nil {
		h.Fruits = clampInt(*st.Fruits, 0, d.Fruits)
	}
	dropletMisses := max(0, misses-(d.Fruits-h.Fruits))
	h.Droplets = max(0, d.Droplets-dropletMisses)
	if st.Droplets != nil {
		h.Droplets = clampInt(*st.Droplets, 0, d.Droplets)
	}

	switch {
	case st.TinyDroplets != nil:
		h.TinyDroplets = clampInt(*st.TinyDroplets, 0, d.TinyDroplets)
		h.TinyMisses = d.TinyDroplets - h.TinyDroplets
		if st.TinyDropletMisses != nil {
			h.TinyMisses = clampInt(*st.TinyDropletMisses, 0, d.TinyDroplets-h.TinyDroplets)
		}
	case st.TinyDropletMisses != nil:
		h.TinyMisses = clampInt(*st.TinyDropletMisses, 0, d.TinyDroplets)
		h.TinyDroplets = d.TinyDroplets - h.TinyMisses
	default:
		h.TinyDroplets = d.TinyDroplets
	}
	return h
}

func catchPerformance(d catchAttributes, m mods.Mods, st score.CatchState) float64 {
	if d.MaxCombo == 0 {
		return 0
	}
	h := resolveCatchHits(d, st)
	combo := d.MaxCombo
	if st.Combo != nil {
		combo = clampInt(*st.Combo, 0, d.MaxCombo)
	}

	value := math.Pow(5*max(1, d.Stars/0.0049)-4, 2) / 100000

	n := float64(d.Fruits + d.Droplets)
	lengthBonus := 0.95 + 0.3*min(1, n/2500)
	if n > 2500 {
		lengthBonus += math.Log10(n/2500) * 0.475
	}
	value *= lengthBonus
	value *= math.Pow(0.97, float64(h.Misses))
	value *= min(1, math.Pow(float64(combo), 0.8)/math.Pow(float64(d.MaxCombo), 0.8))

	ar := d.Map.AR
	arFactor := 1.0
	if ar > 9 {
		arFactor += 0.1 * (ar - 9)
	}
	if ar > 10 {
		arFactor += 0.1 * (ar - 10)
	} else if ar < 8 {
		arFactor += 0.025 * (8 - ar)
	}
	value *= arFactor

	if m.Active(mods.Hidden) {
		if ar <= 10 {
			value *= 1.05 + 0.075*(10-ar)
		} else {
			value *= 1.01 + 0.04*(11-min(11, ar))
		}
	}
	if m.Active(mods.Flashlight) {
		value *= 1.35 * lengthBonus
	}

	value *= math.Pow(h.accuracy(), 5.5)
	if m.Active(mods.NoFail) {
		value *= 0.9
	}
	return value
}
