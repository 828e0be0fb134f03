package difficulty

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

func TestSliderNestedObjects(t *testing.T) {
	b := decodeChart(t, dotosu.ModeStandard, 4, "100,100,1000,2,0,L|380:100,2,280\n")
	objects := expandObjects(b)
	if len(objects) != 1 {
		t.Fatalf("got %d objects, want 1", len(objects))
	}
	s := objects[0]
	want := []nestedKind{nestedTick, nestedRepeat, nestedTick, nestedTail}
	if len(s.Nested) != len(want) {
		t.Fatalf("got %d nested objects, want %d", len(s.Nested), len(want))
	}
	for i, k := range want {
		if s.Nested[i].Kind != k {
			t.Errorf("nested[%d] kind = %d, want %d", i, s.Nested[i].Kind, k)
		}
	}
	if s.EndTime != 3000 {
		t.Errorf("end time = %v, want 3000", s.EndTime)
	}
	if repeat := s.Nested[1].Pos; math.Abs(repeat.X-380) > 1e-6 {
		t.Errorf("repeat at x=%v, want 380", repeat.X)
	}
	if got := s.combo(); got != 5 {
		t.Errorf("combo = %d, want 5", got)
	}
}

func TestOsuMaxCombo(t *testing.T) {
	perf, err := Calculator{}.Osu(stdChart(t), mods.None, score.StdState{})
	if err != nil {
		t.Fatal(err)
	}
	if perf.MaxCombo != 205 {
		t.Fatalf("max combo = %d, want 205", perf.MaxCombo)
	}
}

func TestStarsMatchEvaluationScope(t *testing.T) {
	b := stdChart(t)
	calc := Calculator{}
	for _, passed := range []*int{nil, score.Ptr(50), score.Ptr(0), score.Ptr(10000)} {
		stars, err := calc.Stars(b, mods.Hidden, dotosu.ModeStandard, passed)
		if err != nil {
			t.Fatal(err)
		}
		perf, err := calc.Osu(b, mods.Hidden, score.StdState{PassedObjects: passed})
		if err != nil {
			t.Fatal(err)
		}
		if stars != perf.Stars {
			t.Errorf("passed %v: Stars() = %v, evaluation stars = %v", passed, stars, perf.Stars)
		}
	}
}

func TestPassedObjectsClamped(t *testing.T) {
	b := stdChart(t)
	full, _ := Calculator{}.Stars(b, mods.None, dotosu.ModeStandard, nil)
	over, _ := Calculator{}.Stars(b, mods.None, dotosu.ModeStandard, score.Ptr(len(b.HitObjects)+50))
	if full != over {
		t.Fatalf("stars past the end = %v, want %v", over, full)
	}
	none, _ := Calculator{}.Stars(b, mods.None, dotosu.ModeStandard, score.Ptr(0))
	if none != 0 {
		t.Fatalf("stars with no objects = %v, want 0", none)
	}
	partial, _ := Calculator{}.Stars(b, mods.None, dotosu.ModeStandard, score.Ptr(20))
	if partial <= 0 || partial > full {
		t.Fatalf("partial stars = %v, want in (0, %v]", partial, full)
	}
}

func TestSpeedModsRaiseStars(t *testing.T) {
	b := stdChart(t)
	calc := Calculator{}
	nm, _ := calc.Stars(b, mods.None, dotosu.ModeStandard, nil)
	dt, _ := calc.Stars(b, mods.DoubleTime, dotosu.ModeStandard, nil)
	ht, _ := calc.Stars(b, mods.HalfTime, dotosu.ModeStandard, nil)
	if !(ht < nm && nm < dt) {
		t.Fatalf("want HT < NM < DT, got %v, %v, %v", ht, nm, dt)
	}
}

func TestOsuMissesLowerPP(t *testing.T) {
	b := stdChart(t)
	calc := Calculator{}
	prev := math.Inf(1)
	for _, misses := range []int{0, 1, 5, 20} {
		perf, err := calc.Osu(b, mods.None, score.StdState{Misses: misses})
		if err != nil {
			t.Fatal(err)
		}
		if perf.PP >= prev {
			t.Fatalf("%d misses gave %v pp, not below %v", misses, perf.PP, prev)
		}
		prev = perf.PP
	}
}

func TestAccuracyAcceptsPercentAndFraction(t *testing.T) {
	b := stdChart(t)
	calc := Calculator{}
	pct, _ := calc.Osu(b, mods.None, score.StdState{Accuracy: score.Ptr(96.5)})
	frac, _ := calc.Osu(b, mods.None, score.StdState{Accuracy: score.Ptr(0.965)})
	if pct.PP != frac.PP {
		t.Fatalf("96.5 gave %v pp, 0.965 gave %v pp", pct.PP, frac.PP)
	}
}

func TestExplicitCountsWinOverAccuracy(t *testing.T) {
	b := stdChart(t)
	calc := Calculator{}
	counts := score.StdState{N100: score.Ptr(10)}
	both := score.StdState{N100: score.Ptr(10), Accuracy: score.Ptr(80.0)}
	a, _ := calc.Osu(b, mods.None, counts)
	c, _ := calc.Osu(b, mods.None, both)
	if a.PP != c.PP {
		t.Fatalf("accuracy changed pp from %v to %v despite explicit counts", a.PP, c.PP)
	}
}

func TestResolveOsuHitsFromAccuracy(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		st     score.StdState
		wantAc float64
	}{
		{"ss", 300, score.StdState{}, 1},
		{"ninety", 300, score.StdState{Accuracy: score.Ptr(0.9)}, 0.9},
		{"low needs fifties", 300, score.StdState{Accuracy: score.Ptr(0.25)}, 0.25},
		{"with misses", 300, score.StdState{Accuracy: score.Ptr(95.0), Misses: 5}, 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := resolveOsuHits(tt.total, tt.st)
			if h.total() != tt.total {
				t.Fatalf("counts sum to %d, want %d", h.total(), tt.total)
			}
			if got := h.accuracy(); math.Abs(got-tt.wantAc) > 1.0/float64(tt.total) {
				t.Fatalf("accuracy = %v, want about %v (%+v)", got, tt.wantAc, h)
			}
		})
	}
}

func TestTaikoPerformance(t *testing.T) {
	b := decodeChart(t, dotosu.ModeTaiko, 5, drumRoll(300, 120))
	calc := Calculator{}
	ss, err := calc.Taiko(b, mods.None, score.TaikoState{})
	if err != nil {
		t.Fatal(err)
	}
	if ss.MaxCombo != 300 {
		t.Fatalf("max combo = %d, want 300", ss.MaxCombo)
	}
	if ss.Stars <= 0 || ss.PP <= 0 {
		t.Fatalf("want positive stars and pp, got %+v", ss)
	}
	worse, _ := calc.Taiko(b, mods.None, score.TaikoState{Accuracy: score.Ptr(92.0), Misses: 3})
	if worse.PP >= ss.PP {
		t.Fatalf("92%% with misses gave %v pp, SS gave %v", worse.PP, ss.PP)
	}
}

func TestResolveTaikoHits(t *testing.T) {
	h := resolveTaikoHits(200, score.TaikoState{Accuracy: score.Ptr(0.95)})
	if h.N100 != 20 || h.N300 != 180 {
		t.Fatalf("got %+v, want 180x300 20x100", h)
	}
}

func TestManiaScoreScaling(t *testing.T) {
	b := decodeChart(t, dotosu.ModeMania, 4, keyStream(400, 100))
	calc := Calculator{}
	full, err := calc.Mania(b, mods.None, score.ManiaState{})
	if err != nil {
		t.Fatal(err)
	}
	explicit, _ := calc.Mania(b, mods.None, score.ManiaState{Score: score.Ptr(uint32(1_000_000))})
	if full.PP != explicit.PP {
		t.Fatalf("absent score gave %v pp, 1,000,000 gave %v", full.PP, explicit.PP)
	}
	low, _ := calc.Mania(b, mods.None, score.ManiaState{Score: score.Ptr(uint32(400_000))})
	if low.PP != 0 {
		t.Fatalf("score below 500k gave %v pp, want 0", low.PP)
	}
	mid, _ := calc.Mania(b, mods.None, score.ManiaState{Score: score.Ptr(uint32(900_000))})
	if !(mid.PP > 0 && mid.PP < full.PP) {
		t.Fatalf("900k gave %v pp, want in (0, %v)", mid.PP, full.PP)
	}
	if full.MaxCombo != 400+80 {
		t.Fatalf("max combo = %d, want 480", full.MaxCombo)
	}
}

func TestManiaKeysFromCircleSize(t *testing.T) {
	b := decodeChart(t, dotosu.ModeMania, 7, keyStream(10, 100))
	if got := maniaKeys(b, mods.None); got != 7 {
		t.Fatalf("keys = %d, want 7", got)
	}
	conv := decodeChart(t, dotosu.ModeStandard, 4, jumpStream(10, 100))
	if got := maniaKeys(conv, mods.Key4); got != 4 {
		t.Fatalf("converted keys with 4K = %d, want 4", got)
	}
}

func TestCatchPerformance(t *testing.T) {
	b := decodeChart(t, dotosu.ModeCatch, 4, jumpStream(150, 300)+
		"100,100,50000,2,0,L|380:100,1,280\n")
	calc := Calculator{}
	fc, err := calc.Catch(b, mods.None, score.CatchState{})
	if err != nil {
		t.Fatal(err)
	}
	// 150 circles, slider head and tail are fruits, one tick is a droplet
	if fc.MaxCombo != 153 {
		t.Fatalf("max combo = %d, want 153", fc.MaxCombo)
	}
	if fc.Stars <= 0 || fc.PP <= 0 {
		t.Fatalf("want positive stars and pp, got %+v", fc)
	}
	missed, _ := calc.Catch(b, mods.None, score.CatchState{Misses: 4})
	if missed.PP >= fc.PP {
		t.Fatalf("4 misses gave %v pp, FC gave %v", missed.PP, fc.PP)
	}
}

func TestResolveCatchHitsTakesMissesFromFruitsFirst(t *testing.T) {
	d := catchAttributes{Fruits: 10, Droplets: 5, TinyDroplets: 20}
	h := resolveCatchHits(d, score.CatchState{Misses: 12})
	if h.Fruits != 0 || h.Droplets != 3 {
		t.Fatalf("got %+v, want 0 fruits and 3 droplets", h)
	}
	if h.TinyDroplets != 20 || h.TinyMisses != 0 {
		t.Fatalf("tiny droplets %+v, want all caught", h)
	}
}

func TestNilChart(t *testing.T) {
	if _, err := (Calculator{}).Osu(nil, mods.None, score.StdState{}); err == nil {
		t.Fatal("want error for nil chart")
	}
	if _, err := (Calculator{}).Stars(nil, mods.None, dotosu.ModeMania, nil); err == nil {
		t.Fatal("want error for nil chart")
	}
}

const extremeSliderChart = `osu file format v14

[General]
Mode: %d

[Difficulty]
CircleSize:4
OverallDifficulty:8
ApproachRate:9
SliderMultiplier:1.4
SliderTickRate:1

[TimingPoints]
0,%s,4,2,0,100,1,0

[HitObjects]
256,192,1000,1,0,0:0:0:0:
100,192,2000,2,0,L|400:192,1,%s
`

func TestExtremeSlidersStayBounded(t *testing.T) {
	tests := []struct {
		beat, length string
	}{
		{"1e300", "1e300"},
		{"500", "1e10"},
		{"1", "1e8"},
	}
	for _, tt := range tests {
		for _, mode := range []dotosu.Mode{dotosu.ModeStandard, dotosu.ModeCatch} {
			t.Run(fmt.Sprintf("%s/%s/%s", mode, tt.beat, tt.length), func(t *testing.T) {
				b, err := dotosu.Decode(strings.NewReader(fmt.Sprintf(extremeSliderChart, mode, tt.beat, tt.length)))
				if err != nil {
					t.Fatal(err)
				}
				objects := expandObjects(b)
				if n := len(objects[1].Nested); n > maxSliderNested {
					t.Fatalf("slider expanded into %d nested objects", n)
				}

				var c Calculator
				perfs := map[string]func() (Performance, error){
					"osu":   func() (Performance, error) { return c.Osu(b, mods.None, score.StdState{}) },
					"catch": func() (Performance, error) { return c.Catch(b, mods.None, score.CatchState{}) },
				}
				for name, eval := range perfs {
					p, err := eval()
					if err != nil {
						t.Fatalf("%s: %v", name, err)
					}
					if math.IsNaN(p.PP) || math.IsInf(p.PP, 0) || math.IsNaN(p.Stars) || math.IsInf(p.Stars, 0) {
						t.Errorf("%s: pp %v stars %v", name, p.PP, p.Stars)
					}
					if p.MaxCombo > maxSliderNested+2 {
						t.Errorf("%s: max combo %d", name, p.MaxCombo)
					}
				}
			})
		}
	}
}

func TestTinyDropletsBetween(t *testing.T) {
	tests := []struct {
		gap  float64
		want int
	}{
		{0, 0},
		{-50, 0},
		{250, 3},
		{1e308, maxTinyPerGap},
		{math.Inf(1), 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := tinyDropletsBetween(tt.gap); got != tt.want {
			t.Errorf("tinyDropletsBetween(%v) = %d, want %d", tt.gap, got, tt.want)
		}
	}
}

func TestCheckedRejectsNonFinite(t *testing.T) {
	for _, p := range []Performance{{PP: math.NaN()}, {Stars: math.Inf(1)}} {
		if _, err := checked(p); err == nil {
			t.Errorf("checked(%+v) accepted a non-finite rating", p)
		}
	}
	if _, err := checked(Performance{PP: 10, Stars: 2}); err != nil {
		t.Error(err)
	}
}

func TestAttributesIndependentOfPlayState(t *testing.T) {
	b := stdChart(t)
	var c Calculator
	actual, err := c.Osu(b, mods.HardRock|mods.DoubleTime, score.StdState{Accuracy: score.Ptr(0.9), Misses: 7, PassedObjects: score.Ptr(50)})
	if err != nil {
		t.Fatal(err)
	}
	potential, err := c.Osu(b, mods.HardRock|mods.DoubleTime, score.StdState{Accuracy: score.Ptr(1.0)})
	if err != nil {
		t.Fatal(err)
	}
	if actual.Attributes != potential.Attributes {
		t.Errorf("attributes differ between passes: %+v vs %+v", actual.Attributes, potential.Attributes)
	}
}
