package ppbind

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"ppbind/difficulty"
	"ppbind/dotosu"
	"ppbind/mods"
	"ppbind/score"
)

var (
	stdMap   = filepath.Join("testdata", "std.osu")
	taikoMap = filepath.Join("testdata", "taiko.osu")
	maniaMap = filepath.Join("testdata", "mania.osu")
	catchMap = filepath.Join("testdata", "catch.osu")
)

// fakeModel records the states it is asked to rate and derives pp from them
// so evaluator wiring can be checked without the numeric model.
type fakeModel struct {
	mu  sync.Mutex
	osu []score.StdState
	err error
}

func (f *fakeModel) Stars(_ *dotosu.Beatmap, _ mods.Mods, _ dotosu.Mode, passed *int) (float64, error) {
	if passed == nil {
		return 5, f.err
	}
	return float64(*passed) / 100, f.err
}

func (f *fakeModel) perf(m mods.Mods, pp float64, passed *int) (difficulty.Performance, error) {
	stars, _ := f.Stars(nil, m, 0, passed)
	return difficulty.Performance{
		PP:         pp,
		Stars:      stars,
		MaxCombo:   321,
		Attributes: mods.Attributes{AR: 9, CS: 4, OD: 8, HP: 5, ClockRate: m.ClockRate()},
	}, f.err
}

func (f *fakeModel) Osu(_ *dotosu.Beatmap, m mods.Mods, st score.StdState) (difficulty.Performance, error) {
	f.mu.Lock()
	f.osu = append(f.osu, st)
	f.mu.Unlock()
	pp := 100 - 10*float64(st.Misses)
	if st.Accuracy != nil {
		pp += *st.Accuracy
	}
	return f.perf(m, pp, st.PassedObjects)
}

func (f *fakeModel) Taiko(_ *dotosu.Beatmap, m mods.Mods, st score.TaikoState) (difficulty.Performance, error) {
	return f.perf(m, 50-float64(st.Misses), st.PassedObjects)
}

func (f *fakeModel) Mania(_ *dotosu.Beatmap, m mods.Mods, st score.ManiaState) (difficulty.Performance, error) {
	return f.perf(m, 40, st.PassedObjects)
}

func (f *fakeModel) Catch(_ *dotosu.Beatmap, m mods.Mods, st score.CatchState) (difficulty.Performance, error) {
	return f.perf(m, 30-float64(st.Misses), st.PassedObjects)
}

func fakeCharts() ChartProvider {
	return ChartProviderFunc(func(string) (*dotosu.Beatmap, error) {
		return &dotosu.Beatmap{}, nil
	})
}

func TestStdRunsIsolatedPotentialPass(t *testing.T) {
	model := &fakeModel{}
	e := New(WithModel(model), WithChartProvider(fakeCharts()))
	in := score.Std{
		Combo:             score.Ptr(500),
		Accuracy:          score.Ptr(93.1),
		PotentialAccuracy: score.Ptr(99.0),
		N300:              score.Ptr(400),
		N100:              score.Ptr(30),
		N50:               score.Ptr(2),
		Misses:            score.Ptr(3),
		PassedObjects:     score.Ptr(435),
	}
	res, err := e.Std("x.osu", mods.Hidden, in)
	if err != nil {
		t.Fatal(err)
	}

	want := []score.StdState{
		{
			Combo:         score.Ptr(500),
			Accuracy:      score.Ptr(93.1),
			N300:          score.Ptr(400),
			N100:          score.Ptr(30),
			N50:           score.Ptr(2),
			Misses:        3,
			PassedObjects: score.Ptr(435),
		},
		{Accuracy: score.Ptr(99.0)},
	}
	byMisses := cmpopts.SortSlices(func(a, b score.StdState) bool { return a.Misses > b.Misses })
	if diff := cmp.Diff(want, model.osu, byMisses); diff != "" {
		t.Fatalf("model states (-want +got):\n%s", diff)
	}

	wantRes := &StdResult{
		TotalStars:   5,
		PartialStars: 4.35,
		PP:           100 - 30 + 93.1,
		MaxPP:        100 + 99.0,
		MaxCombo:     321,
		Attributes:   mods.Attributes{AR: 9, CS: 4, OD: 8, HP: 5, ClockRate: 1},
	}
	if diff := cmp.Diff(wantRes, res, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("result (-want +got):\n%s", diff)
	}
}

func TestModelErrorAbortsEvaluation(t *testing.T) {
	boom := errors.New("boom")
	e := New(WithModel(&fakeModel{err: boom}), WithChartProvider(fakeCharts()))

	if res, err := e.Std("x.osu", 0, score.Std{}); !errors.Is(err, boom) || res != nil {
		t.Errorf("std: got (%v, %v), want (nil, boom)", res, err)
	}
	if res, err := e.Taiko("x.osu", 0, score.Taiko{}); !errors.Is(err, boom) || res != nil {
		t.Errorf("taiko: got (%v, %v), want (nil, boom)", res, err)
	}
	if res, err := e.Mania("x.osu", 0, score.Mania{}); !errors.Is(err, boom) || res != nil {
		t.Errorf("mania: got (%v, %v), want (nil, boom)", res, err)
	}
	if res, err := e.Catch("x.osu", 0, score.Catch{}); !errors.Is(err, boom) || res != nil {
		t.Errorf("catch: got (%v, %v), want (nil, boom)", res, err)
	}
}

func TestMissingChartIsLoadError(t *testing.T) {
	missing := filepath.Join("testdata", "does-not-exist.osu")
	errs := map[string]error{}
	_, errs["std"] = StdPP(missing, 0, score.Std{})
	_, errs["taiko"] = TaikoPP(missing, 0, score.Taiko{})
	_, errs["mania"] = ManiaPP(missing, 0, score.Mania{})
	_, errs["catch"] = CatchPP(missing, 0, score.Catch{})
	for mode, err := range errs {
		var loadErr *ChartLoadError
		if !errors.As(err, &loadErr) {
			t.Errorf("%s: got %v, want *ChartLoadError", mode, err)
			continue
		}
		if loadErr.Path != missing {
			t.Errorf("%s: error path = %q, want %q", mode, loadErr.Path, missing)
		}
	}
}

func TestMalformedChartIsParseError(t *testing.T) {
	for _, name := range []string{"broken.osu", "empty.osu"} {
		t.Run(name, func(t *testing.T) {
			res, err := StdPP(filepath.Join("testdata", name), 0, score.Std{})
			var parseErr *ChartParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("got %v, want *ChartParseError", err)
			}
			if res != nil {
				t.Fatalf("got a result alongside the error: %+v", res)
			}
		})
	}
}

func TestStdBaselineScenario(t *testing.T) {
	res, err := StdPP(stdMap, mods.None, score.Std{})
	if err != nil {
		t.Fatal(err)
	}
	if res.PartialStars != res.TotalStars {
		t.Errorf("partial stars %v != total stars %v", res.PartialStars, res.TotalStars)
	}
	if res.MaxPP != res.PP {
		t.Errorf("max pp %v != pp %v with no fields supplied", res.MaxPP, res.PP)
	}
	if res.TotalStars <= 0 || res.PP <= 0 || res.MaxCombo <= 0 {
		t.Errorf("want positive stars, pp and combo, got %+v", res)
	}
}

func TestStdMissesOnlyAffectAchievedPP(t *testing.T) {
	base, err := StdPP(stdMap, mods.None, score.Std{})
	if err != nil {
		t.Fatal(err)
	}
	missed, err := StdPP(stdMap, mods.None, score.Std{Misses: score.Ptr(5)})
	if err != nil {
		t.Fatal(err)
	}
	if missed.PP >= base.PP {
		t.Errorf("5 misses gave %v pp, baseline %v", missed.PP, base.PP)
	}
	if missed.MaxPP != base.MaxPP {
		t.Errorf("max pp moved from %v to %v with misses", base.MaxPP, missed.MaxPP)
	}
}

func TestStdMaxPPIgnoresAchievedFields(t *testing.T) {
	plays := []score.Std{
		{PotentialAccuracy: score.Ptr(98.0)},
		{PotentialAccuracy: score.Ptr(98.0), Combo: score.Ptr(12), Misses: score.Ptr(9)},
		{PotentialAccuracy: score.Ptr(98.0), Accuracy: score.Ptr(81.0), N50: score.Ptr(20)},
		{PotentialAccuracy: score.Ptr(98.0), N300: score.Ptr(100), N100: score.Ptr(40)},
	}
	var want float64
	for i, in := range plays {
		res, err := StdPP(stdMap, mods.HardRock, in)
		if err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			want = res.MaxPP
			continue
		}
		if res.MaxPP != want {
			t.Errorf("play %d: max pp = %v, want %v", i, res.MaxPP, want)
		}
	}
}

func TestStdPassedObjectsScopesPartialStars(t *testing.T) {
	res, err := StdPP(stdMap, mods.None, score.Std{PassedObjects: score.Ptr(60)})
	if err != nil {
		t.Fatal(err)
	}
	full, err := StdPP(stdMap, mods.None, score.Std{})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalStars != full.TotalStars {
		t.Errorf("total stars changed with passed objects: %v vs %v", res.TotalStars, full.TotalStars)
	}
	if res.PartialStars > res.TotalStars {
		t.Errorf("partial stars %v above total %v", res.PartialStars, res.TotalStars)
	}
	if res.MaxCombo >= full.MaxCombo {
		t.Errorf("partial max combo %d not below full %d", res.MaxCombo, full.MaxCombo)
	}
}

func TestPartialEqualsTotalWithoutPassedObjects(t *testing.T) {
	dt := mods.DoubleTime
	std, err := StdPP(stdMap, dt, score.Std{Accuracy: score.Ptr(97.0)})
	if err != nil {
		t.Fatal(err)
	}
	taiko, err := TaikoPP(taikoMap, dt, score.Taiko{Accuracy: score.Ptr(97.0)})
	if err != nil {
		t.Fatal(err)
	}
	mania, err := ManiaPP(maniaMap, dt, score.Mania{Score: score.Ptr(uint32(950_000))})
	if err != nil {
		t.Fatal(err)
	}
	catch, err := CatchPP(catchMap, dt, score.Catch{Misses: score.Ptr(2)})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range []Result{std, taiko, mania, catch} {
		f := r.Fields(ShapeCurrent)
		if f["partial_stars"] != f["total_stars"] {
			t.Errorf("%T: partial %v != total %v", r, f["partial_stars"], f["total_stars"])
		}
	}
}

func TestOmittedMissesEqualZero(t *testing.T) {
	e := New()
	t.Run("std", func(t *testing.T) {
		a, err := e.Std(stdMap, mods.Hidden, score.Std{Accuracy: score.Ptr(95.0)})
		if err != nil {
			t.Fatal(err)
		}
		b, err := e.Std(stdMap, mods.Hidden, score.Std{Accuracy: score.Ptr(95.0), Misses: score.Ptr(0)})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("(-absent +zero):\n%s", diff)
		}
	})
	t.Run("taiko", func(t *testing.T) {
		a, err := e.Taiko(taikoMap, 0, score.Taiko{Combo: score.Ptr(100)})
		if err != nil {
			t.Fatal(err)
		}
		b, err := e.Taiko(taikoMap, 0, score.Taiko{Combo: score.Ptr(100), Misses: score.Ptr(0)})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("(-absent +zero):\n%s", diff)
		}
	})
	t.Run("catch", func(t *testing.T) {
		a, err := e.Catch(catchMap, 0, score.Catch{})
		if err != nil {
			t.Fatal(err)
		}
		b, err := e.Catch(catchMap, 0, score.Catch{Misses: score.Ptr(0)})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("(-absent +zero):\n%s", diff)
		}
	})
}

func TestEvaluationIsIdempotent(t *testing.T) {
	e := New()
	run := func() []Result {
		std, err := e.Std(stdMap, mods.Hidden|mods.DoubleTime, score.Std{Combo: score.Ptr(150), Misses: score.Ptr(1)})
		if err != nil {
			t.Fatal(err)
		}
		taiko, err := e.Taiko(taikoMap, mods.HardRock, score.Taiko{N100: score.Ptr(20)})
		if err != nil {
			t.Fatal(err)
		}
		mania, err := e.Mania(maniaMap, mods.Easy, score.Mania{PassedObjects: score.Ptr(100)})
		if err != nil {
			t.Fatal(err)
		}
		catch, err := e.Catch(catchMap, mods.Hidden, score.Catch{Droplets: score.Ptr(10)})
		if err != nil {
			t.Fatal(err)
		}
		return []Result{std, taiko, mania, catch}
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("second run differs (-first +second):\n%s", diff)
	}
}

func TestConcurrentEvaluations(t *testing.T) {
	want, err := StdPP(stdMap, mods.HardRock, score.Std{Accuracy: score.Ptr(96.0)})
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	results := make([]*StdResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = StdPP(stdMap, mods.HardRock, score.Std{Accuracy: score.Ptr(96.0)})
		}(i)
	}
	wg.Wait()
	for i, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("goroutine %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestManiaScenario(t *testing.T) {
	res, err := ManiaPP(maniaMap, mods.None, score.Mania{Score: score.Ptr(uint32(970_000))})
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalStars != res.PartialStars {
		t.Errorf("total %v != partial %v", res.TotalStars, res.PartialStars)
	}
	for _, shape := range []Shape{ShapeCurrent, ShapeLegacy} {
		if _, ok := res.Fields(shape)["max_combo"]; ok {
			t.Errorf("%s mania fields carry max_combo", shape)
		}
	}
	if res.PP <= 0 {
		t.Errorf("pp = %v, want positive", res.PP)
	}
}

func TestTaikoAndCatchResults(t *testing.T) {
	taiko, err := TaikoPP(taikoMap, mods.None, score.Taiko{})
	if err != nil {
		t.Fatal(err)
	}
	if taiko.MaxCombo != 300 {
		t.Errorf("taiko max combo = %d, want 300", taiko.MaxCombo)
	}
	catch, err := CatchPP(catchMap, mods.None, score.Catch{})
	if err != nil {
		t.Fatal(err)
	}
	if catch.MaxCombo <= 200 {
		t.Errorf("catch max combo = %d, want above the object count", catch.MaxCombo)
	}
}
