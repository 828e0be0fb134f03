package ppbind

import (
	"ppbind/difficulty"
	"ppbind/mods"
)

// Shape selects which fields a result exposes and at what precision.
type Shape int

const (
	// ShapeCurrent carries the mod-adjusted attributes at full precision.
	ShapeCurrent Shape = iota
	// ShapeLegacy is the older narrow result: no attributes and every
	// value rounded to single precision.
	ShapeLegacy
)

func (s Shape) String() string {
	if s == ShapeLegacy {
		return "legacy"
	}
	return "current"
}

// Result is implemented by the four per-mode results.
type Result interface {
	Fields(Shape) map[string]float64
}

type StdResult struct {
	TotalStars   float64 `json:"total_stars"`
	PartialStars float64 `json:"partial_stars"`
	PP           float64 `json:"pp"`
	MaxPP        float64 `json:"max_pp"`
	MaxCombo     int     `json:"max_combo"`
	mods.Attributes
}

type TaikoResult struct {
	TotalStars   float64 `json:"total_stars"`
	PartialStars float64 `json:"partial_stars"`
	PP           float64 `json:"pp"`
	MaxCombo     int     `json:"max_combo"`
	mods.Attributes
}

// ManiaResult has no max_combo: mania pp is driven by score alone.
type ManiaResult struct {
	TotalStars   float64 `json:"total_stars"`
	PartialStars float64 `json:"partial_stars"`
	PP           float64 `json:"pp"`
	mods.Attributes
}

type CatchResult struct {
	TotalStars   float64 `json:"total_stars"`
	PartialStars float64 `json:"partial_stars"`
	PP           float64 `json:"pp"`
	MaxCombo     int     `json:"max_combo"`
	mods.Attributes
}

func aggregateStd(total float64, actual, potential difficulty.Performance) *StdResult {
	return &StdResult{
		TotalStars:   total,
		PartialStars: actual.Stars,
		PP:           actual.PP,
		MaxPP:        potential.PP,
		MaxCombo:     actual.MaxCombo,
		Attributes:   actual.Attributes,
	}
}

func aggregateTaiko(total float64, p difficulty.Performance) *TaikoResult {
	return &TaikoResult{
		TotalStars:   total,
		PartialStars: p.Stars,
		PP:           p.PP,
		MaxCombo:     p.MaxCombo,
		Attributes:   p.Attributes,
	}
}

func aggregateMania(total float64, p difficulty.Performance) *ManiaResult {
	return &ManiaResult{
		TotalStars:   total,
		PartialStars: p.Stars,
		PP:           p.PP,
		Attributes:   p.Attributes,
	}
}

func aggregateCatch(total float64, p difficulty.Performance) *CatchResult {
	return &CatchResult{
		TotalStars:   total,
		PartialStars: p.Stars,
		PP:           p.PP,
		MaxCombo:     p.MaxCombo,
		Attributes:   p.Attributes,
	}
}

func (r *StdResult) Fields(s Shape) map[string]float64 {
	f := fields{shape: s, m: map[string]float64{}}
	f.set("total_stars", r.TotalStars)
	f.set("partial_stars", r.PartialStars)
	f.set("pp", r.PP)
	f.set("max_pp", r.MaxPP)
	f.set("max_combo", float64(r.MaxCombo))
	f.attributes(r.Attributes)
	return f.m
}

func (r *TaikoResult) Fields(s Shape) map[string]float64 {
	f := fields{shape: s, m: map[string]float64{}}
	f.set("total_stars", r.TotalStars)
	f.set("partial_stars", r.PartialStars)
	f.set("pp", r.PP)
	f.set("max_combo", float64(r.MaxCombo))
	f.attributes(r.Attributes)
	return f.m
}

func (r *ManiaResult) Fields(s Shape) map[string]float64 {
	f := fields{shape: s, m: map[string]float64{}}
	f.set("total_stars", r.TotalStars)
	f.set("partial_stars", r.PartialStars)
	f.set("pp", r.PP)
	f.attributes(r.Attributes)
	return f.m
}

func (r *CatchResult) Fields(s Shape) map[string]float64 {
	f := fields{shape: s, m: map[string]float64{}}
	f.set("total_stars", r.TotalStars)
	f.set("partial_stars", r.PartialStars)
	f.set("pp", r.PP)
	f.set("max_combo", float64(r.MaxCombo))
	f.attributes(r.Attributes)
	return f.m
}

type fields struct {
	shape Shape
	m     map[string]float64
}

func (f fields) set(name string, v float64) {
	if f.shape == ShapeLegacy {
		v = float64(float32(v))
	}
	f.m[name] = v
}

func (f fields) attributes(a mods.Attributes) {
	if f.shape == ShapeLegacy {
		return
	}
	f.set("ar", a.AR)
	f.set("cs", a.CS)
	f.set("od", a.OD)
	f.set("hp", a.HP)
	f.set("clock_rate", a.ClockRate)
}
