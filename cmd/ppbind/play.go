package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ppbind"
	"ppbind/fetch"
	"ppbind/mods"
	"ppbind/score"
	"ppbind/store"
)

// play is one play record as written in a batch file or built from flags.
type play struct {
	Label string `yaml:"label"`
	Mode  string `yaml:"mode"`
	Map   string `yaml:"map"`
	ID    int    `yaml:"id"`
	Mods  string `yaml:"mods"`

	Combo             *int     `yaml:"combo"`
	Accuracy          *float64 `yaml:"accuracy"`
	PotentialAccuracy *float64 `yaml:"potential_accuracy"`
	N300              *int     `yaml:"n300"`
	N100              *int     `yaml:"n100"`
	N50               *int     `yaml:"n50"`
	Misses            *int     `yaml:"misses"`
	PassedObjects     *int     `yaml:"passed_objects"`
	Score             *uint32  `yaml:"score"`
	Fruits            *int     `yaml:"fruits"`
	Droplets          *int     `yaml:"droplets"`
	TinyDroplets      *int     `yaml:"tiny_droplets"`
	TinyDropletMisses *int     `yaml:"tiny_droplet_misses"`
}

func (p play) label() string {
	switch {
	case p.Label != "":
		return p.Label
	case p.ID > 0:
		return strconv.Itoa(p.ID)
	default:
		return filepath.Base(p.Map)
	}
}

// parseMods accepts an acronym string or the numeric bitmask.
func parseMods(s string) (mods.Mods, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return mods.Mods(n), nil
	}
	m, unknown := mods.Parse(s)
	if len(unknown) > 0 {
		return 0, fmt.Errorf("unknown mods %s", strings.Join(unknown, ","))
	}
	return m, nil
}

// env carries what every evaluation needs.
type env struct {
	eval    *ppbind.Evaluator
	fetcher *fetch.Client
	history *store.Store
	logger  *zap.Logger
}

// chartPath resolves where the play's chart lives, downloading it when the
// play names a beatmap id.
func (e *env) chartPath(ctx context.Context, p play, base string) (string, error) {
	if p.ID > 0 {
		return e.fetcher.Fetch(ctx, p.ID)
	}
	if p.Map == "" {
		return "", fmt.Errorf("play %q names neither a map nor an id", p.label())
	}
	if base != "" && !filepath.IsAbs(p.Map) {
		return filepath.Join(base, p.Map), nil
	}
	return p.Map, nil
}

func (e *env) evaluate(ctx context.Context, p play, path string) (ppbind.Result, error) {
	m, err := parseMods(p.Mods)
	if err != nil {
		return nil, err
	}

	var res ppbind.Result
	switch strings.ToLower(p.Mode) {
	case "std", "osu", "standard", "":
		res, err = e.eval.Std(path, m, score.Std{
			Combo:             p.Combo,
			Accuracy:          p.Accuracy,
			PotentialAccuracy: p.PotentialAccuracy,
			N300:              p.N300,
			N100:              p.N100,
			N50:               p.N50,
			Misses:            p.Misses,
			PassedObjects:     p.PassedObjects,
		})
	case "taiko":
		res, err = e.eval.Taiko(path, m, score.Taiko{
			Combo:         p.Combo,
			Accuracy:      p.Accuracy,
			N300:          p.N300,
			N100:          p.N100,
			Misses:        p.Misses,
			PassedObjects: p.PassedObjects,
		})
	case "mania":
		res, err = e.eval.Mania(path, m, score.Mania{
			Score:         p.Score,
			PassedObjects: p.PassedObjects,
		})
	case "catch", "fruits", "ctb":
		res, err = e.eval.Catch(path, m, score.Catch{
			Combo:             p.Combo,
			Fruits:            p.Fruits,
			Droplets:          p.Droplets,
			TinyDroplets:      p.TinyDroplets,
			TinyDropletMisses: p.TinyDropletMisses,
			Misses:            p.Misses,
			PassedObjects:     p.PassedObjects,
		})
	default:
		return nil, fmt.Errorf("unknown mode %q", p.Mode)
	}
	if err != nil {
		return nil, err
	}

	if e.history != nil {
		f := res.Fields(ppbind.ShapeCurrent)
		_, err := e.history.Record(ctx, store.Entry{
			Mode:   modeName(p.Mode),
			Chart:  path,
			Mods:   m.String(),
			PP:     f["pp"],
			Stars:  f["total_stars"],
			Fields: f,
		})
		if err != nil {
			e.logger.Warn("could not record evaluation", zap.String("path", path), zap.Error(err))
		}
	}
	return res, nil
}

func modeName(s string) string {
	switch strings.ToLower(s) {
	case "std", "osu", "standard", "":
		return "std"
	case "catch", "fruits", "ctb":
		return "catch"
	default:
		return strings.ToLower(s)
	}
}
