package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ppbind/report"
)

type playFile struct {
	Plays []play `yaml:"plays"`
}

func loadPlays(path string) ([]play, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf playFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("plays %s: %w", path, err)
	}
	if len(pf.Plays) == 0 {
		return nil, fmt.Errorf("plays %s: no plays", path)
	}
	return pf.Plays, nil
}

// runBatch evaluates every play of the file at most jobs at a time. Rows
// keep the file order. The returned error combines every failed play.
func (e *env) runBatch(ctx context.Context, file string, jobs int) ([]report.Row, error) {
	plays, err := loadPlays(file)
	if err != nil {
		return nil, err
	}
	base := filepath.Dir(file)

	// download each id once before fanning out
	var ids []int
	for _, p := range plays {
		if p.ID > 0 && !slices.Contains(ids, p.ID) {
			ids = append(ids, p.ID)
		}
	}
	fetchErrs := map[int]error{}
	for _, id := range ids {
		if _, err := e.fetcher.Fetch(ctx, id); err != nil {
			fetchErrs[id] = err
		}
	}

	rows := make([]report.Row, len(plays))
	slots := make(chan struct{}, max(1, jobs))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for i, p := range plays {
		i, p := i, p
		rows[i] = report.Row{Label: p.label(), Mode: modeName(p.Mode), Mods: p.Mods}
		if rows[i].Mods == "" {
			rows[i].Mods = "NM"
		}
		if err := fetchErrs[p.ID]; err != nil {
			rows[i].Err = err
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", rows[i].Label, err))
			mu.Unlock()
			continue
		}

		slots <- struct{}{}
		spawn(&wg, func() error {
			defer func() { <-slots }()
			path, err := e.chartPath(ctx, p, base)
			if err != nil {
				return err
			}
			res, err := e.evaluate(ctx, p, path)
			if err != nil {
				return err
			}
			rows[i].Result = res
			return nil
		}, func(err error) {
			if err == nil {
				return
			}
			rows[i].Err = err
			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", rows[i].Label, err))
			mu.Unlock()
		})
	}
	wg.Wait()

	e.logger.Info("batch done",
		zap.String("file", file),
		zap.Int("plays", len(plays)),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return rows, errs
}
