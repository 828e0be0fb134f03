package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"ppbind"
	"ppbind/fetch"
	"ppbind/report"
	"ppbind/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ppbind:", err)
		os.Exit(1)
	}
}

type chartFlags struct {
	path *string
	id   *int
	mods *string
}

func addChartFlags(cmd *kingpin.CmdClause) chartFlags {
	return chartFlags{
		path: cmd.Arg("map", "Path to the .osu file").String(),
		id:   cmd.Flag("id", "Beatmap id to download instead of a path").Int(),
		mods: cmd.Flag("mods", "Mods as acronyms (HDDT) or bitmask").Short('m').Default("").String(),
	}
}

func (c chartFlags) play(mode string) play {
	return play{Mode: mode, Map: *c.path, ID: *c.id, Mods: *c.mods}
}

func run(args []string, stdout io.Writer) error {
	app := kingpin.New("ppbind", "Star rating and pp for full and partial osu! plays.")
	app.HelpFlag.Short('h')

	var g globalFlags
	app.Flag("config", "Config file (yaml)").SetValue(&g.config)
	app.Flag("cache-dir", "Where downloaded charts are kept").SetValue(&g.cache)
	app.Flag("db", "Record every evaluation into this sqlite file").SetValue(&g.db)
	app.Flag("legacy", "Narrow result without attributes, single precision").SetValue(&g.legacy)
	app.Flag("verbose", "Debug logging").Short('v').BoolVar(&g.verbose)
	format := app.Flag("format", "Output format").Default("auto").Enum("auto", "table", "json")

	plays := map[string]func() play{}

	std := app.Command("std", "Evaluate an osu!standard play")
	{
		c := addChartFlags(std)
		combo := optInt(std, "combo", "Max combo reached")
		acc := optFloat(std, "acc", "Accuracy, fraction or percent")
		pot := optFloat(std, "potential-acc", "Accuracy of the full-combo play behind max_pp")
		n300 := optInt(std, "n300", "Count of 300s")
		n100 := optInt(std, "n100", "Count of 100s")
		n50 := optInt(std, "n50", "Count of 50s")
		miss := optInt(std, "misses", "Count of misses")
		passed := optInt(std, "passed", "Objects passed before the play ended")
		plays[std.FullCommand()] = func() play {
			p := c.play("std")
			p.Combo, p.Accuracy, p.PotentialAccuracy = combo.v, acc.v, pot.v
			p.N300, p.N100, p.N50, p.Misses, p.PassedObjects = n300.v, n100.v, n50.v, miss.v, passed.v
			return p
		}
	}

	taiko := app.Command("taiko", "Evaluate an osu!taiko play")
	{
		c := addChartFlags(taiko)
		combo := optInt(taiko, "combo", "Max combo reached")
		acc := optFloat(taiko, "acc", "Accuracy, fraction or percent")
		n300 := optInt(taiko, "n300", "Count of greats")
		n100 := optInt(taiko, "n100", "Count of goods")
		miss := optInt(taiko, "misses", "Count of misses")
		passed := optInt(taiko, "passed", "Objects passed before the play ended")
		plays[taiko.FullCommand()] = func() play {
			p := c.play("taiko")
			p.Combo, p.Accuracy = combo.v, acc.v
			p.N300, p.N100, p.Misses, p.PassedObjects = n300.v, n100.v, miss.v, passed.v
			return p
		}
	}

	mania := app.Command("mania", "Evaluate an osu!mania play")
	{
		c := addChartFlags(mania)
		sc := optUint32(mania, "score", "Score value")
		passed := optInt(mania, "passed", "Objects passed before the play ended")
		plays[mania.FullCommand()] = func() play {
			p := c.play("mania")
			p.Score, p.PassedObjects = sc.v, passed.v
			return p
		}
	}

	catch := app.Command("catch", "Evaluate an osu!catch play")
	{
		c := addChartFlags(catch)
		combo := optInt(catch, "combo", "Max combo reached")
		fruits := optInt(catch, "fruits", "Caught fruits")
		droplets := optInt(catch, "droplets", "Caught droplets")
		tiny := optInt(catch, "tiny-droplets", "Caught tiny droplets")
		tinyMiss := optInt(catch, "tiny-droplet-misses", "Missed tiny droplets")
		miss := optInt(catch, "misses", "Missed fruits and droplets")
		passed := optInt(catch, "passed", "Objects passed before the play ended")
		plays[catch.FullCommand()] = func() play {
			p := c.play("catch")
			p.Combo, p.Fruits, p.Droplets = combo.v, fruits.v, droplets.v
			p.TinyDroplets, p.TinyDropletMisses = tiny.v, tinyMiss.v
			p.Misses, p.PassedObjects = miss.v, passed.v
			return p
		}
	}

	batch := app.Command("batch", "Evaluate every play of a yaml file")
	batchFile := batch.Arg("file", "Plays file").Required().ExistingFile()
	batchXLSX := batch.Flag("xlsx", "Also write the results to this workbook").String()
	batchJobs := batch.Flag("jobs", "Plays evaluated at once").Short('j').Default(fmt.Sprint(runtime.NumCPU())).Int()

	fetchCmd := app.Command("fetch", "Download charts into the cache")
	fetchIDs := fetchCmd.Arg("ids", "Beatmap ids").Required().Ints()

	history := app.Command("history", "List recorded evaluations")
	historyLimit := history.Flag("limit", "Entries to show, 0 for all").Short('n').Default("20").Int()

	cmd, err := app.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(&g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	e := &env{
		eval:    ppbind.New(ppbind.WithLogger(logger)),
		fetcher: fetch.New(cfg.CacheDir, logger),
		logger:  logger,
	}
	if cfg.DB != "" {
		h, err := store.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer h.Close()
		e.history = h
	}

	out := output{w: stdout, format: *format, shape: ppbind.ShapeCurrent}
	if cfg.Legacy {
		out.shape = ppbind.ShapeLegacy
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case batch.FullCommand():
		rows, errs := e.runBatch(ctx, *batchFile, *batchJobs)
		if rows == nil {
			return errs
		}
		if err := out.rows(rows); err != nil {
			return err
		}
		if *batchXLSX != "" {
			if err := report.XLSX(*batchXLSX, rows, out.shape); err != nil {
				return multierr.Append(errs, err)
			}
			logger.Info("wrote workbook", zap.String("path", *batchXLSX))
		}
		return errs

	case fetchCmd.FullCommand():
		return e.fetchAll(ctx, *fetchIDs, stdout)

	case history.FullCommand():
		if e.history == nil {
			return errors.New("history needs --db or db in the config file")
		}
		entries, err := e.history.List(ctx, *historyLimit)
		if err != nil {
			return err
		}
		return out.history(entries)
	}

	build, ok := plays[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	p := build()
	path, err := e.chartPath(ctx, p, "")
	if err != nil {
		return err
	}
	res, err := e.evaluate(ctx, p, path)
	if err != nil {
		return err
	}
	return out.result(res)
}

func (e *env) fetchAll(ctx context.Context, ids []int, w io.Writer) error {
	paths := make([]string, len(ids))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for i, id := range ids {
		i, id := i, id
		spawn(&wg, func() error {
			path, err := e.fetcher.Fetch(ctx, id)
			paths[i] = path
			return err
		}, func(err error) {
			if err == nil {
				return
			}
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		})
	}
	wg.Wait()
	for i, id := range ids {
		if paths[i] != "" {
			fmt.Fprintf(w, "%d\t%s\n", id, paths[i])
		}
	}
	return errs
}
