package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/LdDl/bbox-stabilization/internal/config"
	"github.com/LdDl/bbox-stabilization/internal/framelog"
	"github.com/LdDl/bbox-stabilization/internal/jitter"
	"github.com/LdDl/bbox-stabilization/internal/replay"
	"github.com/LdDl/bbox-stabilization/stabilization"
)

type options struct {
	input  string
	output string
	tuning string
	width  int
	height int
	dbPath string
	plot   string
	chart  string
	report bool
	debug  bool
}

func main() {
	opts := options{}
	flag.StringVar(&opts.input, "input", "", "path to detections CSV (frame;id;cx;cy;w;h)")
	flag.StringVar(&opts.output, "output", "", "path to stabilized CSV (default stdout)")
	flag.StringVar(&opts.tuning, "tuning", "", "path to tuning JSON (defaults are used when empty)")
	flag.IntVar(&opts.width, "width", 1920, "frame width")
	flag.IntVar(&opts.height, "height", 1080, "frame height")
	flag.StringVar(&opts.dbPath, "db", "", "path to SQLite frame log")
	flag.StringVar(&opts.plot, "plot", "", "path to PNG/SVG plot of horizontal centers")
	flag.StringVar(&opts.chart, "chart", "", "path to HTML chart of box centers")
	flag.BoolVar(&opts.report, "report", false, "print jitter report to stderr")
	flag.BoolVar(&opts.debug, "debug", false, "trace state transitions")
	flag.Parse()

	if opts.input == "" {
		fmt.Fprintln(os.Stderr, "usage: stabilize-replay -input detections.csv [-output stabilized.csv] [-tuning tuning.json]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, opts); err != nil {
		log.Printf("stabilize-replay: %v", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if opts.debug {
		stabilization.SetDebugLogger(log.Printf)
	}

	tuning := config.DefaultTuning()
	if opts.tuning != "" {
		var err error
		tuning, err = config.LoadTuning(opts.tuning)
		if err != nil {
			return err
		}
	}
	cfg, err := tuning.ToStabilization()
	if err != nil {
		return err
	}
	engine, err := stabilization.NewEngineWith(&cfg, opts.width, opts.height)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.input)
	if err != nil {
		return err
	}
	rows, err := replay.ReadRows(file)
	file.Close()
	if err != nil {
		return err
	}
	frames, err := replay.GroupFrames(rows)
	if err != nil {
		return err
	}

	var store *framelog.Store
	if opts.dbPath != "" {
		store, err = framelog.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	records, err := replay.Run(ctx, engine, frames, store)
	if err != nil {
		return err
	}
	log.Printf("session %s: %d frames, %d objects", engine.SessionID(), len(frames), len(records))

	if err := writeOutput(opts.output, records); err != nil {
		return err
	}

	observations := replay.Observations(records)
	if opts.report {
		if err := jitter.WriteReport(os.Stderr, jitter.Analyze(observations)); err != nil {
			return err
		}
	}
	if opts.plot != "" {
		if err := jitter.SavePlot(opts.plot, observations); err != nil {
			return err
		}
	}
	if opts.chart != "" {
		chartFile, err := os.Create(opts.chart)
		if err != nil {
			return err
		}
		defer chartFile.Close()
		if err := jitter.RenderChart(chartFile, opts.input, opts.width, opts.height, observations); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path string, records []framelog.ObjectRecord) error {
	if path == "" {
		return replay.WriteRecords(os.Stdout, records)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := replay.WriteRecords(file, records); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
