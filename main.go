package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/yogzz2023/jn3/internal/assoc"
	"github.com/yogzz2023/jn3/internal/config"
	"github.com/yogzz2023/jn3/internal/monitoring"
	"github.com/yogzz2023/jn3/internal/pipeline"
	"github.com/yogzz2023/jn3/internal/report"
	"github.com/yogzz2023/jn3/internal/sensor"
	"github.com/yogzz2023/jn3/internal/store"
)

var (
	inputPath  = flag.String("input", "", "Path to the measurement CSV file (required)")
	configPath = flag.String("config", "", "Path to a tuning config JSON file (optional)")
	dbPath     = flag.String("db", "", "Path to the SQLite session archive (optional; skip archiving when empty)")
	reportPath = flag.String("report", "", "Path to write an HTML session report (optional)")
)

func main() {
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: jn3 -input <measurements.csv> [-config tuning.json] [-db sessions.db] [-report session.html]")
		os.Exit(2)
	}

	if err := run(); err != nil {
		monitoring.Logf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg *config.TuningConfig
	if *configPath != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load tuning config: %w", err)
		}
	}

	reports, err := sensor.ReadCSV(*inputPath)
	if err != nil {
		return fmt.Errorf("read measurements: %w", err)
	}
	monitoring.Logf("loaded %d reports from %s", len(reports), *inputPath)

	res, err := pipeline.New(cfg).Run(reports)
	if err != nil {
		return fmt.Errorf("run tracker: %w", err)
	}
	monitoring.Logf("formed %d tracks, %d hypotheses", len(res.Tracks), len(res.Hypotheses))
	if res.Degenerate {
		monitoring.Logf("all hypothesis probabilities underflowed; associations are unresolved")
	}

	printAssociations(os.Stdout, res)

	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			return fmt.Errorf("open session archive: %w", err)
		}
		defer s.Close()
		sessionID, err := s.SaveResult(*inputPath, res)
		if err != nil {
			return fmt.Errorf("archive session: %w", err)
		}
		monitoring.Logf("archived session %d to %s", sessionID, *dbPath)
	}

	if *reportPath != "" {
		if err := report.WriteFile(*reportPath, res); err != nil {
			return fmt.Errorf("write session report: %w", err)
		}
		monitoring.Logf("wrote session report to %s", *reportPath)
	}

	return nil
}

func printAssociations(w *os.File, res *pipeline.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORT\tX\tY\tZ\tTIME\tTRACK\tPROBABILITY")
	for _, a := range res.Associations {
		r := res.Reports[a.Report]
		trackID := "-"
		if a.Track != assoc.Unassigned {
			trackID = res.Tracks[a.Track].ID
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%.6f\n",
			a.Report, r.X, r.Y, r.Z, r.Time, trackID, a.Probability)
	}
	tw.Flush()
}
