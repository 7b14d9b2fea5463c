// Command tubestats prints watch statistics for an exported watch-history file.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ad-tracker/watch-history-analyzer-go/internal/models"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/parser"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/stats"
	"github.com/ad-tracker/watch-history-analyzer-go/internal/validation"
	"github.com/ad-tracker/watch-history-analyzer-go/pkg/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "tubestats: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	file     string
	top      int
	year     string
	timezone string
	dayFirst bool
	asJSON   bool
	logLevel string
}

func parseOptions(args []string) (options, error) {
	fs := pflag.NewFlagSet("tubestats", pflag.ContinueOnError)
	fs.StringP("file", "f", "watch-history.html", "path to the exported watch-history HTML file")
	fs.IntP("top", "n", 10, "number of videos and channels to list")
	fs.StringP("year", "y", "", "show the yearly summary for this year")
	fs.String("timezone", "Local", "IANA timezone used for dates and year boundaries")
	fs.Bool("day-first", false, "read numeric dates as day/month/year")
	fs.Bool("json", false, "print JSON instead of text")
	fs.String("log-level", "warn", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("TUBESTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return options{}, fmt.Errorf("bind flags: %w", err)
	}

	return options{
		file:     v.GetString("file"),
		top:      v.GetInt("top"),
		year:     v.GetString("year"),
		timezone: v.GetString("timezone"),
		dayFirst: v.GetBool("day-first"),
		asJSON:   v.GetBool("json"),
		logLevel: v.GetString("log-level"),
	}, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}

	if err := logger.Init(opts.logLevel, ""); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	loc := time.Local
	if opts.timezone != "" && opts.timezone != "Local" {
		loc, err = time.LoadLocation(opts.timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
		}
	}

	content, err := os.ReadFile(opts.file)
	if err != nil {
		return err
	}

	res, err := parser.Parse(string(content), parser.Options{Location: loc, DayFirst: opts.dayFirst})
	if err != nil {
		return err
	}

	logger.Log.Debug("Parsed history document",
		zap.String("file", opts.file),
		zap.Int("matched", res.Report.Matched),
		zap.Int("accepted", res.Report.Accepted),
		zap.Int("noise", res.Report.Noise),
		zap.Int("invalidDates", res.Report.InvalidDates),
	)
	for _, f := range res.Fragments {
		logger.Log.Debug("Skipped fragment", zap.Error(f))
	}

	if opts.year != "" {
		year, err := validation.ParseYear(opts.year)
		if err != nil {
			return err
		}
		summary := stats.Wrapped(res.Entries, year, loc, opts.top)
		if opts.asJSON {
			return writeJSON(out, summary)
		}
		printYear(out, summary)
		return nil
	}

	s := stats.Compute(res.Entries)
	r := stats.Top(res.Entries, opts.top)
	s.TopVideos, s.TopChannels = r.Videos, r.Channels

	if opts.asJSON {
		return writeJSON(out, models.StatsResponseDTO{
			Stats:    s,
			YearSpan: stats.YearSpan(s, loc),
			Duration: stats.FormatMinutes(float64(s.EstimatedMinutesDeterministic)),
		})
	}
	printSummary(out, s, res.Report, loc)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSummary(out io.Writer, s models.WatchStats, report models.ImportReport, loc *time.Location) {
	fmt.Fprintf(out, "Videos watched:  %d (%d unique)\n", s.TotalVideos, s.UniqueVideos)
	if s.TotalVideos == 0 {
		fmt.Fprintf(out, "No watch events found (%d fragments matched, %d skipped as noise)\n", report.Matched, report.Noise)
		return
	}
	fmt.Fprintf(out, "Period:          %s\n", stats.DateRange(s, loc))
	fmt.Fprintf(out, "Watch time:      %s\n", stats.FormatMinutes(float64(s.EstimatedMinutesDeterministic)))

	fmt.Fprintln(out, "\nTop videos:")
	for i, v := range s.TopVideos {
		fmt.Fprintf(out, "%3d. %s (%s) x%d\n", i+1, v.Title, v.Channel, v.Count)
	}
	fmt.Fprintln(out, "\nTop channels:")
	for i, c := range s.TopChannels {
		fmt.Fprintf(out, "%3d. %s x%d\n", i+1, c.Name, c.Count)
	}
}

func printYear(out io.Writer, y models.YearSummary) {
	fmt.Fprintf(out, "%d: %d videos watched\n", y.Year, y.TotalViews)
	if y.TotalViews == 0 {
		return
	}
	fmt.Fprintln(out, "\nTop channels:")
	for i, c := range y.TopChannels {
		fmt.Fprintf(out, "%3d. %s x%d\n", i+1, c.Name, c.Count)
	}
	fmt.Fprintln(out, "\nTop videos:")
	for i, v := range y.TopVideos {
		fmt.Fprintf(out, "%3d. %s (%s) x%d\n", i+1, v.Title, v.Channel, v.Count)
	}
}
