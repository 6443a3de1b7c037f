package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/beetlebugorg/shapefile/internal/config"
	"github.com/beetlebugorg/shapefile/internal/logger"
	"github.com/beetlebugorg/shapefile/internal/metrics"
	"github.com/beetlebugorg/shapefile/internal/store"
	"github.com/beetlebugorg/shapefile/internal/tui"
	"github.com/beetlebugorg/shapefile/pkg/geocode"
	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
)

// loadGeocoder builds a geocoder over path, a shapefile or a directory of
// them. An empty path falls back to the configured one.
func loadGeocoder(cfg *config.AppConfig, path string) (*geocode.Geocoder, error) {
	if path == "" {
		path = cfg.Data.Path
	}
	if path == "" {
		return nil, errors.New("no data: pass -data, set data.path or SHPGEO_DATA")
	}
	g := geocode.New(
		geocode.WithNameField(cfg.Data.NameField),
		geocode.WithMaxEntries(cfg.Data.MaxEntries),
		geocode.WithMinConfidence(cfg.Geocode.MinConfidence),
		geocode.WithLogger(logger.L()),
	)

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		opts := shapefile.DefaultLoadOptions()
		opts.ErrorLog = os.Stderr
		err = g.LoadDir(path, opts)
	default:
		err = g.Load(path)
	}
	if err != nil {
		return nil, err
	}
	metrics.LoadedRecords.Set(float64(len(g.Records())))
	return g, nil
}

func runGeocode(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("geocode", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to search")
	n := fs.Int("n", 1, "results per address")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("expected at least one address")
	}
	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}

	// Unquoted multi-word input arrives as several args.
	address := strings.Join(fs.Args(), " ")
	results := g.GeocodeTopN(address, *n)
	if *asJSON {
		if results == nil {
			results = []geocode.GeocodeResult{}
		}
		return writeJSONOut(results)
	}
	if len(results) == 0 {
		fmt.Printf("%s: no match\n", address)
		return nil
	}
	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}

func runReverse(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("reverse", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to search")
	maxDistance := fs.Float64("max", cfg.Geocode.MaxDistance, "search radius for the nearest record")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	var p geom.Point
	var err error
	switch fs.NArg() {
	case 1:
		p, err = parsePoint(fs.Arg(0))
	case 2:
		p, err = parsePoint(fs.Arg(0) + "," + fs.Arg(1))
	default:
		return errors.New("expected x y")
	}
	if err != nil {
		return err
	}
	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}

	r := g.ReverseGeocode(p, *maxDistance)
	if *asJSON {
		return writeJSONOut(r)
	}
	fmt.Println(r)
	return nil
}

func runBatch(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to search")
	in := fs.String("in", "-", "input file, one address per line")
	out := fs.String("out", "-", "CSV output file")
	_ = fs.Parse(args)

	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	var w io.Writer = os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	var addresses []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			addresses = append(addresses, line)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	start := time.Now()
	results := g.GeocodeBatch(addresses)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"address", "place", "x", "y", "confidence", "match"})
	matched := 0
	for i, res := range results {
		row := []string{addresses[i], "", "", "", "0", ""}
		if res.Found() {
			matched++
			row = []string{
				addresses[i],
				res.PlaceName,
				strconv.FormatFloat(res.Coordinate.X, 'f', -1, 64),
				strconv.FormatFloat(res.Coordinate.Y, 'f', -1, 64),
				strconv.FormatFloat(res.Confidence, 'f', 3, 64),
				string(res.MatchType),
			}
		}
		_ = cw.Write(row)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	counts.Fprintf(os.Stderr, "matched %d of %d addresses in %v\n", matched, len(addresses), time.Since(start).Round(time.Millisecond))
	return nil
}

func runInteractive(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("interactive", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to search")
	_ = fs.Parse(args)

	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}
	s := g.Stats()
	summary := counts.Sprintf("%d records, %d names, R-tree height %d", s.Records, s.Names, s.Tree.Height)
	m := tui.New(g, summary, cfg.Geocode.MaxResults, cfg.Geocode.MaxDistance)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func runExport(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	data := fs.String("data", "", "shapefile or directory to export")
	table := fs.String("table", cfg.Postgres.Table, "destination table")
	dsn := fs.String("dsn", cfg.Postgres.DSN, "PostgreSQL URL (default from PG_* variables)")
	source := fs.String("source", "", "source label for the rows (default the data file name)")
	_ = fs.Parse(args)

	g, err := loadGeocoder(cfg, *data)
	if err != nil {
		return err
	}
	if *table == "" {
		*table = store.DefaultTable
	}
	if *dsn == "" {
		*dsn = store.BuildDSNFromEnv()
	}
	if *source == "" {
		path := *data
		if path == "" {
			path = cfg.Data.Path
		}
		*source = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	st, err := store.Open(*dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := st.EnsureSchema(ctx, *table); err != nil {
		return fmt.Errorf("create table %s: %w", *table, err)
	}
	n, err := st.ExportRecords(ctx, *table, *source, g.Records(), cfg.Data.NameField)
	if err != nil {
		return err
	}
	counts.Printf("exported %d records to %s as %q\n", n, *table, *source)
	return nil
}
