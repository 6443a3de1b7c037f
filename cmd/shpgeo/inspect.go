package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/beetlebugorg/shapefile/internal/config"
	"github.com/beetlebugorg/shapefile/internal/logger"
	"github.com/beetlebugorg/shapefile/pkg/geom"
	"github.com/beetlebugorg/shapefile/pkg/shapefile"
	"github.com/beetlebugorg/shapefile/pkg/spatial"
)

// counts prints integers with thousands separators.
var counts = message.NewPrinter(language.English)

func readOptions() shapefile.ReadOptions {
	opts := shapefile.DefaultReadOptions()
	opts.Logger = logger.L()
	return opts
}

func runInfo(_ *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	lenient := fs.Bool("no-dbf", false, "open without a .dbf file")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("expected one shapefile path")
	}

	opts := readOptions()
	opts.RequireAttributes = !*lenient
	r := shapefile.NewReaderWithOptions(fs.Arg(0), opts)
	if err := r.Open(); err != nil {
		return err
	}
	defer r.Close()

	fmt.Print(r.Info())
	fields := r.Fields()
	if len(fields) == 0 {
		return nil
	}
	fmt.Println()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tLENGTH\tDECIMALS")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.Name, f.Type, f.Length, f.DecimalCount)
	}
	return tw.Flush()
}

func runCatalog(_ *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	bbox := fs.String("bbox", "", "only datasets intersecting minx,miny,maxx,maxy")
	typ := fs.String("type", "", "only datasets of this shape type, e.g. Polygon")
	minRecords := fs.Int("min-records", 0, "only datasets with at least this many records")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("expected one directory")
	}

	opts := shapefile.DefaultLoadOptions()
	opts.Read = readOptions()
	opts.ErrorLog = os.Stderr
	catalog, err := shapefile.BuildCatalogFromDir(fs.Arg(0), opts)
	if err != nil {
		return err
	}

	var q shapefile.QueryOptions
	q.MinRecords = *minRecords
	if *typ != "" {
		t, err := parseShapeType(*typ)
		if err != nil {
			return err
		}
		q.ShapeTypes = []geom.ShapeType{t}
	}
	box := catalog.Bounds()
	if *bbox != "" {
		if box, err = parseBBox(*bbox); err != nil {
			return err
		}
	}
	entries := catalog.Query(box, q)

	if *asJSON {
		return writeJSONOut(entries)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tRECORDS\tFIELDS\tBOUNDS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.Name, e.ShapeType, counts.Sprintf("%d", e.RecordCount), e.FieldCount, e.Bounds)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	counts.Printf("%d of %d datasets\n", len(entries), catalog.Count())
	return nil
}

func runQuery(cfg *config.AppConfig, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	bbox := fs.String("bbox", "", "records intersecting minx,miny,maxx,maxy")
	point := fs.String("point", "", "query point x,y")
	radius := fs.Float64("radius", 0, "with -point: records within this distance")
	nearest := fs.Int("nearest", 0, "with -point: the k nearest records")
	contains := fs.Bool("contains", false, "with -point: the polygon containing it")
	out := fs.String("out", "", "write the selection to this shapefile base path")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("expected one shapefile path")
	}

	r := shapefile.NewReaderWithOptions(fs.Arg(0), readOptions())
	if err := r.Open(); err != nil {
		return err
	}
	defer r.Close()
	idx := spatial.NewIndex(r.ReadAllRecords(), cfg.Data.MaxEntries)

	var selected []*shapefile.ShapeRecord
	switch {
	case *bbox != "":
		box, err := parseBBox(*bbox)
		if err != nil {
			return err
		}
		selected = idx.QueryIntersects(box)
	case *point != "":
		p, err := parsePoint(*point)
		if err != nil {
			return err
		}
		switch {
		case *contains:
			if rec, ok := idx.PointInPolygon(p); ok {
				selected = []*shapefile.ShapeRecord{rec}
			}
		case *nearest > 0:
			selected = idx.QueryNearest(p, *nearest)
		default:
			selected = idx.QueryWithinDistance(p, *radius)
		}
	default:
		return errors.New("one of -bbox or -point is required")
	}

	if *out != "" {
		if err := shapefile.Write(*out, r.Fields(), selected); err != nil {
			return err
		}
		counts.Fprintf(os.Stderr, "wrote %d records to %s\n", len(selected), *out)
	}
	if *asJSON {
		views := make([]recordView, len(selected))
		for i, rec := range selected {
			views[i] = viewOf(rec)
		}
		return writeJSONOut(views)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tTYPE\t%s\tBOUNDS\n", cfg.Data.NameField)
	for _, rec := range selected {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rec.Index, rec.ShapeTypeName(), rec.StringAttr(cfg.Data.NameField), rec.Bounds())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	counts.Printf("%d of %d records\n", len(selected), r.RecordCount())
	return nil
}

// recordView is the JSON form of a record.
type recordView struct {
	Index      int              `json:"index"`
	Number     int32            `json:"number"`
	ShapeType  string           `json:"shape_type"`
	Bounds     geom.BoundingBox `json:"bounds"`
	Attributes map[string]any   `json:"attributes"`
}

func viewOf(rec *shapefile.ShapeRecord) recordView {
	return recordView{
		Index:      rec.Index,
		Number:     rec.Number,
		ShapeType:  rec.ShapeTypeName(),
		Bounds:     rec.Bounds(),
		Attributes: rec.AttributeMap(),
	}
}

func writeJSONOut(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%q: want %d comma separated numbers", s, n)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, err)
		}
		out[i] = f
	}
	return out, nil
}

func parseBBox(s string) (geom.BoundingBox, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return geom.BoundingBox{}, err
	}
	b := geom.BoundingBox{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return geom.BoundingBox{}, fmt.Errorf("%q: min exceeds max", s)
	}
	return b, nil
}

func parsePoint(s string) (geom.Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return geom.Point{}, err
	}
	return geom.Point{X: v[0], Y: v[1]}, nil
}

func parseShapeType(name string) (geom.ShapeType, error) {
	for code := geom.ShapeType(0); code <= 31; code++ {
		if code.Known() && strings.EqualFold(code.String(), name) {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown shape type %q", name)
}
