package shapefile

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/beetlebugorg/shapefile/internal/parser"
	"github.com/beetlebugorg/shapefile/pkg/geom"
)

func TestReaderStateMachine(t *testing.T) {
	base := writeRecords(t, t.TempDir(), "cells", gridRecords(3, 0))
	r := NewReader(base + ".shp")

	if r.IsOpen() {
		t.Fatal("new reader is open")
	}
	if _, ok := r.ReadRecord(0); ok {
		t.Error("ReadRecord on closed reader succeeded")
	}
	if r.RecordCount() != 0 {
		t.Errorf("RecordCount() closed = %d, want 0", r.RecordCount())
	}

	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := r.Open(); err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	if !r.IsOpen() {
		t.Fatal("IsOpen() = false after Open")
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if r.IsOpen() {
		t.Fatal("IsOpen() = true after Close")
	}
	if got := r.ReadAllRecords(); len(got) != 0 {
		t.Errorf("ReadAllRecords() closed = %d records, want 0", len(got))
	}
}

func TestReaderOpenFailureStaysClosed(t *testing.T) {
	dir := t.TempDir()
	base := writeRecords(t, dir, "cells", gridRecords(2, 0))
	if err := os.Remove(base + ".shx"); err != nil {
		t.Fatal(err)
	}

	r := NewReader(base)
	err := r.Open()
	if err == nil {
		t.Fatal("Open() succeeded without .shx")
	}
	var missing *parser.ErrMissingFile
	if !errors.As(err, &missing) {
		t.Errorf("Open() error = %v, want *parser.ErrMissingFile in chain", err)
	}
	if r.IsOpen() {
		t.Error("reader open after failed Open")
	}
	if _, ok := r.ReadRecord(0); ok {
		t.Error("ReadRecord succeeded after failed Open")
	}
}

func TestReaderRoundTrip(t *testing.T) {
	records := gridRecords(5, 10)
	records[2].Geometry = nil // null shape
	base := writeRecords(t, t.TempDir(), "cells", records)

	r := NewReader(base)
	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if r.RecordCount() != 5 {
		t.Fatalf("RecordCount() = %d, want 5", r.RecordCount())
	}
	if r.ShapeType() != geom.ShapePolygon {
		t.Errorf("ShapeType() = %v, want Polygon", r.ShapeType())
	}
	if want := (geom.BoundingBox{MinX: 10, MinY: 0, MaxX: 19, MaxY: 1}); r.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", r.Bounds(), want)
	}
	if got := len(r.Fields()); got != len(testFields) {
		t.Errorf("len(Fields()) = %d, want %d", got, len(testFields))
	}

	all := r.ReadAllRecords()
	if len(all) != 5 {
		t.Fatalf("ReadAllRecords() = %d records, want 5", len(all))
	}
	for i, rec := range all {
		if rec.Index != i || rec.Number != int32(i+1) {
			t.Errorf("record %d: Index=%d Number=%d", i, rec.Index, rec.Number)
		}
		want := records[i]
		if want.Geometry == nil {
			if rec.Geometry != nil {
				t.Errorf("record %d: Geometry = %v, want nil", i, rec.Geometry)
			}
		} else if !reflect.DeepEqual(rec.Geometry, want.Geometry) {
			t.Errorf("record %d: Geometry = %v, want %v", i, rec.Geometry, want.Geometry)
		}
		if got, exp := rec.StringAttr("NAME"), want.StringAttr("NAME"); got != exp {
			t.Errorf("record %d: NAME = %q, want %q", i, got, exp)
		}
		if got, exp := rec.FloatAttr("pop"), want.FloatAttr("POP"); got != exp {
			t.Errorf("record %d: POP = %v, want %v", i, got, exp)
		}
		if got, exp := rec.BoolAttr("COASTAL"), want.BoolAttr("COASTAL"); got != exp {
			t.Errorf("record %d: COASTAL = %v, want %v", i, got, exp)
		}
	}
}

func TestReadRecordOutOfRange(t *testing.T) {
	base := writeRecords(t, t.TempDir(), "cells", gridRecords(3, 0))
	r := NewReader(base)
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for _, i := range []int{-1, 3, 100} {
		if rec, ok := r.ReadRecord(i); ok || rec != nil {
			t.Errorf("ReadRecord(%d) = (%v, %v), want (nil, false)", i, rec, ok)
		}
	}
}

func TestReadRecordsInBounds(t *testing.T) {
	base := writeRecords(t, t.TempDir(), "cells", gridRecords(6, 0))
	r := NewReader(base)
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Squares sit at x = 0, 2, 4, 6, 8, 10 with width 1.
	box := geom.BoundingBox{MinX: 3, MinY: 0.5, MaxX: 6, MaxY: 3}
	got := r.ReadRecordsInBounds(box)
	var idx []int
	for _, rec := range got {
		idx = append(idx, rec.Index)
	}
	if want := []int{2, 3}; !reflect.DeepEqual(idx, want) {
		t.Errorf("ReadRecordsInBounds() indices = %v, want %v", idx, want)
	}

	// Every returned record intersects, every excluded one does not.
	in := map[int]bool{}
	for _, rec := range got {
		in[rec.Index] = true
	}
	for _, rec := range r.ReadAllRecords() {
		if box.Intersects(rec.Bounds()) != in[rec.Index] {
			t.Errorf("record %d: intersects=%v, returned=%v", rec.Index, box.Intersects(rec.Bounds()), in[rec.Index])
		}
	}
}

func TestAttributeAccessDefaults(t *testing.T) {
	rec := &ShapeRecord{Attributes: map[string]FieldValue{
		"NAME": StringValue("Springfield"),
		"POP":  FloatValue(1200),
	}}

	if got := rec.FloatAttr("NAME"); got != 0 {
		t.Errorf("FloatAttr(NAME) = %v, want 0", got)
	}
	if got := rec.StringAttr("POP"); got != "" {
		t.Errorf("StringAttr(POP) = %q, want empty", got)
	}
	if got := rec.StringAttr("MISSING"); got != "" {
		t.Errorf("StringAttr(MISSING) = %q, want empty", got)
	}
	if _, ok := rec.Attr("missing"); ok {
		t.Error("Attr(missing) ok = true")
	}
	if got := rec.StringAttr("name"); got != "Springfield" {
		t.Errorf("case-insensitive StringAttr = %q, want Springfield", got)
	}
}

func TestReaderWithoutAttributes(t *testing.T) {
	base := writeRecords(t, t.TempDir(), "cells", gridRecords(2, 0))
	if err := os.Remove(base + ".dbf"); err != nil {
		t.Fatal(err)
	}

	opts := DefaultReadOptions()
	opts.RequireAttributes = false
	r := NewReaderWithOptions(base, opts)
	if err := r.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	rec, ok := r.ReadRecord(1)
	if !ok {
		t.Fatal("ReadRecord(1) failed")
	}
	if rec.Geometry == nil || len(rec.Attributes) != 0 {
		t.Errorf("record = %+v, want geometry and no attributes", rec)
	}
}

func TestReaderInfo(t *testing.T) {
	base := writeRecords(t, t.TempDir(), "cells", gridRecords(2, 0))
	r := NewReader(base)
	if !strings.Contains(r.Info(), "closed") {
		t.Errorf("Info() closed = %q", r.Info())
	}
	if err := r.Open(); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	info := r.Info()
	for _, want := range []string{"Polygon (5)", "Record Count: 2", "NAME (Character, 24)", filepath.Base(base)} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() missing %q:\n%s", want, info)
		}
	}
}

func TestWriteDeletedRecord(t *testing.T) {
	records := gridRecords(2, 0)
	records[1].Deleted = true
	base := writeRecords(t, t.TempDir(), "cells", records)

	ds, err := LoadDataset(base, DefaultReadOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !ds.Records[1].Deleted || len(ds.Records[1].Attributes) != 0 {
		t.Errorf("record 1 = %+v, want deleted with no attributes", ds.Records[1])
	}
	if ds.Records[0].Deleted {
		t.Error("record 0 deleted")
	}
	if ds.Name != "cells" {
		t.Errorf("Name = %q, want cells", ds.Name)
	}
}
