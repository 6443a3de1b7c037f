package shapefile

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

var testFields = []FieldDefinition{
	{Name: "NAME", Type: FieldCharacter, Length: 24},
	{Name: "POP", Type: FieldNumeric, Length: 10},
	{Name: "COASTAL", Type: FieldLogical, Length: 1},
}

func square(minX, minY, size float64) *geom.PolygonGeometry {
	return &geom.PolygonGeometry{Rings: [][]geom.Point{{
		{X: minX, Y: minY},
		{X: minX, Y: minY + size},
		{X: minX + size, Y: minY + size},
		{X: minX + size, Y: minY},
		{X: minX, Y: minY},
	}}}
}

// gridRecords lays out n unit squares on a row starting at (originX, 0).
func gridRecords(n int, originX float64) []*ShapeRecord {
	records := make([]*ShapeRecord, n)
	for i := range records {
		records[i] = &ShapeRecord{
			Index:    i,
			Geometry: square(originX+float64(i)*2, 0, 1),
			Attributes: map[string]FieldValue{
				"NAME":    StringValue(fmt.Sprintf("Cell %d", i)),
				"POP":     FloatValue(float64(i * 100)),
				"COASTAL": BoolValue(i%2 == 0),
			},
		}
	}
	return records
}

func writeRecords(t testing.TB, dir, name string, records []*ShapeRecord) string {
	t.Helper()
	base := filepath.Join(dir, name)
	if err := Write(base, testFields, records); err != nil {
		t.Fatalf("Write(%s) error = %v", name, err)
	}
	return base
}
