package geocode

import (
	"fmt"

	"github.com/beetlebugorg/shapefile/pkg/geom"
)

// MatchType says how a result was found.
type MatchType string

const (
	MatchNone    MatchType = ""
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchReverse MatchType = "reverse"
)

// GeocodeResult is one resolved location. The zero value means no match.
type GeocodeResult struct {
	// Coordinate is the centre of the matched record's bounding box.
	Coordinate geom.Point    `json:"coordinate"`
	Address    ParsedAddress `json:"address"`
	PlaceName  string        `json:"place_name"`
	Confidence float64       `json:"confidence"`
	MatchType  MatchType     `json:"match_type"`

	// RecordIndex is the matched record's position in the loaded dataset.
	RecordIndex int `json:"record_index"`
}

// Found reports whether the result is a match.
func (r GeocodeResult) Found() bool { return r.Confidence > 0 }

func (r GeocodeResult) String() string {
	if !r.Found() {
		return "no match"
	}
	return fmt.Sprintf("%s at (%.6f, %.6f) confidence %.3f [%s]",
		r.PlaceName, r.Coordinate.X, r.Coordinate.Y, r.Confidence, r.MatchType)
}
