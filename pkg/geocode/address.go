package geocode

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StreetTypes maps street-type abbreviations to their expansion.
var StreetTypes = map[string]string{
	"ST":   "STREET",
	"AVE":  "AVENUE",
	"BLVD": "BOULEVARD",
	"RD":   "ROAD",
	"DR":   "DRIVE",
	"LN":   "LANE",
	"CT":   "COURT",
	"PL":   "PLACE",
	"WAY":  "WAY",
	"CIR":  "CIRCLE",
	"PKWY": "PARKWAY",
	"HWY":  "HIGHWAY",
}

// States maps USPS state abbreviations, plus DC, to normalized state names.
var States = map[string]string{
	"AL": "ALABAMA", "AK": "ALASKA", "AZ": "ARIZONA", "AR": "ARKANSAS",
	"CA": "CALIFORNIA", "CO": "COLORADO", "CT": "CONNECTICUT", "DE": "DELAWARE",
	"FL": "FLORIDA", "GA": "GEORGIA", "HI": "HAWAII", "ID": "IDAHO",
	"IL": "ILLINOIS", "IN": "INDIANA", "IA": "IOWA", "KS": "KANSAS",
	"KY": "KENTUCKY", "LA": "LOUISIANA", "ME": "MAINE", "MD": "MARYLAND",
	"MA": "MASSACHUSETTS", "MI": "MICHIGAN", "MN": "MINNESOTA", "MS": "MISSISSIPPI",
	"MO": "MISSOURI", "MT": "MONTANA", "NE": "NEBRASKA", "NV": "NEVADA",
	"NH": "NEW HAMPSHIRE", "NJ": "NEW JERSEY", "NM": "NEW MEXICO", "NY": "NEW YORK",
	"NC": "NORTH CAROLINA", "ND": "NORTH DAKOTA", "OH": "OHIO", "OK": "OKLAHOMA",
	"OR": "OREGON", "PA": "PENNSYLVANIA", "RI": "RHODE ISLAND", "SC": "SOUTH CAROLINA",
	"SD": "SOUTH DAKOTA", "TN": "TENNESSEE", "TX": "TEXAS", "UT": "UTAH",
	"VT": "VERMONT", "VA": "VIRGINIA", "WA": "WASHINGTON", "WV": "WEST VIRGINIA",
	"WI": "WISCONSIN", "WY": "WYOMING", "DC": "DISTRICT OF COLUMBIA",
}

// stateAbbrevs maps a normalized state name back to its abbreviations.
var stateAbbrevs = func() map[string][]string {
	m := make(map[string][]string, len(States))
	for abbr, name := range States {
		m[name] = append(m[name], abbr)
	}
	return m
}()

// ParsedAddress is a free-text address split into components. Every
// component is normalized; Original keeps the input as given.
type ParsedAddress struct {
	HouseNumber string `json:"house_number,omitempty"`
	Street      string `json:"street,omitempty"`
	StreetType  string `json:"street_type,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Country     string `json:"country,omitempty"`
	Original    string `json:"original,omitempty"`
}

// IsValid reports whether the address can be looked up. Any non-empty
// input qualifies so that bare place names reach candidate scoring.
func (a ParsedAddress) IsValid() bool {
	return a.State != "" || a.Original != ""
}

// String formats the components as "123 MAIN STREET, ANYTOWN, CA 12345".
func (a ParsedAddress) String() string {
	var parts []string
	if line := joinNonEmpty(" ", a.HouseNumber, a.Street, a.StreetType); line != "" {
		parts = append(parts, line)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	if region := joinNonEmpty(" ", a.State, a.Zip); region != "" {
		parts = append(parts, region)
	}
	if a.Country != "" {
		parts = append(parts, a.Country)
	}
	if len(parts) == 0 {
		return a.Original
	}
	return strings.Join(parts, ", ")
}

// queries returns the place-name lookups to try, most specific region
// first: state, city, street name, then the whole normalized input.
func (a ParsedAddress) queries() []string {
	seen := map[string]bool{}
	var out []string
	for _, q := range []string{a.State, a.City, a.Street, Normalize(a.Original)} {
		if q != "" && !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Normalize upper-cases s, folds diacritics, turns commas into spaces,
// drops periods and collapses whitespace.
func Normalize(s string) string {
	// Transformers and casers are stateful, so each call gets its own.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = cases.Upper(language.Und).String(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',':
			return ' '
		case '.':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits normalized text on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(s)
}

type token struct {
	text    string
	segment int // comma-separated segment of the raw input
}

// Parse splits an address into components:
//
//  1. a leading all-digit token is the house number;
//  2. tokens up to a zip code, a trailing state or the end of the first
//     comma segment form the street, whose last token becomes the expanded
//     street type when it is a known abbreviation; after a house number a
//     token that is both a state and a street type stays in the street;
//  3. a state abbreviation followed only by zip or country tokens is the
//     state, a 5 or 5+4 digit token the zip, and a trailing USA, US or
//     UNITED STATES the country;
//  4. whatever remains is the city.
func Parse(input string) ParsedAddress {
	addr := ParsedAddress{Original: input}

	var toks []token
	for seg, part := range strings.Split(input, ",") {
		for _, t := range Tokenize(Normalize(part)) {
			toks = append(toks, token{text: t, segment: seg})
		}
	}
	if len(toks) == 0 {
		return addr
	}

	end := countryStart(toks)
	if end < len(toks) {
		addr.Country = joinTokens(toks[end:])
	}
	toks = toks[:end]

	i := 0
	if len(toks) > 0 && isDigits(toks[0].text) {
		addr.HouseNumber = toks[0].text
		i = 1
	}

	var street []string
	if i < len(toks) {
		seg := toks[i].segment
		for ; i < len(toks); i++ {
			if toks[i].segment != seg || isZip(toks[i].text) {
				break
			}
			// CT ends "123 Main Ct" as a street type, not a state.
			if isTrailingState(toks, i) && !(addr.HouseNumber != "" && len(street) > 0 && isStreetType(toks[i].text)) {
				break
			}
			street = append(street, toks[i].text)
		}
	}
	if n := len(street); n > 0 {
		if expanded, ok := StreetTypes[street[n-1]]; ok {
			addr.StreetType = expanded
			street = street[:n-1]
		}
	}
	addr.Street = strings.Join(street, " ")

	var city []string
	for ; i < len(toks); i++ {
		t := toks[i].text
		switch {
		case addr.State == "" && isTrailingState(toks, i):
			addr.State = t
		case addr.Zip == "" && isZip(t):
			addr.Zip = t
		default:
			city = append(city, t)
		}
	}
	addr.City = strings.Join(city, " ")
	return addr
}

// countryStart returns the index where a trailing country name begins, or
// len(toks) when there is none.
func countryStart(toks []token) int {
	n := len(toks)
	if n >= 2 && toks[n-2].text == "UNITED" && toks[n-1].text == "STATES" {
		return n - 2
	}
	if n >= 1 && (toks[n-1].text == "USA" || toks[n-1].text == "US") {
		return n - 1
	}
	return n
}

// isTrailingState reports whether toks[i] is a state abbreviation followed
// only by zip codes.
func isTrailingState(toks []token, i int) bool {
	if _, ok := States[toks[i].text]; !ok {
		return false
	}
	for _, t := range toks[i+1:] {
		if !isZip(t.text) {
			return false
		}
	}
	return true
}

func isStreetType(s string) bool {
	_, ok := StreetTypes[s]
	return ok
}

func joinTokens(toks []token) string {
	s := make([]string, len(toks))
	for i, t := range toks {
		s[i] = t.text
	}
	return strings.Join(s, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// isZip matches 12345 and 12345-6789.
func isZip(s string) bool {
	switch len(s) {
	case 5:
		return isDigits(s)
	case 10:
		return s[5] == '-' && isDigits(s[:5]) && isDigits(s[6:])
	}
	return false
}
