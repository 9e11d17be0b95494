// Package dedupe implements the record deduplication and merge engine:
// normalization, fingerprint blocking, pairwise similarity scoring,
// union-find clustering, and field-level merge resolution.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

// Normalized is the comparable view of a RawRecord. It is recomputed every
// run and never persisted.
type Normalized struct {
	Raw *model.RawRecord
	Ref model.SourceRef

	Name        string   // uppercased, punctuation-stripped, suffix removed
	LegalSuffix string   // stripped trailing entity suffix, display only
	NameTokens  []string // Name split on spaces
	DBANames    []string // DBA names normalized the same way as Name

	Street string // lowercased, abbreviation-expanded
	City   string // uppercased
	State  string // USPS 2-letter code where recognizable
	Zip    string // first 5 digits
	Phone  string // 10 digits, or empty when unusable

	Coords *model.Coordinates
}

// asciiFold strips diacritics so "José" and "Jose" compare equal.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// legalSuffixes are trailing entity designators split off the name before
// comparison. Kept in sync with the suffix set the extraction scripts strip.
var legalSuffixes = map[string]bool{
	"INC": true, "INCORPORATED": true, "LLC": true, "CORP": true,
	"CORPORATION": true, "CO": true, "COMPANY": true, "LTD": true,
	"LIMITED": true, "LP": true, "LLP": true, "PLLC": true, "PC": true,
}

// nameStopwords are skipped when picking the first significant word of a name.
var nameStopwords = map[string]bool{
	"THE": true, "A": true, "AN": true, "OF": true, "AND": true, "FOR": true,
}

// stateCodes maps lowercase full state names to USPS codes. Abbreviations
// already in USPS form pass through uppercased.
var stateCodes = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY", "district of columbia": "DC",
	"puerto rico": "PR",
}

// uspsCodes is the set of valid 2-letter codes for pass-through detection.
var uspsCodes = func() map[string]bool {
	m := make(map[string]bool, len(stateCodes))
	for _, code := range stateCodes {
		m[code] = true
	}
	return m
}()

// streetSynonyms expands common street abbreviations so "123 Main St" and
// "123 Main Street" compare equal. Keys and values are lowercase.
var streetSynonyms = map[string]string{
	"st": "street", "str": "street", "ave": "avenue", "av": "avenue",
	"rd": "road", "blvd": "boulevard", "dr": "drive", "ln": "lane",
	"ct": "court", "cir": "circle", "hwy": "highway", "pkwy": "parkway",
	"pl": "place", "sq": "square", "ter": "terrace", "trl": "trail",
	"n": "north", "s": "south", "e": "east", "w": "west",
	"ne": "northeast", "nw": "northwest", "se": "southeast", "sw": "southwest",
	"ste": "suite", "apt": "apartment", "fl": "floor", "bldg": "building",
}

// Normalize canonicalizes a raw record into comparable form. It is a pure
// function: missing fields pass through empty, nothing fails.
func Normalize(r *model.RawRecord) Normalized {
	n := Normalized{
		Raw:    r,
		City:   strings.ToUpper(foldASCII(strings.TrimSpace(r.Address.City))),
		State:  NormalizeState(r.Address.State),
		Zip:    normalizeZip(r.Address.Zip),
		Phone:  NormalizePhone(r.Phone),
		Coords: r.Coordinates,
		Street: normalizeStreet(r.Address.Street),
	}

	n.Name, n.LegalSuffix = normalizeName(r.Name)
	n.NameTokens = tokenize(n.Name)

	for _, dba := range r.DBANames {
		norm, _ := normalizeName(dba)
		if norm != "" {
			n.DBANames = append(n.DBANames, norm)
		}
	}

	n.Ref = model.SourceRef{
		SourceID:  r.SourceID,
		RecordKey: recordKey(n),
	}
	return n
}

// recordKey derives a stable natural key for one record within its source.
// Built from normalized fields so re-extractions of the same organization
// keep the same key.
func recordKey(n Normalized) string {
	return strings.ToLower(n.Name) + "|" + n.City + "|" + n.Zip + "|" + n.Phone
}

// normalizeName uppercases, folds diacritics, strips punctuation, collapses
// whitespace, and splits trailing legal suffixes off into the second return.
func normalizeName(name string) (string, string) {
	s := strings.ToUpper(foldASCII(name))
	s = stripPunct(s)
	tokens := tokenize(s)

	var suffixes []string
	for len(tokens) > 1 && legalSuffixes[tokens[len(tokens)-1]] {
		suffixes = append([]string{tokens[len(tokens)-1]}, suffixes...)
		tokens = tokens[:len(tokens)-1]
	}

	return strings.Join(tokens, " "), strings.Join(suffixes, " ")
}

// NormalizeState coerces a state string to its USPS 2-letter code. Unknown
// values pass through uppercased, unchanged otherwise.
func NormalizeState(state string) string {
	s := strings.TrimSpace(state)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	if len(upper) == 2 && uspsCodes[upper] {
		return upper
	}
	if code, ok := stateCodes[strings.ToLower(s)]; ok {
		return code
	}
	return upper
}

// NormalizePhone strips non-digits and reduces to a 10-digit line number.
// Anything that is not 10 digits (or 11 with a leading 1) is unusable and
// comes back empty rather than guessed at.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 10:
		return digits
	case len(digits) == 11 && digits[0] == '1':
		return digits[1:]
	default:
		return ""
	}
}

func normalizeZip(zip string) string {
	var b strings.Builder
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 5 {
		return digits[:5]
	}
	return digits
}

func normalizeStreet(street string) string {
	s := strings.ToLower(foldASCII(street))
	s = stripPunct(s)
	tokens := tokenize(s)
	for i, tok := range tokens {
		if full, ok := streetSynonyms[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

// firstSignificantWord returns the first name token that is neither a
// stopword nor a legal suffix. Empty when no token qualifies.
func firstSignificantWord(tokens []string) string {
	for _, tok := range tokens {
		if !nameStopwords[tok] && !legalSuffixes[tok] {
			return tok
		}
	}
	return ""
}

func foldASCII(s string) string {
	out, _, err := transform.String(asciiFold, s)
	if err != nil {
		return s
	}
	return out
}

// stripPunct keeps alphanumerics and spaces, mapping everything else to a
// space so "Smith-Jones" splits rather than fuses.
func stripPunct(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			return r
		}
		return ' '
	}, s)
}

func tokenize(s string) []string {
	return strings.Fields(s)
}
