package dedupe

import (
	"sort"

	"github.com/antzucaro/matchr"
)

// Fingerprint is a blocking key. Two records sharing any fingerprint become
// candidates for pairwise comparison; sharing a key is never itself a match.
//
// Blocking deliberately trades recall for a bounded comparison count: records
// that share no key are never compared, so a duplicate pair split across
// blocks (say, conflicting states from two sources) is missed. That is an
// accepted approximation, not a correctness guarantee.
type Fingerprint string

const (
	fpPhonetic = "px"    // (state, soundex of first significant name word)
	fpPhone    = "ph"    // (normalized 10-digit phone)
	fpZipWord  = "zw"    // (zip5, first significant name word)
	fpFallback = "fb"    // (org type, name prefix)
)

// Fingerprints derives the blocking keys for a normalized record. The result
// is sorted, deduplicated, and never empty: a record with no usable address
// or phone still gets a type+name-prefix fallback so it stays comparable.
func Fingerprints(n Normalized) []Fingerprint {
	set := make(map[Fingerprint]bool, 3)

	word := firstSignificantWord(n.NameTokens)

	if n.State != "" && word != "" {
		if code := matchr.Soundex(word); code != "" {
			set[key(fpPhonetic, n.State, code)] = true
		}
	}
	if n.Phone != "" {
		set[key(fpPhone, n.Phone)] = true
	}
	if n.Zip != "" && word != "" {
		set[key(fpZipWord, n.Zip, word)] = true
	}

	if len(set) == 0 {
		// Truncate on runes; folding leaves non-decomposable letters intact.
		prefix := []rune(n.Name)
		if len(prefix) > 4 {
			prefix = prefix[:4]
		}
		set[key(fpFallback, string(n.Raw.OrgType), string(prefix))] = true
	}

	fps := make([]Fingerprint, 0, len(set))
	for fp := range set {
		fps = append(fps, fp)
	}
	sort.Slice(fps, func(i, j int) bool { return fps[i] < fps[j] })
	return fps
}

func key(kind string, parts ...string) Fingerprint {
	s := kind
	for _, p := range parts {
		s += "|" + p
	}
	return Fingerprint(s)
}
