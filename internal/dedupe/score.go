package dedupe

import (
	"math"

	"github.com/antzucaro/matchr"

	"github.com/recovery-atlas/directory-cli/internal/config"
)

// Scorer computes pairwise similarity between normalized records. Scores are
// symmetric and deterministic; Score(a,b) == Score(b,a) always.
type Scorer struct {
	nameWeight    float64
	addressWeight float64
	phoneWeight   float64
	geoWeight     float64
	geoCutoff     float64 // miles
}

// NewScorer builds a scorer from validated configuration.
func NewScorer(cfg config.DedupeConfig) *Scorer {
	return &Scorer{
		nameWeight:    cfg.NameWeight,
		addressWeight: cfg.AddressWeight,
		phoneWeight:   cfg.PhoneWeight,
		geoWeight:     cfg.GeoWeight,
		geoCutoff:     cfg.GeoCutoffMiles,
	}
}

// Score returns a weighted similarity in [0,1]. Signals missing on either
// side drop out of the weighting entirely: the final score is the weighted
// sum divided by the sum of weights that actually applied, so a pair without
// coordinates is not penalized for lacking them.
func (s *Scorer) Score(a, b Normalized) float64 {
	var sum, weight float64

	if a.Name != "" && b.Name != "" {
		sum += s.nameWeight * nameSimilarity(a, b)
		weight += s.nameWeight
	}
	if !a.Raw.Address.Empty() && !b.Raw.Address.Empty() {
		sum += s.addressWeight * addressSimilarity(a, b)
		weight += s.addressWeight
	}
	if a.Phone != "" && b.Phone != "" {
		if a.Phone == b.Phone {
			sum += s.phoneWeight
		}
		weight += s.phoneWeight
	}
	if a.Coords != nil && b.Coords != nil {
		sum += s.geoWeight * s.geoSimilarity(a, b)
		weight += s.geoWeight
	}

	if weight == 0 {
		return 0
	}
	return sum / weight
}

// nameSimilarity compares primary names and every DBA cross-pair, taking the
// best. Each comparison blends token-set Jaccard with Jaro-Winkler so both
// word reordering and near-typos get credit.
func nameSimilarity(a, b Normalized) float64 {
	namesA := append([]string{a.Name}, a.DBANames...)
	namesB := append([]string{b.Name}, b.DBANames...)

	best := 0.0
	for _, na := range namesA {
		for _, nb := range namesB {
			if na == "" || nb == "" {
				continue
			}
			if sim := stringSimilarity(na, nb); sim > best {
				best = sim
			}
		}
	}
	return best
}

func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	jac := tokenJaccard(tokenize(a), tokenize(b))
	jw := matchr.JaroWinkler(a, b, false)
	return math.Max(jac, jw)
}

func tokenJaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, tok := range a {
		setA[tok] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tok := range b {
		setB[tok] = true
	}
	inter := 0
	for tok := range setA {
		if setB[tok] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// addressSimilarity scores 1.0 for an exact normalized (street, city, state,
// zip) match, 0.3 for the same city and state with a different street, and
// 0.0 across state lines or anything weaker.
func addressSimilarity(a, b Normalized) float64 {
	if a.State != "" && b.State != "" && a.State != b.State {
		return 0
	}
	if a.Street == b.Street && a.City == b.City && a.State == b.State && a.Zip == b.Zip {
		return 1.0
	}
	if a.City != "" && a.City == b.City && a.State != "" && a.State == b.State {
		return 0.3
	}
	return 0
}

// geoSimilarity decays linearly from 1.0 at zero distance to 0.0 at the
// configured cutoff.
func (s *Scorer) geoSimilarity(a, b Normalized) float64 {
	d := haversineMiles(a.Coords.Lat, a.Coords.Lon, b.Coords.Lat, b.Coords.Lon)
	if d >= s.geoCutoff {
		return 0
	}
	return 1.0 - d/s.geoCutoff
}

const earthRadiusMiles = 3958.8

func haversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMiles * math.Asin(math.Sqrt(h))
}
