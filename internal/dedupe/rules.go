package dedupe

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Rules configures merge policy: which sources are authoritative certifying
// bodies and which fields count toward the quality score.
type Rules struct {
	// AuthoritativeSources are extraction source IDs whose certification
	// values win over general web-derived sources (NARR affiliate
	// directories, state certifying agencies).
	AuthoritativeSources []string `yaml:"authoritative_sources"`

	// CoreFields are counted when computing completeness for quality scoring.
	CoreFields []string `yaml:"core_fields"`
}

// DefaultRules returns the built-in merge policy. The authoritative list
// covers the NARR affiliate extractions; everything else (SAMHSA datasets,
// web search passes) is treated as non-authoritative for certification.
func DefaultRules() Rules {
	return Rules{
		AuthoritativeSources: []string{
			"narr", "trohn", "garr", "marr", "mash", "azrha",
		},
		CoreFields: []string{
			"name", "street", "city", "state", "zip",
			"phone", "email", "website",
		},
	}
}

// LoadRules reads merge policy from a YAML file, falling back to defaults
// for anything unset. An empty path returns the defaults unchanged.
func LoadRules(path string) (Rules, error) {
	defaults := DefaultRules()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "dedupe: read rules %s", path)
	}

	// The YAML has a top-level "merge" key.
	var wrapper struct {
		Merge Rules `yaml:"merge"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "dedupe: parse rules")
	}

	rules := wrapper.Merge
	if len(rules.AuthoritativeSources) == 0 {
		rules.AuthoritativeSources = defaults.AuthoritativeSources
	}
	if len(rules.CoreFields) == 0 {
		rules.CoreFields = defaults.CoreFields
	}
	return rules, nil
}

// IsAuthoritative reports whether a source is a certifying body.
func (r Rules) IsAuthoritative(sourceID string) bool {
	for _, s := range r.AuthoritativeSources {
		if s == sourceID {
			return true
		}
	}
	return false
}
