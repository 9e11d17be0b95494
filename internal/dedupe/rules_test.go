package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	rules, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), rules)
}

func TestLoadRules_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `merge:
  authoritative_sources:
    - narr
    - state_registry
  core_fields:
    - name
    - phone
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"narr", "state_registry"}, rules.AuthoritativeSources)
	assert.Equal(t, []string{"name", "phone"}, rules.CoreFields)
}

func TestLoadRules_PartialFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yaml := `merge:
  authoritative_sources:
    - narr
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"narr"}, rules.AuthoritativeSources)
	assert.Equal(t, DefaultRules().CoreFields, rules.CoreFields)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestIsAuthoritative(t *testing.T) {
	rules := DefaultRules()
	assert.True(t, rules.IsAuthoritative("narr"))
	assert.True(t, rules.IsAuthoritative("trohn"))
	assert.False(t, rules.IsAuthoritative("web"))
}
