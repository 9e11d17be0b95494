package dedupe

import (
	"sort"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

func TestFingerprints_FullRecord(t *testing.T) {
	n := Normalize(&model.RawRecord{
		SourceID: "narr",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Serenity House",
		Address:  model.Address{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"},
		Phone:    "(512) 555-1234",
	})

	fps := Fingerprints(n)
	require.Len(t, fps, 3)

	assert.Contains(t, fps, Fingerprint("ph|5125551234"))
	assert.Contains(t, fps, Fingerprint("zw|78701|SERENITY"))
	// Soundex of SERENITY is S653.
	assert.Contains(t, fps, Fingerprint("px|TX|S653"))
}

func TestFingerprints_Sorted(t *testing.T) {
	n := Normalize(&model.RawRecord{
		SourceID: "narr",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Serenity House",
		Address:  model.Address{State: "TX", Zip: "78701"},
		Phone:    "5125551234",
	})

	fps := Fingerprints(n)
	assert.True(t, sort.SliceIsSorted(fps, func(i, j int) bool { return fps[i] < fps[j] }))
}

func TestFingerprints_FallbackNeverEmpty(t *testing.T) {
	n := Normalize(&model.RawRecord{
		SourceID: "web",
		OrgType:  model.OrgTypeRecoveryOrg,
		Name:     "Hope Org",
	})

	fps := Fingerprints(n)
	require.Len(t, fps, 1)
	assert.Equal(t, Fingerprint("fb|recovery_org|HOPE"), fps[0])
}

func TestFingerprints_FallbackTruncatesOnRunes(t *testing.T) {
	// "Æ" has no diacritic decomposition, so it survives folding; a byte
	// truncation at 4 would split it mid-rune.
	n := Normalize(&model.RawRecord{
		SourceID: "web",
		OrgType:  model.OrgTypeRecoveryOrg,
		Name:     "Abcæther Recovery",
	})

	fps := Fingerprints(n)
	require.Len(t, fps, 1)
	assert.Equal(t, Fingerprint("fb|recovery_org|ABCÆ"), fps[0])
	assert.True(t, utf8.ValidString(string(fps[0])))
}

func TestFingerprints_SharedPhoneBlocksTogether(t *testing.T) {
	a := Normalize(&model.RawRecord{
		SourceID: "narr",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Serenity House",
		Phone:    "512-555-1234",
	})
	b := Normalize(&model.RawRecord{
		SourceID: "samhsa",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Totally Different Name",
		Phone:    "(512) 555-1234",
	})

	shared := false
	for _, fa := range Fingerprints(a) {
		for _, fb := range Fingerprints(b) {
			if fa == fb {
				shared = true
			}
		}
	}
	assert.True(t, shared)
}

func TestFingerprints_DifferentStatesDoNotShareSoundexKey(t *testing.T) {
	a := Normalize(&model.RawRecord{
		SourceID: "narr",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Serenity House",
		Address:  model.Address{City: "Austin", State: "TX"},
	})
	b := Normalize(&model.RawRecord{
		SourceID: "garr",
		OrgType:  model.OrgTypeNARRResidence,
		Name:     "Serenity House",
		Address:  model.Address{City: "Atlanta", State: "GA"},
	})

	for _, fa := range Fingerprints(a) {
		for _, fb := range Fingerprints(b) {
			assert.NotEqual(t, fa, fb)
		}
	}
}
