package dedupe

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recovery-atlas/directory-cli/internal/model"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testDedupeConfig(), DefaultRules())
	require.NoError(t, err)
	return b
}

func TestBuild_ExactDuplicatesMerge(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{
			SourceID:       "narr",
			OrgType:        model.OrgTypeNARRResidence,
			Name:           "Serenity House",
			Address:        model.Address{Street: "123 Main St", City: "Austin", State: "TX", Zip: "78701"},
			Phone:          "512-555-1234",
			Website:        "https://serenity.org",
			ExtractionDate: day("2026-06-01"),
			QualityHint:    0.9,
		},
		{
			SourceID:       "samhsa",
			OrgType:        model.OrgTypeNARRResidence,
			Name:           "Serenity House, Inc.",
			Address:        model.Address{Street: "123 Main Street", City: "Austin", State: "Texas", Zip: "78701-1234"},
			Phone:          "(512) 555-1234",
			Email:          "info@serenity.org",
			ExtractionDate: day("2026-05-01"),
			QualityHint:    0.5,
		},
		{
			SourceID:       "samhsa",
			OrgType:        model.OrgTypeTreatmentCenter,
			Name:           "Lakeside Treatment Center",
			Address:        model.Address{Street: "900 Lake Dr", City: "Dallas", State: "TX", Zip: "75201"},
			ExtractionDate: day("2026-05-01"),
		},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	require.Len(t, dir.Records, 2)

	merged := dir.Records[0]
	assert.Equal(t, "ORG_0001", merged.CanonicalID)
	assert.Equal(t, "Serenity House", merged.Name)
	assert.Equal(t, []string{"narr", "samhsa"}, merged.SourceLineage)
	assert.Equal(t, "info@serenity.org", merged.Email)
	assert.InDelta(t, 1.0, merged.QualityScore, 1e-9)

	treatment := dir.Records[1]
	assert.Equal(t, "TRT_0001", treatment.CanonicalID)
	assert.Equal(t, []string{"samhsa"}, treatment.SourceLineage)

	assert.Empty(t, dir.Report.Dropped)
	assert.Empty(t, dir.Report.Suppressed)
	assert.NotEmpty(t, dir.RunID)
}

func TestBuild_NearMatchAcrossSourcesMerges(t *testing.T) {
	b := newTestBuilder(t)

	// Same organization from two sources: one with a legal suffix and no
	// zip, one with the full address. The missing zip keeps the addresses
	// out of the exact tier, so the merge rides on name and phone alone.
	raws := []model.RawRecord{
		{
			SourceID:       "sos",
			OrgType:        model.OrgTypeRecoveryOrg,
			Name:           "Recovery House Inc",
			Address:        model.Address{Street: "123 Main St", City: "Boston", State: "MA"},
			Phone:          "617-555-0100",
			ExtractionDate: day("2026-06-01"),
		},
		{
			SourceID:       "web",
			OrgType:        model.OrgTypeRecoveryOrg,
			Name:           "Recovery House",
			Address:        model.Address{Street: "123 Main Street", City: "Boston", State: "MA", Zip: "02101"},
			Phone:          "(617) 555-0100",
			ExtractionDate: day("2026-05-01"),
		},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	require.Len(t, dir.Records, 1)

	rec := dir.Records[0]
	assert.Equal(t, "RCO_0001", rec.CanonicalID)
	assert.Equal(t, []string{"sos", "web"}, rec.SourceLineage)
	assert.Len(t, rec.SourceRecords, 2)
}

func TestBuild_DifferentOrgTypesNeverMerge(t *testing.T) {
	b := newTestBuilder(t)

	// Same name, same phone, but one is a residence and one a treatment
	// center. They share a blocking key and still must not merge.
	raws := []model.RawRecord{
		{SourceID: "a", OrgType: model.OrgTypeNARRResidence, Name: "Harbor House", Phone: "512-555-9999"},
		{SourceID: "b", OrgType: model.OrgTypeTreatmentCenter, Name: "Harbor House", Phone: "512-555-9999"},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	assert.Len(t, dir.Records, 2)
}

func TestBuild_SimilarNamesSameCityStayDistinct(t *testing.T) {
	b := newTestBuilder(t)

	// Two Oxford Houses in the same zip share a name prefix but sit at
	// different street addresses with no phone overlap.
	raws := []model.RawRecord{
		{
			SourceID: "oxford",
			OrgType:  model.OrgTypeOxfordHouse,
			Name:     "Oxford House Alpha",
			Address:  model.Address{Street: "100 Elm St", City: "Austin", State: "TX", Zip: "78701"},
		},
		{
			SourceID: "oxford",
			OrgType:  model.OrgTypeOxfordHouse,
			Name:     "Oxford House Beta",
			Address:  model.Address{Street: "400 Pine St", City: "Austin", State: "TX", Zip: "78701"},
		},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	require.Len(t, dir.Records, 2)
	assert.Equal(t, "OXH_0001", dir.Records[0].CanonicalID)
	assert.Equal(t, "OXH_0002", dir.Records[1].CanonicalID)
}

func TestBuild_InputOrderInvariant(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{SourceID: "narr", OrgType: model.OrgTypeNARRResidence, Name: "Serenity House", Phone: "512-555-1234", QualityHint: 0.9},
		{SourceID: "samhsa", OrgType: model.OrgTypeNARRResidence, Name: "Serenity House Inc", Phone: "512-555-1234", QualityHint: 0.5},
		{SourceID: "web", OrgType: model.OrgTypeRecoveryOrg, Name: "Hope Org", Address: model.Address{City: "Austin", State: "TX", Zip: "78701"}},
		{SourceID: "oxford", OrgType: model.OrgTypeOxfordHouse, Name: "Oxford House Gamma", Address: model.Address{Street: "7 Oak Ln", City: "Waco", State: "TX", Zip: "76701"}},
	}
	reversed := make([]model.RawRecord, len(raws))
	for i, r := range raws {
		reversed[len(raws)-1-i] = r
	}

	d1, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	d2, err := b.Build(context.Background(), reversed, nil)
	require.NoError(t, err)

	assert.Equal(t, d1.Records, d2.Records)
	assert.Equal(t, d1.Sequences, d2.Sequences)
}

func TestBuild_NoRecordLost(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{SourceID: "a", OrgType: model.OrgTypeRecoveryCenter, Name: "Center One", Phone: "512-555-0001"},
		{SourceID: "b", OrgType: model.OrgTypeRecoveryCenter, Name: "Center Two", Phone: "512-555-0002"},
		{SourceID: "c", OrgType: model.OrgTypeRecoveryCenter, Name: "Center One", Phone: "512-555-0001"},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)

	// Every input record lands in exactly one canonical record's lineage.
	total := 0
	for _, rec := range dir.Records {
		total += len(rec.SourceRecords)
	}
	assert.Equal(t, len(raws), total+len(dir.Report.Dropped))
}

func TestBuild_DropsMalformedRecords(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{SourceID: "a", OrgType: "clinic", Name: "Bad Type"},
		{SourceID: "b", OrgType: model.OrgTypeRecoveryOrg},
		{SourceID: "c", OrgType: model.OrgTypeRecoveryOrg, Name: "Over Hint", Phone: "512-555-0003", QualityHint: 1.5},
		{SourceID: "d", OrgType: model.OrgTypeRecoveryOrg, Name: "Kept Org", Phone: "512-555-0004"},
		// Nameless but with a phone: still matchable, kept.
		{SourceID: "e", OrgType: model.OrgTypeRecoveryOrg, Phone: "512-555-0005"},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)

	require.Len(t, dir.Report.Dropped, 3)
	reasons := make(map[model.DropReason]int)
	for _, d := range dir.Report.Dropped {
		reasons[d.Reason]++
	}
	assert.Equal(t, 1, reasons[model.DropReasonUnknownOrgType])
	assert.Equal(t, 1, reasons[model.DropReasonNoIdentifiers])
	assert.Equal(t, 1, reasons[model.DropReasonBadQualityHint])

	assert.Len(t, dir.Records, 2)
}

func TestBuild_ClusterSizeGuard(t *testing.T) {
	b := newTestBuilder(t)

	// Nine sources report the same franchise name and phone; the guard (8)
	// suppresses the merge into flagged singletons.
	var raws []model.RawRecord
	for i := 0; i < 9; i++ {
		raws = append(raws, model.RawRecord{
			SourceID: fmt.Sprintf("src%d", i),
			OrgType:  model.OrgTypeRecoveryCenter,
			Name:     "New Beginnings",
			Phone:    "512-555-7777",
		})
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)

	require.Len(t, dir.Records, 9)
	for _, rec := range dir.Records {
		assert.True(t, rec.MergeSuppressed)
		assert.Len(t, rec.SourceRecords, 1)
	}

	require.Len(t, dir.Report.Suppressed, 1)
	assert.Equal(t, 9, dir.Report.Suppressed[0].Size)
	assert.Len(t, dir.Report.Suppressed[0].CanonicalIDs, 9)
}

func TestBuild_StableIDsAcrossRuns(t *testing.T) {
	b := newTestBuilder(t)

	run1 := []model.RawRecord{
		{SourceID: "narr", OrgType: model.OrgTypeNARRResidence, Name: "Serenity House", Phone: "512-555-1234"},
		{SourceID: "samhsa", OrgType: model.OrgTypeTreatmentCenter, Name: "Lakeside Treatment", Address: model.Address{Street: "900 Lake Dr", City: "Dallas", State: "TX", Zip: "75201"}},
	}
	prev, err := b.Build(context.Background(), run1, nil)
	require.NoError(t, err)
	require.Len(t, prev.Records, 2)
	assert.Equal(t, "ORG_0001", prev.Records[0].CanonicalID)
	assert.Equal(t, "TRT_0001", prev.Records[1].CanonicalID)

	// Second run: same records plus a new residence. The survivors keep
	// their IDs, the newcomer draws the next sequence number.
	run2 := append([]model.RawRecord{
		{SourceID: "garr", OrgType: model.OrgTypeNARRResidence, Name: "Fresh Start Home", Phone: "404-555-2222"},
	}, run1...)

	next, err := b.Build(context.Background(), run2, prev)
	require.NoError(t, err)
	require.Len(t, next.Records, 3)

	byName := make(map[string]string)
	for _, rec := range next.Records {
		byName[rec.Name] = rec.CanonicalID
	}
	assert.Equal(t, "ORG_0001", byName["Serenity House"])
	assert.Equal(t, "TRT_0001", byName["Lakeside Treatment"])
	assert.Equal(t, "ORG_0002", byName["Fresh Start Home"])
}

func TestBuild_Idempotent(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{SourceID: "narr", OrgType: model.OrgTypeNARRResidence, Name: "Serenity House", Phone: "512-555-1234", QualityHint: 0.9},
		{SourceID: "samhsa", OrgType: model.OrgTypeNARRResidence, Name: "Serenity House Inc", Phone: "512-555-1234", QualityHint: 0.5},
		{SourceID: "oxford", OrgType: model.OrgTypeOxfordHouse, Name: "Oxford House Gamma", Address: model.Address{Street: "7 Oak Ln", City: "Waco", State: "TX", Zip: "76701"}},
	}

	first, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)

	// Rebuilding from the same input with the first run as the previous
	// snapshot reproduces the directory exactly, IDs included.
	second, err := b.Build(context.Background(), raws, first)
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Sequences, second.Sequences)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestBuild_PreviousIDNeverReusedTwice(t *testing.T) {
	b := newTestBuilder(t)

	previous := &model.Directory{
		Records: []model.CanonicalRecord{
			{
				CanonicalID: "RCO_0001",
				OrgType:     model.OrgTypeRecoveryOrg,
				SourceRecords: []model.SourceRef{
					{SourceID: "a", RecordKey: "hope org|AUSTIN|78701|"},
					{SourceID: "b", RecordKey: "hope org dallas|DALLAS|75201|"},
				},
			},
		},
		Sequences: map[string]int{"RCO": 2},
	}

	// The previous cluster splits: its two members no longer match each
	// other. Only one cluster can keep RCO_0001.
	raws := []model.RawRecord{
		{SourceID: "a", OrgType: model.OrgTypeRecoveryOrg, Name: "Hope Org", Address: model.Address{City: "Austin", State: "TX", Zip: "78701"}},
		{SourceID: "b", OrgType: model.OrgTypeRecoveryOrg, Name: "Hope Org Dallas", Address: model.Address{City: "Dallas", State: "TX", Zip: "75201"}},
	}

	dir, err := b.Build(context.Background(), raws, previous)
	require.NoError(t, err)
	require.Len(t, dir.Records, 2)

	ids := []string{dir.Records[0].CanonicalID, dir.Records[1].CanonicalID}
	assert.Contains(t, ids, "RCO_0001")
	assert.Contains(t, ids, "RCO_0002")
}

func TestBuild_DisputedCertsReported(t *testing.T) {
	b := newTestBuilder(t)

	raws := []model.RawRecord{
		{
			SourceID:      "web",
			OrgType:       model.OrgTypeNARRResidence,
			Name:          "Serenity House",
			Phone:         "512-555-1234",
			Certification: &model.Certification{Level: "Level I"},
		},
		{
			SourceID:      "samhsa",
			OrgType:       model.OrgTypeNARRResidence,
			Name:          "Serenity House",
			Phone:         "512-555-1234",
			Certification: &model.Certification{Level: "Level III"},
		},
	}

	dir, err := b.Build(context.Background(), raws, nil)
	require.NoError(t, err)
	require.Len(t, dir.Records, 1)
	assert.True(t, dir.Records[0].CertDisputed)

	require.Len(t, dir.Report.Disputed, 1)
	assert.Equal(t, dir.Records[0].CanonicalID, dir.Report.Disputed[0].CanonicalID)
	assert.Equal(t, "certification", dir.Report.Disputed[0].Field)
	assert.Len(t, dir.Report.Disputed[0].Values, 2)
}

func TestBuild_CancelledContext(t *testing.T) {
	b := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, []model.RawRecord{
		{SourceID: "a", OrgType: model.OrgTypeRecoveryOrg, Name: "Hope Org", Phone: "512-555-0001"},
	}, nil)
	assert.Error(t, err)
}

func TestBuild_EmptyInput(t *testing.T) {
	b := newTestBuilder(t)

	dir, err := b.Build(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, dir.Records)
	assert.Empty(t, dir.Report.Dropped)
	assert.Equal(t, 1, dir.Sequences["ORG"])
}

func TestNewBuilder_InvalidConfig(t *testing.T) {
	cfg := testDedupeConfig()
	cfg.MatchThreshold = 1.5
	_, err := NewBuilder(cfg, DefaultRules())
	assert.Error(t, err)
}
